// Пакет handlers обслуживает служебные endpoints Paperless UI (пробы Kubernetes и /metrics).
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bigkaa/paperless-ui/internal/config"
)

const serviceName = "paperless-ui"

// backendCheckName: ключ проверки backend в ответе /health/ready.
const backendCheckName = "paperless_backend"

const (
	statusOK       = "ok"
	statusDegraded = "degraded"
	statusFail     = "fail"
)

// ReadinessChecker сообщает готовность зависимости: "ok", "degraded" или "fail".
type ReadinessChecker interface {
	CheckReady() (status, message string)
}

// HealthHandler обслуживает /health/live, /health/ready и /metrics.
type HealthHandler struct {
	backend ReadinessChecker
	metrics http.Handler
}

// NewHealthHandler создаёт обработчик. При backend == nil readiness всегда fail.
func NewHealthHandler(backend ReadinessChecker) *HealthHandler {
	return &HealthHandler{
		backend: backend,
		metrics: promhttp.Handler(),
	}
}

type checkResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// probeResponse: тело ответа обеих проб; Checks заполняется только для readiness.
type probeResponse struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Timestamp string                 `json:"timestamp"`
	Checks    map[string]checkResult `json:"checks,omitempty"`
}

func newProbeResponse(status string) probeResponse {
	return probeResponse{
		Status:    status,
		Service:   serviceName,
		Version:   config.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// HealthLive отвечает 200, пока процесс обслуживает запросы.
func (h *HealthHandler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	writeProbe(w, http.StatusOK, newProbeResponse(statusOK))
}

// HealthReady проверяет paperless backend. degraded не выводит под из балансировки,
// fail отвечает 503.
func (h *HealthHandler) HealthReady(w http.ResponseWriter, _ *http.Request) {
	check := checkResult{Status: statusFail, Message: "проверка backend не настроена"}
	if h.backend != nil {
		check.Status, check.Message = h.backend.CheckReady()
	}
	if check.Status != statusOK && check.Status != statusDegraded {
		check.Status = statusFail
	}

	resp := newProbeResponse(check.Status)
	resp.Checks = map[string]checkResult{backendCheckName: check}

	code := http.StatusOK
	if check.Status == statusFail {
		code = http.StatusServiceUnavailable
	}
	writeProbe(w, code, resp)
}

// GetMetrics отдаёт метрики из default registry.
func (h *HealthHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	h.metrics.ServeHTTP(w, r)
}

func writeProbe(w http.ResponseWriter, code int, resp probeResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
