// Prometheus-метрики входящих запросов UI.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	uiRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pu_http_requests_total",
			Help: "Запросы к Paperless UI по маршруту и коду ответа",
		},
		[]string{"method", "path", "status"},
	)

	uiRequestSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pu_http_request_duration_seconds",
			Help:    "Время обработки запросов к Paperless UI",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)
)

// knownRoutes: маршруты без параметров, попадающие в метки как есть.
var knownRoutes = map[string]bool{
	"/":                 true,
	"/documents":        true,
	"/documents/table":  true,
	"/documents/search": true,
	"/documents/upload": true,
	"/set-language":     true,
	"/health/live":      true,
	"/health/ready":     true,
	"/metrics":          true,
}

// MetricsMiddleware считает запросы и их длительность.
// Метка path: шаблон маршрута (normalizePath), а не сырой URL.
func MetricsMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			route := normalizePath(r.URL.Path)
			rec := recordStatus(w)

			next.ServeHTTP(rec, r)

			uiRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			uiRequestSeconds.WithLabelValues(r.Method, route).Observe(time.Since(began).Seconds())
		})
	}
}

// normalizePath сводит путь к шаблону маршрута:
//
//	/documents/abc              → /documents/{id}
//	/api/documents/abc/download → /api/documents/{id}/download
//	/static/css/app.css         → /static/*
//
// Всё остальное сводится к "other".
func normalizePath(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/static/") {
		return "/static/*"
	}

	if id, ok := strings.CutPrefix(path, "/api/documents/"); ok {
		if id, ok = strings.CutSuffix(id, "/download"); ok && id != "" && !strings.Contains(id, "/") {
			return "/api/documents/{id}/download"
		}
		return "other"
	}

	if id, ok := strings.CutPrefix(path, "/documents/"); ok && id != "" && !strings.Contains(id, "/") {
		return "/documents/{id}"
	}
	return "other"
}
