// Мониторинг paperless backend через topologymetrics.
//
// Зависимость paperless-rest (HTTP, critical) опрашивается с интервалом
// PU_DEPHEALTH_CHECK_INTERVAL; метрики app_dependency_* публикуются на /metrics,
// а последнее состояние используется как readiness UI.
//
// Без PU_DEPHEALTH_HEALTH_PATH проверка идёт через Pinger (GET /api/documents,
// 404 пустой коллекции означает "жив"), как и у BackendReadinessChecker.
// С явным путём работает штатный httpcheck: здоров только ответ 2xx.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BigKAA/topologymetrics/sdk-go/dephealth"
	_ "github.com/BigKAA/topologymetrics/sdk-go/dephealth/checks/httpcheck" // HTTP checker factory
	"github.com/prometheus/client_golang/prometheus"
)

// BackendDependencyName: имя зависимости в метриках topologymetrics.
const BackendDependencyName = "paperless-rest"

// DephealthConfig: параметры мониторинга backend.
type DephealthConfig struct {
	ServiceID     string // вершина графа: "paperless-ui"
	Group         string // PU_DEPHEALTH_GROUP
	BackendURL    string
	HealthPath    string // PU_DEPHEALTH_HEALTH_PATH; пусто: проверка через Pinger
	CheckInterval time.Duration
	// Pinger: проверка backend при пустом HealthPath
	Pinger Pinger
	// Registerer: registry для метрик (nil означает глобальный).
	Registerer prometheus.Registerer
}

// DephealthService: периодическая проверка backend.
type DephealthService struct {
	dh     *dephealth.DepHealth
	logger *slog.Logger
}

// NewDephealthService создаёт мониторинг; проверки начинаются после Start.
func NewDephealthService(cfg DephealthConfig, logger *slog.Logger) (*DephealthService, error) {
	backend, err := url.Parse(cfg.BackendURL)
	if err != nil {
		return nil, fmt.Errorf("адрес backend: %w", err)
	}

	depOpts := []dephealth.DependencyOption{
		dephealth.FromURL(cfg.BackendURL),
		dephealth.CheckInterval(cfg.CheckInterval),
		dephealth.Critical(true),
	}

	var backendDep dephealth.Option
	if cfg.HealthPath == "" {
		if cfg.Pinger == nil {
			return nil, errors.New("не задан ни путь health, ни Pinger backend")
		}
		backendDep = dephealth.AddDependency(BackendDependencyName, dephealth.TypeHTTP,
			pingChecker{pinger: cfg.Pinger}, depOpts...)
	} else {
		depOpts = append(depOpts, dephealth.WithHTTPHealthPath(cfg.HealthPath))
		if backend.Scheme == "https" {
			depOpts = append(depOpts, dephealth.WithHTTPTLSSkipVerify(false))
		}
		backendDep = dephealth.HTTP(BackendDependencyName, depOpts...)
	}

	opts := []dephealth.Option{
		dephealth.WithLogger(logger),
		backendDep,
	}
	if cfg.Registerer != nil {
		opts = append(opts, dephealth.WithRegisterer(cfg.Registerer))
	}

	dh, err := dephealth.New(cfg.ServiceID, cfg.Group, opts...)
	if err != nil {
		return nil, fmt.Errorf("topologymetrics: %w", err)
	}

	return &DephealthService{
		dh:     dh,
		logger: logger.With(slog.String("component", "dephealth")),
	}, nil
}

// Start запускает проверки в фоне и сразу возвращает управление.
func (ds *DephealthService) Start(ctx context.Context) error {
	if err := ds.dh.Start(ctx); err != nil {
		return err
	}
	ds.logger.Info("Мониторинг paperless backend запущен")
	return nil
}

// Stop останавливает проверки.
func (ds *DephealthService) Stop() {
	ds.dh.Stop()
	ds.logger.Info("Мониторинг paperless backend остановлен")
}

// Health: последнее состояние зависимостей по ключу "имя:хост:порт".
func (ds *DephealthService) Health() map[string]bool {
	return ds.dh.Health()
}

// CheckReady: readiness по последней проверке; до первой проверки degraded.
func (ds *DephealthService) CheckReady() (status, message string) {
	return readinessFromHealth(ds.Health())
}

func readinessFromHealth(health map[string]bool) (status, message string) {
	checked := false
	for key, ok := range health {
		if !strings.HasPrefix(key, BackendDependencyName+":") {
			continue
		}
		checked = true
		if !ok {
			return "fail", "paperless backend недоступен (" + key + ")"
		}
	}
	if !checked {
		return "degraded", "проверка paperless backend ещё не выполнена"
	}
	return "ok", ""
}

// pingChecker: HealthChecker topologymetrics поверх Pinger.
type pingChecker struct {
	pinger Pinger
}

func (c pingChecker) Check(ctx context.Context, _ dephealth.Endpoint) error {
	return c.pinger.Ping(ctx)
}

func (c pingChecker) Type() string {
	return string(dephealth.TypeHTTP)
}
