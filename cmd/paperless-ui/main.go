// Точка входа Paperless UI: веб-интерфейс документов поверх paperless REST.
// Загружает конфигурацию, создаёт клиент backend, сервисный слой, i18n,
// UI handlers и HTTP-сервер с graceful shutdown.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	apihandlers "github.com/bigkaa/paperless-ui/internal/api/handlers"
	"github.com/bigkaa/paperless-ui/internal/api/middleware"
	"github.com/bigkaa/paperless-ui/internal/config"
	"github.com/bigkaa/paperless-ui/internal/paperless"
	"github.com/bigkaa/paperless-ui/internal/server"
	"github.com/bigkaa/paperless-ui/internal/service"
	uihandlers "github.com/bigkaa/paperless-ui/internal/ui/handlers"
	"github.com/bigkaa/paperless-ui/internal/ui/i18n"
)

// readinessPingTimeout: таймаут ping backend для /health/ready без topologymetrics.
const readinessPingTimeout = 5 * time.Second

func main() {
	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Ошибка загрузки конфигурации", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 2. Настройка логирования
	logger := config.SetupLogger(cfg)
	logger.Info("Paperless UI запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("backend_url", cfg.BackendURL),
	)

	// 3. Переводы интерфейса
	bundle := i18n.Init(logger)
	if err := i18n.LoadFromEmbedFS(bundle, logger); err != nil {
		logger.Error("Ошибка загрузки переводов", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Клиент paperless REST (X-Request-ID пробрасывается из входящего запроса)
	client, err := paperless.New(
		cfg.BackendURL,
		cfg.BackendCACertPath,
		cfg.BackendTimeout,
		middleware.RequestIDFromContext,
		logger,
	)
	if err != nil {
		logger.Error("Ошибка создания клиента paperless", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. Сервисный слой документов
	documentService := service.NewDocumentService(client, cfg.MaxUploadSize, cfg.ValidatePDFStructure, logger)

	// 6. Readiness: topologymetrics или прямой ping backend
	ctx := context.Background()
	var readiness apihandlers.ReadinessChecker = service.NewBackendReadinessChecker(client, readinessPingTimeout)

	var dephealthSvc *service.DephealthService
	if cfg.DephealthEnabled {
		if os.Getenv("PU_DEPHEALTH_GROUP") == "" {
			logger.Warn("PU_DEPHEALTH_GROUP не задана, используется значение по умолчанию",
				slog.String("default", cfg.DephealthGroup),
			)
		}

		svc, dephealthErr := service.NewDephealthService(service.DephealthConfig{
			ServiceID:     "paperless-ui",
			Group:         cfg.DephealthGroup,
			BackendURL:    cfg.BackendURL,
			HealthPath:    cfg.DephealthHealthPath,
			CheckInterval: cfg.DephealthCheckInterval,
			Pinger:        client,
		}, logger)
		if dephealthErr != nil {
			logger.Warn("topologymetrics недоступен, readiness через ping backend",
				slog.String("error", dephealthErr.Error()),
			)
		} else if startErr := svc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			dephealthSvc = svc
			readiness = svc
			logger.Info("topologymetrics запущен",
				slog.String("group", cfg.DephealthGroup),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 7. Handlers
	healthHandler := apihandlers.NewHealthHandler(readiness)
	documentsHandler := uihandlers.NewDocumentsHandler(
		documentService,
		cfg.DownloadBaseURL,
		cfg.MaxUploadSize,
		cfg.HTMXSrc,
		config.Version,
		logger,
	)

	// 8. Создание и запуск HTTP-сервера
	srv := server.New(cfg, logger, documentsHandler, healthHandler)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 9. Остановка фоновых задач
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}

	logger.Info("Paperless UI остановлен")
}
