// Пакет server собирает маршруты Paperless UI и запускает HTTP-сервер.
// TLS терминируется на ingress.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"

	apihandlers "github.com/bigkaa/paperless-ui/internal/api/handlers"
	"github.com/bigkaa/paperless-ui/internal/api/middleware"
	"github.com/bigkaa/paperless-ui/internal/config"
	uihandlers "github.com/bigkaa/paperless-ui/internal/ui/handlers"
	"github.com/bigkaa/paperless-ui/internal/ui/i18n"
	"github.com/bigkaa/paperless-ui/internal/ui/static"
)

// Server: HTTP-сервер UI.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт сервер; слушать порт он начинает в Run.
func New(
	cfg *config.Config,
	logger *slog.Logger,
	documents *uihandlers.DocumentsHandler,
	health *apihandlers.HealthHandler,
) *Server {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      NewRouter(cfg, logger, documents, health),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// NewRouter собирает chi-роутер: middleware и все маршруты UI и служебных endpoints.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	documents *uihandlers.DocumentsHandler,
	health *apihandlers.HealthHandler,
) chi.Router {
	router := chi.NewRouter()

	// Метрики снаружи логгера: оба пишут в один statusRecorder
	router.Use(middleware.RequestID())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.RequestLogger(logger))

	// Служебные endpoints: без i18n
	router.Get("/health/live", health.HealthLive)
	router.Get("/health/ready", health.HealthReady)
	router.Get("/metrics", health.GetMetrics)

	// Статические ресурсы (CSS, JS)
	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static.FileSystem())))

	// Страница документов и HTMX-фрагменты
	router.Group(func(r chi.Router) {
		r.Use(i18n.Middleware(cfg.DefaultLang))

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			http.Redirect(w, r, "/documents", http.StatusFound)
		})
		r.Get("/documents", documents.HandlePage)
		r.Get("/documents/table", documents.HandleTable)
		r.Get("/documents/search", documents.HandleSearch)
		r.Post("/documents/upload", documents.HandleUpload)
		r.Delete("/documents/{id}", documents.HandleDelete)
		r.Get("/api/documents/{id}/download", documents.HandleDownload)
		r.Post("/set-language", uihandlers.HandleSetLanguage)
	})

	return router
}

// Run обслуживает запросы до SIGINT/SIGTERM, затем ждёт завершения активных
// запросов не дольше ShutdownTimeout.
func (s *Server) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP-сервер слушает", slog.String("addr", s.httpServer.Addr))
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP-сервер: %w", err)
	case <-ctx.Done():
		s.logger.Info("Получен сигнал остановки, завершаем активные запросы",
			slog.Duration("timeout", s.cfg.ShutdownTimeout),
		)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("остановка HTTP-сервера: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
