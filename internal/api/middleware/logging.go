// Журнал запросов к UI: одна запись slog на запрос.
package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// quietPaths: служебные пути, успешные запросы к которым пишутся в DEBUG
// (пробы kubelet и scrape Prometheus иначе забивают журнал).
var quietPaths = map[string]bool{
	"/health/live":  true,
	"/health/ready": true,
	"/metrics":      true,
}

// RequestLogger пишет итог каждого запроса: статус, объём ответа, время,
// request_id и признак HTMX-запроса (HX-Request, HX-Target).
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			began := time.Now()
			rec := recordStatus(w)

			next.ServeHTTP(rec, r)

			attrs := []slog.Attr{
				slog.String("request_id", RequestIDFromContext(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", rec.status),
				slog.Int64("bytes", rec.bytes),
				slog.Duration("duration", time.Since(began)),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if r.Header.Get("HX-Request") == "true" {
				attrs = append(attrs,
					slog.Bool("htmx", true),
					slog.String("hx_target", r.Header.Get("HX-Target")),
				)
			}

			logger.LogAttrs(r.Context(), logLevel(r.URL.Path, rec.status), "Запрос обработан", attrs...)
		})
	}
}

// logLevel: 5xx пишется в ERROR, 4xx в WARN, служебные пути в DEBUG, остальное в INFO.
func logLevel(path string, status int) slog.Level {
	if status >= http.StatusInternalServerError {
		return slog.LevelError
	}
	if status >= http.StatusBadRequest {
		return slog.LevelWarn
	}
	if quietPaths[path] {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
