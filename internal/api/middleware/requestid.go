// requestid.go: middleware идентификатора запроса.
// Берёт X-Request-ID из входящего запроса или генерирует UUID,
// кладёт его в контекст и возвращает в заголовке ответа.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// RequestIDHeader: заголовок идентификатора запроса.
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength: максимальная длина принимаемого идентификатора.
const maxRequestIDLength = 128

type requestIDKey struct{}

// RequestID возвращает middleware, назначающий запросу идентификатор.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(RequestIDHeader))
			if id == "" || len(id) > maxRequestIDLength {
				id = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, id)
			ctx := context.WithValue(r.Context(), requestIDKey{}, id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext возвращает идентификатор запроса (пустая строка, если его нет).
// Используется paperless-клиентом для проброса X-Request-ID в backend.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
