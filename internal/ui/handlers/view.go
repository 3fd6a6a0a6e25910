// documentView владеет выводом одного запроса.
package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/bigkaa/paperless-ui/internal/ui/pages/partials"
)

// documentView: цель рендеринга одного HTTP-запроса.
// Все записи в ответ идут через него; если клиент уже ушёл
// (контекст запроса завершён), записи пропускаются без ошибок.
type documentView struct {
	w      http.ResponseWriter
	ctx    context.Context
	logger *slog.Logger
}

// newView создаёт documentView для запроса.
func (h *DocumentsHandler) newView(w http.ResponseWriter, r *http.Request) *documentView {
	return &documentView{
		w:      w,
		ctx:    r.Context(),
		logger: h.logger,
	}
}

// gone сообщает, что клиент больше не ждёт ответа.
func (v *documentView) gone() bool {
	return v.ctx.Err() != nil
}

// render последовательно рендерит компоненты в ответ.
func (v *documentView) render(components ...templ.Component) {
	if v.gone() {
		v.logger.Debug("Клиент отключился, рендеринг пропущен")
		return
	}

	v.w.Header().Set("Content-Type", "text/html; charset=utf-8")
	for _, c := range components {
		if err := c.Render(v.ctx, v.w); err != nil {
			v.logger.Error("Ошибка рендеринга",
				slog.String("error", err.Error()),
			)
			return
		}
	}
}

// renderAlertOnly рендерит уведомление, запрещая HTMX менять цель запроса.
func (v *documentView) renderAlertOnly(variant, message string) {
	if v.gone() {
		return
	}
	v.w.Header().Set("HX-Reswap", "none")
	v.render(partials.Alert(variant, message))
}
