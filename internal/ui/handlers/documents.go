// Пакет handlers: HTTP-обработчики Paperless UI.
// Файл documents.go: страница документов и HTMX-операции:
// список, поиск, загрузка, удаление, proxy скачивания.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/paperless-ui/internal/domain/model"
	"github.com/bigkaa/paperless-ui/internal/paperless"
	"github.com/bigkaa/paperless-ui/internal/service"
	"github.com/bigkaa/paperless-ui/internal/ui/i18n"
	"github.com/bigkaa/paperless-ui/internal/ui/pages"
	"github.com/bigkaa/paperless-ui/internal/ui/pages/partials"
)

// multipartMemory: объём multipart-формы, хранимый в памяти (остальное, во временных файлах).
const multipartMemory = 8 << 20

// multipartOverhead: запас на заголовки multipart сверх размера файла.
const multipartOverhead = 1 << 20

// Prometheus-метрики proxy download.
var (
	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pu_downloads_total",
		Help: "Общее количество запросов на скачивание документов (по статусу).",
	}, []string{"status"})

	downloadBytesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pu_download_bytes_total",
		Help: "Общее количество байт, переданных при скачивании документов.",
	})
)

// DocumentService: операции сервиса документов, используемые обработчиками.
type DocumentService interface {
	List(ctx context.Context) ([]model.Document, error)
	Search(ctx context.Context, query string) ([]model.Document, error)
	Upload(ctx context.Context, file *service.FileUpload) (*service.MutationResult, error)
	Delete(ctx context.Context, id string) (*service.MutationResult, error)
	Download(ctx context.Context, id, rangeHeader string) (*http.Response, error)
}

// DocumentsHandler: обработчик страницы документов.
type DocumentsHandler struct {
	docs            DocumentService
	downloadBaseURL string
	maxUploadSize   int64
	htmxSrc         string
	version         string
	logger          *slog.Logger
}

// NewDocumentsHandler создаёт новый DocumentsHandler.
// downloadBaseURL: origin ссылок скачивания (пустая строка, через proxy UI).
// htmxSrc: адрес htmx для страницы (пустая строка, встроенная копия или CDN).
func NewDocumentsHandler(
	docs DocumentService,
	downloadBaseURL string,
	maxUploadSize int64,
	htmxSrc string,
	version string,
	logger *slog.Logger,
) *DocumentsHandler {
	return &DocumentsHandler{
		docs:            docs,
		downloadBaseURL: downloadBaseURL,
		maxUploadSize:   maxUploadSize,
		htmxSrc:         htmxSrc,
		version:         version,
		logger:          logger.With(slog.String("component", "ui.documents")),
	}
}

// HandlePage обрабатывает GET /documents: полная страница с начальным списком.
func (h *DocumentsHandler) HandlePage(w http.ResponseWriter, r *http.Request) {
	v := h.newView(w, r)

	table := h.listTable(v, "Ошибка получения списка документов (страница)")
	v.render(pages.DocumentsPage(pages.DocumentsPageData{
		Version:       h.version,
		MaxUploadSize: h.maxUploadSize,
		Table:         table,
		HTMXSrc:       h.htmxSrc,
	}))
}

// HandleTable обрабатывает GET /documents/table: обновление тела таблицы.
// Ошибка backend отображается строкой ошибки, 404: пустым списком.
func (h *DocumentsHandler) HandleTable(w http.ResponseWriter, r *http.Request) {
	v := h.newView(w, r)
	v.render(partials.DocumentTableBody(h.listTable(v, "Ошибка получения списка документов")))
}

// HandleSearch обрабатывает GET /documents/search?query=: полнотекстовый поиск.
// Пустой запрос отклоняется уведомлением без обращения к backend, таблица не меняется.
func (h *DocumentsHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	v := h.newView(w, r)
	query := r.URL.Query().Get("query")

	docs, err := h.docs.Search(v.ctx, query)
	if err != nil {
		if service.KindOf(err) == service.KindValidation {
			h.logger.Debug("Поисковый запрос отклонён", slog.String("error", err.Error()))
			v.renderAlertOnly(partials.AlertWarning, h.validationMessage(v.ctx, err))
			return
		}

		h.logger.Warn("Ошибка поиска документов",
			slog.String("query", query),
			slog.String("kind", service.KindOf(err).String()),
			slog.String("error", err.Error()),
		)
		v.render(partials.DocumentTableBody(partials.TableData{ErrorDetail: h.errorDetail(v.ctx, err)}))
		return
	}

	v.render(partials.DocumentTableBody(h.tableData(v.ctx, docs)))
}

// HandleUpload обрабатывает POST /documents/upload: загрузка PDF.
// Успех: обновлённая таблица и уведомление. Ошибка: только уведомление, таблица не меняется.
func (h *DocumentsHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	v := h.newView(w, r)

	upload, cleanup, err := h.readUpload(w, r)
	defer cleanup()
	if err == nil {
		var result *service.MutationResult
		result, err = h.docs.Upload(v.ctx, upload)
		if err == nil {
			v.render(
				h.mutationTable(v.ctx, result),
				partials.Alert(partials.AlertSuccess, i18n.Tf(v.ctx, "alert.upload_success", upload.Filename)),
			)
			return
		}
	}

	if service.KindOf(err) == service.KindValidation {
		h.logger.Debug("Файл отклонён до загрузки", slog.String("error", err.Error()))
		v.renderAlertOnly(partials.AlertWarning, h.validationMessage(v.ctx, err))
		return
	}

	h.logger.Warn("Ошибка загрузки документа",
		slog.String("kind", service.KindOf(err).String()),
		slog.String("error", err.Error()),
	)
	v.renderAlertOnly(partials.AlertError, i18n.Tf(v.ctx, "alert.upload_failed", h.errorDetail(v.ctx, err)))
}

// HandleDelete обрабатывает DELETE /documents/{id}: удаление документа.
// Успех: обновлённая таблица и уведомление. Ошибка: только уведомление.
func (h *DocumentsHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	v := h.newView(w, r)
	id := documentID(r)

	result, err := h.docs.Delete(v.ctx, id)
	if err != nil {
		h.logger.Warn("Ошибка удаления документа",
			slog.String("document_id", id),
			slog.String("kind", service.KindOf(err).String()),
			slog.String("error", err.Error()),
		)
		v.renderAlertOnly(partials.AlertError, i18n.Tf(v.ctx, "alert.delete_failed", h.errorDetail(v.ctx, err)))
		return
	}

	v.render(
		h.mutationTable(v.ctx, result),
		partials.Alert(partials.AlertSuccess, i18n.Tf(v.ctx, "alert.delete_success", id)),
	)
}

// HandleDownload обрабатывает GET /api/documents/{id}/download: proxy скачивания
// из backend с пробросом Range и заголовков содержимого.
func (h *DocumentsHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := documentID(r)
	start := time.Now()

	resp, err := h.docs.Download(ctx, id, r.Header.Get("Range"))
	if err != nil {
		var httpErr *paperless.HTTPError
		switch {
		case errors.As(err, &httpErr):
			downloadsTotal.WithLabelValues("backend_error").Inc()
			http.Error(w, httpErr.Detail(), httpErr.StatusCode)
		case ctx.Err() != nil:
			downloadsTotal.WithLabelValues("canceled").Inc()
		default:
			downloadsTotal.WithLabelValues("unavailable").Inc()
			http.Error(w, i18n.T(ctx, "error.network"), http.StatusBadGateway)
		}
		h.logger.Warn("Ошибка скачивания документа",
			slog.String("document_id", id),
			slog.String("error", err.Error()),
		)
		return
	}
	defer resp.Body.Close()

	copyDownloadHeaders(w, resp)
	w.WriteHeader(resp.StatusCode)

	written, err := io.Copy(w, resp.Body)
	downloadBytesTotal.Add(float64(written))
	if err != nil {
		// Заголовки уже отправлены, остаётся только залогировать
		downloadsTotal.WithLabelValues("stream_error").Inc()
		h.logger.Warn("Ошибка streaming download",
			slog.String("document_id", id),
			slog.Int64("bytes_written", written),
			slog.String("error", err.Error()),
		)
		return
	}

	downloadsTotal.WithLabelValues("success").Inc()
	h.logger.Debug("Download завершён",
		slog.String("document_id", id),
		slog.Int64("bytes", written),
		slog.Duration("duration", time.Since(start)),
		slog.Int("status", resp.StatusCode),
	)
}

// listTable запрашивает список и возвращает данные таблицы (строки или ошибку).
func (h *DocumentsHandler) listTable(v *documentView, logMsg string) partials.TableData {
	docs, err := h.docs.List(v.ctx)
	if err != nil {
		h.logger.Warn(logMsg,
			slog.String("kind", service.KindOf(err).String()),
			slog.String("error", err.Error()),
		)
		return partials.TableData{ErrorDetail: h.errorDetail(v.ctx, err)}
	}
	return h.tableData(v.ctx, docs)
}

// mutationTable рендерит таблицу после успешной мутации.
// Если обновление списка не удалось: строка ошибки.
func (h *DocumentsHandler) mutationTable(ctx context.Context, result *service.MutationResult) templ.Component {
	if result.RefreshErr != nil {
		return partials.DocumentTableBody(partials.TableData{ErrorDetail: h.errorDetail(ctx, result.RefreshErr)})
	}
	return partials.DocumentTableBody(h.tableData(ctx, result.Documents))
}

// tableData строит данные таблицы для языка запроса.
func (h *DocumentsHandler) tableData(ctx context.Context, docs []model.Document) partials.TableData {
	return partials.TableData{
		Rows: partials.BuildRows(docs, i18n.LangFromContext(ctx), h.downloadBaseURL),
	}
}

// readUpload извлекает файл из multipart-формы.
// cleanup закрывает файл и удаляет временные файлы формы; вызывается всегда.
func (h *DocumentsHandler) readUpload(w http.ResponseWriter, r *http.Request) (*service.FileUpload, func(), error) {
	cleanup := func() {}

	if h.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, cleanup, service.ErrFileTooLarge
		}
		return nil, cleanup, fmt.Errorf("%w: %v", service.ErrNoFile, err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		cleanup = func() { _ = r.MultipartForm.RemoveAll() }
		return nil, cleanup, service.ErrNoFile
	}
	cleanup = func() {
		_ = file.Close()
		_ = r.MultipartForm.RemoveAll()
	}

	return fileUpload(file, header), cleanup, nil
}

// fileUpload преобразует часть multipart-формы в FileUpload.
func fileUpload(file multipart.File, header *multipart.FileHeader) *service.FileUpload {
	return &service.FileUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Content:     file,
	}
}

// errorDetail возвращает текст причины ошибки для пользователя.
func (h *DocumentsHandler) errorDetail(ctx context.Context, err error) string {
	var httpErr *paperless.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Detail()
	}
	if service.KindOf(err) == service.KindNetwork {
		return i18n.T(ctx, "error.network")
	}
	return err.Error()
}

// validationMessage возвращает локализованный текст ошибки валидации.
func (h *DocumentsHandler) validationMessage(ctx context.Context, err error) string {
	switch {
	case errors.Is(err, service.ErrEmptyQuery):
		return i18n.T(ctx, "validation.empty_query")
	case errors.Is(err, service.ErrNotPDF):
		return i18n.T(ctx, "validation.not_pdf")
	case errors.Is(err, service.ErrFileTooLarge):
		return i18n.Tf(ctx, "validation.too_large", formatSize(h.maxUploadSize))
	case errors.Is(err, service.ErrInvalidPDF):
		return i18n.T(ctx, "validation.invalid_pdf")
	default:
		return i18n.T(ctx, "validation.no_file")
	}
}

// formatSize форматирует лимит размера для сообщений.
func formatSize(bytes int64) string {
	if bytes >= 1<<20 {
		return fmt.Sprintf("%.0f MB", float64(bytes)/(1<<20))
	}
	return partials.FormatKB(bytes)
}

// documentID извлекает идентификатор документа из пути.
func documentID(r *http.Request) string {
	raw := chi.URLParam(r, "id")
	if id, err := url.PathUnescape(raw); err == nil {
		return id
	}
	return raw
}

// copyDownloadHeaders пробрасывает заголовки ответа backend в ответ клиенту.
func copyDownloadHeaders(w http.ResponseWriter, resp *http.Response) {
	headersToProxy := []string{
		"Content-Type",
		"Content-Length",
		"Content-Disposition",
		"Content-Range",
		"Accept-Ranges",
		"ETag",
		"Last-Modified",
		"Cache-Control",
	}

	for _, name := range headersToProxy {
		if v := resp.Header.Get(name); v != "" {
			w.Header().Set(name, v)
		}
	}
}
