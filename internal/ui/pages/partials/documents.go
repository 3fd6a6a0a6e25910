// Пакет partials: HTML-фрагменты для HTMX-ответов.
// Файл documents.go: тело таблицы документов и OOB-уведомления.
// Рендеринг детерминирован: одинаковые входные данные дают одинаковую разметку,
// тело таблицы каждый раз строится заново целиком.
package partials

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"math"
	"net/url"
	"strings"

	"github.com/a-h/templ"

	"github.com/bigkaa/paperless-ui/internal/domain/model"
	"github.com/bigkaa/paperless-ui/internal/ui/i18n"
)

//go:embed templates/*.html
var templateFS embed.FS

// templates: разобранные шаблоны фрагментов.
var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// Варианты уведомлений.
const (
	AlertSuccess = "success"
	AlertWarning = "warning"
	AlertError   = "error"
)

// DocumentRow: строка таблицы документов, готовая к выводу.
type DocumentRow struct {
	ID          string
	Filename    string
	SizeKB      string
	Filetype    string
	UploadedAt  string
	OCRDone     bool
	DownloadURL string
}

// TableData: строки таблицы либо текст ошибки загрузки.
type TableData struct {
	Rows []DocumentRow
	// ErrorDetail: причина ошибки; непустое значение заменяет строки одной строкой ошибки
	ErrorDetail string
}

// BuildRows преобразует документы в строки таблицы, сохраняя порядок.
// downloadBaseURL: origin для ссылок скачивания (пустая строка, относительные ссылки).
func BuildRows(docs []model.Document, lang, downloadBaseURL string) []DocumentRow {
	rows := make([]DocumentRow, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, DocumentRow{
			ID:          d.ID,
			Filename:    d.Filename,
			SizeKB:      FormatKB(d.Filesize),
			Filetype:    d.Filetype,
			UploadedAt:  i18n.FormatDateTime(lang, d.UploadDate),
			OCRDone:     d.OCRJobDone,
			DownloadURL: DownloadURL(downloadBaseURL, d.ID),
		})
	}
	return rows
}

// FormatKB форматирует размер в килобайтах с двумя знаками после точки.
// Половины округляются от нуля (128 байт → 0.13 KB), а не к чётному, как в %.2f.
func FormatKB(bytes int64) string {
	return fmt.Sprintf("%.2f KB", math.Round(float64(bytes)*100/1024)/100)
}

// DownloadURL возвращает ссылку скачивания документа.
func DownloadURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/api/documents/" + url.PathEscape(id) + "/download"
}

// tableView: данные шаблона document_table_body.
type tableView struct {
	Rows           []DocumentRow
	HasError       bool
	ErrorText      string
	EmptyText      string
	OCRDoneText    string
	OCRPendingText string
	DownloadText   string
	DeleteText     string
}

// DocumentTableBody рендерит содержимое <tbody id="documents-body">.
// Пустой список даёт одну строку-заглушку, ошибка даёт одну строку с текстом ошибки.
func DocumentTableBody(data TableData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		view := tableView{
			Rows:           data.Rows,
			HasError:       data.ErrorDetail != "",
			EmptyText:      i18n.T(ctx, "table.empty"),
			OCRDoneText:    i18n.T(ctx, "ocr.done"),
			OCRPendingText: i18n.T(ctx, "ocr.pending"),
			DownloadText:   i18n.T(ctx, "action.download"),
			DeleteText:     i18n.T(ctx, "action.delete"),
		}
		if view.HasError {
			view.ErrorText = i18n.Tf(ctx, "table.error", data.ErrorDetail)
		}
		return templ.FromGoHTML(templates.Lookup("document_table_body"), view).Render(ctx, w)
	})
}

// alertView: данные шаблона alert.
type alertView struct {
	Variant    string
	Message    string
	CloseLabel string
}

// Alert рендерит уведомление, вставляемое out-of-band в #alerts.
// variant: success, warning, error.
func Alert(variant, message string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		switch variant {
		case AlertSuccess, AlertWarning, AlertError:
		default:
			variant = AlertError
		}
		view := alertView{
			Variant:    variant,
			Message:    message,
			CloseLabel: i18n.T(ctx, "alert.close"),
		}
		return templ.FromGoHTML(templates.Lookup("alert"), view).Render(ctx, w)
	})
}
