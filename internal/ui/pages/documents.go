// Пакет pages: полные HTML-страницы Paperless UI.
// Страница документов с формами загрузки и поиска.
package pages

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"

	"github.com/bigkaa/paperless-ui/internal/ui/i18n"
	"github.com/bigkaa/paperless-ui/internal/ui/pages/partials"
	"github.com/bigkaa/paperless-ui/internal/ui/static"
)

// DefaultHTMXSrc: сборка htmx с CDN, если PU_HTMX_SRC не задан
// и static/js/htmx.min.js не встроен.
const DefaultHTMXSrc = "https://unpkg.com/htmx.org@2.0.4/dist/htmx.min.js"

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// languageNames: названия языков в переключателе.
var languageNames = map[string]string{
	"en": "English",
	"de": "Deutsch",
}

// DocumentsPageData: данные страницы документов.
type DocumentsPageData struct {
	Version string
	// MaxUploadSize: максимальный размер загрузки в байтах
	MaxUploadSize int64
	// Table: начальное содержимое таблицы
	Table partials.TableData
	// HTMXSrc: адрес htmx; пусто: встроенная копия, иначе DefaultHTMXSrc
	HTMXSrc string
}

// htmxSrc выбирает адрес htmx: явный, встроенный в static, CDN.
func htmxSrc(configured string) string {
	if configured != "" {
		return configured
	}
	if embedded := static.HTMXPath(); embedded != "" {
		return embedded
	}
	return DefaultHTMXSrc
}

// languageOption: пункт переключателя языка.
type languageOption struct {
	Code     string
	Name     string
	Selected bool
}

// documentsView: данные шаблона documents_page.
type documentsView struct {
	Lang              string
	Title             string
	Subtitle          string
	HTMXSrc           string
	LangLabel         string
	Languages         []languageOption
	UploadTitle       string
	UploadLabel       string
	UploadButton      string
	UploadLoading     string
	MaxUploadSize     int64
	SearchTitle       string
	SearchPlaceholder string
	SearchButton      string
	SearchReset       string
	TableTitle        string
	TableLoading      string
	Columns           []string
	TableBody         template.HTML
	Version           string
}

// DocumentsPage рендерит страницу документов с уже заполненной таблицей.
func DocumentsPage(data DocumentsPageData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		body, err := templ.ToGoHTML(ctx, partials.DocumentTableBody(data.Table))
		if err != nil {
			return fmt.Errorf("рендеринг таблицы документов: %w", err)
		}

		lang := i18n.LangFromContext(ctx)
		languages := make([]languageOption, 0, len(i18n.SupportedLanguages))
		for _, tag := range i18n.SupportedLanguages {
			code := tag.String()
			languages = append(languages, languageOption{
				Code:     code,
				Name:     languageNames[code],
				Selected: code == lang,
			})
		}

		view := documentsView{
			Lang:              lang,
			Title:             i18n.T(ctx, "app.title"),
			Subtitle:          i18n.T(ctx, "app.subtitle"),
			HTMXSrc:           htmxSrc(data.HTMXSrc),
			LangLabel:         i18n.T(ctx, "lang.label"),
			Languages:         languages,
			UploadTitle:       i18n.T(ctx, "upload.title"),
			UploadLabel:       i18n.T(ctx, "upload.label"),
			UploadButton:      i18n.T(ctx, "upload.button"),
			UploadLoading:     i18n.T(ctx, "upload.loading"),
			MaxUploadSize:     data.MaxUploadSize,
			SearchTitle:       i18n.T(ctx, "search.title"),
			SearchPlaceholder: i18n.T(ctx, "search.placeholder"),
			SearchButton:      i18n.T(ctx, "search.button"),
			SearchReset:       i18n.T(ctx, "search.reset"),
			TableTitle:        i18n.T(ctx, "table.title"),
			TableLoading:      i18n.T(ctx, "table.loading"),
			Columns: []string{
				i18n.T(ctx, "table.id"),
				i18n.T(ctx, "table.filename"),
				i18n.T(ctx, "table.filesize"),
				i18n.T(ctx, "table.filetype"),
				i18n.T(ctx, "table.upload_date"),
				i18n.T(ctx, "table.ocr"),
				i18n.T(ctx, "table.actions"),
			},
			TableBody: body,
			Version:   data.Version,
		}

		return templ.FromGoHTML(templates.Lookup("documents_page"), view).Render(ctx, w)
	})
}
