package pages

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/bigkaa/paperless-ui/internal/ui/i18n"
	"github.com/bigkaa/paperless-ui/internal/ui/pages/partials"
	"github.com/bigkaa/paperless-ui/internal/ui/static"
)

func TestMain(m *testing.M) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if err := i18n.LoadFromEmbedFS(i18n.Init(logger), logger); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func TestDocumentsPage(t *testing.T) {
	data := DocumentsPageData{
		Version:       "1.2.3",
		MaxUploadSize: 1024,
		Table: partials.TableData{Rows: []partials.DocumentRow{
			{ID: "doc-1", Filename: "a.pdf", SizeKB: "1.00 KB", Filetype: "application/pdf", UploadedAt: "—",
				DownloadURL: "/api/documents/doc-1/download"},
		}},
	}

	var buf bytes.Buffer
	ctx := i18n.WithLang(context.Background(), "de")
	if err := DocumentsPage(data).Render(ctx, &buf); err != nil {
		t.Fatalf("ошибка рендеринга: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		`<html lang="de">`,
		`<tbody id="documents-body">`,
		`data-delete-id="doc-1"`,
		`id="alerts"`,
		`hx-post="/documents/upload"`,
		`hx-indicator="#upload-indicator"`,
		`hx-get="/documents/search"`,
		`name="query"`,
		`<option value="de" selected>Deutsch</option>`,
		"Dokument hochladen",
		"paperless-ui 1.2.3",
		htmxSrc(""),
	} {
		if !strings.Contains(html, want) {
			t.Errorf("страница не содержит %q", want)
		}
	}

	// Тело таблицы вставляется как разметка, а не как экранированный текст
	if strings.Contains(html, "&lt;tr") {
		t.Error("тело таблицы экранировано")
	}
}

func TestHTMXSrc(t *testing.T) {
	if got := htmxSrc("/assets/htmx.min.js"); got != "/assets/htmx.min.js" {
		t.Errorf("явный адрес = %q, ожидается /assets/htmx.min.js", got)
	}

	want := static.HTMXPath()
	if want == "" {
		want = DefaultHTMXSrc
	}
	if got := htmxSrc(""); got != want {
		t.Errorf("адрес по умолчанию = %q, ожидается %q", got, want)
	}
}

func TestDocumentsPage_CustomHTMXSrc(t *testing.T) {
	var buf bytes.Buffer
	err := DocumentsPage(DocumentsPageData{HTMXSrc: "/assets/htmx.min.js"}).Render(context.Background(), &buf)
	if err != nil {
		t.Fatalf("ошибка рендеринга: %v", err)
	}
	if !strings.Contains(buf.String(), `<script src="/assets/htmx.min.js" defer></script>`) {
		t.Error("страница не подключает htmx по заданному адресу")
	}
}
