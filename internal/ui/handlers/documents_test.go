package handlers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/bigkaa/paperless-ui/internal/paperless"
	"github.com/bigkaa/paperless-ui/internal/service"
	"github.com/bigkaa/paperless-ui/internal/ui/i18n"
)

func TestMain(m *testing.M) {
	logger := testLogger()
	if err := i18n.LoadFromEmbedFS(i18n.Init(logger), logger); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// --- Mock paperless backend ---

// mockBackend: mock paperless REST backend со счётчиками запросов.
type mockBackend struct {
	listStatus   int
	listBody     string
	searchStatus int
	uploadStatus int
	uploadBody   string
	deleteStatus int
	deleteBody   string

	listCalls   atomic.Int32
	searchCalls atomic.Int32
	uploadCalls atomic.Int32
	deleteCalls atomic.Int32
	lastQuery   atomic.Value
}

const twoDocuments = `[
	{"id": "d2", "filename": "second.pdf", "filesize": 2048, "filetype": "application/pdf", "ocrJobDone": true},
	{"id": "d1", "filename": "first.pdf", "filesize": 1024, "filetype": "application/pdf", "ocrJobDone": false}
]`

// newMockBackend создаёт backend, по умолчанию успешно отвечающий на все запросы.
func newMockBackend() *mockBackend {
	return &mockBackend{
		listStatus:   http.StatusOK,
		listBody:     twoDocuments,
		searchStatus: http.StatusOK,
		uploadStatus: http.StatusCreated,
		uploadBody:   "d3",
		deleteStatus: http.StatusNoContent,
	}
}

func (b *mockBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/documents":
		b.listCalls.Add(1)
		writeBackend(w, b.listStatus, b.listBody)
	case r.Method == http.MethodGet && r.URL.Path == "/api/documents/search":
		b.searchCalls.Add(1)
		b.lastQuery.Store(r.URL.Query().Get("query"))
		writeBackend(w, b.searchStatus, `[{"documentId": "d1", "filename": "first.pdf", "filesize": 1024, "filetype": "application/pdf", "ocrJobDone": true}]`)
	case r.Method == http.MethodPost && r.URL.Path == "/api/documents":
		b.uploadCalls.Add(1)
		writeBackend(w, b.uploadStatus, b.uploadBody)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/documents/"):
		b.deleteCalls.Add(1)
		writeBackend(w, b.deleteStatus, b.deleteBody)
	case r.Method == http.MethodGet && r.URL.Path == "/api/documents/d1/download":
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="first.pdf"`)
		w.Header().Set("X-Internal", "secret")
		_, _ = io.WriteString(w, "%PDF-1.4 content")
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// writeBackend пишет ответ backend с указанным статусом.
func writeBackend(w http.ResponseWriter, status int, body string) {
	if status == http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// newTestRouter собирает роутер UI поверх mock backend.
func newTestRouter(t *testing.T, backend *mockBackend) http.Handler {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := paperless.New(srv.URL, "", 0, nil, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	svc := service.NewDocumentService(client, 1<<20, false, testLogger())
	h := NewDocumentsHandler(svc, "", 1<<20, "", "test", testLogger())

	r := chi.NewRouter()
	r.Use(i18n.Middleware("en"))
	r.Get("/documents", h.HandlePage)
	r.Get("/documents/table", h.HandleTable)
	r.Get("/documents/search", h.HandleSearch)
	r.Post("/documents/upload", h.HandleUpload)
	r.Delete("/documents/{id}", h.HandleDelete)
	r.Get("/api/documents/{id}/download", h.HandleDownload)
	r.Post("/set-language", HandleSetLanguage)
	return r
}

// serve выполняет запрос к роутеру.
func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// uploadRequest создаёт multipart-запрос загрузки.
func uploadRequest(t *testing.T, filename, contentType, content string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = io.WriteString(part, content)
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/documents/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("HX-Request", "true")
	return req
}

// --- Список ---

func TestHandlePage(t *testing.T) {
	backend := newMockBackend()
	rec := serve(newTestRouter(t, backend), httptest.NewRequest(http.MethodGet, "/documents", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидается 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	html := rec.Body.String()
	if !strings.Contains(html, `<tbody id="documents-body">`) || !strings.Contains(html, `data-delete-id="d2"`) {
		t.Error("страница должна содержать таблицу с начальным списком")
	}
	if backend.listCalls.Load() != 1 {
		t.Errorf("list вызван %d раз, ожидалось 1", backend.listCalls.Load())
	}
}

func TestHandleTable_Rows(t *testing.T) {
	rec := serve(newTestRouter(t, newMockBackend()), httptest.NewRequest(http.MethodGet, "/documents/table", nil))

	html := rec.Body.String()
	if got := strings.Count(html, "<tr"); got != 2 {
		t.Fatalf("ожидалось 2 строки, получено %d:\n%s", got, html)
	}
	if strings.Index(html, `data-delete-id="d2"`) > strings.Index(html, `data-delete-id="d1"`) {
		t.Error("строки должны идти в порядке ответа backend")
	}
	if !strings.Contains(html, "2.00 KB") {
		t.Error("размер должен выводиться в KB с двумя знаками")
	}
}

func TestHandleTable_ServerError(t *testing.T) {
	backend := newMockBackend()
	backend.listStatus = http.StatusInternalServerError
	backend.listBody = ""

	rec := serve(newTestRouter(t, backend), httptest.NewRequest(http.MethodGet, "/documents/table", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, строка ошибки отдаётся с 200 для замены тела таблицы", rec.Code)
	}
	html := rec.Body.String()
	if !strings.Contains(html, "Error fetching documents: 500 Internal Server Error") {
		t.Errorf("ожидалась строка ошибки:\n%s", html)
	}
	if strings.Contains(html, "No documents found.") {
		t.Error("ошибка 500 не должна отображаться как пустой список")
	}
}

func TestHandleTable_NotFoundIsEmpty(t *testing.T) {
	backend := newMockBackend()
	backend.listStatus = http.StatusNotFound

	rec := serve(newTestRouter(t, backend), httptest.NewRequest(http.MethodGet, "/documents/table", nil))

	html := rec.Body.String()
	if !strings.Contains(html, "No documents found.") {
		t.Errorf("404 должен отображаться заглушкой:\n%s", html)
	}
	if strings.Contains(html, "row-error") {
		t.Error("404 не должен отображаться как ошибка")
	}
}

func TestHandleTable_Unreachable(t *testing.T) {
	client, err := paperless.New("http://localhost:1", "", 0, nil, testLogger())
	if err != nil {
		t.Fatal(err)
	}
	h := NewDocumentsHandler(service.NewDocumentService(client, 1<<20, false, testLogger()), "", 1<<20, "", "test", testLogger())

	rec := httptest.NewRecorder()
	h.HandleTable(rec, httptest.NewRequest(http.MethodGet, "/documents/table", nil))

	if !strings.Contains(rec.Body.String(), "the document service is unreachable") {
		t.Errorf("ожидалась строка сетевой ошибки:\n%s", rec.Body.String())
	}
}

func TestHandleTable_ClientGone(t *testing.T) {
	backend := newMockBackend()
	router := newTestRouter(t, backend)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec := serve(router, httptest.NewRequest(http.MethodGet, "/documents/table", nil).WithContext(ctx))

	if rec.Body.Len() != 0 {
		t.Errorf("после ухода клиента ничего не должно записываться, получено %q", rec.Body.String())
	}
}

// --- Поиск ---

func TestHandleSearch_EmptyQuery(t *testing.T) {
	for _, query := range []string{"", "%20%20"} {
		backend := newMockBackend()
		rec := serve(newTestRouter(t, backend), httptest.NewRequest(http.MethodGet, "/documents/search?query="+query, nil))

		if backend.searchCalls.Load() != 0 {
			t.Errorf("query=%q: search вызван %d раз, ожидалось 0", query, backend.searchCalls.Load())
		}
		if rec.Header().Get("HX-Reswap") != "none" {
			t.Errorf("query=%q: таблица не должна меняться (HX-Reswap: none)", query)
		}
		if !strings.Contains(rec.Body.String(), "Please enter a search term.") {
			t.Errorf("query=%q: ожидалось уведомление:\n%s", query, rec.Body.String())
		}
	}
}

func TestHandleSearch(t *testing.T) {
	backend := newMockBackend()
	rec := serve(newTestRouter(t, backend), httptest.NewRequest(http.MethodGet, "/documents/search?query=a%26b%3Dc", nil))

	if got, _ := backend.lastQuery.Load().(string); got != "a&b=c" {
		t.Errorf("backend получил query = %q, ожидается a&b=c", got)
	}
	html := rec.Body.String()
	if strings.Count(html, "<tr") != 1 || !strings.Contains(html, `data-delete-id="d1"`) {
		t.Errorf("ожидалась одна строка результата:\n%s", html)
	}
}

func TestHandleSearch_ServerError(t *testing.T) {
	backend := newMockBackend()
	backend.searchStatus = http.StatusServiceUnavailable

	rec := serve(newTestRouter(t, backend), httptest.NewRequest(http.MethodGet, "/documents/search?query=x", nil))

	if !strings.Contains(rec.Body.String(), "row-error") {
		t.Errorf("ожидалась строка ошибки:\n%s", rec.Body.String())
	}
}

// --- Загрузка ---

func TestHandleUpload_NotPDF(t *testing.T) {
	backend := newMockBackend()
	rec := serve(newTestRouter(t, backend), uploadRequest(t, "notes.txt", "text/plain", "hello"))

	if backend.uploadCalls.Load() != 0 || backend.listCalls.Load() != 0 {
		t.Errorf("backend не должен вызываться: upload=%d list=%d",
			backend.uploadCalls.Load(), backend.listCalls.Load())
	}
	if rec.Header().Get("HX-Reswap") != "none" {
		t.Error("таблица не должна меняться при отклонённом файле")
	}
	html := rec.Body.String()
	if !strings.Contains(html, "alert-warning") || !strings.Contains(html, "Only PDF files can be uploaded.") {
		t.Errorf("ожидалось предупреждение:\n%s", html)
	}
}

func TestHandleUpload_NoFile(t *testing.T) {
	backend := newMockBackend()
	req := httptest.NewRequest(http.MethodPost, "/documents/upload", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := serve(newTestRouter(t, backend), req)

	if backend.uploadCalls.Load() != 0 {
		t.Error("upload не должен вызываться без файла")
	}
	if !strings.Contains(rec.Body.String(), "Please select a file to upload.") {
		t.Errorf("ожидалось предупреждение:\n%s", rec.Body.String())
	}
}

func TestHandleUpload_TooLarge(t *testing.T) {
	backend := newMockBackend()
	rec := serve(newTestRouter(t, backend), uploadRequest(t, "big.pdf", "application/pdf", strings.Repeat("x", 1<<20+1)))

	if backend.uploadCalls.Load() != 0 {
		t.Error("upload не должен вызываться для слишком большого файла")
	}
	if !strings.Contains(rec.Body.String(), "maximum upload size of 1 MB") {
		t.Errorf("ожидалось предупреждение о размере:\n%s", rec.Body.String())
	}
}

func TestHandleUpload_Success(t *testing.T) {
	backend := newMockBackend()
	rec := serve(newTestRouter(t, backend), uploadRequest(t, "report.pdf", "application/pdf", "%PDF-1.4"))

	if backend.uploadCalls.Load() != 1 {
		t.Errorf("upload вызван %d раз, ожидалось 1", backend.uploadCalls.Load())
	}
	if backend.listCalls.Load() != 1 {
		t.Errorf("list вызван %d раз, ожидалось ровно 1", backend.listCalls.Load())
	}
	if rec.Header().Get("HX-Reswap") != "" {
		t.Error("при успехе таблица должна обновляться")
	}
	html := rec.Body.String()
	if strings.Count(html, "<tr") != 2 {
		t.Errorf("ожидалась обновлённая таблица из 2 строк:\n%s", html)
	}
	if !strings.Contains(html, "alert-success") || !strings.Contains(html, "report.pdf") {
		t.Errorf("ожидалось уведомление об успехе:\n%s", html)
	}
}

func TestHandleUpload_BackendFailure(t *testing.T) {
	backend := newMockBackend()
	backend.uploadStatus = http.StatusBadRequest
	backend.uploadBody = "Only PDF files are allowed"

	rec := serve(newTestRouter(t, backend), uploadRequest(t, "report.pdf", "application/pdf", "%PDF-1.4"))

	if backend.uploadCalls.Load() != 1 {
		t.Errorf("upload вызван %d раз, ожидалось 1", backend.uploadCalls.Load())
	}
	if backend.listCalls.Load() != 0 {
		t.Errorf("list вызван %d раз, ожидалось 0", backend.listCalls.Load())
	}
	if rec.Header().Get("HX-Reswap") != "none" {
		t.Error("таблица не должна меняться при ошибке загрузки")
	}
	html := rec.Body.String()
	if !strings.Contains(html, "Upload failed: Only PDF files are allowed") {
		t.Errorf("уведомление должно содержать текст backend:\n%s", html)
	}
	if strings.Contains(html, "<tr") {
		t.Error("ответ не должен содержать строк таблицы")
	}
}

// --- Удаление ---

func TestHandleDelete_Success(t *testing.T) {
	backend := newMockBackend()
	req := httptest.NewRequest(http.MethodDelete, "/documents/d1", nil)
	rec := serve(newTestRouter(t, backend), req)

	if backend.deleteCalls.Load() != 1 || backend.listCalls.Load() != 1 {
		t.Errorf("delete=%d list=%d, ожидалось 1 и 1", backend.deleteCalls.Load(), backend.listCalls.Load())
	}
	html := rec.Body.String()
	if strings.Count(html, "<tr") != 2 || !strings.Contains(html, "alert-success") {
		t.Errorf("ожидалась обновлённая таблица и уведомление:\n%s", html)
	}
}

func TestHandleDelete_Failure(t *testing.T) {
	backend := newMockBackend()
	backend.deleteStatus = http.StatusNotFound
	backend.deleteBody = "Document not found"

	rec := serve(newTestRouter(t, backend), httptest.NewRequest(http.MethodDelete, "/documents/missing", nil))

	if backend.listCalls.Load() != 0 {
		t.Errorf("list вызван %d раз, ожидалось 0", backend.listCalls.Load())
	}
	if rec.Header().Get("HX-Reswap") != "none" {
		t.Error("таблица не должна меняться при ошибке удаления")
	}
	if !strings.Contains(rec.Body.String(), "Delete failed: Document not found") {
		t.Errorf("ожидалось уведомление об ошибке:\n%s", rec.Body.String())
	}
}

// --- Скачивание ---

func TestHandleDownload(t *testing.T) {
	rec := serve(newTestRouter(t, newMockBackend()), httptest.NewRequest(http.MethodGet, "/api/documents/d1/download", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("статус = %d, ожидается 200", rec.Code)
	}
	if rec.Header().Get("Content-Type") != "application/pdf" {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	if rec.Header().Get("Content-Disposition") != `attachment; filename="first.pdf"` {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	if rec.Header().Get("X-Internal") != "" {
		t.Error("посторонние заголовки backend не должны пробрасываться")
	}
	if rec.Body.String() != "%PDF-1.4 content" {
		t.Errorf("тело = %q", rec.Body.String())
	}
}

func TestHandleDownload_NotFound(t *testing.T) {
	rec := serve(newTestRouter(t, newMockBackend()), httptest.NewRequest(http.MethodGet, "/api/documents/nope/download", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("статус = %d, ожидается 404", rec.Code)
	}
}

// --- Язык ---

func TestHandleSetLanguage(t *testing.T) {
	tests := []struct {
		name         string
		lang         string
		referer      string
		wantCookie   string
		wantLocation string
	}{
		{"немецкий", "de", "http://example.com/documents?x=1", "de", "/documents?x=1"},
		{"неподдерживаемый язык", "ru", "", "en", "/documents"},
		{"чужой referer", "en", "http://evil.test/phish", "en", "/documents"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/set-language", strings.NewReader("lang="+tt.lang))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			rec := httptest.NewRecorder()
			HandleSetLanguage(rec, req)

			if rec.Code != http.StatusSeeOther {
				t.Errorf("статус = %d, ожидается 303", rec.Code)
			}
			if loc := rec.Header().Get("Location"); loc != tt.wantLocation {
				t.Errorf("Location = %q, ожидается %q", loc, tt.wantLocation)
			}
			cookies := rec.Result().Cookies()
			if len(cookies) != 1 || cookies[0].Value != tt.wantCookie {
				t.Errorf("cookie = %v, ожидается lang=%s", cookies, tt.wantCookie)
			}
		})
	}
}

func TestHandleTable_German(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/documents/table", nil)
	req.AddCookie(&http.Cookie{Name: i18n.LangCookieName, Value: "de"})

	backend := newMockBackend()
	backend.listBody = `[]`
	rec := serve(newTestRouter(t, backend), req)

	if !strings.Contains(rec.Body.String(), "Keine Dokumente gefunden.") {
		t.Errorf("ожидалась немецкая заглушка:\n%s", rec.Body.String())
	}
}
