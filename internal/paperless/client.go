// Пакет paperless: HTTP-клиент paperless REST backend.
// Операции: List (GET /api/documents), Search (GET /api/documents/search),
// Upload (POST /api/documents, multipart), Delete (DELETE /api/documents/{id}),
// Download (GET /api/documents/{id}/download, streaming).
// Все ошибки возвращаются как *NetworkError или *HTTPError.
package paperless

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/paperless-ui/internal/domain/model"
)

// Операции клиента (лейбл operation в метриках и поле Op в ошибках).
const (
	OpList     = "list"
	OpSearch   = "search"
	OpUpload   = "upload"
	OpDelete   = "delete"
	OpDownload = "download"
	OpPing     = "ping"
)

// documentsPath: базовый путь ресурса документов на backend.
const documentsPath = "/api/documents"

// Prometheus-метрики запросов к backend.
var (
	backendRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pu_backend_requests_total",
		Help: "Общее количество запросов к paperless REST backend (по операции и статусу).",
	}, []string{"operation", "status"})

	backendRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pu_backend_request_duration_seconds",
		Help:    "Длительность запросов к paperless REST backend в секундах.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})
)

// RequestIDProvider: функция, возвращающая идентификатор входящего запроса
// для проброса в backend (заголовок X-Request-ID). Пустая строка означает "не передавать".
type RequestIDProvider func(ctx context.Context) string

// UploadRequest: параметры загрузки документа.
type UploadRequest struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// UploadResult: ответ backend на загрузку.
type UploadResult struct {
	// ID: идентификатор созданного документа (тело ответа 201)
	ID string
}

// Client: HTTP-клиент paperless REST backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	requestID  RequestIDProvider
	logger     *slog.Logger
}

// New создаёт клиент backend.
// baseURL: адрес backend (например, http://localhost:8081).
// caCertPath: путь к CA-сертификату для TLS (пустая строка, стандартный пул).
// timeout: таймаут запросов (0 без таймаута, как у браузерного fetch).
// requestID: источник X-Request-ID (может быть nil).
func New(baseURL, caCertPath string, timeout time.Duration, requestID RequestIDProvider, logger *slog.Logger) (*Client, error) {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 10,
	}

	if caCertPath != "" {
		tlsConfig, err := buildTLSConfig(caCertPath)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата backend: %w", err)
		}
		transport.TLSClientConfig = tlsConfig
		logger.Info("CA-сертификат backend добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
		baseURL:   strings.TrimRight(baseURL, "/"),
		requestID: requestID,
		logger:    logger.With(slog.String("component", "paperless_client")),
	}, nil
}

// BaseURL возвращает адрес backend.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ListDocuments запрашивает всю коллекцию документов.
// GET /api/documents: порядок определяется backend.
func (c *Client) ListDocuments(ctx context.Context) ([]model.Document, error) {
	return c.getDocuments(ctx, OpList, c.baseURL+documentsPath)
}

// SearchDocuments выполняет поиск по документам.
// GET /api/documents/search?query=...: запрос экранируется, валидация на вызывающей стороне.
func (c *Client) SearchDocuments(ctx context.Context, query string) ([]model.Document, error) {
	params := url.Values{}
	params.Set("query", query)
	reqURL := c.baseURL + documentsPath + "/search?" + params.Encode()
	return c.getDocuments(ctx, OpSearch, reqURL)
}

// UploadDocument загружает файл multipart-запросом с единственным полем file.
// Проверка типа файла выполняется вызывающей стороной.
func (c *Client) UploadDocument(ctx context.Context, upload UploadRequest) (*UploadResult, error) {
	body, contentType, err := buildMultipart(upload)
	if err != nil {
		return nil, &NetworkError{Op: OpUpload, Err: fmt.Errorf("формирование multipart: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+documentsPath, body)
	if err != nil {
		return nil, &NetworkError{Op: OpUpload, Err: fmt.Errorf("создание запроса: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(req, OpUpload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return nil, &NetworkError{Op: OpUpload, Err: fmt.Errorf("чтение ответа: %w", err)}
	}

	return &UploadResult{ID: strings.Trim(strings.TrimSpace(string(data)), `"`)}, nil
}

// DeleteDocument удаляет документ по идентификатору.
// DELETE /api/documents/{id}: без тела.
func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	reqURL := c.baseURL + documentsPath + "/" + url.PathEscape(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, reqURL, http.NoBody)
	if err != nil {
		return &NetworkError{Op: OpDelete, Err: fmt.Errorf("создание запроса: %w", err)}
	}

	resp, err := c.do(req, OpDelete)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
	return nil
}

// DownloadDocument выполняет streaming-загрузку содержимого документа.
// Возвращает *http.Response со статусом 2xx: вызывающий код ОБЯЗАН закрыть resp.Body.
// rangeHeader: значение заголовка Range от клиента (пустая строка, без Range).
func (c *Client) DownloadDocument(ctx context.Context, id, rangeHeader string) (*http.Response, error) {
	reqURL := c.baseURL + documentsPath + "/" + url.PathEscape(id) + "/download"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, &NetworkError{Op: OpDownload, Err: fmt.Errorf("создание запроса: %w", err)}
	}
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	// Не закрываем resp.Body: вызывающий код отвечает за это (streaming)
	return c.do(req, OpDownload)
}

// Ping проверяет доступность backend запросом списка документов.
// 404 считается признаком живого backend (пустая коллекция).
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+documentsPath, http.NoBody)
	if err != nil {
		return &NetworkError{Op: OpPing, Err: fmt.Errorf("создание запроса: %w", err)}
	}

	resp, err := c.do(req, OpPing)
	if err != nil {
		if IsNotFound(err) {
			return nil
		}
		return err
	}
	resp.Body.Close()
	return nil
}

// getDocuments выполняет GET-запрос и разбирает JSON-массив документов.
func (c *Client) getDocuments(ctx context.Context, op, reqURL string) ([]model.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("создание запроса: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.do(req, op)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("чтение ответа: %w", err)}
	}

	docs, err := model.DecodeDocuments(data)
	if err != nil {
		return nil, &NetworkError{Op: op, Err: fmt.Errorf("декодирование ответа: %w", err)}
	}
	return docs, nil
}

// do выполняет запрос, пишет метрики и превращает не-2xx ответ в *HTTPError.
// При успехе тело ответа остаётся открытым.
func (c *Client) do(req *http.Request, op string) (*http.Response, error) {
	if c.requestID != nil {
		if id := c.requestID(req.Context()); id != "" {
			req.Header.Set("X-Request-ID", id)
		}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req) //nolint:gosec // G107: URL из конфигурации backend
	backendRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		backendRequestsTotal.WithLabelValues(op, "error").Inc()
		c.logger.Debug("Запрос к backend не выполнен",
			slog.String("operation", op),
			slog.String("error", err.Error()),
		)
		return nil, &NetworkError{Op: op, Err: err}
	}
	backendRequestsTotal.WithLabelValues(op, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	return resp, nil
}

// quoteEscaper экранирует кавычки и обратный слэш в имени файла для Content-Disposition.
var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

// buildMultipart формирует тело multipart/form-data с полем file.
// Часть получает Content-Type файла, а не application/octet-stream.
func buildMultipart(upload UploadRequest) (io.Reader, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	contentType := upload.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(upload.Filename)))
	header.Set("Content-Type", contentType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, "", err
	}
	if upload.Content != nil {
		if _, err := io.Copy(part, upload.Content); err != nil {
			return nil, "", err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}

	return &buf, mw.FormDataContentType(), nil
}

// buildTLSConfig добавляет CA backend к системному пулу доверия.
// Файл без PEM-сертификатов считается ошибкой конфигурации.
func buildTLSConfig(caCertPath string) (*tls.Config, error) {
	pem, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}

	roots, err := x509.SystemCertPool()
	if err != nil {
		roots = x509.NewCertPool()
	}
	if !roots.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("в %s нет PEM-сертификатов", caCertPath)
	}

	return &tls.Config{RootCAs: roots, MinVersion: tls.VersionTLS12}, nil
}
