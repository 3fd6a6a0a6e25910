package paperless

import (
	"errors"
	"fmt"
	"net/http"
)

// maxErrorBody: максимальный объём тела ответа с ошибкой, сохраняемый в HTTPError.
const maxErrorBody = 4 << 10

// NetworkError: запрос не дошёл до backend или ответ не удалось разобрать:
// отказ в соединении, таймаут, отмена контекста, некорректный JSON.
type NetworkError struct {
	// Op: операция клиента (list, search, upload, delete, download)
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("paperless %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// HTTPError: backend ответил статусом вне диапазона 2xx.
type HTTPError struct {
	Op         string
	StatusCode int
	// Body: текст ответа backend (усечён до 4 KiB), может быть пустым
	Body string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("paperless %s: статус %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("paperless %s: статус %d: %s", e.Op, e.StatusCode, e.Body)
}

// Detail возвращает текст для пользователя: тело ответа или текст статуса.
func (e *HTTPError) Detail() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// IsNotFound сообщает, является ли err ответом 404 от backend.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}
