// errors.go: ошибки сервисного слоя и классификация отказов.
package service

import (
	"errors"
	"fmt"

	"github.com/bigkaa/paperless-ui/internal/paperless"
)

var (
	// ErrValidation: ошибка валидации входных данных (до обращения к backend).
	ErrValidation = errors.New("ошибка валидации")
	// ErrNoFile: файл для загрузки не выбран.
	ErrNoFile = fmt.Errorf("%w: файл не выбран", ErrValidation)
	// ErrNotPDF: выбранный файл не является PDF.
	ErrNotPDF = fmt.Errorf("%w: допускаются только PDF-файлы", ErrValidation)
	// ErrFileTooLarge: файл превышает допустимый размер загрузки.
	ErrFileTooLarge = fmt.Errorf("%w: файл слишком большой", ErrValidation)
	// ErrInvalidPDF: файл не прошёл структурную проверку PDF.
	ErrInvalidPDF = fmt.Errorf("%w: повреждённый PDF", ErrValidation)
	// ErrEmptyQuery: пустой поисковый запрос.
	ErrEmptyQuery = fmt.Errorf("%w: пустой поисковый запрос", ErrValidation)
)

// Kind: категория отказа.
type Kind int

const (
	// KindNone: ошибки нет.
	KindNone Kind = iota
	// KindValidation: входные данные отклонены до сетевого вызова.
	KindValidation
	// KindNetwork: backend недоступен или ответ не разобран.
	KindNetwork
	// KindHTTP: backend ответил статусом вне 2xx.
	KindHTTP
	// KindUnknown: прочие ошибки.
	KindUnknown
)

// String возвращает имя категории (используется в логах и метриках).
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// KindOf классифицирует ошибку.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	if errors.Is(err, ErrValidation) {
		return KindValidation
	}

	var httpErr *paperless.HTTPError
	if errors.As(err, &httpErr) {
		return KindHTTP
	}
	var netErr *paperless.NetworkError
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	return KindUnknown
}
