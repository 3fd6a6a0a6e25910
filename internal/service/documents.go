// Сервис документов: валидация, политика 404, обновление коллекции.
// Каждая мутация (upload, delete) при успехе завершается ровно одним
// повторным запросом списка; при ошибке список не запрашивается.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/bigkaa/paperless-ui/internal/domain/model"
	"github.com/bigkaa/paperless-ui/internal/paperless"
)

// DocumentBackend: операции paperless REST backend, используемые сервисом.
// Реализуется *paperless.Client.
type DocumentBackend interface {
	ListDocuments(ctx context.Context) ([]model.Document, error)
	SearchDocuments(ctx context.Context, query string) ([]model.Document, error)
	UploadDocument(ctx context.Context, upload paperless.UploadRequest) (*paperless.UploadResult, error)
	DeleteDocument(ctx context.Context, id string) error
	DownloadDocument(ctx context.Context, id, rangeHeader string) (*http.Response, error)
}

// FileUpload: файл, выбранный пользователем для загрузки.
type FileUpload struct {
	Filename    string
	ContentType string
	// Size: размер в байтах, заявленный клиентом
	Size    int64
	Content io.ReadSeeker
}

// MutationResult: результат успешной мутации и последующего обновления списка.
type MutationResult struct {
	// ID: идентификатор созданного или удалённого документа
	ID string
	// Documents: обновлённая коллекция (nil, если обновление не удалось)
	Documents []model.Document
	// RefreshErr: ошибка обновления коллекции; сама мутация при этом выполнена
	RefreshErr error
}

// DocumentService: сервис работы с документами.
type DocumentService struct {
	backend       DocumentBackend
	maxUploadSize int64
	validatePDF   bool
	logger        *slog.Logger
}

// NewDocumentService создаёт сервис документов.
// maxUploadSize: максимальный размер загружаемого файла в байтах.
// validatePDF: включает структурную проверку PDF через pdfcpu.
func NewDocumentService(backend DocumentBackend, maxUploadSize int64, validatePDF bool, logger *slog.Logger) *DocumentService {
	return &DocumentService{
		backend:       backend,
		maxUploadSize: maxUploadSize,
		validatePDF:   validatePDF,
		logger:        logger.With(slog.String("component", "document_service")),
	}
}

// List возвращает всю коллекцию документов.
// 404 от backend трактуется как пустая коллекция.
func (s *DocumentService) List(ctx context.Context) ([]model.Document, error) {
	docs, err := s.backend.ListDocuments(ctx)
	if err != nil {
		if paperless.IsNotFound(err) {
			s.logger.Debug("Backend вернул 404 на запрос списка, коллекция пуста")
			return []model.Document{}, nil
		}
		return nil, fmt.Errorf("получение списка документов: %w", err)
	}
	return docs, nil
}

// Search выполняет полнотекстовый поиск.
// Пустой запрос (или только пробелы) отклоняется без обращения к backend.
// 404 от backend трактуется как отсутствие результатов.
func (s *DocumentService) Search(ctx context.Context, query string) ([]model.Document, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	docs, err := s.backend.SearchDocuments(ctx, query)
	if err != nil {
		if paperless.IsNotFound(err) {
			s.logger.Debug("Backend вернул 404 на поиск, результатов нет",
				slog.String("query", query),
			)
			return []model.Document{}, nil
		}
		return nil, fmt.Errorf("поиск документов: %w", err)
	}
	return docs, nil
}

// ValidateUpload проверяет файл перед загрузкой: наличие, тип PDF, размер,
// и (если включено) структуру PDF. Возвращает ошибку семейства ErrValidation.
func (s *DocumentService) ValidateUpload(file *FileUpload) error {
	if file == nil || file.Content == nil || file.Filename == "" {
		return ErrNoFile
	}
	if !model.IsPDF(file.Filename, file.ContentType) {
		return ErrNotPDF
	}
	if s.maxUploadSize > 0 && file.Size > s.maxUploadSize {
		return ErrFileTooLarge
	}

	if s.validatePDF {
		if err := validatePDFStructure(file.Content); err != nil {
			s.logger.Debug("Структурная проверка PDF не пройдена",
				slog.String("filename", file.Filename),
				slog.String("error", err.Error()),
			)
			return ErrInvalidPDF
		}
	}
	return nil
}

// Upload валидирует и загружает файл, затем один раз обновляет коллекцию.
// При ошибке валидации backend не вызывается; при ошибке загрузки
// коллекция не обновляется.
func (s *DocumentService) Upload(ctx context.Context, file *FileUpload) (*MutationResult, error) {
	if err := s.ValidateUpload(file); err != nil {
		return nil, err
	}

	contentType := file.ContentType
	if contentType == "" || strings.EqualFold(contentType, "application/octet-stream") {
		contentType = model.PDFContentType
	}

	uploaded, err := s.backend.UploadDocument(ctx, paperless.UploadRequest{
		Filename:    file.Filename,
		ContentType: contentType,
		Content:     file.Content,
	})
	if err != nil {
		return nil, fmt.Errorf("загрузка документа %s: %w", file.Filename, err)
	}

	s.logger.Info("Документ загружен",
		slog.String("filename", file.Filename),
		slog.String("document_id", uploaded.ID),
	)

	return s.refresh(ctx, uploaded.ID), nil
}

// Delete удаляет документ и один раз обновляет коллекцию.
// При ошибке удаления коллекция не обновляется.
func (s *DocumentService) Delete(ctx context.Context, id string) (*MutationResult, error) {
	if err := s.backend.DeleteDocument(ctx, id); err != nil {
		return nil, fmt.Errorf("удаление документа %s: %w", id, err)
	}

	s.logger.Info("Документ удалён", slog.String("document_id", id))

	return s.refresh(ctx, id), nil
}

// Download открывает поток содержимого документа. Вызывающий код закрывает resp.Body.
func (s *DocumentService) Download(ctx context.Context, id, rangeHeader string) (*http.Response, error) {
	resp, err := s.backend.DownloadDocument(ctx, id, rangeHeader)
	if err != nil {
		return nil, fmt.Errorf("скачивание документа %s: %w", id, err)
	}
	return resp, nil
}

// refresh запрашивает коллекцию после успешной мутации.
func (s *DocumentService) refresh(ctx context.Context, id string) *MutationResult {
	docs, err := s.List(ctx)
	if err != nil {
		s.logger.Warn("Не удалось обновить список после изменения",
			slog.String("document_id", id),
			slog.String("error", err.Error()),
		)
		return &MutationResult{ID: id, RefreshErr: err}
	}
	return &MutationResult{ID: id, Documents: docs}
}

// validatePDFStructure проверяет PDF средствами pdfcpu (relaxed mode)
// и возвращает позицию чтения в начало файла.
func validatePDFStructure(rs io.ReadSeeker) error {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("позиционирование файла: %w", err)
	}

	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	validateErr := api.Validate(rs, conf)

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("позиционирование файла: %w", err)
	}
	return validateErr
}
