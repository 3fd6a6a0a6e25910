// Пакет model: доменные модели Paperless UI.
// Document: метаданные документа, хранящиеся в paperless REST backend.
// Клиент только читает записи: любая мутация выполняется на сервере,
// после чего коллекция запрашивается заново.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PDFContentType: MIME-тип, принимаемый для загрузки.
const PDFContentType = "application/pdf"

// Document: запись о документе (ответ GET /api/documents и /api/documents/search).
type Document struct {
	// ID: непрозрачный идентификатор (строка или число в JSON), нормализован в строку
	ID string
	// Filename: отображаемое имя, используется как атрибут download
	Filename string
	// Filesize: размер в байтах
	Filesize int64
	// Filetype: MIME-тип
	Filetype string
	// UploadDate: время загрузки (нулевое, если backend не прислал дату)
	UploadDate time.Time
	// OCRJobDone: завершена ли OCR-обработка
	OCRJobDone bool
	// OCRText: распознанный текст (только в результатах поиска)
	OCRText string
}

// documentWire: форма документа на проводе.
// documentId и ocrText приходят в результатах полнотекстового поиска.
type documentWire struct {
	ID         json.RawMessage `json:"id"`
	DocumentID json.RawMessage `json:"documentId"`
	Filename   string          `json:"filename"`
	Filesize   int64           `json:"filesize"`
	Filetype   string          `json:"filetype"`
	UploadDate json.RawMessage `json:"uploadDate"`
	OCRJobDone bool            `json:"ocrJobDone"`
	OCRText    string          `json:"ocrText"`
}

// UnmarshalJSON разбирает плоский объект документа.
func (d *Document) UnmarshalJSON(data []byte) error {
	var w documentWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	id, err := parseID(w.ID)
	if err != nil {
		return fmt.Errorf("поле id: %w", err)
	}
	if id == "" {
		id, err = parseID(w.DocumentID)
		if err != nil {
			return fmt.Errorf("поле documentId: %w", err)
		}
	}

	uploaded, err := parseUploadDate(w.UploadDate)
	if err != nil {
		return fmt.Errorf("поле uploadDate: %w", err)
	}

	*d = Document{
		ID:         id,
		Filename:   w.Filename,
		Filesize:   w.Filesize,
		Filetype:   w.Filetype,
		UploadDate: uploaded,
		OCRJobDone: w.OCRJobDone,
		OCRText:    w.OCRText,
	}
	return nil
}

// envelope: элемент массива ответа, либо плоский документ,
// либо обёртка {"document": {...}, "file": "..."}.
type envelope struct {
	Document json.RawMessage `json:"document"`
}

// DecodeDocuments разбирает JSON-массив ответа List/Search.
// Каждый элемент может быть плоским документом или обёрткой {document, file};
// содержимое файла в обёртке игнорируется. null трактуется как пустой список.
func DecodeDocuments(data []byte) ([]Document, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("ожидался JSON-массив документов: %w", err)
	}

	docs := make([]Document, 0, len(raw))
	for i, item := range raw {
		doc, err := decodeItem(item)
		if err != nil {
			return nil, fmt.Errorf("элемент %d: %w", i, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// decodeItem нормализует один элемент массива.
func decodeItem(item json.RawMessage) (Document, error) {
	var env envelope
	if err := json.Unmarshal(item, &env); err != nil {
		return Document{}, err
	}

	payload := item
	if len(env.Document) > 0 && !bytes.Equal(bytes.TrimSpace(env.Document), []byte("null")) {
		payload = env.Document
	}

	var doc Document
	if err := json.Unmarshal(payload, &doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

// IsPDF сообщает, считается ли файл PDF: по MIME-типу или по расширению .pdf.
func IsPDF(filename, contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.IndexByte(mediaType, ';'); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	if mediaType == PDFContentType {
		return true
	}
	return strings.HasSuffix(strings.ToLower(filename), ".pdf")
}

// parseID принимает строковый или числовой идентификатор.
func parseID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("ожидалась строка или число, получено %s", raw)
	}
	return n.String(), nil
}

// Форматы дат без часового пояса (LocalDateTime на стороне backend).
var localDateLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseUploadDate принимает RFC 3339, ISO local date-time или массив
// [год, месяц, день, час, минута, секунда, наносекунды].
// Даты без часового пояса интерпретируются как UTC.
func parseUploadDate(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}

	if raw[0] == '[' {
		var parts []int
		if err := json.Unmarshal(raw, &parts); err != nil {
			return time.Time{}, fmt.Errorf("некорректный массив даты: %w", err)
		}
		if len(parts) < 3 {
			return time.Time{}, fmt.Errorf("массив даты слишком короткий: %v", parts)
		}
		for len(parts) < 7 {
			parts = append(parts, 0)
		}
		return time.Date(parts[0], time.Month(parts[1]), parts[2],
			parts[3], parts[4], parts[5], parts[6], time.UTC), nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("ожидалась строка или массив, получено %s", raw)
	}
	if s == "" {
		return time.Time{}, nil
	}

	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	for _, layout := range localDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("нераспознанный формат даты %q", s)
}
