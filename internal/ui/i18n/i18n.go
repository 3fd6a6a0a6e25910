// Пакет i18n: переводы интерфейса Paperless UI (en, de).
//
// Handlers и компоненты получают строки через T(ctx, key) / Tf(ctx, key, args...):
// язык кладёт в контекст Middleware. Каталоги: плоские JSON {"ключ": "текст"}.
package i18n

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Catalog: переводы одного языка.
type Catalog map[string]string

// Bundle: каталоги всех языков. Заполняется при старте, дальше только читается.
type Bundle struct {
	mu       sync.RWMutex
	byLang   map[string]Catalog
	fallback string
	logger   *slog.Logger
}

// NewBundle создаёт пустой Bundle; отсутствующие ключи ищутся в каталоге DefaultLang.
func NewBundle(logger *slog.Logger) *Bundle {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bundle{
		byLang:   make(map[string]Catalog),
		fallback: DefaultLang,
		logger:   logger,
	}
}

// LoadMessages разбирает JSON-каталог языка lang, заменяя прежний.
func (b *Bundle) LoadMessages(lang string, data []byte) error {
	var catalog Catalog
	if err := json.Unmarshal(data, &catalog); err != nil {
		return fmt.Errorf("i18n: каталог %s: %w", lang, err)
	}

	b.mu.Lock()
	b.byLang[lang] = catalog
	b.mu.Unlock()

	b.logger.Debug("Каталог переводов загружен",
		slog.String("lang", lang),
		slog.Int("keys", len(catalog)),
	)
	return nil
}

// lookup ищет ключ в каталоге языка, затем в резервном.
func (b *Bundle) lookup(lang, key string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, l := range [...]string{lang, b.fallback} {
		if msg, ok := b.byLang[l][key]; ok {
			return msg, true
		}
	}
	return "", false
}

// Translate возвращает перевод; неизвестный ключ возвращается как есть.
func (b *Bundle) Translate(lang, key string) string {
	if msg, ok := b.lookup(lang, key); ok {
		return msg
	}
	b.logger.Debug("Перевод не найден", slog.String("lang", lang), slog.String("key", key))
	return key
}

// Translatef подставляет args в перевод (формат fmt).
func (b *Bundle) Translatef(lang, key string, args ...any) string {
	return sprintf(b.Translate(lang, key), args...)
}

// sprintf вызывает fmt.Sprintf через переменную: формат берётся из каталога,
// статическая printf-проверка go vet к нему неприменима.
var sprintf = func(format string, args ...any) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// active: Bundle процесса, используемый T и Tf.
var active atomic.Pointer[Bundle]

// Init создаёт Bundle процесса при первом вызове и возвращает его.
func Init(logger *slog.Logger) *Bundle {
	if b := active.Load(); b != nil {
		return b
	}
	active.CompareAndSwap(nil, NewBundle(logger))
	return active.Load()
}

type langKey struct{}

// WithLang возвращает контекст с языком запроса.
func WithLang(ctx context.Context, lang string) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// LangFromContext: язык запроса; DefaultLang, если не задан.
func LangFromContext(ctx context.Context) string {
	if lang, _ := ctx.Value(langKey{}).(string); lang != "" {
		return lang
	}
	return DefaultLang
}

// T переводит key на язык запроса.
func T(ctx context.Context, key string) string {
	b := active.Load()
	if b == nil {
		return key
	}
	return b.Translate(LangFromContext(ctx), key)
}

// Tf переводит key на язык запроса и подставляет args.
func Tf(ctx context.Context, key string, args ...any) string {
	return sprintf(T(ctx, key), args...)
}
