package i18n

import (
	"embed"
	"fmt"
	"log/slog"
	"path"
)

//go:embed locales/*.json
var localeFS embed.FS

// LoadFromEmbedFS загружает в bundle встроенные каталоги locales/<lang>.json
// для всех SupportedLanguages. Без любого из каталогов старт невозможен.
func LoadFromEmbedFS(bundle *Bundle, logger *slog.Logger) error {
	for _, lang := range supportedCodes {
		name := path.Join("locales", lang+".json")
		data, err := localeFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("i18n: %s: %w", name, err)
		}
		if err := bundle.LoadMessages(lang, data); err != nil {
			return err
		}
	}

	logger.Info("Переводы загружены", slog.Any("languages", supportedCodes))
	return nil
}
