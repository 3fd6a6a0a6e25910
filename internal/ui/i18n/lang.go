package i18n

import (
	"slices"
	"time"

	"golang.org/x/text/language"
)

// DefaultLang: язык, если другой определить не удалось.
const DefaultLang = "en"

// SupportedLanguages: языки интерфейса. Первый выбирается, если совпадений нет.
var SupportedLanguages = []language.Tag{
	language.English,
	language.German,
}

var (
	supportedCodes = func() []string {
		codes := make([]string, len(SupportedLanguages))
		for i, tag := range SupportedLanguages {
			codes[i] = tag.String()
		}
		return codes
	}()

	matcher = language.NewMatcher(SupportedLanguages)
)

// IsSupported сообщает, есть ли каталог для кода языка ("en", "de").
func IsSupported(lang string) bool {
	return slices.Contains(supportedCodes, lang)
}

// MatchLanguage выбирает язык интерфейса по заголовку Accept-Language.
// Региональные варианты сводятся к базовому языку (de-AT → de).
// ok == false, если заголовок не разобран или ни один язык не поддерживается.
func MatchLanguage(acceptLanguage string) (lang string, ok bool) {
	prefs, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(prefs) == 0 {
		return "", false
	}
	_, idx, confidence := matcher.Match(prefs...)
	if confidence == language.No {
		return "", false
	}
	return supportedCodes[idx], true
}

// dateTimeLayouts: формат даты загрузки по языку, как его показывает браузер
// для toLocaleString (en-US: 11/5/2024, 2:07:09 PM; de-DE: 5.11.2024, 14:07:09).
var dateTimeLayouts = map[string]string{
	"en": "1/2/2006, 3:04:05 PM",
	"de": "2.1.2006, 15:04:05",
}

// FormatDateTime форматирует момент в зоне, с которой он пришёл от backend.
// Нулевое время выводится прочерком.
func FormatDateTime(lang string, t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	layout, ok := dateTimeLayouts[lang]
	if !ok {
		layout = dateTimeLayouts[DefaultLang]
	}
	return t.Format(layout)
}
