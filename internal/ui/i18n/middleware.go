package i18n

import "net/http"

// LangCookieName: cookie с явно выбранным языком (ставит POST /set-language).
const LangCookieName = "lang"

// Middleware кладёт язык запроса в контекст: cookie lang, затем Accept-Language,
// затем defaultLang (неподдерживаемый defaultLang заменяется на DefaultLang).
func Middleware(defaultLang string) func(http.Handler) http.Handler {
	if !IsSupported(defaultLang) {
		defaultLang = DefaultLang
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lang := defaultLang
			if c, err := r.Cookie(LangCookieName); err == nil && IsSupported(c.Value) {
				lang = c.Value
			} else if matched, ok := MatchLanguage(r.Header.Get("Accept-Language")); ok {
				lang = matched
			}
			next.ServeHTTP(w, r.WithContext(WithLang(r.Context(), lang)))
		})
	}
}
