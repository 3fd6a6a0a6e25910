// language.go: обработчик переключения языка UI.
package handlers

import (
	"net/http"
	"net/url"
	"time"

	"github.com/bigkaa/paperless-ui/internal/ui/i18n"
)

// HandleSetLanguage обрабатывает POST /set-language.
// Устанавливает cookie "lang" и перенаправляет обратно.
// Параметр lang: "en" или "de" (из формы или query).
func HandleSetLanguage(w http.ResponseWriter, r *http.Request) {
	lang := r.FormValue("lang")
	if !i18n.IsSupported(lang) {
		lang = i18n.DefaultLang
	}

	// Устанавливаем cookie "lang" на 1 год
	http.SetCookie(w, &http.Cookie{
		Name:     i18n.LangCookieName,
		Value:    lang,
		Path:     "/",
		MaxAge:   365 * 24 * 60 * 60,
		HttpOnly: false,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
	})

	http.Redirect(w, r, sameOriginReferer(r), http.StatusSeeOther)
}

// sameOriginReferer возвращает путь из Referer, если он ведёт на этот же хост.
// Иначе /documents.
func sameOriginReferer(r *http.Request) string {
	const fallback = "/documents"

	referer := r.Header.Get("Referer")
	if referer == "" {
		return fallback
	}
	u, err := url.Parse(referer)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return fallback
	}
	if u.Path == "" {
		return fallback
	}
	return u.RequestURI()
}
