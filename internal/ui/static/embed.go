// Пакет static: CSS и JS страницы документов, встроенные в бинарник.
package static

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed css/*.css js/*.js
var content embed.FS

// htmxFile: сборка htmx, положенная в js/ при сборке образа.
const htmxFile = "js/htmx.min.js"

// HTMXPath возвращает URL встроенной сборки htmx или "", если её нет в бинарнике.
func HTMXPath() string {
	if _, err := fs.Stat(content, htmxFile); err != nil {
		return ""
	}
	return "/static/" + htmxFile
}

// FileSystem: содержимое для http.FileServer под префиксом /static/.
func FileSystem() http.FileSystem {
	return http.FS(content)
}
