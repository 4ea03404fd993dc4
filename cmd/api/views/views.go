// Package views 는 공개 블로그 HTML 템플릿을 바이너리에 포함한다.
package views

import (
	"embed"
	"html/template"
	"strings"
	"time"
)

//go:embed templates/*.html
var files embed.FS

func Funcs() template.FuncMap {
	return template.FuncMap{
		"join": strings.Join,
		"date": func(t *time.Time) string {
			if t == nil {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"year": func() int { return time.Now().Year() },
	}
}

// Load 는 파일 이름(index.html, post.html ...)으로 실행할 수 있는 템플릿 묶음을 만든다.
func Load() (*template.Template, error) {
	return template.New("").Funcs(Funcs()).ParseFS(files, "templates/*.html")
}
