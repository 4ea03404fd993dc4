package markdown

import (
	"bytes"
	"html/template"
	"regexp"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

var leadingTitle = regexp.MustCompile(`\A\s*#\s+[^\n]*\n?`)

// ToHTML 은 글 본문을 HTML 로 변환한다. 원시 HTML 은 goldmark 기본값대로 제거된다.
func ToHTML(source string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

// StripTitle 은 페이지 제목과 중복되는 본문 첫 줄의 "# 제목" 을 제거한다.
func StripTitle(source string) string {
	return leadingTitle.ReplaceAllString(source, "")
}
