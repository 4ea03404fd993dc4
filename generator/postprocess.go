package generator

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxTitleRunes   = 100
	maxMetaRunes    = 160
	maxExcerptRunes = 150
	wordsPerMinute  = 200
)

var (
	titlePattern    = regexp.MustCompile(`(?m)^#\s+(.+)$`)
	emphasisPattern = regexp.MustCompile(`[#*_]`)
	headingLine     = regexp.MustCompile(`(?m)^#{1,6}\s.*(\n|$)`)
	newlines        = regexp.MustCompile(`\n+`)
	cjkPattern      = regexp.MustCompile(`[\x{4e00}-\x{9fa5}]`)
)

// FallbackTitle 은 응답에 1단계 제목이 없을 때 쓰는 제목이다.
func FallbackTitle(topicName string) string {
	return topicName + " - 新文章"
}

// ExtractTitle 은 첫 번째 `# ` 제목을 찾아 100자를 넘으면 97자 + "..." 로 자른다.
func ExtractTitle(content, topicName string) string {
	title := FallbackTitle(topicName)
	if m := titlePattern.FindStringSubmatch(content); m != nil {
		if t := strings.TrimSpace(m[1]); t != "" {
			title = t
		}
	}
	return truncateWithEllipsis(title, maxTitleRunes)
}

// MetaDescription 은 제목 줄을 제외한 첫 문단에서 마크다운 강조 기호를 지운 값이다.
func MetaDescription(content string) string {
	body := content
	if loc := titlePattern.FindStringIndex(body); loc != nil {
		body = body[:loc[0]] + body[loc[1]:]
	}
	body = strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))
	first := strings.SplitN(body, "\n\n", 2)[0]
	desc := strings.TrimSpace(emphasisPattern.ReplaceAllString(first, ""))
	return truncateWithEllipsis(desc, maxMetaRunes)
}

// CountWords 는 CJK 문자는 한 글자씩, 나머지는 공백 기준 토큰으로 센다.
// "你好 hello world" → 4
func CountWords(text string) int {
	cjk := len(cjkPattern.FindAllStringIndex(text, -1))
	rest := cjkPattern.ReplaceAllString(text, "")
	return cjk + len(strings.Fields(rest))
}

// Excerpt 는 제목 줄과 굵게 표시를 제거하고 한 줄로 이어 붙인 앞 150자다.
// 잘린 경우에만 "..." 를 붙인다.
func Excerpt(content string) string {
	clean := headingLine.ReplaceAllString(strings.ReplaceAll(content, "\r\n", "\n"), "")
	clean = strings.ReplaceAll(clean, "**", "")
	clean = strings.TrimSpace(newlines.ReplaceAllString(clean, " "))
	if utf8.RuneCountInString(clean) <= maxExcerptRunes {
		return clean
	}
	return string([]rune(clean)[:maxExcerptRunes]) + "..."
}

// ReadingTime 은 분당 200 단어 기준 올림 값이다.
func ReadingTime(wordCount int) int {
	if wordCount <= 0 {
		return 0
	}
	return (wordCount + wordsPerMinute - 1) / wordsPerMinute
}

func truncateWithEllipsis(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max-3]) + "..."
}
