package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/advancedlogic/GoOse/pkg/goose"
	"github.com/go-shiori/go-readability"
	"github.com/markusmobius/go-trafilatura"
	"golang.org/x/net/html"
)

var ErrNoContent = errors.New("no article content extracted")

// 본문으로 인정할 최소 길이 (rune)
const minArticleRunes = 80

type ParsedArticle struct {
	Title            string
	PlainTextContent string
	TopImage         string
}

// FetchHTML 은 서버 렌더링 페이지의 원본 HTML 을 가져온다.
func FetchHTML(ctx context.Context, client *http.Client, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "autoblog-reference-fetcher/1.0")
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 5<<20))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Extract 는 readability → trafilatura → goose → 단순 텍스트 순으로 본문을 추출한다.
func Extract(htmlStr string) (*ParsedArticle, error) {
	extractors := []func(string) (*ParsedArticle, error){
		ParseHtmlWithReadability,
		ParseHtmlWithTrafilatura,
		ParseHtmlWithGoose,
	}
	for _, extract := range extractors {
		article, err := extract(htmlStr)
		if err == nil && article != nil && utf8.RuneCountInString(article.PlainTextContent) >= minArticleRunes {
			return article, nil
		}
	}

	text, err := PlainText(htmlStr)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoContent
	}
	return &ParsedArticle{PlainTextContent: text}, nil
}

func ParseHtmlWithReadability(htmlStr string) (*ParsedArticle, error) {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return nil, err
	}

	article, err := readability.FromDocument(doc, nil)
	if err != nil {
		return nil, err
	}
	return &ParsedArticle{
		Title:            article.Title,
		PlainTextContent: strings.TrimSpace(article.TextContent),
		TopImage:         article.Image,
	}, nil
}

func ParseHtmlWithTrafilatura(htmlStr string) (*ParsedArticle, error) {
	article, err := trafilatura.Extract(strings.NewReader(htmlStr), trafilatura.Options{})
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, ErrNoContent
	}
	return &ParsedArticle{
		Title:            article.Metadata.Title,
		PlainTextContent: strings.TrimSpace(article.ContentText),
		TopImage:         article.Metadata.Image,
	}, nil
}

func ParseHtmlWithGoose(htmlStr string) (*ParsedArticle, error) {
	g := goose.New()
	article, err := g.ExtractFromRawHTML(htmlStr, "")
	if err != nil {
		return nil, fmt.Errorf("goose extract: %w", err)
	}
	return &ParsedArticle{
		Title:            article.Title,
		PlainTextContent: strings.TrimSpace(article.CleanedText),
		TopImage:         article.TopImage,
	}, nil
}

// PlainText 는 script/style 을 제외한 모든 텍스트 노드를 줄 단위로 이어 붙인다.
func PlainText(htmlStr string) (string, error) {
	doc, err := html.Parse(strings.NewReader(htmlStr))
	if err != nil {
		return "", err
	}

	var b strings.Builder
	var f func(*html.Node)
	f = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			f(c)
		}
	}
	f(doc)
	return strings.TrimSpace(b.String()), nil
}

// Truncate 는 최대 maxRunes 까지 자른다.
func Truncate(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	return string([]rune(s)[:maxRunes])
}
