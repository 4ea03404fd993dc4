package sitemap

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"autoblog/models"
)

const xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"

type URL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod,omitempty"`
	ChangeFreq string  `xml:"changefreq,omitempty"`
	Priority   float64 `xml:"priority"`
}

type URLSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []URL    `xml:"url"`
}

// Build 는 홈, 발행 글, /about, /categories 항목으로 sitemap XML 을 만든다.
// hostname 은 스킴을 포함한 절대 주소이며 끝의 "/" 는 제거된다.
func Build(hostname string, posts []models.Post) ([]byte, int, error) {
	base := strings.TrimRight(hostname, "/")
	set := URLSet{Xmlns: xmlns}

	set.URLs = append(set.URLs, URL{Loc: base + "/", ChangeFreq: "daily", Priority: 1.0})
	for _, p := range posts {
		u := URL{Loc: base + "/" + p.Slug, ChangeFreq: "weekly", Priority: 0.8}
		if !p.UpdatedAt.IsZero() {
			u.LastMod = p.UpdatedAt.UTC().Format(time.RFC3339)
		}
		set.URLs = append(set.URLs, u)
	}
	set.URLs = append(set.URLs,
		URL{Loc: base + "/about", ChangeFreq: "monthly", Priority: 0.5},
		URL{Loc: base + "/categories", ChangeFreq: "weekly", Priority: 0.7},
	)

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(set); err != nil {
		return nil, 0, fmt.Errorf("encode sitemap: %w", err)
	}
	return buf.Bytes(), len(set.URLs), nil
}

// Robots 는 sitemap 위치를 알려주는 robots.txt 본문이다.
func Robots(hostname string, sitemapEnabled bool) string {
	var b strings.Builder
	b.WriteString("User-agent: *\nAllow: /\nDisallow: /api/\nDisallow: /admin\n")
	if sitemapEnabled {
		fmt.Fprintf(&b, "\nSitemap: %s/sitemap.xml\n", strings.TrimRight(hostname, "/"))
	}
	return b.String()
}
