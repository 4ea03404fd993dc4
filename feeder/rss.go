package feeder

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"time"
)

// Channel 은 블로그 하나의 RSS 2.0 출력이다.
type Channel struct {
	Title       string
	Link        string
	Description string
	Language    string
	Items       []RssFeedItem
}

type rss struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	Language      string    `xml:"language,omitempty"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string `xml:"title"`
	Link        string `xml:"link"`
	GUID        string `xml:"guid"`
	Description string `xml:"description"`
	PubDate     string `xml:"pubDate,omitempty"`
}

// WriteRSS 는 채널을 RSS 2.0 XML 로 직렬화한다. lastBuildDate 는 가장 최근 항목의 시각이다.
func WriteRSS(ch Channel) ([]byte, error) {
	out := rss{
		Version: "2.0",
		Channel: rssChannel{
			Title:       ch.Title,
			Link:        ch.Link,
			Description: ch.Description,
			Language:    ch.Language,
			Items:       make([]rssItem, 0, len(ch.Items)),
		},
	}
	var latest time.Time
	for _, it := range ch.Items {
		item := rssItem{Title: it.Title, Link: it.Link, GUID: it.Link, Description: it.Description}
		if !it.PublishedAt.IsZero() {
			item.PubDate = it.PublishedAt.UTC().Format(time.RFC1123Z)
			if it.PublishedAt.After(latest) {
				latest = it.PublishedAt
			}
		}
		out.Channel.Items = append(out.Channel.Items, item)
	}
	if !latest.IsZero() {
		out.Channel.LastBuildDate = latest.UTC().Format(time.RFC1123Z)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	enc.Indent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("encode rss: %w", err)
	}
	return buf.Bytes(), nil
}
