package feeder

import (
	"context"
	"crypto/tls"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
)

type RssFeedItem struct {
	Title       string
	Link        string
	Description string
	PublishedAt time.Time
}

// Fetcher 는 주제의 feed_url 에서 최근 헤드라인을 가져온다.
type Fetcher struct {
	parser *gofeed.Parser
}

func NewFetcher(timeout time.Duration) *Fetcher {
	fp := gofeed.NewParser()
	fp.Client = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // 인증서 체인이 불완전한 블로그 피드가 있다
		},
	}
	return &Fetcher{parser: fp}
}

// FetchRssFeeds fetches RSS/Atom items from the given URL.
// If limit is greater than 0, it returns only the first limit items.
func (f *Fetcher) FetchRssFeeds(ctx context.Context, rssURL string, limit int) ([]RssFeedItem, error) {
	feed, err := f.parser.ParseURLWithContext(rssURL, ctx)
	if err != nil {
		return nil, err
	}

	items := make([]RssFeedItem, 0, len(feed.Items))
	for _, item := range feed.Items {
		var published time.Time
		if item.PublishedParsed != nil {
			published = *item.PublishedParsed
		} else if item.UpdatedParsed != nil {
			published = *item.UpdatedParsed
		}

		items = append(items, RssFeedItem{
			Title:       strings.TrimSpace(item.Title),
			Link:        item.Link,
			Description: strings.TrimSpace(item.Description),
			PublishedAt: published,
		})
	}

	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}
