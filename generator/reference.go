package generator

import (
	"context"
	"net/http"

	"autoblog/config"
	"autoblog/feeder"
	"autoblog/logger"
	"autoblog/models"
	"autoblog/parser"
	"autoblog/renderer"
)

const maxReferencePages = 3

// Reference 는 프롬프트에 덧붙이는 참고 자료 한 건이다.
type Reference struct {
	Title string
	URL   string
	Text  string
}

// ReferenceSource 는 주제별 참고 자료를 모은다. 실패는 생성 실패로 이어지지 않는다.
type ReferenceSource interface {
	Collect(ctx context.Context, topic *models.Topic) []Reference
}

// ReferenceCollector 는 feed_url 의 최신 헤드라인과 reference_urls 본문 요약을 가져온다.
type ReferenceCollector struct {
	feeds     *feeder.Fetcher
	renderer  *renderer.Renderer
	client    *http.Client
	feedItems int
	maxChars  int
}

func NewReferenceCollector(cfg config.ReferenceConfig) *ReferenceCollector {
	c := &ReferenceCollector{
		feeds:     feeder.NewFetcher(cfg.Timeout),
		client:    &http.Client{Timeout: cfg.Timeout},
		feedItems: cfg.FeedItems,
		maxChars:  cfg.MaxChars,
	}
	if cfg.RenderJS {
		c.renderer = renderer.New(cfg.ChromePath, cfg.Timeout)
	}
	return c
}

func (c *ReferenceCollector) Collect(ctx context.Context, topic *models.Topic) []Reference {
	var refs []Reference

	if topic.FeedURL != "" {
		items, err := c.feeds.FetchRssFeeds(ctx, topic.FeedURL, c.feedItems)
		if err != nil {
			logger.WarnWithFields("reference feed fetch failed", logger.Fields{
				"topic_id": topic.ID.Hex(), "feed_url": topic.FeedURL, "error": err.Error(),
			})
		}
		for _, item := range items {
			refs = append(refs, Reference{
				Title: item.Title,
				URL:   item.Link,
				Text:  parser.Truncate(item.Description, 200),
			})
		}
	}

	for i, url := range topic.ReferenceURLs {
		if i >= maxReferencePages {
			break
		}
		ref, err := c.page(ctx, url)
		if err != nil {
			logger.WarnWithFields("reference page fetch failed", logger.Fields{
				"topic_id": topic.ID.Hex(), "url": url, "error": err.Error(),
			})
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}

func (c *ReferenceCollector) page(ctx context.Context, url string) (Reference, error) {
	var (
		htmlStr string
		err     error
	)
	if c.renderer != nil {
		htmlStr, err = c.renderer.RenderHTML(ctx, url)
	} else {
		htmlStr, err = parser.FetchHTML(ctx, c.client, url)
	}
	if err != nil {
		return Reference{}, err
	}

	article, err := parser.Extract(htmlStr)
	if err != nil {
		return Reference{}, err
	}
	title := article.Title
	if title == "" {
		title = url
	}
	return Reference{Title: title, URL: url, Text: parser.Truncate(article.PlainTextContent, c.maxChars)}, nil
}
