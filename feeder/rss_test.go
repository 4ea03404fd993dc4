package feeder_test

import (
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoblog/feeder"
)

func TestWriteRSSIsReadableByGofeed(t *testing.T) {
	published := time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)
	out, err := feeder.WriteRSS(feeder.Channel{
		Title:       "Tom's Blog",
		Link:        "https://tom.example.com/",
		Description: "notes & drafts",
		Language:    "en",
		Items: []feeder.RssFeedItem{
			{Title: "First <post>", Link: "https://tom.example.com/first", Description: "hello", PublishedAt: published},
			{Title: "Second", Link: "https://tom.example.com/second"},
		},
	})
	require.NoError(t, err)

	feed, err := gofeed.NewParser().ParseString(string(out))
	require.NoError(t, err)
	assert.Equal(t, "Tom's Blog", feed.Title)
	assert.Equal(t, "notes & drafts", feed.Description)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, "First <post>", feed.Items[0].Title)
	assert.Equal(t, "https://tom.example.com/first", feed.Items[0].Link)
	require.NotNil(t, feed.Items[0].PublishedParsed)
	assert.True(t, published.Equal(*feed.Items[0].PublishedParsed))
	assert.Nil(t, feed.Items[1].PublishedParsed)
}

func TestWriteRSSEmpty(t *testing.T) {
	out, err := feeder.WriteRSS(feeder.Channel{Title: "Empty", Link: "https://e.example.com/"})
	require.NoError(t, err)
	assert.Contains(t, string(out), `<rss version="2.0">`)
	assert.NotContains(t, string(out), "<item>")
}
