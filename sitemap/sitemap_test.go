package sitemap

import (
	"encoding/xml"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoblog/models"
)

func TestBuild(t *testing.T) {
	updated := time.Date(2025, 3, 1, 12, 0, 0, 0, time.FixedZone("CST", 8*3600))
	posts := []models.Post{
		{Slug: "go-tips-123456abc", UpdatedAt: updated},
		{Slug: "rust-intro-654321xyz"},
	}

	data, n, err := Build("https://foo.bertyblog.link/", posts)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	var set URLSet
	require.NoError(t, xml.Unmarshal(data, &set))
	require.Len(t, set.URLs, 5)

	assert.Equal(t, "https://foo.bertyblog.link/", set.URLs[0].Loc)
	assert.Equal(t, 1.0, set.URLs[0].Priority)
	assert.Equal(t, "https://foo.bertyblog.link/go-tips-123456abc", set.URLs[1].Loc)
	assert.Equal(t, "2025-03-01T04:00:00Z", set.URLs[1].LastMod)
	assert.Equal(t, 0.8, set.URLs[1].Priority)
	assert.Empty(t, set.URLs[2].LastMod)
	assert.Equal(t, "https://foo.bertyblog.link/about", set.URLs[3].Loc)
	assert.Equal(t, "https://foo.bertyblog.link/categories", set.URLs[4].Loc)
	assert.Equal(t, "weekly", set.URLs[4].ChangeFreq)
	assert.Contains(t, string(data), `xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"`)
}

func TestRobots(t *testing.T) {
	assert.Contains(t, Robots("https://a.example.com", true), "Sitemap: https://a.example.com/sitemap.xml")
	assert.NotContains(t, Robots("https://a.example.com", false), "Sitemap:")
}
