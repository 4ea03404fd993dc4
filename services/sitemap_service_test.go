package services

import (
	"context"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/config"
	"autoblog/models"
	"autoblog/search"
)

type blogFixture struct {
	users    *fakeUsers
	posts    *fakePosts
	sitemaps *fakeSitemaps
	postSvc  *PostService
	sm       *SitemapService
	blog     *BlogService
}

func newBlogFixture(searcher Searcher) *blogFixture {
	f := &blogFixture{users: newFakeUsers(), posts: newFakePosts(), sitemaps: &fakeSitemaps{}}
	cfg := testAppConfig()
	settings := NewSettingsService(&fakeSettings{}, cfg)
	domains := NewDomainService(f.users, cfg.Domain, config.EnvProduction, WithResolver(&stubResolver{}))
	f.postSvc = NewPostService(f.posts, nil, nil, nil)
	f.sm = NewSitemapService(f.sitemaps, f.posts, f.users, settings, domains)
	f.blog = NewBlogService(f.postSvc, f.sm, searcher)
	return f
}

func (f *blogFixture) publish(t *testing.T, owner primitive.ObjectID, title string, categories ...string) *models.Post {
	t.Helper()
	p, err := f.postSvc.Create(context.Background(), owner, CreatePostInput{
		Title:      title,
		Content:    "# " + title + "\n\nBody of " + title + ".\n\n## Section\n\nMore **text**.",
		Categories: categories,
		Status:     "published",
	})
	require.NoError(t, err)
	return p
}

func TestSitemapRebuild(t *testing.T) {
	f := newBlogFixture(nil)
	u := newTenant(nil)
	u.Subdomain = "alice"
	f.users.put(u)
	p := f.publish(t, u.ID, "First Post")
	_, err := f.postSvc.Create(context.Background(), u.ID, CreatePostInput{Title: "Draft", Content: "x"})
	require.NoError(t, err)

	sm, err := f.sm.RebuildFor(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://alice.blogs.example.com", sm.Hostname)
	assert.Equal(t, 4, sm.URLCount)
	assert.Contains(t, sm.XML, "https://alice.blogs.example.com/"+p.Slug)
	assert.NotContains(t, sm.XML, "/draft")

	stored, err := f.sm.Get(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, sm.XML, stored.XML)
}

func TestSitemapUsesVerifiedCustomDomain(t *testing.T) {
	f := newBlogFixture(nil)
	u := newTenant(nil)
	u.Subdomain = "alice"
	u.CustomDomain = "alice.dev"
	f.users.put(u)

	assert.Equal(t, "https://alice.dev", f.sm.BaseURL(u))
	u.DomainStatus = models.DomainPending
	assert.Equal(t, "https://alice.blogs.example.com", f.sm.BaseURL(u))
}

func TestSitemapDisabled(t *testing.T) {
	f := newBlogFixture(nil)
	u := newTenant(f.users)
	u.Settings.SEO.UseSitemap = false

	_, err := f.sm.Get(context.Background(), u)
	assert.ErrorIs(t, err, ErrSitemapDisabled)
	assert.NotContains(t, f.sm.Robots(context.Background(), u), "Sitemap:")

	u.Settings.SEO.UseSitemap = true
	assert.Contains(t, f.sm.Robots(context.Background(), u), "/sitemap.xml")
}

func TestSitemapRebuildAll(t *testing.T) {
	f := newBlogFixture(nil)
	a := newTenant(f.users)
	b := newTenant(nil)
	b.Settings.SEO.UseSitemap = false
	f.users.put(b)
	off := newTenant(nil)
	off.IsActive = false
	f.users.put(off)

	rebuilt, failed, err := f.sm.RebuildAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, rebuilt)
	assert.Zero(t, failed)
	_, err = f.sitemaps.FindByOwner(context.Background(), a.ID)
	assert.NoError(t, err)
}

func TestBlogPostPage(t *testing.T) {
	f := newBlogFixture(nil)
	u := newTenant(f.users)
	p := f.publish(t, u.ID, "Main", "go")
	f.publish(t, u.ID, "Sibling", "go")
	f.publish(t, u.ID, "Elsewhere", "rust")

	page, err := f.blog.Post(context.Background(), u, p.Slug, false)
	require.NoError(t, err)
	assert.NotContains(t, string(page.HTML), "<h1")
	assert.Contains(t, string(page.HTML), "<strong>text</strong>")
	require.Len(t, page.Related, 1)
	assert.Equal(t, "Sibling", page.Related[0].Title)

	stored, _ := f.posts.FindByID(context.Background(), u.ID, p.ID)
	assert.EqualValues(t, 1, stored.ViewCount)

	_, err = f.blog.Post(context.Background(), u, p.Slug, true)
	require.NoError(t, err)
	stored, _ = f.posts.FindByID(context.Background(), u.ID, p.ID)
	assert.EqualValues(t, 1, stored.ViewCount)

	_, err = f.blog.Post(context.Background(), newTenant(nil), p.Slug, false)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestBlogIndexFiltersByCategory(t *testing.T) {
	f := newBlogFixture(nil)
	u := newTenant(f.users)
	f.publish(t, u.ID, "One", "Go")
	f.publish(t, u.ID, "Two", "rust")

	posts, pg, total, err := f.blog.Index(context.Background(), u, "go", 1)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "One", posts[0].Title)
	assert.Equal(t, 10, pg.PageSize)

	cats, err := f.blog.Categories(context.Background(), u)
	require.NoError(t, err)
	assert.Len(t, cats, 2)
}

func TestBlogFeed(t *testing.T) {
	f := newBlogFixture(nil)
	u := newTenant(nil)
	u.Subdomain = "feedy"
	f.users.put(u)
	p := f.publish(t, u.ID, "Feed item")
	time.Sleep(time.Millisecond)
	f.publish(t, u.ID, "Newer item")

	body, err := f.blog.Feed(context.Background(), u)
	require.NoError(t, err)

	feed, err := gofeed.NewParser().ParseString(string(body))
	require.NoError(t, err)
	assert.Equal(t, u.Settings.Blog.Title, feed.Title)
	require.Len(t, feed.Items, 2)
	assert.Equal(t, "Newer item", feed.Items[0].Title)
	assert.Equal(t, "https://feedy.blogs.example.com/"+p.Slug, feed.Items[1].Link)
}

type stubSearcher struct {
	gotOwner  primitive.ObjectID
	gotOffset int
}

func (s *stubSearcher) Search(ownerID primitive.ObjectID, q string, limit, offset int) ([]search.Result, uint64, error) {
	s.gotOwner, s.gotOffset = ownerID, offset
	return []search.Result{{Title: q}}, 11, nil
}

func TestBlogSearch(t *testing.T) {
	st := &stubSearcher{}
	f := newBlogFixture(st)
	owner := primitive.NewObjectID()

	res, _, total, err := f.blog.Search(context.Background(), owner, "  goroutines ", 2)
	require.NoError(t, err)
	assert.EqualValues(t, 11, total)
	assert.Equal(t, "goroutines", res[0].Title)
	assert.Equal(t, owner, st.gotOwner)
	assert.Equal(t, 10, st.gotOffset)

	res, _, _, err = f.blog.Search(context.Background(), owner, " ", 1)
	require.NoError(t, err)
	assert.Empty(t, res)
}
