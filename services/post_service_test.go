package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/events"
	"autoblog/models"
)

type fakeIndex struct {
	mu      sync.Mutex
	indexed map[primitive.ObjectID]string
}

func (f *fakeIndex) IndexPost(p *models.Post) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.indexed == nil {
		f.indexed = map[primitive.ObjectID]string{}
	}
	f.indexed[p.ID] = p.Title
	return nil
}

func (f *fakeIndex) Delete(id primitive.ObjectID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.indexed, id)
	return nil
}

func newPostFixture() (*PostService, *fakePosts, *fakeEvents, *fakeIndex) {
	posts := newFakePosts()
	ev := &fakeEvents{}
	idx := &fakeIndex{}
	return NewPostService(posts, ev, idx, nil), posts, ev, idx
}

func TestPostCreateComputesDerivedFields(t *testing.T) {
	svc, _, ev, idx := newPostFixture()
	owner := primitive.NewObjectID()

	p, err := svc.Create(context.Background(), owner, CreatePostInput{
		Title:      "  Hello World  ",
		Content:    "# Hello World\n\nFirst paragraph of the post.\n\nSecond paragraph.",
		Categories: []string{"go", " go ", ""},
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello World", p.Title)
	assert.Equal(t, models.PostDraft, p.Status)
	assert.Nil(t, p.PublishedAt)
	assert.NotEmpty(t, p.Slug)
	assert.Equal(t, []string{"go"}, p.Categories)
	assert.Equal(t, []string{}, p.Keywords)
	assert.Positive(t, p.WordCount)
	assert.Equal(t, 1, p.ReadingTime)
	assert.NotEmpty(t, p.Excerpt)
	assert.Equal(t, "Hello World", p.MetaTitle)
	assert.Equal(t, []events.EventType{events.PostCreated}, ev.postTypes())
	assert.Empty(t, idx.indexed)
}

func TestPostCreateValidation(t *testing.T) {
	svc, _, _, _ := newPostFixture()
	owner := primitive.NewObjectID()

	cases := []CreatePostInput{
		{Title: "", Content: "body"},
		{Title: "title", Content: "  "},
		{Title: "title", Content: "body", Status: "archived"},
		{Title: "title", Content: "body", TopicID: "not-hex"},
	}
	for _, in := range cases {
		_, err := svc.Create(context.Background(), owner, in)
		assert.ErrorIs(t, err, ErrValidation)
	}
}

func TestPostLifecycle(t *testing.T) {
	svc, _, ev, idx := newPostFixture()
	owner := primitive.NewObjectID()
	ctx := context.Background()

	p, err := svc.Create(ctx, owner, CreatePostInput{Title: "Lifecycle", Content: "some body text"})
	require.NoError(t, err)

	published, err := svc.Publish(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostPublished, published.Status)
	require.NotNil(t, published.PublishedAt)
	assert.Contains(t, idx.indexed, p.ID)

	// 두 번째 발행은 published_at 을 바꾸지 않는다.
	again, err := svc.Publish(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, *published.PublishedAt, *again.PublishedAt)

	draft, err := svc.Unpublish(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostDraft, draft.Status)
	assert.Nil(t, draft.PublishedAt)
	assert.NotContains(t, idx.indexed, p.ID)

	require.NoError(t, svc.Delete(ctx, owner, p.ID))
	_, err = svc.Get(ctx, owner, p.ID)
	assert.ErrorIs(t, err, ErrPostNotFound)

	assert.Equal(t, []events.EventType{
		events.PostCreated, events.PostPublished, events.PostUnpublished, events.PostDeleted,
	}, ev.postTypes())
}

func TestPostArchiveKeepsPublishedAt(t *testing.T) {
	svc, _, _, _ := newPostFixture()
	owner := primitive.NewObjectID()
	ctx := context.Background()

	p, err := svc.Create(ctx, owner, CreatePostInput{Title: "Archive me", Content: "body", Status: "published"})
	require.NoError(t, err)
	require.NotNil(t, p.PublishedAt)

	archived, err := svc.Archive(ctx, owner, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PostArchived, archived.Status)
	assert.NotNil(t, archived.PublishedAt)
}

func TestPostUpdateRecomputesStats(t *testing.T) {
	svc, _, _, idx := newPostFixture()
	owner := primitive.NewObjectID()
	ctx := context.Background()

	p, err := svc.Create(ctx, owner, CreatePostInput{Title: "Stats", Content: "short", Status: "published"})
	require.NoError(t, err)

	long := ""
	for i := 0; i < 450; i++ {
		long += "word "
	}
	title := "Stats v2"
	updated, err := svc.Update(ctx, owner, p.ID, UpdatePostInput{Title: &title, Content: &long})
	require.NoError(t, err)
	assert.Equal(t, 450, updated.WordCount)
	assert.Equal(t, 3, updated.ReadingTime)
	assert.Equal(t, "Stats v2", idx.indexed[p.ID])

	empty := " "
	_, err = svc.Update(ctx, owner, p.ID, UpdatePostInput{Title: &empty})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestPostInsertRetriesSlugCollision(t *testing.T) {
	posts := newFakePosts()
	svc := NewPostService(posts, nil, nil, fixedSlugs("taken"))
	owner := primitive.NewObjectID()
	ctx := context.Background()

	first := &models.Post{OwnerID: owner, Title: "A", Slug: "taken", Status: models.PostDraft}
	require.NoError(t, svc.Insert(ctx, first))

	second := &models.Post{OwnerID: owner, Title: "A", Slug: "taken", Status: models.PostDraft}
	err := svc.Insert(ctx, second)
	assert.ErrorIs(t, err, ErrSlugExhausted)
	assert.Len(t, posts.all(), 1)

	// 다른 테넌트는 같은 slug 를 쓸 수 있다.
	other := &models.Post{OwnerID: primitive.NewObjectID(), Title: "A", Slug: "taken", Status: models.PostDraft}
	assert.NoError(t, svc.Insert(ctx, other))
}

func TestPostInsertRegeneratesSlugOnCollision(t *testing.T) {
	svc, posts, _, _ := newPostFixture()
	owner := primitive.NewObjectID()
	ctx := context.Background()

	a := &models.Post{OwnerID: owner, Title: "Same", Slug: "same", Status: models.PostDraft}
	b := &models.Post{OwnerID: owner, Title: "Same", Slug: "same", Status: models.PostDraft}
	require.NoError(t, svc.Insert(ctx, a))
	require.NoError(t, svc.Insert(ctx, b))
	assert.Equal(t, "same", a.Slug)
	assert.NotEqual(t, a.Slug, b.Slug)
	assert.Len(t, posts.all(), 2)
}

func TestPostGetBySlugHidesDrafts(t *testing.T) {
	svc, _, _, _ := newPostFixture()
	owner := primitive.NewObjectID()
	ctx := context.Background()

	p, err := svc.Create(ctx, owner, CreatePostInput{Title: "Draft", Content: "body"})
	require.NoError(t, err)

	_, err = svc.GetBySlug(ctx, owner, p.Slug, false)
	assert.ErrorIs(t, err, ErrPostNotFound)

	got, err := svc.GetBySlug(ctx, owner, p.Slug, true)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = svc.GetBySlug(ctx, primitive.NewObjectID(), p.Slug, true)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestPostRecordView(t *testing.T) {
	svc, posts, _, _ := newPostFixture()
	owner := primitive.NewObjectID()
	p, err := svc.Create(context.Background(), owner, CreatePostInput{Title: "Views", Content: "body"})
	require.NoError(t, err)

	svc.RecordView(context.Background(), p.ID)
	svc.RecordView(context.Background(), p.ID)
	assert.EqualValues(t, 2, posts.all()[0].ViewCount)
}
