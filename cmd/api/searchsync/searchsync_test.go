package searchsync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/events"
	"autoblog/models"
	"autoblog/repositories"
	"autoblog/search"
)

type fakePosts struct {
	byID      map[primitive.ObjectID]*models.Post
	published map[primitive.ObjectID][]models.Post
	err       error
}

func (f *fakePosts) FindByID(_ context.Context, _, id primitive.ObjectID) (*models.Post, error) {
	if f.err != nil {
		return nil, f.err
	}
	p, ok := f.byID[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return p, nil
}

func (f *fakePosts) ListPublished(_ context.Context, ownerID primitive.ObjectID, _ int) ([]models.Post, error) {
	return f.published[ownerID], nil
}

type fakeTenants []models.User

func (f fakeTenants) ListActive(context.Context) ([]models.User, error) { return f, nil }

func newIndex(t *testing.T) *search.Index {
	t.Helper()
	idx, err := search.NewMemOnly()
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func published(owner primitive.ObjectID, title string) *models.Post {
	return &models.Post{ID: primitive.NewObjectID(), OwnerID: owner, Title: title, Slug: title, Content: title + " body", Status: models.PostPublished}
}

func TestHandleIndexesForeignEvents(t *testing.T) {
	idx := newIndex(t)
	owner := primitive.NewObjectID()
	p := published(owner, "goroutines")
	s := New(idx, &fakePosts{byID: map[primitive.ObjectID]*models.Post{p.ID: p}}, "api")

	err := s.Handle(context.Background(), events.PostEvent{
		BaseEvent: events.BaseEvent{Type: events.PostCreated, Source: "scheduler"},
		OwnerID:   owner,
		PostID:    p.ID,
	})
	require.NoError(t, err)

	res, total, err := idx.Search(owner, "goroutines", 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, p.ID.Hex(), res[0].PostID)
}

func TestHandleSkipsOwnEvents(t *testing.T) {
	idx := newIndex(t)
	owner := primitive.NewObjectID()
	p := published(owner, "channels")
	s := New(idx, &fakePosts{byID: map[primitive.ObjectID]*models.Post{p.ID: p}}, "api")

	require.NoError(t, s.Handle(context.Background(), events.PostEvent{
		BaseEvent: events.BaseEvent{Type: events.PostPublished, Source: "api"},
		OwnerID:   owner,
		PostID:    p.ID,
	}))
	n, err := idx.Count()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestHandleRemovesMissingOrDeletedPosts(t *testing.T) {
	idx := newIndex(t)
	owner := primitive.NewObjectID()
	p := published(owner, "select")
	require.NoError(t, idx.IndexPost(p))

	s := New(idx, &fakePosts{byID: map[primitive.ObjectID]*models.Post{}}, "api")
	require.NoError(t, s.Handle(context.Background(), events.PostEvent{
		BaseEvent: events.BaseEvent{Type: events.PostUnpublished, Source: "scheduler"},
		OwnerID:   owner,
		PostID:    p.ID,
	}))
	n, _ := idx.Count()
	assert.Zero(t, n)

	require.NoError(t, idx.IndexPost(p))
	require.NoError(t, s.Handle(context.Background(), events.PostEvent{
		BaseEvent: events.BaseEvent{Type: events.PostDeleted, Source: "scheduler"},
		OwnerID:   owner,
		PostID:    p.ID,
	}))
	n, _ = idx.Count()
	assert.Zero(t, n)
}

func TestHandleReturnsStoreErrors(t *testing.T) {
	s := New(newIndex(t), &fakePosts{err: errors.New("mongo down")}, "api")
	err := s.Handle(context.Background(), events.PostEvent{
		BaseEvent: events.BaseEvent{Type: events.PostCreated, Source: "scheduler"},
		PostID:    primitive.NewObjectID(),
	})
	assert.Error(t, err)
}

func TestBackfillOnlyWhenEmpty(t *testing.T) {
	idx := newIndex(t)
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	posts := &fakePosts{published: map[primitive.ObjectID][]models.Post{
		a: {*published(a, "one"), *published(a, "two")},
		b: {*published(b, "three")},
	}}
	s := New(idx, posts, "api")
	tenants := fakeTenants{{ID: a}, {ID: b}}

	n, err := s.Backfill(context.Background(), tenants)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = s.Backfill(context.Background(), tenants)
	require.NoError(t, err)
	assert.Zero(t, n)
}
