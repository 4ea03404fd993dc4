package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/models"
	"autoblog/repositories"
)

func TestTopicCreate(t *testing.T) {
	svc := NewTopicService(newFakeTopics(), newFakePosts())
	owner := primitive.NewObjectID()
	ctx := context.Background()

	tp, err := svc.Create(ctx, owner, CreateTopicInput{
		Name:     " Go concurrency ",
		Keywords: []string{"goroutine", "channel", "goroutine", " "},
		Priority: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, "Go concurrency", tp.Name)
	assert.Equal(t, models.TopicActive, tp.Status)
	assert.Equal(t, []string{"goroutine", "channel"}, tp.Keywords)
	assert.Equal(t, []string{}, tp.Categories)
	assert.EqualValues(t, 0, tp.PostsGenerated)

	_, err = svc.Create(ctx, owner, CreateTopicInput{Name: "Go concurrency"})
	assert.ErrorIs(t, err, ErrTopicExists)

	_, err = svc.Create(ctx, primitive.NewObjectID(), CreateTopicInput{Name: "Go concurrency"})
	assert.NoError(t, err)

	_, err = svc.Create(ctx, owner, CreateTopicInput{Name: "  "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, owner, CreateTopicInput{Name: "x", Status: "paused"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTopicUpdate(t *testing.T) {
	topics := newFakeTopics()
	svc := NewTopicService(topics, newFakePosts())
	owner := primitive.NewObjectID()
	ctx := context.Background()
	tp := topics.add(owner, "rust", 0, 1, models.TopicActive)

	status := "inactive"
	prio := 9
	got, err := svc.Update(ctx, owner, tp.ID, UpdateTopicInput{Status: &status, Priority: &prio})
	require.NoError(t, err)
	assert.Equal(t, models.TopicInactive, got.Status)
	assert.Equal(t, 9, got.Priority)

	_, err = svc.Update(ctx, primitive.NewObjectID(), tp.ID, UpdateTopicInput{Priority: &prio})
	assert.ErrorIs(t, err, ErrTopicNotFound)

	bad := "unknown"
	_, err = svc.Update(ctx, owner, tp.ID, UpdateTopicInput{Status: &bad})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTopicDeleteDetachesPosts(t *testing.T) {
	topics := newFakeTopics()
	posts := newFakePosts()
	svc := NewTopicService(topics, posts)
	owner := primitive.NewObjectID()
	ctx := context.Background()
	tp := topics.add(owner, "k8s", 2, 1, models.TopicActive)

	tid := tp.ID
	require.NoError(t, posts.Insert(ctx, &models.Post{OwnerID: owner, TopicID: &tid, Slug: "a", Status: models.PostPublished}))

	require.NoError(t, svc.Delete(ctx, owner, tp.ID))
	_, err := svc.Get(ctx, owner, tp.ID)
	assert.ErrorIs(t, err, ErrTopicNotFound)

	all := posts.all()
	require.Len(t, all, 1)
	assert.Nil(t, all[0].TopicID)

	assert.ErrorIs(t, svc.Delete(ctx, owner, tp.ID), ErrTopicNotFound)
}

func TestTopicListRejectsUnknownStatus(t *testing.T) {
	svc := NewTopicService(newFakeTopics(), newFakePosts())
	_, _, err := svc.List(context.Background(), repositories.TopicQuery{OwnerID: primitive.NewObjectID(), Status: "weird"})
	assert.ErrorIs(t, err, ErrValidation)
}
