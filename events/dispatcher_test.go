package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/eventbus"
)

type published struct {
	topic string
	event eventbus.Event
}

type recordingBus struct {
	eventbus.NopEventBus
	out []published
	err error
}

func (b *recordingBus) Publish(_ context.Context, topic string, e eventbus.Event) error {
	if b.err != nil {
		return b.err
	}
	b.out = append(b.out, published{topic: topic, event: e})
	return nil
}

func TestPublishPostUsesOwnerKey(t *testing.T) {
	bus := &recordingBus{}
	d := NewDispatcher(bus, "api")
	owner, post := primitive.NewObjectID(), primitive.NewObjectID()

	require.NoError(t, d.PublishPost(context.Background(), PostPublished, owner, post, "hello-world", "published"))
	require.Len(t, bus.out, 1)

	got := bus.out[0]
	assert.Equal(t, eventbus.TopicPostEvents.Base(), got.topic)
	assert.Equal(t, owner.Hex(), got.event.Key)

	typ, err := PeekType(got.event)
	require.NoError(t, err)
	assert.Equal(t, PostPublished, typ)

	e, err := eventbus.DecodeJSON[PostEvent](got.event)
	require.NoError(t, err)
	assert.Equal(t, got.event.ID, e.ID)
	assert.Equal(t, "api", e.Source)
	assert.Equal(t, post, e.PostID)
	assert.Equal(t, "hello-world", e.Slug)
	assert.False(t, e.Timestamp.IsZero())
}

func TestPublishBatchPicksTypeFromError(t *testing.T) {
	bus := &recordingBus{}
	d := NewDispatcher(bus, "scheduler")

	require.NoError(t, d.PublishBatch(context.Background(), BatchEvent{RequestedCount: 2, SuccessCount: 2}))
	require.NoError(t, d.PublishBatch(context.Background(), BatchEvent{RequestedCount: 2, Error: "no active topics"}))

	require.Len(t, bus.out, 2)
	for i, want := range []EventType{BatchCompleted, BatchFailed} {
		assert.Equal(t, eventbus.TopicGenerationEvents.Base(), bus.out[i].topic)
		typ, err := PeekType(bus.out[i].event)
		require.NoError(t, err)
		assert.Equal(t, want, typ)
	}
}

func TestPublishDomain(t *testing.T) {
	bus := &recordingBus{}
	d := NewDispatcher(bus, "api")
	owner := primitive.NewObjectID()

	require.NoError(t, d.PublishDomain(context.Background(), DomainChanged, owner, []string{"old.example.com", "new.example.com"}, "pending"))
	require.Len(t, bus.out, 1)
	assert.Equal(t, eventbus.TopicDomainEvents.Base(), bus.out[0].topic)

	e, err := eventbus.DecodeJSON[DomainEvent](bus.out[0].event)
	require.NoError(t, err)
	assert.Equal(t, []string{"old.example.com", "new.example.com"}, e.Hosts)
	assert.Equal(t, "pending", e.DomainStatus)
}

func TestPublishPropagatesBusErrors(t *testing.T) {
	d := NewDispatcher(&recordingBus{err: errors.New("broker down")}, "api")
	err := d.PublishPost(context.Background(), PostCreated, primitive.NewObjectID(), primitive.NewObjectID(), "x", "draft")
	assert.ErrorContains(t, err, "broker down")
}

func TestPeekTypeRejectsGarbage(t *testing.T) {
	_, err := PeekType(eventbus.Event{Payload: json.RawMessage(`not-json`)})
	assert.Error(t, err)
}
