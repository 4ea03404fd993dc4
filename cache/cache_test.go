package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemoryHostCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryHostCache(time.Minute)
	c.now = func() time.Time { return now }

	id := primitive.NewObjectID()
	require.NoError(t, c.Set(ctx, "foo.example.com", id))

	got, ok, err := c.Get(ctx, "foo.example.com")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id, got)

	now = now.Add(2 * time.Minute)
	_, ok, _ = c.Get(ctx, "foo.example.com")
	assert.False(t, ok, "expired entry must miss")

	require.NoError(t, c.Set(ctx, "bar.example.com", id))
	require.NoError(t, c.Invalidate(ctx, "bar.example.com"))
	_, ok, _ = c.Get(ctx, "bar.example.com")
	assert.False(t, ok)
}

func TestLocalBatchLock(t *testing.T) {
	ctx := context.Background()
	l := NewLocalBatchLock()
	owner := primitive.NewObjectID()

	release, err := l.Acquire(ctx, owner)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, owner)
	assert.ErrorIs(t, err, ErrLockHeld)

	other, err := l.Acquire(ctx, primitive.NewObjectID())
	require.NoError(t, err)
	other()

	release()
	release()
	again, err := l.Acquire(ctx, owner)
	require.NoError(t, err)
	again()
}

func TestKeys(t *testing.T) {
	id, _ := primitive.ObjectIDFromHex("65a1b2c3d4e5f60718293a4b")
	assert.Equal(t, "autoblog:host:foo.bertyblog.link", hostKey("foo.bertyblog.link"))
	assert.Equal(t, "autoblog:batch-lock:65a1b2c3d4e5f60718293a4b", lockKey(id))
}
