package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitAndReserveDailyLimit(t *testing.T) {
	l := NewLimiter(0, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.WaitAndReserve(ctx)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, err := l.WaitAndReserve(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, l.Remaining())
}

func TestWaitAndReserveResetsOnNewDay(t *testing.T) {
	day := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLimiter(0, 1)
	l.now = func() time.Time { return day }

	ok, _ := l.WaitAndReserve(context.Background())
	assert.True(t, ok)
	ok, _ = l.WaitAndReserve(context.Background())
	assert.False(t, ok)

	day = day.Add(24 * time.Hour)
	ok, _ = l.WaitAndReserve(context.Background())
	assert.True(t, ok)
}

func TestWaitAndReserveHonoursCancellation(t *testing.T) {
	l := NewLimiter(1, 0)
	ctx, cancel := context.WithCancel(context.Background())

	ok, err := l.WaitAndReserve(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	cancel()
	ok, err = l.WaitAndReserve(ctx)
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestNilLimiterAllowsEverything(t *testing.T) {
	var l *Limiter
	ok, err := l.WaitAndReserve(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -1, l.Remaining())
}
