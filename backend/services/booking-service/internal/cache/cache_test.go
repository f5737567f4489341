package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newClient(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, srv
}

func TestAvailabilityCache(t *testing.T) {
	client, srv := newClient(t)
	c := NewAvailability(client, 30*time.Second)
	ctx := context.Background()

	_, err := c.Get(ctx, 1, "2025-03-10")
	assert.ErrorIs(t, err, ErrMiss)

	gen, err := c.Generation(ctx, 1, "2025-03-10")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, 1, "2025-03-10", gen, []string{"09:00-09:30"}))
	got, err := c.Get(ctx, 1, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00-09:30"}, got)
	assert.Equal(t, 30*time.Second, srv.TTL("availability:1:2025-03-10"))

	require.NoError(t, c.Invalidate(ctx, 1, "2025-03-10"))
	_, err = c.Get(ctx, 1, "2025-03-10")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestAvailabilityCacheStoresEmptyList(t *testing.T) {
	client, _ := newClient(t)
	c := NewAvailability(client, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, 2, "2025-03-10", 0, nil))
	got, err := c.Get(ctx, 2, "2025-03-10")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestAvailabilityCacheDropsStaleWrite(t *testing.T) {
	client, _ := newClient(t)
	c := NewAvailability(client, time.Minute)
	ctx := context.Background()

	gen, err := c.Generation(ctx, 1, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	// a booking changes while the reader is still computing its list
	require.NoError(t, c.Invalidate(ctx, 1, "2025-03-10"))
	require.NoError(t, c.Set(ctx, 1, "2025-03-10", gen, []string{"09:00-09:30"}))
	_, err = c.Get(ctx, 1, "2025-03-10")
	assert.ErrorIs(t, err, ErrMiss)

	gen, err = c.Generation(ctx, 1, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
	require.NoError(t, c.Set(ctx, 1, "2025-03-10", gen, []string{"10:00-10:30"}))
	got, err := c.Get(ctx, 1, "2025-03-10")
	require.NoError(t, err)
	assert.Equal(t, []string{"10:00-10:30"}, got)
}

func TestEventBus(t *testing.T) {
	client, _ := newClient(t)
	bus := NewEventBus(client, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	received := make(chan Event, 1)
	require.NoError(t, bus.Subscribe(ctx, func(ev Event) { received <- ev }))
	require.NoError(t, bus.Publish(ctx, Event{StationID: 9, Date: "2025-03-10"}))

	select {
	case ev := <-received:
		assert.Equal(t, Event{StationID: 9, Date: "2025-03-10"}, ev)
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}
}
