package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClientSetGet(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestMemoryClientMiss(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()

	_, err := c.Get(context.Background(), "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClientExpiry(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), -time.Second))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClientDelete(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Minute))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClientEvictsAtCapacity(t *testing.T) {
	c := NewMemoryClient(2)
	defer c.Close()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Hour))

	// "a" had the earliest expiry and was evicted to make room.
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	_, err = c.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestMemoryClientPublishSubscribe(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()
	ctx := context.Background()

	ch, unsubscribe, err := c.Subscribe(ctx, "events")
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, c.Publish(ctx, "events", []byte("one")))
	require.NoError(t, c.Publish(ctx, "other", []byte("ignored")))

	select {
	case got := <-ch:
		assert.Equal(t, []byte("one"), got)
	case <-time.After(time.Second):
		t.Fatal("no message delivered")
	}

	select {
	case got := <-ch:
		t.Fatalf("unexpected message %q", got)
	default:
	}
}

func TestMemoryClientUnsubscribeClosesChannel(t *testing.T) {
	c := NewMemoryClient(10)
	defer c.Close()

	ch, unsubscribe, err := c.Subscribe(context.Background(), "events")
	require.NoError(t, err)

	unsubscribe()

	_, open := <-ch
	assert.False(t, open)

	// Publishing after unsubscribe must not panic.
	assert.NoError(t, c.Publish(context.Background(), "events", []byte("late")))
}

func TestMemoryClientCloseClosesSubscribers(t *testing.T) {
	c := NewMemoryClient(10)

	ch, _, err := c.Subscribe(context.Background(), "events")
	require.NoError(t, err)

	require.NoError(t, c.Close())

	_, open := <-ch
	assert.False(t, open)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "prospect:abc:events", Key("prospect", "abc", "events"))
}
