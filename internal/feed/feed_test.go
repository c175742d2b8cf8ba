package feed

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "channel closed")
		return evt
	case <-time.After(2 * time.Second):
		t.Fatal("no event received")
	}
	return Event{}
}

func TestInMemoryBroadcast(t *testing.T) {
	f := NewInMemory()
	defer f.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := f.Subscribe(ctx)
	require.NoError(t, err)
	b, err := f.Subscribe(ctx)
	require.NoError(t, err)

	evt := Event{Op: OpUpdate, Collection: "exams", ID: "e1"}
	require.NoError(t, f.Publish(ctx, evt))
	assert.Equal(t, evt, recv(t, a))
	assert.Equal(t, evt, recv(t, b))
}

func TestInMemoryPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	f := NewInMemory()
	defer f.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.Subscribe(ctx)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			_ = f.Publish(ctx, Event{Op: OpInsert, Collection: "exams", ID: "x"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked")
	}
	recv(t, ch)
}

func TestInMemoryUnsubscribeOnCancel(t *testing.T) {
	f := NewInMemory()
	defer f.Close()
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := f.Subscribe(ctx)
	require.NoError(t, err)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after cancel")
	}
}

func TestInMemoryClose(t *testing.T) {
	f := NewInMemory()
	ch, err := f.Subscribe(context.Background())
	require.NoError(t, err)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, ok := <-ch
	assert.False(t, ok)
	assert.ErrorIs(t, f.Publish(context.Background(), Event{}), ErrClosed)
	_, err = f.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestEventEncoding(t *testing.T) {
	evt := Event{Op: OpUpdate, Collection: "exams", ID: "a|b"}
	got, err := deserialize(serialize(evt))
	require.NoError(t, err)
	assert.Equal(t, evt, got)

	_, err = deserialize("garbage")
	assert.Error(t, err)
}

// lockedBuffer collects log output written from the feed goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newRedisFeed(t *testing.T, logger zerolog.Logger) (*Redis, *redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, "examflow:test:"+t.Name(), logger), client, mr
}

func TestRedisFeed(t *testing.T) {
	f, _, _ := newRedisFeed(t, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.Subscribe(ctx)
	require.NoError(t, err)

	evt := Event{Op: OpInsert, Collection: "exams", ID: "e1"}
	require.NoError(t, f.Publish(ctx, evt))
	assert.Equal(t, evt, recv(t, ch))

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("channel not closed after cancel")
	}
}

func TestRedisFeedClosesOnConnectionLoss(t *testing.T) {
	var logs lockedBuffer
	f, _, mr := newRedisFeed(t, zerolog.New(&logs))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.Subscribe(ctx)
	require.NoError(t, err)

	mr.Close()
	deadline := time.After(2 * time.Second)
	for open := true; open; {
		select {
		case _, open = <-ch:
		case <-deadline:
			t.Fatal("channel still open after redis went away")
		}
	}
	assert.Contains(t, logs.String(), "change feed connection lost")
}

func TestRedisFeedLogsMalformedPayload(t *testing.T) {
	var logs lockedBuffer
	f, client, _ := newRedisFeed(t, zerolog.New(&logs))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := f.Subscribe(ctx)
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, f.channel, "garbage").Err())
	evt := Event{Op: OpUpdate, Collection: "exams", ID: "e2"}
	require.NoError(t, f.Publish(ctx, evt))

	assert.Equal(t, evt, recv(t, ch))
	assert.Contains(t, logs.String(), "dropping malformed change event")
	assert.Contains(t, logs.String(), "garbage")
}
