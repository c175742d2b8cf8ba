package feed

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Op names the kind of write an Event reports.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
)

// Event reports a committed write to a collection.
type Event struct {
	Op         Op
	Collection string
	ID         string
}

// Feed fans change events out to every subscriber.
type Feed interface {
	Publish(ctx context.Context, evt Event) error
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// ErrClosed is returned by Publish and Subscribe once the feed is closed.
var ErrClosed = errors.New("feed closed")

// InMemory is a process-local broadcaster for dev/testing and single-node runs.
// Each subscriber has a one-slot buffer; a pending event already signals
// "something changed", so further events are dropped until it is read.
type InMemory struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
}

// NewInMemory creates an empty broadcaster.
func NewInMemory() *InMemory {
	return &InMemory{subs: make(map[chan Event]struct{})}
}

// Publish delivers evt to all current subscribers without blocking.
func (f *InMemory) Publish(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return ErrClosed
	}
	for ch := range f.subs {
		select {
		case ch <- evt:
		default:
		}
	}
	return nil
}

// Subscribe registers a subscriber until ctx is done.
func (f *InMemory) Subscribe(ctx context.Context) (<-chan Event, error) {
	ch := make(chan Event, 1)
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrClosed
	}
	f.subs[ch] = struct{}{}
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.remove(ch)
	}()
	return ch, nil
}

// Close ends every subscription; subscribers observe a closed channel.
func (f *InMemory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.closed = true
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
	return nil
}

func (f *InMemory) remove(ch chan Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[ch]; ok {
		delete(f.subs, ch)
		close(ch)
	}
}

// Redis implements Feed over Redis pub/sub so every API instance sees writes
// made by the others.
type Redis struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

// NewRedis builds a feed publishing on the given channel.
func NewRedis(client *redis.Client, channel string, logger zerolog.Logger) *Redis {
	if channel == "" {
		channel = "examflow:changes"
	}
	return &Redis{
		client:  client,
		channel: channel,
		logger:  logger.With().Str("component", "feed").Str("channel", channel).Logger(),
	}
}

// Publish sends evt to the channel.
func (f *Redis) Publish(ctx context.Context, evt Event) error {
	return f.client.Publish(ctx, f.channel, serialize(evt)).Err()
}

// Subscribe streams events until ctx is done. The subscription is confirmed
// before returning so no event published afterwards is missed.
//
// The returned channel is closed when the connection is lost. Events
// published while disconnected cannot be recovered, so the stream ends
// instead of silently reconnecting.
func (f *Redis) Subscribe(ctx context.Context) (<-chan Event, error) {
	ps := f.client.Subscribe(ctx, f.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, err
	}

	out := make(chan Event, 1)
	stop := make(chan struct{})
	// closing the pubsub is the only way to unblock a pending Receive
	go func() {
		select {
		case <-ctx.Done():
		case <-stop:
		}
		_ = ps.Close()
	}()
	go func() {
		defer close(out)
		defer close(stop)
		for {
			msg, err := ps.Receive(ctx)
			if err != nil {
				if ctx.Err() == nil {
					f.logger.Error().Err(err).Msg("change feed connection lost")
				}
				return
			}
			m, ok := msg.(*redis.Message)
			if !ok {
				continue
			}
			evt, err := deserialize(m.Payload)
			if err != nil {
				f.logger.Warn().Err(err).Msg("dropping malformed change event")
				continue
			}
			select {
			case out <- evt:
			default:
			}
		}
	}()
	return out, nil
}

// serialize stores events as Op|Collection|ID.
func serialize(evt Event) string {
	return string(evt.Op) + "|" + evt.Collection + "|" + evt.ID
}

func deserialize(s string) (Event, error) {
	parts := strings.SplitN(s, "|", 3)
	if len(parts) != 3 {
		return Event{}, errors.New("malformed event " + s)
	}
	return Event{Op: Op(parts[0]), Collection: parts[1], ID: parts[2]}, nil
}
