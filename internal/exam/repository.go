package exam

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"examflow/internal/feed"
	"examflow/internal/metrics"
)

// Collection is the feed collection name for exams.
const Collection = "exams"

// Repository mediates all exam reads and writes between the store and
// callers, converting date-times at the boundary. It holds no exam state.
type Repository struct {
	store  Store
	feed   feed.Feed
	logger zerolog.Logger
}

// NewRepository wires a repository to its store and change feed.
func NewRepository(store Store, f feed.Feed, logger zerolog.Logger) *Repository {
	return &Repository{store: store, feed: f, logger: logger.With().Str("component", "exam_repository").Logger()}
}

// FetchByStudent returns the exam assigned to studentID, or ErrNotFound.
// When several exams match, the one with the latest date-time wins;
// unscheduled exams rank last and ties fall back to the smallest id.
// Records that fail to decode are skipped; a *DecodeError is returned only
// when none of the matches decode.
func (r *Repository) FetchByStudent(ctx context.Context, studentID string) (Exam, error) {
	recs, err := r.store.FindByStudent(ctx, studentID)
	if err != nil {
		metrics.ExamFetches.WithLabelValues("error").Inc()
		return Exam{}, err
	}
	if len(recs) == 0 {
		metrics.ExamFetches.WithLabelValues("not_found").Inc()
		return Exam{}, ErrNotFound
	}
	sort.Slice(recs, func(i, j int) bool { return preferred(recs[i], recs[j]) })

	var firstErr error
	for _, rec := range recs {
		ex, err := Decode(rec)
		if err != nil {
			metrics.InvalidRecords.Inc()
			r.logger.Warn().Err(err).Str("student_id", studentID).Str("exam_id", rec.ID).Msg("skipping invalid exam record")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(recs) > 1 {
			r.logger.Debug().Str("student_id", studentID).Int("matches", len(recs)).Str("chosen", ex.ID).Msg("multiple exams for student")
		}
		metrics.ExamFetches.WithLabelValues("ok").Inc()
		return ex, nil
	}
	metrics.ExamFetches.WithLabelValues("error").Inc()
	return Exam{}, firstErr
}

func preferred(a, b Record) bool {
	switch {
	case a.DateTime.Valid && !b.DateTime.Valid:
		return true
	case !a.DateTime.Valid && b.DateTime.Valid:
		return false
	case a.DateTime.Valid && !a.DateTime.Time.Equal(b.DateTime.Time):
		return a.DateTime.Time.After(b.DateTime.Time)
	}
	return a.ID < b.ID
}

// List returns a one-shot snapshot of the whole collection.
func (r *Repository) List(ctx context.Context) (Snapshot, error) {
	recs, err := r.store.List(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := decodeAll(recs)
	if n := len(snap.Invalid); n > 0 {
		metrics.InvalidRecords.Add(float64(n))
		r.logger.Warn().Int("invalid", n).Msg("snapshot contains undecodable exams")
	}
	return snap, nil
}

// Update validates p and merges it into the stored exam. Fields absent from
// p are left untouched. Store errors are returned unmodified.
func (r *Repository) Update(ctx context.Context, id string, p Patch) error {
	fields, err := p.Validate()
	if err != nil {
		metrics.ExamUpdates.WithLabelValues("invalid").Inc()
		return err
	}
	if err := r.store.Update(ctx, id, fields); err != nil {
		if errors.Is(err, ErrNotFound) {
			metrics.ExamUpdates.WithLabelValues("not_found").Inc()
		} else {
			metrics.ExamUpdates.WithLabelValues("error").Inc()
		}
		return err
	}
	metrics.ExamUpdates.WithLabelValues("ok").Inc()
	r.publish(ctx, feed.OpUpdate, id)
	return nil
}

// Create inserts a new exam. Exams are normally created out of band; this
// path serves staff tooling and seeding.
func (r *Repository) Create(ctx context.Context, n NewExam) (Exam, error) {
	rec, err := n.Validate()
	if err != nil {
		return Exam{}, err
	}
	rec, err = r.store.Insert(ctx, rec)
	if err != nil {
		return Exam{}, err
	}
	r.publish(ctx, feed.OpInsert, rec.ID)
	return Decode(rec)
}

// publish reports a committed write. The write already succeeded, so a feed
// failure is logged rather than returned.
func (r *Repository) publish(ctx context.Context, op feed.Op, id string) {
	if err := r.feed.Publish(ctx, feed.Event{Op: op, Collection: Collection, ID: id}); err != nil {
		r.logger.Error().Err(err).Str("exam_id", id).Str("op", string(op)).Msg("change feed publish failed")
	}
}

// Subscribe opens a continuous subscription over the whole collection. The
// current snapshot is delivered first, then a fresh full snapshot after every
// change. A slow reader only ever sees the latest snapshot.
func (r *Repository) Subscribe(ctx context.Context) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	events, err := r.feed.Subscribe(ctx)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("%w: %v", ErrSubscriptionFailed, err)
	}

	sub := &Subscription{
		snapshots: make(chan Snapshot),
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	metrics.ActiveSubscriptions.Inc()
	go r.run(ctx, sub, events)
	return sub, nil
}

func (r *Repository) run(ctx context.Context, sub *Subscription, events <-chan feed.Event) {
	defer close(sub.done)
	defer sub.cancel()
	defer close(sub.snapshots)
	defer metrics.ActiveSubscriptions.Dec()

	fail := func(err error) {
		if ctx.Err() != nil {
			return
		}
		metrics.SubscriptionFailures.Inc()
		r.logger.Error().Err(err).Msg("exam subscription terminated")
		sub.setErr(fmt.Errorf("%w: %v", ErrSubscriptionFailed, err))
	}

	snap, err := r.List(ctx)
	if err != nil {
		fail(err)
		return
	}
	next, pending := snap, true
	for {
		// A nil channel disables the send case until there is something new.
		var out chan Snapshot
		if pending {
			out = sub.snapshots
		}
		select {
		case <-ctx.Done():
			return
		case out <- next:
			metrics.SnapshotsDelivered.Inc()
			next, pending = Snapshot{}, false
		case evt, ok := <-events:
			if !ok {
				fail(errors.New("change feed closed"))
				return
			}
			if evt.Collection != Collection {
				continue
			}
			snap, err := r.List(ctx)
			if err != nil {
				fail(err)
				return
			}
			next, pending = snap, true
		}
	}
}

// Subscription is a live stream of exam snapshots.
type Subscription struct {
	snapshots chan Snapshot
	cancel    context.CancelFunc
	done      chan struct{}
	once      sync.Once

	mu  sync.Mutex
	err error
}

// Snapshots returns the stream. It is closed when the subscription ends,
// either by Close or by a failure reported through Err.
func (s *Subscription) Snapshots() <-chan Snapshot {
	return s.snapshots
}

// Err returns the terminal error once the stream has closed because of a
// failure, wrapping ErrSubscriptionFailed. It is nil after a plain Close.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed when the subscription has fully stopped.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Close releases the subscription. It is safe to call more than once; once
// it returns no further snapshot is delivered.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

func (s *Subscription) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
