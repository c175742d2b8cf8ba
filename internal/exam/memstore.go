package exam

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps exams in process memory. Used for tests and
// STORE_BACKEND=memory.
type MemoryStore struct {
	mu   sync.RWMutex
	recs map[string]Record
	now  func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recs: make(map[string]Record), now: time.Now}
}

func (m *MemoryStore) FindByStudent(ctx context.Context, studentID string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []Record
	for _, rec := range m.recs {
		if rec.StudentID == studentID {
			res = append(res, rec)
		}
	}
	return res, nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	res := make([]Record, 0, len(m.recs))
	for _, rec := range m.recs {
		res = append(res, rec)
	}
	m.mu.RUnlock()
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.Before(res[j].CreatedAt)
		}
		return res[i].ID < res[j].ID
	})
	return res, nil
}

func (m *MemoryStore) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.recs[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) Insert(ctx context.Context, rec Record) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	now := m.now().UTC()
	rec.CreatedAt, rec.UpdatedAt = now, now
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.ID] = rec
	return rec, nil
}

func (m *MemoryStore) Update(ctx context.Context, id string, f Fields) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.recs[id]
	if !ok {
		return ErrNotFound
	}
	if f.Status != nil {
		rec.Status = string(*f.Status)
	}
	if f.Room != nil {
		rec.Room = *f.Room
	}
	if f.DateTime != nil {
		rec.DateTime.Time, rec.DateTime.Valid = f.DateTime.UTC(), true
	}
	rec.UpdatedAt = m.now().UTC()
	m.recs[id] = rec
	return nil
}

// Put stores rec as-is, bypassing validation. Test fixtures use it to plant
// malformed records.
func (m *MemoryStore) Put(rec Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.recs[rec.ID] = rec
}
