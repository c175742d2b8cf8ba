package user

import (
	"context"
	"sync"
)

// MemoryStore keeps profiles in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	byUID map[string]Profile
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byUID: make(map[string]Profile)}
}

func (m *MemoryStore) Get(_ context.Context, uid string) (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byUID[uid]
	if !ok {
		return Profile{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryStore) GetByEmail(_ context.Context, email string) (Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.byUID {
		if p.Email != nil && *p.Email == email {
			return p, nil
		}
	}
	return Profile{}, ErrNotFound
}

func (m *MemoryStore) Insert(_ context.Context, p Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Email != nil {
		for _, other := range m.byUID {
			if other.Email != nil && *other.Email == *p.Email {
				return ErrEmailTaken
			}
		}
	}
	m.byUID[p.UID] = p
	return nil
}
