package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/yanqian/thermostraw/internal/domain/dashboard"
)

type stateRecord struct {
	state     dashboard.State
	expiresAt time.Time
}

// MemoryStore keeps shell state in process memory for tests/dev.
type MemoryStore struct {
	mu     sync.RWMutex
	states map[string]stateRecord
	ttl    time.Duration
	now    func() time.Time
}

// NewMemoryStore constructs a store. A zero ttl keeps state forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		states: make(map[string]stateRecord),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Load implements dashboard.SessionStore.
func (s *MemoryStore) Load(_ context.Context, sessionID string) (dashboard.State, bool, error) {
	s.mu.RLock()
	record, ok := s.states[sessionID]
	s.mu.RUnlock()
	if !ok {
		return dashboard.State{}, false, nil
	}
	if !record.expiresAt.IsZero() && s.now().After(record.expiresAt) {
		s.mu.Lock()
		delete(s.states, sessionID)
		s.mu.Unlock()
		return dashboard.State{}, false, nil
	}
	return record.state, true, nil
}

// Save replaces the whole state of a session.
func (s *MemoryStore) Save(_ context.Context, state dashboard.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp := time.Time{}
	if s.ttl > 0 {
		exp = s.now().Add(s.ttl)
	}
	s.states[state.SessionID] = stateRecord{state: state, expiresAt: exp}
	return nil
}

var _ dashboard.SessionStore = (*MemoryStore)(nil)
