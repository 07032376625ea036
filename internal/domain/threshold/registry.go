package threshold

import (
	"log/slog"
	"sync"
	"time"
)

// DefaultIdleTTL is how long an unused dialog keeps its state, PIN included.
const DefaultIdleTTL = 10 * time.Minute

type registryEntry struct {
	dialog   *Dialog
	refs     int
	lastUsed time.Time
}

// Registry keeps one dialog per session in memory, so a PIN never leaves the process.
type Registry struct {
	mu         sync.Mutex
	entries    map[string]*registryEntry
	backend    Backend
	store      *Store
	closeDelay time.Duration
	idleTTL    time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(backend Backend, store *Store, closeDelay time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		entries:    make(map[string]*registryEntry),
		backend:    backend,
		store:      store,
		closeDelay: closeDelay,
		idleTTL:    DefaultIdleTTL,
		now:        time.Now,
		logger:     logger,
	}
}

// Acquire returns the dialog of a session, creating it on demand. The dialog stays
// registered until done is called; a closed dialog nobody holds is then forgotten.
func (r *Registry) Acquire(sessionID string) (*Dialog, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweepLocked(now)

	e, ok := r.entries[sessionID]
	if !ok {
		e = &registryEntry{dialog: NewDialog(r.backend, r.store, r.closeDelay, r.logger)}
		r.entries[sessionID] = e
	}
	e.refs++
	e.lastUsed = now

	var once sync.Once
	return e.dialog, func() {
		once.Do(func() { r.done(sessionID, e) })
	}
}

func (r *Registry) done(sessionID string, e *registryEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.refs--
	e.lastUsed = r.now()
	if e.refs > 0 || r.entries[sessionID] != e {
		return
	}
	e.dialog.mu.Lock()
	closed := e.dialog.state == StateClosed
	e.dialog.mu.Unlock()
	if closed {
		delete(r.entries, sessionID)
	}
}

// sweepLocked cancels and forgets dialogs nobody has touched for the idle TTL, which
// also wipes a verified PIN left behind by an abandoned dialog.
func (r *Registry) sweepLocked(now time.Time) {
	if r.idleTTL <= 0 {
		return
	}
	for id, e := range r.entries {
		if e.refs == 0 && now.Sub(e.lastUsed) > r.idleTTL {
			e.dialog.Cancel()
			delete(r.entries, id)
		}
	}
}

// Len returns the number of tracked dialogs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
