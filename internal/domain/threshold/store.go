package threshold

import (
	"context"
	"log/slog"
	"sync"

	apperrors "github.com/yanqian/thermostraw/pkg/errors"
)

// Listener is notified after the threshold changes.
type Listener func(previous, current float64)

// Store holds the process-wide threshold. It is loaded from the backend once and then only
// changed by a dialog after a confirmed update.
type Store struct {
	mu        sync.RWMutex
	value     float64
	loaded    bool
	fallback  float64
	listeners []Listener
	logger    *slog.Logger
}

// NewStore creates an unloaded store. fallback is only shown when nothing else is known.
func NewStore(fallback float64, logger *slog.Logger) *Store {
	return &Store{fallback: fallback, logger: logger.With("component", "threshold.store")}
}

// Current returns the threshold and whether it came from the backend.
func (s *Store) Current() (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.loaded
}

// Fallback is the display value used before the backend answered.
func (s *Store) Fallback() float64 {
	return s.fallback
}

// Load fetches the threshold from the backend.
func (s *Store) Load(ctx context.Context, backend Backend) error {
	value, err := backend.CurrentThreshold(ctx)
	if err != nil {
		return err
	}
	if value <= 0 {
		return apperrors.Wrap("invalid_response", "backend returned a non-positive threshold", nil)
	}
	s.set(value)
	s.logger.Info("threshold loaded", "threshold", value)
	return nil
}

// Subscribe registers a listener for later changes.
func (s *Store) Subscribe(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// replace is the update channel used by dialogs after the backend confirmed the change.
func (s *Store) replace(value float64) {
	s.set(value)
}

func (s *Store) set(value float64) {
	s.mu.Lock()
	previous := s.value
	s.value = value
	s.loaded = true
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()

	if previous == value {
		return
	}
	for _, fn := range listeners {
		fn(previous, value)
	}
}
