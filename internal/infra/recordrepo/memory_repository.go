package recordrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/yanqian/thermostraw/internal/domain/dashboard"
)

// MemoryRepository is an in-memory RecordRepository used for tests/dev.
type MemoryRepository struct {
	mu      sync.RWMutex
	records []dashboard.Record
}

// NewMemoryRepository constructs a repo backed by memory.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

// Append implements dashboard.RecordRepository.
func (r *MemoryRepository) Append(_ context.Context, rec dashboard.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

// List returns the newest records first.
func (r *MemoryRepository) List(_ context.Context, limit int) ([]dashboard.Record, error) {
	r.mu.RLock()
	out := append([]dashboard.Record(nil), r.records...)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var _ dashboard.RecordRepository = (*MemoryRepository)(nil)
