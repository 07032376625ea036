package chartarchive

import (
	"context"
	"fmt"
	"sync"

	"github.com/yanqian/thermostraw/internal/domain/dashboard"
)

// MemoryArchive keeps snapshots in memory. Useful for tests and local dev.
type MemoryArchive struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryArchive constructs the archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{blobs: make(map[string][]byte)}
}

// Put stores the PNG under key.
func (a *MemoryArchive) Put(_ context.Context, key string, png []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.blobs[key] = append([]byte(nil), png...)
	return "memory://" + key, nil
}

// Get returns a stored snapshot.
func (a *MemoryArchive) Get(key string) ([]byte, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	blob, ok := a.blobs[key]
	if !ok {
		return nil, fmt.Errorf("snapshot %q not found", key)
	}
	return blob, nil
}

var _ dashboard.ChartArchive = (*MemoryArchive)(nil)
