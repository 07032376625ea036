package sessionstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/thermostraw/internal/domain/dashboard"
)

// ValkeyStore persists shell state in a Valkey-compatible database, one JSON value per session.
type ValkeyStore struct {
	client valkey.Client
	prefix string
	ttl    time.Duration
}

// NewValkeyStore constructs a new store backed by Valkey.
func NewValkeyStore(client valkey.Client, prefix string, ttl time.Duration) *ValkeyStore {
	if prefix == "" {
		prefix = "thermostraw"
	}
	return &ValkeyStore{client: client, prefix: prefix, ttl: ttl}
}

func (s *ValkeyStore) Load(ctx context.Context, sessionID string) (dashboard.State, bool, error) {
	if sessionID == "" {
		return dashboard.State{}, false, nil
	}
	payload, err := s.client.Do(ctx, s.client.B().Get().Key(s.key(sessionID)).Build()).ToString()
	if err != nil {
		if valkey.IsValkeyNil(err) {
			return dashboard.State{}, false, nil
		}
		return dashboard.State{}, false, err
	}
	var state dashboard.State
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return dashboard.State{}, false, err
	}
	return state, true, nil
}

func (s *ValkeyStore) Save(ctx context.Context, state dashboard.State) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return err
	}
	builder := s.client.B().Set().Key(s.key(state.SessionID)).Value(string(payload))
	var cmd valkey.Completed
	if s.ttl > 0 {
		ttl := s.ttl
		if ttl < time.Second {
			ttl = time.Second
		}
		cmd = builder.Ex(ttl).Build()
	} else {
		cmd = builder.Build()
	}
	return s.client.Do(ctx, cmd).Error()
}

func (s *ValkeyStore) key(sessionID string) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, sessionID)
}

var _ dashboard.SessionStore = (*ValkeyStore)(nil)
