package threshold

import (
	"context"
	"time"
)

// Accepted threshold range, exclusive low bound.
const (
	MinValue = 0.001
	MaxValue = 0.1
)

// PINLength is the exact number of digits of an operator PIN.
const PINLength = 4

// DefaultCloseDelay is how long the success state stays visible.
const DefaultCloseDelay = 2 * time.Second

// State is a dialog state.
type State string

const (
	StateClosed         State = "closed"
	StatePINEntry       State = "pin_entry"
	StateThresholdEntry State = "threshold_entry"
	StateSuccess        State = "success"
)

// Backend is the PIN-gated threshold API of the prediction service.
type Backend interface {
	CurrentThreshold(ctx context.Context) (float64, error)
	VerifyPIN(ctx context.Context, pin string) (bool, error)
	UpdateThreshold(ctx context.Context, pin string, value float64) (bool, error)
}

// Snapshot is what the client sees of a dialog. The PIN is never included.
type Snapshot struct {
	State     State      `json:"state"`
	Current   float64    `json:"current"`
	Loaded    bool       `json:"loaded"`
	Draft     float64    `json:"draft,omitempty"`
	Error     string     `json:"error,omitempty"`
	Message   string     `json:"message,omitempty"`
	ClosesAt  *time.Time `json:"closesAt,omitempty"`
	CanSubmit bool       `json:"canSubmit"`
}
