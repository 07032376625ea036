package threshold

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	apperrors "github.com/yanqian/thermostraw/pkg/errors"
)

// Dialog is the PIN-gated threshold editor of one session. Methods are safe for concurrent use;
// backend calls run under the dialog lock so a state transition happens at most once.
type Dialog struct {
	mu         sync.Mutex
	state      State
	pin        string
	draft      float64
	errMsg     string
	message    string
	closesAt   time.Time
	backend    Backend
	store      *Store
	onUpdate   func(float64)
	closeDelay time.Duration
	now        func() time.Time
	logger     *slog.Logger
}

// NewDialog creates a closed dialog. A confirmed update replaces the store value.
func NewDialog(backend Backend, store *Store, closeDelay time.Duration, logger *slog.Logger) *Dialog {
	if closeDelay <= 0 {
		closeDelay = DefaultCloseDelay
	}
	return &Dialog{
		state:      StateClosed,
		backend:    backend,
		store:      store,
		onUpdate:   store.replace,
		closeDelay: closeDelay,
		now:        time.Now,
		logger:     logger.With("component", "threshold.dialog"),
	}
}

// Open enters pin entry from any state.
func (d *Dialog) Open() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.reset()
	d.state = StatePINEntry
	d.draft, _ = d.store.Current()
	return d.snapshot()
}

// SubmitPIN verifies the PIN with the backend. Only a valid PIN advances the dialog.
func (d *Dialog) SubmitPIN(ctx context.Context, pin string) (Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StatePINEntry {
		return d.snapshot(), stateError("submit a PIN", d.state)
	}
	if !ValidPIN(pin) {
		d.errMsg = "The PIN must be exactly 4 digits"
		return d.snapshot(), apperrors.Wrap("invalid_input", d.errMsg, nil)
	}

	valid, err := d.backend.VerifyPIN(ctx, pin)
	if err != nil {
		d.errMsg = apperrors.MessageOf(err)
		d.logger.Warn("pin verification failed", "error", err)
		return d.snapshot(), err
	}
	if !valid {
		d.errMsg = "Incorrect PIN"
		return d.snapshot(), apperrors.Wrap("pin_rejected", d.errMsg, nil)
	}

	d.pin = pin
	d.errMsg = ""
	d.state = StateThresholdEntry
	return d.snapshot(), nil
}

// SubmitThreshold sends the new value together with the verified PIN.
func (d *Dialog) SubmitThreshold(ctx context.Context, value float64) (Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateThresholdEntry {
		return d.snapshot(), stateError("submit a threshold", d.state)
	}
	d.draft = value
	if !ValidValue(value) {
		d.errMsg = fmt.Sprintf("The threshold must be greater than %g and at most %g", MinValue, MaxValue)
		return d.snapshot(), apperrors.Wrap("invalid_input", d.errMsg, nil)
	}

	ok, err := d.backend.UpdateThreshold(ctx, d.pin, value)
	if err != nil {
		d.errMsg = apperrors.MessageOf(err)
		d.logger.Warn("threshold update failed", "error", err)
		return d.snapshot(), err
	}
	if !ok {
		d.errMsg = "The backend refused the new threshold"
		return d.snapshot(), apperrors.Wrap("backend_error", d.errMsg, nil)
	}

	d.onUpdate(value)
	d.pin = ""
	d.errMsg = ""
	d.state = StateSuccess
	d.message = fmt.Sprintf("Threshold updated to %.3f W/(m·K)", value)
	d.closesAt = d.now().Add(d.closeDelay)
	d.logger.Info("threshold updated", "threshold", value)
	return d.snapshot(), nil
}

// Back returns from threshold entry to pin entry and forgets the PIN.
func (d *Dialog) Back() (Snapshot, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateThresholdEntry {
		return d.snapshot(), stateError("go back", d.state)
	}
	d.pin = ""
	d.errMsg = ""
	d.state = StatePINEntry
	return d.snapshot(), nil
}

// Cancel closes the dialog from any state.
func (d *Dialog) Cancel() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.reset()
	return d.snapshot()
}

// View returns the current snapshot, closing a success dialog whose delay has elapsed.
func (d *Dialog) View(now time.Time) Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state == StateSuccess && !now.Before(d.closesAt) {
		d.reset()
	}
	return d.snapshot()
}

func (d *Dialog) reset() {
	d.state = StateClosed
	d.pin = ""
	d.errMsg = ""
	d.message = ""
	d.draft = 0
	d.closesAt = time.Time{}
}

func (d *Dialog) snapshot() Snapshot {
	current, loaded := d.store.Current()
	if !loaded {
		current = d.store.Fallback()
	}
	snap := Snapshot{
		State:   d.state,
		Current: current,
		Loaded:  loaded,
		Draft:   d.draft,
		Error:   d.errMsg,
		Message: d.message,
	}
	switch d.state {
	case StatePINEntry, StateThresholdEntry:
		snap.CanSubmit = true
	case StateSuccess:
		closesAt := d.closesAt
		snap.ClosesAt = &closesAt
	}
	return snap
}

// ValidPIN reports whether pin is exactly four ASCII digits.
func ValidPIN(pin string) bool {
	if len(pin) != PINLength {
		return false
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidValue reports whether v lies in (MinValue, MaxValue].
func ValidValue(v float64) bool {
	return v > MinValue && v <= MaxValue
}

func stateError(action string, state State) error {
	return apperrors.Wrap("dialog_state", fmt.Sprintf("cannot %s while the dialog is %s", action, state), nil)
}
