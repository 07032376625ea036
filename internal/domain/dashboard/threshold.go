package dashboard

import (
	"context"

	"github.com/yanqian/thermostraw/internal/domain/prediction"
	"github.com/yanqian/thermostraw/internal/domain/threshold"
)

// Threshold returns the active threshold.
func (s *Service) Threshold() ThresholdInfo {
	value, loaded := s.store.Current()
	if !loaded {
		value = s.store.Fallback()
	}
	return ThresholdInfo{Threshold: value, Loaded: loaded, Display: prediction.FormatThreshold(value)}
}

// OpenThreshold opens the session's dialog at pin entry.
func (s *Service) OpenThreshold(sessionID string) threshold.Snapshot {
	d, done := s.dialogs.Acquire(sessionID)
	defer done()
	return d.Open()
}

// SubmitThresholdPIN verifies the PIN typed in the session's dialog.
func (s *Service) SubmitThresholdPIN(ctx context.Context, sessionID, pin string) (threshold.Snapshot, error) {
	d, done := s.dialogs.Acquire(sessionID)
	defer done()
	return d.SubmitPIN(ctx, pin)
}

// SubmitThresholdValue sends the new threshold. On success the shared store is replaced.
func (s *Service) SubmitThresholdValue(ctx context.Context, sessionID string, value float64) (threshold.Snapshot, error) {
	d, done := s.dialogs.Acquire(sessionID)
	defer done()
	return d.SubmitThreshold(ctx, value)
}

// BackThreshold returns the session's dialog to pin entry.
func (s *Service) BackThreshold(sessionID string) (threshold.Snapshot, error) {
	d, done := s.dialogs.Acquire(sessionID)
	defer done()
	return d.Back()
}

// CancelThreshold closes the session's dialog.
func (s *Service) CancelThreshold(sessionID string) threshold.Snapshot {
	d, done := s.dialogs.Acquire(sessionID)
	defer done()
	return d.Cancel()
}

// ThresholdDialog returns the dialog snapshot, applying the success auto-close.
func (s *Service) ThresholdDialog(sessionID string) threshold.Snapshot {
	return s.dialogView(sessionID)
}

func (s *Service) dialogView(sessionID string) threshold.Snapshot {
	d, done := s.dialogs.Acquire(sessionID)
	defer done()
	return d.View(s.now())
}
