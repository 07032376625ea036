package fraction

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	apperrors "github.com/yanqian/thermostraw/pkg/errors"
)

func TestValidateDefaultSamplePasses(t *testing.T) {
	s := Default()

	require.InDelta(t, 100.0, s.Total(), 1e-9)
	require.NoError(t, Validate(s, "LOT-2025-001", true))
}

func TestValidateRejectsSumOutsideTolerance(t *testing.T) {
	s := Set{Taux2mm: 10, Taux1mm: 10, Taux500um: 10, Taux250um: 10, Taux0: 10}

	err := Validate(s, "LOT-1", true)
	require.Error(t, err)
	require.True(t, apperrors.IsCode(err, "invalid_input"))
	require.Contains(t, err.Error(), "50.00%")
}

func TestValidateBounds(t *testing.T) {
	tests := []struct {
		name  string
		total float64
		ok    bool
	}{
		{"lower bound", 99, true},
		{"upper bound", 101, true},
		{"just below", 98.99, false},
		{"just above", 101.01, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := Set{Taux1mm: tc.total}
			err := Validate(s, "", false)
			if tc.ok {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestValidateRequiresBatch(t *testing.T) {
	err := Validate(Default(), "   ", true)
	require.Error(t, err)
	require.Contains(t, err.Error(), "batch number")

	require.NoError(t, Validate(Default(), "   ", false))
}

func TestParseValueNeverFails(t *testing.T) {
	require.Equal(t, 0.0, ParseValue("abc"))
	require.Equal(t, 0.0, ParseValue(""))
	require.Equal(t, 0.0, ParseValue("NaN"))
	require.Equal(t, 0.0, ParseValue("-3"))
	require.Equal(t, 12.5, ParseValue(" 12.5 "))
	require.Equal(t, 12.5, ParseValue("12,5"))
}

func TestTotalStatusWarnsAwayFromHundred(t *testing.T) {
	running := TotalStatus(Set{Taux2mm: 50, Taux1mm: 48.5})
	require.True(t, running.Warn)
	require.Equal(t, "98.50%", running.Display)

	running = TotalStatus(Default())
	require.False(t, running.Warn)
	require.Equal(t, "100.00%", running.Display)
}

func TestParseForm(t *testing.T) {
	values := map[string]string{
		Taux2mm:       "15.83",
		Taux1mm:       "oops",
		Taux500um:     "20.46",
		"batchNumber": " LOT-7 ",
	}
	s, batch := ParseForm(func(key string) string { return values[key] })

	require.Equal(t, 15.83, s.Taux2mm)
	require.Equal(t, 0.0, s.Taux1mm)
	require.Equal(t, 20.46, s.Taux500um)
	require.Equal(t, 0.0, s.Taux0)
	require.Equal(t, " LOT-7 ", batch)
}

func TestFormSubmitSkipsCallbackOnInvalidInput(t *testing.T) {
	called := false
	form := Form{RequireBatch: true}

	_, err := form.Submit(context.Background(), Set{Taux0: 10}, "LOT", func(ctx context.Context, sub Submission) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called)
}

func TestFormSubmitPassesSubmission(t *testing.T) {
	now := time.Date(2025, 3, 4, 10, 30, 15, 500, time.UTC)
	form := Form{RequireBatch: true, Now: func() time.Time { return now }}

	var got Submission
	sub, err := form.Submit(context.Background(), Default(), "  LOT-2025-001 ", func(ctx context.Context, sub Submission) error {
		got = sub
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, sub, got)
	require.Equal(t, "LOT-2025-001", got.BatchNumber)
	require.Equal(t, now.Truncate(time.Second), got.Timestamp)
	require.Equal(t, Default(), got.Fractions)
}

func TestFormSubmitRefusedWhileLoading(t *testing.T) {
	form := Form{Loading: true}

	_, err := form.Submit(context.Background(), Default(), "LOT", func(ctx context.Context, sub Submission) error {
		t.Fatal("callback must not run while loading")
		return nil
	})
	require.True(t, apperrors.IsCode(err, "prediction_in_flight"))
}

func TestSetWithAndGet(t *testing.T) {
	s := Default().With(Taux0, 4)
	require.Equal(t, 4.0, s.Get(Taux0))
	require.Equal(t, 0.0, s.Get("unknown"))
	require.Equal(t, "< 250 µm", Label(Taux0))

	merged := FromMap(Default(), map[string]float64{Taux2mm: 1})
	require.Equal(t, 1.0, merged.Taux2mm)
	require.Equal(t, 53.44, merged.Taux1mm)
}
