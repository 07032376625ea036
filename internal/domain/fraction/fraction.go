package fraction

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/yanqian/thermostraw/pkg/errors"
)

const (
	minTotal = 99.0
	maxTotal = 101.0
)

// Default returns the illustrative sample the form starts with.
func Default() Set {
	return Set{
		Taux2mm:   15.83,
		Taux1mm:   53.44,
		Taux500um: 20.46,
		Taux250um: 7.26,
		Taux0:     3.01,
	}
}

// FromMap builds a set, falling back to base for missing names.
func FromMap(base Set, values map[string]float64) Set {
	out := base
	for name, v := range values {
		out = out.With(name, v)
	}
	return out
}

// Values returns the percentages in domain order.
func (s Set) Values() []float64 {
	return []float64{s.Taux2mm, s.Taux1mm, s.Taux500um, s.Taux250um, s.Taux0}
}

// Get returns the value of a named fraction.
func (s Set) Get(name string) float64 {
	switch name {
	case Taux2mm:
		return s.Taux2mm
	case Taux1mm:
		return s.Taux1mm
	case Taux500um:
		return s.Taux500um
	case Taux250um:
		return s.Taux250um
	case Taux0:
		return s.Taux0
	}
	return 0
}

// With returns a copy of s with one fraction replaced. Unknown names are ignored.
func (s Set) With(name string, v float64) Set {
	switch name {
	case Taux2mm:
		s.Taux2mm = v
	case Taux1mm:
		s.Taux1mm = v
	case Taux500um:
		s.Taux500um = v
	case Taux250um:
		s.Taux250um = v
	case Taux0:
		s.Taux0 = v
	}
	return s
}

// Total sums the five fractions.
func (s Set) Total() float64 {
	var total float64
	for _, v := range s.Values() {
		total += v
	}
	return total
}

// ParseValue coerces user input to a non-negative percentage. Anything that
// does not parse as a finite number becomes 0.
func ParseValue(raw string) float64 {
	clean := strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	if clean == "" {
		return 0
	}
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}

// ParseForm reads the five fraction fields and the batch number from raw form values.
func ParseForm(get func(key string) string) (Set, string) {
	var set Set
	for _, name := range Names {
		set = set.With(name, ParseValue(get(name)))
	}
	return set, get("batchNumber")
}

// TotalStatus computes the running total shown while typing.
func TotalStatus(s Set) Running {
	total := s.Total()
	return Running{
		Total:   total,
		Display: FormatPercent(total),
		Warn:    math.Abs(total-100) > 1,
	}
}

// FormatPercent renders a percentage with two decimals.
func FormatPercent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

// Validate checks the sum tolerance and, when required, the batch number.
func Validate(s Set, batch string, requireBatch bool) error {
	for _, v := range s.Values() {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return apperrors.Wrap("invalid_input", "fractions must be non-negative numbers", nil)
		}
	}
	total := s.Total()
	if total < minTotal || total > maxTotal {
		return apperrors.Wrap("invalid_input", fmt.Sprintf("fractions must sum to roughly 100%%, currently %s", FormatPercent(total)), nil)
	}
	if requireBatch && strings.TrimSpace(batch) == "" {
		return apperrors.Wrap("invalid_input", "batch number is required", nil)
	}
	return nil
}

// NewSubmission captures a set with its trimmed batch number and capture time.
func NewSubmission(s Set, batch string, now time.Time) Submission {
	return Submission{
		Fractions:   s,
		BatchNumber: strings.TrimSpace(batch),
		Timestamp:   now.UTC().Truncate(time.Second),
	}
}

// SubmitFunc receives a validated submission.
type SubmitFunc func(ctx context.Context, sub Submission) error

// Form applies the input rules before handing a submission to its callback.
type Form struct {
	RequireBatch bool
	Loading      bool
	Now          func() time.Time
}

// Submit validates the input and calls submit only when it passes.
func (f Form) Submit(ctx context.Context, s Set, batch string, submit SubmitFunc) (Submission, error) {
	if f.Loading {
		return Submission{}, apperrors.Wrap("prediction_in_flight", "a prediction is already running", nil)
	}
	if err := Validate(s, batch, f.RequireBatch); err != nil {
		return Submission{}, err
	}
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}
	sub := NewSubmission(s, batch, now())
	if submit == nil {
		return sub, nil
	}
	return sub, submit(ctx, sub)
}
