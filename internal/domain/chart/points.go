package chart

import (
	"fmt"
	"math"

	"github.com/yanqian/thermostraw/internal/domain/fraction"
)

// DefaultRanges are the optimal ranges used when the backend sends none.
var DefaultRanges = map[string][2]float64{
	fraction.Taux2mm:   {12, 18},
	fraction.Taux1mm:   {53, 58},
	fraction.Taux500um: {19, 24},
	fraction.Taux250um: {4, 7},
	fraction.Taux0:     {0, 1},
}

// InputsFrom pairs each fraction with its optimal range, in domain order.
func InputsFrom(s fraction.Set, ranges map[string][2]float64) []Input {
	inputs := make([]Input, 0, len(fraction.Names))
	for _, name := range fraction.Names {
		r, ok := ranges[name]
		if !ok {
			r = DefaultRanges[name]
		}
		inputs = append(inputs, Input{
			Name:  name,
			Label: fraction.Label(name),
			Value: s.Get(name),
			Min:   r[0],
			Max:   r[1],
		})
	}
	return inputs
}

// Bands derives the four confidence bands of a range.
func Bands(lo, hi float64) [4]Band {
	var bands [4]Band
	for i, m := range Margins {
		bands[i] = Band{Margin: m, Low: clamp(lo - m), High: clamp(hi + m)}
	}
	return bands
}

// Build turns the inputs into chart points, inserting interpolated points
// between each pair of neighbours.
func Build(inputs []Input) []Point {
	if len(inputs) == 0 {
		return nil
	}
	out := make([]Point, 0, len(inputs)+(len(inputs)-1)*interpolationSteps)
	for i, cur := range inputs {
		out = append(out, Point{
			Name:    cur.Name,
			Label:   cur.Label,
			X:       float64(i),
			Value:   cur.Value,
			Min:     cur.Min,
			Max:     cur.Max,
			Bands:   Bands(cur.Min, cur.Max),
			InRange: cur.Value >= cur.Min && cur.Value <= cur.Max,
		})
		if i == len(inputs)-1 {
			break
		}
		next := inputs[i+1]
		for j := 1; j <= interpolationSteps; j++ {
			f := float64(j) / float64(interpolationSteps+1)
			lo := lerp(cur.Min, next.Min, f)
			hi := lerp(cur.Max, next.Max, f)
			out = append(out, Point{
				Name:           fmt.Sprintf("%s_%d", cur.Name, j),
				X:              float64(i) + f,
				Value:          lerp(cur.Value, next.Value, f),
				Min:            lo,
				Max:            hi,
				Bands:          Bands(lo, hi),
				IsInterpolated: true,
			})
		}
	}
	return out
}

// Real filters out interpolated points.
func Real(points []Point) []Point {
	out := make([]Point, 0, len(points))
	for _, p := range points {
		if !p.IsInterpolated {
			out = append(out, p)
		}
	}
	return out
}

// MarkerFor reports how a point is drawn.
func MarkerFor(p Point) Marker {
	switch {
	case p.IsInterpolated:
		return MarkerNone
	case p.InRange:
		return MarkerInRange
	default:
		return MarkerOutOfRange
	}
}

// AnyOutOfRange reports whether a real point lies outside its optimal range.
func AnyOutOfRange(points []Point) bool {
	for _, p := range points {
		if MarkerFor(p) == MarkerOutOfRange {
			return true
		}
	}
	return false
}

// Tooltip returns the tooltip of a real point; interpolated points have none.
func Tooltip(p Point) (Tip, bool) {
	if p.IsInterpolated {
		return Tip{}, false
	}
	tip := Tip{
		Name:    p.Name,
		Label:   p.Label,
		Value:   p.Value,
		Min:     p.Min,
		Max:     p.Max,
		InRange: p.InRange,
	}
	switch {
	case p.Value < p.Min:
		tip.Deviation = p.Value - p.Min
		tip.DeviationText = fmt.Sprintf("%.2f%% below the minimum", p.Min-p.Value)
	case p.Value > p.Max:
		tip.Deviation = p.Value - p.Max
		tip.DeviationText = fmt.Sprintf("%.2f%% above the maximum", p.Value-p.Max)
	}
	tip.Confidence = confidenceFor(p)
	tip.ConfidenceLabel = ConfidenceLabel(tip.Confidence)
	return tip, true
}

func confidenceFor(p Point) Confidence {
	within := func(margin float64) bool {
		return p.Value >= p.Min-margin && p.Value <= p.Max+margin
	}
	switch {
	case p.InRange:
		return ConfidenceVeryHigh
	case within(Margins[0]):
		return ConfidenceHigh
	case within(Margins[1]):
		return ConfidenceMedium
	case within(Margins[2]):
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}

// ConfidenceLabel is the human readable form of a confidence level.
func ConfidenceLabel(c Confidence) string {
	switch c {
	case ConfidenceVeryHigh:
		return "Very high confidence (>95%)"
	case ConfidenceHigh:
		return "High confidence (90-95%)"
	case ConfidenceMedium:
		return "Medium confidence (80-90%)"
	case ConfidenceLow:
		return "Low confidence (70-80%)"
	default:
		return "Very low confidence (<70%)"
	}
}

func lerp(a, b, f float64) float64 {
	return a + f*(b-a)
}

func clamp(v float64) float64 {
	return math.Min(AxisMax, math.Max(AxisMin, v))
}
