package chart

// Axis bounds of the distribution chart, in percent.
const (
	AxisMin = 0.0
	AxisMax = 70.0
)

// Margins widen [min, max] into the four confidence bands, narrowest first.
var Margins = [4]float64{1, 3, 6, 10}

// interpolationSteps is the number of synthetic points between two real ones.
const interpolationSteps = 4

// Input is one measured fraction with its optimal range.
type Input struct {
	Name  string  `json:"name"`
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

// Band is a confidence band around the optimal range, clamped to the axis.
type Band struct {
	Margin float64 `json:"margin"`
	Low    float64 `json:"low"`
	High   float64 `json:"high"`
}

// Point is a chart row. Interpolated points only smooth the band lines:
// they carry no marker and no tooltip.
type Point struct {
	Name           string  `json:"name"`
	Label          string  `json:"label,omitempty"`
	X              float64 `json:"x"`
	Value          float64 `json:"value"`
	Min            float64 `json:"min"`
	Max            float64 `json:"max"`
	Bands          [4]Band `json:"bands"`
	InRange        bool    `json:"inRange"`
	IsInterpolated bool    `json:"isInterpolated"`
}

// Confidence is the discrete label reported in tooltips.
type Confidence string

const (
	ConfidenceVeryHigh Confidence = "very_high"
	ConfidenceHigh     Confidence = "high"
	ConfidenceMedium   Confidence = "medium"
	ConfidenceLow      Confidence = "low"
	ConfidenceVeryLow  Confidence = "very_low"
)

// Tip is the tooltip content of a real point.
type Tip struct {
	Name            string     `json:"name"`
	Label           string     `json:"label"`
	Value           float64    `json:"value"`
	Min             float64    `json:"min"`
	Max             float64    `json:"max"`
	InRange         bool       `json:"inRange"`
	Deviation       float64    `json:"deviation"`
	DeviationText   string     `json:"deviationText,omitempty"`
	Confidence      Confidence `json:"confidence"`
	ConfidenceLabel string     `json:"confidenceLabel"`
}

// Marker describes how a point is drawn.
type Marker int

const (
	MarkerNone Marker = iota
	MarkerInRange
	MarkerOutOfRange
)
