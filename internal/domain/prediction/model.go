package prediction

import "time"

// Prediction is the backend response for one submission. It is replaced wholesale on each
// new prediction and never mutated.
type Prediction struct {
	LambdaPredicted    float64               `json:"lambda_predicted"`
	ConfidenceInterval float64               `json:"confidence_interval"`
	Status             string                `json:"status"`
	Threshold          *float64              `json:"threshold,omitempty"`
	OptimalRanges      map[string][2]float64 `json:"optimal_ranges,omitempty"`
	R1pLog             *float64              `json:"r1p_log,omitempty"`
	EEBest             *float64              `json:"ee_best,omitempty"`
}

// Status is the normalised compliance status.
type Status string

const (
	StatusCompliant    Status = "compliant"
	StatusAttention    Status = "attention"
	StatusNonCompliant Status = "non-compliant"
	StatusUnknown      Status = "unknown"
)

// Tier selects the guidance shown with a result.
type Tier string

const (
	TierOptimal   Tier = "optimal"
	TierAttention Tier = "attention"
	TierCritical  Tier = "critical"
)

// Guidance is the headline and advisories of a tier.
type Guidance struct {
	Tier       Tier     `json:"tier"`
	Title      string   `json:"title"`
	Headline   string   `json:"headline"`
	Advisories []string `json:"advisories"`
}

// Parameter is one named model hyperparameter.
type Parameter struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Model describes the backend model for display.
type Model struct {
	Name       string      `json:"name"`
	Indicator  string      `json:"indicator"`
	Parameters []Parameter `json:"parameters"`
}

// FractionLine is one row of the distribution section.
type FractionLine struct {
	Name    string `json:"name"`
	Label   string `json:"label"`
	Display string `json:"display"`
}

// Summary is the rendered view of a prediction and its submission.
type Summary struct {
	BatchNumber   string         `json:"batchNumber"`
	Timestamp     time.Time      `json:"timestamp"`
	Fractions     []FractionLine `json:"fractions"`
	Total         string         `json:"total"`
	Lambda        string         `json:"lambda"`
	Uncertainty   string         `json:"uncertainty"`
	IntervalLow   string         `json:"intervalLow"`
	IntervalHigh  string         `json:"intervalHigh"`
	Threshold     float64        `json:"threshold"`
	ThresholdText string         `json:"thresholdText"`
	Badge         Status         `json:"badge"`
	BackendStatus Status         `json:"backendStatus"`
	Guidance      Guidance       `json:"guidance"`
	GaugePercent  float64        `json:"gaugePercent"`
	Model         Model          `json:"model"`
}

// CopyMethod tells the client how to deliver the report text.
type CopyMethod string

const (
	CopyClipboard CopyMethod = "clipboard"
	CopyManual    CopyMethod = "manual"
)

// CopyOutcome is the tagged result of a copy request.
type CopyOutcome struct {
	Method  CopyMethod `json:"method"`
	Text    string     `json:"text"`
	Message string     `json:"message"`
}
