package dashboard

import (
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/thermostraw/internal/domain/chart"
	"github.com/yanqian/thermostraw/internal/domain/fraction"
	"github.com/yanqian/thermostraw/internal/domain/prediction"
	"github.com/yanqian/thermostraw/internal/domain/threshold"
)

// JobChartSnapshot is the queue name of the auto mode snapshot job.
const JobChartSnapshot = "chart_snapshot"

// Config tunes the shell.
type Config struct {
	RequireBatch  bool
	DefaultSample fraction.Set
	ChartWidth    int
	ChartHeight   int
	HistoryLimit  int
	ArchivePrefix string
	Model         prediction.Model
}

// State is the shell state of one session. It is always saved as a whole.
type State struct {
	SessionID  string                 `json:"sessionId"`
	Input      *fraction.Submission   `json:"input,omitempty"`
	Prediction *prediction.Prediction `json:"prediction,omitempty"`
	Loading    bool                   `json:"loading"`
	Error      string                 `json:"error,omitempty"`
	ErrorCode  string                 `json:"errorCode,omitempty"`
	UpdatedAt  time.Time              `json:"updatedAt"`
}

// Record is one entry of the local prediction history.
type Record struct {
	ID          uuid.UUID         `json:"id"`
	SessionID   string            `json:"sessionId"`
	BatchNumber string            `json:"batchNumber"`
	Fractions   fraction.Set      `json:"fractions"`
	Lambda      float64           `json:"lambda"`
	Interval    float64           `json:"interval"`
	Status      string            `json:"status"`
	Badge       prediction.Status `json:"badge"`
	Threshold   float64           `json:"threshold"`
	Auto        bool              `json:"auto"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// Page is everything the dashboard page renders for a session.
type Page struct {
	State           State               `json:"state"`
	Form            fraction.Set        `json:"form"`
	BatchNumber     string              `json:"batchNumber"`
	Running         fraction.Running    `json:"running"`
	Threshold       float64             `json:"threshold"`
	ThresholdLoaded bool                `json:"thresholdLoaded"`
	Points          []chart.Point       `json:"points,omitempty"`
	Tips            []chart.Tip         `json:"tips,omitempty"`
	Summary         *prediction.Summary `json:"summary,omitempty"`
	Dialog          threshold.Snapshot  `json:"dialog"`
	Auto            bool                `json:"auto"`
}

// ThresholdInfo is the current threshold as shown outside the dialog.
type ThresholdInfo struct {
	Threshold float64 `json:"threshold"`
	Loaded    bool    `json:"loaded"`
	Display   string  `json:"display"`
}

// CSVExport is the backend CSV download.
type CSVExport struct {
	Filename    string
	ContentType string
	Body        []byte
}

// SnapshotJob asks the worker to render, archive and post a chart.
type SnapshotJob struct {
	SessionID     string                `json:"sessionId"`
	BatchNumber   string                `json:"batchNumber"`
	Fractions     fraction.Set          `json:"fractions"`
	OptimalRanges map[string][2]float64 `json:"optimalRanges,omitempty"`
}
