package dashboard

import (
	"context"

	"github.com/yanqian/thermostraw/internal/domain/fraction"
	"github.com/yanqian/thermostraw/internal/domain/prediction"
)

// Predictor is the prediction backend.
type Predictor interface {
	Predict(ctx context.Context, set fraction.Set) (prediction.Prediction, error)
	SaveChartImage(ctx context.Context, set fraction.Set, chartImage string) (string, error)
	ExportCSV(ctx context.Context) (CSVExport, error)
}

// SessionStore persists shell state per session.
type SessionStore interface {
	Load(ctx context.Context, sessionID string) (State, bool, error)
	Save(ctx context.Context, state State) error
}

// RecordRepository keeps the prediction history.
type RecordRepository interface {
	Append(ctx context.Context, rec Record) error
	List(ctx context.Context, limit int) ([]Record, error)
}

// ChartArchive stores rendered chart snapshots.
type ChartArchive interface {
	Put(ctx context.Context, key string, png []byte) (string, error)
}

// JobQueue enqueues background jobs.
type JobQueue interface {
	Enqueue(ctx context.Context, name string, payload any) error
}

// Documents renders downloadable reports.
type Documents interface {
	ReportPDF(summary prediction.Summary, chartPNG []byte) ([]byte, error)
	HistoryXLSX(records []Record) ([]byte, error)
}
