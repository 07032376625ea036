package dashboard

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yanqian/thermostraw/internal/domain/chart"
	"github.com/yanqian/thermostraw/internal/domain/fraction"
	"github.com/yanqian/thermostraw/internal/domain/prediction"
	"github.com/yanqian/thermostraw/internal/domain/threshold"
	apperrors "github.com/yanqian/thermostraw/pkg/errors"
	"github.com/yanqian/thermostraw/pkg/util"
)

const defaultHistoryLimit = 200

// Service is the application shell: it owns the per-session state and wires the form,
// the backend, the chart and the threshold dialog together.
type Service struct {
	cfg       Config
	predictor Predictor
	sessions  SessionStore
	records   RecordRepository
	archive   ChartArchive
	queue     JobQueue
	documents Documents
	exporter  *chart.Exporter
	store     *threshold.Store
	dialogs   *threshold.Registry
	guard     *inflight
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires up the dashboard shell.
func NewService(
	cfg Config,
	predictor Predictor,
	sessions SessionStore,
	records RecordRepository,
	archive ChartArchive,
	queue JobQueue,
	documents Documents,
	exporter *chart.Exporter,
	store *threshold.Store,
	dialogs *threshold.Registry,
	logger *slog.Logger,
) *Service {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.DefaultSample == (fraction.Set{}) {
		cfg.DefaultSample = fraction.Default()
	}
	return &Service{
		cfg:       cfg,
		predictor: predictor,
		sessions:  sessions,
		records:   records,
		archive:   archive,
		queue:     queue,
		documents: documents,
		exporter:  exporter,
		store:     store,
		dialogs:   dialogs,
		guard:     newInflight(),
		logger:    logger.With("component", "dashboard.service"),
		now:       util.NowUTC,
	}
}

// NewSessionID issues an identifier for a new browser session.
func NewSessionID() string {
	return uuid.NewString()
}

// Page returns what the dashboard renders for a session.
func (s *Service) Page(ctx context.Context, sessionID string) (Page, error) {
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return Page{}, err
	}
	active, loaded := s.activeThreshold(state)

	page := Page{
		State:           state,
		Form:            s.cfg.DefaultSample,
		Threshold:       active,
		ThresholdLoaded: loaded,
		Dialog:          s.dialogView(sessionID),
	}
	if state.Input != nil {
		page.Form = state.Input.Fractions
		page.BatchNumber = state.Input.BatchNumber
		page.Points = s.points(state)
		for _, p := range chart.Real(page.Points) {
			if tip, ok := chart.Tooltip(p); ok {
				page.Tips = append(page.Tips, tip)
			}
		}
	}
	page.Running = fraction.TotalStatus(page.Form)
	if state.Input != nil && state.Prediction != nil {
		summary := prediction.Summarize(*state.Prediction, *state.Input, active, page.Points, s.cfg.Model)
		page.Summary = &summary
	}
	return page, nil
}

// State returns the raw shell state of a session.
func (s *Service) State(ctx context.Context, sessionID string) (State, error) {
	return s.load(ctx, sessionID)
}

// Submit validates the input and runs one prediction. A second submit for the same session
// is refused while the first is outstanding, and failures are never retried.
func (s *Service) Submit(ctx context.Context, sessionID string, set fraction.Set, batch string) (State, error) {
	return s.submit(ctx, sessionID, set, batch, s.cfg.RequireBatch, false)
}

// Auto runs the URL driven prediction when auto=true and all five fractions are present.
// It reports whether auto mode is on, which hides the input panel.
func (s *Service) Auto(ctx context.Context, sessionID string, get func(key string) string) (bool, error) {
	if !strings.EqualFold(strings.TrimSpace(get("auto")), "true") {
		return false, nil
	}
	for _, name := range fraction.Names {
		if strings.TrimSpace(get(name)) == "" {
			return false, nil
		}
	}
	set, batch := fraction.ParseForm(get)
	if strings.TrimSpace(batch) == "" {
		batch = util.AutoBatchNumber(s.now())
	}

	state, err := s.submit(ctx, sessionID, set, batch, false, true)
	if err != nil {
		return true, err
	}
	job := SnapshotJob{SessionID: sessionID, BatchNumber: state.Input.BatchNumber, Fractions: set}
	if state.Prediction != nil {
		job.OptimalRanges = state.Prediction.OptimalRanges
	}
	if s.queue != nil {
		if err := s.queue.Enqueue(ctx, JobChartSnapshot, job.payload()); err != nil {
			s.logger.Warn("enqueue chart_snapshot failed", "error", err, "session_id", sessionID)
		}
	}
	return true, nil
}

func (s *Service) submit(ctx context.Context, sessionID string, set fraction.Set, batch string, requireBatch, auto bool) (State, error) {
	release, acquired := s.guard.acquire(sessionID)
	if acquired {
		defer release()
	}
	form := fraction.Form{RequireBatch: requireBatch, Loading: !acquired, Now: s.now}

	var result State
	_, err := form.Submit(ctx, set, batch, func(ctx context.Context, sub fraction.Submission) error {
		state, err := s.predict(ctx, sessionID, sub, auto)
		result = state
		return err
	})
	if err != nil && result.SessionID == "" {
		return State{}, err
	}
	return result, err
}

func (s *Service) predict(ctx context.Context, sessionID string, sub fraction.Submission, auto bool) (State, error) {
	state := State{
		SessionID: sessionID,
		Input:     &sub,
		Loading:   true,
		UpdatedAt: s.now(),
	}
	if err := s.save(ctx, state); err != nil {
		return State{}, err
	}

	result, err := s.predictor.Predict(ctx, sub.Fractions)
	// The outcome is stored even when the caller went away, or loading would never clear.
	ctx = context.WithoutCancel(ctx)
	state.Loading = false
	state.UpdatedAt = s.now()
	if err != nil {
		state.Error = apperrors.MessageOf(err)
		state.ErrorCode = apperrors.CodeOf(err)
		s.logger.Warn("prediction failed", "session_id", sessionID, "code", state.ErrorCode, "error", err)
		if saveErr := s.save(ctx, state); saveErr != nil {
			s.logger.Error("failed to store prediction error", "error", saveErr)
		}
		return state, err
	}
	state.Prediction = &result
	if err := s.save(ctx, state); err != nil {
		return State{}, err
	}

	active, _ := s.activeThreshold(state)
	rec := Record{
		ID:          uuid.New(),
		SessionID:   sessionID,
		BatchNumber: sub.BatchNumber,
		Fractions:   sub.Fractions,
		Lambda:      result.LambdaPredicted,
		Interval:    result.ConfidenceInterval,
		Status:      result.Status,
		Badge:       prediction.Badge(result.LambdaPredicted, active),
		Threshold:   active,
		Auto:        auto,
		CreatedAt:   state.UpdatedAt,
	}
	if err := s.records.Append(ctx, rec); err != nil {
		s.logger.Warn("failed to append prediction record", "error", err)
	}
	s.logger.Info("prediction stored",
		"session_id", sessionID,
		"batch", sub.BatchNumber,
		"lambda", result.LambdaPredicted,
		"badge", rec.Badge,
	)
	return state, nil
}

// Chart renders the session's chart as PNG.
func (s *Service) Chart(ctx context.Context, sessionID string) ([]byte, error) {
	state, err := s.requireInput(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	img, err := s.exporter.Capture(s.points(state))
	if err != nil {
		return nil, err
	}
	return img.PNG, nil
}

// ExportChart captures the chart for the client. Failures come back as a failed outcome.
func (s *Service) ExportChart(ctx context.Context, sessionID string, capability chart.Capability) (chart.Outcome, error) {
	state, err := s.requireInput(ctx, sessionID)
	if err != nil {
		return chart.Outcome{}, err
	}
	out := s.exporter.Export(s.points(state), capability)
	if out.Method == chart.MethodFailed {
		s.logger.Warn("chart export failed", "session_id", sessionID, "message", out.Message)
	}
	return out, nil
}

// Summary returns the summary of the session's last prediction.
func (s *Service) Summary(ctx context.Context, sessionID string) (prediction.Summary, error) {
	state, err := s.requireInput(ctx, sessionID)
	if err != nil {
		return prediction.Summary{}, err
	}
	if state.Prediction == nil {
		return prediction.Summary{}, apperrors.Wrap("invalid_input", "no prediction available yet", nil)
	}
	active, _ := s.activeThreshold(state)
	return prediction.Summarize(*state.Prediction, *state.Input, active, s.points(state), s.cfg.Model), nil
}

// Report returns the plain-text report.
func (s *Service) Report(ctx context.Context, sessionID string) (string, error) {
	summary, err := s.Summary(ctx, sessionID)
	if err != nil {
		return "", err
	}
	return prediction.ReportText(summary), nil
}

// CopyReport returns the report with the delivery method the client can use.
func (s *Service) CopyReport(ctx context.Context, sessionID string, clipboard bool) (prediction.CopyOutcome, error) {
	summary, err := s.Summary(ctx, sessionID)
	if err != nil {
		return prediction.CopyOutcome{}, err
	}
	return prediction.Copy(summary, clipboard), nil
}

// ReportPDF renders the report with the chart embedded. A chart that cannot be captured
// is left out rather than failing the report.
func (s *Service) ReportPDF(ctx context.Context, sessionID string) ([]byte, error) {
	summary, err := s.Summary(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	var png []byte
	if img, err := s.exporter.Capture(s.points(state)); err == nil {
		png = img.PNG
	} else {
		s.logger.Warn("report chart capture failed", "error", err)
	}
	doc, err := s.documents.ReportPDF(summary, png)
	if err != nil {
		return nil, apperrors.Wrap("storage_error", "failed to render the PDF report", err)
	}
	return doc, nil
}

// History lists the most recent prediction records.
func (s *Service) History(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > s.cfg.HistoryLimit {
		limit = s.cfg.HistoryLimit
	}
	records, err := s.records.List(ctx, limit)
	if err != nil {
		return nil, apperrors.Wrap("storage_error", "failed to load history", err)
	}
	return records, nil
}

// HistoryXLSX exports the history as a spreadsheet.
func (s *Service) HistoryXLSX(ctx context.Context) ([]byte, error) {
	records, err := s.History(ctx, s.cfg.HistoryLimit)
	if err != nil {
		return nil, err
	}
	doc, err := s.documents.HistoryXLSX(records)
	if err != nil {
		return nil, apperrors.Wrap("storage_error", "failed to render the history workbook", err)
	}
	return doc, nil
}

// ExportCSV fetches the backend's CSV export.
func (s *Service) ExportCSV(ctx context.Context) (CSVExport, error) {
	return s.predictor.ExportCSV(ctx)
}

func (s *Service) requireInput(ctx context.Context, sessionID string) (State, error) {
	state, err := s.load(ctx, sessionID)
	if err != nil {
		return State{}, err
	}
	if state.Input == nil {
		return State{}, apperrors.Wrap("invalid_input", "submit a sample first", nil)
	}
	return state, nil
}

func (s *Service) points(state State) []chart.Point {
	if state.Input == nil {
		return nil
	}
	var ranges map[string][2]float64
	if state.Prediction != nil {
		ranges = state.Prediction.OptimalRanges
	}
	return chart.Build(chart.InputsFrom(state.Input.Fractions, ranges))
}

// activeThreshold prefers the store, then the threshold echoed with the prediction.
func (s *Service) activeThreshold(state State) (float64, bool) {
	if v, ok := s.store.Current(); ok {
		return v, true
	}
	if state.Prediction != nil && state.Prediction.Threshold != nil {
		return *state.Prediction.Threshold, true
	}
	return s.store.Fallback(), false
}

func (s *Service) load(ctx context.Context, sessionID string) (State, error) {
	state, found, err := s.sessions.Load(ctx, sessionID)
	if err != nil {
		return State{}, apperrors.Wrap("storage_error", "failed to load dashboard state", err)
	}
	if !found {
		return State{SessionID: sessionID}, nil
	}
	return state, nil
}

func (s *Service) save(ctx context.Context, state State) error {
	if err := s.sessions.Save(ctx, state); err != nil {
		return apperrors.Wrap("storage_error", "failed to store dashboard state", err)
	}
	return nil
}

// inflight tracks sessions with an outstanding prediction.
type inflight struct {
	mu       sync.Mutex
	sessions map[string]struct{}
}

func newInflight() *inflight {
	return &inflight{sessions: make(map[string]struct{})}
}

func (f *inflight) acquire(sessionID string) (func(), bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, busy := f.sessions[sessionID]; busy {
		return nil, false
	}
	f.sessions[sessionID] = struct{}{}
	return func() {
		f.mu.Lock()
		delete(f.sessions, sessionID)
		f.mu.Unlock()
	}, true
}
