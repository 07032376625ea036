package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/yanqian/thermostraw/internal/domain/dashboard"
	"github.com/yanqian/thermostraw/internal/domain/fraction"
	"github.com/yanqian/thermostraw/internal/domain/prediction"
	"github.com/yanqian/thermostraw/internal/domain/threshold"
	apperrors "github.com/yanqian/thermostraw/pkg/errors"
)

const (
	defaultBaseURL     = "http://localhost:8000"
	defaultCSVFilename = "thermostraw_export.csv"
	maxErrorBody       = 4 << 10
	maxCSVBody         = 32 << 20
)

// Paths are the backend endpoint paths.
type Paths struct {
	Predict          string
	CurrentThreshold string
	VerifyPIN        string
	UpdateThreshold  string
	SaveChartImage   string
	ExportCSV        string
}

// DefaultPaths matches the latest backend revision.
func DefaultPaths() Paths {
	return Paths{
		Predict:          "/predict-image",
		CurrentThreshold: "/current-threshold",
		VerifyPIN:        "/verify-pin",
		UpdateThreshold:  "/update-threshold",
		SaveChartImage:   "/save-chart-image",
		ExportCSV:        "/export-csv",
	}
}

// Client talks to the prediction backend. It never retries.
type Client struct {
	baseURL    string
	paths      Paths
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a backend client.
func NewClient(baseURL string, paths Paths, timeout time.Duration, logger *slog.Logger) *Client {
	url := strings.TrimSpace(baseURL)
	if url == "" {
		url = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(url, "/"),
		paths:   withDefaults(paths),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.With("component", "predictor.client"),
	}
}

type predictResponse struct {
	LambdaPredicted    *float64              `json:"lambda_predicted"`
	ConfidenceInterval float64               `json:"confidence_interval"`
	Status             string                `json:"status"`
	Threshold          *float64              `json:"threshold"`
	OptimalRanges      map[string][2]float64 `json:"optimal_ranges"`
	R1pLog             *float64              `json:"r1p_log"`
	EEBest             *float64              `json:"ee_best"`
}

// Predict sends the five fractions and returns the backend prediction.
func (c *Client) Predict(ctx context.Context, set fraction.Set) (prediction.Prediction, error) {
	var raw predictResponse
	if err := c.do(ctx, http.MethodPost, c.paths.Predict, set, &raw); err != nil {
		return prediction.Prediction{}, err
	}
	if raw.LambdaPredicted == nil {
		return prediction.Prediction{}, apperrors.Wrap("invalid_response", "the prediction server returned no lambda_predicted", nil)
	}
	return prediction.Prediction{
		LambdaPredicted:    *raw.LambdaPredicted,
		ConfidenceInterval: raw.ConfidenceInterval,
		Status:             raw.Status,
		Threshold:          raw.Threshold,
		OptimalRanges:      raw.OptimalRanges,
		R1pLog:             raw.R1pLog,
		EEBest:             raw.EEBest,
	}, nil
}

// CurrentThreshold fetches the active threshold.
func (c *Client) CurrentThreshold(ctx context.Context) (float64, error) {
	var raw struct {
		Threshold *float64 `json:"threshold"`
	}
	if err := c.do(ctx, http.MethodGet, c.paths.CurrentThreshold, nil, &raw); err != nil {
		return 0, err
	}
	if raw.Threshold == nil {
		return 0, apperrors.Wrap("invalid_response", "the prediction server returned no threshold", nil)
	}
	return *raw.Threshold, nil
}

// VerifyPIN asks the backend whether a PIN is valid.
func (c *Client) VerifyPIN(ctx context.Context, pin string) (bool, error) {
	var raw struct {
		Valid bool `json:"valid"`
	}
	if err := c.do(ctx, http.MethodPost, c.paths.VerifyPIN, map[string]string{"pin": pin}, &raw); err != nil {
		return false, err
	}
	return raw.Valid, nil
}

// UpdateThreshold re-sends the PIN with the new threshold.
func (c *Client) UpdateThreshold(ctx context.Context, pin string, value float64) (bool, error) {
	body := struct {
		PIN       string  `json:"pin"`
		Threshold float64 `json:"threshold"`
	}{PIN: pin, Threshold: value}
	var raw struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodPost, c.paths.UpdateThreshold, body, &raw); err != nil {
		return false, err
	}
	return raw.Success, nil
}

// SaveChartImage posts a base64 PNG and returns the backend identifier.
func (c *Client) SaveChartImage(ctx context.Context, set fraction.Set, chartImage string) (string, error) {
	body := struct {
		Fractions  fraction.Set `json:"fractions"`
		ChartImage string       `json:"chart_image"`
	}{Fractions: set, ChartImage: chartImage}
	var raw struct {
		ID      string `json:"id"`
		Key     string `json:"key"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, c.paths.SaveChartImage, body, &raw); err != nil {
		return "", err
	}
	switch {
	case raw.ID != "":
		return raw.ID, nil
	case raw.Key != "":
		return raw.Key, nil
	default:
		return raw.Message, nil
	}
}

// ExportCSV downloads the backend's accumulated records.
func (c *Client) ExportCSV(ctx context.Context) (dashboard.CSVExport, error) {
	resp, err := c.send(ctx, http.MethodGet, c.paths.ExportCSV, nil)
	if err != nil {
		return dashboard.CSVExport{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCSVBody))
	if err != nil {
		return dashboard.CSVExport{}, apperrors.Wrap("backend_unreachable", "the CSV export was interrupted", err)
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "text/csv"
	}
	return dashboard.CSVExport{
		Filename:    filenameFrom(resp.Header.Get("Content-Disposition")),
		ContentType: contentType,
		Body:        body,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any, out any) error {
	resp, err := c.send(ctx, method, path, payload)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrap("invalid_response", "the prediction server returned an unreadable response", err)
	}
	return nil
}

// send performs one request and maps transport and status failures to error codes.
func (c *Client) send(ctx context.Context, method, path string, payload any) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s request: %w", path, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", "path", path, "error", err)
		return nil, apperrors.Wrap("backend_unreachable", "the prediction server is unreachable", err)
	}
	c.logger.Debug("backend request", "method", method, "path", path, "status", resp.StatusCode, "latency_ms", time.Since(start).Milliseconds())

	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		message := detailFrom(raw)
		if message == "" {
			message = fmt.Sprintf("the prediction server answered with status %d", resp.StatusCode)
		}
		return nil, apperrors.Wrap("backend_error", message, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(raw)))
	}
	return resp, nil
}

// detailFrom extracts the backend's "detail" message when it is a plain string.
func detailFrom(raw []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err == nil {
		return strings.TrimSpace(detail)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

func filenameFrom(disposition string) string {
	if disposition == "" {
		return defaultCSVFilename
	}
	_, params, err := mime.ParseMediaType(disposition)
	if err != nil || params["filename"] == "" {
		return defaultCSVFilename
	}
	return params["filename"]
}

func withDefaults(p Paths) Paths {
	d := DefaultPaths()
	if p.Predict == "" {
		p.Predict = d.Predict
	}
	if p.CurrentThreshold == "" {
		p.CurrentThreshold = d.CurrentThreshold
	}
	if p.VerifyPIN == "" {
		p.VerifyPIN = d.VerifyPIN
	}
	if p.UpdateThreshold == "" {
		p.UpdateThreshold = d.UpdateThreshold
	}
	if p.SaveChartImage == "" {
		p.SaveChartImage = d.SaveChartImage
	}
	if p.ExportCSV == "" {
		p.ExportCSV = d.ExportCSV
	}
	return p
}

var (
	_ dashboard.Predictor = (*Client)(nil)
	_ threshold.Backend   = (*Client)(nil)
)
