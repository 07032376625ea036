package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/thermostraw/internal/domain/chart"
	"github.com/yanqian/thermostraw/internal/domain/dashboard"
	"github.com/yanqian/thermostraw/internal/domain/prediction"
	"github.com/yanqian/thermostraw/internal/domain/threshold"
	"github.com/yanqian/thermostraw/internal/infra/chartarchive"
	"github.com/yanqian/thermostraw/internal/infra/config"
	"github.com/yanqian/thermostraw/internal/infra/document"
	"github.com/yanqian/thermostraw/internal/infra/predictor"
	"github.com/yanqian/thermostraw/internal/infra/queue"
	"github.com/yanqian/thermostraw/internal/infra/recordrepo"
	"github.com/yanqian/thermostraw/internal/infra/sessionstore"
)

const validPrediction = `{"fractions":{"taux_2mm":15.83,"taux_1mm":53.44,"taux_500um":20.46,"taux_250um":7.26,"taux_0":3.01},"batchNumber":"LOT-42"}`

func TestRouter_HealthDoesNotNeedSession(t *testing.T) {
	env := newRouterUnderTest(t, nil)

	rec := env.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, rec.Header().Values("Set-Cookie"))
}

func TestRouter_PageStartsSession(t *testing.T) {
	env := newRouterUnderTest(t, nil)

	rec := env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rec.Body.String(), "ThermoStraw Analyzer")
	require.Contains(t, rec.Body.String(), `name="taux_500um"`)
	require.NotEmpty(t, env.cookie)
}

func TestRouter_PredictThenReports(t *testing.T) {
	env := newRouterUnderTest(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/predictions", validPrediction)
	require.Equal(t, http.StatusOK, rec.Code)

	var state dashboard.State
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.NotNil(t, state.Prediction)
	require.Equal(t, 0.041, state.Prediction.LambdaPredicted)
	require.False(t, state.Loading)
	require.Equal(t, "LOT-42", state.Input.BatchNumber)

	rec = env.do(t, http.MethodGet, "/api/v1/report.txt", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "PREDICTION RESULTS")
	require.Contains(t, rec.Body.String(), "LOT-42")

	rec = env.do(t, http.MethodGet, "/api/v1/chart.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = env.do(t, http.MethodPost, "/api/v1/chart/export?clipboard=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var out chartExportResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Equal(t, chart.MethodDownload, out.Method)
	require.True(t, strings.HasPrefix(out.DataURL, "data:image/png;base64,"))

	rec = env.do(t, http.MethodPost, "/api/v1/report/copy?clipboard=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var copied prediction.CopyOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &copied))
	require.Equal(t, prediction.CopyManual, copied.Method)

	rec = env.do(t, http.MethodGet, "/api/v1/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "LOT-42")

	rec = env.do(t, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "0.0410 W/(m·K)")
}

func TestRouter_InvalidSumNeverReachesBackend(t *testing.T) {
	env := newRouterUnderTest(t, nil)

	body := `{"fractions":{"taux_2mm":10,"taux_1mm":10,"taux_500um":10,"taux_250um":10,"taux_0":10},"batchNumber":"LOT-1"}`
	rec := env.do(t, http.MethodPost, "/api/v1/predictions", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "invalid_input", errBody["error"]["code"])
	require.Contains(t, errBody["error"]["message"], "50.00%")
	require.Zero(t, env.backend.predictCalls.Load())
}

func TestRouter_PredictInvalidJSON(t *testing.T) {
	env := newRouterUnderTest(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/predictions", `{"fractions":"nope"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_request", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_BackendDetailIsShownVerbatim(t *testing.T) {
	env := newRouterUnderTest(t, func(w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"Erreur predict-image: model not loaded"}`))
	})

	rec := env.do(t, http.MethodPost, "/api/v1/predictions", validPrediction)
	require.Equal(t, http.StatusBadGateway, rec.Code)
	errBody := decodeErrorBody(t, rec.Body.Bytes())
	require.Equal(t, "backend_error", errBody["error"]["code"])
	require.Equal(t, "Erreur predict-image: model not loaded", errBody["error"]["message"])

	rec = env.do(t, http.MethodGet, "/api/v1/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var page dashboard.Page
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Equal(t, "Erreur predict-image: model not loaded", page.State.Error)
	require.Nil(t, page.State.Prediction)
	require.False(t, page.State.Loading)
}

func TestRouter_ChartNeedsSubmission(t *testing.T) {
	env := newRouterUnderTest(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/chart.png", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "invalid_input", decodeErrorBody(t, rec.Body.Bytes())["error"]["code"])
}

func TestRouter_RunningTotal(t *testing.T) {
	env := newRouterUnderTest(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/fractions/total?taux_2mm=50&taux_1mm=45,5&taux_500um=abc", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"total":95.5,"display":"95.50%","warn":true}`, rec.Body.String())
}

func TestRouter_ThresholdDialogFlow(t *testing.T) {
	env := newRouterUnderTest(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/threshold/open", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, threshold.StatePINEntry, decodeSnapshot(t, rec.Body.Bytes()).State)

	rec = env.do(t, http.MethodPost, "/api/v1/threshold/pin", `{"pin":"0000"}`)
	require.Equal(t, http.StatusForbidden, rec.Code)
	var rejected struct {
		Error  map[string]string  `json:"error"`
		Dialog threshold.Snapshot `json:"dialog"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rejected))
	require.Equal(t, "pin_rejected", rejected.Error["code"])
	require.Equal(t, threshold.StatePINEntry, rejected.Dialog.State)
	require.Equal(t, "Incorrect PIN", rejected.Dialog.Error)

	rec = env.do(t, http.MethodPost, "/api/v1/threshold/pin", `{"pin":"1234"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, threshold.StateThresholdEntry, decodeSnapshot(t, rec.Body.Bytes()).State)

	rec = env.do(t, http.MethodPost, "/api/v1/threshold/value", `{"threshold":0.5}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/v1/threshold/value", `{"threshold":0.05}`)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decodeSnapshot(t, rec.Body.Bytes())
	require.Equal(t, threshold.StateSuccess, snap.State)
	require.NotNil(t, snap.ClosesAt)

	rec = env.do(t, http.MethodGet, "/api/v1/threshold", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var info dashboard.ThresholdInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &info))
	require.Equal(t, 0.05, info.Threshold)
	require.True(t, info.Loaded)
	require.Equal(t, "1234", env.backend.lastPIN.Load())
}

func TestRouter_DialogStateConflict(t *testing.T) {
	env := newRouterUnderTest(t, nil)

	rec := env.do(t, http.MethodPost, "/api/v1/threshold/back", "")
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestRouter_ForgedCookieStartsNewSession(t *testing.T) {
	env := newRouterUnderTest(t, nil)
	env.cookie = &http.Cookie{Name: "thermostraw_session", Value: "not-a-token"}

	rec := env.do(t, http.MethodGet, "/api/v1/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEqual(t, "not-a-token", env.cookie.Value)
}

func TestRouter_ExportCSVPassthrough(t *testing.T) {
	env := newRouterUnderTest(t, nil)

	rec := env.do(t, http.MethodGet, "/api/v1/export.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "lot,lambda\nLOT-42,0.041\n", rec.Body.String())
	require.Contains(t, rec.Header().Get("Content-Disposition"), "records.csv")
}

func TestRouter_ExportCSVQuotesFilename(t *testing.T) {
	env := newRouterUnderTest(t, nil)
	env.backend.disposition = `attachment; filename*=UTF-8''lot%20%229%22%3B%20x.csv`

	rec := env.do(t, http.MethodGet, "/api/v1/export.csv", "")
	require.Equal(t, http.StatusOK, rec.Code)

	disposition, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
	require.NoError(t, err)
	require.Equal(t, "attachment", disposition)
	require.Equal(t, `lot "9"; x.csv`, params["filename"])
}

func TestRouter_DownloadsCarryAttachmentFilename(t *testing.T) {
	env := newRouterUnderTest(t, nil)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/predictions", validPrediction).Code)

	for path, want := range map[string]string{
		"/api/v1/report.pdf":   "thermostraw_report.pdf",
		"/api/v1/history.xlsx": "thermostraw_history.xlsx",
	} {
		rec := env.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, rec.Code, path)
		_, params, err := mime.ParseMediaType(rec.Header().Get("Content-Disposition"))
		require.NoError(t, err, path)
		require.Equal(t, want, params["filename"], path)
	}
}

func TestRouter_RejectedFormPostEchoesInput(t *testing.T) {
	env := newRouterUnderTest(t, nil)
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, "/api/v1/predictions", validPrediction).Code)

	values := url.Values{"batchNumber": {"LOT-9"}}
	for _, name := range []string{"taux_2mm", "taux_1mm", "taux_500um", "taux_250um", "taux_0"} {
		values.Set(name, "10")
	}
	rec := env.postForm(t, "/predict", values)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, int32(1), env.backend.predictCalls.Load())

	body := rec.Body.String()
	require.Contains(t, body, `value="10.00"`)
	require.NotContains(t, body, `value="15.83"`)
	require.Contains(t, body, `value="LOT-9"`)
	require.NotContains(t, body, `value="LOT-42"`)
	require.Contains(t, body, `<p id="running-total" class="warn">Total: <span>50.00%</span>`)

	panel := strings.Index(body, `id="input-panel"`)
	notice := strings.Index(body, `id="form-notice"`)
	results := strings.Index(body, `id="results"`)
	require.True(t, panel >= 0 && panel < notice && notice < results, "notice must sit in the input panel")
	require.Contains(t, body[notice:results], "currently 50.00%")
}

func TestIPRateLimiter(t *testing.T) {
	limiter := newIPRateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerMinute: 60, Burst: 2})
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	require.True(t, limiter.allow("1.1.1.1"))
	require.True(t, limiter.allow("1.1.1.1"))
	require.False(t, limiter.allow("1.1.1.1"))
	require.True(t, limiter.allow("2.2.2.2"))

	now = now.Add(time.Second)
	require.True(t, limiter.allow("1.1.1.1"))
}

type fakeBackend struct {
	predictCalls atomic.Int32
	lastPIN      atomic.Value
	predict      func(w http.ResponseWriter)
	disposition  string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/predict-image":
		b.predictCalls.Add(1)
		if b.predict != nil {
			b.predict(w)
			return
		}
		_, _ = w.Write([]byte(`{"lambda_predicted":0.041,"confidence_interval":0.0012,"status":"conforme",
			"optimal_ranges":{"taux_2mm":[12,18],"taux_1mm":[50,58],"taux_500um":[18,24],"taux_250um":[5,9],"taux_0":[1,4]}}`))
	case "/current-threshold":
		_, _ = w.Write([]byte(`{"threshold":0.045}`))
	case "/verify-pin":
		var body struct {
			PIN string `json:"pin"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(map[string]bool{"valid": body.PIN == "1234"})
	case "/update-threshold":
		var body struct {
			PIN       string  `json:"pin"`
			Threshold float64 `json:"threshold"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.lastPIN.Store(body.PIN)
		_ = json.NewEncoder(w).Encode(map[string]bool{"success": body.PIN == "1234"})
	case "/export-csv":
		w.Header().Set("Content-Type", "text/csv")
		disposition := b.disposition
		if disposition == "" {
			disposition = `attachment; filename="records.csv"`
		}
		w.Header().Set("Content-Disposition", disposition)
		_, _ = w.Write([]byte("lot,lambda\nLOT-42,0.041\n"))
	default:
		http.NotFound(w, r)
	}
}

type routerEnv struct {
	server  *http.Server
	backend *fakeBackend
	cookie  *http.Cookie
}

func (e *routerEnv) postForm(t *testing.T, path string, values url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, req)
	return rec
}

func (e *routerEnv) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.cookie != nil {
		req.AddCookie(e.cookie)
	}
	rec := httptest.NewRecorder()
	e.server.Handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.Name == "thermostraw_session" {
			e.cookie = c
		}
	}
	return rec
}

func newRouterUnderTest(t *testing.T, predict func(w http.ResponseWriter)) *routerEnv {
	t.Helper()
	logger := newTestLogger()

	backend := &fakeBackend{predict: predict}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client := predictor.NewClient(srv.URL, predictor.Paths{}, 5*time.Second, logger)
	store := threshold.NewStore(0.045, logger)
	svc := dashboard.NewService(
		dashboard.Config{RequireBatch: true, ChartWidth: 600, ChartHeight: 300, ArchivePrefix: "charts"},
		client,
		sessionstore.NewMemoryStore(time.Hour),
		recordrepo.NewMemoryRepository(),
		chartarchive.NewMemoryArchive(),
		queue.NewImmediateQueue(nil),
		document.NewRenderer(),
		chart.NewExporter(chart.NewGoChartRenderer(), 600, 300, chart.DefaultPixelCeiling),
		store,
		threshold.NewRegistry(client, store, time.Second, logger),
		logger,
	)

	cfg := &config.Config{
		HTTP: config.HTTPConfig{
			Address:      ":0",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		},
		Session: config.SessionConfig{
			CookieName: "thermostraw_session",
			Secret:     "router-test-secret-0123456789",
			TTL:        time.Hour,
		},
	}
	return &routerEnv{
		server:  NewRouter(cfg, NewDashboardHandler(svc, logger)),
		backend: backend,
	}
}

func newTestLogger() *slog.Logger {
	handler := slog.NewTextHandler(io.Discard, nil)
	return slog.New(handler)
}

func decodeErrorBody(t *testing.T, raw []byte) map[string]map[string]string {
	t.Helper()
	var body map[string]map[string]string
	require.NoError(t, json.Unmarshal(raw, &body))
	return body
}

func decodeSnapshot(t *testing.T, raw []byte) threshold.Snapshot {
	t.Helper()
	var snap threshold.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	return snap
}
