package predictor

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yanqian/thermostraw/internal/domain/fraction"
	apperrors "github.com/yanqian/thermostraw/pkg/errors"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, Paths{}, 5*time.Second, newTestLogger())
}

func TestPredictDecodesResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/predict-image", r.URL.Path)
		var body map[string]float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, 15.83, body["taux_2mm"])
		require.Len(t, body, 5)

		_, _ = w.Write([]byte(`{"lambda_predicted":0.041,"confidence_interval":0.0012,"status":"conforme","threshold":0.045,
			"optimal_ranges":{"taux_2mm":[12,18]},"ee_best":1.2}`))
	})

	p, err := client.Predict(context.Background(), fraction.Default())
	require.NoError(t, err)
	require.Equal(t, 0.041, p.LambdaPredicted)
	require.Equal(t, "conforme", p.Status)
	require.NotNil(t, p.Threshold)
	require.Equal(t, 0.045, *p.Threshold)
	require.Equal(t, [2]float64{12, 18}, p.OptimalRanges["taux_2mm"])
	require.NotNil(t, p.EEBest)
	require.Nil(t, p.R1pLog)
}

func TestPredictMissingLambdaIsInvalid(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"green"}`))
	})

	_, err := client.Predict(context.Background(), fraction.Default())
	require.True(t, apperrors.IsCode(err, "invalid_response"))
}

func TestServerErrorDetailIsSurfacedVerbatim(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"Erreur predict-image: model not loaded"}`))
	})

	_, err := client.Predict(context.Background(), fraction.Default())
	require.True(t, apperrors.IsCode(err, "backend_error"))
	require.Equal(t, "Erreur predict-image: model not loaded", apperrors.MessageOf(err))
}

func TestServerErrorWithoutDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.CurrentThreshold(context.Background())
	require.True(t, apperrors.IsCode(err, "backend_error"))
	require.Contains(t, apperrors.MessageOf(err), "502")
}

func TestTransportErrorIsUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	client := NewClient(url, Paths{}, time.Second, newTestLogger())

	_, err := client.Predict(context.Background(), fraction.Default())
	require.True(t, apperrors.IsCode(err, "backend_unreachable"))
}

func TestThresholdEndpoints(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/current-threshold":
			_, _ = w.Write([]byte(`{"threshold":0.045}`))
		case "/verify-pin":
			var body map[string]string
			_ = json.NewDecoder(r.Body).Decode(&body)
			_, _ = w.Write([]byte(`{"valid":` + boolJSON(body["pin"] == "1234") + `}`))
		case "/update-threshold":
			var body struct {
				PIN       string  `json:"pin"`
				Threshold float64 `json:"threshold"`
			}
			_ = json.NewDecoder(r.Body).Decode(&body)
			if body.PIN != "1234" {
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"detail":"PIN incorrect"}`))
				return
			}
			_, _ = w.Write([]byte(`{"success":true,"new_threshold":0.05}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	value, err := client.CurrentThreshold(ctx)
	require.NoError(t, err)
	require.Equal(t, 0.045, value)

	ok, err := client.VerifyPIN(ctx, "1234")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = client.VerifyPIN(ctx, "0000")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = client.UpdateThreshold(ctx, "1234", 0.05)
	require.NoError(t, err)
	require.True(t, ok)
	_, err = client.UpdateThreshold(ctx, "0000", 0.05)
	require.True(t, apperrors.IsCode(err, "backend_error"))
	require.Equal(t, "PIN incorrect", apperrors.MessageOf(err))
}

func TestSaveChartImageAndExportCSV(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/save-chart-image":
			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, "aGVsbG8=", body["chart_image"])
			require.Contains(t, body, "fractions")
			_, _ = w.Write([]byte(`{"message":"Image sauvegardée sous cleImage"}`))
		case "/export-csv":
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", `attachment; filename="history.csv"`)
			_, _ = w.Write([]byte("taux_2mm,lambda\n15.83,0.041\n"))
		}
	})
	ctx := context.Background()

	id, err := client.SaveChartImage(ctx, fraction.Default(), "aGVsbG8=")
	require.NoError(t, err)
	require.Equal(t, "Image sauvegardée sous cleImage", id)

	csv, err := client.ExportCSV(ctx)
	require.NoError(t, err)
	require.Equal(t, "history.csv", csv.Filename)
	require.Equal(t, "text/csv; charset=utf-8", csv.ContentType)
	require.Contains(t, string(csv.Body), "0.041")
}

func TestConfigurablePaths(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/predict", r.URL.Path)
		_, _ = w.Write([]byte(`{"lambda_predicted":0.04}`))
	})
	client.paths.Predict = "/predict"

	_, err := client.Predict(context.Background(), fraction.Default())
	require.NoError(t, err)
}

func TestDetailFromValidationList(t *testing.T) {
	require.Equal(t, "field required; value is not a float", detailFrom([]byte(`{"detail":[{"msg":"field required"},{"msg":"value is not a float"}]}`)))
	require.Empty(t, detailFrom([]byte(`not json`)))
	require.Equal(t, defaultCSVFilename, filenameFrom(""))
}

func boolJSON(v bool) string {
	if v {
		return "true"
	}
	return "false"
}
