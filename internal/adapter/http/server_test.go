package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/couchcryptid/weir-rating-lab/internal/adapter/http"
	"github.com/couchcryptid/weir-rating-lab/internal/board"
	"github.com/couchcryptid/weir-rating-lab/internal/config"
	"github.com/couchcryptid/weir-rating-lab/internal/domain"
	"github.com/couchcryptid/weir-rating-lab/internal/observability"
	"github.com/couchcryptid/weir-rating-lab/internal/store"
)

// --- mocks ---

type mockHistory struct {
	records    []store.EvaluationRecord
	presets    map[string]store.Preset
	recordsErr error
}

func newMockHistory() *mockHistory {
	return &mockHistory{presets: make(map[string]store.Preset)}
}

func (m *mockHistory) RecentEvaluations(_ context.Context, limit int) ([]store.EvaluationRecord, error) {
	if m.recordsErr != nil {
		return nil, m.recordsErr
	}
	if len(m.records) > limit {
		return m.records[:limit], nil
	}
	return m.records, nil
}

func (m *mockHistory) SavePreset(_ context.Context, name string, params domain.Params, now time.Time) error {
	p, ok := m.presets[name]
	if !ok {
		p = store.Preset{Name: name, CreatedAt: now}
	}
	p.Cd, p.CrestWidth, p.MaxHead = params.Cd, params.CrestWidth, params.MaxHead
	p.UpdatedAt = now
	m.presets[name] = p
	return nil
}

func (m *mockHistory) GetPreset(_ context.Context, name string) (store.Preset, error) {
	p, ok := m.presets[name]
	if !ok {
		return store.Preset{}, fmt.Errorf("%w: %q", store.ErrPresetNotFound, name)
	}
	return p, nil
}

func (m *mockHistory) ListPresets(_ context.Context) ([]store.Preset, error) {
	var out []store.Preset
	for _, p := range m.presets {
		out = append(out, p)
	}
	return out, nil
}

func (m *mockHistory) DeletePreset(_ context.Context, name string) error {
	if _, ok := m.presets[name]; !ok {
		return fmt.Errorf("%w: %q", store.ErrPresetNotFound, name)
	}
	delete(m.presets, name)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, history httpadapter.History) (*httpadapter.Server, *board.Board) {
	t.Helper()
	metrics := observability.NewMetricsForTesting()
	b, err := board.New(domain.DefaultParams(), domain.DefaultBounds(), domain.DefaultSampling(),
		nil, nil, discardLogger(), metrics)
	require.NoError(t, err)

	cfg := &config.Config{HTTPAddr: ":0", RateLimitRPS: 1000, RateLimitBurst: 1000}
	return httpadapter.NewServer(cfg, b, history, discardLogger(), metrics), b
}

func doRequest(srv *httpadapter.Server, method, target string, body io.Reader) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, body)
	srv.ServeHTTP(rec, req)
	return rec
}

// --- ops endpoints ---

func TestHealthzReturns200(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())
	rec := doRequest(srv, http.MethodGet, "/healthz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())
	rec := doRequest(srv, http.MethodGet, "/readyz", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())
	rec := doRequest(srv, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

// --- params ---

func TestGetParams(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())
	rec := doRequest(srv, http.MethodGet, "/api/v1/params", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var params domain.Params
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &params))
	assert.Equal(t, domain.DefaultParams(), params)
}

func TestApplyParams(t *testing.T) {
	srv, b := newTestServer(t, newMockHistory())

	rec := doRequest(srv, http.MethodPut, "/api/v1/params", strings.NewReader(`{"cd":0.5,"max_head":1.5}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Evaluation struct {
			ID            string        `json:"id"`
			Params        domain.Params `json:"params"`
			PeakDischarge float64       `json:"peak_discharge"`
		} `json:"evaluation"`
		Clamped []string `json:"clamped"`
		Changed bool     `json:"changed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.True(t, resp.Changed)
	assert.Empty(t, resp.Clamped)
	assert.Equal(t, 0.5, resp.Evaluation.Params.Cd)
	assert.Equal(t, 1.5, resp.Evaluation.Params.MaxHead)
	assert.Greater(t, resp.Evaluation.PeakDischarge, 0.0)
	assert.Equal(t, 0.5, b.Params().Cd, "board state updated")
}

func TestApplyParams_ReportsClampedFields(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())

	rec := doRequest(srv, http.MethodPatch, "/api/v1/params", strings.NewReader(`{"crest_width":99}`))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Clamped []string `json:"clamped"`
		Changed bool     `json:"changed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"crest_width"}, resp.Clamped)
	assert.True(t, resp.Changed)
}

func TestApplyParams_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"cd":`},
		{"unknown field", `{"coefficient":0.5}`},
		{"wrong type", `{"cd":"big"}`},
		{"out of float range", `{"cd":1e999}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPut, "/api/v1/params", strings.NewReader(tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

// --- bounds and curve ---

func TestBounds(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())
	rec := doRequest(srv, http.MethodGet, "/api/v1/bounds", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Bounds   domain.Bounds   `json:"bounds"`
		Sampling domain.Sampling `json:"sampling"`
		Defaults domain.Params   `json:"defaults"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, domain.DefaultBounds(), resp.Bounds)
	assert.Equal(t, domain.DefaultSampling(), resp.Sampling)
	assert.Equal(t, domain.DefaultParams(), resp.Defaults)
}

func TestCurve(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())
	rec := doRequest(srv, http.MethodGet, "/api/v1/curve", nil)

	require.Equal(t, http.StatusOK, rec.Code)

	var eval domain.Evaluation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &eval))
	require.Len(t, eval.Curve, domain.DefaultSampleCount)
	assert.Equal(t, 0.01, eval.Curve[0].Head)
	assert.Equal(t, 1.0, eval.Curve[len(eval.Curve)-1].Head)
}

// --- downloads ---

func TestCurveCSV(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())
	rec := doRequest(srv, http.MethodGet, "/api/v1/curve.csv", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "rating-curve.csv")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "head_m,discharge_m3_s\n"))
}

func TestCurveXLSX(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())
	rec := doRequest(srv, http.MethodGet, "/api/v1/curve.xlsx", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
	// XLSX is a zip container.
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
}

func TestPlotPNG(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())
	rec := doRequest(srv, http.MethodGet, "/api/v1/plot.png", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte{0x89, 'P', 'N', 'G'}))
}

func TestPlotSVG(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())
	rec := doRequest(srv, http.MethodGet, "/api/v1/plot.svg", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")
}

func TestReportPDF(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())
	rec := doRequest(srv, http.MethodGet, "/api/v1/report.pdf", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))
}

// --- stream ---

func TestStreamSendsCurrentEvaluationFirst(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stream", nil).WithContext(ctx)
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, "event: curve\n")
	assert.Contains(t, body, `"max_head":1`)
}

// --- history ---

func TestHistory(t *testing.T) {
	history := newMockHistory()
	history.records = []store.EvaluationRecord{
		{EvalID: "weir-aaa", Cd: 0.6}, {EvalID: "weir-bbb", Cd: 0.5}, {EvalID: "weir-ccc", Cd: 0.4},
	}
	srv, _ := newTestServer(t, history)

	rec := doRequest(srv, http.MethodGet, "/api/v1/history?limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var records []store.EvaluationRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	assert.Len(t, records, 2)
}

func TestHistory_BadLimit(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())

	rec := doRequest(srv, http.MethodGet, "/api/v1/history?limit=zero", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// --- presets ---

func TestPresets_CRUD(t *testing.T) {
	history := newMockHistory()
	srv, b := newTestServer(t, history)

	// Save the board's current parameters under a name.
	rec := doRequest(srv, http.MethodPost, "/api/v1/presets", strings.NewReader(`{"name":"baseline"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	var saved store.Preset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &saved))
	assert.Equal(t, "baseline", saved.Name)
	assert.Equal(t, domain.DefaultParams(), saved.Params())

	// Save explicit parameters.
	rec = doRequest(srv, http.MethodPost, "/api/v1/presets",
		strings.NewReader(`{"name":"narrow","params":{"cd":0.45,"crest_width":0.5,"max_head":0.4}}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	// List.
	rec = doRequest(srv, http.MethodGet, "/api/v1/presets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var presets []store.Preset
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &presets))
	assert.Len(t, presets, 2)

	// Apply moves the board.
	rec = doRequest(srv, http.MethodPost, "/api/v1/presets/narrow/apply", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.Params{Cd: 0.45, CrestWidth: 0.5, MaxHead: 0.4}, b.Params())

	// Delete.
	rec = doRequest(srv, http.MethodDelete, "/api/v1/presets/narrow", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doRequest(srv, http.MethodDelete, "/api/v1/presets/narrow", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPresets_ApplyUnknownReturns404(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())
	rec := doRequest(srv, http.MethodPost, "/api/v1/presets/ghost/apply", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPresets_SaveValidation(t *testing.T) {
	srv, _ := newTestServer(t, newMockHistory())

	rec := doRequest(srv, http.MethodPost, "/api/v1/presets", strings.NewReader(`{}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing name")

	rec = doRequest(srv, http.MethodPost, "/api/v1/presets",
		strings.NewReader(`{"name":"bad","params":{"cd":-1,"crest_width":1,"max_head":1}}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "invalid params")
}

// --- rate limiting ---

func TestRateLimitReturns429(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	b, err := board.New(domain.DefaultParams(), domain.DefaultBounds(), domain.DefaultSampling(),
		nil, nil, discardLogger(), metrics)
	require.NoError(t, err)

	cfg := &config.Config{HTTPAddr: ":0", RateLimitRPS: 1, RateLimitBurst: 2}
	srv := httpadapter.NewServer(cfg, b, newMockHistory(), discardLogger(), metrics)

	codes := make(map[int]int)
	for i := 0; i < 5; i++ {
		rec := doRequest(srv, http.MethodGet, "/api/v1/params", nil)
		codes[rec.Code]++
	}
	assert.Equal(t, 2, codes[http.StatusOK], "burst allows two requests")
	assert.Equal(t, 3, codes[http.StatusTooManyRequests])
}

func TestRateLimitDoesNotCoverOpsEndpoints(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	b, err := board.New(domain.DefaultParams(), domain.DefaultBounds(), domain.DefaultSampling(),
		nil, nil, discardLogger(), metrics)
	require.NoError(t, err)

	cfg := &config.Config{HTTPAddr: ":0", RateLimitRPS: 1, RateLimitBurst: 1}
	srv := httpadapter.NewServer(cfg, b, newMockHistory(), discardLogger(), metrics)

	for i := 0; i < 5; i++ {
		rec := doRequest(srv, http.MethodGet, "/healthz", nil)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
