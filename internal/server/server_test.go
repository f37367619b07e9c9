package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/huangsam/datalens/internal/contract"
	"github.com/huangsam/datalens/internal/iocache"
	"github.com/huangsam/datalens/schema"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *iocache.MemoryRecordStore) {
	t.Helper()
	records := iocache.NewMemoryRecordStore(time.Hour)
	mgr := iocache.NewStoreManager(records, nil, nil)
	cfg := &contract.Config{
		CacheTTL:    time.Hour,
		CORSOrigins: []string{"*"},
		SweepSpec:   contract.DefaultSweepSpec,
		ListenAddr:  "127.0.0.1:0",
	}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(cfg, mgr, logger), records
}

func salesCSV(n int) []byte {
	var b strings.Builder
	b.WriteString("date,sales\n")
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range n {
		fmt.Fprintf(&b, "%s,%d\n", start.AddDate(0, 0, i).Format("2006-01-02"), 50+i)
	}
	return []byte(b.String())
}

func uploadRequest(t *testing.T, target, field, name string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeDetail(t *testing.T, body []byte) string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(body, &out))
	return out["detail"]
}

// TestAnalyzeAndFetch tests the upload, lookup and health routes together.
func TestAnalyzeAndFetch(t *testing.T) {
	s, records := newTestServer(t)

	resp := serve(s, uploadRequest(t, "/analyze?horizon=3&frequency=d", "file", "sales.csv", salesCSV(30)))
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())

	var rec schema.AnalysisRecord
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rec))
	assert.Equal(t, "sales.csv", rec.FileName)
	require.NotNil(t, rec.Forecast)
	assert.Equal(t, 3, rec.Forecast.Horizon)
	assert.Equal(t, schema.Daily, rec.Forecast.Frequency)
	assert.Equal(t, 1, records.Len())

	resp = serve(s, httptest.NewRequest(http.MethodGet, "/analysis/"+rec.AnalysisID, nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var fetched schema.AnalysisRecord
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &fetched))
	assert.Equal(t, rec.AnalysisID, fetched.AnalysisID)

	resp = serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.JSONEq(t, `{"status":"ok","count":1}`, resp.Body.String())
}

// TestAnalyzeRejects tests the 400 and 413 paths of POST /analyze.
func TestAnalyzeRejects(t *testing.T) {
	s, records := newTestServer(t)

	tests := []struct {
		name   string
		req    *http.Request
		status int
		detail string
	}{
		{
			name:   "bad frequency",
			req:    uploadRequest(t, "/analyze?frequency=Q", "file", "a.csv", salesCSV(5)),
			status: http.StatusBadRequest,
			detail: "invalid frequency 'Q'. must be D, W, M",
		},
		{
			name:   "horizon too large",
			req:    uploadRequest(t, "/analyze?horizon=400", "file", "a.csv", salesCSV(5)),
			status: http.StatusBadRequest,
			detail: "horizon must be between 0 and 365 (received 400)",
		},
		{
			name:   "horizon not a number",
			req:    uploadRequest(t, "/analyze?horizon=abc", "file", "a.csv", salesCSV(5)),
			status: http.StatusBadRequest,
			detail: "horizon must be an integer",
		},
		{
			name:   "missing file field",
			req:    uploadRequest(t, "/analyze", "upload", "a.csv", salesCSV(5)),
			status: http.StatusBadRequest,
			detail: msgMissingFile,
		},
		{
			name:   "empty file",
			req:    uploadRequest(t, "/analyze", "file", "a.csv", []byte{}),
			status: http.StatusBadRequest,
			detail: msgEmptyFile,
		},
		{
			name:   "header only",
			req:    uploadRequest(t, "/analyze", "file", "a.csv", []byte("a,b\n")),
			status: http.StatusBadRequest,
			detail: msgNoRows,
		},
		{
			name:   "too large",
			req:    uploadRequest(t, "/analyze", "file", "big.csv", bytes.Repeat([]byte("1,2\n"), contract.MaxUploadBytes/4+1)),
			status: http.StatusRequestEntityTooLarge,
			detail: msgTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := serve(s, tt.req)
			assert.Equal(t, tt.status, resp.Code)
			assert.Equal(t, tt.detail, decodeDetail(t, resp.Body.Bytes()))
		})
	}
	assert.Equal(t, 0, records.Len())
}

// TestGetAnalysisNotFound tests the 404 message for unknown ids.
func TestGetAnalysisNotFound(t *testing.T) {
	s, _ := newTestServer(t)
	resp := serve(s, httptest.NewRequest(http.MethodGet, "/analysis/nope", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, msgNotFound, decodeDetail(t, resp.Body.Bytes()))
}

// TestDownloadReport tests attachments and error paths of /download-report.
func TestDownloadReport(t *testing.T) {
	s, records := newTestServer(t)
	rec := &schema.AnalysisRecord{
		AnalysisID:  "rep-1",
		Summary:     schema.Summary{Rows: 1, Columns: 1, MissingByCol: map[string]int{"a": 0}},
		Columns:     []schema.ColumnProfile{{Name: "a"}},
		Charts:      schema.NewChartBundle(),
		Insights:    []string{"Data looks healthy."},
		PreviewRows: []map[string]any{{"a": 1}},
	}
	records.Put(rec.AnalysisID, rec)

	resp := serve(s, httptest.NewRequest(http.MethodGet, "/download-report?analysis_id=rep-1&format=xlsx", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", resp.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="report_rep-1.xlsx"`, resp.Header().Get("Content-Disposition"))
	assert.Equal(t, []byte("PK"), resp.Body.Bytes()[:2])

	resp = serve(s, httptest.NewRequest(http.MethodGet, "/download-report?analysis_id=rep-1&format=html", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "AI-Powered Data Analysis Report")

	resp = serve(s, httptest.NewRequest(http.MethodGet, "/download-report?analysis_id=rep-1&format=docx", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = serve(s, httptest.NewRequest(http.MethodGet, "/download-report?analysis_id=missing&format=xlsx", nil))
	assert.Equal(t, http.StatusNotFound, resp.Code)
	assert.Equal(t, msgNotFound, decodeDetail(t, resp.Body.Bytes()))
}

// TestMetricsEndpoint tests that analysis counters are exported.
func TestMetricsEndpoint(t *testing.T) {
	s, _ := newTestServer(t)
	require.Equal(t, http.StatusOK, serve(s, uploadRequest(t, "/analyze", "file", "sales.csv", salesCSV(30))).Code)
	require.Equal(t, http.StatusBadRequest, serve(s, uploadRequest(t, "/analyze", "file", "a.csv", []byte{})).Code)

	resp := serve(s, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	body := resp.Body.String()
	assert.Contains(t, body, `datalens_analyses_total{outcome="ok"} 1`)
	assert.Contains(t, body, `datalens_analyses_total{outcome="input_error"} 1`)
	assert.Contains(t, body, `datalens_forecasts_total{frequency="D",reason="ok"} 1`)
	assert.Contains(t, body, "datalens_records_stored 1")
	assert.Contains(t, body, "datalens_analysis_duration_seconds_count 2")
}

// TestCORS tests that preflight requests are answered for any origin.
func TestCORS(t *testing.T) {
	s, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodOptions, "/analyze", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")

	resp := serve(s, req)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Equal(t, "*", resp.Header().Get("Access-Control-Allow-Origin"))
}

func TestReasonLabel(t *testing.T) {
	assert.Equal(t, "ok", reasonLabel(""))
	assert.Equal(t, "no_date_column", reasonLabel("no_date_column"))
	assert.Equal(t, "insufficient_points_d", reasonLabel("insufficient_points_d=4"))
	assert.Equal(t, "forecast_error", reasonLabel("forecast_error: singular"))
}

func TestStartSweeperRejectsBadSpec(t *testing.T) {
	s, _ := newTestServer(t)
	s.cfg.SweepSpec = "not a schedule"
	_, err := s.startSweeper()
	assert.Error(t, err)
}
