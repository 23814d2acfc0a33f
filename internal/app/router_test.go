package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	comparisonhttp "github.com/fincompare/fincompare/internal/comparison/http"
	"github.com/fincompare/fincompare/internal/observability"
)

func newTestRouter(t *testing.T) (http.Handler, *bytes.Buffer) {
	t.Helper()
	cfg := &Config{AppEnv: "test", LogFormat: "json", FilingsDir: t.TempDir(), CompareWorkers: 2, MaxCompanies: 10, MaxYears: 5}
	var logs bytes.Buffer
	logger := NewLoggerTo(cfg, &logs)
	stack, err := NewComparisonStack(cfg, logger, nil)
	require.NoError(t, err)

	handler := comparisonhttp.NewHandler(comparisonhttp.Params{
		Logger:  logger,
		Service: stack.Service,
		Catalog: stack.Catalog,
		Audit:   stack.Source,
	})
	return NewRouter(RouterParams{
		Logger:            logger,
		Config:            cfg,
		ComparisonHandler: handler,
		Metrics:           observability.NewMetrics(),
	}), &logs
}

func TestRouterHealthAndSecurityHeaders(t *testing.T) {
	router, logs := newTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health.Status)
	require.True(t, health.FilingsReady)
	require.Equal(t, "none", health.Directory)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.SplitN(logs.Bytes(), []byte("\n"), 2)[0], &entry))
	require.Equal(t, "http request", entry["msg"])
	require.Equal(t, float64(http.StatusOK), entry["status"])
	require.Equal(t, "fincompare", entry["service"])
}

func TestCheckHealthReportsConfiguration(t *testing.T) {
	cfg := &Config{FilingsDir: filepath.Join(t.TempDir(), "missing"), CorpCodeFile: "CORPCODE.xml", GotenbergURL: "http://gotenberg:3000"}
	h := CheckHealth(cfg)
	require.Equal(t, "degraded", h.Status)
	require.False(t, h.FilingsReady)
	require.Equal(t, "file", h.Directory)
	require.True(t, h.PDFRenderer)

	cfg.FilingsDir = t.TempDir()
	cfg.PGDSN = "postgres://localhost/fincompare"
	h = CheckHealth(cfg)
	require.Equal(t, "ok", h.Status)
	require.Equal(t, "postgres", h.Directory)

	require.Equal(t, "ok", CheckHealth(nil).Status)
}

func TestRouterMountsComparisonAPI(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accounts/groups", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := `{"companies":[{"corp_code":"00126380"}],"years":["2023"]}`
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/financial/comparison", bytes.NewBufferString(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Contains(t, rec.Body.String(), `"00126380_2023"`)
	require.Contains(t, rec.Body.String(), `"not_found"`)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	raw, _ := io.ReadAll(rec.Body)
	require.Contains(t, string(raw), `fincompare_http_requests_total{code="200",route="/api/financial/comparison"}`)
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	NewLoggerTo(&Config{LogFormat: "pretty", AppEnv: "dev"}, &buf).Info("hello", slog.Int("n", 1))
	require.Contains(t, buf.String(), "msg=hello")
	require.Contains(t, buf.String(), "env=dev")
}
