package app

import (
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	comparisonhttp "github.com/fincompare/fincompare/internal/comparison/http"
	"github.com/fincompare/fincompare/internal/observability"
	"github.com/fincompare/fincompare/internal/platform/httpx"
	"github.com/fincompare/fincompare/jobs"
	"github.com/fincompare/fincompare/report"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	ComparisonHandler *comparisonhttp.Handler
	ReportHandler     *report.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, CheckHealth(params.Config))
	})

	if params.ComparisonHandler != nil {
		r.Route("/api", params.ComparisonHandler.MountRoutes)
	}
	if params.ReportHandler != nil {
		r.Route("/report", params.ReportHandler.MountRoutes)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}

// Health reports liveness plus which optional collaborators are configured.
type Health struct {
	Status       string    `json:"status"`
	FilingsDir   string    `json:"filings_dir,omitempty"`
	FilingsReady bool      `json:"filings_ready"`
	Directory    string    `json:"directory"`
	PDFRenderer  bool      `json:"pdf_renderer"`
	Timestamp    time.Time `json:"timestamp"`
}

// CheckHealth inspects cfg. Status is "degraded" when the filings directory
// is missing, since every comparison cell would then fail.
func CheckHealth(cfg *Config) Health {
	h := Health{Status: "ok", Directory: "none", Timestamp: time.Now().UTC()}
	if cfg == nil {
		return h
	}
	h.FilingsDir = cfg.FilingsDir
	if info, err := os.Stat(cfg.FilingsDir); err == nil && info.IsDir() {
		h.FilingsReady = true
	} else {
		h.Status = "degraded"
	}
	switch {
	case cfg.PGDSN != "":
		h.Directory = "postgres"
	case cfg.CorpCodeFile != "":
		h.Directory = "file"
	}
	h.PDFRenderer = cfg.GotenbergURL != ""
	return h
}
