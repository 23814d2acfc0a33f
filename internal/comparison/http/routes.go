package comparisonhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/fincompare/fincompare/internal/comparison/export"
)

// MountRoutes registers the API endpoints onto r, which is expected to be
// mounted under /api.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	compareLimiter := httprate.Limit(30, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP, httprate.KeyByEndpoint),
		httprate.WithLimitHandler(tooManyRequests),
	)
	exportLimiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(tooManyRequests),
	)

	r.Get("/accounts", h.handleAccounts)
	r.Get("/accounts/groups", h.handleAccountGroups)
	r.Get("/companies/search", h.handleCompanySearch)
	r.Get("/financial/audit-info", h.handleAuditInfo)
	r.Get("/export/jobs/{id}", h.handleGetExportJob)

	r.Group(func(gr chi.Router) {
		gr.Use(compareLimiter)
		gr.Post("/financial/comparison", h.handleCompare)
		gr.Get("/financial/statements", h.handleStatements)
		gr.Get("/financial/ratios", h.handleRatios)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(exportLimiter)
		gr.Post("/export/excel", h.handleExport(export.FormatXLSX))
		gr.Post("/export/csv", h.handleExport(export.FormatCSV))
		gr.Post("/export/pdf", h.handleExport(export.FormatPDF))
		gr.Post("/export/jobs", h.handleCreateExportJob)
	})
}

func tooManyRequests(w http.ResponseWriter, r *http.Request) {
	http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
}
