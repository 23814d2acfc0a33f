package comparisonhttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/singleflight"

	"github.com/fincompare/fincompare/internal/catalog"
	"github.com/fincompare/fincompare/internal/comparison"
	"github.com/fincompare/fincompare/internal/comparison/export"
	"github.com/fincompare/fincompare/internal/directory"
	"github.com/fincompare/fincompare/internal/filings"
	"github.com/fincompare/fincompare/internal/platform/httpx"
	"github.com/fincompare/fincompare/jobs"
)

const maxBodyBytes = 1 << 20

// ComparisonService runs comparisons.
type ComparisonService interface {
	Compare(ctx context.Context, req comparison.Request) (comparison.Result, error)
}

// AccountCatalog exposes the reference account table.
type AccountCatalog interface {
	Search(query string) []catalog.Entry
	Groups() []catalog.Group
}

// AuditSource fetches audit report attributes.
type AuditSource interface {
	FetchAuditInfo(ctx context.Context, receiptNo string) (filings.AuditInfo, error)
}

// ExportEnqueuer schedules background export builds.
type ExportEnqueuer interface {
	EnqueueExportBuild(ctx context.Context, payload jobs.ExportBuildPayload) (*asynq.TaskInfo, error)
}

// ArtifactStore persists background export artifacts.
type ArtifactStore interface {
	Put(ctx context.Context, a export.Artifact) error
	Get(ctx context.Context, id string) (export.Artifact, error)
}

// Params collects handler dependencies. Companies, Audit, Jobs, Artifacts and
// PDF are optional; the matching routes answer 503 when they are missing.
type Params struct {
	Logger    *slog.Logger
	Service   ComparisonService
	Catalog   AccountCatalog
	Companies directory.Searcher
	Audit     AuditSource
	Jobs      ExportEnqueuer
	Artifacts ArtifactStore
	PDF       export.PDFRenderer
}

// Handler serves the comparison API.
type Handler struct {
	logger    *slog.Logger
	service   ComparisonService
	catalog   AccountCatalog
	companies directory.Searcher
	audit     AuditSource
	jobs      ExportEnqueuer
	artifacts ArtifactStore
	pdf       export.PDFRenderer
	validate  *validator.Validate
	auditOnce singleflight.Group
	now       func() time.Time
}

// NewHandler constructs the comparison HTTP handler.
func NewHandler(p Params) *Handler {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   p.Service,
		catalog:   p.Catalog,
		companies: p.Companies,
		audit:     p.Audit,
		jobs:      p.Jobs,
		artifacts: p.Artifacts,
		pdf:       p.PDF,
		validate:  validator.New(),
		now:       time.Now,
	}
}

func (h *Handler) handleCompare(w http.ResponseWriter, r *http.Request) {
	var payload comparisonPayload
	if err := h.decode(w, r, &payload); err != nil {
		h.respondError(w, r, err)
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	result, err := h.service.Compare(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleStatements(w http.ResponseWriter, r *http.Request) {
	req, err := queryRequest(r.URL.Query(), false)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	result, err := h.service.Compare(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	data := make(map[string]*comparison.Entry, len(result.Entries))
	for _, entry := range result.Ordered() {
		if entry != nil && entry.Statements != nil {
			data[comparison.Key{CorpCode: entry.CorpCode, Year: entry.Year}.String()] = entry
		}
	}
	if len(data) == 0 {
		h.respondError(w, r, fmt.Errorf("%w: no statements filed for the request", filings.ErrNotFound))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": data, "incomplete": incompleteKeys(result)})
}

func (h *Handler) handleRatios(w http.ResponseWriter, r *http.Request) {
	req, err := queryRequest(r.URL.Query(), true)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	result, err := h.service.Compare(r.Context(), req)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	data := make(map[string]ratioEntry, len(result.Entries))
	for _, entry := range result.Ordered() {
		if entry == nil || entry.Ratios == nil {
			continue
		}
		data[comparison.Key{CorpCode: entry.CorpCode, Year: entry.Year}.String()] = ratioEntry{
			CorpCode:    entry.CorpCode,
			CompanyName: entry.CompanyName,
			Year:        entry.Year,
			Ratios:      entry.Ratios,
		}
	}
	if len(data) == 0 {
		h.respondError(w, r, fmt.Errorf("%w: no statements filed for the request", filings.ErrNotFound))
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"data": data, "incomplete": incompleteKeys(result)})
}

func incompleteKeys(result comparison.Result) []string {
	keys := make([]string, 0)
	for _, k := range result.Incomplete() {
		keys = append(keys, k.String())
	}
	return keys
}

func (h *Handler) handleExport(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload exportPayload
		if err := h.decode(w, r, &payload); err != nil {
			h.respondError(w, r, err)
			return
		}
		if format == export.FormatPDF && h.pdf == nil {
			h.respondError(w, r, fmt.Errorf("%w: pdf renderer not configured", httpx.ErrUnavailable))
			return
		}
		req, err := payload.toRequest()
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		result, err := h.service.Compare(r.Context(), req)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		doc, err := export.Render(r.Context(), export.Project(result, payload.options()), format, h.pdf)
		if err != nil {
			h.logger.Error("render export", slog.String("format", format), slog.Any("error", err))
			h.respondError(w, r, err)
			return
		}
		filename := fmt.Sprintf("financial_comparison_%s.%s", h.now().Format("20060102_150405"), doc.Extension)
		writeAttachment(w, doc.ContentType, filename, doc.Data)
	}
}

func (h *Handler) handleCreateExportJob(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil || h.artifacts == nil {
		h.respondError(w, r, fmt.Errorf("%w: background exports disabled", httpx.ErrUnavailable))
		return
	}
	var payload exportPayload
	if err := h.decode(w, r, &payload); err != nil {
		h.respondError(w, r, err)
		return
	}
	req, err := payload.toRequest()
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	format := payload.Format
	if format == "" {
		format = export.FormatXLSX
	}
	id := uuid.NewString()
	if err := h.artifacts.Put(r.Context(), export.Artifact{ID: id, Status: export.StatusQueued, Format: format}); err != nil {
		h.respondError(w, r, err)
		return
	}
	if _, err := h.jobs.EnqueueExportBuild(r.Context(), jobs.ExportBuildPayload{
		ID:      id,
		Format:  format,
		Request: req,
		Options: payload.options(),
	}); err != nil {
		h.logger.Error("enqueue export", slog.String("export_id", id), slog.Any("error", err))
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/export/jobs/"+id)
	httpx.JSON(w, http.StatusAccepted, exportJobResponse{ID: id, Status: export.StatusQueued, Format: format})
}

func (h *Handler) handleGetExportJob(w http.ResponseWriter, r *http.Request) {
	if h.artifacts == nil {
		h.respondError(w, r, fmt.Errorf("%w: background exports disabled", httpx.ErrUnavailable))
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		h.respondError(w, r, fmt.Errorf("%w: malformed export id", httpx.ErrValidation))
		return
	}
	artifact, err := h.artifacts.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if artifact.Status == export.StatusReady {
		writeAttachment(w, artifact.ContentType, artifact.Filename, artifact.Data)
		return
	}
	httpx.JSON(w, http.StatusOK, exportJobResponse{ID: artifact.ID, Status: artifact.Status, Format: artifact.Format, Error: artifact.Error})
}

func (h *Handler) handleAccounts(w http.ResponseWriter, r *http.Request) {
	entries := h.catalog.Search(r.URL.Query().Get("q"))
	httpx.JSON(w, http.StatusOK, map[string]any{"accounts": entries, "total": len(entries)})
}

func (h *Handler) handleAccountGroups(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"groups": h.catalog.Groups()})
}

func (h *Handler) handleCompanySearch(w http.ResponseWriter, r *http.Request) {
	if h.companies == nil {
		h.respondError(w, r, fmt.Errorf("%w: company directory not loaded", httpx.ErrUnavailable))
		return
	}
	results, err := h.companies.Search(r.Context(), r.URL.Query().Get("q"), directory.DefaultLimit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"results": results, "total": len(results)})
}

func (h *Handler) handleAuditInfo(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		h.respondError(w, r, fmt.Errorf("%w: audit source not configured", httpx.ErrUnavailable))
		return
	}
	receiptNo := strings.TrimSpace(r.URL.Query().Get("rcept_no"))
	if receiptNo == "" {
		h.respondError(w, r, fmt.Errorf("%w: rcept_no is required", httpx.ErrValidation))
		return
	}
	ctx := r.Context()
	ch := h.auditOnce.DoChan(receiptNo, func() (interface{}, error) {
		return h.audit.FetchAuditInfo(context.WithoutCancel(ctx), receiptNo)
	})
	select {
	case <-ctx.Done():
		h.respondError(w, r, ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			h.respondError(w, r, res.Err)
			return
		}
		httpx.JSON(w, http.StatusOK, res.Val)
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := httpx.DecodeJSON(r, target); err != nil {
		return fmt.Errorf("%w: malformed JSON body: %v", httpx.ErrValidation, err)
	}
	if err := h.validate.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", httpx.ErrValidation, strings.Join(fields, "; "))
		}
		return fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	return nil
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, comparison.ErrInvalidRequest), errors.Is(err, directory.ErrQueryTooShort):
		err = fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	case errors.Is(err, filings.ErrNotFound), errors.Is(err, export.ErrArtifactNotFound):
		err = fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, context.DeadlineExceeded):
		err = fmt.Errorf("%w: request timed out", httpx.ErrUnavailable)
	}
	if pe, ok := filings.AsProviderError(err); ok {
		err = fmt.Errorf("%w: %v", httpx.ErrUpstream, pe)
	}
	if !errors.Is(err, httpx.ErrValidation) && !errors.Is(err, httpx.ErrNotFound) {
		h.logger.Warn("request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func writeAttachment(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
