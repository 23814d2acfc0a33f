package comparison

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fincompare/fincompare/internal/filings"
	"github.com/fincompare/fincompare/internal/normalize"
	"github.com/fincompare/fincompare/internal/ratios"
)

// Defaults applied when Config leaves a field at zero.
const (
	DefaultWorkers      = 4
	DefaultMaxCompanies = 10
	DefaultMaxYears     = 5
)

// Config bounds a Service.
type Config struct {
	Workers      int
	MaxCompanies int
	MaxYears     int
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.MaxCompanies <= 0 {
		c.MaxCompanies = DefaultMaxCompanies
	}
	if c.MaxYears <= 0 {
		c.MaxYears = DefaultMaxYears
	}
	return c
}

// Service fans a request out over (company, year) cells and assembles the result.
type Service struct {
	source     filings.Source
	normalizer *normalize.Normalizer
	logger     *slog.Logger
	cfg        Config
	metrics    *Metrics
}

// NewService wires the filing source and normalizer.
func NewService(source filings.Source, normalizer *normalize.Normalizer, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, normalizer: normalizer, logger: logger, cfg: cfg.withDefaults()}
}

// WithMetrics attaches Prometheus instrumentation.
func (s *Service) WithMetrics(m *Metrics) *Service {
	s.metrics = m
	return s
}

type cell struct {
	entry   Entry
	summary *SummaryRow
}

// Compare runs the request. Per-cell failures are recorded on their entries;
// only validation errors and context cancellation fail the whole call.
func (s *Service) Compare(ctx context.Context, req Request) (Result, error) {
	req, err := s.validate(req)
	if err != nil {
		return Result{}, err
	}
	var selected map[string]struct{}
	if len(req.SelectedAccounts) > 0 {
		selected = make(map[string]struct{}, len(req.SelectedAccounts))
		for _, id := range req.SelectedAccounts {
			selected[strings.TrimSpace(id)] = struct{}{}
		}
	}

	years := len(req.Years)
	cells := make([]cell, len(req.Companies)*years)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, company := range req.Companies {
		for j, year := range req.Years {
			idx := i*years + j
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				cells[idx] = s.buildCell(gctx, req, company, year, selected)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	result := Result{
		Entries: make(map[Key]*Entry, len(cells)),
		Order:   make([]Key, 0, len(cells)),
	}
	for i := range cells {
		c := &cells[i]
		key := Key{CorpCode: c.entry.CorpCode, Year: c.entry.Year}
		result.Entries[key] = &c.entry
		result.Order = append(result.Order, key)
		if c.summary != nil {
			result.Summary = append(result.Summary, *c.summary)
		}
	}
	s.logger.Info("comparison completed",
		slog.Int("cells", len(cells)),
		slog.Int("summary_rows", len(result.Summary)),
		slog.Int("incomplete", len(result.Incomplete())))
	return result, nil
}

func (s *Service) buildCell(ctx context.Context, req Request, company Company, year int, selected map[string]struct{}) cell {
	entry := Entry{
		CorpCode:    company.CorpCode,
		CompanyName: company.Name,
		Year:        year,
		Variant:     req.Variant,
	}
	logger := s.logger.With(slog.String("corp_code", company.CorpCode), slog.Int("year", year))

	start := time.Now()
	filing, err := s.source.FetchStatement(ctx, company.CorpCode, year, req.Variant)
	s.metrics.observeFetch(time.Since(start))
	if err != nil {
		entry.Failure = classify(err)
		s.metrics.observeCell(string(entry.Failure.Kind))
		logger.Warn("filing fetch failed", slog.String("kind", string(entry.Failure.Kind)), slog.Any("error", err))
		return cell{entry: entry}
	}
	if entry.CompanyName == "" {
		entry.CompanyName = filing.CorpName
	}
	entry.ReceiptNo = filing.ReceiptNo

	stmt, err := s.normalizer.Normalize(filing, req.Variant)
	if err != nil {
		entry.Failure = classify(err)
		s.metrics.observeCell(string(entry.Failure.Kind))
		logger.Warn("normalization failed", slog.Any("error", err))
		return cell{entry: entry}
	}
	for _, r := range stmt.Reconciliations {
		s.metrics.observeReconciliation(r.Rule)
		logger.Debug("category reconciled",
			slog.String("category", string(r.Category)),
			slog.String("chosen", r.Chosen),
			slog.Any("candidates", r.Candidates),
			slog.String("rule", r.Rule))
	}

	set := ratios.Compute(stmt)
	if selected != nil {
		stmt = stmt.Filter(selected)
	}
	entry.Statements = &stmt
	if req.IncludeRatios {
		entry.Ratios = &set
	}
	if req.IncludeAudit && filing.ReceiptNo != "" {
		info, err := s.source.FetchAuditInfo(ctx, filing.ReceiptNo)
		if err != nil {
			logger.Warn("audit info unavailable", slog.String("receipt_no", filing.ReceiptNo), slog.Any("error", err))
		} else {
			entry.AuditInfo = &info
		}
	}

	s.metrics.observeCell("ok")
	row := newSummaryRow(&entry, set)
	return cell{entry: entry, summary: &row}
}

func classify(err error) *Failure {
	switch {
	case errors.Is(err, filings.ErrNotFound):
		return &Failure{Kind: FailureNotFound, Message: err.Error()}
	case errors.Is(err, normalize.ErrMissingVariant):
		return &Failure{Kind: FailureMissingVariant, Message: err.Error()}
	}
	if pe, ok := filings.AsProviderError(err); ok {
		return &Failure{Kind: FailureProvider, Message: pe.Error(), Retryable: pe.Retryable()}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &Failure{Kind: FailureProvider, Message: err.Error(), Retryable: true}
	}
	return &Failure{Kind: FailureNormalize, Message: err.Error()}
}

func (s *Service) validate(req Request) (Request, error) {
	if len(req.Companies) == 0 {
		return req, fmt.Errorf("%w: at least one company is required", ErrInvalidRequest)
	}
	if len(req.Companies) > s.cfg.MaxCompanies {
		return req, fmt.Errorf("%w: at most %d companies per request", ErrInvalidRequest, s.cfg.MaxCompanies)
	}
	if len(req.Years) == 0 {
		return req, fmt.Errorf("%w: at least one year is required", ErrInvalidRequest)
	}
	if len(req.Years) > s.cfg.MaxYears {
		return req, fmt.Errorf("%w: at most %d years per request", ErrInvalidRequest, s.cfg.MaxYears)
	}

	companies := make([]Company, len(req.Companies))
	seenCorp := make(map[string]struct{}, len(req.Companies))
	for i, c := range req.Companies {
		c.CorpCode = strings.TrimSpace(c.CorpCode)
		c.Name = strings.TrimSpace(c.Name)
		if c.CorpCode == "" {
			return req, fmt.Errorf("%w: company %d has no corp code", ErrInvalidRequest, i)
		}
		if _, dup := seenCorp[c.CorpCode]; dup {
			return req, fmt.Errorf("%w: duplicate company %s", ErrInvalidRequest, c.CorpCode)
		}
		seenCorp[c.CorpCode] = struct{}{}
		companies[i] = c
	}
	req.Companies = companies

	seenYear := make(map[int]struct{}, len(req.Years))
	for _, y := range req.Years {
		if y < 1000 || y > 9999 {
			return req, fmt.Errorf("%w: year %d is not a four-digit year", ErrInvalidRequest, y)
		}
		if _, dup := seenYear[y]; dup {
			return req, fmt.Errorf("%w: duplicate year %d", ErrInvalidRequest, y)
		}
		seenYear[y] = struct{}{}
	}

	switch req.Variant {
	case "":
		req.Variant = filings.VariantConsolidated
	case filings.VariantConsolidated, filings.VariantSeparate:
	default:
		return req, fmt.Errorf("%w: unknown statement variant %q", ErrInvalidRequest, req.Variant)
	}
	return req, nil
}
