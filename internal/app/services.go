package app

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fincompare/fincompare/internal/catalog"
	"github.com/fincompare/fincompare/internal/comparison"
	"github.com/fincompare/fincompare/internal/filings"
	"github.com/fincompare/fincompare/internal/normalize"
)

// ComparisonStack bundles the read-only catalog, the filings source and the
// comparison service built on top of them.
type ComparisonStack struct {
	Catalog *catalog.Catalog
	Source  *filings.SnapshotSource
	Service *comparison.Service
}

// NewComparisonStack wires the comparison engine from configuration. A nil
// registerer leaves the comparison metrics unregistered.
func NewComparisonStack(cfg *Config, logger *slog.Logger, registerer prometheus.Registerer) (*ComparisonStack, error) {
	cat, err := catalog.Default()
	if err != nil {
		return nil, fmt.Errorf("app: load account catalog: %w", err)
	}
	source := filings.NewSnapshotSource(cfg.FilingsDir)
	service := comparison.NewService(source, normalize.New(cat), logger, comparison.Config{
		Workers:      cfg.CompareWorkers,
		MaxCompanies: cfg.MaxCompanies,
		MaxYears:     cfg.MaxYears,
	})
	if registerer != nil {
		service = service.WithMetrics(comparison.NewMetrics(registerer))
	}
	return &ComparisonStack{Catalog: cat, Source: source, Service: service}, nil
}
