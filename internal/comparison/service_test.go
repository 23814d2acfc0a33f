package comparison

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fincompare/fincompare/internal/catalog"
	"github.com/fincompare/fincompare/internal/filings"
	"github.com/fincompare/fincompare/internal/normalize"
)

type fakeSource struct {
	mu       sync.Mutex
	filings  map[string]filings.Filing
	errs     map[string]error
	audit    map[string]filings.AuditInfo
	delay    time.Duration
	delays   map[string]time.Duration
	finished []string
	inFlight int32
	peak     int32
	calls    int32
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		filings: make(map[string]filings.Filing),
		errs:    make(map[string]error),
		audit:   make(map[string]filings.AuditInfo),
		delays:  make(map[string]time.Duration),
	}
}

func (f *fakeSource) add(corp string, year int, items ...filings.RawLineItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filings[Key{corp, year}.String()] = filings.Filing{
		CorpCode:  corp,
		CorpName:  "Corp " + corp,
		Year:      year,
		ReceiptNo: fmt.Sprintf("R%s%d", corp, year),
		Variants:  map[filings.Variant][]filings.RawLineItem{filings.VariantConsolidated: items},
	}
}

func (f *fakeSource) FetchStatement(ctx context.Context, corp string, year int, _ filings.Variant) (filings.Filing, error) {
	atomic.AddInt32(&f.calls, 1)
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	key := Key{corp, year}.String()
	f.mu.Lock()
	delay := f.delay + f.delays[key]
	f.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return filings.Filing{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, key)
	if err, ok := f.errs[key]; ok {
		return filings.Filing{}, err
	}
	filing, ok := f.filings[key]
	if !ok {
		return filings.Filing{}, filings.ErrNotFound
	}
	return filing, nil
}

func (f *fakeSource) FetchAuditInfo(_ context.Context, receiptNo string) (filings.AuditInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.audit[receiptNo]
	if !ok {
		return filings.AuditInfo{}, &filings.ProviderError{Op: "fetch audit report", Status: "014", Message: "file missing"}
	}
	return info, nil
}

func amount(v int64) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.NewFromInt(v)) }

func bs(id string, v int64) filings.RawLineItem {
	return filings.RawLineItem{AccountID: id, Current: amount(v), Division: filings.DivisionBalanceSheet}
}

func is(id string, v int64) filings.RawLineItem {
	return filings.RawLineItem{AccountID: id, Current: amount(v), Division: filings.DivisionIncomeStatement}
}

func standardLines() []filings.RawLineItem {
	return []filings.RawLineItem{
		bs("ifrs-full_CurrentAssets", 200),
		bs("ifrs-full_CurrentLiabilities", 100),
		bs("ifrs-full_Assets", 1000),
		bs("ifrs-full_Liabilities", 400),
		bs("ifrs-full_Equity", 600),
		is("ifrs-full_Revenue", 800),
		is("ifrs-full_CostOfSales", 500),
		is("dart_OperatingIncomeLoss", 120),
		is("ifrs-full_ProfitLoss", 90),
	}
}

func newTestService(t *testing.T, src filings.Source, cfg Config) *Service {
	t.Helper()
	cat, err := catalog.Default()
	require.NoError(t, err)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(src, normalize.New(cat), logger, cfg).WithMetrics(NewMetrics(prometheus.NewRegistry()))
}

func TestCompareOrdersCellsCompaniesThenYears(t *testing.T) {
	src := newFakeSource()
	for _, corp := range []string{"A", "B"} {
		for _, year := range []int{2022, 2023} {
			src.add(corp, year, standardLines()...)
		}
	}
	// Earlier cells are slower, so fetches complete in reverse request order.
	src.delays["B_2023"] = 120 * time.Millisecond
	src.delays["B_2022"] = 80 * time.Millisecond
	src.delays["A_2023"] = 40 * time.Millisecond
	svc := newTestService(t, src, Config{Workers: 4})

	res, err := svc.Compare(context.Background(), Request{
		Companies:     []Company{{CorpCode: "B"}, {CorpCode: "A", Name: "Alpha"}},
		Years:         []int{2023, 2022},
		IncludeRatios: true,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"A_2022", "A_2023", "B_2022", "B_2023"}, src.finished)
	require.Equal(t, []Key{{"B", 2023}, {"B", 2022}, {"A", 2023}, {"A", 2022}}, res.Order)
	require.Len(t, res.Summary, 4)
	for i, row := range res.Summary {
		require.Equal(t, res.Order[i].CorpCode, row.CorpCode)
		require.Equal(t, res.Order[i].Year, row.Year)
	}
	require.Equal(t, "Alpha", res.Entries[Key{"A", 2023}].CompanyName)
	require.Equal(t, "Corp B", res.Entries[Key{"B", 2022}].CompanyName)

	entry := res.Entries[Key{"A", 2023}]
	require.NotNil(t, entry.Ratios)
	require.InDelta(t, 200, *entry.Ratios.Stability.CurrentRatio, 1e-9)
	require.Equal(t, entry.Ratios.Profitability.ROE, res.Summary[2].ROE)
	require.Equal(t, filings.VariantConsolidated, entry.Variant)
	require.Empty(t, res.Incomplete())
}

func TestCompareIsolatesFailures(t *testing.T) {
	src := newFakeSource()
	src.add("A", 2023, standardLines()...)
	src.errs[Key{"B", 2023}.String()] = &filings.ProviderError{Op: "fetch statement", Status: "020", Message: "rate limited"}
	svc := newTestService(t, src, Config{})

	res, err := svc.Compare(context.Background(), Request{
		Companies: []Company{{CorpCode: "A"}, {CorpCode: "B"}, {CorpCode: "C"}},
		Years:     []int{2023},
	})
	require.NoError(t, err)
	require.Len(t, res.Entries, 3)
	require.Len(t, res.Summary, 1)
	require.Equal(t, "A", res.Summary[0].CorpCode)

	b := res.Entries[Key{"B", 2023}]
	require.Nil(t, b.Statements)
	require.Equal(t, FailureProvider, b.Failure.Kind)
	require.True(t, b.Failure.Retryable)

	c := res.Entries[Key{"C", 2023}]
	require.Equal(t, FailureNotFound, c.Failure.Kind)
	require.Equal(t, []Key{{"B", 2023}, {"C", 2023}}, res.Incomplete())
}

func TestCompareMissingVariantIsACellFailure(t *testing.T) {
	src := newFakeSource()
	src.add("A", 2023, standardLines()...)
	svc := newTestService(t, src, Config{})

	res, err := svc.Compare(context.Background(), Request{
		Companies: []Company{{CorpCode: "A"}},
		Years:     []int{2023},
		Variant:   filings.VariantSeparate,
	})
	require.NoError(t, err)
	require.Equal(t, FailureMissingVariant, res.Entries[Key{"A", 2023}].Failure.Kind)
	require.Empty(t, res.Summary)
}

func TestCompareRatiosOnlyAttachedWhenRequested(t *testing.T) {
	src := newFakeSource()
	src.add("A", 2023, standardLines()...)
	svc := newTestService(t, src, Config{})

	res, err := svc.Compare(context.Background(), Request{Companies: []Company{{CorpCode: "A"}}, Years: []int{2023}})
	require.NoError(t, err)
	require.Nil(t, res.Entries[Key{"A", 2023}].Ratios)
	require.Len(t, res.Summary, 1)
	require.InDelta(t, 37.5, *res.Summary[0].GrossMargin, 1e-9)
}

func TestCompareSelectedAccountsFilterStatementsNotRatios(t *testing.T) {
	src := newFakeSource()
	src.add("A", 2023, standardLines()...)
	svc := newTestService(t, src, Config{})

	req := Request{Companies: []Company{{CorpCode: "A"}}, Years: []int{2023}, IncludeRatios: true}
	full, err := svc.Compare(context.Background(), req)
	require.NoError(t, err)

	req.SelectedAccounts = []string{"ifrs-full_Revenue", " ifrs-full_Assets"}
	res, err := svc.Compare(context.Background(), req)
	require.NoError(t, err)
	entry := res.Entries[Key{"A", 2023}]
	require.Len(t, entry.Statements.Lines, 2)
	require.Len(t, entry.Statements.Values, 2)
	require.Contains(t, entry.Statements.Values, catalog.Revenue)
	require.Contains(t, entry.Statements.Values, catalog.Assets)
	require.NotContains(t, entry.Statements.Values, catalog.Equity)

	unfiltered := full.Entries[Key{"A", 2023}]
	require.Equal(t, *unfiltered.Ratios, *entry.Ratios)
	require.Equal(t, full.Summary, res.Summary)
}

func TestCompareAuditFailureDoesNotFailEntry(t *testing.T) {
	src := newFakeSource()
	src.add("A", 2023, standardLines()...)
	src.add("B", 2023, standardLines()...)
	src.audit["RA2023"] = filings.AuditInfo{ReceiptNo: "RA2023", Auditor: "삼일회계법인", AuditOpinion: "적정"}
	svc := newTestService(t, src, Config{})

	res, err := svc.Compare(context.Background(), Request{
		Companies:    []Company{{CorpCode: "A"}, {CorpCode: "B"}},
		Years:        []int{2023},
		IncludeAudit: true,
	})
	require.NoError(t, err)
	require.Equal(t, "삼일회계법인", res.Entries[Key{"A", 2023}].AuditInfo.Auditor)
	require.Nil(t, res.Entries[Key{"B", 2023}].AuditInfo)
	require.Nil(t, res.Entries[Key{"B", 2023}].Failure)
	require.Len(t, res.Summary, 2)
}

func TestCompareBoundsConcurrency(t *testing.T) {
	src := newFakeSource()
	src.delay = 20 * time.Millisecond
	var companies []Company
	for i := 0; i < 6; i++ {
		corp := fmt.Sprintf("C%d", i)
		companies = append(companies, Company{CorpCode: corp})
		src.add(corp, 2023, standardLines()...)
	}
	svc := newTestService(t, src, Config{Workers: 2})

	res, err := svc.Compare(context.Background(), Request{Companies: companies, Years: []int{2023}})
	require.NoError(t, err)
	require.Len(t, res.Summary, 6)
	require.LessOrEqual(t, atomic.LoadInt32(&src.peak), int32(2))
}

func TestCompareCancellationDiscardsResult(t *testing.T) {
	src := newFakeSource()
	src.delay = time.Second
	src.add("A", 2023, standardLines()...)
	svc := newTestService(t, src, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res, err := svc.Compare(ctx, Request{Companies: []Company{{CorpCode: "A"}}, Years: []int{2023, 2022}})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Nil(t, res.Entries)
}

func TestCompareValidation(t *testing.T) {
	svc := newTestService(t, newFakeSource(), Config{MaxCompanies: 2, MaxYears: 2})
	cases := map[string]Request{
		"no companies":    {Years: []int{2023}},
		"no years":        {Companies: []Company{{CorpCode: "A"}}},
		"too many corps":  {Companies: []Company{{CorpCode: "A"}, {CorpCode: "B"}, {CorpCode: "C"}}, Years: []int{2023}},
		"too many years":  {Companies: []Company{{CorpCode: "A"}}, Years: []int{2021, 2022, 2023}},
		"short year":      {Companies: []Company{{CorpCode: "A"}}, Years: []int{23}},
		"blank corp":      {Companies: []Company{{CorpCode: " "}}, Years: []int{2023}},
		"duplicate corp":  {Companies: []Company{{CorpCode: "A"}, {CorpCode: "A"}}, Years: []int{2023}},
		"duplicate year":  {Companies: []Company{{CorpCode: "A"}}, Years: []int{2023, 2023}},
		"unknown variant": {Companies: []Company{{CorpCode: "A"}}, Years: []int{2023}, Variant: "annual"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Compare(context.Background(), req)
			require.ErrorIs(t, err, ErrInvalidRequest)
		})
	}
}

func TestResultJSON(t *testing.T) {
	src := newFakeSource()
	src.add("A", 2023, standardLines()...)
	svc := newTestService(t, src, Config{})

	res, err := svc.Compare(context.Background(), Request{Companies: []Company{{CorpCode: "A"}}, Years: []int{2023, 2022}})
	require.NoError(t, err)
	raw, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded struct {
		Data       map[string]json.RawMessage `json:"data"`
		Summary    []map[string]any           `json:"summary"`
		Incomplete []string                   `json:"incomplete"`
	}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.Contains(t, decoded.Data, "A_2023")
	require.Contains(t, decoded.Data, "A_2022")
	require.Equal(t, []string{"A_2022"}, decoded.Incomplete)
	require.Len(t, decoded.Summary, 1)
	require.Equal(t, "A", decoded.Summary[0]["corp_code"])
}

func TestClassifyUnknownError(t *testing.T) {
	f := classify(errors.New("boom"))
	require.Equal(t, FailureNormalize, f.Kind)
}
