package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fincompare/fincompare/internal/app"
	"github.com/fincompare/fincompare/internal/comparison"
	"github.com/fincompare/fincompare/internal/comparison/export"
	"github.com/fincompare/fincompare/internal/filings"
	"github.com/fincompare/fincompare/report"
)

// ExitIncomplete is returned when some (company, year) cells could not be built.
const ExitIncomplete = 10

// CompareOptions configures an offline comparison run.
type CompareOptions struct {
	Config       *app.Config
	Companies    []string
	Years        []int
	Variant      string
	Format       string
	Output       string
	Accounts     []string
	IncludeAudit bool
	IncludeNotes bool
	NoRatios     bool
	Stdout       io.Writer
	Logger       *slog.Logger
}

func newCompareCommand(load configLoader) *cobra.Command {
	opts := CompareOptions{}
	cmd := &cobra.Command{
		Use:     "compare",
		Short:   "Compare saved filings and write JSON, xlsx, csv or pdf",
		Example: "  fincompare compare --corp 00126380=삼성전자 --corp 00164779 --year 2022,2023 --format xlsx -o out.xlsx",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			opts.Config = cfg
			opts.Stdout = cmd.OutOrStdout()
			opts.Logger = app.NewLoggerTo(cfg, cmd.ErrOrStderr())
			return RunCompare(cmd.Context(), opts)
		},
	}
	f := cmd.Flags()
	f.StringArrayVar(&opts.Companies, "corp", nil, "corp code, optionally code=name (repeatable)")
	f.IntSliceVar(&opts.Years, "year", nil, "fiscal years to compare")
	f.StringVar(&opts.Variant, "division", "CFS", "statement division: CFS or OFS")
	f.StringVar(&opts.Format, "format", "json", "output format: json, xlsx, csv or pdf")
	f.StringVarP(&opts.Output, "output", "o", "-", "output file, - for stdout")
	f.StringSliceVar(&opts.Accounts, "account", nil, "account ids to include in the detail sheet")
	f.BoolVar(&opts.IncludeAudit, "audit", false, "attach audit report attributes")
	f.BoolVar(&opts.IncludeNotes, "notes", false, "add the audit notes sheet to spreadsheet exports")
	f.BoolVar(&opts.NoRatios, "no-ratios", false, "skip per-entry ratio sets")
	_ = cmd.MarkFlagRequired("corp")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

// RunCompare runs a comparison over the snapshot directory and writes the
// result. It returns an ExitError with ExitIncomplete when any cell failed.
func RunCompare(ctx context.Context, opts CompareOptions) error {
	if opts.Config == nil {
		return fmt.Errorf("compare: config required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	req, err := opts.request()
	if err != nil {
		return err
	}

	stack, err := app.NewComparisonStack(opts.Config, logger, nil)
	if err != nil {
		return err
	}
	result, err := stack.Service.Compare(ctx, req)
	if err != nil {
		return err
	}

	var data []byte
	if opts.Format == "" || opts.Format == "json" {
		data, err = json.MarshalIndent(result, "", "  ")
		data = append(data, '\n')
	} else {
		var pdf export.PDFRenderer
		if opts.Config.GotenbergURL != "" {
			pdf = report.NewClient(opts.Config.GotenbergURL)
		}
		wb := export.Project(result, export.Options{SelectedAccounts: opts.Accounts, IncludeNotes: opts.IncludeNotes})
		var doc export.Document
		doc, err = export.Render(ctx, wb, opts.Format, pdf)
		data = doc.Data
	}
	if err != nil {
		return err
	}
	if err := writeOutput(opts.Output, opts.Stdout, data); err != nil {
		return err
	}

	if incomplete := result.Incomplete(); len(incomplete) > 0 {
		keys := make([]string, len(incomplete))
		for i, k := range incomplete {
			keys[i] = k.String()
		}
		return &ExitError{Code: ExitIncomplete, Err: fmt.Errorf("compare: %d cell(s) incomplete: %s", len(keys), strings.Join(keys, ", "))}
	}
	return nil
}

func (o CompareOptions) request() (comparison.Request, error) {
	req := comparison.Request{
		Years:            o.Years,
		IncludeRatios:    !o.NoRatios,
		IncludeAudit:     o.IncludeAudit,
		SelectedAccounts: o.Accounts,
		Variant:          filings.VariantConsolidated,
	}
	for _, raw := range o.Companies {
		code, name, _ := strings.Cut(raw, "=")
		req.Companies = append(req.Companies, comparison.Company{CorpCode: strings.TrimSpace(code), Name: strings.TrimSpace(name)})
	}
	if o.Variant != "" {
		v, err := filings.ParseVariant(o.Variant)
		if err != nil {
			return comparison.Request{}, fmt.Errorf("compare: %w", err)
		}
		req.Variant = v
	}
	return req, nil
}

func writeOutput(path string, stdout io.Writer, data []byte) error {
	if path == "" || path == "-" {
		if stdout == nil {
			stdout = os.Stdout
		}
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("compare: write %s: %w", path, err)
	}
	return nil
}
