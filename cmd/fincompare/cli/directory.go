package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fincompare/fincompare/internal/app"
	"github.com/fincompare/fincompare/internal/directory"
	"github.com/fincompare/fincompare/internal/platform/db"
)

func newDirectoryCommand(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "directory",
		Short: "Manage the company directory",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <CORPCODE.xml|corpCode.zip>",
		Short: "Upsert the provider's corporation code list into PostgreSQL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			n, err := ImportDirectory(cmd.Context(), cfg.PGDSN, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d companies\n", n)
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Search companies by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			searcher, closeFn, err := openDirectory(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeFn()
			return SearchDirectory(cmd.Context(), searcher, args[0], cmd.OutOrStdout())
		},
	})
	return cmd
}

// ImportDirectory loads path and upserts it into the database at dsn.
func ImportDirectory(ctx context.Context, dsn, path string) (int, error) {
	if dsn == "" {
		return 0, errors.New("directory import: PG_DSN is not set")
	}
	companies, err := directory.LoadFile(path)
	if err != nil {
		return 0, err
	}
	pool, err := db.New(ctx, dsn)
	if err != nil {
		return 0, err
	}
	defer pool.Close()
	repo := directory.NewPGRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		return 0, err
	}
	return repo.Import(ctx, companies)
}

// SearchDirectory prints up to the default limit of matches as a table.
func SearchDirectory(ctx context.Context, searcher directory.Searcher, query string, w io.Writer) error {
	results, err := searcher.Search(ctx, query, directory.DefaultLimit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CORP CODE\tSTOCK CODE\tNAME")
	for _, c := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", c.CorpCode, c.StockCode, c.Name)
	}
	return tw.Flush()
}

// openDirectory prefers PostgreSQL and falls back to the corp code file.
func openDirectory(ctx context.Context, cfg *app.Config) (directory.Searcher, func(), error) {
	if cfg.PGDSN != "" {
		pool, err := db.New(ctx, cfg.PGDSN, db.WithMaxConns(cfg.PGMaxConns))
		if err != nil {
			return nil, nil, err
		}
		return directory.NewPGRepository(pool), pool.Close, nil
	}
	if cfg.CorpCodeFile != "" {
		companies, err := directory.LoadFile(cfg.CorpCodeFile)
		if err != nil {
			return nil, nil, err
		}
		return directory.NewMemory(companies), func() {}, nil
	}
	return nil, nil, errors.New("directory: set PG_DSN or CORP_CODE_FILE")
}
