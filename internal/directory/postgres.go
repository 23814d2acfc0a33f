package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fincompare/fincompare/internal/platform/db"
)

const schema = `
CREATE TABLE IF NOT EXISTS companies (
    corp_code  TEXT PRIMARY KEY,
    corp_name  TEXT NOT NULL,
    stock_code TEXT NOT NULL DEFAULT '',
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS companies_name_lower_idx ON companies (lower(corp_name));`

const upsertCompany = `
INSERT INTO companies (corp_code, corp_name, stock_code)
VALUES ($1, $2, $3)
ON CONFLICT (corp_code)
DO UPDATE SET corp_name = EXCLUDED.corp_name, stock_code = EXCLUDED.stock_code, updated_at = NOW()`

const searchCompanies = `
SELECT corp_name, corp_code, stock_code
FROM companies
WHERE corp_name ILIKE '%' || $1 || '%'
ORDER BY corp_name, corp_code
LIMIT $2`

const importBatchSize = 1000

// PGRepository persists the company directory in PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewPGRepository constructs a repository backed by pool.
func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// EnsureSchema creates the companies table when missing.
func (r *PGRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("directory: ensure schema: %w", err)
	}
	return nil
}

// Search matches query against company names, case-insensitively.
func (r *PGRepository) Search(ctx context.Context, query string, limit int) ([]Company, error) {
	q, err := NormalizeQuery(query)
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, searchCompanies, escapeLike(q), clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("directory: search: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Company, error) {
		var c Company
		err := row.Scan(&c.Name, &c.CorpCode, &c.StockCode)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("directory: scan: %w", err)
	}
	return out, nil
}

// Import upserts companies in batches inside one transaction and returns the
// number written. A failing batch rolls back the whole import.
func (r *PGRepository) Import(ctx context.Context, companies []Company) (int, error) {
	written := 0
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for start := 0; start < len(companies); start += importBatchSize {
			chunk := companies[start:min(start+importBatchSize, len(companies))]
			batch := &pgx.Batch{}
			for _, c := range chunk {
				batch.Queue(upsertCompany, c.CorpCode, c.Name, c.StockCode)
			}
			results := tx.SendBatch(ctx, batch)
			for range chunk {
				if _, err := results.Exec(); err != nil {
					_ = results.Close()
					return err
				}
			}
			if err := results.Close(); err != nil {
				return err
			}
			written += len(chunk)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("directory: import: %w", err)
	}
	return written, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
