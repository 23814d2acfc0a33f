package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fincompare/fincompare/internal/directory"
)

type demoCompany struct {
	directory.Company
	// Amounts in KRW millions: assets, current assets, liabilities, current
	// liabilities, equity, revenue, cost of sales, operating income, net income.
	Years map[int][9]int64
}

var demo = []demoCompany{
	{
		Company: directory.Company{Name: "삼성전자", CorpCode: "00126380", StockCode: "005930"},
		Years: map[int][9]int64{
			2022: {448424507, 218470581, 93674903, 78344852, 354749604, 302231360, 190041770, 43376630, 55654077},
			2023: {455905980, 195936557, 92228115, 75719452, 363677865, 258935494, 180388580, 6566976, 15487100},
		},
	},
	{
		Company: directory.Company{Name: "SK하이닉스", CorpCode: "00164779", StockCode: "000660"},
		Years: map[int][9]int64{
			2022: {103871870, 28733089, 41788226, 19845586, 62083644, 44621568, 28993713, 6809400, 2229610},
			2023: {100330140, 23311260, 47912553, 21445006, 52417587, 32765719, 33299167, -7730347, -9137548},
		},
	},
}

var accountIDs = [9]struct{ id, name, sjDiv string }{
	{"ifrs-full_Assets", "자산총계", "BS"},
	{"ifrs-full_CurrentAssets", "유동자산", "BS"},
	{"ifrs-full_Liabilities", "부채총계", "BS"},
	{"ifrs-full_CurrentLiabilities", "유동부채", "BS"},
	{"ifrs-full_Equity", "자본총계", "BS"},
	{"ifrs-full_Revenue", "매출액", "IS"},
	{"ifrs-full_CostOfSales", "매출원가", "IS"},
	{"dart_OperatingIncomeLoss", "영업이익(손실)", "IS"},
	{"ifrs-full_ProfitLoss", "당기순이익(손실)", "IS"},
}

func main() {
	ctx := context.Background()
	dir := getenv("FILINGS_DIR", "./data/filings")

	fmt.Println("→ Writing filing snapshots...")
	if err := writeSnapshots(dir); err != nil {
		log.Fatalf("write snapshots: %v", err)
	}

	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		fmt.Println("PG_DSN not set, skipping company directory")
		return
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	fmt.Println("→ Seeding company directory...")
	repo := directory.NewPGRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		log.Fatalf("ensure schema: %v", err)
	}
	companies := make([]directory.Company, 0, len(demo))
	for _, c := range demo {
		companies = append(companies, c.Company)
	}
	n, err := repo.Import(ctx, companies)
	if err != nil {
		log.Fatalf("seed directory: %v", err)
	}
	fmt.Printf("✓ %d companies seeded\n", n)
}

func writeSnapshots(root string) error {
	for _, c := range demo {
		if err := os.MkdirAll(filepath.Join(root, c.CorpCode), 0o755); err != nil {
			return err
		}
		for year, amounts := range c.Years {
			prior, hasPrior := c.Years[year-1]
			list := make([]map[string]string, 0, len(accountIDs))
			for i, acct := range accountIDs {
				row := map[string]string{
					"rcept_no":      fmt.Sprintf("%d0312%06s", year+1, c.StockCode),
					"corp_code":     c.CorpCode,
					"corp_name":     c.Name,
					"sj_div":        acct.sjDiv,
					"account_id":    acct.id,
					"account_nm":    acct.name,
					"thstrm_amount": strconv.FormatInt(amounts[i]*1_000_000, 10),
				}
				if hasPrior {
					row["frmtrm_amount"] = strconv.FormatInt(prior[i]*1_000_000, 10)
				}
				list = append(list, row)
			}
			body, err := json.MarshalIndent(map[string]any{"status": "000", "message": "정상", "list": list}, "", "  ")
			if err != nil {
				return err
			}
			path := filepath.Join(root, c.CorpCode, fmt.Sprintf("%d_CFS.json", year))
			if err := os.WriteFile(path, body, 0o644); err != nil {
				return err
			}
			fmt.Printf("  %s\n", path)
		}
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
