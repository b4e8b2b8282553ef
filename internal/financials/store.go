package financials

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"kurio/internal/common/database"
)

// PostgresStore keeps the last fetched summary per ticker in company_financials.
type PostgresStore struct {
	db *database.PostgresClient
}

func NewPostgresStore(db *database.PostgresClient) *PostgresStore {
	return &PostgresStore{db: db}
}

const upsertSQL = `INSERT INTO company_financials (ticker, cik, payload, filing_date, report_date, fetched_at)
VALUES ($1, $2, $3, $4, $5, NOW())
ON CONFLICT (ticker) DO UPDATE SET
	cik = EXCLUDED.cik,
	payload = EXCLUDED.payload,
	filing_date = EXCLUDED.filing_date,
	report_date = EXCLUDED.report_date,
	fetched_at = EXCLUDED.fetched_at`

const loadSQL = `SELECT payload FROM company_financials WHERE ticker = $1`

func (s *PostgresStore) Save(ctx context.Context, f *Financials) error {
	payload, err := json.Marshal(f)
	if err != nil {
		return fmt.Errorf("marshal financials: %w", err)
	}
	if _, err := s.db.Exec(ctx, upsertSQL, f.Ticker, f.CIK, payload, f.FilingDate, f.ReportDate); err != nil {
		return fmt.Errorf("store financials for %s: %w", f.Ticker, err)
	}
	return nil
}

// Load returns ErrNotFound when the ticker was never stored.
func (s *PostgresStore) Load(ctx context.Context, ticker string) (*Financials, error) {
	var payload []byte
	err := s.db.QueryRow(ctx, loadSQL, ticker).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load financials for %s: %w", ticker, err)
	}

	var f Financials
	if err := json.Unmarshal(payload, &f); err != nil {
		return nil, fmt.Errorf("decode stored financials for %s: %w", ticker, err)
	}
	return &f, nil
}
