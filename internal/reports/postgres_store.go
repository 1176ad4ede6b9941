package reports

import (
	"context"
	"database/sql"
	"errors"

	"github.com/mbd888/chainrisk/internal/signal"
)

// PostgresStore persists report counts in the scam_reports table created by
// migrations/00001_scam_reports.sql.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a PostgreSQL-backed report store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) CountReports(ctx context.Context, address string) (int, error) {
	var n int
	err := p.db.QueryRowContext(ctx, `
		SELECT report_count FROM scam_reports WHERE address = $1
	`, signal.NormalizeAddress(address)).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (p *PostgresStore) AddReports(ctx context.Context, address string, n int) (int, error) {
	if n <= 0 {
		return 0, ErrInvalidCount
	}
	var total int
	err := p.db.QueryRowContext(ctx, `
		INSERT INTO scam_reports (address, report_count, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (address) DO UPDATE
		SET report_count = scam_reports.report_count + EXCLUDED.report_count,
		    updated_at = NOW()
		RETURNING report_count
	`, signal.NormalizeAddress(address), n).Scan(&total)
	if err != nil {
		return 0, err
	}
	return total, nil
}
