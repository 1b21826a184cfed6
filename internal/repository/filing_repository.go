package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
)

// FilingRepository provides data access methods for the filing table.
type FilingRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewFilingRepository creates a new FilingRepository with the provided database connection.
func NewFilingRepository(db *sql.DB) *FilingRepository {
	return &FilingRepository{db: db}
}

func (r *FilingRepository) WithTx(tx *sql.Tx) *FilingRepository {
	return &FilingRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *FilingRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const filingColumns = `id, fund_id, accession_number, filing_date, period_end_date, total_assets, net_assets, created_at`

// GetLatestFiling retrieves the filing with the most recent period end date for a fund.
// Ties on period end date are broken by the later filing date.
// Returns ErrFilingNotFound if the fund has no filings.
func (r *FilingRepository) GetLatestFiling(ctx context.Context, fundID string) (model.Filing, error) {
	query := `
		SELECT ` + filingColumns + `
		FROM filing
		WHERE fund_id = ?
		ORDER BY period_end_date DESC, filing_date DESC
		LIMIT 1
	`

	f, err := scanFiling(r.getQuerier().QueryRowContext(ctx, query, fundID))
	if err == sql.ErrNoRows {
		return model.Filing{}, apperrors.ErrFilingNotFound
	}
	if err != nil {
		return model.Filing{}, fmt.Errorf("failed to query filing table: %w", err)
	}
	return f, nil
}

// GetFilingByPeriod retrieves the filing of a fund for a specific period end date.
// Returns ErrFilingNotFound if none is stored.
func (r *FilingRepository) GetFilingByPeriod(ctx context.Context, fundID string, periodEnd time.Time) (model.Filing, error) {
	query := `SELECT ` + filingColumns + ` FROM filing WHERE fund_id = ? AND period_end_date = ?`

	f, err := scanFiling(r.getQuerier().QueryRowContext(ctx, query, fundID, FormatDate(periodEnd)))
	if err == sql.ErrNoRows {
		return model.Filing{}, apperrors.ErrFilingNotFound
	}
	if err != nil {
		return model.Filing{}, fmt.Errorf("failed to query filing table: %w", err)
	}
	return f, nil
}

// GetLatestFilings returns the latest filing of every fund that has one.
func (r *FilingRepository) GetLatestFilings(ctx context.Context) ([]model.Filing, error) {
	query := `
		SELECT ` + filingColumns + `
		FROM filing fi
		WHERE fi.id = (
			SELECT lf.id FROM filing lf
			WHERE lf.fund_id = fi.fund_id
			ORDER BY lf.period_end_date DESC, lf.filing_date DESC
			LIMIT 1
		)
		ORDER BY fi.fund_id
	`

	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query filing table: %w", err)
	}
	defer rows.Close()

	filings := []model.Filing{}
	for rows.Next() {
		f, err := scanFiling(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan filing table results: %w", err)
		}
		filings = append(filings, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating filing table: %w", err)
	}
	return filings, nil
}

// InsertFiling stores a new filing, assigning its ID and creation time.
// Returns ErrDuplicateFiling when the fund already has a filing for the period end date.
func (r *FilingRepository) InsertFiling(ctx context.Context, f *model.Filing) error {
	f.ID = uuid.New().String()
	f.CreatedAt = time.Now().UTC().Truncate(time.Second)

	query := `
		INSERT INTO filing (id, fund_id, accession_number, filing_date, period_end_date, total_assets, net_assets, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.getQuerier().ExecContext(ctx, query,
		f.ID,
		f.FundID,
		f.AccessionNumber,
		FormatDate(f.FilingDate),
		FormatDate(f.PeriodEndDate),
		f.TotalAssets,
		f.NetAssets,
		formatTimestamp(f.CreatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: fund %s period %s", apperrors.ErrDuplicateFiling, f.FundID, FormatDate(f.PeriodEndDate))
	}
	if err != nil {
		return fmt.Errorf("failed to insert filing: %w", err)
	}
	return nil
}

// CountFilings returns the number of filings stored for a fund.
func (r *FilingRepository) CountFilings(ctx context.Context, fundID string) (int, error) {
	var n int
	err := r.getQuerier().QueryRowContext(ctx, `SELECT COUNT(*) FROM filing WHERE fund_id = ?`, fundID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count filings: %w", err)
	}
	return n, nil
}

func scanFiling(row rowScanner) (model.Filing, error) {
	var f model.Filing
	var filingDate, periodEnd, created string

	if err := row.Scan(
		&f.ID,
		&f.FundID,
		&f.AccessionNumber,
		&filingDate,
		&periodEnd,
		&f.TotalAssets,
		&f.NetAssets,
		&created,
	); err != nil {
		return model.Filing{}, err
	}

	var err error
	if f.FilingDate, err = ParseTime(filingDate); err != nil {
		return model.Filing{}, err
	}
	if f.PeriodEndDate, err = ParseTime(periodEnd); err != nil {
		return model.Filing{}, err
	}
	if f.CreatedAt, err = ParseTime(created); err != nil {
		return model.Filing{}, err
	}
	return f, nil
}
