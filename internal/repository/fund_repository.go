package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
)

// FundRepository provides data access methods for the fund table.
type FundRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewFundRepository creates a new FundRepository with the provided database connection.
func NewFundRepository(db *sql.DB) *FundRepository {
	return &FundRepository{db: db}
}

func (r *FundRepository) WithTx(tx *sql.Tx) *FundRepository {
	return &FundRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *FundRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

const fundColumns = `f.id, f.ticker, f.name, f.fund_type, f.created_at, f.updated_at`

// GetFundByTicker retrieves a fund by its ticker.
// Returns ErrFundNotFound if no fund carries the ticker.
func (r *FundRepository) GetFundByTicker(ctx context.Context, ticker string) (model.Fund, error) {
	if ticker == "" {
		return model.Fund{}, apperrors.ErrInvalidTicker
	}

	query := `SELECT ` + fundColumns + ` FROM fund f WHERE f.ticker = ?`

	f, err := scanFund(r.getQuerier().QueryRowContext(ctx, query, strings.ToUpper(ticker)))
	if err == sql.ErrNoRows {
		return model.Fund{}, apperrors.ErrFundNotFound
	}
	if err != nil {
		return model.Fund{}, fmt.Errorf("failed to query fund table: %w", err)
	}
	return f, nil
}

// GetFundsByTickers retrieves the stored funds among the given tickers, keyed by ticker.
// Tickers without a fund are absent from the map.
func (r *FundRepository) GetFundsByTickers(ctx context.Context, tickers []string) (map[string]model.Fund, error) {
	funds := make(map[string]model.Fund, len(tickers))
	if len(tickers) == 0 {
		return funds, nil
	}

	//#nosec G202 -- Safe: placeholders are generated programmatically, not from user input
	query := `SELECT ` + fundColumns + ` FROM fund f WHERE f.ticker IN (` + placeholders(len(tickers)) + `)`

	rows, err := r.getQuerier().QueryContext(ctx, query, toArgs(tickers)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund table: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		f, err := scanFund(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fund table results: %w", err)
		}
		funds[f.Ticker] = f
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund table: %w", err)
	}
	return funds, nil
}

// ListFunds retrieves all funds with metadata of their latest filing.
// An empty fundType returns every fund.
func (r *FundRepository) ListFunds(ctx context.Context, fundType model.FundType) ([]model.FundSummary, error) {
	query := `
		SELECT ` + fundColumns + `, lf.filing_date, lf.period_end_date, COALESCE(lf.total_assets, 0),
			(SELECT COUNT(*) FROM holding h WHERE h.filing_id = lf.id)
		FROM fund f
		LEFT JOIN filing lf ON lf.id = (
			SELECT id FROM filing
			WHERE fund_id = f.id
			ORDER BY period_end_date DESC, filing_date DESC
			LIMIT 1
		)
	`
	var args []any
	if fundType != "" {
		query += ` WHERE f.fund_type = ?`
		args = append(args, string(fundType))
	}
	query += ` ORDER BY f.ticker ASC`

	rows, err := r.getQuerier().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund table: %w", err)
	}
	defer rows.Close()

	funds := []model.FundSummary{}
	for rows.Next() {
		var s model.FundSummary
		var fundType, createdStr, updatedStr string
		var filingDate, periodEnd sql.NullString

		if err := rows.Scan(
			&s.ID,
			&s.Ticker,
			&s.Name,
			&fundType,
			&createdStr,
			&updatedStr,
			&filingDate,
			&periodEnd,
			&s.TotalAssets,
			&s.HoldingCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fund table results: %w", err)
		}
		s.Type = model.FundType(fundType)
		if s.CreatedAt, err = ParseTime(createdStr); err != nil {
			return nil, err
		}
		if s.UpdatedAt, err = ParseTime(updatedStr); err != nil {
			return nil, err
		}
		if filingDate.Valid {
			d, err := ParseTime(filingDate.String)
			if err != nil {
				return nil, err
			}
			s.LatestFilingDate = &d
		}
		if periodEnd.Valid {
			d, err := ParseTime(periodEnd.String)
			if err != nil {
				return nil, err
			}
			s.PeriodEndDate = &d
		}
		funds = append(funds, s)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund table: %w", err)
	}
	return funds, nil
}

// GetTopLevelFunds retrieves funds that hold other funds but are not held by any fund.
func (r *FundRepository) GetTopLevelFunds(ctx context.Context) ([]model.Fund, error) {
	query := `
		SELECT DISTINCT ` + fundColumns + `
		FROM fund f
		INNER JOIN fund_relationship p ON p.parent_fund_id = f.id
		WHERE f.id NOT IN (SELECT child_fund_id FROM fund_relationship)
		ORDER BY f.ticker ASC
	`

	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund table: %w", err)
	}
	defer rows.Close()

	funds := []model.Fund{}
	for rows.Next() {
		f, err := scanFund(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan fund table results: %w", err)
		}
		funds = append(funds, f)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund table: %w", err)
	}
	return funds, nil
}

// UpsertFund creates the fund when its ticker is unknown, otherwise updates
// name, type and updated_at. The returned flag reports whether a row was created.
// An empty name keeps the stored name.
func (r *FundRepository) UpsertFund(ctx context.Context, ticker, name string, fundType model.FundType) (model.Fund, bool, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return model.Fund{}, false, apperrors.ErrInvalidTicker
	}
	if !fundType.Valid() {
		return model.Fund{}, false, fmt.Errorf("invalid fund type %q", fundType)
	}

	now := time.Now().UTC().Truncate(time.Second)

	existing, err := r.GetFundByTicker(ctx, ticker)
	switch {
	case err == nil:
		if name == "" {
			name = existing.Name
		}
		query := `UPDATE fund SET name = ?, fund_type = ?, updated_at = ? WHERE id = ?`
		if _, err := r.getQuerier().ExecContext(ctx, query, name, string(fundType), formatTimestamp(now), existing.ID); err != nil {
			return model.Fund{}, false, fmt.Errorf("failed to update fund: %w", err)
		}
		existing.Name = name
		existing.Type = fundType
		existing.UpdatedAt = now
		return existing, false, nil

	case err != apperrors.ErrFundNotFound:
		return model.Fund{}, false, err
	}

	if name == "" {
		name = ticker
	}
	f := model.Fund{
		ID:        uuid.New().String(),
		Ticker:    ticker,
		Name:      name,
		Type:      fundType,
		CreatedAt: now,
		UpdatedAt: now,
	}

	query := `
		INSERT INTO fund (id, ticker, name, fund_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = r.getQuerier().ExecContext(ctx, query,
		f.ID,
		f.Ticker,
		f.Name,
		string(f.Type),
		formatTimestamp(f.CreatedAt),
		formatTimestamp(f.UpdatedAt),
	)
	if err != nil {
		return model.Fund{}, false, fmt.Errorf("failed to insert fund: %w", err)
	}
	return f, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFund(row rowScanner) (model.Fund, error) {
	var f model.Fund
	var fundType, createdStr, updatedStr string

	if err := row.Scan(&f.ID, &f.Ticker, &f.Name, &fundType, &createdStr, &updatedStr); err != nil {
		return model.Fund{}, err
	}
	f.Type = model.FundType(fundType)

	var err error
	if f.CreatedAt, err = ParseTime(createdStr); err != nil {
		return model.Fund{}, err
	}
	if f.UpdatedAt, err = ParseTime(updatedStr); err != nil {
		return model.Fund{}, err
	}
	return f, nil
}
