package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
)

// HoldingRepository provides data access methods for the holding table.
type HoldingRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewHoldingRepository creates a new HoldingRepository with the provided database connection.
func NewHoldingRepository(db *sql.DB) *HoldingRepository {
	return &HoldingRepository{db: db}
}

func (r *HoldingRepository) WithTx(tx *sql.Tx) *HoldingRepository {
	return &HoldingRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *HoldingRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// ReplaceHoldings replaces the holding set of a filing.
// IDs are assigned to the given holdings. Callers are expected to run this in a transaction.
func (r *HoldingRepository) ReplaceHoldings(ctx context.Context, filingID string, holdings []model.Holding) error {
	if _, err := r.getQuerier().ExecContext(ctx, `DELETE FROM holding WHERE filing_id = ?`, filingID); err != nil {
		return fmt.Errorf("failed to delete holdings: %w", err)
	}

	query := `
		INSERT INTO holding (id, filing_id, cusip, ticker, name, title, value, percentage, asset_type, issuer_category, security_type, ticker_source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i := range holdings {
		h := &holdings[i]
		h.ID = uuid.New().String()
		h.FilingID = filingID

		_, err := r.getQuerier().ExecContext(ctx, query,
			h.ID,
			h.FilingID,
			h.CUSIP,
			nullString(h.TickerOrEmpty()),
			h.Name,
			h.Title,
			h.Value,
			h.Percentage,
			h.AssetCategory,
			h.IssuerCategory,
			h.SecurityType,
			h.TickerSource,
		)
		if err != nil {
			return fmt.Errorf("failed to insert holding %s: %w", h.CUSIP, err)
		}
	}
	return nil
}

// GetHoldingsByFiling retrieves the holdings of a filing sorted by value
// descending, ties broken by name ascending.
func (r *HoldingRepository) GetHoldingsByFiling(ctx context.Context, filingID string) ([]model.Holding, error) {
	query := `
		SELECT id, filing_id, cusip, ticker, name, title, value, percentage, asset_type, issuer_category, security_type, ticker_source
		FROM holding
		WHERE filing_id = ?
		ORDER BY value DESC, name ASC
	`

	rows, err := r.getQuerier().QueryContext(ctx, query, filingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding table: %w", err)
	}
	defer rows.Close()

	holdings := []model.Holding{}
	for rows.Next() {
		var h model.Holding
		var ticker sql.NullString

		if err := rows.Scan(
			&h.ID,
			&h.FilingID,
			&h.CUSIP,
			&ticker,
			&h.Name,
			&h.Title,
			&h.Value,
			&h.Percentage,
			&h.AssetCategory,
			&h.IssuerCategory,
			&h.SecurityType,
			&h.TickerSource,
		); err != nil {
			return nil, fmt.Errorf("failed to scan holding table results: %w", err)
		}
		if ticker.Valid && ticker.String != "" {
			t := ticker.String
			h.Ticker = &t
		}
		holdings = append(holdings, h)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding table: %w", err)
	}
	return holdings, nil
}

// GetUnresolvedCUSIPs returns the distinct CUSIPs of holdings without a ticker.
func (r *HoldingRepository) GetUnresolvedCUSIPs(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT cusip
		FROM holding
		WHERE (ticker IS NULL OR ticker = '') AND cusip <> ''
		ORDER BY cusip
	`

	rows, err := r.getQuerier().QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query holding table: %w", err)
	}
	defer rows.Close()

	cusips := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("failed to scan holding table results: %w", err)
		}
		cusips = append(cusips, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holding table: %w", err)
	}
	return cusips, nil
}

// UpdateTickerByCUSIP sets a resolved ticker and security type on every holding
// of the given CUSIP and returns the number of rows changed.
func (r *HoldingRepository) UpdateTickerByCUSIP(ctx context.Context, cusip, ticker, securityType string) (int64, error) {
	query := `UPDATE holding SET ticker = ?, security_type = ?, ticker_source = 'resolver' WHERE cusip = ?`
	result, err := r.getQuerier().ExecContext(ctx, query, ticker, securityType, cusip)
	if err != nil {
		return 0, fmt.Errorf("failed to update holding ticker: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}
