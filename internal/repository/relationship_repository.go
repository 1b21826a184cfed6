package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
)

// RelationshipRepository provides data access methods for the fund_relationship table.
// Edges are derived from holdings whose ticker matches a stored fund and can be
// rebuilt at any time.
type RelationshipRepository struct {
	db *sql.DB
	tx *sql.Tx
}

// NewRelationshipRepository creates a new RelationshipRepository with the provided database connection.
func NewRelationshipRepository(db *sql.DB) *RelationshipRepository {
	return &RelationshipRepository{db: db}
}

func (r *RelationshipRepository) WithTx(tx *sql.Tx) *RelationshipRepository {
	return &RelationshipRepository{
		db: r.db,
		tx: tx,
	}
}

func (r *RelationshipRepository) getQuerier() querier {
	if r.tx != nil {
		return r.tx
	}
	return r.db
}

// latestFilingOf selects the latest filing ID of the fund bound to the placeholder.
const latestFilingOf = `(
	SELECT id FROM filing lf
	WHERE lf.fund_id = ?
	ORDER BY lf.period_end_date DESC, lf.filing_date DESC
	LIMIT 1
)`

// LinkParent creates edges from the fund owning filingID to every stored fund
// its holdings reference by ticker. Multiple holdings of the same child are summed.
// Returns the number of edges created.
func (r *RelationshipRepository) LinkParent(ctx context.Context, parentFundID, filingID string) (int, error) {
	query := `
		SELECT c.id, SUM(h.percentage), SUM(h.value)
		FROM holding h
		INNER JOIN fund c ON c.ticker = h.ticker
		WHERE h.filing_id = ? AND c.id <> ?
		GROUP BY c.id
	`

	rows, err := r.getQuerier().QueryContext(ctx, query, filingID, parentFundID)
	if err != nil {
		return 0, fmt.Errorf("failed to query parent holdings: %w", err)
	}

	var edges []model.FundRelationship
	for rows.Next() {
		e := model.FundRelationship{ParentFundID: parentFundID, FilingID: filingID}
		if err := rows.Scan(&e.ChildFundID, &e.Percentage, &e.Value); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan parent holdings: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("error iterating parent holdings: %w", err)
	}
	rows.Close()

	return r.insertEdges(ctx, edges)
}

// LinkChild creates edges into childFund from the latest filing of every other
// fund holding its ticker. Returns the number of edges created.
func (r *RelationshipRepository) LinkChild(ctx context.Context, child model.Fund) (int, error) {
	query := `
		SELECT fi.fund_id, fi.id, SUM(h.percentage), SUM(h.value)
		FROM holding h
		INNER JOIN filing fi ON fi.id = h.filing_id
		WHERE h.ticker = ?
		AND fi.fund_id <> ?
		AND fi.id = (
			SELECT id FROM filing lf
			WHERE lf.fund_id = fi.fund_id
			ORDER BY lf.period_end_date DESC, lf.filing_date DESC
			LIMIT 1
		)
		GROUP BY fi.fund_id, fi.id
	`

	rows, err := r.getQuerier().QueryContext(ctx, query, child.Ticker, child.ID)
	if err != nil {
		return 0, fmt.Errorf("failed to query child holdings: %w", err)
	}

	var edges []model.FundRelationship
	for rows.Next() {
		e := model.FundRelationship{ChildFundID: child.ID}
		if err := rows.Scan(&e.ParentFundID, &e.FilingID, &e.Percentage, &e.Value); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan child holdings: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, fmt.Errorf("error iterating child holdings: %w", err)
	}
	rows.Close()

	return r.insertEdges(ctx, edges)
}

func (r *RelationshipRepository) insertEdges(ctx context.Context, edges []model.FundRelationship) (int, error) {
	query := `
		INSERT OR IGNORE INTO fund_relationship (id, parent_fund_id, child_fund_id, filing_id, percentage, value)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	created := 0
	for _, e := range edges {
		result, err := r.getQuerier().ExecContext(ctx, query,
			uuid.New().String(),
			e.ParentFundID,
			e.ChildFundID,
			e.FilingID,
			e.Percentage,
			e.Value,
		)
		if err != nil {
			return created, fmt.Errorf("failed to insert fund_relationship: %w", err)
		}
		if n, err := result.RowsAffected(); err == nil {
			created += int(n)
		}
	}
	return created, nil
}

// DeleteAll removes every relationship edge.
func (r *RelationshipRepository) DeleteAll(ctx context.Context) error {
	if _, err := r.getQuerier().ExecContext(ctx, `DELETE FROM fund_relationship`); err != nil {
		return fmt.Errorf("failed to delete fund_relationship: %w", err)
	}
	return nil
}

// GetChildren retrieves the edges of a fund's latest filing, largest weight first.
func (r *RelationshipRepository) GetChildren(ctx context.Context, parentFundID string) ([]model.FundRelationship, error) {
	query := `
		SELECT fr.id, fr.parent_fund_id, fr.child_fund_id, p.ticker, c.ticker, fr.filing_id, fr.percentage, fr.value
		FROM fund_relationship fr
		INNER JOIN fund p ON p.id = fr.parent_fund_id
		INNER JOIN fund c ON c.id = fr.child_fund_id
		WHERE fr.parent_fund_id = ?
		AND fr.filing_id = ` + latestFilingOf + `
		ORDER BY fr.percentage DESC, c.ticker ASC
	`

	rows, err := r.getQuerier().QueryContext(ctx, query, parentFundID, parentFundID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fund_relationship table: %w", err)
	}
	defer rows.Close()

	edges := []model.FundRelationship{}
	for rows.Next() {
		var e model.FundRelationship
		if err := rows.Scan(
			&e.ID,
			&e.ParentFundID,
			&e.ChildFundID,
			&e.ParentTicker,
			&e.ChildTicker,
			&e.FilingID,
			&e.Percentage,
			&e.Value,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fund_relationship table results: %w", err)
		}
		edges = append(edges, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fund_relationship table: %w", err)
	}
	return edges, nil
}

// CountRelationships returns the number of stored edges.
func (r *RelationshipRepository) CountRelationships(ctx context.Context) (int, error) {
	var n int
	if err := r.getQuerier().QueryRowContext(ctx, `SELECT COUNT(*) FROM fund_relationship`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count fund_relationship: %w", err)
	}
	return n, nil
}
