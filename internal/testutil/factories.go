package testutil

import (
	"database/sql"
	"testing"
	"time"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
)

const dateLayout = "2006-01-02"

// FundBuilder provides a fluent interface for creating test funds.
//
// Example usage:
//
//	// Simple creation with defaults
//	fund := testutil.NewFund().Build(t, db)
//
//	// Customized fund
//	fund := testutil.NewFund().
//	    WithTicker("MDIZX").
//	    FundOfFunds().
//	    Build(t, db)
type FundBuilder struct {
	ID     string
	Ticker string
	Name   string
	Type   model.FundType
}

// NewFund creates a FundBuilder with sensible defaults.
func NewFund() *FundBuilder {
	return &FundBuilder{
		ID:     MakeID(),
		Ticker: MakeTicker(),
		Name:   MakeFundName("Test Fund"),
		Type:   model.FundTypeUnderlying,
	}
}

// WithTicker sets a custom ticker.
func (b *FundBuilder) WithTicker(ticker string) *FundBuilder {
	b.Ticker = ticker
	return b
}

// WithName sets a custom name.
func (b *FundBuilder) WithName(name string) *FundBuilder {
	b.Name = name
	return b
}

// FundOfFunds marks the fund as a fund of funds.
func (b *FundBuilder) FundOfFunds() *FundBuilder {
	b.Type = model.FundTypeFundOfFunds
	return b
}

// Build creates the fund in the database and returns it.
func (b *FundBuilder) Build(t *testing.T, db *sql.DB) model.Fund {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	query := `
		INSERT INTO fund (id, ticker, name, fund_type, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query, b.ID, b.Ticker, b.Name, string(b.Type), now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		t.Fatalf("Failed to create test fund: %v", err)
	}

	return model.Fund{
		ID:        b.ID,
		Ticker:    b.Ticker,
		Name:      b.Name,
		Type:      b.Type,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreateFund creates a fund with the given ticker and default values.
func CreateFund(t *testing.T, db *sql.DB, ticker string) model.Fund {
	t.Helper()
	return NewFund().WithTicker(ticker).Build(t, db)
}

// FilingBuilder provides a fluent interface for creating test filings.
//
// Example usage:
//
//	filing := testutil.NewFiling(fund.ID).
//	    WithPeriodEnd(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)).
//	    Build(t, db)
type FilingBuilder struct {
	ID              string
	FundID          string
	AccessionNumber string
	FilingDate      time.Time
	PeriodEndDate   time.Time
	TotalAssets     float64
	NetAssets       float64
}

// NewFiling creates a FilingBuilder for the given fund with sensible defaults.
func NewFiling(fundID string) *FilingBuilder {
	return &FilingBuilder{
		ID:              MakeID(),
		FundID:          fundID,
		AccessionNumber: "0000000000-24-" + randomDigits(6),
		FilingDate:      time.Date(2024, 8, 29, 0, 0, 0, 0, time.UTC),
		PeriodEndDate:   time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		TotalAssets:     1000000,
		NetAssets:       1000000,
	}
}

// WithPeriodEnd sets the period end date.
func (b *FilingBuilder) WithPeriodEnd(d time.Time) *FilingBuilder {
	b.PeriodEndDate = d
	return b
}

// WithFilingDate sets the filing date.
func (b *FilingBuilder) WithFilingDate(d time.Time) *FilingBuilder {
	b.FilingDate = d
	return b
}

// WithTotalAssets sets total assets.
func (b *FilingBuilder) WithTotalAssets(v float64) *FilingBuilder {
	b.TotalAssets = v
	return b
}

// Build creates the filing in the database and returns it.
func (b *FilingBuilder) Build(t *testing.T, db *sql.DB) model.Filing {
	t.Helper()

	now := time.Now().UTC().Truncate(time.Second)
	query := `
		INSERT INTO filing (id, fund_id, accession_number, filing_date, period_end_date, total_assets, net_assets, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.Exec(query,
		b.ID,
		b.FundID,
		b.AccessionNumber,
		b.FilingDate.Format(dateLayout),
		b.PeriodEndDate.Format(dateLayout),
		b.TotalAssets,
		b.NetAssets,
		now.Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("Failed to create test filing: %v", err)
	}

	return model.Filing{
		ID:              b.ID,
		FundID:          b.FundID,
		AccessionNumber: b.AccessionNumber,
		FilingDate:      b.FilingDate,
		PeriodEndDate:   b.PeriodEndDate,
		TotalAssets:     b.TotalAssets,
		NetAssets:       b.NetAssets,
		CreatedAt:       now,
	}
}

// HoldingBuilder provides a fluent interface for creating test holdings.
//
// Example usage:
//
//	testutil.NewHolding(filing.ID).
//	    WithTicker("MRSKX").
//	    WithValue(275000, 27.5).
//	    Build(t, db)
type HoldingBuilder struct {
	ID             string
	FilingID       string
	CUSIP          string
	Ticker         string
	Name           string
	Title          string
	Value          float64
	Percentage     float64
	AssetCategory  string
	IssuerCategory string
	TickerSource   string
}

// NewHolding creates a HoldingBuilder for the given filing with sensible defaults.
func NewHolding(filingID string) *HoldingBuilder {
	return &HoldingBuilder{
		ID:            MakeID(),
		FilingID:      filingID,
		CUSIP:         MakeCUSIP(),
		Name:          MakeFundName("Holding"),
		Value:         1000,
		Percentage:    1,
		AssetCategory: "EC",
	}
}

// WithCUSIP sets the CUSIP.
func (b *HoldingBuilder) WithCUSIP(cusip string) *HoldingBuilder {
	b.CUSIP = cusip
	return b
}

// WithTicker sets the resolved ticker.
func (b *HoldingBuilder) WithTicker(ticker string) *HoldingBuilder {
	b.Ticker = ticker
	b.TickerSource = model.TickerSourceResolver
	return b
}

// WithFilingTicker sets a ticker copied from the filing, not resolved.
func (b *HoldingBuilder) WithFilingTicker(ticker string) *HoldingBuilder {
	b.Ticker = ticker
	b.TickerSource = model.TickerSourceFiling
	return b
}

// WithName sets the name.
func (b *HoldingBuilder) WithName(name string) *HoldingBuilder {
	b.Name = name
	return b
}

// WithValue sets market value and percentage of net assets.
func (b *HoldingBuilder) WithValue(value, percentage float64) *HoldingBuilder {
	b.Value = value
	b.Percentage = percentage
	return b
}

// WithAssetCategory sets the asset category.
func (b *HoldingBuilder) WithAssetCategory(category string) *HoldingBuilder {
	b.AssetCategory = category
	return b
}

// RegisteredFund marks the issuer as a registered fund.
func (b *HoldingBuilder) RegisteredFund() *HoldingBuilder {
	b.IssuerCategory = model.IssuerCategoryRegisteredFund
	return b
}

// Build creates the holding in the database and returns it.
func (b *HoldingBuilder) Build(t *testing.T, db *sql.DB) model.Holding {
	t.Helper()

	var ticker any
	if b.Ticker != "" {
		ticker = b.Ticker
	}

	query := `
		INSERT INTO holding (id, filing_id, cusip, ticker, name, title, value, percentage, asset_type, issuer_category, ticker_source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.Exec(query, b.ID, b.FilingID, b.CUSIP, ticker, b.Name, b.Title, b.Value, b.Percentage, b.AssetCategory, b.IssuerCategory, b.TickerSource)
	if err != nil {
		t.Fatalf("Failed to create test holding: %v", err)
	}

	h := model.Holding{
		ID:             b.ID,
		FilingID:       b.FilingID,
		CUSIP:          b.CUSIP,
		Name:           b.Name,
		Title:          b.Title,
		Value:          b.Value,
		Percentage:     b.Percentage,
		AssetCategory:  b.AssetCategory,
		IssuerCategory: b.IssuerCategory,
		TickerSource:   b.TickerSource,
	}
	if b.Ticker != "" {
		tk := b.Ticker
		h.Ticker = &tk
	}
	return h
}

// CreateRelationship inserts a fund_relationship edge directly.
func CreateRelationship(t *testing.T, db *sql.DB, parentID, childID, filingID string, percentage, value float64) {
	t.Helper()

	query := `
		INSERT INTO fund_relationship (id, parent_fund_id, child_fund_id, filing_id, percentage, value)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	if _, err := db.Exec(query, MakeID(), parentID, childID, filingID, percentage, value); err != nil {
		t.Fatalf("Failed to create test relationship: %v", err)
	}
}

// NportFilingBuilder builds in-memory filings for MockFilingClient.
//
// Example usage:
//
//	filing := testutil.NewNportFiling("MDIZX").
//	    WithRow(testutil.Row("00123XYZ", "Risk Parity Fund", 275000, 27.5)).
//	    Get()
type NportFilingBuilder struct {
	filing model.NportFiling
}

// NewNportFiling creates a filing for ticker with a fixed period end of 2024-06-30.
func NewNportFiling(ticker string) *NportFilingBuilder {
	return &NportFilingBuilder{filing: model.NportFiling{
		Ticker:          ticker,
		CIK:             "36405",
		SeriesName:      ticker + " Fund",
		AccessionNumber: "0000036405-24-" + randomDigits(6),
		FilingDate:      time.Date(2024, 8, 29, 0, 0, 0, 0, time.UTC),
		PeriodEndDate:   time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
		TotalAssets:     1000000,
		NetAssets:       1000000,
	}}
}

// WithPeriodEnd sets the period end date.
func (b *NportFilingBuilder) WithPeriodEnd(d time.Time) *NportFilingBuilder {
	b.filing.PeriodEndDate = d
	return b
}

// WithName sets the series name.
func (b *NportFilingBuilder) WithName(name string) *NportFilingBuilder {
	b.filing.SeriesName = name
	return b
}

// WithRow appends a holding row.
func (b *NportFilingBuilder) WithRow(rows ...model.HoldingRow) *NportFilingBuilder {
	b.filing.Holdings = append(b.filing.Holdings, rows...)
	return b
}

// Get returns the built filing.
func (b *NportFilingBuilder) Get() model.NportFiling {
	return b.filing
}

// Row builds a plain equity holding row.
func Row(cusip, name string, value, percentage float64) model.HoldingRow {
	return model.HoldingRow{
		CUSIP:         cusip,
		Name:          name,
		Value:         value,
		Percentage:    percentage,
		AssetCategory: "EC",
	}
}

// TickerRow builds a plain equity holding row that carries a ticker in the filing.
func TickerRow(cusip, ticker, name string, value, percentage float64) model.HoldingRow {
	r := Row(cusip, name, value, percentage)
	r.Ticker = ticker
	return r
}

// FundRow builds a holding row for a registered fund.
func FundRow(cusip, name string, value, percentage float64) model.HoldingRow {
	r := Row(cusip, name, value, percentage)
	r.IssuerCategory = model.IssuerCategoryRegisteredFund
	return r
}
