package model

import "time"

// FundType classifies a fund by what it holds.
type FundType string

const (
	// FundTypeFundOfFunds marks a fund whose holdings are predominantly other funds.
	FundTypeFundOfFunds FundType = "fund_of_funds"
	// FundTypeUnderlying marks a fund that holds securities directly.
	FundTypeUnderlying FundType = "underlying_fund"
)

// Valid reports whether t is one of the known fund types.
func (t FundType) Valid() bool {
	return t == FundTypeFundOfFunds || t == FundTypeUnderlying
}

// Fund represents a fund from the database. Ticker is the identity key.
type Fund struct {
	ID        string    `json:"id"`
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	Type      FundType  `json:"fundType"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// FundSummary is a fund together with its latest filing metadata.
type FundSummary struct {
	Fund
	LatestFilingDate *time.Time `json:"latestFilingDate,omitempty"`
	PeriodEndDate    *time.Time `json:"periodEndDate,omitempty"`
	TotalAssets      float64    `json:"totalAssets"`
	HoldingCount     int        `json:"holdingCount"`
}
