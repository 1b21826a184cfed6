package model

import "time"

// Filing is one periodic holdings snapshot of a fund.
// At most one filing exists per (fund, period end date).
type Filing struct {
	ID              string    `json:"id"`
	FundID          string    `json:"fundId"`
	AccessionNumber string    `json:"accessionNumber"`
	FilingDate      time.Time `json:"filingDate"`
	PeriodEndDate   time.Time `json:"periodEndDate"`
	TotalAssets     float64   `json:"totalAssets"`
	NetAssets       float64   `json:"netAssets"`
	CreatedAt       time.Time `json:"createdAt"`
}

// NportFiling is a parsed NPORT-P filing as returned by the filing fetcher.
// It is not persisted as-is; the loader maps it onto Fund, Filing and Holding rows.
type NportFiling struct {
	Ticker          string
	CIK             string
	SeriesID        string
	SeriesName      string
	AccessionNumber string
	FilingDate      time.Time
	PeriodEndDate   time.Time
	TotalAssets     float64
	NetAssets       float64
	Holdings        []HoldingRow
}

// Empty reports whether the filing carries no holdings.
func (f NportFiling) Empty() bool {
	return len(f.Holdings) == 0
}
