package model

import "strings"

// Issuer category reported for registered investment companies (mutual funds, ETFs).
const IssuerCategoryRegisteredFund = "RF"

// Origin of a holding's ticker.
const (
	TickerSourceResolver = "resolver" // mapped from the CUSIP by the identifier service
	TickerSourceFiling   = "filing"   // printed in the filing itself
)

// HoldingRow is a single validated line of a filing's holdings table.
type HoldingRow struct {
	CUSIP          string
	Ticker         string // ticker reported in the filing, often empty
	Name           string
	Title          string
	Value          float64
	Percentage     float64
	AssetCategory  string
	IssuerCategory string
}

// IsRegisteredFund reports whether the filing classifies the issuer as a registered fund.
func (h HoldingRow) IsRegisteredFund() bool {
	return strings.EqualFold(h.IssuerCategory, IssuerCategoryRegisteredFund)
}

// Holding represents a stored holding of a filing.
type Holding struct {
	ID             string  `json:"id"`
	FilingID       string  `json:"filingId"`
	CUSIP          string  `json:"cusip"`
	Ticker         *string `json:"ticker"`
	Name           string  `json:"name"`
	Title          string  `json:"title"`
	Value          float64 `json:"value"`
	Percentage     float64 `json:"percentage"`
	AssetCategory  string  `json:"assetCategory"`
	IssuerCategory string  `json:"issuerCategory"`
	SecurityType   string  `json:"securityType,omitempty"` // as reported by the identifier mapping service
	TickerSource   string  `json:"tickerSource,omitempty"`
}

// TickerOrEmpty returns the resolved ticker, or "" when unresolved.
func (h Holding) TickerOrEmpty() string {
	if h.Ticker == nil {
		return ""
	}
	return *h.Ticker
}

// Resolved reports whether the ticker was mapped from the CUSIP by the
// identifier service rather than copied from the filing.
func (h Holding) Resolved() bool {
	return h.TickerOrEmpty() != "" && h.TickerSource == TickerSourceResolver
}

// Key identifies the underlying security of a holding: the resolved ticker,
// falling back to "CUSIP:<cusip>", then to the upper-cased name for securities
// reported without a CUSIP.
func (h Holding) Key() string {
	if t := h.TickerOrEmpty(); t != "" {
		return t
	}
	if h.CUSIP != "" {
		return "CUSIP:" + h.CUSIP
	}
	return "NAME:" + strings.ToUpper(strings.TrimSpace(h.Name))
}
