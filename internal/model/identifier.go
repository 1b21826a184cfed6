package model

// Identifier is the result of resolving one CUSIP.
// Ticker is "Not Found" when the mapping service has no match.
type Identifier struct {
	CUSIP        string `json:"cusip"`
	Ticker       string `json:"ticker"`
	Name         string `json:"name,omitempty"`
	SecurityType string `json:"securityType,omitempty"`
}
