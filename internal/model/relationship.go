package model

// FundRelationship is a derived parent -> child edge built from a parent's
// filing holding shares of the child fund.
type FundRelationship struct {
	ID           string  `json:"id"`
	ParentFundID string  `json:"parentFundId"`
	ChildFundID  string  `json:"childFundId"`
	ParentTicker string  `json:"parentTicker"`
	ChildTicker  string  `json:"childTicker"`
	FilingID     string  `json:"filingId"`
	Percentage   float64 `json:"percentage"`
	Value        float64 `json:"value"`
}
