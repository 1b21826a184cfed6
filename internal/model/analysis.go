package model

import "time"

// Percentage tolerance used when checking that a filing's holdings sum to 100%.
const PercentageTolerance = 0.5

// FilingHoldings is the latest filing of a fund together with its holdings.
type FilingHoldings struct {
	Fund     Fund      `json:"fund"`
	Filing   Filing    `json:"filing"`
	Holdings []Holding `json:"holdings"`
}

// CategoryAllocation is the share of a fund in one asset category.
type CategoryAllocation struct {
	AssetCategory string  `json:"assetCategory"`
	Percentage    float64 `json:"percentage"`
	Value         float64 `json:"value"`
	Holdings      int     `json:"holdings"`
}

// Allocation is the breakdown of a fund's latest filing by asset category.
// Complete is false when the percentages do not sum to 100 within tolerance.
type Allocation struct {
	Ticker     string               `json:"ticker"`
	Categories []CategoryAllocation `json:"categories"`
	Total      float64              `json:"total"`
	Complete   bool                 `json:"complete"`
}

// SharedHolding is one security held by both funds of an overlap pair.
type SharedHolding struct {
	Key         string  `json:"key"`
	Name        string  `json:"name"`
	ValueA      float64 `json:"valueA"`
	PercentageA float64 `json:"percentageA"`
	ValueB      float64 `json:"valueB"`
	PercentageB float64 `json:"percentageB"`
}

// OverlapPair lists the holdings shared by funds A and B.
type OverlapPair struct {
	FundA  string          `json:"fundA"`
	FundB  string          `json:"fundB"`
	Shared []SharedHolding `json:"shared"`
}

// Keys returns the shared security keys of the pair.
func (p OverlapPair) Keys() []string {
	keys := make([]string, len(p.Shared))
	for i, s := range p.Shared {
		keys[i] = s.Key
	}
	return keys
}

// OverlapSummary aggregates the overlap across every compared fund. A
// security counts as overlapping when more than one fund holds it, and
// RedundantValue is the combined value of those securities across all funds.
type OverlapSummary struct {
	Tickers             []string       `json:"tickers"`
	HoldingsByFund      map[string]int `json:"holdingsByFund"`
	UniqueHoldings      int            `json:"uniqueHoldings"`
	OverlappingHoldings int            `json:"overlappingHoldings"`
	RedundantValue      float64        `json:"redundantValue"`
	MaxOverlap          int            `json:"maxOverlap"`
}

// OverlapAnalysis is the summary of a fund comparison with its pairwise detail.
type OverlapAnalysis struct {
	Summary OverlapSummary `json:"summary"`
	Pairs   []OverlapPair  `json:"pairs"`
}

// StructureNode is a node of a fund's Sankey diagram.
type StructureNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Type  string `json:"type"`
	Level int    `json:"level"`
}

// StructureLink is a weighted edge of a fund's Sankey diagram.
type StructureLink struct {
	Source     string  `json:"source"`
	Target     string  `json:"target"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// FundStructure is the Sankey representation of a fund and its sub-funds.
type FundStructure struct {
	Ticker string          `json:"ticker"`
	Nodes  []StructureNode `json:"nodes"`
	Links  []StructureLink `json:"links"`
}

// DataQuality reports how trustworthy a fund's latest filing is.
type DataQuality struct {
	Ticker            string    `json:"ticker"`
	PeriodEndDate     time.Time `json:"periodEndDate"`
	Holdings          int       `json:"holdings"`
	ResolvedTickers   int       `json:"resolvedTickers"`
	PercentageTotal   float64   `json:"percentageTotal"`
	Complete          bool      `json:"complete"`
	UnresolvedPercent float64   `json:"unresolvedPercent"`
}
