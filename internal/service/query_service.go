package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/repository"
)

// QueryService provides the read side used by the HTTP API and the chat assistant.
// Unknown tickers produce empty results, never errors; errors are reserved for
// storage failures.
type QueryService struct {
	fundRepo    *repository.FundRepository
	filingRepo  *repository.FilingRepository
	holdingRepo *repository.HoldingRepository
	relRepo     *repository.RelationshipRepository
}

// NewQueryService creates a new QueryService with the provided repository dependencies.
func NewQueryService(
	fundRepo *repository.FundRepository,
	filingRepo *repository.FilingRepository,
	holdingRepo *repository.HoldingRepository,
	relRepo *repository.RelationshipRepository,
) *QueryService {
	return &QueryService{
		fundRepo:    fundRepo,
		filingRepo:  filingRepo,
		holdingRepo: holdingRepo,
		relRepo:     relRepo,
	}
}

// ListFunds retrieves all funds with their latest filing metadata.
// An empty fundType returns every fund.
func (s *QueryService) ListFunds(ctx context.Context, fundType model.FundType) ([]model.FundSummary, error) {
	return s.fundRepo.ListFunds(ctx, fundType)
}

// GetFund retrieves a fund by ticker. The flag is false for unknown tickers.
func (s *QueryService) GetFund(ctx context.Context, ticker string) (model.Fund, bool, error) {
	fund, err := s.fundRepo.GetFundByTicker(ctx, normalizeTicker(ticker))
	if errors.Is(err, apperrors.ErrFundNotFound) || errors.Is(err, apperrors.ErrInvalidTicker) {
		return model.Fund{}, false, nil
	}
	if err != nil {
		return model.Fund{}, false, err
	}
	return fund, true, nil
}

// TopLevelFunds retrieves funds that hold other funds and are not held by any stored fund.
func (s *QueryService) TopLevelFunds(ctx context.Context) ([]model.Fund, error) {
	return s.fundRepo.GetTopLevelFunds(ctx)
}

// LatestFilingHoldings retrieves the most recent filing of a fund and its holdings,
// sorted by value descending with ties broken by name ascending.
// For unknown tickers, or funds without filings, the result has no fund and no holdings.
func (s *QueryService) LatestFilingHoldings(ctx context.Context, ticker string) (model.FilingHoldings, error) {
	empty := model.FilingHoldings{Holdings: []model.Holding{}}

	fund, found, err := s.GetFund(ctx, ticker)
	if err != nil || !found {
		return empty, err
	}

	filing, err := s.filingRepo.GetLatestFiling(ctx, fund.ID)
	if errors.Is(err, apperrors.ErrFilingNotFound) {
		empty.Fund = fund
		return empty, nil
	}
	if err != nil {
		return empty, err
	}

	holdings, err := s.holdingRepo.GetHoldingsByFiling(ctx, filing.ID)
	if err != nil {
		return empty, err
	}
	sortHoldings(holdings)

	return model.FilingHoldings{Fund: fund, Filing: filing, Holdings: holdings}, nil
}

// TopHoldings returns the n largest holdings of a fund's latest filing by value,
// ties broken by name ascending. n <= 0 returns an empty slice.
func (s *QueryService) TopHoldings(ctx context.Context, ticker string, n int) ([]model.Holding, error) {
	if n <= 0 {
		return []model.Holding{}, nil
	}
	latest, err := s.LatestFilingHoldings(ctx, ticker)
	if err != nil {
		return nil, err
	}
	if len(latest.Holdings) > n {
		return latest.Holdings[:n], nil
	}
	return latest.Holdings, nil
}

// AllocationByCategory groups a fund's latest holdings by asset category and sums
// their percentages and values. Complete is false when the percentage total is
// not 100 within model.PercentageTolerance.
func (s *QueryService) AllocationByCategory(ctx context.Context, ticker string) (model.Allocation, error) {
	latest, err := s.LatestFilingHoldings(ctx, ticker)
	if err != nil {
		return model.Allocation{}, err
	}

	allocation := model.Allocation{
		Ticker:     normalizeTicker(ticker),
		Categories: []model.CategoryAllocation{},
	}
	if len(latest.Holdings) == 0 {
		return allocation, nil
	}

	type bucket struct {
		pct, value decimal.Decimal
		count      int
	}
	buckets := map[string]*bucket{}
	total := decimal.Zero

	for _, h := range latest.Holdings {
		category := strings.TrimSpace(h.AssetCategory)
		if category == "" {
			category = "UNKNOWN"
		}
		b, ok := buckets[category]
		if !ok {
			b = &bucket{pct: decimal.Zero, value: decimal.Zero}
			buckets[category] = b
		}
		pct := decimal.NewFromFloat(h.Percentage)
		b.pct = b.pct.Add(pct)
		b.value = b.value.Add(decimal.NewFromFloat(h.Value))
		b.count++
		total = total.Add(pct)
	}

	for category, b := range buckets {
		allocation.Categories = append(allocation.Categories, model.CategoryAllocation{
			AssetCategory: category,
			Percentage:    b.pct.Round(RoundingPrecision).InexactFloat64(),
			Value:         b.value.Round(RoundingPrecision).InexactFloat64(),
			Holdings:      b.count,
		})
	}
	sort.Slice(allocation.Categories, func(i, j int) bool {
		a, b := allocation.Categories[i], allocation.Categories[j]
		if a.Percentage != b.Percentage {
			return a.Percentage > b.Percentage
		}
		return a.AssetCategory < b.AssetCategory
	})

	allocation.Total = total.Round(RoundingPrecision).InexactFloat64()
	allocation.Complete = withinTolerance(total.InexactFloat64(), model.PercentageTolerance)
	return allocation, nil
}

// Overlap returns, for each pair of the given funds, the holdings that share
// the same security key (resolved ticker, else CUSIP) with each fund's combined
// value and percentage. The shared set of a pair is the same whichever fund is
// listed first. Unknown tickers take part with an empty holding set.
func (s *QueryService) Overlap(ctx context.Context, tickers ...string) ([]model.OverlapPair, error) {
	tickers = normalizeTickers(tickers)

	positions, err := s.positionsByFund(ctx, tickers)
	if err != nil {
		return nil, err
	}
	return overlapPairs(tickers, positions), nil
}

// OverlapAnalysis returns the pairwise overlap of the given funds together
// with a summary across all of them.
func (s *QueryService) OverlapAnalysis(ctx context.Context, tickers ...string) (model.OverlapAnalysis, error) {
	tickers = normalizeTickers(tickers)

	positions, err := s.positionsByFund(ctx, tickers)
	if err != nil {
		return model.OverlapAnalysis{}, err
	}
	return model.OverlapAnalysis{
		Summary: overlapSummary(tickers, positions),
		Pairs:   overlapPairs(tickers, positions),
	}, nil
}

func (s *QueryService) positionsByFund(ctx context.Context, tickers []string) (map[string]map[string]*position, error) {
	positions := make(map[string]map[string]*position, len(tickers))
	for _, t := range tickers {
		latest, err := s.LatestFilingHoldings(ctx, t)
		if err != nil {
			return nil, err
		}
		positions[t] = aggregatePositions(latest.Holdings)
	}
	return positions, nil
}

func overlapPairs(tickers []string, positions map[string]map[string]*position) []model.OverlapPair {
	pairs := []model.OverlapPair{}
	for i := 0; i < len(tickers); i++ {
		for j := i + 1; j < len(tickers); j++ {
			pairs = append(pairs, overlapPair(tickers[i], tickers[j], positions[tickers[i]], positions[tickers[j]]))
		}
	}
	return pairs
}

func overlapSummary(tickers []string, positions map[string]map[string]*position) model.OverlapSummary {
	summary := model.OverlapSummary{
		Tickers:        tickers,
		HoldingsByFund: make(map[string]int, len(tickers)),
	}

	holders := map[string]int{}
	values := map[string]decimal.Decimal{}
	for _, t := range tickers {
		summary.HoldingsByFund[t] = len(positions[t])
		for key, p := range positions[t] {
			holders[key]++
			values[key] = values[key].Add(p.value)
		}
	}

	redundant := decimal.Zero
	for key, n := range holders {
		if n > 1 {
			summary.OverlappingHoldings++
			redundant = redundant.Add(values[key])
		}
		summary.MaxOverlap = max(summary.MaxOverlap, n)
	}
	summary.UniqueHoldings = len(holders)
	summary.RedundantValue = redundant.Round(RoundingPrecision).InexactFloat64()
	return summary
}

// position is the combined exposure of one fund to one security.
type position struct {
	name  string
	value decimal.Decimal
	pct   decimal.Decimal
}

func aggregatePositions(holdings []model.Holding) map[string]*position {
	out := make(map[string]*position, len(holdings))
	for _, h := range holdings {
		key := h.Key()
		p, ok := out[key]
		if !ok {
			p = &position{name: h.Name, value: decimal.Zero, pct: decimal.Zero}
			out[key] = p
		}
		p.value = p.value.Add(decimal.NewFromFloat(h.Value))
		p.pct = p.pct.Add(decimal.NewFromFloat(h.Percentage))
	}
	return out
}

func overlapPair(a, b string, posA, posB map[string]*position) model.OverlapPair {
	keys := lo.Filter(lo.Keys(posA), func(k string, _ int) bool {
		_, ok := posB[k]
		return ok
	})
	sort.Strings(keys)

	shared := lo.Map(keys, func(k string, _ int) model.SharedHolding {
		pa, pb := posA[k], posB[k]
		return model.SharedHolding{
			Key:         k,
			Name:        pa.name,
			ValueA:      pa.value.Round(RoundingPrecision).InexactFloat64(),
			PercentageA: pa.pct.Round(RoundingPrecision).InexactFloat64(),
			ValueB:      pb.value.Round(RoundingPrecision).InexactFloat64(),
			PercentageB: pb.pct.Round(RoundingPrecision).InexactFloat64(),
		}
	})
	return model.OverlapPair{FundA: a, FundB: b, Shared: shared}
}

// FundStructure builds Sankey nodes and links from a fund down through its
// stored sub-fund relationships. Each fund's directly held securities are
// folded into a single "<TICKER> direct holdings" node.
func (s *QueryService) FundStructure(ctx context.Context, ticker string) (model.FundStructure, error) {
	structure := model.FundStructure{
		Ticker: normalizeTicker(ticker),
		Nodes:  []model.StructureNode{},
		Links:  []model.StructureLink{},
	}

	root, found, err := s.GetFund(ctx, ticker)
	if err != nil || !found {
		return structure, err
	}

	type queued struct {
		fund  model.Fund
		level int
	}
	seen := map[string]bool{root.ID: true}
	queue := []queued{{fund: root, level: 0}}
	structure.Nodes = append(structure.Nodes, fundNode(root, 0))

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		edges, err := s.relRepo.GetChildren(ctx, cur.fund.ID)
		if err != nil {
			return structure, err
		}

		childPct := decimal.Zero
		for _, e := range edges {
			structure.Links = append(structure.Links, model.StructureLink{
				Source:     cur.fund.Ticker,
				Target:     e.ChildTicker,
				Value:      round(e.Value),
				Percentage: round(e.Percentage),
			})
			childPct = childPct.Add(decimal.NewFromFloat(e.Percentage))

			if seen[e.ChildFundID] {
				continue
			}
			seen[e.ChildFundID] = true

			child, found, err := s.GetFund(ctx, e.ChildTicker)
			if err != nil {
				return structure, err
			}
			if !found {
				continue
			}
			structure.Nodes = append(structure.Nodes, fundNode(child, cur.level+1))
			queue = append(queue, queued{fund: child, level: cur.level + 1})
		}

		direct := decimal.NewFromInt(100).Sub(childPct)
		if direct.GreaterThan(decimal.Zero) {
			id := cur.fund.Ticker + ":direct"
			structure.Nodes = append(structure.Nodes, model.StructureNode{
				ID:    id,
				Label: cur.fund.Ticker + " direct holdings",
				Type:  "securities",
				Level: cur.level + 1,
			})
			structure.Links = append(structure.Links, model.StructureLink{
				Source:     cur.fund.Ticker,
				Target:     id,
				Percentage: direct.Round(RoundingPrecision).InexactFloat64(),
			})
		}
	}
	return structure, nil
}

func fundNode(f model.Fund, level int) model.StructureNode {
	return model.StructureNode{ID: f.Ticker, Label: f.Name, Type: string(f.Type), Level: level}
}

// DataQuality reports how complete a fund's latest filing is. The flag is
// false for unknown tickers or funds without filings.
func (s *QueryService) DataQuality(ctx context.Context, ticker string) (model.DataQuality, bool, error) {
	latest, err := s.LatestFilingHoldings(ctx, ticker)
	if err != nil || latest.Filing.ID == "" {
		return model.DataQuality{}, false, err
	}

	total := sumDecimal(lo.Map(latest.Holdings, func(h model.Holding, _ int) float64 { return h.Percentage })...)
	unresolved := sumDecimal(lo.FilterMap(latest.Holdings, func(h model.Holding, _ int) (float64, bool) {
		return h.Percentage, h.TickerOrEmpty() == ""
	})...)

	return model.DataQuality{
		Ticker:            latest.Fund.Ticker,
		PeriodEndDate:     latest.Filing.PeriodEndDate,
		Holdings:          len(latest.Holdings),
		ResolvedTickers:   lo.CountBy(latest.Holdings, func(h model.Holding) bool { return h.TickerOrEmpty() != "" }),
		PercentageTotal:   total.Round(RoundingPrecision).InexactFloat64(),
		Complete:          withinTolerance(total.InexactFloat64(), model.PercentageTolerance),
		UnresolvedPercent: unresolved.Round(RoundingPrecision).InexactFloat64(),
	}, true, nil
}

// sortHoldings orders holdings by value descending, ties broken by name ascending.
func sortHoldings(holdings []model.Holding) {
	sort.SliceStable(holdings, func(i, j int) bool {
		if holdings[i].Value != holdings[j].Value {
			return holdings[i].Value > holdings[j].Value
		}
		return holdings[i].Name < holdings[j].Name
	})
}

func normalizeTicker(t string) string {
	return strings.ToUpper(strings.TrimSpace(t))
}
