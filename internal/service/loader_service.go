package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/config"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/edgar"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/openfigi"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/repository"
)

// LoaderService ingests NPORT-P filings for a seed set of funds and follows
// their fund holdings one level at a time.
type LoaderService struct {
	db          *sql.DB
	fundRepo    *repository.FundRepository
	filingRepo  *repository.FilingRepository
	holdingRepo *repository.HoldingRepository
	relRepo     *repository.RelationshipRepository
	fetcher     edgar.Client
	resolver    openfigi.Resolver
	maxDepth    int
	seeds       []string
	log         *logrus.Logger
}

// NewLoaderService creates a new LoaderService with the provided dependencies.
func NewLoaderService(
	db *sql.DB,
	fundRepo *repository.FundRepository,
	filingRepo *repository.FilingRepository,
	holdingRepo *repository.HoldingRepository,
	relRepo *repository.RelationshipRepository,
	fetcher edgar.Client,
	resolver openfigi.Resolver,
	cfg config.LoaderConfig,
	logger *logrus.Logger,
) *LoaderService {
	return &LoaderService{
		db:          db,
		fundRepo:    fundRepo,
		filingRepo:  filingRepo,
		holdingRepo: holdingRepo,
		relRepo:     relRepo,
		fetcher:     fetcher,
		resolver:    resolver,
		maxDepth:    cfg.MaxDepth,
		seeds:       cfg.Seeds,
		log:         logger,
	}
}

// workItem is one entry of the loader queue.
type workItem struct {
	ticker string
	depth  int
}

// DefaultSeeds returns the configured seed tickers.
func (s *LoaderService) DefaultSeeds() []string {
	return append([]string(nil), s.seeds...)
}

// Load runs the recursive loader for the given seed tickers.
//
// Seeds are processed at depth 0. A fund at depth d has its fund holdings
// enqueued at depth d+1 only when d < MaxDepth. Every ticker is processed at
// most once per run, including circular fund-of-fund references.
//
// Load never fails as a whole: fetch and persistence failures are recorded per
// ticker in the returned summary and the run continues with the next ticker.
func (s *LoaderService) Load(ctx context.Context, seeds []string) model.LoadSummary {
	seeds = normalizeTickers(seeds)

	summary := model.LoadSummary{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Seeds:     seeds,
		MaxDepth:  s.maxDepth,
		Succeeded: []string{},
		Updated:   []string{},
		Unchanged: []string{},
		Failed:    []string{},
		Outcomes:  []model.TickerOutcome{},
	}
	log := s.log.WithField("run_id", summary.RunID)
	log.WithFields(logrus.Fields{"seeds": len(seeds), "max_depth": s.maxDepth}).Info("load run started")

	isSeed := lo.SliceToMap(seeds, func(t string) (string, bool) { return t, true })
	visited := make(map[string]bool, len(seeds))
	queue := make([]workItem, 0, len(seeds))
	for _, t := range seeds {
		visited[t] = true
		queue = append(queue, workItem{ticker: t, depth: 0})
	}

	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]

		var outcome model.TickerOutcome
		if err := ctx.Err(); err != nil {
			outcome = model.TickerOutcome{Ticker: item.ticker, Depth: item.depth, State: model.LoadStateFetchFailed, Error: err.Error()}
		} else {
			outcome = s.process(ctx, log, item, isSeed[item.ticker])
		}

		for _, child := range outcome.Children {
			if visited[child] {
				continue
			}
			visited[child] = true
			queue = append(queue, workItem{ticker: child, depth: item.depth + 1})
		}

		summary.Outcomes = append(summary.Outcomes, outcome)
		switch outcome.State {
		case model.LoadStatePersisted:
			if outcome.NewFund {
				summary.Succeeded = append(summary.Succeeded, outcome.Ticker)
			} else {
				summary.Updated = append(summary.Updated, outcome.Ticker)
			}
		case model.LoadStateUnchanged:
			summary.Unchanged = append(summary.Unchanged, outcome.Ticker)
		default:
			summary.Failed = append(summary.Failed, outcome.Ticker)
		}
	}

	summary.FinishedAt = time.Now().UTC()
	log.WithFields(logrus.Fields{
		"succeeded": len(summary.Succeeded),
		"updated":   len(summary.Updated),
		"unchanged": len(summary.Unchanged),
		"failed":    len(summary.Failed),
		"duration":  summary.Duration().String(),
	}).Info("load run finished")

	return summary
}

// process fetches, resolves and persists one ticker and reports the fund
// holdings to expand next.
func (s *LoaderService) process(ctx context.Context, runLog *logrus.Entry, item workItem, seed bool) model.TickerOutcome {
	log := runLog.WithFields(logrus.Fields{"ticker": item.ticker, "depth": item.depth})
	outcome := model.TickerOutcome{Ticker: item.ticker, Depth: item.depth, State: model.LoadStateQueued}

	filing, err := s.fetcher.FetchLatestHoldings(ctx, item.ticker)
	if err == nil && filing.Empty() {
		err = fmt.Errorf("%w: %s", apperrors.ErrEmptyHoldings, item.ticker)
	}
	if err != nil {
		outcome.State = model.LoadStateFetchFailed
		outcome.Error = err.Error()
		if errors.Is(err, apperrors.ErrNoFilings) || errors.Is(err, apperrors.ErrEmptyHoldings) {
			log.WithError(err).Warn("no holdings available")
		} else {
			log.WithError(err).Error("fetch failed")
		}
		return outcome
	}
	outcome.State = model.LoadStateFetched
	expand := item.depth < s.maxDepth

	existingFund, existingFiling, loaded, err := s.storedFiling(ctx, item.ticker, filing.PeriodEndDate)
	if err != nil {
		outcome.State = model.LoadStatePersistFailed
		outcome.Error = err.Error()
		log.WithError(err).Error("failed to check stored filing")
		return outcome
	}

	if loaded {
		holdings, err := s.relinkStored(ctx, existingFund, existingFiling)
		if err != nil {
			outcome.State = model.LoadStatePersistFailed
			outcome.Error = err.Error()
			log.WithError(err).Error("failed to relink stored filing")
			return outcome
		}
		outcome.State = model.LoadStateUnchanged
		outcome.Holdings = len(holdings)
		if expand {
			outcome.Children = fundCandidates(item.ticker, holdings)
		}
		log.WithField("period_end", repository.FormatDate(filing.PeriodEndDate)).Info("filing already loaded")
		return outcome
	}

	var resolved map[string]model.Identifier
	if expand {
		cusips := lo.Uniq(lo.FilterMap(filing.Holdings, func(r model.HoldingRow, _ int) (string, bool) {
			return r.CUSIP, r.CUSIP != ""
		}))
		resolved = s.resolver.Resolve(ctx, cusips)
	}

	holdings := buildHoldings(filing.Holdings, resolved)
	fundType := classifyFund(seed || existingFund.Type == model.FundTypeFundOfFunds, filing.Holdings)

	created, err := s.persistFiling(ctx, filing, fundType, holdings)
	if errors.Is(err, apperrors.ErrDuplicateFiling) {
		outcome.State = model.LoadStateUnchanged
		outcome.Holdings = len(holdings)
		if expand {
			outcome.Children = fundCandidates(item.ticker, holdings)
		}
		return outcome
	}
	if err != nil {
		outcome.State = model.LoadStatePersistFailed
		outcome.Error = err.Error()
		log.WithError(err).Error("persist failed")
		return outcome
	}

	outcome.State = model.LoadStatePersisted
	outcome.NewFund = created
	outcome.Holdings = len(holdings)
	if expand {
		outcome.Children = fundCandidates(item.ticker, holdings)
	}
	log.WithFields(logrus.Fields{
		"holdings":   len(holdings),
		"fund_type":  fundType,
		"period_end": repository.FormatDate(filing.PeriodEndDate),
		"children":   len(outcome.Children),
	}).Info("filing persisted")
	return outcome
}

// storedFiling looks up the stored fund of ticker and its filing for periodEnd.
// The flag is false when the fund or the filing is not stored yet; the fund is
// still returned when only the filing is missing.
func (s *LoaderService) storedFiling(ctx context.Context, ticker string, periodEnd time.Time) (model.Fund, model.Filing, bool, error) {
	fund, err := s.fundRepo.GetFundByTicker(ctx, ticker)
	if errors.Is(err, apperrors.ErrFundNotFound) {
		return model.Fund{}, model.Filing{}, false, nil
	}
	if err != nil {
		return model.Fund{}, model.Filing{}, false, err
	}

	filing, err := s.filingRepo.GetFilingByPeriod(ctx, fund.ID, periodEnd)
	if errors.Is(err, apperrors.ErrFilingNotFound) {
		return fund, model.Filing{}, false, nil
	}
	if err != nil {
		return model.Fund{}, model.Filing{}, false, err
	}
	return fund, filing, true, nil
}

// relinkStored re-creates missing edges of an already stored filing, in both
// directions, and returns its holdings.
func (s *LoaderService) relinkStored(ctx context.Context, fund model.Fund, filing model.Filing) ([]model.Holding, error) {
	holdings, err := s.holdingRepo.GetHoldingsByFiling(ctx, filing.ID)
	if err != nil {
		return nil, err
	}

	err = repository.InTransaction(ctx, s.db, func(tx *sql.Tx) error {
		relRepo := s.relRepo.WithTx(tx)

		if _, err := relRepo.LinkParent(ctx, fund.ID, filing.ID); err != nil {
			return err
		}
		_, err := relRepo.LinkChild(ctx, fund)
		return err
	})
	if err != nil {
		return nil, err
	}
	return holdings, nil
}

// persistFiling stores fund, filing, holdings and relationship edges in one
// transaction. The returned flag reports whether the fund was created.
// Returns ErrDuplicateFiling when the period is already stored.
func (s *LoaderService) persistFiling(ctx context.Context, filing model.NportFiling, fundType model.FundType, holdings []model.Holding) (bool, error) {
	var created bool

	err := repository.InTransaction(ctx, s.db, func(tx *sql.Tx) error {
		fundRepo := s.fundRepo.WithTx(tx)
		filingRepo := s.filingRepo.WithTx(tx)
		holdingRepo := s.holdingRepo.WithTx(tx)
		relRepo := s.relRepo.WithTx(tx)

		fund, isNew, err := fundRepo.UpsertFund(ctx, filing.Ticker, filing.SeriesName, fundType)
		if err != nil {
			return err
		}
		created = isNew

		row := model.Filing{
			FundID:          fund.ID,
			AccessionNumber: filing.AccessionNumber,
			FilingDate:      filing.FilingDate,
			PeriodEndDate:   filing.PeriodEndDate,
			TotalAssets:     filing.TotalAssets,
			NetAssets:       filing.NetAssets,
		}
		if err := filingRepo.InsertFiling(ctx, &row); err != nil {
			return err
		}

		if err := holdingRepo.ReplaceHoldings(ctx, row.ID, holdings); err != nil {
			return err
		}

		if _, err := relRepo.LinkParent(ctx, fund.ID, row.ID); err != nil {
			return err
		}
		if _, err := relRepo.LinkChild(ctx, fund); err != nil {
			return err
		}
		return nil
	})
	return created, err
}

// Relink resolves stored CUSIPs that have no ticker yet and rebuilds every
// relationship edge from the latest filings.
func (s *LoaderService) Relink(ctx context.Context) (model.RelinkSummary, error) {
	var summary model.RelinkSummary

	cusips, err := s.holdingRepo.GetUnresolvedCUSIPs(ctx)
	if err != nil {
		return summary, err
	}
	summary.CUSIPsQueried = len(cusips)

	found := lo.PickBy(s.resolver.Resolve(ctx, cusips), func(_ string, id model.Identifier) bool {
		return id.Ticker != "" && id.Ticker != openfigi.NotFound
	})

	filings, err := s.filingRepo.GetLatestFilings(ctx)
	if err != nil {
		return summary, err
	}

	err = repository.InTransaction(ctx, s.db, func(tx *sql.Tx) error {
		holdingRepo := s.holdingRepo.WithTx(tx)
		relRepo := s.relRepo.WithTx(tx)

		for cusip, id := range found {
			n, err := holdingRepo.UpdateTickerByCUSIP(ctx, cusip, id.Ticker, id.SecurityType)
			if err != nil {
				return err
			}
			summary.TickersFilled++
			summary.HoldingsLinked += int(n)
		}

		if err := relRepo.DeleteAll(ctx); err != nil {
			return err
		}
		for _, f := range filings {
			n, err := relRepo.LinkParent(ctx, f.FundID, f.ID)
			if err != nil {
				return err
			}
			summary.Relationships += n
		}
		return nil
	})
	if err != nil {
		return model.RelinkSummary{}, fmt.Errorf("failed to relink holdings: %w", err)
	}

	s.log.WithFields(logrus.Fields{
		"cusips":        summary.CUSIPsQueried,
		"tickers":       summary.TickersFilled,
		"holdings":      summary.HoldingsLinked,
		"relationships": summary.Relationships,
	}).Info("relink finished")
	return summary, nil
}

// buildHoldings maps validated filing rows onto holdings. The ticker is the
// resolved one when found, else the ticker reported in the filing, else empty.
// TickerSource records which of the two it is.
func buildHoldings(rows []model.HoldingRow, resolved map[string]model.Identifier) []model.Holding {
	return lo.Map(rows, func(r model.HoldingRow, _ int) model.Holding {
		h := model.Holding{
			CUSIP:          r.CUSIP,
			Name:           r.Name,
			Title:          r.Title,
			Value:          r.Value,
			Percentage:     r.Percentage,
			AssetCategory:  r.AssetCategory,
			IssuerCategory: r.IssuerCategory,
		}

		if id, ok := resolved[r.CUSIP]; ok && id.Ticker != openfigi.NotFound && id.Ticker != "" {
			ticker := id.Ticker
			h.Ticker = &ticker
			h.SecurityType = id.SecurityType
			h.TickerSource = model.TickerSourceResolver
			return h
		}
		if r.Ticker != "" {
			ticker := r.Ticker
			h.Ticker = &ticker
			h.TickerSource = model.TickerSourceFiling
		}
		return h
	})
}

// fundCandidates returns the distinct resolved tickers among holdings that may
// be funds, excluding the holding fund itself. Tickers copied from the filing
// are never followed.
func fundCandidates(self string, holdings []model.Holding) []string {
	return lo.Uniq(lo.FilterMap(holdings, func(h model.Holding, _ int) (string, bool) {
		t := h.TickerOrEmpty()
		if !h.Resolved() || t == self {
			return "", false
		}
		return t, openfigi.IsFundSecurityType(h.SecurityType)
	}))
}

// classifyFund returns fund_of_funds for seeds, for funds already stored as
// fund_of_funds and for funds where more than half of the holdings are
// registered funds, underlying_fund otherwise.
func classifyFund(seed bool, rows []model.HoldingRow) model.FundType {
	if seed {
		return model.FundTypeFundOfFunds
	}
	funds := lo.CountBy(rows, func(r model.HoldingRow) bool { return r.IsRegisteredFund() })
	if len(rows) > 0 && funds*2 > len(rows) {
		return model.FundTypeFundOfFunds
	}
	return model.FundTypeUnderlying
}

func normalizeTickers(tickers []string) []string {
	return lo.Uniq(lo.FilterMap(tickers, func(t string, _ int) (string, bool) {
		t = strings.ToUpper(strings.TrimSpace(t))
		return t, t != ""
	}))
}
