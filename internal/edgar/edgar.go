package edgar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/config"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
)

// Client fetches the latest holdings filing of a fund.
type Client interface {
	FetchLatestHoldings(ctx context.Context, ticker string) (model.NportFiling, error)
}

// maxDocuments bounds how many NPORT-P documents are inspected when looking for
// the filing of a specific series within a multi-series trust.
const maxDocuments = 60

var errNotFound = errors.New("edgar resource not found")

// Fetcher retrieves NPORT-P filings from SEC EDGAR.
// Requests are paced to the SEC fair-access limit and carry the configured User-Agent.
type Fetcher struct {
	httpClient *http.Client
	baseURL    string
	dataURL    string
	userAgent  string
	limiter    ratelimit.Limiter
	log        *logrus.Logger

	mu      sync.Mutex
	tickers map[string]issuer
}

// NewFetcher creates a Fetcher from configuration.
// A RequestsPerSecond of zero or less disables pacing.
func NewFetcher(cfg config.EdgarConfig, logger *logrus.Logger) *Fetcher {
	limiter := ratelimit.NewUnlimited()
	if cfg.RequestsPerSecond > 0 {
		limiter = ratelimit.New(cfg.RequestsPerSecond)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return &Fetcher{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		dataURL:    strings.TrimRight(cfg.DataURL, "/"),
		userAgent:  cfg.UserAgent,
		limiter:    limiter,
		log:        logger,
	}
}

// FetchLatestHoldings finds the issuer of ticker, selects its NPORT-P filing
// with the latest report period (ties broken by the later filing date) and
// parses its holdings.
//
// Returns an error wrapping apperrors.ErrNoFilings when the ticker is unknown to
// the SEC or no qualifying filing exists. A filing with an empty holdings table
// is returned without error; callers check NportFiling.Empty.
func (f *Fetcher) FetchLatestHoldings(ctx context.Context, ticker string) (model.NportFiling, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return model.NportFiling{}, apperrors.ErrInvalidTicker
	}

	iss, err := f.lookup(ctx, ticker)
	if err != nil {
		return model.NportFiling{}, err
	}

	subs, err := f.submissions(ctx, iss.CIK)
	if errors.Is(err, errNotFound) {
		return model.NportFiling{}, fmt.Errorf("%w: no submissions for CIK %d", apperrors.ErrNoFilings, iss.CIK)
	}
	if err != nil {
		return model.NportFiling{}, err
	}

	refs := SelectNportFilings(subs)
	if len(refs) == 0 {
		return model.NportFiling{}, fmt.Errorf("%w: %s (CIK %d)", apperrors.ErrNoFilings, ticker, iss.CIK)
	}

	for i, ref := range refs {
		if i >= maxDocuments {
			break
		}

		content, err := f.get(ctx, f.documentURL(iss.CIK, ref))
		if errors.Is(err, errNotFound) {
			f.log.WithFields(logrus.Fields{"ticker": ticker, "accession": ref.AccessionNumber}).Debug("NPORT document missing, skipping")
			continue
		}
		if err != nil {
			return model.NportFiling{}, err
		}

		doc, err := ParseNport(content)
		if err != nil {
			return model.NportFiling{}, fmt.Errorf("filing %s: %w", ref.AccessionNumber, err)
		}
		if iss.SeriesID != "" && doc.SeriesID != "" && !strings.EqualFold(doc.SeriesID, iss.SeriesID) {
			continue
		}

		return toFiling(ticker, iss, ref, doc), nil
	}

	return model.NportFiling{}, fmt.Errorf("%w: no NPORT-P filing for series %s of %s", apperrors.ErrNoFilings, iss.SeriesID, ticker)
}

// SelectNportFilings returns the NPORT-P filings of subs, latest report period
// first, ties broken by the later filing date.
func SelectNportFilings(subs Submissions) []FilingRef {
	recent := subs.Filings.Recent
	refs := []FilingRef{}
	for i, form := range recent.Form {
		if form != formNPORTP || i >= len(recent.AccessionNumber) {
			continue
		}
		refs = append(refs, FilingRef{
			AccessionNumber: recent.AccessionNumber[i],
			FilingDate:      at(recent.FilingDate, i),
			ReportDate:      at(recent.ReportDate, i),
			PrimaryDocument: at(recent.PrimaryDocument, i),
		})
	}

	sort.SliceStable(refs, func(a, b int) bool {
		if refs[a].ReportDate != refs[b].ReportDate {
			return refs[a].ReportDate > refs[b].ReportDate
		}
		return refs[a].FilingDate > refs[b].FilingDate
	})
	return refs
}

func toFiling(ticker string, iss issuer, ref FilingRef, doc Document) model.NportFiling {
	periodEnd := parseDate(doc.PeriodEnd)
	if periodEnd.IsZero() {
		periodEnd = parseDate(ref.ReportDate)
	}

	name := lo.CoalesceOrEmpty(doc.SeriesName, iss.Name, doc.RegName, ticker)

	return model.NportFiling{
		Ticker:          ticker,
		CIK:             strconv.FormatInt(iss.CIK, 10),
		SeriesID:        lo.CoalesceOrEmpty(doc.SeriesID, iss.SeriesID),
		SeriesName:      name,
		AccessionNumber: ref.AccessionNumber,
		FilingDate:      parseDate(ref.FilingDate),
		PeriodEndDate:   periodEnd,
		TotalAssets:     doc.TotalAssets,
		NetAssets:       doc.NetAssets,
		Holdings:        doc.Holdings,
	}
}

// lookup resolves a ticker to its issuer, loading the SEC ticker maps on first use.
func (f *Fetcher) lookup(ctx context.Context, ticker string) (issuer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.tickers == nil {
		tickers, err := f.loadTickers(ctx)
		if err != nil {
			return issuer{}, err
		}
		f.tickers = tickers
	}

	iss, ok := f.tickers[ticker]
	if !ok {
		return issuer{}, fmt.Errorf("%w: %w: %s", apperrors.ErrNoFilings, apperrors.ErrTickerNotFound, ticker)
	}
	return iss, nil
}

// loadTickers merges the mutual fund ticker map with the company ticker map.
// Mutual fund entries win since they carry the series ID.
func (f *Fetcher) loadTickers(ctx context.Context) (map[string]issuer, error) {
	tickers := make(map[string]issuer)

	mfErr := f.loadMutualFundTickers(ctx, tickers)
	if mfErr != nil {
		f.log.WithError(mfErr).Warn("failed to load mutual fund ticker map")
	}
	coErr := f.loadCompanyTickers(ctx, tickers)
	if coErr != nil {
		f.log.WithError(coErr).Warn("failed to load company ticker map")
	}

	if mfErr != nil && coErr != nil {
		return nil, fmt.Errorf("failed to load SEC ticker maps: %w", errors.Join(mfErr, coErr))
	}
	return tickers, nil
}

func (f *Fetcher) loadMutualFundTickers(ctx context.Context, into map[string]issuer) error {
	data, err := f.get(ctx, f.baseURL+"/files/company_tickers_mf.json")
	if err != nil {
		return err
	}

	var mf mutualFundTickers
	if err := json.Unmarshal(data, &mf); err != nil {
		return fmt.Errorf("failed to decode company_tickers_mf.json: %w", err)
	}

	cikIdx := lo.IndexOf(mf.Fields, "cik")
	seriesIdx := lo.IndexOf(mf.Fields, "seriesId")
	symbolIdx := lo.IndexOf(mf.Fields, "symbol")
	if cikIdx < 0 || symbolIdx < 0 {
		return fmt.Errorf("company_tickers_mf.json has unexpected fields %v", mf.Fields)
	}

	for _, row := range mf.Data {
		symbol, _ := field(row, symbolIdx).(string)
		cik, ok := field(row, cikIdx).(float64)
		if symbol == "" || !ok {
			continue
		}
		series, _ := field(row, seriesIdx).(string)
		into[strings.ToUpper(symbol)] = issuer{CIK: int64(cik), SeriesID: series}
	}
	return nil
}

func (f *Fetcher) loadCompanyTickers(ctx context.Context, into map[string]issuer) error {
	data, err := f.get(ctx, f.baseURL+"/files/company_tickers.json")
	if err != nil {
		return err
	}

	var companies map[string]companyTicker
	if err := json.Unmarshal(data, &companies); err != nil {
		return fmt.Errorf("failed to decode company_tickers.json: %w", err)
	}

	for _, c := range companies {
		symbol := strings.ToUpper(c.Ticker)
		if symbol == "" {
			continue
		}
		if _, exists := into[symbol]; exists {
			continue
		}
		into[symbol] = issuer{CIK: c.CIK, Name: c.Title}
	}
	return nil
}

func (f *Fetcher) submissions(ctx context.Context, cik int64) (Submissions, error) {
	data, err := f.get(ctx, fmt.Sprintf("%s/submissions/CIK%010d.json", f.dataURL, cik))
	if err != nil {
		return Submissions{}, err
	}

	var subs Submissions
	if err := json.Unmarshal(data, &subs); err != nil {
		return Submissions{}, fmt.Errorf("failed to decode submissions for CIK %d: %w", cik, err)
	}
	return subs, nil
}

// documentURL builds the archive URL of a filing's raw primary document.
// The submissions index points at the XSL-rendered copy ("xslFormNPORT-P_X01/primary_doc.xml");
// the raw XML lives at the base name.
func (f *Fetcher) documentURL(cik int64, ref FilingRef) string {
	doc := path.Base(ref.PrimaryDocument)
	if doc == "" || doc == "." || doc == "/" {
		doc = "primary_doc.xml"
	}
	accession := strings.ReplaceAll(ref.AccessionNumber, "-", "")
	return fmt.Sprintf("%s/Archives/edgar/data/%d/%s/%s", f.baseURL, cik, accession, doc)
}

// get performs a paced GET request with the SEC-required headers.
func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	f.limiter.Take()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json, application/xml, text/xml")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("edgar request %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", errNotFound, url)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("edgar request %s returned HTTP %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read edgar response: %w", err)
	}
	return data, nil
}

func parseDate(s string) time.Time {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}

func field(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}
