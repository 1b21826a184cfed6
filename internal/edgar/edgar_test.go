package edgar_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/config"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/edgar"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/logging"
)

const userAgent = "Fund Research research@example.com"

const mfTickers = `{"fields":["cik","seriesId","classId","symbol"],"data":[
	[36405,"S000012345","C000000001","MDIZX"],
	[36405,"S000099999","C000000002","OTHRX"]
]}`

const companyTickers = `{"0":{"cik_str":320193,"ticker":"AAPL","title":"Apple Inc."}}`

// Two filings for the same period: the amendment filed later must win.
const submissions = `{"cik":"36405","name":"EXAMPLE FUNDS TRUST","filings":{"recent":{
	"accessionNumber":["0000036405-24-000200","0000036405-24-000123","0000036405-24-000100","0000036405-24-000050"],
	"filingDate":["2024-08-29","2024-08-28","2024-05-29","2024-08-01"],
	"reportDate":["2024-06-30","2024-06-30","2024-03-31","2024-06-30"],
	"form":["NPORT-P","NPORT-P","NPORT-P","N-CSR"],
	"primaryDocument":["xslFormNPORT-P_X01/primary_doc.xml","xslFormNPORT-P_X01/primary_doc.xml","xslFormNPORT-P_X01/primary_doc.xml","ncsr.htm"]
}}}`

func loadFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/primary_doc.xml")
	require.NoError(t, err)
	return data
}

// edgarServer serves the SEC endpoints used by the fetcher and counts requests.
func edgarServer(t *testing.T, requests *atomic.Int32) *httptest.Server {
	t.Helper()
	doc := loadFixture(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/files/company_tickers_mf.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(mfTickers))
	})
	mux.HandleFunc("/files/company_tickers.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(companyTickers))
	})
	mux.HandleFunc("/submissions/CIK0000036405.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(submissions))
	})
	mux.HandleFunc("/submissions/CIK0000320193.json", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"cik":"320193","filings":{"recent":{"accessionNumber":["0000320193-24-000001"],"filingDate":["2024-01-01"],"reportDate":["2023-12-31"],"form":["10-K"],"primaryDocument":["a.htm"]}}}`))
	})
	mux.HandleFunc("/Archives/edgar/data/36405/000003640524000200/primary_doc.xml", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(doc)
	})

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests.Add(1)
		}
		if r.Header.Get("User-Agent") != userAgent {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		mux.ServeHTTP(w, r)
	}))
}

func newFetcher(url string) *edgar.Fetcher {
	return edgar.NewFetcher(config.EdgarConfig{
		UserAgent: userAgent,
		BaseURL:   url,
		DataURL:   url,
		Timeout:   5 * time.Second,
	}, logging.Discard())
}

// TestParseNport verifies extraction of the holdings table.
//
// WHY: every downstream figure (allocation, overlap, fund detection) derives
// from these rows, so boundary validation must be exact.
func TestParseNport(t *testing.T) {
	doc, err := edgar.ParseNport(loadFixture(t))
	require.NoError(t, err)

	t.Run("general information", func(t *testing.T) {
		assert.Equal(t, "S000012345", doc.SeriesID)
		assert.Equal(t, "Example Multi-Asset Income Fund", doc.SeriesName)
		assert.Equal(t, "2024-06-30", doc.PeriodEnd)
		assert.InDelta(t, 1500000000.0, doc.TotalAssets, 0.001)
		assert.InDelta(t, 1497500000.0, doc.NetAssets, 0.001)
	})

	t.Run("holding rows", func(t *testing.T) {
		require.Len(t, doc.Holdings, 3)

		fund := doc.Holdings[0]
		assert.Equal(t, "00123X109", fund.CUSIP)
		assert.Equal(t, "MRSKX", fund.Ticker)
		assert.Equal(t, 27.5, fund.Percentage)
		assert.Equal(t, "EC", fund.AssetCategory)
		assert.True(t, fund.IsRegisteredFund())

		note := doc.Holdings[1]
		assert.InDelta(t, 1087500000.0, note.Value, 0.001, "currency formatting is stripped")
		assert.Empty(t, note.Ticker)
	})

	t.Run("placeholder CUSIP and conditional categories", func(t *testing.T) {
		fwd := doc.Holdings[2]
		assert.Empty(t, fwd.CUSIP)
		assert.Equal(t, "OTHER", fwd.AssetCategory)
		assert.Equal(t, "OTHER", fwd.IssuerCategory)
	})

	t.Run("rejects non-NPORT XML", func(t *testing.T) {
		_, err := edgar.ParseNport([]byte(`<ownershipDocument></ownershipDocument>`))
		assert.Error(t, err)
	})
}

func TestNormalizeCUSIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{" 00123x109 ", "00123X109"},
		{"N/A", ""},
		{"000000000", ""},
		{"", ""},
		{"12345", ""},
		{"91282CJL6", "91282CJL6"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, edgar.NormalizeCUSIP(tt.in))
		})
	}
}

// TestSelectNportFilings verifies filing selection order.
func TestSelectNportFilings(t *testing.T) {
	var subs edgar.Submissions
	subs.Filings.Recent.AccessionNumber = []string{"a", "b", "c", "d"}
	subs.Filings.Recent.FilingDate = []string{"2024-05-29", "2024-08-28", "2024-08-29", "2024-09-01"}
	subs.Filings.Recent.ReportDate = []string{"2024-03-31", "2024-06-30", "2024-06-30", "2024-06-30"}
	subs.Filings.Recent.Form = []string{"NPORT-P", "NPORT-P", "NPORT-P", "497K"}

	refs := edgar.SelectNportFilings(subs)

	require.Len(t, refs, 3)
	assert.Equal(t, "c", refs[0].AccessionNumber, "same period, later filing date first")
	assert.Equal(t, "b", refs[1].AccessionNumber)
	assert.Equal(t, "a", refs[2].AccessionNumber)
}

// TestFetchLatestHoldings exercises the full ticker -> CIK -> submissions -> document path.
func TestFetchLatestHoldings(t *testing.T) {
	t.Run("fetches latest filing for a mutual fund ticker", func(t *testing.T) {
		srv := edgarServer(t, nil)
		defer srv.Close()

		filing, err := newFetcher(srv.URL).FetchLatestHoldings(context.Background(), "mdizx")

		require.NoError(t, err)
		assert.Equal(t, "MDIZX", filing.Ticker)
		assert.Equal(t, "36405", filing.CIK)
		assert.Equal(t, "0000036405-24-000200", filing.AccessionNumber)
		assert.Equal(t, "2024-08-29", filing.FilingDate.Format("2006-01-02"))
		assert.Equal(t, "2024-06-30", filing.PeriodEndDate.Format("2006-01-02"))
		assert.Equal(t, "Example Multi-Asset Income Fund", filing.SeriesName)
		assert.Len(t, filing.Holdings, 3)
	})

	t.Run("unknown ticker is FetchEmpty", func(t *testing.T) {
		srv := edgarServer(t, nil)
		defer srv.Close()

		_, err := newFetcher(srv.URL).FetchLatestHoldings(context.Background(), "NOPE")

		assert.ErrorIs(t, err, apperrors.ErrNoFilings)
		assert.ErrorIs(t, err, apperrors.ErrTickerNotFound)
	})

	t.Run("issuer without NPORT-P filings is FetchEmpty", func(t *testing.T) {
		srv := edgarServer(t, nil)
		defer srv.Close()

		_, err := newFetcher(srv.URL).FetchLatestHoldings(context.Background(), "AAPL")

		assert.ErrorIs(t, err, apperrors.ErrNoFilings)
	})

	t.Run("series mismatch is FetchEmpty", func(t *testing.T) {
		srv := edgarServer(t, nil)
		defer srv.Close()

		// OTHRX shares the CIK but belongs to another series; only one document
		// is served, the others 404.
		_, err := newFetcher(srv.URL).FetchLatestHoldings(context.Background(), "OTHRX")

		assert.ErrorIs(t, err, apperrors.ErrNoFilings)
	})

	t.Run("ticker map is loaded once", func(t *testing.T) {
		var requests atomic.Int32
		srv := edgarServer(t, &requests)
		defer srv.Close()

		f := newFetcher(srv.URL)
		_, err := f.FetchLatestHoldings(context.Background(), "MDIZX")
		require.NoError(t, err)
		first := requests.Load()

		_, err = f.FetchLatestHoldings(context.Background(), "MDIZX")
		require.NoError(t, err)

		// 2 ticker maps + submissions + document, then submissions + document.
		assert.Equal(t, int32(4), first)
		assert.Equal(t, int32(6), requests.Load())
	})

	t.Run("missing user agent is rejected by the server", func(t *testing.T) {
		srv := edgarServer(t, nil)
		defer srv.Close()

		f := edgar.NewFetcher(config.EdgarConfig{BaseURL: srv.URL, DataURL: srv.URL}, logging.Discard())
		_, err := f.FetchLatestHoldings(context.Background(), "MDIZX")

		assert.Error(t, err)
		assert.NotErrorIs(t, err, apperrors.ErrNoFilings)
	})
}
