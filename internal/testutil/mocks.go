package testutil

import (
	"context"
	"fmt"
	"strings"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/apperrors"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/openfigi"
)

// MockFilingClient is a mock implementation of edgar.Client for testing.
// Tickers without a configured filing behave like tickers unknown to the SEC.
type MockFilingClient struct {
	// Filings are returned by ticker
	Filings map[string]model.NportFiling
	// Errors are returned by ticker and take precedence over Filings
	Errors map[string]error
	// Calls records every requested ticker in order
	Calls []string
}

// NewMockFilingClient creates an empty mock filing client.
func NewMockFilingClient() *MockFilingClient {
	return &MockFilingClient{
		Filings: map[string]model.NportFiling{},
		Errors:  map[string]error{},
	}
}

// WithFiling registers a filing under its ticker.
func (m *MockFilingClient) WithFiling(f model.NportFiling) *MockFilingClient {
	m.Filings[strings.ToUpper(f.Ticker)] = f
	return m
}

// WithError configures the mock to fail for ticker.
func (m *MockFilingClient) WithError(ticker string, err error) *MockFilingClient {
	m.Errors[strings.ToUpper(ticker)] = err
	return m
}

// FetchLatestHoldings returns the configured filing or error for ticker.
func (m *MockFilingClient) FetchLatestHoldings(_ context.Context, ticker string) (model.NportFiling, error) {
	ticker = strings.ToUpper(ticker)
	m.Calls = append(m.Calls, ticker)

	if err, ok := m.Errors[ticker]; ok {
		return model.NportFiling{}, err
	}
	f, ok := m.Filings[ticker]
	if !ok {
		return model.NportFiling{}, fmt.Errorf("%w: %s", apperrors.ErrNoFilings, ticker)
	}
	return f, nil
}

// CallCount returns how many times ticker was requested.
func (m *MockFilingClient) CallCount(ticker string) int {
	n := 0
	for _, c := range m.Calls {
		if c == strings.ToUpper(ticker) {
			n++
		}
	}
	return n
}

// MockResolver is a mock implementation of openfigi.Resolver for testing.
// Unknown CUSIPs resolve to openfigi.NotFound.
type MockResolver struct {
	// Tickers maps CUSIP to ticker
	Tickers map[string]string
	// SecurityTypes optionally maps CUSIP to security type
	SecurityTypes map[string]string
	// Failing makes every call behave like a failed batch (e.g. HTTP 413)
	Failing bool
	// Batches records the CUSIPs of every call
	Batches [][]string
}

// NewMockResolver creates a resolver answering from the given CUSIP to ticker map.
func NewMockResolver(tickers map[string]string) *MockResolver {
	if tickers == nil {
		tickers = map[string]string{}
	}
	return &MockResolver{Tickers: tickers, SecurityTypes: map[string]string{}}
}

// WithFailure configures the mock to map everything to NotFound.
func (m *MockResolver) WithFailure() *MockResolver {
	m.Failing = true
	return m
}

// WithSecurityType sets the security type reported for cusip.
func (m *MockResolver) WithSecurityType(cusip, securityType string) *MockResolver {
	m.SecurityTypes[cusip] = securityType
	return m
}

// Resolve maps each CUSIP to an identifier.
func (m *MockResolver) Resolve(_ context.Context, cusips []string) map[string]model.Identifier {
	m.Batches = append(m.Batches, append([]string(nil), cusips...))

	out := make(map[string]model.Identifier, len(cusips))
	for _, c := range cusips {
		ticker, ok := m.Tickers[c]
		if m.Failing || !ok {
			out[c] = model.Identifier{CUSIP: c, Ticker: openfigi.NotFound}
			continue
		}
		out[c] = model.Identifier{CUSIP: c, Ticker: ticker, SecurityType: m.SecurityTypes[c]}
	}
	return out
}

// MapCUSIPs maps each CUSIP to a ticker or openfigi.NotFound.
func (m *MockResolver) MapCUSIPs(ctx context.Context, cusips []string) map[string]string {
	out := make(map[string]string, len(cusips))
	for c, id := range m.Resolve(ctx, cusips) {
		out[c] = id.Ticker
	}
	return out
}
