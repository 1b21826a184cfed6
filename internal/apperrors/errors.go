package apperrors

import "errors"

// Domain entity errors represent missing entities in the system.
// Read-side callers translate these into empty results rather than failures.
var (
	// ErrFundNotFound indicates that no fund with the given ticker is stored.
	ErrFundNotFound = errors.New("fund not found")

	// ErrFilingNotFound indicates that a fund has no stored filing.
	ErrFilingNotFound = errors.New("filing not found")

	// ErrTickerNotFound indicates that the SEC ticker map has no entry for a ticker.
	ErrTickerNotFound = errors.New("ticker not found in SEC ticker map")
)

// Expected ingestion outcomes. These are terminal for a single ticker but never
// abort a loader run.
var (
	// ErrNoFilings indicates the issuer has no qualifying NPORT-P filing (FetchEmpty).
	ErrNoFilings = errors.New("no NPORT-P filings found")

	// ErrEmptyHoldings indicates a filing was found but its holdings table is empty.
	ErrEmptyHoldings = errors.New("filing has no holdings")

	// ErrDuplicateFiling indicates a filing for the same fund and period end date
	// is already stored. Loaders treat it as "already loaded, skip".
	ErrDuplicateFiling = errors.New("filing already loaded for period")
)

// Validation errors for required input.
var (
	ErrInvalidTicker = errors.New("ticker is required")
	ErrInvalidCUSIP  = errors.New("cusip is required")
	ErrNoSeeds       = errors.New("at least one seed ticker is required")
	ErrTooFewTickers = errors.New("at least two tickers are required")
)

// Configuration errors. These are the only errors allowed to stop a run, and
// only at startup.
var (
	// ErrMissingUserAgent indicates SEC_USER_AGENT is not configured.
	ErrMissingUserAgent = errors.New("SEC_USER_AGENT is required")

	// ErrInvalidConfig indicates a configuration value is out of range.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrChatDisabled indicates the chat assistant has no API key configured.
	ErrChatDisabled = errors.New("chat assistant is not configured")
)

// Operation failure errors represent system-level failures when retrieving or processing data.
var (
	ErrFailedToRetrieveFunds    = errors.New("failed to retrieve funds")
	ErrFailedToRetrieveHoldings = errors.New("failed to retrieve holdings")
	ErrFailedToComputeOverlap   = errors.New("failed to compute overlap")
	ErrLoadInProgress           = errors.New("a load run is already in progress")
)
