package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// Common validation errors
var (
	ErrInvalidTicker = fmt.Errorf("invalid ticker format")
	ErrEmptySlice    = fmt.Errorf("slice cannot be empty")
)

// MaxTickersPerRequest caps seed and overlap lists accepted from clients.
const MaxTickersPerRequest = 50

var tickerPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]{0,5}(\.[A-Z]{1,2})?$`)

// NormalizeTicker trims and upper-cases a ticker.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// ValidateTicker checks if a string is a well-formed ticker symbol.
// Input is normalized before matching, so "mdizx" is valid.
func ValidateTicker(ticker string) error {
	if !tickerPattern.MatchString(NormalizeTicker(ticker)) {
		return fmt.Errorf("%w: %q", ErrInvalidTicker, ticker)
	}
	return nil
}

// ValidateTickers validates a slice of tickers
func ValidateTickers(tickers []string) error {
	if len(tickers) == 0 {
		return ErrEmptySlice
	}
	for _, t := range tickers {
		if err := ValidateTicker(t); err != nil {
			return err
		}
	}
	return nil
}

// SplitTickers splits a comma separated list, dropping blanks.
func SplitTickers(list string) []string {
	var out []string
	for _, t := range strings.Split(list, ",") {
		if t = NormalizeTicker(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
