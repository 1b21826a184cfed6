package openfigi

import "strings"

// NotFound is the ticker reported for identifiers the mapping service could not resolve.
const NotFound = "Not Found"

// Per-request job caps enforced by the mapping service.
const (
	maxJobsAnonymous = 10
	maxJobsWithKey   = 100
)

// mappingJob is one entry of the request body.
type mappingJob struct {
	IDType  string `json:"idType"`
	IDValue string `json:"idValue"`
}

// mappingResult is one entry of the response body. The service answers with
// one result per job, in request order.
type mappingResult struct {
	Data    []instrument `json:"data"`
	Warning string       `json:"warning"`
	Error   string       `json:"error"`
}

type instrument struct {
	FIGI          string `json:"figi"`
	Name          string `json:"name"`
	Ticker        string `json:"ticker"`
	ExchCode      string `json:"exchCode"`
	MarketSector  string `json:"marketSector"`
	SecurityType  string `json:"securityType"`
	SecurityType2 string `json:"securityType2"`
}

// securityType prefers the broader securityType2 classification.
func (i instrument) securityType() string {
	if i.SecurityType2 != "" {
		return i.SecurityType2
	}
	return i.SecurityType
}

var fundSecurityTypes = map[string]bool{
	"open-end fund":   true,
	"mutual fund":     true,
	"closed-end fund": true,
	"fund of funds":   true,
	"etp":             true,
	"unit inv tr":     true,
}

// IsFundSecurityType reports whether a security type may denote a fund.
// An empty type is treated as a possible fund, since the service does not
// always classify share classes.
func IsFundSecurityType(securityType string) bool {
	if securityType == "" {
		return true
	}
	return fundSecurityTypes[strings.ToLower(strings.TrimSpace(securityType))]
}
