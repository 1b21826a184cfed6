package edgar

// NPORT-P is the public monthly portfolio holdings report of a registered fund.
const formNPORTP = "NPORT-P"

// Submissions is the subset of data.sec.gov/submissions/CIK##########.json used here.
// The recent filings are parallel arrays indexed by filing.
type Submissions struct {
	CIK     string `json:"cik"`
	Name    string `json:"name"`
	Filings struct {
		Recent struct {
			AccessionNumber []string `json:"accessionNumber"`
			FilingDate      []string `json:"filingDate"`
			ReportDate      []string `json:"reportDate"`
			Form            []string `json:"form"`
			PrimaryDocument []string `json:"primaryDocument"`
		} `json:"recent"`
	} `json:"filings"`
}

// FilingRef points at one filing listed in Submissions.
type FilingRef struct {
	AccessionNumber string
	FilingDate      string
	ReportDate      string
	PrimaryDocument string
}

// mutualFundTickers is the layout of company_tickers_mf.json:
// {"fields":["cik","seriesId","classId","symbol"],"data":[[2110,"S000009184","C000024954","LACAX"], ...]}.
type mutualFundTickers struct {
	Fields []string `json:"fields"`
	Data   [][]any  `json:"data"`
}

// companyTicker is one entry of company_tickers.json.
type companyTicker struct {
	CIK    int64  `json:"cik_str"`
	Ticker string `json:"ticker"`
	Title  string `json:"title"`
}

// issuer identifies the registrant and, for mutual funds, the series of a ticker.
type issuer struct {
	CIK      int64
	SeriesID string
	Name     string
}
