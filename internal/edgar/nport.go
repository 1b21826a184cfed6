package edgar

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
)

// Document is the parsed content of an NPORT-P primary_doc.xml.
type Document struct {
	SeriesID    string
	SeriesName  string
	RegName     string
	PeriodEnd   string
	TotalAssets float64
	NetAssets   float64
	Holdings    []model.HoldingRow
}

// ParseNport parses an NPORT-P primary document into its general information
// and validated holding rows.
func ParseNport(content []byte) (Document, error) {
	doc, err := xmlquery.Parse(bytes.NewReader(content))
	if err != nil {
		return Document{}, fmt.Errorf("failed to parse NPORT document: %w", err)
	}

	root := xmlquery.FindOne(doc, "//edgarSubmission")
	if root == nil {
		return Document{}, fmt.Errorf("NPORT document has no edgarSubmission element")
	}

	out := Document{
		SeriesID:    text(root, "//genInfo/seriesId"),
		SeriesName:  text(root, "//genInfo/seriesName"),
		RegName:     text(root, "//genInfo/regName"),
		PeriodEnd:   text(root, "//genInfo/repPdDate"),
		TotalAssets: number(text(root, "//fundInfo/totAssets")),
		NetAssets:   number(text(root, "//fundInfo/netAssets")),
	}

	for _, sec := range xmlquery.Find(root, "//invstOrSecs/invstOrSec") {
		row, ok := holdingRow(sec)
		if ok {
			out.Holdings = append(out.Holdings, row)
		}
	}
	return out, nil
}

// holdingRow validates one invstOrSec element. Rows without a name are dropped.
func holdingRow(sec *xmlquery.Node) (model.HoldingRow, bool) {
	row := model.HoldingRow{
		CUSIP:          NormalizeCUSIP(text(sec, "cusip")),
		Name:           strings.TrimSpace(text(sec, "name")),
		Title:          strings.TrimSpace(text(sec, "title")),
		Value:          number(text(sec, "valUSD")),
		Percentage:     number(text(sec, "pctVal")),
		AssetCategory:  strings.TrimSpace(text(sec, "assetCat")),
		IssuerCategory: strings.TrimSpace(text(sec, "issuerCat")),
	}

	if ticker := xmlquery.FindOne(sec, "identifiers/ticker"); ticker != nil {
		row.Ticker = strings.ToUpper(strings.TrimSpace(ticker.SelectAttr("value")))
	}
	if row.AssetCategory == "" {
		if cond := xmlquery.FindOne(sec, "assetConditional"); cond != nil {
			row.AssetCategory = cond.SelectAttr("assetCat")
		}
	}
	if row.IssuerCategory == "" {
		if cond := xmlquery.FindOne(sec, "issuerConditional"); cond != nil {
			row.IssuerCategory = cond.SelectAttr("issuerCat")
		}
	}

	if row.Name == "" {
		row.Name = row.Title
	}
	if row.Name == "" {
		return model.HoldingRow{}, false
	}
	return row, true
}

// NormalizeCUSIP upper-cases a CUSIP and maps placeholders ("N/A", all zeros)
// and malformed values to "".
func NormalizeCUSIP(cusip string) string {
	cusip = strings.ToUpper(strings.TrimSpace(cusip))
	if len(cusip) != 9 || cusip == "000000000" {
		return ""
	}
	for _, r := range cusip {
		if (r < '0' || r > '9') && (r < 'A' || r > 'Z') && r != '*' && r != '@' && r != '#' {
			return ""
		}
	}
	return cusip
}

// number parses a reported amount such as "1234.5", "$1,234.50" or "N/A".
// Unparseable values are 0.
func number(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.NewReplacer("$", "", ",", "").Replace(s)
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}

func text(n *xmlquery.Node, expr string) string {
	if found := xmlquery.FindOne(n, expr); found != nil {
		return strings.TrimSpace(found.InnerText())
	}
	return ""
}
