package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
)

const dateLayout = "2006-01-02"

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// summaryMarkdown renders a loader run.
func summaryMarkdown(s model.LoadSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Load run %s\n\n", s.RunID)
	fmt.Fprintf(&b, "Seeds: %s, max depth %d, took %s.\n\n", strings.Join(s.Seeds, ", "), s.MaxDepth, s.Duration().Round(time.Millisecond))
	fmt.Fprintf(&b, "- New: %d\n- Updated: %d\n- Unchanged: %d\n- Failed: %d\n\n",
		len(s.Succeeded), len(s.Updated), len(s.Unchanged), len(s.Failed))

	if len(s.Outcomes) == 0 {
		return b.String()
	}
	b.WriteString("| Ticker | Depth | State | Holdings | Sub-funds | Error |\n")
	b.WriteString("|---|---:|---|---:|---|---|\n")
	for _, o := range s.Outcomes {
		fmt.Fprintf(&b, "| %s | %d | %s | %d | %s | %s |\n",
			o.Ticker, o.Depth, o.State, o.Holdings, orDash(strings.Join(o.Children, ", ")), cell(orDash(o.Error)))
	}
	return b.String()
}

// relinkMarkdown renders a relink run.
func relinkMarkdown(s model.RelinkSummary) string {
	return fmt.Sprintf("# Relink\n\n- CUSIPs queried: %d\n- Tickers filled: %d\n- Holdings linked: %d\n- Relationships: %d\n",
		s.CUSIPsQueried, s.TickersFilled, s.HoldingsLinked, s.Relationships)
}

// fundsMarkdown renders the fund list.
func fundsMarkdown(funds []model.FundSummary) string {
	if len(funds) == 0 {
		return "No funds stored. Run `fofctl load` first.\n"
	}

	var b strings.Builder
	b.WriteString("| Ticker | Name | Type | Period end | Holdings | Total assets |\n")
	b.WriteString("|---|---|---|---|---:|---:|\n")
	for _, f := range funds {
		period := "-"
		if f.PeriodEndDate != nil {
			period = f.PeriodEndDate.Format(dateLayout)
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %d | %.0f |\n",
			f.Ticker, cell(f.Name), f.Type, period, f.HoldingCount, f.TotalAssets)
	}
	return b.String()
}

// holdingsMarkdown renders holdings under a heading for ticker.
func holdingsMarkdown(ticker string, holdings []model.Holding) string {
	if len(holdings) == 0 {
		return fmt.Sprintf("No holdings stored for %s.\n", ticker)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s top %d holdings\n\n", ticker, len(holdings))
	b.WriteString("| # | Name | Ticker | Category | Value | % |\n")
	b.WriteString("|---:|---|---|---|---:|---:|\n")
	for i, h := range holdings {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %.0f | %.2f |\n",
			i+1, cell(h.Name), orDash(h.TickerOrEmpty()), orDash(h.AssetCategory), h.Value, h.Percentage)
	}
	return b.String()
}

// allocationMarkdown renders an asset category breakdown.
func allocationMarkdown(a model.Allocation) string {
	if len(a.Categories) == 0 {
		return fmt.Sprintf("No holdings stored for %s.\n", a.Ticker)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s allocation\n\n", a.Ticker)
	b.WriteString("| Category | Holdings | Value | % |\n")
	b.WriteString("|---|---:|---:|---:|\n")
	for _, c := range a.Categories {
		fmt.Fprintf(&b, "| %s | %d | %.0f | %.2f |\n", c.AssetCategory, c.Holdings, c.Value, c.Percentage)
	}
	fmt.Fprintf(&b, "\nTotal %.2f%%", a.Total)
	if !a.Complete {
		b.WriteString(" (incomplete)")
	}
	b.WriteString("\n")
	return b.String()
}

// overlapMarkdown renders the overlap summary followed by pairwise shared holdings.
func overlapMarkdown(a model.OverlapAnalysis) string {
	var b strings.Builder
	sum := a.Summary
	fmt.Fprintf(&b, "# Overlap of %s\n\n", strings.Join(sum.Tickers, ", "))
	for _, t := range sum.Tickers {
		fmt.Fprintf(&b, "- %s: %d holdings\n", t, sum.HoldingsByFund[t])
	}
	fmt.Fprintf(&b, "- Unique holdings: %d\n", sum.UniqueHoldings)
	fmt.Fprintf(&b, "- Overlapping holdings: %d\n", sum.OverlappingHoldings)
	fmt.Fprintf(&b, "- Redundant value: %.2f\n", sum.RedundantValue)
	fmt.Fprintf(&b, "- Max funds holding one security: %d of %d\n\n", sum.MaxOverlap, len(sum.Tickers))

	for _, p := range a.Pairs {
		fmt.Fprintf(&b, "## %s / %s: %d shared\n\n", p.FundA, p.FundB, len(p.Shared))
		if len(p.Shared) == 0 {
			continue
		}
		fmt.Fprintf(&b, "| Security | Name | %% %s | %% %s |\n", p.FundA, p.FundB)
		b.WriteString("|---|---|---:|---:|\n")
		for _, s := range p.Shared {
			fmt.Fprintf(&b, "| %s | %s | %.2f | %.2f |\n", s.Key, cell(s.Name), s.PercentageA, s.PercentageB)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// qualityMarkdown renders a data quality report.
func qualityMarkdown(q model.DataQuality) string {
	status := "complete"
	if !q.Complete {
		status = "incomplete"
	}
	return fmt.Sprintf("# %s data quality\n\n- Period end: %s\n- Holdings: %d\n- Resolved tickers: %d\n- Unresolved weight: %.2f%%\n- Percentage total: %.2f%% (%s)\n",
		q.Ticker, q.PeriodEndDate.Format(dateLayout), q.Holdings, q.ResolvedTickers, q.UnresolvedPercent, q.PercentageTotal, status)
}
