package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/google/subcommands"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/config"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/database"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/validation"
)

// loadCmd runs the recursive loader.
type loadCmd struct {
	depth int
}

func (*loadCmd) Name() string     { return "load" }
func (*loadCmd) Synopsis() string { return "load NPORT-P filings for seed funds and their sub-funds" }
func (*loadCmd) Usage() string {
	return `fofctl load [-depth <n>] [TICKER...]

  Fetches the latest NPORT-P filing of every seed ticker and of the funds they
  hold, up to the given depth. Without tickers the configured seeds are used.
`
}

func (c *loadCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.depth, "depth", -1, "maximum expansion depth, negative uses LOADER_MAX_DEPTH")
}

func (c *loadCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	seeds := make([]string, 0, f.NArg())
	for _, s := range f.Args() {
		if err := validation.ValidateTicker(s); err != nil {
			fail("Error: %v", err)
			return subcommands.ExitUsageError
		}
		seeds = append(seeds, validation.NormalizeTicker(s))
	}

	a, err := openApp(ctx, true, func(cfg *config.Config) {
		if c.depth >= 0 {
			cfg.Loader.MaxDepth = c.depth
		}
	})
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	if len(seeds) == 0 {
		seeds = a.loader.DefaultSeeds()
	}
	summary := a.loader.Load(ctx, seeds)
	printMarkdown(summaryMarkdown(summary))

	if len(summary.Failed) > 0 && len(summary.Failed) == len(summary.Outcomes) {
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// relinkCmd back-fills tickers and rebuilds relationships.
type relinkCmd struct{}

func (*relinkCmd) Name() string     { return "relink" }
func (*relinkCmd) Synopsis() string { return "resolve missing tickers and rebuild fund relationships" }
func (*relinkCmd) Usage() string {
	return `fofctl relink

  Maps stored CUSIPs without a ticker through OpenFIGI and rebuilds every
  parent to child edge from the latest filings.
`
}
func (*relinkCmd) SetFlags(*flag.FlagSet) {}

func (*relinkCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, true)
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	summary, err := a.loader.Relink(ctx)
	if err != nil {
		fail("Error relinking: %v", err)
		return subcommands.ExitFailure
	}
	printMarkdown(relinkMarkdown(summary))
	return subcommands.ExitSuccess
}

// migrateCmd applies database migrations.
type migrateCmd struct{}

func (*migrateCmd) Name() string     { return "migrate" }
func (*migrateCmd) Synopsis() string { return "apply database migrations" }
func (*migrateCmd) Usage() string {
	return `fofctl migrate

  Applies pending schema migrations to DB_PATH and prints the schema version.
`
}
func (*migrateCmd) SetFlags(*flag.FlagSet) {}

func (*migrateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := openApp(ctx, false)
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	version, err := database.SchemaVersion(ctx, a.db)
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	fmt.Printf("%s at schema version %d\n", a.cfg.Database.Path, version)
	return subcommands.ExitSuccess
}

// fundsCmd lists stored funds.
type fundsCmd struct {
	fundType string
}

func (*fundsCmd) Name() string     { return "funds" }
func (*fundsCmd) Synopsis() string { return "list stored funds" }
func (*fundsCmd) Usage() string {
	return `fofctl funds [-type fund_of_funds|underlying_fund]
`
}

func (c *fundsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.fundType, "type", "", "only list funds of this type")
}

func (c *fundsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := validation.ValidateFundType(c.fundType); err != nil {
		fail("Error: %v", err)
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx, false)
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	funds, err := a.query.ListFunds(ctx, model.FundType(c.fundType))
	if err != nil {
		fail("Error listing funds: %v", err)
		return subcommands.ExitFailure
	}
	printMarkdown(fundsMarkdown(funds))
	return subcommands.ExitSuccess
}

// singleTicker validates that f carries exactly one ticker argument.
func singleTicker(f *flag.FlagSet) (string, bool) {
	if f.NArg() != 1 {
		fail("Error: exactly one ticker is required")
		return "", false
	}
	if err := validation.ValidateTicker(f.Arg(0)); err != nil {
		fail("Error: %v", err)
		return "", false
	}
	return validation.NormalizeTicker(f.Arg(0)), true
}

// topCmd prints the largest holdings of a fund.
type topCmd struct {
	n int
}

func (*topCmd) Name() string     { return "top" }
func (*topCmd) Synopsis() string { return "show the largest holdings of a fund" }
func (*topCmd) Usage() string {
	return `fofctl top [-n <count>] TICKER
`
}

func (c *topCmd) SetFlags(f *flag.FlagSet) {
	f.IntVar(&c.n, "n", 10, "number of holdings")
}

func (c *topCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ticker, ok := singleTicker(f)
	if !ok {
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx, false)
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	holdings, err := a.query.TopHoldings(ctx, ticker, c.n)
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	printMarkdown(holdingsMarkdown(ticker, holdings))
	return subcommands.ExitSuccess
}

// allocationCmd prints the asset category breakdown of a fund.
type allocationCmd struct{}

func (*allocationCmd) Name() string     { return "allocation" }
func (*allocationCmd) Synopsis() string { return "show a fund's allocation by asset category" }
func (*allocationCmd) Usage() string {
	return `fofctl allocation TICKER
`
}
func (*allocationCmd) SetFlags(*flag.FlagSet) {}

func (*allocationCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ticker, ok := singleTicker(f)
	if !ok {
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx, false)
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	allocation, err := a.query.AllocationByCategory(ctx, ticker)
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	printMarkdown(allocationMarkdown(allocation))
	return subcommands.ExitSuccess
}

// overlapCmd prints holdings shared between funds.
type overlapCmd struct{}

func (*overlapCmd) Name() string     { return "overlap" }
func (*overlapCmd) Synopsis() string { return "show holdings shared between funds" }
func (*overlapCmd) Usage() string {
	return `fofctl overlap TICKER TICKER [TICKER...]
`
}
func (*overlapCmd) SetFlags(*flag.FlagSet) {}

func (*overlapCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	tickers := validation.SplitTickers(strings.Join(f.Args(), ","))
	if err := validation.ValidateOverlapTickers(tickers); err != nil {
		fail("Error: %v", err)
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx, false)
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	analysis, err := a.query.OverlapAnalysis(ctx, tickers...)
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	printMarkdown(overlapMarkdown(analysis))
	return subcommands.ExitSuccess
}

// qualityCmd prints the data quality report of a fund.
type qualityCmd struct{}

func (*qualityCmd) Name() string     { return "quality" }
func (*qualityCmd) Synopsis() string { return "report how complete a fund's latest filing is" }
func (*qualityCmd) Usage() string {
	return `fofctl quality TICKER
`
}
func (*qualityCmd) SetFlags(*flag.FlagSet) {}

func (*qualityCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ticker, ok := singleTicker(f)
	if !ok {
		return subcommands.ExitUsageError
	}

	a, err := openApp(ctx, false)
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	defer a.Close()

	report, found, err := a.query.DataQuality(ctx, ticker)
	if err != nil {
		fail("Error: %v", err)
		return subcommands.ExitFailure
	}
	if !found {
		fail("No filing stored for %s", ticker)
		return subcommands.ExitFailure
	}
	printMarkdown(qualityMarkdown(report))
	return subcommands.ExitSuccess
}
