package service_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/model"
	"github.com/ndewijer/Fund-Of-Funds-Backend/internal/testutil"
)

const (
	mrskxCUSIP = "00123X101"
	ustCUSIP   = "912828YK0"
	appleCUSIP = "037833100"
)

// mdizxScenario returns a fetcher where MDIZX holds MRSKX at 27.5% and a
// treasury note at 72.5%, and MRSKX holds plain securities.
func mdizxScenario() (*testutil.MockFilingClient, *testutil.MockResolver) {
	fetcher := testutil.NewMockFilingClient().
		WithFiling(testutil.NewNportFiling("MDIZX").
			WithName("BlackRock LifePath Dynamic 2030").
			WithRow(
				testutil.FundRow(mrskxCUSIP, "Multi-Asset Risk Fund", 275000, 27.5),
				testutil.Row(ustCUSIP, "US Treasury Note", 725000, 72.5),
			).Get()).
		WithFiling(testutil.NewNportFiling("MRSKX").
			WithName("Multi-Asset Risk Fund").
			WithRow(
				testutil.Row(appleCUSIP, "Apple Inc", 600000, 60),
				testutil.Row(ustCUSIP, "US Treasury Note", 400000, 40),
			).Get())

	resolver := testutil.NewMockResolver(map[string]string{
		mrskxCUSIP: "MRSKX",
		appleCUSIP: "AAPL",
	}).WithSecurityType(mrskxCUSIP, "Open-End Fund").
		WithSecurityType(appleCUSIP, "Common Stock")

	return fetcher, resolver
}

// TestLoaderService_Load tests the recursive loader.
//
// WHY: The loader is the only writer of the database. A run must never abort
// on a single bad ticker, must process each ticker once, and must leave the
// database in the same state when repeated with unchanged upstream filings.
func TestLoaderService_Load(t *testing.T) {
	ctx := context.Background()

	t.Run("persists seed and child with relationship edge", func(t *testing.T) {
		// Setup
		db := testutil.SetupTestDB(t)
		fetcher, resolver := mdizxScenario()
		svc := testutil.NewTestLoaderService(t, db, fetcher, resolver, 1)

		// Execute
		summary := svc.Load(ctx, []string{"MDIZX"})

		// Assert
		if len(summary.Succeeded) != 2 {
			t.Fatalf("Expected 2 succeeded tickers, got %v (failed %v)", summary.Succeeded, summary.Failed)
		}
		if summary.Succeeded[0] != "MDIZX" || summary.Succeeded[1] != "MRSKX" {
			t.Errorf("Expected [MDIZX MRSKX], got %v", summary.Succeeded)
		}

		testutil.AssertRowCount(t, db, "fund", 2)
		testutil.AssertRowCount(t, db, "filing", 2)
		testutil.AssertRowCount(t, db, "holding", 4)
		testutil.AssertRowCount(t, db, "fund_relationship", 1)

		var parent, child string
		var pct float64
		err := db.QueryRow(`
			SELECT p.ticker, c.ticker, fr.percentage
			FROM fund_relationship fr
			JOIN fund p ON p.id = fr.parent_fund_id
			JOIN fund c ON c.id = fr.child_fund_id
		`).Scan(&parent, &child, &pct)
		if err != nil {
			t.Fatalf("Failed to read relationship: %v", err)
		}
		if parent != "MDIZX" || child != "MRSKX" || pct != 27.5 {
			t.Errorf("Expected MDIZX -> MRSKX 27.5, got %s -> %s %v", parent, child, pct)
		}
	})

	t.Run("classifies seeds as fund of funds and children as underlying", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		fetcher, resolver := mdizxScenario()
		svc := testutil.NewTestLoaderService(t, db, fetcher, resolver, 1)

		svc.Load(ctx, []string{"mdizx"})

		types := map[string]string{}
		rows, err := db.Query(`SELECT ticker, fund_type FROM fund`)
		if err != nil {
			t.Fatalf("Failed to query funds: %v", err)
		}
		defer rows.Close()
		for rows.Next() {
			var ticker, fundType string
			if err := rows.Scan(&ticker, &fundType); err != nil {
				t.Fatalf("Failed to scan fund: %v", err)
			}
			types[ticker] = fundType
		}

		if types["MDIZX"] != string(model.FundTypeFundOfFunds) {
			t.Errorf("Expected MDIZX to be fund_of_funds, got %q", types["MDIZX"])
		}
		if types["MRSKX"] != string(model.FundTypeUnderlying) {
			t.Errorf("Expected MRSKX to be underlying_fund, got %q", types["MRSKX"])
		}
	})

	t.Run("seed fund keeps its type when reached later as a child", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		fetcher, resolver := mdizxScenario()
		svc := testutil.NewTestLoaderService(t, db, fetcher, resolver, 1)

		svc.Load(ctx, []string{"MRSKX"})
		fetcher.WithFiling(testutil.NewNportFiling("MRSKX").
			WithPeriodEnd(time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)).
			WithRow(testutil.Row(appleCUSIP, "Apple Inc", 1000000, 100)).
			Get())
		summary := svc.Load(ctx, []string{"MDIZX"})

		if len(summary.Updated) != 1 || summary.Updated[0] != "MRSKX" {
			t.Fatalf("Expected MRSKX updated as a child, got %+v", summary)
		}
		var fundType string
		if err := db.QueryRow(`SELECT fund_type FROM fund WHERE ticker = 'MRSKX'`).Scan(&fundType); err != nil {
			t.Fatalf("Failed to read fund type: %v", err)
		}
		if fundType != string(model.FundTypeFundOfFunds) {
			t.Errorf("Expected MRSKX to stay fund_of_funds, got %q", fundType)
		}
	})

	t.Run("second run with unchanged filings is idempotent", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		fetcher, resolver := mdizxScenario()
		svc := testutil.NewTestLoaderService(t, db, fetcher, resolver, 1)

		svc.Load(ctx, []string{"MDIZX"})
		summary := svc.Load(ctx, []string{"MDIZX"})

		if len(summary.Unchanged) != 2 {
			t.Errorf("Expected 2 unchanged tickers, got %v", summary.Unchanged)
		}
		if len(summary.Succeeded)+len(summary.Updated)+len(summary.Failed) != 0 {
			t.Errorf("Expected no writes or failures, got %+v", summary)
		}
		testutil.AssertRowCount(t, db, "fund", 2)
		testutil.AssertRowCount(t, db, "filing", 2)
		testutil.AssertRowCount(t, db, "holding", 4)
		testutil.AssertRowCount(t, db, "fund_relationship", 1)
	})

	t.Run("new period is stored as an update", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		fetcher, resolver := mdizxScenario()
		svc := testutil.NewTestLoaderService(t, db, fetcher, resolver, 0)

		svc.Load(ctx, []string{"MDIZX"})
		fetcher.WithFiling(testutil.NewNportFiling("MDIZX").
			WithPeriodEnd(time.Date(2024, 9, 30, 0, 0, 0, 0, time.UTC)).
			WithRow(testutil.Row(ustCUSIP, "US Treasury Note", 1000000, 100)).
			Get())
		summary := svc.Load(ctx, []string{"MDIZX"})

		if len(summary.Updated) != 1 || summary.Updated[0] != "MDIZX" {
			t.Errorf("Expected MDIZX updated, got %+v", summary)
		}
		testutil.AssertRowCount(t, db, "fund", 1)
		testutil.AssertRowCount(t, db, "filing", 2)
	})

	t.Run("unknown ticker fails without creating a fund", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		fetcher, resolver := mdizxScenario()
		svc := testutil.NewTestLoaderService(t, db, fetcher, resolver, 1)

		summary := svc.Load(ctx, []string{"NOPE", "MDIZX"})

		if len(summary.Failed) != 1 || summary.Failed[0] != "NOPE" {
			t.Fatalf("Expected NOPE failed, got %v", summary.Failed)
		}
		outcome, ok := summary.Outcome("NOPE")
		if !ok || outcome.State != model.LoadStateFetchFailed {
			t.Errorf("Expected fetch_failed outcome for NOPE, got %+v", outcome)
		}
		if len(summary.Succeeded) != 2 {
			t.Errorf("Expected the run to continue after NOPE, got %v", summary.Succeeded)
		}

		var n int
		if err := db.QueryRow(`SELECT COUNT(*) FROM fund WHERE ticker = 'NOPE'`).Scan(&n); err != nil {
			t.Fatalf("Failed to count funds: %v", err)
		}
		if n != 0 {
			t.Errorf("Expected no fund row for NOPE, got %d", n)
		}
	})

	t.Run("transport errors are recorded per ticker", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		fetcher, resolver := mdizxScenario()
		fetcher.WithError("MRSKX", errors.New("connection reset"))
		svc := testutil.NewTestLoaderService(t, db, fetcher, resolver, 1)

		summary := svc.Load(ctx, []string{"MDIZX"})

		if len(summary.Succeeded) != 1 || len(summary.Failed) != 1 {
			t.Fatalf("Expected 1 succeeded and 1 failed, got %+v", summary)
		}
		outcome, _ := summary.Outcome("MRSKX")
		if outcome.Error == "" {
			t.Error("Expected error message for MRSKX")
		}
		testutil.AssertRowCount(t, db, "fund_relationship", 0)
	})

	t.Run("failing resolver keeps holdings unresolved and continues", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		fetcher, resolver := mdizxScenario()
		resolver.WithFailure()
		svc := testutil.NewTestLoaderService(t, db, fetcher, resolver, 1)

		summary := svc.Load(ctx, []string{"MDIZX"})

		if len(summary.Succeeded) != 1 || summary.Succeeded[0] != "MDIZX" {
			t.Fatalf("Expected only MDIZX stored, got %+v", summary)
		}
		testutil.AssertRowCount(t, db, "holding", 2)

		var unresolved int
		if err := db.QueryRow(`SELECT COUNT(*) FROM holding WHERE ticker IS NULL`).Scan(&unresolved); err != nil {
			t.Fatalf("Failed to count holdings: %v", err)
		}
		if unresolved != 2 {
			t.Errorf("Expected 2 unresolved holdings, got %d", unresolved)
		}
	})

	t.Run("filing tickers are not followed when the resolver fails", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		fetcher := testutil.NewMockFilingClient().
			WithFiling(testutil.NewNportFiling("MDIZX").
				WithRow(
					testutil.TickerRow(appleCUSIP, "AAPL", "Apple Inc", 600000, 60),
					testutil.TickerRow("594918104", "MSFT", "Microsoft Corp", 400000, 40),
				).Get())
		resolver := testutil.NewMockResolver(map[string]string{appleCUSIP: "AAPL"}).WithFailure()
		svc := testutil.NewTestLoaderService(t, db, fetcher, resolver, 2)

		first := svc.Load(ctx, []string{"MDIZX"})
		second := svc.Load(ctx, []string{"MDIZX"})

		if len(fetcher.Calls) != 2 || fetcher.CallCount("MDIZX") != 2 {
			t.Errorf("Expected only MDIZX to be fetched, got calls %v", fetcher.Calls)
		}
		if len(first.Failed) != 0 || len(second.Failed) != 0 {
			t.Errorf("Expected no failures, got %v and %v", first.Failed, second.Failed)
		}
		if len(second.Unchanged) != 1 {
			t.Errorf("Expected MDIZX unchanged on second run, got %+v", second)
		}

		var fromFiling int
		err := db.QueryRow(`SELECT COUNT(*) FROM holding WHERE ticker IS NOT NULL AND ticker_source = 'filing'`).Scan(&fromFiling)
		if err != nil {
			t.Fatalf("Failed to count holdings: %v", err)
		}
		if fromFiling != 2 {
			t.Errorf("Expected 2 holdings with filing tickers, got %d", fromFiling)
		}
	})

	t.Run("persist failure rolls back only that ticker", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		_, err := db.Exec(`
			CREATE TRIGGER reject_holding BEFORE INSERT ON holding
			WHEN NEW.name = 'Rejected Holding'
			BEGIN
				SELECT RAISE(ABORT, 'holding rejected');
			END`)
		if err != nil {
			t.Fatalf("Failed to create trigger: %v", err)
		}
		fetcher := testutil.NewMockFilingClient().
			WithFiling(testutil.NewNportFiling("BADXX").
				WithRow(
					testutil.Row(ustCUSIP, "US Treasury Note", 500, 50),
					testutil.Row(appleCUSIP, "Rejected Holding", 500, 50),
				).Get()).
			WithFiling(testutil.NewNportFiling("GOODX").
				WithRow(testutil.Row(ustCUSIP, "US Treasury Note", 1000, 100)).Get())
		svc := testutil.NewTestLoaderService(t, db, fetcher, testutil.NewMockResolver(nil), 0)

		summary := svc.Load(ctx, []string{"BADXX", "GOODX"})

		if len(summary.Succeeded) != 1 || summary.Succeeded[0] != "GOODX" {
			t.Errorf("Expected GOODX to succeed, got %v", summary.Succeeded)
		}
		if len(summary.Failed) != 1 || summary.Failed[0] != "BADXX" {
			t.Errorf("Expected BADXX to fail, got %v", summary.Failed)
		}
		if summary.Outcomes[0].State != model.LoadStatePersistFailed {
			t.Errorf("Expected persist_failed for BADXX, got %s", summary.Outcomes[0].State)
		}

		testutil.AssertRowCount(t, db, "fund", 1)
		testutil.AssertRowCount(t, db, "filing", 1)
		testutil.AssertRowCount(t, db, "holding", 1)

		var bad int
		if err := db.QueryRow(`SELECT COUNT(*) FROM fund WHERE ticker = 'BADXX'`).Scan(&bad); err != nil {
			t.Fatalf("Failed to count funds: %v", err)
		}
		if bad != 0 {
			t.Error("Expected no fund row for BADXX")
		}
	})

	t.Run("depth zero does not expand or resolve", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		fetcher, resolver := mdizxScenario()
		svc := testutil.NewTestLoaderService(t, db, fetcher, resolver, 0)

		summary := svc.Load(ctx, []string{"MDIZX"})

		if len(summary.Outcomes) != 1 {
			t.Errorf("Expected 1 outcome, got %d", len(summary.Outcomes))
		}
		if fetcher.CallCount("MRSKX") != 0 {
			t.Error("Expected MRSKX not to be fetched")
		}
		if len(resolver.Batches) != 0 {
			t.Errorf("Expected no resolver calls, got %d", len(resolver.Batches))
		}
	})

	t.Run("children are not expanded beyond max depth", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		fetcher, resolver := mdizxScenario()
		// MRSKX itself holds a fund; at depth 1 with MaxDepth 1 it must not be followed.
		fetcher.WithFiling(testutil.NewNportFiling("MRSKX").
			WithRow(testutil.FundRow("00999Z105", "Deep Fund", 1000000, 100)).
			Get())
		resolver.Tickers["00999Z105"] = "DEEPX"
		svc := testutil.NewTestLoaderService(t, db, fetcher, resolver, 1)

		svc.Load(ctx, []string{"MDIZX"})

		if fetcher.CallCount("DEEPX") != 0 {
			t.Error("Expected DEEPX not to be fetched")
		}
	})

	t.Run("circular references are processed once", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		fetcher := testutil.NewMockFilingClient().
			WithFiling(testutil.NewNportFiling("AAAAX").
				WithRow(testutil.FundRow("111111111", "Fund B", 500, 50), testutil.Row(ustCUSIP, "UST", 500, 50)).Get()).
			WithFiling(testutil.NewNportFiling("BBBBX").
				WithRow(testutil.FundRow("222222222", "Fund A", 500, 50), testutil.Row(ustCUSIP, "UST", 500, 50)).Get())
		resolver := testutil.NewMockResolver(map[string]string{
			"111111111": "BBBBX",
			"222222222": "AAAAX",
		})
		svc := testutil.NewTestLoaderService(t, db, fetcher, resolver, 5)

		summary := svc.Load(ctx, []string{"AAAAX"})

		if fetcher.CallCount("AAAAX") != 1 || fetcher.CallCount("BBBBX") != 1 {
			t.Errorf("Expected each ticker fetched once, got calls %v", fetcher.Calls)
		}
		if len(summary.Outcomes) != 2 {
			t.Errorf("Expected 2 outcomes, got %d", len(summary.Outcomes))
		}
		testutil.AssertRowCount(t, db, "fund_relationship", 2)
	})

	t.Run("non fund securities are not enqueued", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		fetcher, resolver := mdizxScenario()
		svc := testutil.NewTestLoaderService(t, db, fetcher, resolver, 2)

		svc.Load(ctx, []string{"MDIZX"})

		if fetcher.CallCount("AAPL") != 0 {
			t.Error("Expected common stock AAPL not to be fetched")
		}
	})

	t.Run("empty filing is a fetch failure", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		fetcher := testutil.NewMockFilingClient().WithFiling(testutil.NewNportFiling("EMPTX").Get())
		svc := testutil.NewTestLoaderService(t, db, fetcher, testutil.NewMockResolver(nil), 1)

		summary := svc.Load(ctx, []string{"EMPTX"})

		outcome, _ := summary.Outcome("EMPTX")
		if outcome.State != model.LoadStateFetchFailed {
			t.Errorf("Expected fetch_failed, got %s", outcome.State)
		}
		testutil.AssertRowCount(t, db, "fund", 0)
	})

	t.Run("cancelled context fails remaining tickers", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		fetcher, resolver := mdizxScenario()
		svc := testutil.NewTestLoaderService(t, db, fetcher, resolver, 1)

		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		summary := svc.Load(cancelled, []string{"MDIZX", "MRSKX"})

		if len(summary.Failed) != 2 {
			t.Errorf("Expected 2 failed tickers, got %v", summary.Failed)
		}
		if len(fetcher.Calls) != 0 {
			t.Errorf("Expected no fetches, got %v", fetcher.Calls)
		}
	})

	t.Run("duplicate and blank seeds are collapsed", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		fetcher, resolver := mdizxScenario()
		svc := testutil.NewTestLoaderService(t, db, fetcher, resolver, 0)

		summary := svc.Load(ctx, []string{"MDIZX", " mdizx ", ""})

		if len(summary.Seeds) != 1 {
			t.Errorf("Expected 1 seed, got %v", summary.Seeds)
		}
		if fetcher.CallCount("MDIZX") != 1 {
			t.Errorf("Expected one fetch, got %d", fetcher.CallCount("MDIZX"))
		}
	})
}

// TestLoaderService_Relink tests filling unresolved tickers after the fact.
func TestLoaderService_Relink(t *testing.T) {
	ctx := context.Background()

	t.Run("fills tickers and rebuilds edges", func(t *testing.T) {
		db := testutil.SetupTestDB(t)

		parent := testutil.NewFund().WithTicker("MDIZX").FundOfFunds().Build(t, db)
		child := testutil.CreateFund(t, db, "MRSKX")
		filing := testutil.NewFiling(parent.ID).Build(t, db)
		testutil.NewHolding(filing.ID).WithCUSIP(mrskxCUSIP).WithValue(275000, 27.5).RegisteredFund().Build(t, db)
		testutil.NewHolding(filing.ID).WithCUSIP(ustCUSIP).WithValue(725000, 72.5).Build(t, db)
		testutil.NewFiling(child.ID).Build(t, db)

		resolver := testutil.NewMockResolver(map[string]string{mrskxCUSIP: "MRSKX"})
		svc := testutil.NewTestLoaderService(t, db, testutil.NewMockFilingClient(), resolver, 1)

		// Execute
		summary, err := svc.Relink(ctx)

		// Assert
		if err != nil {
			t.Fatalf("Relink() returned unexpected error: %v", err)
		}
		if summary.CUSIPsQueried != 2 {
			t.Errorf("Expected 2 CUSIPs queried, got %d", summary.CUSIPsQueried)
		}
		if summary.TickersFilled != 1 || summary.HoldingsLinked != 1 {
			t.Errorf("Expected 1 ticker filled on 1 holding, got %+v", summary)
		}
		if summary.Relationships != 1 {
			t.Errorf("Expected 1 relationship, got %d", summary.Relationships)
		}
		testutil.AssertRowCount(t, db, "fund_relationship", 1)
	})

	t.Run("nothing to relink on empty database", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestLoaderService(t, db, testutil.NewMockFilingClient(), testutil.NewMockResolver(nil), 1)

		summary, err := svc.Relink(ctx)
		if err != nil {
			t.Fatalf("Relink() returned unexpected error: %v", err)
		}
		if summary != (model.RelinkSummary{}) {
			t.Errorf("Expected zero summary, got %+v", summary)
		}
	})
}

func TestLoaderService_DefaultSeeds(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestLoaderService(t, db, testutil.NewMockFilingClient(), testutil.NewMockResolver(nil), 1)

	if got := fmt.Sprint(svc.DefaultSeeds()); got != "[]" {
		t.Errorf("Expected no seeds from empty config, got %s", got)
	}
}
