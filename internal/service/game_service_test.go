package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/metrics"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/service"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/testutil"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func buy(symbol string, qty int64) service.TradeInput {
	return service.TradeInput{Symbol: symbol, Side: model.SideBuy, Quantity: qty}
}

func sell(symbol string, qty int64) service.TradeInput {
	return service.TradeInput{Symbol: symbol, Side: model.SideSell, Quantity: qty}
}

func mustTrade(t *testing.T, svc *service.GameService, gameID string, in service.TradeInput) model.TradeResult {
	t.Helper()
	res, err := svc.ExecuteTrade(context.Background(), gameID, in)
	if err != nil {
		t.Fatalf("ExecuteTrade(%+v) error = %v", in, err)
	}
	return res
}

func TestGameService_CreateGame(t *testing.T) {
	ctx := context.Background()

	t.Run("applies defaults", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		m := metrics.New()
		svc := testutil.NewTestGameService(t, db, testutil.NewFakePriceSource(nil), m)

		g, err := svc.CreateGame(ctx, service.CreateGameInput{Name: "  Practice  ", StartDate: testutil.DefaultStartDate})
		if err != nil {
			t.Fatalf("CreateGame() error = %v", err)
		}

		if g.Name != "Practice" || g.Currency != "INR" || g.Venue != "NSE" || g.TotalDays != 30 {
			t.Errorf("CreateGame() = %+v", g)
		}
		if !g.InitialCapital.Equal(dec("1000000")) || g.Status != model.GameStatusActive {
			t.Errorf("CreateGame() = %+v", g)
		}

		state, err := svc.GetState(ctx, g.ID)
		if err != nil {
			t.Fatalf("GetState() error = %v", err)
		}
		if !state.Summary.Cash.Equal(dec("1000000")) || len(state.Positions) != 0 {
			t.Errorf("GetState() = %+v", state.Summary)
		}
		if got := promtest.ToFloat64(m.ActiveGames); got != 1 {
			t.Errorf("active games gauge = %v, want 1", got)
		}
	})

	t.Run("rounds capital to the subunit", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestGameService(t, db, testutil.NewFakePriceSource(nil), nil)

		g, err := svc.CreateGame(ctx, service.CreateGameInput{Name: "Odd", InitialCapital: dec("5000.005")})
		if err != nil {
			t.Fatalf("CreateGame() error = %v", err)
		}
		if !g.InitialCapital.Equal(dec("5000.01")) {
			t.Errorf("InitialCapital = %s, want 5000.01", g.InitialCapital)
		}
	})

	t.Run("rejects invalid parameters", func(t *testing.T) {
		tests := []struct {
			name string
			in   service.CreateGameInput
		}{
			{"empty name", service.CreateGameInput{Name: " "}},
			{"negative capital", service.CreateGameInput{Name: "x", InitialCapital: dec("-1")}},
			{"unknown currency", service.CreateGameInput{Name: "x", Currency: "NOPE"}},
			{"negative days", service.CreateGameInput{Name: "x", TotalDays: -3}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				db := testutil.SetupTestDB(t)
				svc := testutil.NewTestGameService(t, db, testutil.NewFakePriceSource(nil), nil)

				_, err := svc.CreateGame(ctx, tt.in)
				if !errors.Is(err, apperrors.ErrInvalidGameConfig) {
					t.Errorf("CreateGame() error = %v, want ErrInvalidGameConfig", err)
				}
				testutil.AssertRowCount(t, db, "game", 0)
			})
		}
	})
}

func TestGameService_ExecuteTrade(t *testing.T) {
	ctx := context.Background()

	t.Run("buys at the market close and persists", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		prices := testutil.NewFakePriceSource(map[string]string{"ITC": "400"})
		m := metrics.New()
		svc := testutil.NewTestGameService(t, db, prices, m)
		g := testutil.CreateGame(t, db)

		// The price source sees the normalised ticker, not the typed one.
		res := mustTrade(t, svc, g.ID, buy(" itc ", 10))

		if res.Symbol != "ITC" || !res.ExecutedPrice.Equal(dec("400")) || res.Entry.Sequence != 1 {
			t.Errorf("ExecuteTrade() = %+v", res)
		}
		if !res.CashAfter.Equal(dec("1000000").Add(res.CashImpact)) {
			t.Errorf("CashAfter = %s, impact %s", res.CashAfter, res.CashImpact)
		}
		if !res.Entry.Timestamp.After(g.StartDate) || !res.Entry.Timestamp.Before(g.StartDate.AddDate(0, 0, 1)) {
			t.Errorf("trade timestamp %v not on the game's current date", res.Entry.Timestamp)
		}
		testutil.AssertRowCount(t, db, "ledger_entry", 1)

		state, err := svc.GetState(ctx, g.ID)
		if err != nil {
			t.Fatalf("GetState() error = %v", err)
		}
		if !state.Summary.Cash.Equal(res.CashAfter) {
			t.Errorf("stored cash = %s, want %s", state.Summary.Cash, res.CashAfter)
		}
		if len(state.Positions) != 1 || state.Positions[0].Quantity != 10 || !state.Positions[0].MarkPrice.Equal(dec("400")) {
			t.Errorf("Positions = %+v", state.Positions)
		}
		if got := promtest.ToFloat64(m.Trades.WithLabelValues("buy", metrics.ResultExecuted)); got != 1 {
			t.Errorf("executed buys = %v, want 1", got)
		}
	})

	t.Run("explicit price skips the price source", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		prices := testutil.NewFakePriceSource(nil)
		svc := testutil.NewTestGameService(t, db, prices, nil)
		g := testutil.CreateGame(t, db)

		in := buy("TCS", 2)
		in.Price = dec("3510.25")
		res := mustTrade(t, svc, g.ID, in)

		if !res.ExecutedPrice.Equal(dec("3510.25")) || prices.Calls != 0 {
			t.Errorf("price = %s, source calls = %d", res.ExecutedPrice, prices.Calls)
		}
	})

	t.Run("rejections leave the stored game unchanged", func(t *testing.T) {
		tests := []struct {
			name    string
			capital string
			in      service.TradeInput
			want    error
		}{
			{"insufficient funds", "1000", buy("ITC", 3), apperrors.ErrInsufficientFunds},
			{"oversell", "1000000", sell("ITC", 1), apperrors.ErrInsufficientShares},
			{"zero quantity", "1000000", buy("ITC", 0), apperrors.ErrInvalidOrder},
			{"bad side", "1000000", service.TradeInput{Symbol: "ITC", Side: "hold", Quantity: 1}, apperrors.ErrInvalidOrder},
			{"no price", "1000000", buy("WIPRO", 1), apperrors.ErrPriceUnavailable},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				db := testutil.SetupTestDB(t)
				m := metrics.New()
				svc := testutil.NewTestGameService(t, db, testutil.NewFakePriceSource(map[string]string{"ITC": "400"}), m)
				g := testutil.NewGame().WithCapital(tt.capital).Build(t, db)

				_, err := svc.ExecuteTrade(ctx, g.ID, tt.in)
				if !errors.Is(err, tt.want) {
					t.Fatalf("ExecuteTrade() error = %v, want %v", err, tt.want)
				}

				testutil.AssertRowCount(t, db, "ledger_entry", 0)
				state, err := svc.GetState(ctx, g.ID)
				if err != nil {
					t.Fatalf("GetState() error = %v", err)
				}
				if !state.Summary.Cash.Equal(dec(tt.capital)) {
					t.Errorf("cash = %s, want %s", state.Summary.Cash, tt.capital)
				}
				if got := promtest.ToFloat64(m.Trades.WithLabelValues(string(tt.in.Side), metrics.ResultRejected)); got != 1 {
					t.Errorf("rejected = %v, want 1", got)
				}
			})
		}
	})

	t.Run("completed game", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestGameService(t, db, testutil.NewFakePriceSource(map[string]string{"ITC": "400"}), nil)
		g := testutil.NewGame().Completed().Build(t, db)

		_, err := svc.ExecuteTrade(ctx, g.ID, buy("ITC", 1))
		if !errors.Is(err, apperrors.ErrGameCompleted) {
			t.Errorf("ExecuteTrade() error = %v, want ErrGameCompleted", err)
		}
	})

	t.Run("unknown game", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		svc := testutil.NewTestGameService(t, db, testutil.NewFakePriceSource(nil), nil)

		_, err := svc.ExecuteTrade(ctx, testutil.MakeID(), buy("ITC", 1))
		if !errors.Is(err, apperrors.ErrGameNotFound) {
			t.Errorf("ExecuteTrade() error = %v, want ErrGameNotFound", err)
		}
	})
}

func TestGameService_ReloadReproducesState(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	prices := testutil.NewFakePriceSource(map[string]string{"RELIANCE": "2450.55", "TCS": "3510"})
	svc := testutil.NewTestGameService(t, db, prices, nil)
	g := testutil.CreateGame(t, db)

	mustTrade(t, svc, g.ID, buy("RELIANCE", 50))
	mustTrade(t, svc, g.ID, buy("TCS", 20))
	prices.Set("RELIANCE", "2520.75")
	mustTrade(t, svc, g.ID, sell("RELIANCE", 30))

	before, err := svc.GetState(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}

	// A fresh service has nothing in memory; everything comes from the database.
	fresh := testutil.NewTestGameService(t, db, prices, nil)
	after, err := fresh.GetState(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetState() on fresh service error = %v", err)
	}

	if !before.Summary.Cash.Equal(after.Summary.Cash) || !before.Summary.RealizedPnL.Equal(after.Summary.RealizedPnL) {
		t.Errorf("summary differs: %+v vs %+v", before.Summary, after.Summary)
	}
	if !before.Summary.TotalValue.Equal(after.Summary.TotalValue) {
		t.Errorf("TotalValue = %s, want %s", after.Summary.TotalValue, before.Summary.TotalValue)
	}

	perfBefore, _ := svc.Performance(ctx, g.ID)
	perfAfter, _ := fresh.Performance(ctx, g.ID)
	if perfBefore.Portfolio != perfAfter.Portfolio {
		t.Errorf("portfolio XIRR differs: %+v vs %+v", perfBefore.Portfolio, perfAfter.Portfolio)
	}
}

func TestGameService_DetectsTamperedCash(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	m := metrics.New()
	svc := testutil.NewTestGameService(t, db, testutil.NewFakePriceSource(map[string]string{"ITC": "400"}), m)
	g := testutil.CreateGame(t, db)
	mustTrade(t, svc, g.ID, buy("ITC", 10))

	if _, err := db.Exec(`UPDATE game SET cash = '999999' WHERE id = ?`, g.ID); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	_, err := svc.GetState(ctx, g.ID)
	if !errors.Is(err, apperrors.ErrRoundTripMismatch) {
		t.Fatalf("GetState() error = %v, want ErrRoundTripMismatch", err)
	}
	if got := promtest.ToFloat64(m.RoundTripErrors); got != 1 {
		t.Errorf("round trip errors = %v, want 1", got)
	}

	if _, err := svc.ExecuteTrade(ctx, g.ID, buy("ITC", 1)); !errors.Is(err, apperrors.ErrRoundTripMismatch) {
		t.Errorf("ExecuteTrade() error = %v, want ErrRoundTripMismatch", err)
	}
	testutil.AssertRowCount(t, db, "ledger_entry", 1)
}

func TestGameService_ConcurrentTradesAreSerialised(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestGameService(t, db, testutil.NewFakePriceSource(map[string]string{"ITC": "400"}), nil)
	g := testutil.CreateGame(t, db)

	const n = 20
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ExecuteTrade(ctx, g.ID, buy("ITC", 1))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("ExecuteTrade() error = %v", err)
		}
	}

	testutil.AssertRowCount(t, db, "ledger_entry", n)
	state, err := svc.GetState(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Positions[0].Quantity != n {
		t.Errorf("quantity = %d, want %d", state.Positions[0].Quantity, n)
	}
}

func TestGameService_AdvanceDay(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	prices := testutil.NewFakePriceSource(map[string]string{"ITC": "400", "TCS": "3500"})
	m := metrics.New()
	svc := testutil.NewTestGameService(t, db, prices, m)
	g := testutil.NewGame().WithTotalDays(2).Build(t, db)

	mustTrade(t, svc, g.ID, buy("ITC", 10))
	mustTrade(t, svc, g.ID, buy("TCS", 1))
	mustTrade(t, svc, g.ID, sell("TCS", 1))

	prices.Set("ITC", "420")
	state, err := svc.AdvanceDay(ctx, g.ID)
	if err != nil {
		t.Fatalf("AdvanceDay() error = %v", err)
	}
	if state.Game.CurrentDay != 1 || state.Game.Status != model.GameStatusActive {
		t.Errorf("game = day %d %s", state.Game.CurrentDay, state.Game.Status)
	}
	if !state.CurrentDate.Equal(g.StartDate.AddDate(0, 0, 1)) {
		t.Errorf("CurrentDate = %v", state.CurrentDate)
	}
	if len(state.Positions) != 2 || state.Positions[0].Symbol != "ITC" || !state.Positions[0].MarkPrice.Equal(dec("420")) {
		t.Errorf("Positions = %+v", state.Positions)
	}
	if got := promtest.ToFloat64(m.MarkRefreshes.WithLabelValues(metrics.TriggerAdvance, metrics.ResultOK)); got != 1 {
		t.Errorf("advance refreshes = %v, want 1", got)
	}

	// The refreshed mark is stored, not just returned.
	reloaded, err := svc.GetState(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !reloaded.Positions[0].MarkPrice.Equal(dec("420")) {
		t.Errorf("stored mark = %s, want 420", reloaded.Positions[0].MarkPrice)
	}

	state, err = svc.AdvanceDay(ctx, g.ID)
	if err != nil {
		t.Fatalf("second AdvanceDay() error = %v", err)
	}
	if state.Game.Status != model.GameStatusCompleted {
		t.Errorf("Status = %s, want completed", state.Game.Status)
	}

	if _, err := svc.AdvanceDay(ctx, g.ID); !errors.Is(err, apperrors.ErrGameCompleted) {
		t.Errorf("AdvanceDay() on completed game error = %v", err)
	}
	if _, err := svc.ExecuteTrade(ctx, g.ID, sell("ITC", 1)); !errors.Is(err, apperrors.ErrGameCompleted) {
		t.Errorf("ExecuteTrade() on completed game error = %v", err)
	}
}

func TestGameService_RefreshMarks(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	prices := testutil.NewFakePriceSource(map[string]string{"ITC": "400", "SBIN": "600"})
	svc := testutil.NewTestGameService(t, db, prices, nil)
	g := testutil.CreateGame(t, db)

	mustTrade(t, svc, g.ID, buy("ITC", 10))
	mustTrade(t, svc, g.ID, buy("SBIN", 5))

	prices.Set("ITC", "415.5")
	prices.Set("SBIN", "0")

	refresh, err := svc.RefreshMarks(ctx, g.ID, metrics.TriggerManual)
	if err != nil {
		t.Fatalf("RefreshMarks() error = %v", err)
	}
	if len(refresh.Updated) != 1 || !refresh.Updated["ITC"].Equal(dec("415.5")) {
		t.Errorf("Updated = %v", refresh.Updated)
	}
	if _, failed := refresh.Failed["SBIN"]; !failed {
		t.Errorf("Failed = %v, want SBIN", refresh.Failed)
	}

	state, _ := svc.GetState(ctx, g.ID)
	for _, pos := range state.Positions {
		want := map[string]string{"ITC": "415.5", "SBIN": "600"}[pos.Symbol]
		if !pos.MarkPrice.Equal(dec(want)) {
			t.Errorf("%s mark = %s, want %s", pos.Symbol, pos.MarkPrice, want)
		}
	}
}

func TestGameService_Performance(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	prices := testutil.NewFakePriceSource(map[string]string{"ITC": "400"})
	m := metrics.New()
	svc := testutil.NewTestGameService(t, db, prices, m)
	g := testutil.NewGame().WithTotalDays(60).Build(t, db)

	report, err := svc.Performance(ctx, g.ID)
	if err != nil {
		t.Fatalf("Performance() error = %v", err)
	}
	if report.Portfolio.Available || report.Portfolio.Display != "N/A" {
		t.Errorf("empty portfolio = %+v, want N/A", report.Portfolio)
	}

	mustTrade(t, svc, g.ID, buy("ITC", 100))
	prices.Set("ITC", "404")
	for i := 0; i < 45; i++ {
		if _, err := svc.AdvanceDay(ctx, g.ID); err != nil {
			t.Fatalf("AdvanceDay() error = %v", err)
		}
	}

	report, err = svc.Performance(ctx, g.ID)
	if err != nil {
		t.Fatalf("Performance() error = %v", err)
	}
	if !report.Portfolio.Available || report.Portfolio.XIRR <= 0 {
		t.Errorf("Portfolio = %+v, want a positive rate", report.Portfolio)
	}
	if len(report.Positions) != 1 || !report.Positions[0].Performance.Available {
		t.Errorf("Positions = %+v", report.Positions)
	}
	if got := promtest.ToFloat64(m.Performance.WithLabelValues("not_available")); got != 1 {
		t.Errorf("not available = %v, want 1", got)
	}
}

func TestGameService_Ledger(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestGameService(t, db, testutil.NewFakePriceSource(map[string]string{"ITC": "400", "TCS": "3500"}), nil)
	g := testutil.CreateGame(t, db)

	mustTrade(t, svc, g.ID, buy("ITC", 10))
	mustTrade(t, svc, g.ID, buy("TCS", 1))
	mustTrade(t, svc, g.ID, sell("ITC", 4))

	entries, err := svc.Ledger(ctx, g.ID, "itc")
	if err != nil {
		t.Fatalf("Ledger() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Sequence != 1 || entries[1].Sequence != 3 || entries[1].Side != model.SideSell {
		t.Errorf("Ledger() = %+v", entries)
	}

	if _, err := svc.Ledger(ctx, g.ID, "WIPRO"); !errors.Is(err, apperrors.ErrPositionNotFound) {
		t.Errorf("Ledger(WIPRO) error = %v, want ErrPositionNotFound", err)
	}
	if _, err := svc.Ledger(ctx, testutil.MakeID(), "ITC"); !errors.Is(err, apperrors.ErrGameNotFound) {
		t.Errorf("Ledger(unknown game) error = %v, want ErrGameNotFound", err)
	}
}

func TestGameService_QuoteCosts(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := testutil.NewTestGameService(t, db, testutil.NewFakePriceSource(nil), nil)
	cm := testutil.NewTestCostModel(t)

	t.Run("defaults to the game venue", func(t *testing.T) {
		q, err := svc.QuoteCosts(dec("10000"), model.SideSell, "")
		if err != nil {
			t.Fatalf("QuoteCosts() error = %v", err)
		}
		want, _ := cm.Calculate(dec("10000"), model.SideSell, "NSE")
		if q.Venue != "NSE" || !q.Costs.Equal(want) {
			t.Errorf("QuoteCosts() = %+v, want %+v", q, want)
		}
		if !q.NetAmount.Equal(dec("10000").Sub(want.Total())) {
			t.Errorf("NetAmount = %s", q.NetAmount)
		}
	})

	t.Run("other venue", func(t *testing.T) {
		q, err := svc.QuoteCosts(dec("10000"), model.SideBuy, "bse")
		if err != nil {
			t.Fatalf("QuoteCosts() error = %v", err)
		}
		want, _ := cm.Calculate(dec("10000"), model.SideBuy, "BSE")
		if q.Venue != "BSE" || !q.TotalCosts.Equal(want.Total()) {
			t.Errorf("QuoteCosts() = %+v", q)
		}
		if !q.NetAmount.Equal(dec("10000").Add(want.Total())) {
			t.Errorf("NetAmount = %s", q.NetAmount)
		}
	})

	t.Run("errors", func(t *testing.T) {
		if _, err := svc.QuoteCosts(dec("1"), model.SideBuy, "LSE"); !errors.Is(err, apperrors.ErrUnknownVenue) {
			t.Errorf("unknown venue error = %v", err)
		}
		if _, err := svc.QuoteCosts(dec("1"), "short", ""); !errors.Is(err, apperrors.ErrInvalidSide) {
			t.Errorf("invalid side error = %v", err)
		}
		if _, err := svc.QuoteCosts(dec("-1"), model.SideBuy, ""); !errors.Is(err, apperrors.ErrInvalidOrder) {
			t.Errorf("negative value error = %v", err)
		}
	})
}

func TestGameService_History(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	prices := testutil.NewFakePriceSource(map[string]string{"ITC": "400"})
	svc := testutil.NewTestGameService(t, db, prices, nil)

	g, err := svc.CreateGame(ctx, service.CreateGameInput{
		Name:           "History",
		InitialCapital: dec("100000"),
		StartDate:      testutil.DefaultStartDate,
		TotalDays:      5,
	})
	if err != nil {
		t.Fatalf("CreateGame() error = %v", err)
	}

	mustTrade(t, svc, g.ID, buy("ITC", 10))
	prices.Set("ITC", "450")
	if _, err := svc.AdvanceDay(ctx, g.ID); err != nil {
		t.Fatalf("AdvanceDay() error = %v", err)
	}
	prices.Set("ITC", "430")
	if _, err := svc.AdvanceDay(ctx, g.ID); err != nil {
		t.Fatalf("AdvanceDay() error = %v", err)
	}

	history, err := svc.History(ctx, g.ID)
	if err != nil {
		t.Fatalf("History() error = %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("History() returned %d days, want 3", len(history))
	}

	opening := history[0]
	if opening.Day != 0 || !opening.Date.Equal(testutil.DefaultStartDate) {
		t.Errorf("opening = day %d on %v", opening.Day, opening.Date)
	}
	if !opening.Cash.Equal(dec("100000")) || !opening.TotalValue.Equal(dec("100000")) {
		t.Errorf("opening cash %s total %s, want 100000", opening.Cash, opening.TotalValue)
	}

	for i, v := range history[1:] {
		if v.Day != i+1 || !v.Date.Equal(testutil.DefaultStartDate.AddDate(0, 0, i+1)) {
			t.Errorf("history[%d] = day %d on %v", i+1, v.Day, v.Date)
		}
	}
	if !history[1].MarketValue.Equal(dec("4500")) || !history[2].MarketValue.Equal(dec("4300")) {
		t.Errorf("market values = %s, %s", history[1].MarketValue, history[2].MarketValue)
	}
	last := history[2]
	if !last.TotalValue.Equal(last.Cash.Add(last.CostBasis).Add(last.UnrealizedPnL)) {
		t.Errorf("TotalValue = %s, want cash + cost basis + unrealized", last.TotalValue)
	}

	if _, err := svc.History(ctx, testutil.MakeID()); !errors.Is(err, apperrors.ErrGameNotFound) {
		t.Errorf("History() error = %v, want ErrGameNotFound", err)
	}
}
