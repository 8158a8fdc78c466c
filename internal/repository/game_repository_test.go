package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/apperrors"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/repository"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/testutil"
)

func entry(seq int, symbol string, side model.Side, qty int64, price, net string, ts time.Time) model.LedgerEntry {
	unit := decimal.RequireFromString(price)
	return model.LedgerEntry{
		ID:        testutil.MakeID(),
		Sequence:  seq,
		Symbol:    symbol,
		Timestamp: ts,
		Side:      side,
		Quantity:  qty,
		UnitPrice: unit,
		Costs: model.CostBreakdown{
			Brokerage:     decimal.RequireFromString("3.0015"),
			SecuritiesTax: decimal.Zero,
			ExchangeFee:   decimal.RequireFromString("0.3251625"),
			Tax:           decimal.RequireFromString("0.59880825"),
			RegulatoryFee: decimal.RequireFromString("0.010005"),
		},
		GrossAmount:   unit.Mul(decimal.NewFromInt(qty)),
		NetCashImpact: decimal.RequireFromString(net),
	}
}

func TestGameRepository_InsertAndGet(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips every column", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewGameRepository(db)

		want := testutil.NewGame().
			WithCapital("250000.50").
			WithStartDate(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)).
			WithCurrentDay(3).
			Build(t, db)

		got, err := repo.GetGame(ctx, want.ID)
		if err != nil {
			t.Fatalf("GetGame() error = %v", err)
		}

		if got.Name != want.Name || got.Currency != "INR" || got.Venue != "NSE" {
			t.Errorf("GetGame() = %+v, want %+v", got, want)
		}
		if !got.InitialCapital.Equal(want.InitialCapital) {
			t.Errorf("InitialCapital = %s, want %s", got.InitialCapital, want.InitialCapital)
		}
		if !got.StartDate.Equal(want.StartDate) || got.CurrentDay != 3 || got.TotalDays != 30 {
			t.Errorf("schedule = %v day %d/%d", got.StartDate, got.CurrentDay, got.TotalDays)
		}
		if want := time.Date(2024, 3, 7, 0, 0, 0, 0, time.UTC); !got.CurrentDate().Equal(want) {
			t.Errorf("CurrentDate() = %v, want %v", got.CurrentDate(), want)
		}
	})

	t.Run("missing game", func(t *testing.T) {
		db := testutil.SetupTestDB(t)
		repo := repository.NewGameRepository(db)

		_, err := repo.GetGame(ctx, testutil.MakeID())
		if !errors.Is(err, apperrors.ErrGameNotFound) {
			t.Errorf("GetGame() error = %v, want ErrGameNotFound", err)
		}
	})
}

func TestGameRepository_GetGames(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewGameRepository(db)

	games, err := repo.GetGames(ctx)
	if err != nil {
		t.Fatalf("GetGames() error = %v", err)
	}
	if games == nil || len(games) != 0 {
		t.Errorf("GetGames() on empty db = %v, want empty slice", games)
	}

	active := testutil.CreateGame(t, db)
	done := testutil.NewGame().Completed().Build(t, db)

	games, err = repo.GetGames(ctx)
	if err != nil {
		t.Fatalf("GetGames() error = %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("len(GetGames()) = %d, want 2", len(games))
	}

	byStatus, err := repo.GetGamesByStatus(ctx, model.GameStatusActive)
	if err != nil {
		t.Fatalf("GetGamesByStatus() error = %v", err)
	}
	if len(byStatus) != 1 || byStatus[0].ID != active.ID {
		t.Errorf("active games = %+v, want only %s", byStatus, active.ID)
	}

	byStatus, _ = repo.GetGamesByStatus(ctx, model.GameStatusCompleted)
	if len(byStatus) != 1 || byStatus[0].ID != done.ID || byStatus[0].CurrentDay != 30 {
		t.Errorf("completed games = %+v", byStatus)
	}
}

func TestGameRepository_UpdateGameProgress(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewGameRepository(db)
	g := testutil.CreateGame(t, db)

	if err := repo.UpdateGameProgress(ctx, g.ID, 30, model.GameStatusCompleted); err != nil {
		t.Fatalf("UpdateGameProgress() error = %v", err)
	}
	got, _ := repo.GetGame(ctx, g.ID)
	if got.CurrentDay != 30 || got.Status != model.GameStatusCompleted {
		t.Errorf("game = day %d %s", got.CurrentDay, got.Status)
	}

	err := repo.UpdateGameProgress(ctx, testutil.MakeID(), 1, model.GameStatusActive)
	if !errors.Is(err, apperrors.ErrGameNotFound) {
		t.Errorf("UpdateGameProgress() on missing game error = %v", err)
	}
}

func TestGameRepository_SnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewGameRepository(db)
	g := testutil.NewGame().WithCapital("100000").Build(t, db)

	ts := time.Date(2024, 1, 1, 9, 15, 30, 123456789, time.UTC)
	buy := entry(1, "ITC", model.SideBuy, 10, "400.05", "-4004.44", ts)
	sell := entry(2, "ITC", model.SideSell, 4, "410", "1635.9", ts.Add(time.Hour))
	other := entry(3, "TCS", model.SideBuy, 1, "3500", "-3503.93", ts.Add(2*time.Hour))

	snap := model.Snapshot{
		InitialCapital: g.InitialCapital,
		Cash:           decimal.RequireFromString("94127.53"),
		Currency:       g.Currency,
		Ledgers: map[string][]model.LedgerEntry{
			"ITC": {buy, sell},
			"TCS": {other},
		},
		Marks: map[string]decimal.Decimal{
			"ITC": decimal.RequireFromString("410"),
			"TCS": decimal.RequireFromString("3500"),
		},
	}

	if err := repo.SaveSnapshot(ctx, g.ID, snap); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	loaded, err := repo.LoadSnapshot(ctx, g)
	if err != nil {
		t.Fatalf("LoadSnapshot() error = %v", err)
	}

	if !loaded.Cash.Equal(snap.Cash) {
		t.Errorf("Cash = %s, want %s", loaded.Cash, snap.Cash)
	}
	if len(loaded.Ledgers) != 2 {
		t.Fatalf("len(Ledgers) = %d, want 2", len(loaded.Ledgers))
	}
	for symbol, want := range snap.Ledgers {
		got := loaded.Ledgers[symbol]
		if len(got) != len(want) {
			t.Fatalf("%s: %d entries, want %d", symbol, len(got), len(want))
		}
		for i := range want {
			if !want[i].Equal(got[i]) {
				t.Errorf("%s[%d] = %+v, want %+v", symbol, i, got[i], want[i])
			}
		}
	}
	if !loaded.Ledgers["ITC"][0].Timestamp.Equal(ts) {
		t.Errorf("timestamp lost precision: %v", loaded.Ledgers["ITC"][0].Timestamp)
	}
	if !loaded.Marks["TCS"].Equal(decimal.NewFromInt(3500)) {
		t.Errorf("Marks = %v", loaded.Marks)
	}

	// Saving the same snapshot again writes no duplicate rows.
	if err := repo.SaveSnapshot(ctx, g.ID, snap); err != nil {
		t.Fatalf("second SaveSnapshot() error = %v", err)
	}
	testutil.AssertRowCount(t, db, "ledger_entry", 3)

	last, err := repo.GetLastSequence(ctx, g.ID)
	if err != nil || last != 3 {
		t.Errorf("GetLastSequence() = %d, %v; want 3", last, err)
	}
}

func TestGameRepository_SaveSnapshotRejectsStaleSnapshot(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewGameRepository(db)
	g := testutil.CreateGame(t, db)

	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	first := entry(1, "SBIN", model.SideBuy, 5, "600", "-3002.15", ts)
	second := entry(2, "SBIN", model.SideBuy, 5, "601", "-3007.15", ts.Add(time.Minute))

	full := model.Snapshot{Cash: decimal.RequireFromString("993990.70"), Ledgers: map[string][]model.LedgerEntry{"SBIN": {first, second}}}
	if err := repo.SaveSnapshot(ctx, g.ID, full); err != nil {
		t.Fatalf("SaveSnapshot() error = %v", err)
	}

	stale := model.Snapshot{Cash: decimal.RequireFromString("996997.85"), Ledgers: map[string][]model.LedgerEntry{"SBIN": {first}}}
	err := repo.SaveSnapshot(ctx, g.ID, stale)
	if !errors.Is(err, apperrors.ErrDataInconsistency) {
		t.Errorf("SaveSnapshot(stale) error = %v, want ErrDataInconsistency", err)
	}
}

func TestGameRepository_WithTxRollback(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewGameRepository(db)
	g := testutil.CreateGame(t, db)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}

	e := entry(1, "INFY", model.SideBuy, 1, "1500", "-1500.59", time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	if err := repo.WithTx(tx).InsertLedgerEntries(ctx, g.ID, []model.LedgerEntry{e}); err != nil {
		t.Fatalf("InsertLedgerEntries() error = %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	testutil.AssertRowCount(t, db, "ledger_entry", 0)
}

func TestGameRepository_GetLedgerEntriesBySymbol(t *testing.T) {
	ctx := context.Background()
	db := testutil.SetupTestDB(t)
	repo := repository.NewGameRepository(db)
	g := testutil.CreateGame(t, db)

	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	entries := []model.LedgerEntry{
		entry(1, "ITC", model.SideBuy, 1, "400", "-400.16", ts),
		entry(2, "TCS", model.SideBuy, 1, "3500", "-3501.40", ts),
		entry(3, "ITC", model.SideBuy, 1, "401", "-401.16", ts.Add(time.Minute)),
	}
	if err := repo.InsertLedgerEntries(ctx, g.ID, entries); err != nil {
		t.Fatalf("InsertLedgerEntries() error = %v", err)
	}

	ledgers, err := repo.GetLedgerEntries(ctx, g.ID, "ITC")
	if err != nil {
		t.Fatalf("GetLedgerEntries() error = %v", err)
	}
	if len(ledgers) != 1 || len(ledgers["ITC"]) != 2 {
		t.Fatalf("GetLedgerEntries(ITC) = %v", ledgers)
	}
	if ledgers["ITC"][0].Sequence != 1 || ledgers["ITC"][1].Sequence != 3 {
		t.Errorf("entries out of sequence order: %+v", ledgers["ITC"])
	}

	err = repo.InsertLedgerEntries(ctx, g.ID, []model.LedgerEntry{entry(3, "ITC", model.SideBuy, 1, "1", "-1", ts)})
	if err == nil {
		t.Error("duplicate sequence should violate the unique constraint")
	}
}
