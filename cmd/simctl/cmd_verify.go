package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/config"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/database"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/engine"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/repository"
)

func newVerifyCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "verify <game-id>",
		Short: "Replay a stored game and check its invariants",
		Long: `Loads a game from the database, replays its ledger through the trade
executor and checks that the replay reproduces the stored cash, quantities
and lots. Prints the portfolio summary on success.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dbPath == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				dbPath = cfg.Database.Path
			}
			return runVerify(cmd, dbPath, args[0])
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path (default: DB_PATH)")
	return cmd
}

func runVerify(cmd *cobra.Command, dbPath, gameID string) error {
	ctx := cmd.Context()

	db, err := database.Open(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	repo := repository.NewGameRepository(db)
	g, err := repo.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	snap, err := repo.LoadSnapshot(ctx, g)
	if err != nil {
		return err
	}

	cm, err := loadCostModel()
	if err != nil {
		return err
	}
	executor, err := engine.NewExecutor(cm, g.Venue, engine.Limits{})
	if err != nil {
		return err
	}

	p, err := engine.Restore(snap, executor)
	if err != nil {
		return fmt.Errorf("game %s does not replay: %w", g.ID, err)
	}
	if err := p.CheckInvariants(); err != nil {
		return fmt.Errorf("game %s: %w", g.ID, err)
	}

	s := p.Summary()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (%s) day %d/%d, %s: OK\n", g.Name, g.ID, g.CurrentDay, g.TotalDays, g.Status)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Cash\t%s\n", engine.FormatMoney(s.Cash, g.Currency))
	fmt.Fprintf(w, "Market value\t%s\n", engine.FormatMoney(s.MarketValue, g.Currency))
	fmt.Fprintf(w, "Realized P&L\t%s\n", engine.FormatMoney(s.RealizedPnL, g.Currency))
	fmt.Fprintf(w, "Unrealized P&L\t%s\n", engine.FormatMoney(s.UnrealizedPnL, g.Currency))
	fmt.Fprintf(w, "Total value\t%s\n", engine.FormatMoney(s.TotalValue, g.Currency))
	fmt.Fprintf(w, "Ledger entries\t%d\n", p.Sequence())
	return w.Flush()
}
