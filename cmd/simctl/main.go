// Command simctl is an offline companion to the trading simulator server: it
// previews trading costs, solves XIRR for ad-hoc cash flows and verifies that a
// stored game's ledger replays to its persisted state.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/costs"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/version"
)

var schedulePath string

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "simctl",
		Short: "Trading simulator utilities",
		Long: `simctl works directly on the cost model, the XIRR solver and the game
database, without a running server.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&schedulePath, "schedule", "", "YAML cost schedule (default: built-in schedule)")

	root.AddCommand(newQuoteCmd(), newXIRRCmd(), newVerifyCmd())
	return root
}

// loadCostModel returns the model for --schedule, or the built-in schedule.
func loadCostModel() (*costs.Model, error) {
	schedule := costs.DefaultSchedule()
	if schedulePath != "" {
		var err error
		if schedule, err = costs.LoadSchedule(schedulePath); err != nil {
			return nil, err
		}
	}
	return costs.New(schedule)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
