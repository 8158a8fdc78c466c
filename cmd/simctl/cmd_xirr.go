package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/engine"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/xirr"
)

func newXIRRCmd() *cobra.Command {
	var flows []string

	cmd := &cobra.Command{
		Use:   "xirr",
		Short: "Annualised return of dated cash flows",
		Long: `Solves for the annual rate at which the flows have zero net present value,
using a 365-day year. Outflows are negative. Prints N/A when no rate exists.`,
		Example: `  simctl xirr --flow 2024-01-01:-100000 --flow 2024-12-31:110000`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			parsed, err := parseFlows(flows)
			if err != nil {
				return err
			}

			perf := engine.Evaluate(parsed)
			fmt.Fprintln(cmd.OutOrStdout(), perf.Display)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&flows, "flow", nil, "cash flow as YYYY-MM-DD:amount (repeatable)")
	_ = cmd.MarkFlagRequired("flow")
	return cmd
}

func parseFlows(raw []string) ([]xirr.CashFlow, error) {
	flows := make([]xirr.CashFlow, 0, len(raw))
	for _, r := range raw {
		date, amount, ok := strings.Cut(r, ":")
		if !ok {
			return nil, fmt.Errorf("invalid flow %q: want YYYY-MM-DD:amount", r)
		}
		d, err := time.Parse("2006-01-02", strings.TrimSpace(date))
		if err != nil {
			return nil, fmt.Errorf("invalid flow date %q: %w", date, err)
		}
		a, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid flow amount %q: %w", amount, err)
		}
		flows = append(flows, xirr.CashFlow{Date: d, Amount: a})
	}
	return flows, nil
}
