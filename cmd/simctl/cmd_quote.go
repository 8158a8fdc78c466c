package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/ndewijer/Trading-Simulator-Backend/internal/api/request"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/engine"
	"github.com/ndewijer/Trading-Simulator-Backend/internal/model"
)

func newQuoteCmd() *cobra.Command {
	var (
		value    string
		side     string
		venue    string
		currency string
	)

	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Show the cost breakdown of an order",
		Example: `  simctl quote --value 10000 --side sell
  simctl quote --value 250000 --side buy --venue BSE`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			params, err := request.ParseQuoteParams(value, side, venue)
			if err != nil {
				return err
			}

			cm, err := loadCostModel()
			if err != nil {
				return err
			}

			c, err := cm.Calculate(params.Value, params.Side, params.Venue)
			if err != nil {
				return err
			}

			net := params.Value.Add(c.Total())
			if params.Side == model.SideSell {
				net = params.Value.Sub(c.Total())
			}

			money := func(d decimal.Decimal) string { return engine.FormatMoney(d, currency) }
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintf(w, "Order value\t%s\t\n", money(params.Value))
			fmt.Fprintf(w, "Brokerage\t%s\t\n", money(c.Brokerage))
			fmt.Fprintf(w, "Securities tax\t%s\t\n", money(c.SecuritiesTax))
			fmt.Fprintf(w, "Exchange fee\t%s\t\n", money(c.ExchangeFee))
			fmt.Fprintf(w, "Tax\t%s\t\n", money(c.Tax))
			fmt.Fprintf(w, "Regulatory fee\t%s\t\n", money(c.RegulatoryFee))
			fmt.Fprintf(w, "Total costs\t%s\t\n", money(c.Total()))
			fmt.Fprintf(w, "Net amount\t%s\t\n", money(net))
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "order value (quantity x price)")
	cmd.Flags().StringVar(&side, "side", "", "buy or sell")
	cmd.Flags().StringVar(&venue, "venue", "NSE", "exchange code")
	cmd.Flags().StringVar(&currency, "currency", "INR", "currency used to format amounts")
	_ = cmd.MarkFlagRequired("value")
	_ = cmd.MarkFlagRequired("side")
	return cmd
}
