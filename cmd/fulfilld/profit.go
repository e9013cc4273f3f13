package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/velmie/fulfill"
)

func newProfitCmd(v *viper.Viper) *cobra.Command {
	var orderID string

	cmd := &cobra.Command{
		Use:   "profit",
		Short: "Print total profit, or the delivery record of one order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(v)
			if err != nil {
				return err
			}
			log, err := newZap(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx := cmd.Context()
			db, store, err := openMySQL(ctx, cfg.MySQL, newLogger(log))
			if err != nil {
				return err
			}
			defer db.Close()

			recorder := fulfill.NewRecorder(store)
			out := cmd.OutOrStdout()

			if orderID == "" {
				total, err := recorder.TotalProfit(ctx)
				if err != nil {
					return fmt.Errorf("total profit: %w", err)
				}
				fmt.Fprintf(out, "total profit: %s\n", total.StringFixed(2))

				return nil
			}

			record, found, err := recorder.Lookup(ctx, orderID)
			if err != nil {
				return fmt.Errorf("lookup order %s: %w", orderID, err)
			}
			if !found {
				return fmt.Errorf("order %s: %w", orderID, fulfill.ErrNotFound)
			}
			fmt.Fprintf(out, "order:     %s\n", record.OrderID)
			fmt.Fprintf(out, "buyer:     %s\n", record.Buyer)
			fmt.Fprintf(out, "phone:     %s\n", record.Phone)
			fmt.Fprintf(out, "item:      %d\n", record.ItemID)
			fmt.Fprintf(out, "sale:      %s\n", record.SaleAmount.StringFixed(2))
			fmt.Fprintf(out, "cost:      %s\n", record.Cost.StringFixed(2))
			fmt.Fprintf(out, "profit:    %s\n", record.Profit.StringFixed(2))
			fmt.Fprintf(out, "delivered: %s\n", record.DeliveredAt.Format(time.DateTime))

			return nil
		},
	}
	cmd.Flags().StringVar(&orderID, "order", "", "Show a single order's delivery record")

	return cmd
}
