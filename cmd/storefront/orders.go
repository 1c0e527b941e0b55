package main

import (
	"encoding/json"
	"fmt"
	"os"

	"storefront/internal/orders"

	"github.com/spf13/cobra"
)

func newOrdersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Inspect and maintain the stored order list",
	}
	cmd.AddCommand(newOrdersRefreshCmd(a), newOrdersImportCmd(a), newOrdersListCmd(a))
	return cmd
}

func newOrdersRefreshCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Re-derive every order status from its age once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			oc, store, err := openOrders(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			changed, err := oc.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if changed {
				fmt.Fprintln(cmd.OutOrStdout(), "order statuses updated")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "order statuses already current")
			}
			return nil
		},
	}
}

func newOrdersImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Merge a JSON array of orders into the store",
		Long: `Merges the orders in FILE into the stored list. Orders whose id is already
stored replace the stored copy. Statuses are re-derived after the merge.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var incoming []orders.Order
			if err := json.Unmarshal(raw, &incoming); err != nil {
				return fmt.Errorf("decoding %s: %w", args[0], err)
			}

			oc, store, err := openOrders(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := oc.ImportOrders(cmd.Context(), incoming)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d orders, %d stored\n", len(incoming), n)
			return nil
		},
	}
}

func newOrdersListCmd(a *app) *cobra.Command {
	var f orders.Filter
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print stored orders as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			oc, store, err := openOrders(cmd.Context(), a.cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			list, err := oc.ListOrders(cmd.Context())
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(orders.FilterOrders(list, f, orders.IST))
		},
	}
	cmd.Flags().StringVar(&f.UserID, "user", "", "only orders of this user id")
	cmd.Flags().StringVar(&f.Status, "status", "", "only orders with this status")
	cmd.Flags().StringVarP(&f.Query, "query", "q", "", "search order ids and dates (d/m/yyyy)")
	return cmd
}
