package cli

import (
	"github.com/spf13/cobra"

	"syzygy-tms/internal/app"
)

func newOrderCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "order",
		Short: "Inspect transport orders",
	}
	cmd.AddCommand(newOrderReadyCmd(opts))
	cmd.AddCommand(newOrderListCmd(opts))
	return cmd
}

func newOrderReadyCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "ready",
		Short: "List delivered orders waiting for an invoice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(svc app.ApplicationService) error {
				result, err := svc.ListReadyToInvoice(cmd.Context(), limit)
				if err != nil {
					return err
				}
				printOrders(cmd.OutOrStdout(), "READY TO INVOICE", result.Orders)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of orders (default 50)")
	return cmd
}

func newOrderListCmd(opts *rootOptions) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List orders",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(svc app.ApplicationService) error {
				result, err := svc.ListOrders(cmd.Context(), status)
				if err != nil {
					return err
				}
				printOrders(cmd.OutOrStdout(), "ORDERS", result.Orders)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only orders in this status")
	return cmd
}
