package cli

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"syzygy-tms/internal/app"
)

func newInvoiceCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invoice",
		Short: "Create and maintain invoices",
	}
	cmd.AddCommand(newInvoiceCreateCmd(opts))
	cmd.AddCommand(newInvoiceManualCmd(opts))
	cmd.AddCommand(newInvoicePricingCmd(opts))
	cmd.AddCommand(newInvoiceShowCmd(opts))
	return cmd
}

func newInvoiceCreateCmd(opts *rootOptions) *cobra.Command {
	var orderRef string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Invoice an order (repeat calls return the existing invoice)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(svc app.ApplicationService) error {
				result, err := svc.InvoiceOrder(cmd.Context(), orderRef)
				if err != nil {
					return err
				}
				verb := "created"
				if result.AlreadyInvoiced {
					verb = "already exists"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "invoice %s %s (id %d, total %s %s)\n",
					result.Invoice.Number, verb, result.Invoice.ID,
					result.Invoice.Total.StringFixed(2), result.Invoice.Currency)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&orderRef, "order", "", "order id or reference")
	_ = cmd.MarkFlagRequired("order")
	return cmd
}

func newInvoiceManualCmd(opts *rootOptions) *cobra.Command {
	var req app.ManualInvoiceRequest

	cmd := &cobra.Command{
		Use:   "manual",
		Short: "Create a draft invoice without an order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withApp(cmd.Context(), func(svc app.ApplicationService) error {
				result, err := svc.CreateManualInvoice(cmd.Context(), req)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "draft invoice %s created (id %d, total %s %s)\n",
					result.Invoice.Number, result.Invoice.ID,
					result.Invoice.Total.StringFixed(2), result.Invoice.Currency)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.BuyerName, "buyer", "", "buyer name")
	f.StringVar(&req.BuyerAddress, "address", "", "buyer address")
	f.StringVar(&req.BuyerVAT, "buyer-vat", "", "buyer VAT number")
	f.StringVar(&req.Currency, "currency", "", "invoice currency (defaults to INVOICE_CURRENCY)")
	f.StringVar(&req.Language, "lang", "", "SK or EN")
	f.StringVar(&req.Description, "description", "", "line description")
	f.StringVar(&req.NetAmount, "net", "", "net amount")
	f.StringVar(&req.VATRate, "vat", "", "VAT rate in percent")
	f.StringVar(&req.Note, "note", "", "free text note")
	return cmd
}

func newInvoicePricingCmd(opts *rootOptions) *cobra.Command {
	var req app.PricingRequest

	cmd := &cobra.Command{
		Use:   "pricing <invoice-id>",
		Short: "Replace the pricing of a manual invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid invoice id %q", args[0])
			}
			return opts.withApp(cmd.Context(), func(svc app.ApplicationService) error {
				result, err := svc.UpdateInvoicePricing(cmd.Context(), id, req)
				if err != nil {
					return err
				}
				inv := result.Invoice
				fmt.Fprintf(cmd.OutOrStdout(), "invoice %s: subtotal %s, vat %s, total %s %s\n",
					inv.Number, inv.Subtotal.StringFixed(2), inv.VATAmount.StringFixed(2),
					inv.Total.StringFixed(2), inv.Currency)
				return nil
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&req.Description, "description", "", "line description")
	f.StringVar(&req.NetAmount, "net", "0", "net amount")
	f.StringVar(&req.VATRate, "vat", "0", "VAT rate in percent")
	return cmd
}

func newInvoiceShowCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <invoice-id>",
		Short: "Print an invoice",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid invoice id %q", args[0])
			}
			return opts.withApp(cmd.Context(), func(svc app.ApplicationService) error {
				snap, err := svc.GetInvoiceSnapshot(cmd.Context(), id)
				if err != nil {
					return err
				}
				if asJSON {
					enc := json.NewEncoder(cmd.OutOrStdout())
					enc.SetIndent("", "  ")
					return enc.Encode(snap)
				}
				return InvoiceRenderer{}.Render(cmd.Context(), *snap, cmd.OutOrStdout())
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the snapshot as JSON")
	return cmd
}
