package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"syzygy-tms/internal/app"
)

func newTripCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trip",
		Short: "Record trip progress",
	}
	cmd.AddCommand(newTripStatusCmd(opts))
	return cmd
}

func newTripStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <trip-id> <PLANNED|IN_PROGRESS|DONE|CANCELED>",
		Short: "Set a trip status and update its order",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid trip id %q", args[0])
			}
			return opts.withApp(cmd.Context(), func(svc app.ApplicationService) error {
				result, err := svc.UpdateTripStatus(cmd.Context(), id, args[1])
				if err != nil {
					return err
				}
				order, err := svc.GetOrder(cmd.Context(), strconv.Itoa(result.Trip.OrderID))
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "trip %d is %s, order %s is %s\n",
					result.Trip.ID, result.Trip.Status, order.Order.Ref, order.Order.Status)
				return nil
			})
		},
	}
}
