package cli

import (
	"context"

	"github.com/spf13/cobra"

	"syzygy-tms/internal/app"
)

var version = "dev"

// opener builds the application service for one command invocation. The
// returned func releases whatever the service holds open.
type opener func(ctx context.Context, inMemory bool) (app.ApplicationService, func(), error)

type rootOptions struct {
	inMemory bool
	open     opener
}

func newRootCmd(open opener) *cobra.Command {
	opts := &rootOptions{open: open}

	cmd := &cobra.Command{
		Use:           "tms",
		Short:         "Transport orders, trips and invoices",
		Long:          "tms tracks transport orders through their trips and turns delivered orders into numbered invoices.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().BoolVar(&opts.inMemory, "memory", false, "use a throwaway in-memory store instead of Postgres")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newMigrateCmd())
	cmd.AddCommand(newOrderCmd(opts))
	cmd.AddCommand(newTripCmd(opts))
	cmd.AddCommand(newInvoiceCmd(opts))
	return cmd
}

// withApp opens the service, runs fn and releases the service.
func (o *rootOptions) withApp(ctx context.Context, fn func(svc app.ApplicationService) error) error {
	svc, closeFn, err := o.open(ctx, o.inMemory)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(svc)
}

// NewRootCmdForTest returns the root command wired to svc.
func NewRootCmdForTest(svc app.ApplicationService) *cobra.Command {
	return newRootCmd(func(context.Context, bool) (app.ApplicationService, func(), error) {
		return svc, func() {}, nil
	})
}

func Execute(ctx context.Context) error {
	return newRootCmd(openApp).ExecuteContext(ctx)
}
