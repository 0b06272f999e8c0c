package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"syzygy-tms/internal/core"
	"syzygy-tms/internal/store/memory"
)

var fixedNow = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	orders   core.OrderService
	trips    core.TripService
	invoices core.InvoiceService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithStore(t, memory.New(memory.WithClock(tick(fixedNow))), nil)
}

// newFixtureWithStore lets a test put a wrapper around the memory store.
func newFixtureWithStore(t *testing.T, mem *memory.Store, wrap func(core.Store) core.Store) *fixture {
	t.Helper()
	var store core.Store = mem
	if wrap != nil {
		store = wrap(mem)
	}
	cfg := core.DefaultInvoicingConfig()
	cfg.Clock = func() time.Time { return fixedNow }
	log := zerolog.Nop()
	return &fixture{
		ctx:      context.Background(),
		store:    mem,
		orders:   core.NewOrderService(store, log),
		trips:    core.NewTripService(store, log),
		invoices: core.NewInvoiceService(store, cfg, log),
	}
}

// tick returns a clock that advances one second per call.
func tick(start time.Time) func() time.Time {
	cur := start
	return func() time.Time {
		cur = cur.Add(time.Second)
		return cur
	}
}

func (f *fixture) order(t *testing.T, ref, pickup, delivery, price string) *core.Order {
	t.Helper()
	o, err := f.orders.CreateOrder(f.ctx, core.OrderInput{
		Ref:             ref,
		ClientName:      "Walk-in " + ref,
		PickupAddress:   pickup,
		DeliveryAddress: delivery,
		Price:           price,
	})
	require.NoError(t, err)
	return o
}
