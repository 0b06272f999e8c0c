package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syzygy-tms/internal/core"
	"syzygy-tms/internal/store/memory"
)

func TestInTx_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	boom := errors.New("boom")

	err := s.InTx(ctx, func(q core.Queries) error {
		o := &core.Order{Ref: "R-1", PickupAddress: "A", DeliveryAddress: "B", Status: core.OrderStatusNew}
		require.NoError(t, q.CreateOrder(ctx, o))
		_, err := q.BumpInvoiceSequence(ctx, 2025, 0)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	_, err = s.GetOrderByRef(ctx, "R-1")
	assert.ErrorIs(t, err, core.ErrNotFound)

	seq, err := s.BumpInvoiceSequence(ctx, 2025, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, seq)
}

func TestInvoiceUniqueness(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	order := &core.Order{Ref: "R-2", PickupAddress: "A", DeliveryAddress: "B", Status: core.OrderStatusNew}
	require.NoError(t, s.CreateOrder(ctx, order))

	first := &core.Invoice{Number: "INV-2025-0001", OrderID: &order.ID}
	require.NoError(t, s.CreateInvoice(ctx, first))

	err := s.CreateInvoice(ctx, &core.Invoice{Number: "INV-2025-0001"})
	assert.ErrorIs(t, err, core.ErrConflict)

	err = s.CreateInvoice(ctx, &core.Invoice{Number: "INV-2025-0002", OrderID: &order.ID})
	assert.ErrorIs(t, err, core.ErrAlreadyInvoiced)

	require.NoError(t, s.CreateInvoice(ctx, &core.Invoice{Number: "INV-2025-0003"}))
	require.NoError(t, s.CreateInvoice(ctx, &core.Invoice{Number: "INV-2025-0004"}), "manual invoices have no order link")

	last, ok, err := s.LastInvoiceNumber(ctx, "INV-2025-")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "INV-2025-0004", last)
}

func TestTripPerOrder(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	order := &core.Order{Ref: "R-3", PickupAddress: "A", DeliveryAddress: "B", Status: core.OrderStatusNew}
	require.NoError(t, s.CreateOrder(ctx, order))
	require.NoError(t, s.CreateTrip(ctx, &core.Trip{OrderID: order.ID, Status: core.TripStatusPlanned}))

	err := s.CreateTrip(ctx, &core.Trip{OrderID: order.ID, Status: core.TripStatusPlanned})
	assert.ErrorIs(t, err, core.ErrAlreadyExists)

	err = s.CreateTrip(ctx, &core.Trip{OrderID: 404, Status: core.TripStatusPlanned})
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	order := &core.Order{Ref: "R-4", PickupAddress: "A", DeliveryAddress: "B", Status: core.OrderStatusNew}
	require.NoError(t, s.CreateOrder(ctx, order))

	got, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	got.Status = core.OrderStatusInvoiced

	again, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusNew, again.Status)
}

func TestStoredInvoiceOwnsItsPointers(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	order := &core.Order{Ref: "R-5", PickupAddress: "A", DeliveryAddress: "B", Status: core.OrderStatusNew}
	require.NoError(t, s.CreateOrder(ctx, order))

	orderID := order.ID
	due := time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC)
	inv := &core.Invoice{Number: "INV-2025-0001", OrderID: &orderID, DueDate: &due}
	require.NoError(t, s.CreateInvoice(ctx, inv))

	orderID = 9999
	due = due.AddDate(1, 0, 0)

	got, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OrderID)
	assert.Equal(t, order.ID, *got.OrderID)
	assert.Equal(t, 2025, got.DueDate.Year())

	*got.OrderID = 4242
	*got.DueDate = time.Time{}

	again, err := s.GetInvoiceByOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, *again.OrderID)
	assert.Equal(t, 2025, again.DueDate.Year())
}
