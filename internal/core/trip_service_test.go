package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syzygy-tms/internal/core"
)

func TestTripService_StatusDrivesOrder(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, "ORD-100", "Žilina", "Brno", "420")

	trip, err := f.trips.ScheduleTrip(f.ctx, core.TripInput{OrderID: order.ID, Driver: "J. Novák"})
	require.NoError(t, err)
	assert.Equal(t, core.TripStatusPlanned, trip.Status)

	steps := []struct {
		trip  core.TripStatus
		order core.OrderStatus
	}{
		{core.TripStatusInProgress, core.OrderStatusInTransit},
		{core.TripStatusDone, core.OrderStatusDelivered},
		{core.TripStatusCanceled, core.OrderStatusNew},
		{core.TripStatusPlanned, core.OrderStatusPlanned},
	}
	for _, st := range steps {
		updated, err := f.trips.UpdateTripStatus(f.ctx, trip.ID, st.trip)
		require.NoError(t, err)
		assert.Equal(t, st.trip, updated.Status)

		o, err := f.orders.GetOrder(f.ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, st.order, o.Status, "after trip %s", st.trip)
	}
}

func TestTripService_InvoicedOrderIsLocked(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, "ORD-101", "BTS", "VIE", "100")
	trip, err := f.trips.ScheduleTrip(f.ctx, core.TripInput{OrderID: order.ID, Status: core.TripStatusDone})
	require.NoError(t, err)

	_, err = f.invoices.CreateFromOrder(f.ctx, order.ID)
	require.NoError(t, err)

	updated, err := f.trips.UpdateTripStatus(f.ctx, trip.ID, core.TripStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, core.TripStatusCanceled, updated.Status, "the trip change is still recorded")

	o, err := f.orders.GetOrder(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusInvoiced, o.Status)

	require.NoError(t, f.trips.DeleteTrip(f.ctx, trip.ID))
	o, err = f.orders.GetOrder(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusInvoiced, o.Status)
}

func TestTripService_DeleteResetsOrder(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, "ORD-102", "BTS", "VIE", "100")
	trip, err := f.trips.ScheduleTrip(f.ctx, core.TripInput{OrderID: order.ID, Status: core.TripStatusInProgress})
	require.NoError(t, err)

	o, err := f.orders.GetOrder(f.ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, core.OrderStatusInTransit, o.Status)

	require.NoError(t, f.trips.DeleteTrip(f.ctx, trip.ID))

	o, err = f.orders.GetOrder(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusNew, o.Status)

	_, err = f.trips.GetTrip(f.ctx, trip.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, f.trips.DeleteTrip(f.ctx, trip.ID), core.ErrNotFound)
}

func TestTripService_OneTripPerOrder(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, "ORD-103", "BTS", "VIE", "100")

	first, err := f.trips.ScheduleTrip(f.ctx, core.TripInput{OrderID: order.ID})
	require.NoError(t, err)

	again, err := f.trips.ScheduleTrip(f.ctx, core.TripInput{OrderID: order.ID, Status: core.TripStatusDone})
	assert.ErrorIs(t, err, core.ErrAlreadyExists)
	require.NotNil(t, again)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, core.TripStatusPlanned, again.Status)

	o, err := f.orders.GetOrder(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, core.OrderStatusPlanned, o.Status, "the rejected trip does not touch the order")
}

func TestTripService_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.trips.ScheduleTrip(f.ctx, core.TripInput{OrderID: 12345})
	assert.ErrorIs(t, err, core.ErrNotFound)

	order := f.order(t, "ORD-104", "BTS", "VIE", "100")
	_, err = f.trips.ScheduleTrip(f.ctx, core.TripInput{OrderID: order.ID, Status: "LOADING"})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = f.trips.UpdateTripStatus(f.ctx, 777, core.TripStatusDone)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
