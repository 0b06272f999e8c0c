package core

import (
	"fmt"
)

// orderStatusByTripStatus is the fixed projection of a trip's status onto its
// order. A canceled trip returns the order to NEW, not CANCELLED.
var orderStatusByTripStatus = map[TripStatus]OrderStatus{
	TripStatusPlanned:    OrderStatusPlanned,
	TripStatusInProgress: OrderStatusInTransit,
	TripStatusDone:       OrderStatusDelivered,
	TripStatusCanceled:   OrderStatusNew,
}

// OrderStatusForTrip returns the order status mapped from a trip status.
func OrderStatusForTrip(ts TripStatus) (OrderStatus, error) {
	st, ok := orderStatusByTripStatus[ts]
	if !ok {
		return "", fmt.Errorf("unknown trip status %q: %w", ts, ErrInvalidInput)
	}
	return st, nil
}

// ApplyTripStatus projects ts onto order. A locked order is left alone and
// changed is false; the trip's own status is still recorded by the caller.
func ApplyTripStatus(order *Order, ts TripStatus) (changed bool, err error) {
	if order == nil {
		return false, fmt.Errorf("order for trip: %w", ErrNotFound)
	}
	next, err := OrderStatusForTrip(ts)
	if err != nil {
		return false, err
	}
	if order.Locked() || order.Status == next {
		return false, nil
	}
	order.Status = next
	return true, nil
}

// OnTripDeleted reverts an unlocked order to NEW.
func OnTripDeleted(order *Order) (changed bool, err error) {
	if order == nil {
		return false, fmt.Errorf("order for trip: %w", ErrNotFound)
	}
	if order.Locked() || order.Status == OrderStatusNew {
		return false, nil
	}
	order.Status = OrderStatusNew
	return true, nil
}
