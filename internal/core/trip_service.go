package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// TripInput schedules a trip against an order. An empty Status means PLANNED.
type TripInput struct {
	OrderID    int
	Status     TripStatus
	Driver     string
	Vehicle    string
	PickupAt   *time.Time
	DeliveryAt *time.Time
	Notes      string
}

// TripService records trips and keeps the linked order's status in step
// with the trip through the lifecycle table.
type TripService interface {
	// ScheduleTrip creates the order's only trip. If one exists it is returned
	// together with an ErrAlreadyExists error.
	ScheduleTrip(ctx context.Context, in TripInput) (*Trip, error)
	UpdateTripStatus(ctx context.Context, tripID int, status TripStatus) (*Trip, error)
	DeleteTrip(ctx context.Context, tripID int) error
	GetTrip(ctx context.Context, tripID int) (*Trip, error)
}

type tripService struct {
	store Store
	log   zerolog.Logger
}

func NewTripService(store Store, log zerolog.Logger) TripService {
	return &tripService{store: store, log: log}
}

func (s *tripService) ScheduleTrip(ctx context.Context, in TripInput) (*Trip, error) {
	status := in.Status
	if status == "" {
		status = TripStatusPlanned
	}
	if _, err := OrderStatusForTrip(status); err != nil {
		return nil, err
	}

	var trip, existing *Trip
	var order *Order
	var changed bool
	err := s.store.InTx(ctx, func(q Queries) error {
		o, err := q.LockOrder(ctx, in.OrderID)
		if err != nil {
			return fmt.Errorf("order %d: %w", in.OrderID, err)
		}
		order = o

		prior, err := q.GetTripByOrder(ctx, in.OrderID)
		switch {
		case err == nil:
			existing = prior
			return fmt.Errorf("order %d already has trip %d: %w", in.OrderID, prior.ID, ErrAlreadyExists)
		case !errors.Is(err, ErrNotFound):
			return fmt.Errorf("failed to check trip for order %d: %w", in.OrderID, err)
		}

		t := &Trip{
			OrderID:    in.OrderID,
			Status:     status,
			Driver:     in.Driver,
			Vehicle:    in.Vehicle,
			PickupAt:   in.PickupAt,
			DeliveryAt: in.DeliveryAt,
			Notes:      in.Notes,
		}
		if err := q.CreateTrip(ctx, t); err != nil {
			return fmt.Errorf("failed to create trip for order %d: %w", in.OrderID, err)
		}
		trip = t

		changed, err = s.propagate(ctx, q, o, status)
		return err
	})
	if errors.Is(err, ErrAlreadyExists) {
		if existing == nil {
			// Lost the insert race; the winner's trip is committed now.
			existing, _ = s.store.GetTripByOrder(ctx, in.OrderID)
		}
		return existing, err
	}
	if err != nil {
		return nil, err
	}

	s.logPropagation(trip, order, changed)
	return trip, nil
}

func (s *tripService) UpdateTripStatus(ctx context.Context, tripID int, status TripStatus) (*Trip, error) {
	if _, err := OrderStatusForTrip(status); err != nil {
		return nil, err
	}

	var trip *Trip
	var order *Order
	var changed bool
	err := s.store.InTx(ctx, func(q Queries) error {
		t, err := q.GetTrip(ctx, tripID)
		if err != nil {
			return fmt.Errorf("trip %d: %w", tripID, err)
		}
		o, err := q.LockOrder(ctx, t.OrderID)
		if err != nil {
			return fmt.Errorf("order %d of trip %d: %w", t.OrderID, tripID, err)
		}
		order = o

		t.Status = status
		if err := q.UpdateTrip(ctx, t); err != nil {
			return fmt.Errorf("failed to update trip %d: %w", tripID, err)
		}
		trip = t

		changed, err = s.propagate(ctx, q, o, status)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logPropagation(trip, order, changed)
	return trip, nil
}

func (s *tripService) DeleteTrip(ctx context.Context, tripID int) error {
	var orderID int
	var changed bool
	err := s.store.InTx(ctx, func(q Queries) error {
		t, err := q.GetTrip(ctx, tripID)
		if err != nil {
			return fmt.Errorf("trip %d: %w", tripID, err)
		}
		orderID = t.OrderID
		o, err := q.LockOrder(ctx, t.OrderID)
		if err != nil {
			return fmt.Errorf("order %d of trip %d: %w", t.OrderID, tripID, err)
		}

		if err := q.DeleteTrip(ctx, tripID); err != nil {
			return fmt.Errorf("failed to delete trip %d: %w", tripID, err)
		}

		changed, err = OnTripDeleted(o)
		if err != nil || !changed {
			return err
		}
		return q.UpdateOrder(ctx, o)
	})
	if err != nil {
		return err
	}

	s.log.Info().Int("trip_id", tripID).Int("order_id", orderID).Bool("order_reset", changed).Msg("trip deleted")
	return nil
}

func (s *tripService) GetTrip(ctx context.Context, tripID int) (*Trip, error) {
	t, err := s.store.GetTrip(ctx, tripID)
	if err != nil {
		return nil, fmt.Errorf("trip %d: %w", tripID, err)
	}
	return t, nil
}

func (s *tripService) propagate(ctx context.Context, q Queries, o *Order, status TripStatus) (bool, error) {
	changed, err := ApplyTripStatus(o, status)
	if err != nil || !changed {
		return false, err
	}
	if err := q.UpdateOrder(ctx, o); err != nil {
		return false, fmt.Errorf("failed to update order %d status: %w", o.ID, err)
	}
	return true, nil
}

func (s *tripService) logPropagation(t *Trip, o *Order, changed bool) {
	ev := s.log.Info().Int("trip_id", t.ID).Str("trip_status", string(t.Status)).Int("order_id", o.ID)
	switch {
	case changed:
		ev.Str("order_status", string(o.Status)).Msg("trip status propagated to order")
	case o.Locked():
		ev.Msg("order is invoiced, trip status not propagated")
	default:
		ev.Msg("trip status recorded")
	}
}
