package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// DefaultReadyLimit caps the ready-to-invoice worklist.
const DefaultReadyLimit = 50

// OrderInput is used when creating a new order.
type OrderInput struct {
	Ref             string
	ClientID        *int
	ClientName      string
	PickupAddress   string
	PickupAt        *time.Time
	DeliveryAddress string
	DeliveryAt      *time.Time
	Price           string
	Vehicle         string
	Driver          string
	Notes           string
}

// OrderPatch edits an order field by field. Once the order is invoiced only
// Vehicle and Driver may change.
type OrderPatch struct {
	Ref             Update[string]    `json:"ref"`
	ClientID        Update[int]       `json:"client_id"`
	ClientName      Update[string]    `json:"client_name"`
	PickupAddress   Update[string]    `json:"pickup_address"`
	PickupAt        Update[time.Time] `json:"pickup_at"`
	DeliveryAddress Update[string]    `json:"delivery_address"`
	DeliveryAt      Update[time.Time] `json:"delivery_at"`
	Price           Update[string]    `json:"price"`
	Vehicle         Update[string]    `json:"vehicle"`
	Driver          Update[string]    `json:"driver"`
	Notes           Update[string]    `json:"notes"`
}

// lockedFields lists the set or cleared fields that an invoiced order refuses.
func (p OrderPatch) lockedFields() []string {
	var out []string
	check := func(name string, unchanged bool) {
		if !unchanged {
			out = append(out, name)
		}
	}
	check("ref", p.Ref.IsUnchanged())
	check("client_id", p.ClientID.IsUnchanged())
	check("client_name", p.ClientName.IsUnchanged())
	check("pickup_address", p.PickupAddress.IsUnchanged())
	check("pickup_at", p.PickupAt.IsUnchanged())
	check("delivery_address", p.DeliveryAddress.IsUnchanged())
	check("delivery_at", p.DeliveryAt.IsUnchanged())
	check("price", p.Price.IsUnchanged())
	check("notes", p.Notes.IsUnchanged())
	return out
}

// OrderService manages clients and orders outside of the trip lifecycle.
type OrderService interface {
	// Master data
	CreateClient(ctx context.Context, c Client) (*Client, error)
	GetClient(ctx context.Context, id int) (*Client, error)

	CreateOrder(ctx context.Context, in OrderInput) (*Order, error)
	UpdateOrder(ctx context.Context, orderID int, patch OrderPatch) (*Order, error)
	// CancelOrder moves a non-terminal order to CANCELLED.
	CancelOrder(ctx context.Context, orderID int) (*Order, error)

	// Queries
	GetOrder(ctx context.Context, orderID int) (*Order, error)
	GetOrderByRef(ctx context.Context, ref string) (*Order, error)
	// ResolveOrder accepts either a numeric id or a reference code.
	ResolveOrder(ctx context.Context, idOrRef string) (*Order, error)
	ListOrders(ctx context.Context, status *OrderStatus) ([]Order, error)
	ListReadyToInvoice(ctx context.Context, limit int) ([]Order, error)
}

type orderService struct {
	store Store
	log   zerolog.Logger
}

func NewOrderService(store Store, log zerolog.Logger) OrderService {
	return &orderService{store: store, log: log}
}

// ── Master Data ──────────────────────────────────────────────────────────────

func (s *orderService) CreateClient(ctx context.Context, c Client) (*Client, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return nil, fmt.Errorf("client name is required: %w", ErrInvalidInput)
	}
	if err := s.store.CreateClient(ctx, &c); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &c, nil
}

func (s *orderService) GetClient(ctx context.Context, id int) (*Client, error) {
	c, err := s.store.GetClient(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("client %d: %w", id, err)
	}
	return c, nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

func (s *orderService) CreateOrder(ctx context.Context, in OrderInput) (*Order, error) {
	o := &Order{
		Ref:             strings.TrimSpace(in.Ref),
		ClientID:        in.ClientID,
		ClientName:      strings.TrimSpace(in.ClientName),
		PickupAddress:   strings.TrimSpace(in.PickupAddress),
		PickupAt:        in.PickupAt,
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		DeliveryAt:      in.DeliveryAt,
		Price:           strings.TrimSpace(in.Price),
		Vehicle:         in.Vehicle,
		Driver:          in.Driver,
		Notes:           in.Notes,
		Status:          OrderStatusNew,
	}
	if err := validateOrder(o); err != nil {
		return nil, err
	}

	err := s.store.InTx(ctx, func(q Queries) error {
		if o.ClientID != nil {
			c, err := q.GetClient(ctx, *o.ClientID)
			if err != nil {
				return fmt.Errorf("client %d: %w", *o.ClientID, err)
			}
			o.ClientName = c.Name
		}
		if err := q.CreateOrder(ctx, o); err != nil {
			return fmt.Errorf("failed to create order %s: %w", o.Ref, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("order_id", o.ID).Str("ref", o.Ref).Msg("order created")
	return o, nil
}

func validateOrder(o *Order) error {
	switch {
	case o.Ref == "":
		return fmt.Errorf("order reference is required: %w", ErrInvalidInput)
	case o.PickupAddress == "":
		return fmt.Errorf("pickup address is required: %w", ErrInvalidInput)
	case o.DeliveryAddress == "":
		return fmt.Errorf("delivery address is required: %w", ErrInvalidInput)
	}
	return nil
}

func (s *orderService) UpdateOrder(ctx context.Context, orderID int, patch OrderPatch) (*Order, error) {
	var out *Order
	err := s.store.InTx(ctx, func(q Queries) error {
		o, err := q.LockOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("order %d: %w", orderID, err)
		}
		if o.Locked() {
			if fields := patch.lockedFields(); len(fields) > 0 {
				return fmt.Errorf("order %d is invoiced, cannot change %s: %w",
					orderID, strings.Join(fields, ", "), ErrForbidden)
			}
		}

		patch.Ref.Apply(&o.Ref)
		patch.ClientName.Apply(&o.ClientName)
		patch.PickupAddress.Apply(&o.PickupAddress)
		patch.PickupAt.ApplyPtr(&o.PickupAt)
		patch.DeliveryAddress.Apply(&o.DeliveryAddress)
		patch.DeliveryAt.ApplyPtr(&o.DeliveryAt)
		patch.Price.Apply(&o.Price)
		patch.Vehicle.Apply(&o.Vehicle)
		patch.Driver.Apply(&o.Driver)
		patch.Notes.Apply(&o.Notes)
		patch.ClientID.ApplyPtr(&o.ClientID)
		o.Ref = strings.TrimSpace(o.Ref)
		o.PickupAddress = strings.TrimSpace(o.PickupAddress)
		o.DeliveryAddress = strings.TrimSpace(o.DeliveryAddress)

		if id, ok := patch.ClientID.Value(); ok {
			c, err := q.GetClient(ctx, id)
			if err != nil {
				return fmt.Errorf("client %d: %w", id, err)
			}
			if patch.ClientName.IsUnchanged() {
				o.ClientName = c.Name
			}
		}
		if err := validateOrder(o); err != nil {
			return err
		}

		if err := q.UpdateOrder(ctx, o); err != nil {
			return fmt.Errorf("failed to update order %d: %w", orderID, err)
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *orderService) CancelOrder(ctx context.Context, orderID int) (*Order, error) {
	var out *Order
	var changed bool
	err := s.store.InTx(ctx, func(q Queries) error {
		o, err := q.LockOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("order %d: %w", orderID, err)
		}
		out = o
		switch o.Status {
		case OrderStatusInvoiced:
			return fmt.Errorf("order %d is invoiced and cannot be cancelled: %w", orderID, ErrForbidden)
		case OrderStatusCancelled:
			return nil
		}
		o.Status = OrderStatusCancelled
		changed = true
		return q.UpdateOrder(ctx, o)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.log.Info().Int("order_id", orderID).Msg("order cancelled")
	}
	return out, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *orderService) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, err)
	}
	return o, nil
}

func (s *orderService) GetOrderByRef(ctx context.Context, ref string) (*Order, error) {
	o, err := s.store.GetOrderByRef(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("order %s: %w", ref, err)
	}
	return o, nil
}

func (s *orderService) ResolveOrder(ctx context.Context, idOrRef string) (*Order, error) {
	idOrRef = strings.TrimSpace(idOrRef)
	if idOrRef == "" {
		return nil, fmt.Errorf("order id or reference is required: %w", ErrInvalidInput)
	}
	if id, err := strconv.Atoi(idOrRef); err == nil {
		o, err := s.GetOrder(ctx, id)
		if !errors.Is(err, ErrNotFound) {
			return o, err
		}
	}
	return s.GetOrderByRef(ctx, idOrRef)
}

func (s *orderService) ListOrders(ctx context.Context, status *OrderStatus) ([]Order, error) {
	return s.store.ListOrders(ctx, status)
}

func (s *orderService) ListReadyToInvoice(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = DefaultReadyLimit
	}
	return s.store.ListReadyToInvoice(ctx, limit)
}
