package app

import (
	"context"

	"syzygy-tms/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
//
// Order references accept either a numeric id or the order's reference code.
type ApplicationService interface {
	// CreateClient registers a buyer master record.
	CreateClient(ctx context.Context, req CreateClientRequest) (*ClientResult, error)

	// GetClient returns a client by id.
	GetClient(ctx context.Context, id int) (*ClientResult, error)

	// ListOrders returns orders, optionally filtered by status (empty means all).
	ListOrders(ctx context.Context, status string) (*OrderListResult, error)

	// ListReadyToInvoice returns delivered orders without an invoice, oldest update last.
	// A non-positive limit uses core.DefaultReadyLimit.
	ListReadyToInvoice(ctx context.Context, limit int) (*OrderListResult, error)

	// GetOrder returns a single order by id or reference.
	GetOrder(ctx context.Context, ref string) (*OrderResult, error)

	// CreateOrder creates a NEW order.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error)

	// UpdateOrder applies a field-by-field patch. Invoiced orders only accept
	// vehicle and driver changes.
	UpdateOrder(ctx context.Context, ref string, req UpdateOrderRequest) (*OrderResult, error)

	// CancelOrder moves an order to CANCELLED.
	CancelOrder(ctx context.Context, ref string) (*OrderResult, error)

	// ScheduleTrip creates the order's trip. An existing trip is returned with
	// Existing set and no error.
	ScheduleTrip(ctx context.Context, req ScheduleTripRequest) (*TripResult, error)

	// UpdateTripStatus records a trip status and propagates it to the order.
	UpdateTripStatus(ctx context.Context, tripID int, status string) (*TripResult, error)

	// DeleteTrip removes a trip and resets a non-invoiced order to NEW.
	DeleteTrip(ctx context.Context, tripID int) error

	// InvoiceOrder creates the order's invoice, or returns the existing one
	// with AlreadyInvoiced set.
	InvoiceOrder(ctx context.Context, ref string) (*InvoiceResult, error)

	// CreateManualInvoice creates a DRAFT invoice not tied to an order.
	CreateManualInvoice(ctx context.Context, req ManualInvoiceRequest) (*InvoiceResult, error)

	// UpdateInvoicePricing replaces the pricing of a manual invoice.
	UpdateInvoicePricing(ctx context.Context, id int, req PricingRequest) (*InvoiceResult, error)

	// UpdateInvoice edits the invoice header (number, dates, note, language, buyer).
	UpdateInvoice(ctx context.Context, id int, req UpdateInvoiceRequest) (*InvoiceResult, error)

	// SetInvoiceStatus changes an invoice status. PAID is final.
	SetInvoiceStatus(ctx context.Context, id int, status string) (*InvoiceResult, error)

	// GetInvoice returns one invoice with its lines.
	GetInvoice(ctx context.Context, id int) (*InvoiceResult, error)

	// ListInvoices returns invoice headers, most recently created first.
	ListInvoices(ctx context.Context) (*InvoiceListResult, error)

	// GetInvoiceSnapshot returns the verified read-only view used for rendering.
	GetInvoiceSnapshot(ctx context.Context, id int) (*core.Snapshot, error)
}
