package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"syzygy-tms/internal/core"
	"syzygy-tms/internal/money"
)

type appService struct {
	store          core.Store
	orderService   core.OrderService
	tripService    core.TripService
	invoiceService core.InvoiceService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	store core.Store,
	orderService core.OrderService,
	tripService core.TripService,
	invoiceService core.InvoiceService,
) ApplicationService {
	return &appService{
		store:          store,
		orderService:   orderService,
		tripService:    tripService,
		invoiceService: invoiceService,
	}
}

// CreateClient registers a buyer master record.
func (s *appService) CreateClient(ctx context.Context, req CreateClientRequest) (*ClientResult, error) {
	c, err := s.orderService.CreateClient(ctx, core.Client{
		Name:    req.Name,
		Street:  req.Street,
		City:    req.City,
		Zip:     req.Zip,
		Country: req.Country,
		VATID:   req.VATID,
		Email:   req.Email,
		Phone:   req.Phone,
	})
	if err != nil {
		return nil, err
	}
	return &ClientResult{Client: c}, nil
}

// GetClient returns a client by id.
func (s *appService) GetClient(ctx context.Context, id int) (*ClientResult, error) {
	c, err := s.orderService.GetClient(ctx, id)
	if err != nil {
		return nil, err
	}
	return &ClientResult{Client: c}, nil
}

// ListOrders returns orders, optionally filtered by status.
func (s *appService) ListOrders(ctx context.Context, status string) (*OrderListResult, error) {
	var filter *core.OrderStatus
	if strings.TrimSpace(status) != "" {
		st, err := core.ParseOrderStatus(status)
		if err != nil {
			return nil, err
		}
		filter = &st
	}
	orders, err := s.orderService.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders}, nil
}

// ListReadyToInvoice returns the invoicing worklist.
func (s *appService) ListReadyToInvoice(ctx context.Context, limit int) (*OrderListResult, error) {
	if limit <= 0 {
		limit = core.DefaultReadyLimit
	}
	orders, err := s.orderService.ListReadyToInvoice(ctx, limit)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders}, nil
}

// GetOrder returns a single order by id or reference.
func (s *appService) GetOrder(ctx context.Context, ref string) (*OrderResult, error) {
	o, err := s.orderService.ResolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: o}, nil
}

// CreateOrder creates a NEW order.
func (s *appService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResult, error) {
	o, err := s.orderService.CreateOrder(ctx, core.OrderInput{
		Ref:             req.Ref,
		ClientID:        req.ClientID,
		ClientName:      req.ClientName,
		PickupAddress:   req.PickupAddress,
		PickupAt:        optionalDate(req.PickupAt),
		DeliveryAddress: req.DeliveryAddress,
		DeliveryAt:      optionalDate(req.DeliveryAt),
		Price:           req.Price,
		Vehicle:         req.Vehicle,
		Driver:          req.Driver,
		Notes:           req.Notes,
	})
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: o}, nil
}

// UpdateOrder applies a field-by-field patch.
func (s *appService) UpdateOrder(ctx context.Context, ref string, req UpdateOrderRequest) (*OrderResult, error) {
	o, err := s.orderService.ResolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	o, err = s.orderService.UpdateOrder(ctx, o.ID, req.patch())
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: o}, nil
}

// CancelOrder moves an order to CANCELLED.
func (s *appService) CancelOrder(ctx context.Context, ref string) (*OrderResult, error) {
	o, err := s.orderService.ResolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	o, err = s.orderService.CancelOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: o}, nil
}

// ScheduleTrip creates the order's trip.
func (s *appService) ScheduleTrip(ctx context.Context, req ScheduleTripRequest) (*TripResult, error) {
	o, err := s.orderService.ResolveOrder(ctx, req.OrderRef)
	if err != nil {
		return nil, err
	}

	in := core.TripInput{
		OrderID:    o.ID,
		Driver:     req.Driver,
		Vehicle:    req.Vehicle,
		PickupAt:   optionalDate(req.PickupAt),
		DeliveryAt: optionalDate(req.DeliveryAt),
		Notes:      req.Notes,
	}
	if strings.TrimSpace(req.Status) != "" {
		if in.Status, err = core.ParseTripStatus(req.Status); err != nil {
			return nil, err
		}
	}

	t, err := s.tripService.ScheduleTrip(ctx, in)
	if errors.Is(err, core.ErrAlreadyExists) && t != nil {
		return &TripResult{Trip: t, Existing: true}, nil
	}
	if err != nil {
		return nil, err
	}
	return &TripResult{Trip: t}, nil
}

// UpdateTripStatus records a trip status and propagates it to the order.
func (s *appService) UpdateTripStatus(ctx context.Context, tripID int, status string) (*TripResult, error) {
	st, err := core.ParseTripStatus(status)
	if err != nil {
		return nil, err
	}
	t, err := s.tripService.UpdateTripStatus(ctx, tripID, st)
	if err != nil {
		return nil, err
	}
	return &TripResult{Trip: t}, nil
}

// DeleteTrip removes a trip.
func (s *appService) DeleteTrip(ctx context.Context, tripID int) error {
	return s.tripService.DeleteTrip(ctx, tripID)
}

// InvoiceOrder creates the order's invoice or returns the existing one.
func (s *appService) InvoiceOrder(ctx context.Context, ref string) (*InvoiceResult, error) {
	o, err := s.orderService.ResolveOrder(ctx, ref)
	if err != nil {
		return nil, err
	}
	res, err := s.invoiceService.CreateFromOrder(ctx, o.ID)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{
		Invoice:         res.Invoice,
		AlreadyInvoiced: res.Outcome == core.OutcomeAlreadyInvoiced,
	}, nil
}

// CreateManualInvoice creates a DRAFT invoice not tied to an order.
func (s *appService) CreateManualInvoice(ctx context.Context, req ManualInvoiceRequest) (*InvoiceResult, error) {
	in := core.ManualInvoiceInput{
		ClientID: req.ClientID,
		Buyer: core.Party{
			Name:    req.BuyerName,
			Address: req.BuyerAddress,
			VAT:     req.BuyerVAT,
		},
		Currency: req.Currency,
		Note:     req.Note,
		Items:    req.lines(),
	}
	if strings.TrimSpace(req.Language) != "" {
		lang, err := core.ParseLanguage(req.Language)
		if err != nil {
			return nil, err
		}
		in.Language = lang
	}

	inv, err := s.invoiceService.CreateManual(ctx, in)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: inv}, nil
}

// UpdateInvoicePricing replaces the pricing of a manual invoice.
func (s *appService) UpdateInvoicePricing(ctx context.Context, id int, req PricingRequest) (*InvoiceResult, error) {
	inv, err := s.invoiceService.UpdateManualPricing(ctx, id, core.ManualPricing{
		Description: req.Description,
		NetAmount:   money.ParseAmount(req.NetAmount),
		VATRate:     money.ParseRate(req.VATRate),
	})
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: inv}, nil
}

// UpdateInvoice edits the invoice header and, when Status is given, its status.
func (s *appService) UpdateInvoice(ctx context.Context, id int, req UpdateInvoiceRequest) (*InvoiceResult, error) {
	patch, err := req.patch()
	if err != nil {
		return nil, err
	}
	var status core.InvoiceStatus
	if strings.TrimSpace(req.Status) != "" {
		if status, err = core.ParseInvoiceStatus(req.Status); err != nil {
			return nil, err
		}
	}

	var inv *core.Invoice
	if req.hasDetails() {
		inv, err = s.invoiceService.UpdateInvoiceDetails(ctx, id, patch)
	} else {
		inv, err = s.invoiceService.GetInvoice(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	if status != "" && status != inv.Status {
		if inv, err = s.invoiceService.SetInvoiceStatus(ctx, id, status); err != nil {
			return nil, err
		}
	}
	return &InvoiceResult{Invoice: inv}, nil
}

// SetInvoiceStatus changes an invoice status.
func (s *appService) SetInvoiceStatus(ctx context.Context, id int, status string) (*InvoiceResult, error) {
	st, err := core.ParseInvoiceStatus(status)
	if err != nil {
		return nil, err
	}
	inv, err := s.invoiceService.SetInvoiceStatus(ctx, id, st)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: inv}, nil
}

// GetInvoice returns one invoice with its lines.
func (s *appService) GetInvoice(ctx context.Context, id int) (*InvoiceResult, error) {
	inv, err := s.invoiceService.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}
	return &InvoiceResult{Invoice: inv}, nil
}

// ListInvoices returns invoice headers.
func (s *appService) ListInvoices(ctx context.Context) (*InvoiceListResult, error) {
	invoices, err := s.invoiceService.ListInvoices(ctx)
	if err != nil {
		return nil, err
	}
	return &InvoiceListResult{Invoices: invoices}, nil
}

// GetInvoiceSnapshot returns the verified read-only view used for rendering.
func (s *appService) GetInvoiceSnapshot(ctx context.Context, id int) (*core.Snapshot, error) {
	snap, err := core.LoadSnapshot(ctx, s.store, id)
	if err != nil {
		return nil, fmt.Errorf("failed to build snapshot: %w", err)
	}
	return &snap, nil
}
