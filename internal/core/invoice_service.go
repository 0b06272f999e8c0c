package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"syzygy-tms/internal/money"
)

// InvoiceOutcome tells a caller of CreateFromOrder whether a new invoice was
// written or an existing one returned.
type InvoiceOutcome string

const (
	OutcomeCreated         InvoiceOutcome = "CREATED"
	OutcomeAlreadyInvoiced InvoiceOutcome = "ALREADY_INVOICED"
)

type InvoiceResult struct {
	Invoice *Invoice       `json:"invoice"`
	Outcome InvoiceOutcome `json:"outcome"`
}

// ManualInvoiceInput describes a standalone invoice. Empty buyer fields are
// taken from ClientID when set, else printed as "—". No items means a single
// placeholder line.
type ManualInvoiceInput struct {
	ClientID *int
	Buyer    Party
	Currency string
	Language Language
	Items    []LineInput
	Note     string
}

// ManualPricing is the single-line price of a manual invoice.
type ManualPricing struct {
	Description string
	NetAmount   decimal.Decimal
	VATRate     decimal.Decimal
}

// InvoicePatch edits invoice header fields. Buyer fields are only editable on
// manual invoices; order-derived invoices keep the snapshot taken at creation.
type InvoicePatch struct {
	Number       Update[string]
	IssueDate    Update[time.Time]
	DeliveryDate Update[time.Time]
	DueDate      Update[time.Time]
	Note         Update[string]
	Language     Update[Language]
	BuyerName    Update[string]
	BuyerAddress Update[string]
	BuyerVAT     Update[string]
}

// InvoiceService is the single transactional boundary that turns an order or
// a manual request into a numbered, totalled invoice.
type InvoiceService interface {
	// CreateFromOrder invoices an order once. A repeated call returns the
	// existing invoice with OutcomeAlreadyInvoiced.
	CreateFromOrder(ctx context.Context, orderID int) (*InvoiceResult, error)
	CreateManual(ctx context.Context, in ManualInvoiceInput) (*Invoice, error)
	// UpdateManualPricing replaces the pricing of a manual invoice with one line.
	UpdateManualPricing(ctx context.Context, invoiceID int, p ManualPricing) (*Invoice, error)
	UpdateInvoiceDetails(ctx context.Context, invoiceID int, patch InvoicePatch) (*Invoice, error)
	SetInvoiceStatus(ctx context.Context, invoiceID int, status InvoiceStatus) (*Invoice, error)

	GetInvoice(ctx context.Context, invoiceID int) (*Invoice, error)
	ListInvoices(ctx context.Context) ([]Invoice, error)
}

type invoiceService struct {
	store Store
	cfg   InvoicingConfig
	log   zerolog.Logger
}

func NewInvoiceService(store Store, cfg InvoicingConfig, log zerolog.Logger) InvoiceService {
	return &invoiceService{store: store, cfg: cfg, log: log}
}

// inNumberedTx runs fn in a transaction and re-runs it when the insert lost
// an invoice number race.
func (s *invoiceService) inNumberedTx(ctx context.Context, op string, fn func(q Queries) error) error {
	attempts := s.cfg.attempts()
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = s.store.InTx(ctx, fn)
		if !errors.Is(err, ErrConflict) {
			return err
		}
		s.log.Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("invoice number taken, retrying")
	}
	return err
}

// ── Creation ─────────────────────────────────────────────────────────────────

func (s *invoiceService) CreateFromOrder(ctx context.Context, orderID int) (*InvoiceResult, error) {
	var res *InvoiceResult
	err := s.inNumberedTx(ctx, "create_from_order", func(q Queries) error {
		r, err := s.createFromOrderTx(ctx, q, orderID)
		if err != nil {
			return err
		}
		res = r
		return nil
	})
	if errors.Is(err, ErrAlreadyInvoiced) {
		// A concurrent request committed its invoice first.
		existing, gerr := s.store.GetInvoiceByOrder(ctx, orderID)
		if gerr != nil {
			return nil, fmt.Errorf("failed to load invoice for order %d: %w", orderID, gerr)
		}
		return &InvoiceResult{Invoice: existing, Outcome: OutcomeAlreadyInvoiced}, nil
	}
	if err != nil {
		return nil, err
	}

	if res.Outcome == OutcomeCreated {
		s.log.Info().
			Int("invoice_id", res.Invoice.ID).
			Str("number", res.Invoice.Number).
			Int("order_id", orderID).
			Str("total", money.String(res.Invoice.Total)).
			Msg("invoice created from order, order locked")
	}
	return res, nil
}

func (s *invoiceService) createFromOrderTx(ctx context.Context, q Queries, orderID int) (*InvoiceResult, error) {
	order, err := q.LockOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, err)
	}

	existing, err := q.GetInvoiceByOrder(ctx, orderID)
	switch {
	case err == nil:
		return &InvoiceResult{Invoice: existing, Outcome: OutcomeAlreadyInvoiced}, nil
	case !errors.Is(err, ErrNotFound):
		return nil, fmt.Errorf("failed to check invoice for order %d: %w", orderID, err)
	}

	if order.Status == OrderStatusCancelled {
		return nil, fmt.Errorf("order %d is cancelled and cannot be invoiced: %w", orderID, ErrForbidden)
	}

	client, err := s.optionalClient(ctx, q, order.ClientID)
	if err != nil {
		return nil, err
	}
	trip, err := q.GetTripByOrder(ctx, orderID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("failed to load trip for order %d: %w", orderID, err)
		}
		trip = nil
	}

	issued := s.cfg.now()
	inv := s.newInvoice(issued)
	inv.Status = InvoiceStatusIssued
	inv.OrderID = &order.ID
	inv.Buyer = buyerFromOrder(order, client)
	if client != nil {
		inv.ClientID = &client.ID
	}
	switch {
	case trip != nil && trip.DeliveryAt != nil:
		inv.DeliveryDate = trip.DeliveryAt
	case order.DeliveryAt != nil:
		inv.DeliveryDate = order.DeliveryAt
	}
	if trip != nil {
		inv.TripID = &trip.ID
	}

	CalcFromItems([]LineInput{{
		Description: TransportDescription(order),
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   money.ParseAmount(order.Price),
		VATRate:     s.cfg.OrderVATRate,
	}}).ApplyTo(inv)

	if err := s.numberAndInsert(ctx, q, inv); err != nil {
		return nil, err
	}

	order.Status = OrderStatusInvoiced
	if err := q.UpdateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}
	return &InvoiceResult{Invoice: inv, Outcome: OutcomeCreated}, nil
}

func (s *invoiceService) CreateManual(ctx context.Context, in ManualInvoiceInput) (*Invoice, error) {
	var out *Invoice
	err := s.inNumberedTx(ctx, "create_manual", func(q Queries) error {
		client, err := s.optionalClient(ctx, q, in.ClientID)
		if err != nil {
			return err
		}
		if in.ClientID != nil && client == nil {
			return fmt.Errorf("client %d: %w", *in.ClientID, ErrNotFound)
		}

		inv := s.newInvoice(s.cfg.now())
		inv.Status = InvoiceStatusDraft
		inv.Buyer = manualBuyer(in.Buyer, client)
		if client != nil {
			inv.ClientID = &client.ID
		}
		if in.Currency != "" {
			inv.Currency = strings.ToUpper(in.Currency)
		}
		if in.Language != "" {
			inv.Language = in.Language
		}
		inv.Note = in.Note
		CalcFromItems(in.Items).ApplyTo(inv)

		if err := s.numberAndInsert(ctx, q, inv); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("invoice_id", out.ID).Str("number", out.Number).Msg("manual invoice created")
	return out, nil
}

func (s *invoiceService) newInvoice(issued time.Time) *Invoice {
	inv := &Invoice{
		Currency:  s.cfg.Currency,
		Language:  s.cfg.Language,
		IssueDate: issued,
		Seller:    s.cfg.Seller,
	}
	if s.cfg.DueDays > 0 {
		due := issued.AddDate(0, 0, s.cfg.DueDays)
		inv.DueDate = &due
	}
	return inv
}

func (s *invoiceService) numberAndInsert(ctx context.Context, q Queries, inv *Invoice) error {
	number, err := NextInvoiceNumber(ctx, q, inv.IssueDate.Year())
	if err != nil {
		return err
	}
	inv.Number = number
	if err := q.CreateInvoice(ctx, inv); err != nil {
		return fmt.Errorf("failed to insert invoice %s: %w", number, err)
	}
	return nil
}

func (s *invoiceService) optionalClient(ctx context.Context, q Queries, clientID *int) (*Client, error) {
	if clientID == nil {
		return nil, nil
	}
	c, err := q.GetClient(ctx, *clientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load client %d: %w", *clientID, err)
	}
	return c, nil
}

// TransportDescription is the line text of an order-derived invoice.
func TransportDescription(o *Order) string {
	ref := o.Ref
	if ref == "" {
		ref = strconv.Itoa(o.ID)
	}
	if o.PickupAddress != "" && o.DeliveryAddress != "" {
		return fmt.Sprintf("Transport service (%s: %s → %s)", ref, o.PickupAddress, o.DeliveryAddress)
	}
	return fmt.Sprintf("Transport service (%s)", ref)
}

func buyerFromOrder(o *Order, c *Client) Party {
	b := Party{Name: EmptyField, Address: EmptyField}
	switch {
	case c != nil && c.Name != "":
		b.Name = c.Name
	case o.ClientName != "":
		b.Name = o.ClientName
	}
	if c != nil {
		b.Address = FormatClientAddress(c)
		b.VAT = c.VATID
	}
	return b
}

func manualBuyer(given Party, c *Client) Party {
	b := given
	if c != nil {
		if b.Name == "" {
			b.Name = c.Name
		}
		if b.Address == "" {
			b.Address = FormatClientAddress(c)
		}
		if b.VAT == "" {
			b.VAT = c.VATID
		}
	}
	if strings.TrimSpace(b.Name) == "" {
		b.Name = EmptyField
	}
	if strings.TrimSpace(b.Address) == "" {
		b.Address = EmptyField
	}
	return b
}

// ── Maintenance ──────────────────────────────────────────────────────────────

func (s *invoiceService) UpdateManualPricing(ctx context.Context, invoiceID int, p ManualPricing) (*Invoice, error) {
	err := s.store.InTx(ctx, func(q Queries) error {
		inv, err := q.LockInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("invoice %d: %w", invoiceID, err)
		}
		if !inv.IsManual() {
			return fmt.Errorf("invoice %d is derived from order %d, pricing is fixed: %w", invoiceID, *inv.OrderID, ErrForbidden)
		}
		if inv.Status == InvoiceStatusPaid {
			return fmt.Errorf("invoice %d is paid: %w", invoiceID, ErrForbidden)
		}

		t := CalcFromManual(p.Description, p.NetAmount, p.VATRate)
		line := t.Lines[0]

		if len(inv.Items) == 1 {
			item := inv.Items[0]
			item.Description = line.Description
			item.Quantity = line.Quantity
			item.UnitPrice = line.UnitPrice
			item.LineTotal = line.LineTotal
			item.VATRate = line.VATRate
			item.VATAmount = line.VATAmount
			if err := q.UpdateInvoiceItem(ctx, &item); err != nil {
				return fmt.Errorf("failed to update line of invoice %d: %w", invoiceID, err)
			}
		} else {
			line.InvoiceID = invoiceID
			if err := q.ReplaceInvoiceItems(ctx, invoiceID, []InvoiceItem{line}); err != nil {
				return fmt.Errorf("failed to replace lines of invoice %d: %w", invoiceID, err)
			}
		}

		inv.Subtotal = t.Subtotal
		inv.VATAmount = t.VATAmount
		inv.Total = t.Total
		if err := q.UpdateInvoice(ctx, inv); err != nil {
			return fmt.Errorf("failed to update totals of invoice %d: %w", invoiceID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Int("invoice_id", invoiceID).Str("net", money.String(p.NetAmount)).Msg("manual pricing updated")
	return s.GetInvoice(ctx, invoiceID)
}

func (s *invoiceService) UpdateInvoiceDetails(ctx context.Context, invoiceID int, patch InvoicePatch) (*Invoice, error) {
	if patch.Number.IsClear() {
		return nil, fmt.Errorf("invoice number cannot be cleared: %w", ErrInvalidInput)
	}
	if patch.IssueDate.IsClear() {
		return nil, fmt.Errorf("issue date cannot be cleared: %w", ErrInvalidInput)
	}
	if n, ok := patch.Number.Value(); ok && strings.TrimSpace(n) == "" {
		return nil, fmt.Errorf("invoice number cannot be blank: %w", ErrInvalidInput)
	}

	err := s.store.InTx(ctx, func(q Queries) error {
		inv, err := q.LockInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("invoice %d: %w", invoiceID, err)
		}
		if inv.Status == InvoiceStatusPaid {
			return fmt.Errorf("invoice %d is paid: %w", invoiceID, ErrForbidden)
		}
		buyerEdit := !patch.BuyerName.IsUnchanged() || !patch.BuyerAddress.IsUnchanged() || !patch.BuyerVAT.IsUnchanged()
		if buyerEdit && !inv.IsManual() {
			return fmt.Errorf("invoice %d buyer is a snapshot of order %d: %w", invoiceID, *inv.OrderID, ErrForbidden)
		}

		if n, ok := patch.Number.Value(); ok {
			inv.Number = strings.TrimSpace(n)
		}
		patch.IssueDate.Apply(&inv.IssueDate)
		patch.DeliveryDate.ApplyPtr(&inv.DeliveryDate)
		patch.DueDate.ApplyPtr(&inv.DueDate)
		patch.Note.Apply(&inv.Note)
		patch.Language.Apply(&inv.Language)
		if inv.Language == "" {
			inv.Language = s.cfg.Language
		}
		patch.BuyerName.Apply(&inv.Buyer.Name)
		patch.BuyerAddress.Apply(&inv.Buyer.Address)
		patch.BuyerVAT.Apply(&inv.Buyer.VAT)
		inv.Buyer = manualBuyer(inv.Buyer, nil)

		if err := q.UpdateInvoice(ctx, inv); err != nil {
			return fmt.Errorf("failed to update invoice %d: %w", invoiceID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetInvoice(ctx, invoiceID)
}

func (s *invoiceService) SetInvoiceStatus(ctx context.Context, invoiceID int, status InvoiceStatus) (*Invoice, error) {
	if _, err := ParseInvoiceStatus(string(status)); err != nil {
		return nil, err
	}

	var from InvoiceStatus
	err := s.store.InTx(ctx, func(q Queries) error {
		inv, err := q.LockInvoice(ctx, invoiceID)
		if err != nil {
			return fmt.Errorf("invoice %d: %w", invoiceID, err)
		}
		from = inv.Status
		if from == status {
			return nil
		}
		if from == InvoiceStatusPaid {
			return fmt.Errorf("invoice %d is paid and cannot move to %s: %w", invoiceID, status, ErrForbidden)
		}
		inv.Status = status
		return q.UpdateInvoice(ctx, inv)
	})
	if err != nil {
		return nil, err
	}

	if from != status {
		s.log.Info().Int("invoice_id", invoiceID).Str("from", string(from)).Str("to", string(status)).Msg("invoice status changed")
	}
	return s.GetInvoice(ctx, invoiceID)
}

func (s *invoiceService) GetInvoice(ctx context.Context, invoiceID int) (*Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invoice %d: %w", invoiceID, err)
	}
	return inv, nil
}

func (s *invoiceService) ListInvoices(ctx context.Context) ([]Invoice, error) {
	return s.store.ListInvoices(ctx)
}
