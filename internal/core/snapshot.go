package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"syzygy-tms/internal/money"
)

// Snapshot is the read-only view of a finalized invoice handed to a renderer.
type Snapshot struct {
	Number       string          `json:"number"`
	Status       InvoiceStatus   `json:"status"`
	Language     Language        `json:"language"`
	Currency     string          `json:"currency"`
	IssueDate    time.Time       `json:"issue_date"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
	DeliveryDate *time.Time      `json:"delivery_date,omitempty"`
	Seller       Party           `json:"seller"`
	Buyer        Party           `json:"buyer"`
	OrderRef     string          `json:"order_ref,omitempty"`
	Route        string          `json:"route,omitempty"`
	Items        []InvoiceItem   `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	VATAmount    decimal.Decimal `json:"vat_amount"`
	Total        decimal.Decimal `json:"total"`
	Note         string          `json:"note,omitempty"`
}

// NewSnapshot copies inv (and its order, when known) into a Snapshot.
func NewSnapshot(inv *Invoice, order *Order) Snapshot {
	s := Snapshot{
		Number:       inv.Number,
		Status:       inv.Status,
		Language:     inv.Language,
		Currency:     inv.Currency,
		IssueDate:    inv.IssueDate,
		DueDate:      inv.DueDate,
		DeliveryDate: inv.DeliveryDate,
		Seller:       inv.Seller,
		Buyer:        inv.Buyer,
		Items:        append([]InvoiceItem(nil), inv.Items...),
		Subtotal:     inv.Subtotal,
		VATAmount:    inv.VATAmount,
		Total:        inv.Total,
		Note:         inv.Note,
	}
	if order != nil {
		s.OrderRef = order.Ref
		if order.PickupAddress != "" && order.DeliveryAddress != "" {
			s.Route = order.PickupAddress + " → " + order.DeliveryAddress
		}
	}
	return s
}

// ErrInconsistentTotals is returned by Verify. It is an internal error: the
// persisted totals disagree with their lines.
var ErrInconsistentTotals = errors.New("invoice totals are inconsistent")

// Verify checks that every line and the totals are the ones the calculator
// would produce from the stored quantities, prices and rates.
func (s Snapshot) Verify() error {
	if len(s.Items) == 0 {
		return fmt.Errorf("invoice %s has no lines: %w", s.Number, ErrInconsistentTotals)
	}
	net, vat := decimal.Zero, decimal.Zero
	for _, it := range s.Items {
		if want := money.Round2(it.Quantity.Mul(it.UnitPrice)); !want.Equal(it.LineTotal) {
			return fmt.Errorf("invoice %s line %d total %s != qty × unit price %s: %w", s.Number, it.Position, it.LineTotal, want, ErrInconsistentTotals)
		}
		if want := money.Percent(it.LineTotal, it.VATRate); !want.Equal(it.VATAmount) {
			return fmt.Errorf("invoice %s line %d vat %s != %s at %s%%: %w", s.Number, it.Position, it.VATAmount, want, it.VATRate, ErrInconsistentTotals)
		}
		net = net.Add(it.LineTotal)
		vat = vat.Add(it.VATAmount)
	}
	switch {
	case !money.Round2(net).Equal(s.Subtotal):
		return fmt.Errorf("invoice %s subtotal %s != Σ lines %s: %w", s.Number, s.Subtotal, net, ErrInconsistentTotals)
	case !money.Round2(vat).Equal(s.VATAmount):
		return fmt.Errorf("invoice %s vat %s != Σ line vat %s: %w", s.Number, s.VATAmount, vat, ErrInconsistentTotals)
	case !money.Round2(s.Subtotal.Add(s.VATAmount)).Equal(s.Total):
		return fmt.Errorf("invoice %s total %s != subtotal + vat: %w", s.Number, s.Total, ErrInconsistentTotals)
	}
	return nil
}

// Renderer turns a verified snapshot into a document. It must not alter
// amounts.
type Renderer interface {
	Render(ctx context.Context, s Snapshot, w io.Writer) error
}

// LoadSnapshot reads an invoice with its order and verifies the totals.
func LoadSnapshot(ctx context.Context, q Queries, invoiceID int) (Snapshot, error) {
	inv, err := q.GetInvoice(ctx, invoiceID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("invoice %d: %w", invoiceID, err)
	}
	var order *Order
	if inv.OrderID != nil {
		order, err = q.GetOrder(ctx, *inv.OrderID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return Snapshot{}, fmt.Errorf("failed to load order %d: %w", *inv.OrderID, err)
		}
	}
	snap := NewSnapshot(inv, order)
	if err := snap.Verify(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
