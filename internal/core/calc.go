package core

import (
	"strings"

	"github.com/shopspring/decimal"

	"syzygy-tms/internal/money"
)

// PlaceholderDescription labels the zero-amount line given to an invoice
// that would otherwise have no lines.
const PlaceholderDescription = "Service"

// LineInput is one requested invoice line before rounding.
type LineInput struct {
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	VATRate     decimal.Decimal `json:"vat_rate"`
}

// Stored scales of a line's inputs. Quantity and VAT rate are cut to these
// before any amount is derived from them, so a persisted line always
// reproduces its own amounts.
const (
	QuantityScale = 3
	VATRateScale  = 2
)

// Totals is the calculator output: rounded lines plus invoice-level sums.
type Totals struct {
	Lines     []InvoiceItem
	Subtotal  decimal.Decimal
	VATAmount decimal.Decimal
	Total     decimal.Decimal
}

// CalcFromItems rounds every line to cents before summing:
//
//	qty = round3(qty), unitPrice = round2(unitPrice), vatRate = round2(vatRate)
//	lineNet = round2(qty * unitPrice)
//	lineVat = round2(lineNet * vatRate / 100)
//	subtotal = round2(Σ lineNet), vat = round2(Σ lineVat), total = round2(subtotal + vat)
//
// An empty list yields a single placeholder line with zero amounts.
// Negative quantities, prices and rates are computed as given.
func CalcFromItems(items []LineInput) Totals {
	if len(items) == 0 {
		items = []LineInput{{Description: PlaceholderDescription, Quantity: decimal.NewFromInt(1)}}
	}

	t := Totals{Lines: make([]InvoiceItem, 0, len(items))}
	subtotal, vat := decimal.Zero, decimal.Zero
	for i, in := range items {
		qty := in.Quantity.Round(QuantityScale)
		unit := money.Round2(in.UnitPrice)
		rate := in.VATRate.Round(VATRateScale)
		lineNet := money.Round2(qty.Mul(unit))
		lineVat := money.Percent(lineNet, rate)

		desc := strings.TrimSpace(in.Description)
		if desc == "" {
			desc = PlaceholderDescription
		}

		t.Lines = append(t.Lines, InvoiceItem{
			Position:    i + 1,
			Description: desc,
			Quantity:    qty,
			UnitPrice:   unit,
			LineTotal:   lineNet,
			VATRate:     rate,
			VATAmount:   lineVat,
		})
		subtotal = subtotal.Add(lineNet)
		vat = vat.Add(lineVat)
	}

	t.Subtotal = money.Round2(subtotal)
	t.VATAmount = money.Round2(vat)
	t.Total = money.Round2(t.Subtotal.Add(t.VATAmount))
	return t
}

// CalcFromManual treats a manual net amount as one line with qty 1.
func CalcFromManual(description string, netAmount, vatRatePercent decimal.Decimal) Totals {
	return CalcFromItems([]LineInput{{
		Description: description,
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   netAmount,
		VATRate:     vatRatePercent,
	}})
}

// ApplyTo copies the totals and lines onto inv.
func (t Totals) ApplyTo(inv *Invoice) {
	inv.Subtotal = t.Subtotal
	inv.VATAmount = t.VATAmount
	inv.Total = t.Total
	inv.Items = make([]InvoiceItem, len(t.Lines))
	copy(inv.Items, t.Lines)
	for i := range inv.Items {
		inv.Items[i].InvoiceID = inv.ID
	}
}
