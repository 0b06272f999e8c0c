package app

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"syzygy-tms/internal/core"
	"syzygy-tms/internal/money"
)

// CreateClientRequest is the input for registering a client.
type CreateClientRequest struct {
	Name    string `json:"name"`
	Street  string `json:"street"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
	VATID   string `json:"vat_id"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
}

// CreateOrderRequest is the input for creating an order. Dates are free text
// and are dropped when they cannot be read; Price is kept as entered.
type CreateOrderRequest struct {
	Ref             string `json:"ref"`
	ClientID        *int   `json:"client_id"`
	ClientName      string `json:"client_name"`
	PickupAddress   string `json:"pickup_address"`
	PickupAt        string `json:"pickup_at"`
	DeliveryAddress string `json:"delivery_address"`
	DeliveryAt      string `json:"delivery_at"`
	Price           string `json:"price"`
	Vehicle         string `json:"vehicle"`
	Driver          string `json:"driver"`
	Notes           string `json:"notes"`
}

// UpdateOrderRequest patches an order. Absent keys are left alone, null clears.
type UpdateOrderRequest struct {
	Ref             core.Update[string] `json:"ref"`
	ClientID        core.Update[int]    `json:"client_id"`
	ClientName      core.Update[string] `json:"client_name"`
	PickupAddress   core.Update[string] `json:"pickup_address"`
	PickupAt        core.Update[string] `json:"pickup_at"`
	DeliveryAddress core.Update[string] `json:"delivery_address"`
	DeliveryAt      core.Update[string] `json:"delivery_at"`
	Price           core.Update[string] `json:"price"`
	Vehicle         core.Update[string] `json:"vehicle"`
	Driver          core.Update[string] `json:"driver"`
	Notes           core.Update[string] `json:"notes"`
}

func (r UpdateOrderRequest) patch() core.OrderPatch {
	return core.OrderPatch{
		Ref:             r.Ref,
		ClientID:        r.ClientID,
		ClientName:      r.ClientName,
		PickupAddress:   r.PickupAddress,
		PickupAt:        dateUpdate(r.PickupAt),
		DeliveryAddress: r.DeliveryAddress,
		DeliveryAt:      dateUpdate(r.DeliveryAt),
		Price:           r.Price,
		Vehicle:         r.Vehicle,
		Driver:          r.Driver,
		Notes:           r.Notes,
	}
}

// ScheduleTripRequest is the input for scheduling an order's trip.
type ScheduleTripRequest struct {
	OrderRef   string `json:"order"`
	Status     string `json:"status"`
	Driver     string `json:"driver"`
	Vehicle    string `json:"vehicle"`
	PickupAt   string `json:"pickup_at"`
	DeliveryAt string `json:"delivery_at"`
	Notes      string `json:"notes"`
}

// LineRequest is one manual invoice line. Amounts are free text.
type LineRequest struct {
	Description string `json:"description"`
	Quantity    string `json:"qty"`
	UnitPrice   string `json:"unit_price"`
	VATRate     string `json:"vat_rate"`
}

var one = decimal.NewFromInt(1)

func (l LineRequest) input() core.LineInput {
	qty := money.ParseAmount(l.Quantity)
	if strings.TrimSpace(l.Quantity) == "" {
		qty = one
	}
	return core.LineInput{
		Description: l.Description,
		Quantity:    qty,
		UnitPrice:   money.ParseAmount(l.UnitPrice),
		VATRate:     money.ParseRate(l.VATRate),
	}
}

// ManualInvoiceRequest is the input for a manual invoice. Either Items or the
// Description/NetAmount/VATRate shorthand may be given; neither yields a
// placeholder line.
type ManualInvoiceRequest struct {
	ClientID     *int          `json:"client_id"`
	BuyerName    string        `json:"buyer_name"`
	BuyerAddress string        `json:"buyer_address"`
	BuyerVAT     string        `json:"buyer_vat"`
	Currency     string        `json:"currency"`
	Language     string        `json:"language"`
	Note         string        `json:"note"`
	Items        []LineRequest `json:"items"`
	Description  string        `json:"description"`
	NetAmount    string        `json:"net_amount"`
	VATRate      string        `json:"vat_rate"`
}

func (r ManualInvoiceRequest) lines() []core.LineInput {
	if len(r.Items) == 0 && strings.TrimSpace(r.NetAmount) != "" {
		return []core.LineInput{LineRequest{
			Description: r.Description,
			UnitPrice:   r.NetAmount,
			VATRate:     r.VATRate,
		}.input()}
	}
	out := make([]core.LineInput, len(r.Items))
	for i, l := range r.Items {
		out[i] = l.input()
	}
	return out
}

// PricingRequest replaces a manual invoice's pricing with a single line.
type PricingRequest struct {
	Description string `json:"description"`
	NetAmount   string `json:"net_amount"`
	VATRate     string `json:"vat_rate"`
}

// UpdateInvoiceRequest patches invoice header fields.
type UpdateInvoiceRequest struct {
	Number       core.Update[string] `json:"number"`
	IssueDate    core.Update[string] `json:"issue_date"`
	DeliveryDate core.Update[string] `json:"delivery_date"`
	DueDate      core.Update[string] `json:"due_date"`
	Note         core.Update[string] `json:"note"`
	Language     core.Update[string] `json:"language"`
	BuyerName    core.Update[string] `json:"buyer_name"`
	BuyerAddress core.Update[string] `json:"buyer_address"`
	BuyerVAT     core.Update[string] `json:"buyer_vat"`
	Status       string              `json:"status"`
}

func (r UpdateInvoiceRequest) hasDetails() bool {
	for _, u := range []core.Update[string]{
		r.Number, r.IssueDate, r.DeliveryDate, r.DueDate, r.Note,
		r.Language, r.BuyerName, r.BuyerAddress, r.BuyerVAT,
	} {
		if !u.IsUnchanged() {
			return true
		}
	}
	return false
}

func (r UpdateInvoiceRequest) patch() (core.InvoicePatch, error) {
	p := core.InvoicePatch{
		Number:       r.Number,
		IssueDate:    dateUpdate(r.IssueDate),
		DeliveryDate: dateUpdate(r.DeliveryDate),
		DueDate:      dateUpdate(r.DueDate),
		Note:         r.Note,
		BuyerName:    r.BuyerName,
		BuyerAddress: r.BuyerAddress,
		BuyerVAT:     r.BuyerVAT,
	}
	if v, ok := r.Language.Value(); ok {
		lang, err := core.ParseLanguage(v)
		if err != nil {
			return core.InvoicePatch{}, err
		}
		p.Language = core.Set(lang)
	}
	return p, nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"02.01.2006",
}

// parseDate reads the date formats the UI and CLI produce. ok is false for
// anything else.
func parseDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func optionalDate(raw string) *time.Time {
	if t, ok := parseDate(raw); ok {
		return &t
	}
	return nil
}

// dateUpdate converts a textual update. An empty string clears the date and
// unreadable text leaves it unchanged.
func dateUpdate(u core.Update[string]) core.Update[time.Time] {
	switch {
	case u.IsClear():
		return core.Clear[time.Time]()
	case u.IsSet():
		v, _ := u.Value()
		if strings.TrimSpace(v) == "" {
			return core.Clear[time.Time]()
		}
		if t, ok := parseDate(v); ok {
			return core.Set(t)
		}
	}
	return core.Unchanged[time.Time]()
}
