package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus progresses through the lifecycle:
//
//	NEW → PLANNED → IN_TRANSIT → DELIVERED → INVOICED
//	any non-terminal status → CANCELLED
//
// INVOICED is terminal; an invoiced order is locked.
type OrderStatus string

const (
	OrderStatusNew       OrderStatus = "NEW"
	OrderStatusPlanned   OrderStatus = "PLANNED"
	OrderStatusInTransit OrderStatus = "IN_TRANSIT"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusInvoiced  OrderStatus = "INVOICED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// ParseOrderStatus accepts a status name in any letter case.
func ParseOrderStatus(s string) (OrderStatus, error) {
	st := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case OrderStatusNew, OrderStatusPlanned, OrderStatusInTransit,
		OrderStatusDelivered, OrderStatusInvoiced, OrderStatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown order status %q: %w", s, ErrInvalidInput)
}

type TripStatus string

const (
	TripStatusPlanned    TripStatus = "PLANNED"
	TripStatusInProgress TripStatus = "IN_PROGRESS"
	TripStatusDone       TripStatus = "DONE"
	TripStatusCanceled   TripStatus = "CANCELED"
)

func ParseTripStatus(s string) (TripStatus, error) {
	st := TripStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case TripStatusPlanned, TripStatusInProgress, TripStatusDone, TripStatusCanceled:
		return st, nil
	}
	return "", fmt.Errorf("unknown trip status %q: %w", s, ErrInvalidInput)
}

type InvoiceStatus string

const (
	InvoiceStatusDraft    InvoiceStatus = "DRAFT"
	InvoiceStatusSent     InvoiceStatus = "SENT"
	InvoiceStatusIssued   InvoiceStatus = "ISSUED"
	InvoiceStatusPaid     InvoiceStatus = "PAID"
	InvoiceStatusCanceled InvoiceStatus = "CANCELED"
)

func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	st := InvoiceStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusIssued, InvoiceStatusPaid, InvoiceStatusCanceled:
		return st, nil
	}
	return "", fmt.Errorf("unknown invoice status %q: %w", s, ErrInvalidInput)
}

// Language selects the wording of a rendered invoice.
type Language string

const (
	LanguageSK Language = "SK"
	LanguageEN Language = "EN"
)

func ParseLanguage(s string) (Language, error) {
	l := Language(strings.ToUpper(strings.TrimSpace(s)))
	switch l {
	case LanguageSK, LanguageEN:
		return l, nil
	}
	return "", fmt.Errorf("unknown language %q: %w", s, ErrInvalidInput)
}

// Client is the buyer master record.
type Client struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Street    string    `json:"street"`
	City      string    `json:"city"`
	Zip       string    `json:"zip"`
	Country   string    `json:"country"`
	VATID     string    `json:"vat_id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// FormatClientAddress joins the non-blank street, zip, city and country with
// ", ".
// A client without any address renders as "—".
func FormatClientAddress(c *Client) string {
	if c == nil {
		return EmptyField
	}
	var parts []string
	for _, p := range []string{c.Street, c.Zip, c.City, c.Country} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return EmptyField
	}
	return strings.Join(parts, ", ")
}

// EmptyField is printed in place of a missing buyer name or address.
const EmptyField = "—"

// Order is a transport order. Price is free text as entered by dispatch and
// is only read as a number when the order is invoiced.
type Order struct {
	ID              int         `json:"id"`
	Ref             string      `json:"ref"`
	ClientID        *int        `json:"client_id,omitempty"`
	ClientName      string      `json:"client_name"`
	PickupAddress   string      `json:"pickup_address"`
	PickupAt        *time.Time  `json:"pickup_at,omitempty"`
	DeliveryAddress string      `json:"delivery_address"`
	DeliveryAt      *time.Time  `json:"delivery_at,omitempty"`
	Price           string      `json:"price"`
	Vehicle         string      `json:"vehicle"`
	Driver          string      `json:"driver"`
	Notes           string      `json:"notes"`
	Status          OrderStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Locked reports whether the order has been invoiced.
func (o *Order) Locked() bool { return o.Status == OrderStatusInvoiced }

// Trip executes exactly one order.
type Trip struct {
	ID         int        `json:"id"`
	OrderID    int        `json:"order_id"`
	Status     TripStatus `json:"status"`
	Driver     string     `json:"driver"`
	Vehicle    string     `json:"vehicle"`
	PickupAt   *time.Time `json:"pickup_at,omitempty"`
	DeliveryAt *time.Time `json:"delivery_at,omitempty"`
	Notes      string     `json:"notes"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Party is a seller or buyer snapshot copied onto an invoice at creation.
type Party struct {
	Name    string `json:"name" yaml:"name"`
	Address string `json:"address" yaml:"address"`
	VAT     string `json:"vat,omitempty" yaml:"vat"`
	ICO     string `json:"ico,omitempty" yaml:"ico"`
	DIC     string `json:"dic,omitempty" yaml:"dic"`
}

// Invoice header. Subtotal, VATAmount and Total are derived from Items and
// are never edited directly.
type Invoice struct {
	ID           int             `json:"id"`
	Number       string          `json:"number"`
	OrderID      *int            `json:"order_id,omitempty"`
	TripID       *int            `json:"trip_id,omitempty"`
	ClientID     *int            `json:"client_id,omitempty"`
	Currency     string          `json:"currency"`
	Language     Language        `json:"language"`
	Status       InvoiceStatus   `json:"status"`
	IssueDate    time.Time       `json:"issue_date"`
	DueDate      *time.Time      `json:"due_date,omitempty"`
	DeliveryDate *time.Time      `json:"delivery_date,omitempty"`
	Seller       Party           `json:"seller"`
	Buyer        Party           `json:"buyer"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	VATAmount    decimal.Decimal `json:"vat_amount"`
	Total        decimal.Decimal `json:"total"`
	Note         string          `json:"note"`
	Items        []InvoiceItem   `json:"items"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// IsManual reports whether the invoice was created without an order.
func (inv *Invoice) IsManual() bool { return inv.OrderID == nil }

type InvoiceItem struct {
	ID          int             `json:"id"`
	InvoiceID   int             `json:"invoice_id"`
	Position    int             `json:"position"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	VATRate     decimal.Decimal `json:"vat_rate"`
	VATAmount   decimal.Decimal `json:"vat_amount"`
}
