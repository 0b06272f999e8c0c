package core

import (
	"context"
)

// Queries is the persistence collaborator. Point lookups return ErrNotFound
// for missing rows. Writes report uniqueness violations as:
//
//	invoice number taken       → ErrConflict
//	invoice already for order  → ErrAlreadyInvoiced
//	trip already for order     → ErrAlreadyExists
//	order reference taken      → ErrAlreadyExists
type Queries interface {
	SequenceQueries

	CreateClient(ctx context.Context, c *Client) error
	GetClient(ctx context.Context, id int) (*Client, error)

	CreateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id int) (*Order, error)
	GetOrderByRef(ctx context.Context, ref string) (*Order, error)
	// LockOrder reads the order and holds a row lock until the transaction ends.
	LockOrder(ctx context.Context, id int) (*Order, error)
	ListOrders(ctx context.Context, status *OrderStatus) ([]Order, error)
	// ListReadyToInvoice returns orders that have a trip and no invoice, newest first.
	ListReadyToInvoice(ctx context.Context, limit int) ([]Order, error)
	UpdateOrder(ctx context.Context, o *Order) error

	CreateTrip(ctx context.Context, t *Trip) error
	GetTrip(ctx context.Context, id int) (*Trip, error)
	GetTripByOrder(ctx context.Context, orderID int) (*Trip, error)
	UpdateTrip(ctx context.Context, t *Trip) error
	DeleteTrip(ctx context.Context, id int) error

	// CreateInvoice inserts the header and its items and fills in their ids.
	CreateInvoice(ctx context.Context, inv *Invoice) error
	GetInvoice(ctx context.Context, id int) (*Invoice, error)
	LockInvoice(ctx context.Context, id int) (*Invoice, error)
	GetInvoiceByOrder(ctx context.Context, orderID int) (*Invoice, error)
	ListInvoices(ctx context.Context) ([]Invoice, error)
	// UpdateInvoice writes every header field including totals.
	UpdateInvoice(ctx context.Context, inv *Invoice) error
	UpdateInvoiceItem(ctx context.Context, item *InvoiceItem) error
	ReplaceInvoiceItems(ctx context.Context, invoiceID int, items []InvoiceItem) error
}

// Store runs Queries either directly or inside one all-or-nothing transaction.
// fn's Queries must not be used after fn returns.
type Store interface {
	Queries
	InTx(ctx context.Context, fn func(q Queries) error) error
}
