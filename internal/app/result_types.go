package app

import "syzygy-tms/internal/core"

// ClientResult is returned by client operations.
type ClientResult struct {
	Client *core.Client
}

// OrderResult is returned by order lifecycle operations.
type OrderResult struct {
	Order *core.Order
}

// OrderListResult is returned by ListOrders and ListReadyToInvoice.
type OrderListResult struct {
	Orders []core.Order
}

// TripResult is returned by trip operations.
type TripResult struct {
	Trip     *core.Trip
	Existing bool // ScheduleTrip found a trip already attached to the order
}

// InvoiceResult is returned by invoice operations.
type InvoiceResult struct {
	Invoice         *core.Invoice
	AlreadyInvoiced bool
}

// InvoiceListResult is returned by ListInvoices.
type InvoiceListResult struct {
	Invoices []core.Invoice
}
