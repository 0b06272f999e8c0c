// Package memory is an in-process implementation of the persistence
// collaborator. A transaction works on a copy of the state that replaces the
// live state only when the transaction function succeeds, so a failed
// operation leaves nothing behind. Transactions are fully serialized.
package memory

import (
	"context"
	"sync"
	"time"

	"syzygy-tms/internal/core"
)

type state struct {
	clients   map[int]core.Client
	orders    map[int]core.Order
	trips     map[int]core.Trip
	invoices  map[int]core.Invoice
	items     map[int]core.InvoiceItem
	sequences map[int]int
	lastID    int
}

func newState() *state {
	return &state{
		clients:   map[int]core.Client{},
		orders:    map[int]core.Order{},
		trips:     map[int]core.Trip{},
		invoices:  map[int]core.Invoice{},
		items:     map[int]core.InvoiceItem{},
		sequences: map[int]int{},
	}
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// copyPtr returns a fresh pointer to a copy of *p, or nil.
func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// The detach helpers give a stored or returned record its own pointer
// fields, so neither side can reach into the other's values.

func detachOrder(o core.Order) core.Order {
	o.ClientID = copyPtr(o.ClientID)
	o.PickupAt = copyPtr(o.PickupAt)
	o.DeliveryAt = copyPtr(o.DeliveryAt)
	return o
}

func detachTrip(t core.Trip) core.Trip {
	t.PickupAt = copyPtr(t.PickupAt)
	t.DeliveryAt = copyPtr(t.DeliveryAt)
	return t
}

func detachInvoice(inv core.Invoice) core.Invoice {
	inv.OrderID = copyPtr(inv.OrderID)
	inv.TripID = copyPtr(inv.TripID)
	inv.ClientID = copyPtr(inv.ClientID)
	inv.DueDate = copyPtr(inv.DueDate)
	inv.DeliveryDate = copyPtr(inv.DeliveryDate)
	inv.Items = nil
	return inv
}

func (st *state) clone() *state {
	return &state{
		clients:   cloneMap(st.clients),
		orders:    cloneMap(st.orders),
		trips:     cloneMap(st.trips),
		invoices:  cloneMap(st.invoices),
		items:     cloneMap(st.items),
		sequences: cloneMap(st.sequences),
		lastID:    st.lastID,
	}
}

func (st *state) nextID() int {
	st.lastID++
	return st.lastID
}

// Store implements core.Store.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

var _ core.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock sets the source of created/updated timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func New(opts ...Option) *Store {
	s := &Store{st: newState(), now: time.Now}
	for _, o := range opts {
		o(s)
	}
	return s
}

// InTx runs fn against a private copy of the state and publishes it on success.
func (s *Store) InTx(ctx context.Context, fn func(q core.Queries) error) error {
	_, err := write(s, func(q *queries) (struct{}, error) {
		return struct{}{}, fn(q)
	})
	return err
}

func write[T any](s *Store, fn func(q *queries) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.st.clone()
	v, err := fn(&queries{st: next, now: s.now})
	if err != nil {
		var zero T
		return zero, err
	}
	s.st = next
	return v, nil
}

func read[T any](s *Store, fn func(q *queries) (T, error)) (T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&queries{st: s.st, now: s.now})
}

// ── core.Queries on the live state ───────────────────────────────────────────

func (s *Store) LastInvoiceNumber(ctx context.Context, prefix string) (string, bool, error) {
	type res struct {
		n  string
		ok bool
	}
	r, err := read(s, func(q *queries) (res, error) {
		n, ok, err := q.LastInvoiceNumber(ctx, prefix)
		return res{n, ok}, err
	})
	return r.n, r.ok, err
}

func (s *Store) BumpInvoiceSequence(ctx context.Context, year, floor int) (int, error) {
	return write(s, func(q *queries) (int, error) { return q.BumpInvoiceSequence(ctx, year, floor) })
}

func (s *Store) CreateClient(ctx context.Context, c *core.Client) error {
	return s.InTx(ctx, func(q core.Queries) error { return q.CreateClient(ctx, c) })
}

func (s *Store) GetClient(ctx context.Context, id int) (*core.Client, error) {
	return read(s, func(q *queries) (*core.Client, error) { return q.GetClient(ctx, id) })
}

func (s *Store) CreateOrder(ctx context.Context, o *core.Order) error {
	return s.InTx(ctx, func(q core.Queries) error { return q.CreateOrder(ctx, o) })
}

func (s *Store) GetOrder(ctx context.Context, id int) (*core.Order, error) {
	return read(s, func(q *queries) (*core.Order, error) { return q.GetOrder(ctx, id) })
}

func (s *Store) GetOrderByRef(ctx context.Context, ref string) (*core.Order, error) {
	return read(s, func(q *queries) (*core.Order, error) { return q.GetOrderByRef(ctx, ref) })
}

func (s *Store) LockOrder(ctx context.Context, id int) (*core.Order, error) {
	return s.GetOrder(ctx, id)
}

func (s *Store) ListOrders(ctx context.Context, status *core.OrderStatus) ([]core.Order, error) {
	return read(s, func(q *queries) ([]core.Order, error) { return q.ListOrders(ctx, status) })
}

func (s *Store) ListReadyToInvoice(ctx context.Context, limit int) ([]core.Order, error) {
	return read(s, func(q *queries) ([]core.Order, error) { return q.ListReadyToInvoice(ctx, limit) })
}

func (s *Store) UpdateOrder(ctx context.Context, o *core.Order) error {
	return s.InTx(ctx, func(q core.Queries) error { return q.UpdateOrder(ctx, o) })
}

func (s *Store) CreateTrip(ctx context.Context, t *core.Trip) error {
	return s.InTx(ctx, func(q core.Queries) error { return q.CreateTrip(ctx, t) })
}

func (s *Store) GetTrip(ctx context.Context, id int) (*core.Trip, error) {
	return read(s, func(q *queries) (*core.Trip, error) { return q.GetTrip(ctx, id) })
}

func (s *Store) GetTripByOrder(ctx context.Context, orderID int) (*core.Trip, error) {
	return read(s, func(q *queries) (*core.Trip, error) { return q.GetTripByOrder(ctx, orderID) })
}

func (s *Store) UpdateTrip(ctx context.Context, t *core.Trip) error {
	return s.InTx(ctx, func(q core.Queries) error { return q.UpdateTrip(ctx, t) })
}

func (s *Store) DeleteTrip(ctx context.Context, id int) error {
	return s.InTx(ctx, func(q core.Queries) error { return q.DeleteTrip(ctx, id) })
}

func (s *Store) CreateInvoice(ctx context.Context, inv *core.Invoice) error {
	return s.InTx(ctx, func(q core.Queries) error { return q.CreateInvoice(ctx, inv) })
}

func (s *Store) GetInvoice(ctx context.Context, id int) (*core.Invoice, error) {
	return read(s, func(q *queries) (*core.Invoice, error) { return q.GetInvoice(ctx, id) })
}

func (s *Store) LockInvoice(ctx context.Context, id int) (*core.Invoice, error) {
	return s.GetInvoice(ctx, id)
}

func (s *Store) GetInvoiceByOrder(ctx context.Context, orderID int) (*core.Invoice, error) {
	return read(s, func(q *queries) (*core.Invoice, error) { return q.GetInvoiceByOrder(ctx, orderID) })
}

func (s *Store) ListInvoices(ctx context.Context) ([]core.Invoice, error) {
	return read(s, func(q *queries) ([]core.Invoice, error) { return q.ListInvoices(ctx) })
}

func (s *Store) UpdateInvoice(ctx context.Context, inv *core.Invoice) error {
	return s.InTx(ctx, func(q core.Queries) error { return q.UpdateInvoice(ctx, inv) })
}

func (s *Store) UpdateInvoiceItem(ctx context.Context, item *core.InvoiceItem) error {
	return s.InTx(ctx, func(q core.Queries) error { return q.UpdateInvoiceItem(ctx, item) })
}

func (s *Store) ReplaceInvoiceItems(ctx context.Context, invoiceID int, items []core.InvoiceItem) error {
	return s.InTx(ctx, func(q core.Queries) error { return q.ReplaceInvoiceItems(ctx, invoiceID, items) })
}
