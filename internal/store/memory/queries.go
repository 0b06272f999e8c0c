package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"syzygy-tms/internal/core"
)

// queries operates on one state without locking; Store owns the lock.
type queries struct {
	st  *state
	now func() time.Time
}

var _ core.Queries = (*queries)(nil)

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, core.ErrNotFound)
}

// ── Sequence ─────────────────────────────────────────────────────────────────

func (q *queries) LastInvoiceNumber(_ context.Context, prefix string) (string, bool, error) {
	best, found := "", false
	for _, inv := range q.st.invoices {
		if !strings.HasPrefix(inv.Number, prefix) {
			continue
		}
		if !found || len(inv.Number) > len(best) || (len(inv.Number) == len(best) && inv.Number > best) {
			best, found = inv.Number, true
		}
	}
	return best, found, nil
}

func (q *queries) BumpInvoiceSequence(_ context.Context, year, floor int) (int, error) {
	next := max(q.st.sequences[year], floor) + 1
	q.st.sequences[year] = next
	return next, nil
}

// ── Clients ──────────────────────────────────────────────────────────────────

func (q *queries) CreateClient(_ context.Context, c *core.Client) error {
	c.ID = q.st.nextID()
	c.CreatedAt = q.now()
	q.st.clients[c.ID] = *c
	return nil
}

func (q *queries) GetClient(_ context.Context, id int) (*core.Client, error) {
	c, ok := q.st.clients[id]
	if !ok {
		return nil, notFound("client", id)
	}
	return &c, nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

func (q *queries) refTaken(ref string, exceptID int) bool {
	for id, o := range q.st.orders {
		if id != exceptID && o.Ref == ref {
			return true
		}
	}
	return false
}

func (q *queries) CreateOrder(_ context.Context, o *core.Order) error {
	if q.refTaken(o.Ref, 0) {
		return fmt.Errorf("order reference %s: %w", o.Ref, core.ErrAlreadyExists)
	}
	if o.ClientID != nil {
		if _, ok := q.st.clients[*o.ClientID]; !ok {
			return notFound("client", *o.ClientID)
		}
	}
	o.ID = q.st.nextID()
	o.CreatedAt = q.now()
	o.UpdatedAt = o.CreatedAt
	q.st.orders[o.ID] = detachOrder(*o)
	return nil
}

func (q *queries) GetOrder(_ context.Context, id int) (*core.Order, error) {
	o, ok := q.st.orders[id]
	if !ok {
		return nil, notFound("order", id)
	}
	o = detachOrder(o)
	return &o, nil
}

func (q *queries) GetOrderByRef(_ context.Context, ref string) (*core.Order, error) {
	for _, o := range q.st.orders {
		if o.Ref == ref {
			o = detachOrder(o)
			return &o, nil
		}
	}
	return nil, notFound("order", ref)
}

func (q *queries) LockOrder(ctx context.Context, id int) (*core.Order, error) {
	return q.GetOrder(ctx, id)
}

func (q *queries) ListOrders(_ context.Context, status *core.OrderStatus) ([]core.Order, error) {
	var out []core.Order
	for _, o := range q.st.orders {
		if status == nil || o.Status == *status {
			out = append(out, detachOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (q *queries) ListReadyToInvoice(_ context.Context, limit int) ([]core.Order, error) {
	withTrip := map[int]bool{}
	for _, t := range q.st.trips {
		withTrip[t.OrderID] = true
	}
	invoiced := map[int]bool{}
	for _, inv := range q.st.invoices {
		if inv.OrderID != nil {
			invoiced[*inv.OrderID] = true
		}
	}

	var out []core.Order
	for _, o := range q.st.orders {
		if withTrip[o.ID] && !invoiced[o.ID] {
			out = append(out, detachOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (q *queries) UpdateOrder(_ context.Context, o *core.Order) error {
	if _, ok := q.st.orders[o.ID]; !ok {
		return notFound("order", o.ID)
	}
	if q.refTaken(o.Ref, o.ID) {
		return fmt.Errorf("order reference %s: %w", o.Ref, core.ErrAlreadyExists)
	}
	o.UpdatedAt = q.now()
	q.st.orders[o.ID] = detachOrder(*o)
	return nil
}

// ── Trips ────────────────────────────────────────────────────────────────────

func (q *queries) CreateTrip(_ context.Context, t *core.Trip) error {
	if _, ok := q.st.orders[t.OrderID]; !ok {
		return notFound("order", t.OrderID)
	}
	for _, other := range q.st.trips {
		if other.OrderID == t.OrderID {
			return fmt.Errorf("trip for order %d: %w", t.OrderID, core.ErrAlreadyExists)
		}
	}
	t.ID = q.st.nextID()
	t.CreatedAt = q.now()
	t.UpdatedAt = t.CreatedAt
	q.st.trips[t.ID] = detachTrip(*t)
	return nil
}

func (q *queries) GetTrip(_ context.Context, id int) (*core.Trip, error) {
	t, ok := q.st.trips[id]
	if !ok {
		return nil, notFound("trip", id)
	}
	t = detachTrip(t)
	return &t, nil
}

func (q *queries) GetTripByOrder(_ context.Context, orderID int) (*core.Trip, error) {
	for _, t := range q.st.trips {
		if t.OrderID == orderID {
			t = detachTrip(t)
			return &t, nil
		}
	}
	return nil, fmt.Errorf("trip for order %d: %w", orderID, core.ErrNotFound)
}

func (q *queries) UpdateTrip(_ context.Context, t *core.Trip) error {
	if _, ok := q.st.trips[t.ID]; !ok {
		return notFound("trip", t.ID)
	}
	t.UpdatedAt = q.now()
	q.st.trips[t.ID] = detachTrip(*t)
	return nil
}

func (q *queries) DeleteTrip(_ context.Context, id int) error {
	if _, ok := q.st.trips[id]; !ok {
		return notFound("trip", id)
	}
	delete(q.st.trips, id)
	return nil
}

// ── Invoices ─────────────────────────────────────────────────────────────────

func (q *queries) checkInvoiceUnique(inv *core.Invoice) error {
	for id, other := range q.st.invoices {
		if id == inv.ID {
			continue
		}
		if other.Number == inv.Number {
			return fmt.Errorf("invoice number %s: %w", inv.Number, core.ErrConflict)
		}
		if inv.OrderID != nil && other.OrderID != nil && *other.OrderID == *inv.OrderID {
			return fmt.Errorf("invoice for order %d: %w", *inv.OrderID, core.ErrAlreadyInvoiced)
		}
	}
	return nil
}

func (q *queries) CreateInvoice(_ context.Context, inv *core.Invoice) error {
	inv.ID = 0
	if err := q.checkInvoiceUnique(inv); err != nil {
		return err
	}
	inv.ID = q.st.nextID()
	inv.CreatedAt = q.now()
	inv.UpdatedAt = inv.CreatedAt

	q.st.invoices[inv.ID] = detachInvoice(*inv)

	for i := range inv.Items {
		q.insertItem(inv.ID, &inv.Items[i])
	}
	return nil
}

func (q *queries) insertItem(invoiceID int, it *core.InvoiceItem) {
	it.ID = q.st.nextID()
	it.InvoiceID = invoiceID
	q.st.items[it.ID] = *it
}

func (q *queries) loadItems(invoiceID int) []core.InvoiceItem {
	var out []core.InvoiceItem
	for _, it := range q.st.items {
		if it.InvoiceID == invoiceID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (q *queries) GetInvoice(_ context.Context, id int) (*core.Invoice, error) {
	inv, ok := q.st.invoices[id]
	if !ok {
		return nil, notFound("invoice", id)
	}
	inv = detachInvoice(inv)
	inv.Items = q.loadItems(id)
	return &inv, nil
}

func (q *queries) LockInvoice(ctx context.Context, id int) (*core.Invoice, error) {
	return q.GetInvoice(ctx, id)
}

func (q *queries) GetInvoiceByOrder(ctx context.Context, orderID int) (*core.Invoice, error) {
	for id, inv := range q.st.invoices {
		if inv.OrderID != nil && *inv.OrderID == orderID {
			return q.GetInvoice(ctx, id)
		}
	}
	return nil, fmt.Errorf("invoice for order %d: %w", orderID, core.ErrNotFound)
}

func (q *queries) ListInvoices(_ context.Context) ([]core.Invoice, error) {
	out := make([]core.Invoice, 0, len(q.st.invoices))
	for id, inv := range q.st.invoices {
		inv = detachInvoice(inv)
		inv.Items = q.loadItems(id)
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (q *queries) UpdateInvoice(_ context.Context, inv *core.Invoice) error {
	if _, ok := q.st.invoices[inv.ID]; !ok {
		return notFound("invoice", inv.ID)
	}
	if err := q.checkInvoiceUnique(inv); err != nil {
		return err
	}
	inv.UpdatedAt = q.now()
	q.st.invoices[inv.ID] = detachInvoice(*inv)
	return nil
}

func (q *queries) UpdateInvoiceItem(_ context.Context, item *core.InvoiceItem) error {
	cur, ok := q.st.items[item.ID]
	if !ok {
		return notFound("invoice item", item.ID)
	}
	item.InvoiceID = cur.InvoiceID
	q.st.items[item.ID] = *item
	return nil
}

func (q *queries) ReplaceInvoiceItems(_ context.Context, invoiceID int, items []core.InvoiceItem) error {
	if _, ok := q.st.invoices[invoiceID]; !ok {
		return notFound("invoice", invoiceID)
	}
	for id, it := range q.st.items {
		if it.InvoiceID == invoiceID {
			delete(q.st.items, id)
		}
	}
	for i := range items {
		q.insertItem(invoiceID, &items[i])
	}
	return nil
}
