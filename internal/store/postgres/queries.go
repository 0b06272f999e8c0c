package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"syzygy-tms/internal/core"
)

type queries struct {
	db querier
}

var _ core.Queries = (*queries)(nil)

// ── Sequence ─────────────────────────────────────────────────────────────────

func (q *queries) LastInvoiceNumber(ctx context.Context, prefix string) (string, bool, error) {
	var number string
	err := q.db.QueryRow(ctx, `
		SELECT number
		FROM invoices
		WHERE starts_with(number, $1)
		ORDER BY length(number) DESC, number DESC
		LIMIT 1
	`, prefix).Scan(&number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read last invoice number: %w", err)
	}
	return number, true, nil
}

// BumpInvoiceSequence increments the year's counter row, creating it on first
// use. The upsert holds the row lock until the transaction ends, so concurrent
// creators are numbered one after another.
func (q *queries) BumpInvoiceSequence(ctx context.Context, year, floor int) (int, error) {
	var next int
	err := q.db.QueryRow(ctx, `
		INSERT INTO invoice_sequences (year, last_number)
		VALUES ($1, $2 + 1)
		ON CONFLICT (year)
		DO UPDATE SET last_number = GREATEST(invoice_sequences.last_number + 1, EXCLUDED.last_number)
		RETURNING last_number
	`, year, floor).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("failed to bump invoice sequence: %w", mapError(err))
	}
	return next, nil
}

// ── Clients ──────────────────────────────────────────────────────────────────

const clientColumns = `id, name, street, city, zip, country, vat_id, email, phone, created_at`

func scanClient(row pgx.Row) (*core.Client, error) {
	var c core.Client
	err := row.Scan(&c.ID, &c.Name, &c.Street, &c.City, &c.Zip, &c.Country, &c.VATID, &c.Email, &c.Phone, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (q *queries) CreateClient(ctx context.Context, c *core.Client) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO clients (name, street, city, zip, country, vat_id, email, phone)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, c.Name, c.Street, c.City, c.Zip, c.Country, c.VATID, c.Email, c.Phone).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert client: %w", mapError(err))
	}
	return nil
}

func (q *queries) GetClient(ctx context.Context, id int) (*core.Client, error) {
	c, err := scanClient(q.db.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("client", id, err)
	}
	return c, nil
}

// ── Orders ───────────────────────────────────────────────────────────────────

const orderColumns = `o.id, o.ref, o.client_id, o.client_name, o.pickup_address, o.pickup_at,
	o.delivery_address, o.delivery_at, o.price, o.vehicle, o.driver, o.notes, o.status,
	o.created_at, o.updated_at`

func scanOrder(row pgx.Row) (*core.Order, error) {
	var o core.Order
	err := row.Scan(&o.ID, &o.Ref, &o.ClientID, &o.ClientName, &o.PickupAddress, &o.PickupAt,
		&o.DeliveryAddress, &o.DeliveryAt, &o.Price, &o.Vehicle, &o.Driver, &o.Notes, &o.Status,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func collectOrders(rows pgx.Rows) ([]core.Order, error) {
	defer rows.Close()
	var out []core.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (q *queries) CreateOrder(ctx context.Context, o *core.Order) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO orders (ref, client_id, client_name, pickup_address, pickup_at, delivery_address,
		                    delivery_at, price, vehicle, driver, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`, o.Ref, o.ClientID, o.ClientName, o.PickupAddress, o.PickupAt, o.DeliveryAddress,
		o.DeliveryAt, o.Price, o.Vehicle, o.Driver, o.Notes, string(o.Status),
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", mapError(err))
	}
	return nil
}

func (q *queries) GetOrder(ctx context.Context, id int) (*core.Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1`, id))
	if err != nil {
		return nil, notFound("order", id, err)
	}
	return o, nil
}

func (q *queries) GetOrderByRef(ctx context.Context, ref string) (*core.Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.ref = $1`, ref))
	if err != nil {
		return nil, notFound("order", ref, err)
	}
	return o, nil
}

func (q *queries) LockOrder(ctx context.Context, id int) (*core.Order, error) {
	o, err := scanOrder(q.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders o WHERE o.id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, notFound("order", id, err)
	}
	return o, nil
}

func (q *queries) ListOrders(ctx context.Context, status *core.OrderStatus) ([]core.Order, error) {
	var filter *string
	if status != nil {
		s := string(*status)
		filter = &s
	}
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		WHERE ($1::text IS NULL OR o.status = $1)
		ORDER BY o.created_at DESC, o.id DESC
	`, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	return collectOrders(rows)
}

func (q *queries) ListReadyToInvoice(ctx context.Context, limit int) ([]core.Order, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders o
		JOIN trips t ON t.order_id = o.id
		LEFT JOIN invoices i ON i.order_id = o.id
		WHERE i.id IS NULL
		ORDER BY o.updated_at DESC, o.id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders ready to invoice: %w", err)
	}
	return collectOrders(rows)
}

func (q *queries) UpdateOrder(ctx context.Context, o *core.Order) error {
	err := q.db.QueryRow(ctx, `
		UPDATE orders
		SET ref = $2, client_id = $3, client_name = $4, pickup_address = $5, pickup_at = $6,
		    delivery_address = $7, delivery_at = $8, price = $9, vehicle = $10, driver = $11,
		    notes = $12, status = $13, updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, o.ID, o.Ref, o.ClientID, o.ClientName, o.PickupAddress, o.PickupAt,
		o.DeliveryAddress, o.DeliveryAt, o.Price, o.Vehicle, o.Driver,
		o.Notes, string(o.Status),
	).Scan(&o.UpdatedAt)
	if err != nil {
		return notFound("order", o.ID, err)
	}
	return nil
}

// ── Trips ────────────────────────────────────────────────────────────────────

const tripColumns = `id, order_id, status, driver, vehicle, pickup_at, delivery_at, notes, created_at, updated_at`

func scanTrip(row pgx.Row) (*core.Trip, error) {
	var t core.Trip
	err := row.Scan(&t.ID, &t.OrderID, &t.Status, &t.Driver, &t.Vehicle, &t.PickupAt, &t.DeliveryAt,
		&t.Notes, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (q *queries) CreateTrip(ctx context.Context, t *core.Trip) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO trips (order_id, status, driver, vehicle, pickup_at, delivery_at, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, t.OrderID, string(t.Status), t.Driver, t.Vehicle, t.PickupAt, t.DeliveryAt, t.Notes,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert trip: %w", mapError(err))
	}
	return nil
}

func (q *queries) GetTrip(ctx context.Context, id int) (*core.Trip, error) {
	t, err := scanTrip(q.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = $1`, id))
	if err != nil {
		return nil, notFound("trip", id, err)
	}
	return t, nil
}

func (q *queries) GetTripByOrder(ctx context.Context, orderID int) (*core.Trip, error) {
	t, err := scanTrip(q.db.QueryRow(ctx, `SELECT `+tripColumns+` FROM trips WHERE order_id = $1`, orderID))
	if err != nil {
		return nil, notFound("trip for order", orderID, err)
	}
	return t, nil
}

func (q *queries) UpdateTrip(ctx context.Context, t *core.Trip) error {
	err := q.db.QueryRow(ctx, `
		UPDATE trips
		SET status = $2, driver = $3, vehicle = $4, pickup_at = $5, delivery_at = $6, notes = $7,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, t.ID, string(t.Status), t.Driver, t.Vehicle, t.PickupAt, t.DeliveryAt, t.Notes).Scan(&t.UpdatedAt)
	if err != nil {
		return notFound("trip", t.ID, err)
	}
	return nil
}

func (q *queries) DeleteTrip(ctx context.Context, id int) error {
	tag, err := q.db.Exec(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete trip %d: %w", id, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("trip %d: %w", id, core.ErrNotFound)
	}
	return nil
}
