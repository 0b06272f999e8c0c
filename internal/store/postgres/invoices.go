package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"syzygy-tms/internal/core"
)

const invoiceColumns = `id, number, order_id, trip_id, client_id, currency, language, status,
	issue_date, due_date, delivery_date,
	seller_name, seller_address, seller_vat, seller_ico, seller_dic,
	buyer_name, buyer_address, buyer_vat,
	subtotal, vat_amount, total, note, created_at, updated_at`

func scanInvoice(row pgx.Row) (*core.Invoice, error) {
	var inv core.Invoice
	err := row.Scan(&inv.ID, &inv.Number, &inv.OrderID, &inv.TripID, &inv.ClientID,
		&inv.Currency, &inv.Language, &inv.Status,
		&inv.IssueDate, &inv.DueDate, &inv.DeliveryDate,
		&inv.Seller.Name, &inv.Seller.Address, &inv.Seller.VAT, &inv.Seller.ICO, &inv.Seller.DIC,
		&inv.Buyer.Name, &inv.Buyer.Address, &inv.Buyer.VAT,
		&inv.Subtotal, &inv.VATAmount, &inv.Total, &inv.Note, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (q *queries) CreateInvoice(ctx context.Context, inv *core.Invoice) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO invoices (number, order_id, trip_id, client_id, currency, language, status,
		                      issue_date, due_date, delivery_date,
		                      seller_name, seller_address, seller_vat, seller_ico, seller_dic,
		                      buyer_name, buyer_address, buyer_vat,
		                      subtotal, vat_amount, total, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
		        $19, $20, $21, $22)
		RETURNING id, created_at, updated_at
	`, inv.Number, inv.OrderID, inv.TripID, inv.ClientID, inv.Currency, string(inv.Language), string(inv.Status),
		inv.IssueDate, inv.DueDate, inv.DeliveryDate,
		inv.Seller.Name, inv.Seller.Address, inv.Seller.VAT, inv.Seller.ICO, inv.Seller.DIC,
		inv.Buyer.Name, inv.Buyer.Address, inv.Buyer.VAT,
		inv.Subtotal, inv.VATAmount, inv.Total, inv.Note,
	).Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert invoice %s: %w", inv.Number, mapError(err))
	}

	for i := range inv.Items {
		if err := q.insertItem(ctx, inv.ID, &inv.Items[i]); err != nil {
			return err
		}
	}
	return nil
}

func (q *queries) insertItem(ctx context.Context, invoiceID int, it *core.InvoiceItem) error {
	it.InvoiceID = invoiceID
	err := q.db.QueryRow(ctx, `
		INSERT INTO invoice_items (invoice_id, position, description, qty, unit_price, line_total, vat_rate, vat_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, invoiceID, it.Position, it.Description, it.Quantity, it.UnitPrice, it.LineTotal, it.VATRate, it.VATAmount,
	).Scan(&it.ID)
	if err != nil {
		return fmt.Errorf("failed to insert line %d of invoice %d: %w", it.Position, invoiceID, mapError(err))
	}
	return nil
}

func (q *queries) loadItems(ctx context.Context, invoiceIDs ...int) (map[int][]core.InvoiceItem, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, invoice_id, position, description, qty, unit_price, line_total, vat_rate, vat_amount
		FROM invoice_items
		WHERE invoice_id = ANY($1)
		ORDER BY invoice_id, position, id
	`, invoiceIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoice items: %w", err)
	}
	defer rows.Close()

	out := make(map[int][]core.InvoiceItem, len(invoiceIDs))
	for rows.Next() {
		var it core.InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Position, &it.Description, &it.Quantity,
			&it.UnitPrice, &it.LineTotal, &it.VATRate, &it.VATAmount); err != nil {
			return nil, fmt.Errorf("failed to scan invoice item: %w", err)
		}
		out[it.InvoiceID] = append(out[it.InvoiceID], it)
	}
	return out, rows.Err()
}

func (q *queries) getInvoice(ctx context.Context, what string, key any, sql string) (*core.Invoice, error) {
	inv, err := scanInvoice(q.db.QueryRow(ctx, sql, key))
	if err != nil {
		return nil, notFound(what, key, err)
	}
	items, err := q.loadItems(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	inv.Items = items[inv.ID]
	return inv, nil
}

func (q *queries) GetInvoice(ctx context.Context, id int) (*core.Invoice, error) {
	return q.getInvoice(ctx, "invoice", id, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`)
}

func (q *queries) LockInvoice(ctx context.Context, id int) (*core.Invoice, error) {
	return q.getInvoice(ctx, "invoice", id, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1 FOR UPDATE`)
}

func (q *queries) GetInvoiceByOrder(ctx context.Context, orderID int) (*core.Invoice, error) {
	return q.getInvoice(ctx, "invoice for order", orderID, `SELECT `+invoiceColumns+` FROM invoices WHERE order_id = $1`)
}

func (q *queries) ListInvoices(ctx context.Context) ([]core.Invoice, error) {
	rows, err := q.db.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []core.Invoice
	var ids []int
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, *inv)
		ids = append(ids, inv.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if len(ids) == 0 {
		return invoices, nil
	}
	items, err := q.loadItems(ctx, ids...)
	if err != nil {
		return nil, err
	}
	for i := range invoices {
		invoices[i].Items = items[invoices[i].ID]
	}
	return invoices, nil
}

func (q *queries) UpdateInvoice(ctx context.Context, inv *core.Invoice) error {
	err := q.db.QueryRow(ctx, `
		UPDATE invoices
		SET number = $2, currency = $3, language = $4, status = $5,
		    issue_date = $6, due_date = $7, delivery_date = $8,
		    buyer_name = $9, buyer_address = $10, buyer_vat = $11,
		    subtotal = $12, vat_amount = $13, total = $14, note = $15,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`, inv.ID, inv.Number, inv.Currency, string(inv.Language), string(inv.Status),
		inv.IssueDate, inv.DueDate, inv.DeliveryDate,
		inv.Buyer.Name, inv.Buyer.Address, inv.Buyer.VAT,
		inv.Subtotal, inv.VATAmount, inv.Total, inv.Note,
	).Scan(&inv.UpdatedAt)
	if err != nil {
		return notFound("invoice", inv.ID, err)
	}
	return nil
}

func (q *queries) UpdateInvoiceItem(ctx context.Context, item *core.InvoiceItem) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE invoice_items
		SET description = $2, qty = $3, unit_price = $4, line_total = $5, vat_rate = $6, vat_amount = $7
		WHERE id = $1
	`, item.ID, item.Description, item.Quantity, item.UnitPrice, item.LineTotal, item.VATRate, item.VATAmount)
	if err != nil {
		return fmt.Errorf("failed to update invoice item %d: %w", item.ID, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("invoice item %d: %w", item.ID, core.ErrNotFound)
	}
	return nil
}

func (q *queries) ReplaceInvoiceItems(ctx context.Context, invoiceID int, items []core.InvoiceItem) error {
	if _, err := q.db.Exec(ctx, `DELETE FROM invoice_items WHERE invoice_id = $1`, invoiceID); err != nil {
		return fmt.Errorf("failed to clear items of invoice %d: %w", invoiceID, mapError(err))
	}
	for i := range items {
		if err := q.insertItem(ctx, invoiceID, &items[i]); err != nil {
			return err
		}
	}
	return nil
}
