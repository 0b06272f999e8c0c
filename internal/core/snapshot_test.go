package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syzygy-tms/internal/core"
)

func TestLoadSnapshot(t *testing.T) {
	f := newFixture(t)
	order := f.order(t, "ORD-400", "Nitra", "Györ", "310,40")
	res, err := f.invoices.CreateFromOrder(f.ctx, order.ID)
	require.NoError(t, err)

	snap, err := core.LoadSnapshot(f.ctx, f.store, res.Invoice.ID)
	require.NoError(t, err)

	assert.Equal(t, res.Invoice.Number, snap.Number)
	assert.Equal(t, "ORD-400", snap.OrderRef)
	assert.Equal(t, "Nitra → Györ", snap.Route)
	assert.Equal(t, "310.40", snap.Total.StringFixed(2))
	assert.Equal(t, "SYZYGY-LOG s.r.o.", snap.Seller.Name)
	require.Len(t, snap.Items, 1)

	manual, err := f.invoices.CreateManual(f.ctx, core.ManualInvoiceInput{})
	require.NoError(t, err)
	msnap, err := core.LoadSnapshot(f.ctx, f.store, manual.ID)
	require.NoError(t, err)
	assert.Empty(t, msnap.OrderRef)
}

func TestSnapshotVerify_DetectsDrift(t *testing.T) {
	tot := core.CalcFromItems([]core.LineInput{line("a", "2", "10", "20")})
	inv := &core.Invoice{Number: "INV-2025-0001"}
	tot.ApplyTo(inv)

	require.NoError(t, core.NewSnapshot(inv, nil).Verify())

	tests := []struct {
		name   string
		mutate func(inv *core.Invoice)
	}{
		{"total", func(inv *core.Invoice) { inv.Total = d("24.01") }},
		{"subtotal", func(inv *core.Invoice) { inv.Subtotal = d("19.99") }},
		{"vat", func(inv *core.Invoice) { inv.VATAmount = d("4.01") }},
		{"line", func(inv *core.Invoice) { inv.Items[0].LineTotal = d("21") }},
		{"line vat", func(inv *core.Invoice) { inv.Items[0].VATAmount = d("4.01") }},
		{"unit price", func(inv *core.Invoice) { inv.Items[0].UnitPrice = d("10.01") }},
		{"no lines", func(inv *core.Invoice) { inv.Items = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			broken := *inv
			broken.Items = append([]core.InvoiceItem(nil), inv.Items...)
			tt.mutate(&broken)
			err := core.NewSnapshot(&broken, nil).Verify()
			assert.ErrorIs(t, err, core.ErrInconsistentTotals)
			assert.Equal(t, core.KindInternal, core.KindOf(err))
		})
	}
}
