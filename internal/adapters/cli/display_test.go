package cli_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syzygy-tms/internal/adapters/cli"
	"syzygy-tms/internal/core"
)

func sampleSnapshot() core.Snapshot {
	due := time.Date(2025, 5, 6, 0, 0, 0, 0, time.UTC)
	return core.Snapshot{
		Number:    "INV-2025-0042",
		Status:    core.InvoiceStatusIssued,
		Language:  core.LanguageEN,
		Currency:  "EUR",
		IssueDate: time.Date(2025, 4, 22, 0, 0, 0, 0, time.UTC),
		DueDate:   &due,
		Seller:    core.Party{Name: "SYZYGY-LOG s.r.o.", Address: "Bratislava, Slovakia", ICO: "12345678"},
		Buyer:     core.Party{Name: "Danubia Foods", Address: core.EmptyField},
		OrderRef:  "ORD-77",
		Route:     "BTS → VIE",
		Items: []core.InvoiceItem{{
			Position:    1,
			Description: "Transport service (ORD-77: BTS → VIE)",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("1200.00"),
			LineTotal:   decimal.RequireFromString("1200.00"),
			VATRate:     decimal.NewFromInt(20),
			VATAmount:   decimal.RequireFromString("240.00"),
		}},
		Subtotal:  decimal.RequireFromString("1200.00"),
		VATAmount: decimal.RequireFromString("240.00"),
		Total:     decimal.RequireFromString("1440.00"),
	}
}

func TestInvoiceRenderer(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, cli.InvoiceRenderer{}.Render(context.Background(), sampleSnapshot(), &buf))

	out := buf.String()
	assert.Contains(t, out, "INVOICE INV-2025-0042")
	assert.Contains(t, out, "Company ID:")
	assert.Contains(t, out, "12345678")
	assert.Contains(t, out, "22.04.2025")
	assert.Contains(t, out, "06.05.2025")
	assert.Contains(t, out, "BTS → VIE")
	assert.Contains(t, out, "1200.00")
	assert.Contains(t, out, "1440.00 EUR")
	assert.NotContains(t, out, "Note")
}

func TestInvoiceRenderer_RejectsInconsistentTotals(t *testing.T) {
	snap := sampleSnapshot()
	snap.Total = decimal.RequireFromString("1441.00")

	var buf bytes.Buffer
	err := cli.InvoiceRenderer{}.Render(context.Background(), snap, &buf)
	assert.ErrorIs(t, err, core.ErrInconsistentTotals)
	assert.Empty(t, buf.String())
}
