package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"syzygy-tms/internal/core"
)

var (
	accent = lipgloss.Color("#2563EB")
	dim    = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(accent)
	labelStyle = lipgloss.NewStyle().Foreground(dim)
	totalStyle = lipgloss.NewStyle().Bold(true)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1)
)

const rule = 72

type labels struct {
	Invoice, Seller, Buyer, Issued, Due, Delivered, Order, Route string
	Description, Qty, UnitPrice, VAT, Net                        string
	Subtotal, VATTotal, Total, Note, VATID, ICO, DIC             string
}

var invoiceLabels = map[core.Language]labels{
	core.LanguageEN: {
		Invoice: "INVOICE", Seller: "Seller", Buyer: "Buyer",
		Issued: "Issue date", Due: "Due date", Delivered: "Delivery date",
		Order: "Order", Route: "Route",
		Description: "DESCRIPTION", Qty: "QTY", UnitPrice: "UNIT PRICE", VAT: "VAT %", Net: "NET",
		Subtotal: "Subtotal", VATTotal: "VAT", Total: "Total", Note: "Note",
		VATID: "VAT ID", ICO: "Company ID", DIC: "Tax ID",
	},
	core.LanguageSK: {
		Invoice: "FAKTÚRA", Seller: "Dodávateľ", Buyer: "Odberateľ",
		Issued: "Dátum vystavenia", Due: "Dátum splatnosti", Delivered: "Dátum dodania",
		Order: "Objednávka", Route: "Trasa",
		Description: "POPIS", Qty: "MNOŽ.", UnitPrice: "JEDN. CENA", VAT: "DPH %", Net: "ZÁKLAD",
		Subtotal: "Základ", VATTotal: "DPH", Total: "Spolu", Note: "Poznámka",
		VATID: "IČ DPH", ICO: "IČO", DIC: "DIČ",
	},
}

// InvoiceRenderer prints an invoice snapshot as styled terminal text.
type InvoiceRenderer struct{}

var _ core.Renderer = InvoiceRenderer{}

func (InvoiceRenderer) Render(ctx context.Context, s core.Snapshot, w io.Writer) error {
	if err := s.Verify(); err != nil {
		return err
	}
	l, ok := invoiceLabels[s.Language]
	if !ok {
		l = invoiceLabels[core.LanguageEN]
	}

	var b strings.Builder
	b.WriteString(boxStyle.Render(titleStyle.Render(l.Invoice+" "+s.Number) + "  " + labelStyle.Render(string(s.Status))))
	b.WriteString("\n\n")

	writeParty(&b, l, l.Seller, s.Seller)
	writeParty(&b, l, l.Buyer, s.Buyer)

	writeField(&b, l.Issued, formatDate(&s.IssueDate))
	writeField(&b, l.Delivered, formatDate(s.DeliveryDate))
	writeField(&b, l.Due, formatDate(s.DueDate))
	if s.OrderRef != "" {
		writeField(&b, l.Order, s.OrderRef)
	}
	if s.Route != "" {
		writeField(&b, l.Route, s.Route)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "  %-32s %7s %11s %6s %11s\n", l.Description, l.Qty, l.UnitPrice, l.VAT, l.Net)
	b.WriteString("  " + strings.Repeat("-", rule-2) + "\n")
	for _, it := range s.Items {
		fmt.Fprintf(&b, "  %-32s %7s %11s %6s %11s\n",
			truncate(it.Description, 32), it.Quantity.String(), it.UnitPrice.StringFixed(2),
			it.VATRate.String(), it.LineTotal.StringFixed(2))
	}
	b.WriteString("  " + strings.Repeat("-", rule-2) + "\n")

	writeAmount(&b, l.Subtotal, s.Subtotal.StringFixed(2), s.Currency, false)
	writeAmount(&b, l.VATTotal, s.VATAmount.StringFixed(2), s.Currency, false)
	writeAmount(&b, l.Total, s.Total.StringFixed(2), s.Currency, true)

	if s.Note != "" {
		b.WriteString("\n")
		writeField(&b, l.Note, s.Note)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func writeParty(b *strings.Builder, l labels, title string, p core.Party) {
	b.WriteString("  " + titleStyle.Render(title) + "\n")
	b.WriteString("    " + p.Name + "\n")
	b.WriteString("    " + p.Address + "\n")
	for _, id := range []struct{ label, value string }{{l.VATID, p.VAT}, {l.ICO, p.ICO}, {l.DIC, p.DIC}} {
		if id.value != "" {
			b.WriteString("    " + labelStyle.Render(id.label+":") + " " + id.value + "\n")
		}
	}
	b.WriteString("\n")
}

func writeField(b *strings.Builder, label, value string) {
	b.WriteString("  " + labelStyle.Render(fmt.Sprintf("%-18s", label)) + " " + value + "\n")
}

func writeAmount(b *strings.Builder, label, amount, currency string, bold bool) {
	line := fmt.Sprintf("%*s %14s %s", rule-24, label, amount, currency)
	if bold {
		line = totalStyle.Render(line)
	}
	b.WriteString("  " + line + "\n")
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return core.EmptyField
	}
	return t.Format("02.01.2006")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func printOrders(w io.Writer, title string, orders []core.Order) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", rule))
	fmt.Fprintf(w, "  %s\n", titleStyle.Render(title))
	fmt.Fprintln(w, strings.Repeat("=", rule))
	if len(orders) == 0 {
		fmt.Fprintln(w, "  No orders found.")
		fmt.Fprintln(w, strings.Repeat("=", rule))
		return
	}
	fmt.Fprintf(w, "  %-5s %-14s %-20s %-11s %s\n", "ID", "REF", "CLIENT", "STATUS", "ROUTE")
	fmt.Fprintln(w, strings.Repeat("-", rule))
	for _, o := range orders {
		fmt.Fprintf(w, "  %-5d %-14s %-20s %-11s %s → %s\n",
			o.ID, truncate(o.Ref, 14), truncate(o.ClientName, 20), o.Status, o.PickupAddress, o.DeliveryAddress)
	}
	fmt.Fprintln(w, strings.Repeat("=", rule))
}
