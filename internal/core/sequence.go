package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// InvoicePrefix is the year-scoped number prefix, e.g. "INV-2025-".
func InvoicePrefix(year int) string {
	return fmt.Sprintf("INV-%04d-", year)
}

// FormatInvoiceNumber renders INV-<year>-<seq> with seq padded to 4 digits.
func FormatInvoiceNumber(year, seq int) string {
	return fmt.Sprintf("%s%04d", InvoicePrefix(year), seq)
}

// ParseInvoiceSequence extracts the numeric suffix of number after prefix.
func ParseInvoiceSequence(number, prefix string) (int, bool) {
	tail, ok := strings.CutPrefix(number, prefix)
	if !ok || tail == "" {
		return 0, false
	}
	n, err := strconv.Atoi(tail)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// SequenceQueries is the slice of the persistence collaborator that numbering
// needs. Both methods must run in the caller's transaction.
type SequenceQueries interface {
	// LastInvoiceNumber returns the highest number with the given prefix,
	// comparing longer suffixes as larger.
	LastInvoiceNumber(ctx context.Context, prefix string) (string, bool, error)
	// BumpInvoiceSequence atomically sets the year's counter to
	// max(counter, floor) + 1 and returns the new value.
	BumpInvoiceSequence(ctx context.Context, year, floor int) (int, error)
}

// NextInvoiceNumber allocates the next number for year. The persisted counter
// serializes concurrent callers; the floor taken from the highest existing
// number keeps the sequence ahead of invoices numbered by hand or imported.
func NextInvoiceNumber(ctx context.Context, q SequenceQueries, year int) (string, error) {
	prefix := InvoicePrefix(year)
	floor := 0
	last, ok, err := q.LastInvoiceNumber(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to read last invoice number: %w", err)
	}
	if ok {
		if n, parsed := ParseInvoiceSequence(last, prefix); parsed {
			floor = n
		}
	}

	seq, err := q.BumpInvoiceSequence(ctx, year, floor)
	if err != nil {
		return "", fmt.Errorf("failed to bump invoice sequence for %d: %w", year, err)
	}
	return FormatInvoiceNumber(year, seq), nil
}
