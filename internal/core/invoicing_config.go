package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoicingConfig carries the seller defaults and invoice policy into the
// invoicing service. It is built once from configuration at startup.
type InvoicingConfig struct {
	Seller   Party
	Currency string
	Language Language
	DueDays  int
	// OrderVATRate is the VAT percentage on order-derived transport lines.
	OrderVATRate decimal.Decimal
	// NumberAttempts bounds how often a transaction that lost a number race
	// is re-run.
	NumberAttempts int
	// Clock returns the issue time; nil means time.Now.
	Clock func() time.Time
}

func DefaultInvoicingConfig() InvoicingConfig {
	return InvoicingConfig{
		Seller: Party{
			Name:    "SYZYGY-LOG s.r.o.",
			Address: "Bratislava, Slovakia",
		},
		Currency:       "EUR",
		Language:       LanguageEN,
		DueDays:        14,
		OrderVATRate:   decimal.Zero,
		NumberAttempts: 2,
	}
}

func (c InvoicingConfig) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func (c InvoicingConfig) attempts() int {
	if c.NumberAttempts < 1 {
		return 1
	}
	return c.NumberAttempts
}
