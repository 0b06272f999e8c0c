package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syzygy-tms/internal/config"
	"syzygy-tms/internal/core"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"INVOICE_SELLER_NAME", "INVOICE_DUE_DAYS", "INVOICE_LANGUAGE", "SELLER_PROFILE", "SERVER_PORT"} {
		t.Setenv(key, "")
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.ServerPort)

	inv, err := cfg.InvoicingConfig()
	require.NoError(t, err)
	assert.Equal(t, "SYZYGY-LOG s.r.o.", inv.Seller.Name)
	assert.Equal(t, "Bratislava, Slovakia", inv.Seller.Address)
	assert.Equal(t, "EUR", inv.Currency)
	assert.Equal(t, core.LanguageEN, inv.Language)
	assert.Equal(t, 14, inv.DueDays)
	assert.Equal(t, 2, inv.NumberAttempts)
	assert.True(t, inv.OrderVATRate.IsZero())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SELLER_PROFILE", "")
	t.Setenv("INVOICE_SELLER_NAME", "Trans Tatry s.r.o.")
	t.Setenv("INVOICE_SELLER_VAT", "SK2020000001")
	t.Setenv("INVOICE_LANGUAGE", "sk")
	t.Setenv("INVOICE_DUE_DAYS", "30")
	t.Setenv("INVOICE_ORDER_VAT_RATE", "20")

	cfg, err := config.Load()
	require.NoError(t, err)
	inv, err := cfg.InvoicingConfig()
	require.NoError(t, err)

	assert.Equal(t, "Trans Tatry s.r.o.", inv.Seller.Name)
	assert.Equal(t, "SK2020000001", inv.Seller.VAT)
	assert.Equal(t, core.LanguageSK, inv.Language)
	assert.Equal(t, 30, inv.DueDays)
	assert.Equal(t, "20", inv.OrderVATRate.String())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"language", "INVOICE_LANGUAGE", "DE"},
		{"due days", "INVOICE_DUE_DAYS", "two weeks"},
		{"attempts", "INVOICE_NUMBER_ATTEMPTS", "0"},
		{"vat rate", "INVOICE_ORDER_VAT_RATE", "twenty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}

func TestSellerProfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seller.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
seller:
  name: SYZYGY-LOG s.r.o.
  address: Mlynské nivy 1, 821 09 Bratislava
  ico: "12345678"
language: SK
due_days: 30
`), 0o644))

	t.Setenv("SELLER_PROFILE", path)
	t.Setenv("INVOICE_SELLER_VAT", "SK2120000000")
	t.Setenv("INVOICE_LANGUAGE", "EN")
	t.Setenv("INVOICE_DUE_DAYS", "")

	cfg, err := config.Load()
	require.NoError(t, err)
	inv, err := cfg.InvoicingConfig()
	require.NoError(t, err)

	assert.Equal(t, "Mlynské nivy 1, 821 09 Bratislava", inv.Seller.Address)
	assert.Equal(t, "12345678", inv.Seller.ICO)
	assert.Equal(t, "SK2120000000", inv.Seller.VAT, "fields absent from the profile keep the env value")
	assert.Equal(t, core.LanguageSK, inv.Language)
	assert.Equal(t, 30, inv.DueDays)
}

func TestSellerProfile_MissingFileKeepsDefaults(t *testing.T) {
	p, err := config.LoadSellerProfile(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.SellerProfile{}, p)
}

func TestSellerProfile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seller.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seller: [not, a, map"), 0o644))

	_, err := config.LoadSellerProfile(path)
	assert.ErrorContains(t, err, "parsing")
}
