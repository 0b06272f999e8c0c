package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"syzygy-tms/internal/core"
	"syzygy-tms/internal/logger"
)

type Config struct {
	// Database
	DatabaseURL string

	// HTTP
	ServerPort     string
	AllowedOrigins string

	// Invoicing defaults
	SellerName            string
	SellerAddress         string
	SellerVAT             string
	SellerICO             string
	SellerDIC             string
	SellerProfile         string // optional YAML file overriding the seller fields
	InvoiceCurrency       string
	InvoiceLanguage       string
	InvoiceDueDays        int
	InvoiceOrderVATRate   string
	InvoiceNumberAttempts int

	// Logging Configuration
	LogLevel      string
	LogFormat     string
	LogTimeFormat string
	LogOutput     string
}

// Load reads the configuration from the environment. Callers load .env first.
func Load() (*Config, error) {
	config := &Config{
		DatabaseURL:         getEnv("DATABASE_URL", ""),
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		AllowedOrigins:      getEnv("ALLOWED_ORIGINS", ""),
		SellerName:          getEnv("INVOICE_SELLER_NAME", "SYZYGY-LOG s.r.o."),
		SellerAddress:       getEnv("INVOICE_SELLER_ADDRESS", "Bratislava, Slovakia"),
		SellerVAT:           getEnv("INVOICE_SELLER_VAT", ""),
		SellerICO:           getEnv("INVOICE_SELLER_ICO", ""),
		SellerDIC:           getEnv("INVOICE_SELLER_DIC", ""),
		SellerProfile:       getEnv("SELLER_PROFILE", ""),
		InvoiceCurrency:     getEnv("INVOICE_CURRENCY", "EUR"),
		InvoiceLanguage:     getEnv("INVOICE_LANGUAGE", "EN"),
		InvoiceOrderVATRate: getEnv("INVOICE_ORDER_VAT_RATE", "0"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "console"),
		LogTimeFormat:       getEnv("LOG_TIME_FORMAT", "2006-01-02T15:04:05Z07:00"),
		LogOutput:           getEnv("LOG_OUTPUT", "stdout"),
	}

	var err error
	if config.InvoiceDueDays, err = getEnvInt("INVOICE_DUE_DAYS", 14); err != nil {
		return nil, err
	}
	if config.InvoiceNumberAttempts, err = getEnvInt("INVOICE_NUMBER_ATTEMPTS", 2); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

func (c *Config) validate() error {
	if _, err := core.ParseLanguage(c.InvoiceLanguage); err != nil {
		return fmt.Errorf("INVOICE_LANGUAGE must be SK or EN, got %q", c.InvoiceLanguage)
	}
	if _, err := decimal.NewFromString(c.InvoiceOrderVATRate); err != nil {
		return fmt.Errorf("INVOICE_ORDER_VAT_RATE is not a number: %q", c.InvoiceOrderVATRate)
	}
	if c.InvoiceDueDays < 0 {
		return fmt.Errorf("INVOICE_DUE_DAYS must not be negative")
	}
	if c.InvoiceNumberAttempts < 1 {
		return fmt.Errorf("INVOICE_NUMBER_ATTEMPTS must be at least 1")
	}
	if strings.TrimSpace(c.SellerName) == "" {
		return fmt.Errorf("INVOICE_SELLER_NAME is required")
	}
	return nil
}

// GetLoggerConfig returns a logger configuration from the main config
func (c *Config) GetLoggerConfig() logger.LogConfig {
	return logger.LogConfig{
		Level:      c.LogLevel,
		Format:     c.LogFormat,
		TimeFormat: c.LogTimeFormat,
		Output:     c.LogOutput,
	}
}

// InvoicingConfig builds the settings injected into the invoicing service,
// applying the seller profile file on top of the environment when one is set.
func (c *Config) InvoicingConfig() (core.InvoicingConfig, error) {
	lang, err := core.ParseLanguage(c.InvoiceLanguage)
	if err != nil {
		return core.InvoicingConfig{}, err
	}
	rate, err := decimal.NewFromString(c.InvoiceOrderVATRate)
	if err != nil {
		return core.InvoicingConfig{}, fmt.Errorf("INVOICE_ORDER_VAT_RATE: %w", err)
	}

	cfg := core.InvoicingConfig{
		Seller: core.Party{
			Name:    c.SellerName,
			Address: c.SellerAddress,
			VAT:     c.SellerVAT,
			ICO:     c.SellerICO,
			DIC:     c.SellerDIC,
		},
		Currency:       strings.ToUpper(c.InvoiceCurrency),
		Language:       lang,
		DueDays:        c.InvoiceDueDays,
		OrderVATRate:   rate,
		NumberAttempts: c.InvoiceNumberAttempts,
	}

	if c.SellerProfile == "" {
		return cfg, nil
	}
	profile, err := LoadSellerProfile(c.SellerProfile)
	if err != nil {
		return core.InvoicingConfig{}, err
	}
	return profile.apply(cfg)
}

// SellerProfile is the optional YAML file describing the invoicing company.
//
//	seller:
//	  name: SYZYGY-LOG s.r.o.
//	  address: Mlynské nivy 1, 821 09 Bratislava
//	  vat: SK2120000000
//	  ico: "12345678"
//	  dic: "2120000000"
//	currency: EUR
//	language: SK
//	due_days: 30
type SellerProfile struct {
	Seller   core.Party `yaml:"seller"`
	Currency string     `yaml:"currency"`
	Language string     `yaml:"language"`
	DueDays  *int       `yaml:"due_days"`
}

// LoadSellerProfile reads a profile file. A missing file yields an empty
// profile, which leaves the environment defaults in place.
func LoadSellerProfile(path string) (SellerProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return SellerProfile{}, nil
		}
		return SellerProfile{}, err
	}

	var p SellerProfile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return SellerProfile{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return p, nil
}

// apply overlays the non-empty profile values on cfg.
func (p SellerProfile) apply(cfg core.InvoicingConfig) (core.InvoicingConfig, error) {
	overlay := func(dst *string, v string) {
		if v = strings.TrimSpace(v); v != "" {
			*dst = v
		}
	}
	overlay(&cfg.Seller.Name, p.Seller.Name)
	overlay(&cfg.Seller.Address, p.Seller.Address)
	overlay(&cfg.Seller.VAT, p.Seller.VAT)
	overlay(&cfg.Seller.ICO, p.Seller.ICO)
	overlay(&cfg.Seller.DIC, p.Seller.DIC)
	if p.Currency != "" {
		cfg.Currency = strings.ToUpper(p.Currency)
	}
	if p.Language != "" {
		lang, err := core.ParseLanguage(p.Language)
		if err != nil {
			return core.InvoicingConfig{}, fmt.Errorf("invalid seller profile: %w", err)
		}
		cfg.Language = lang
	}
	if p.DueDays != nil {
		if *p.DueDays < 0 {
			return core.InvoicingConfig{}, fmt.Errorf("invalid seller profile: due_days must not be negative")
		}
		cfg.DueDays = *p.DueDays
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, value)
	}
	return n, nil
}
