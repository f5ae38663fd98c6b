package application

import (
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"windshare/internal/settlement/allocation"
)

// RevenueCodeConfig configures one revenue code's label and tax treatment.
type RevenueCodeConfig struct {
	Label       string  `yaml:"label"`
	HasTax      bool    `yaml:"has_tax"`
	RatePercent float64 `yaml:"rate_percent"`
}

// RevenueConfig is the settlement revenue configuration.
type RevenueConfig struct {
	Codes            map[string]RevenueCodeConfig `yaml:"codes"`
	CreditNotePrefix string                       `yaml:"credit_note_prefix"`
	DueDays          int                          `yaml:"due_days"`
}

// LoadRevenueConfig loads revenue configuration from yaml or env. EEG defaults
// to the 19% standard rate, the market premium to exempt.
func LoadRevenueConfig() (RevenueConfig, error) {
	cfg := RevenueConfig{
		Codes: map[string]RevenueCodeConfig{
			"EEG":          {Label: "EEG remuneration", HasTax: true, RatePercent: 19},
			"MARKTPRAEMIE": {Label: "Market premium", HasTax: false},
		},
		CreditNotePrefix: getenvDefault("CREDIT_NOTE_PREFIX", "GS"),
		DueDays:          getenvIntDefault("INVOICE_DUE_DAYS", 14),
	}

	if path := os.Getenv("REVENUE_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.CreditNotePrefix == "" {
		cfg.CreditNotePrefix = "GS"
	}
	if cfg.DueDays <= 0 {
		cfg.DueDays = 14
	}
	return cfg, nil
}

// TaxDefaults returns the configured tax treatment per revenue code.
func (c RevenueConfig) TaxDefaults() map[string]allocation.TaxConfig {
	defaults := make(map[string]allocation.TaxConfig, len(c.Codes))
	for code, codeCfg := range c.Codes {
		defaults[code] = allocation.TaxConfig{
			HasTax: codeCfg.HasTax,
			Rate:   decimal.NewFromFloat(codeCfg.RatePercent),
		}
	}
	return defaults
}

// Labels returns the configured line labels per revenue code.
func (c RevenueConfig) Labels() map[string]string {
	labels := make(map[string]string, len(c.Codes))
	for code, codeCfg := range c.Codes {
		if codeCfg.Label != "" {
			labels[code] = codeCfg.Label
		}
	}
	return labels
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
