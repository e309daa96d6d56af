package application

import (
	"os"

	"gopkg.in/yaml.v3"

	"lca-backend/internal/calculation/domain"
)

// Config carries amortization-period overrides loaded at startup.
type Config struct {
	Amortization map[string]int `yaml:"amortization"`
}

// LoadConfig loads overrides from the YAML file named by LCA_CONFIG.
// Without the variable the built-in defaults apply unchanged.
func LoadConfig() (Config, error) {
	cfg := Config{}
	if path := os.Getenv("LCA_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

// AmortizationTable merges the overrides over the built-in table.
// Non-positive override values are ignored.
func (c Config) AmortizationTable() domain.AmortizationTable {
	table := domain.DefaultAmortizationTable()
	for code, years := range c.Amortization {
		if code != "" && years > 0 {
			table[code] = years
		}
	}
	return table
}
