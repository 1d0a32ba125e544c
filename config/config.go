/*
Package config loads engine configuration from a YAML file.

PURPOSE:
  Everything an operator tunes without a rebuild lives here: data and
  backup directories, the statutory tax rate applied to learnership
  aggregates, and the optional semantic ranker collaborator. A missing
  config file is not an error; defaults serve a working local setup.

SEMANTIC RANKER GATE:
  The ranker is used only when both an endpoint and a credential are
  present. The credential can be inline (api_key) or pulled from an
  environment variable (api_key_env), which keeps secrets out of the
  file. Absent credentials simply leave keyword search in place.
*/
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config is the root configuration.
type Config struct {
	Listen       string `yaml:"listen"`
	DataDir      string `yaml:"data_dir"`
	BackupDir    string `yaml:"backup_dir"`
	AuditDB      string `yaml:"audit_db"`
	HistoryDepth int    `yaml:"history_depth"`
	Watch        bool   `yaml:"watch_documents"`

	// StatutoryTaxRate is the corporate rate applied to the learnership
	// aggregate, as a decimal string (e.g. "0.28").
	StatutoryTaxRate string `yaml:"statutory_tax_rate"`

	Ranker RankerConfig `yaml:"semantic_ranker"`
}

// RankerConfig configures the optional external semantic ranker.
type RankerConfig struct {
	Endpoint  string        `yaml:"endpoint"`
	APIKey    string        `yaml:"api_key"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Model     string        `yaml:"model"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Key resolves the credential, preferring the environment variable.
func (r RankerConfig) Key() string {
	if r.APIKeyEnv != "" {
		if v := os.Getenv(r.APIKeyEnv); v != "" {
			return v
		}
	}
	return r.APIKey
}

// Enabled reports whether the collaborator may be used at all.
func (r RankerConfig) Enabled() bool {
	return r.Endpoint != "" && r.Key() != ""
}

// Default returns a configuration serving a local setup.
func Default() Config {
	return Config{
		Listen:           ":8080",
		DataDir:          "./data/regulations",
		AuditDB:          "./data/audit.db",
		HistoryDepth:     20,
		Watch:            true,
		StatutoryTaxRate: "0.28",
		Ranker: RankerConfig{
			APIKeyEnv: "RERANK_API_KEY",
			Model:     "rerank-english-v2.0",
			Timeout:   10 * time.Second,
		},
	}
}

// Load reads the file at path over the defaults. An absent file returns
// the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if _, err := cfg.TaxRate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// TaxRate parses and bounds-checks the statutory rate.
func (c Config) TaxRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.StatutoryTaxRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("config: statutory_tax_rate %q is not a decimal", c.StatutoryTaxRate)
	}
	if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.Zero, fmt.Errorf("config: statutory_tax_rate %s outside 0..1", rate)
	}
	return rate, nil
}
