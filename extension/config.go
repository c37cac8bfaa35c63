package extension

import "time"

// Config holds the Balancer extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.balancer" or "balancer" keys).
type Config struct {
	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// IDMode selects session id assignment: "auto" (default) or "explicit".
	IDMode string `json:"id_mode" mapstructure:"id_mode" yaml:"id_mode"`

	// Currency is the settlement currency code (default: "usdc").
	Currency string `json:"currency" mapstructure:"currency" yaml:"currency"`

	// CurrencyReference identifies where the settlement currency lives, for
	// example a token contract address. Passed through to payment plugins.
	CurrencyReference string `json:"currency_reference" mapstructure:"currency_reference" yaml:"currency_reference"`

	// HookTimeout bounds each plugin hook call (default: 5s).
	HookTimeout time.Duration `json:"hook_timeout" mapstructure:"hook_timeout" yaml:"hook_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		IDMode:      "auto",
		Currency:    "usdc",
		HookTimeout: 5 * time.Second,
	}
}
