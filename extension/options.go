package extension

import (
	"time"

	"github.com/xraph/balancer"
	"github.com/xraph/balancer/plugin"
	"github.com/xraph/balancer/store"
)

// Option configures the Balancer Forge extension.
type Option func(*Extension)

// WithStore sets the store for the balancer engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithBalancerOption passes a balancer.Option through to the underlying engine.
func WithBalancerOption(opt balancer.Option) Option {
	return func(e *Extension) {
		e.balancerOpts = append(e.balancerOpts, opt)
	}
}

// WithPlugin registers a balancer plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.balancerOpts = append(e.balancerOpts, balancer.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithIDMode sets how session ids are assigned ("auto" or "explicit").
func WithIDMode(mode string) Option {
	return func(e *Extension) { e.config.IDMode = mode }
}

// WithCurrency sets the settlement currency code.
func WithCurrency(code string) Option {
	return func(e *Extension) { e.config.Currency = code }
}

// WithCurrencyReference sets the settlement currency reference.
func WithCurrencyReference(ref string) Option {
	return func(e *Extension) { e.config.CurrencyReference = ref }
}

// WithHookTimeout sets the per-hook plugin timeout.
func WithHookTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.HookTimeout = d }
}
