// Package extension provides the Forge extension adapter for Balancer.
//
// It implements the forge.Extension interface to integrate Balancer
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.balancer" or "balancer" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/balancer"
	"github.com/xraph/balancer/store"
	"github.com/xraph/balancer/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "balancer"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Multi-party shared-expense settlement engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Balancer as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config       Config
	engine       *balancer.Balancer
	store        store.Store
	balancerOpts []balancer.Option
}

// New creates a new Balancer Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Balancer instance.
// This is nil until Register is called.
func (e *Extension) Engine() *balancer.Balancer { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the balancer engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	opts, err := e.buildBalancerOpts()
	if err != nil {
		return err
	}

	e.engine = balancer.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*balancer.Balancer, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("balancer: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("balancer: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildBalancerOpts constructs balancer.Option values from the resolved config.
// Pass-through options come last so they win over config.
func (e *Extension) buildBalancerOpts() ([]balancer.Option, error) {
	mode, err := balancer.ParseIDMode(e.config.IDMode)
	if err != nil {
		return nil, err
	}

	opts := make([]balancer.Option, 0, len(e.balancerOpts)+4)
	opts = append(opts,
		balancer.WithIDMode(mode),
		balancer.WithCurrency(e.config.Currency),
	)
	if e.config.CurrencyReference != "" {
		opts = append(opts, balancer.WithCurrencyReference(e.config.CurrencyReference))
	}
	if e.config.HookTimeout > 0 {
		opts = append(opts, balancer.WithHookTimeout(e.config.HookTimeout))
	}

	return append(opts, e.balancerOpts...), nil
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("balancer: configuration is required but not found in config files; " +
				"ensure 'extensions.balancer' or 'balancer' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("balancer: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("id_mode", e.config.IDMode),
		forge.F("currency", e.config.Currency),
		forge.F("currency_reference", e.config.CurrencyReference),
		forge.F("hook_timeout", e.config.HookTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	return bindConfigKeys(
		func(key string) bool { return cm.IsSet(key) },
		func(key string, target any) error { return cm.Bind(key, target) },
		func(key string) {
			e.Logger().Debug("balancer: loaded config from file",
				forge.F("key", key),
			)
		},
		func(key string, err error) {
			e.Logger().Warn("balancer: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
		},
	)
}

// configKeys are tried in order; the first one that binds wins.
var configKeys = []string{"extensions.balancer", "balancer"}

func bindConfigKeys(
	isSet func(key string) bool,
	bind func(key string, target any) error,
	loaded func(key string),
	failed func(key string, err error),
) (Config, bool) {
	for _, key := range configKeys {
		if !isSet(key) {
			continue
		}
		var cfg Config
		err := bind(key, &cfg)
		if err == nil {
			loaded(key)
			return cfg, true
		}
		failed(key, err)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.IDMode == "" {
		cfg.IDMode = defaults.IDMode
	}
	if cfg.Currency == "" {
		cfg.Currency = defaults.Currency
	}
	if cfg.HookTimeout == 0 {
		cfg.HookTimeout = defaults.HookTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic values fill gaps.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.IDMode == "" {
		yamlConfig.IDMode = programmaticConfig.IDMode
	}
	if yamlConfig.Currency == "" {
		yamlConfig.Currency = programmaticConfig.Currency
	}
	if yamlConfig.CurrencyReference == "" {
		yamlConfig.CurrencyReference = programmaticConfig.CurrencyReference
	}

	if yamlConfig.HookTimeout == 0 && programmaticConfig.HookTimeout != 0 {
		yamlConfig.HookTimeout = programmaticConfig.HookTimeout
	}

	// Fill remaining zeros with defaults.
	return mergeWithDefaults(yamlConfig)
}
