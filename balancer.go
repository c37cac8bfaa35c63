package balancer

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/xraph/balancer/plugin"
	"github.com/xraph/balancer/store"
	"github.com/xraph/balancer/types"
)

// IDMode selects how session ids are assigned. It is fixed for the life of
// a Balancer.
type IDMode int

const (
	// IDModeAuto allocates ids from the store's monotonic counter.
	IDModeAuto IDMode = iota
	// IDModeExplicit requires callers to supply ids.
	IDModeExplicit
)

func (m IDMode) String() string {
	switch m {
	case IDModeAuto:
		return "auto"
	case IDModeExplicit:
		return "explicit"
	default:
		return fmt.Sprintf("idmode(%d)", int(m))
	}
}

// ParseIDMode parses "auto" or "explicit". The empty string means auto.
func ParseIDMode(s string) (IDMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return IDModeAuto, nil
	case "explicit":
		return IDModeExplicit, nil
	default:
		return 0, ValidationError{Field: "id_mode", Message: fmt.Sprintf("unknown mode %q", s)}
	}
}

// Balancer is the settlement engine. It owns one store and serializes every
// operation against it behind a single lock, so all creates, joins and
// checkouts observe one total order.
type Balancer struct {
	mu sync.Mutex

	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	idMode      IDMode
	currency    string
	currencyRef string
	now         func() time.Time
}

// New creates a new Balancer bound to one settlement currency.
func New(s store.Store, opts ...Option) *Balancer {
	b := &Balancer{
		store:    s,
		plugins:  plugin.NewRegistry(),
		logger:   slog.Default(),
		idMode:   IDModeAuto,
		currency: types.USDCCurrency,
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Option configures a Balancer instance.
type Option func(*Balancer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Balancer) {
		b.logger = logger
		b.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(b *Balancer) {
		_ = b.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithIDMode fixes how session ids are assigned.
func WithIDMode(m IDMode) Option {
	return func(b *Balancer) {
		b.idMode = m
	}
}

// WithCurrency sets the settlement currency code, "usdc" by default.
func WithCurrency(code string) Option {
	return func(b *Balancer) {
		if code = strings.ToLower(strings.TrimSpace(code)); code != "" {
			b.currency = code
		}
	}
}

// WithCurrencyReference records where the settlement currency lives, for
// example a stablecoin contract address. The engine only carries it for
// payment collaborators.
func WithCurrencyReference(ref string) Option {
	return func(b *Balancer) {
		b.currencyRef = ref
	}
}

// WithHookTimeout bounds how long each plugin hook may run.
func WithHookTimeout(d time.Duration) Option {
	return func(b *Balancer) {
		b.plugins.WithTimeout(d)
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Balancer) {
		if now != nil {
			b.now = now
		}
	}
}

// Start migrates the store and initializes plugins.
func (b *Balancer) Start(ctx context.Context) error {
	if err := b.store.Migrate(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
	}

	b.plugins.EmitInit(ctx, b)

	b.logger.Info("balancer started",
		"id_mode", b.idMode,
		"currency", b.currency,
		"currency_ref", b.currencyRef,
		"plugins", b.plugins.Count(),
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (b *Balancer) Stop() error {
	ctx := context.Background()
	b.plugins.EmitShutdown(ctx)

	return b.store.Close()
}

// RegisterPlugin adds a plugin after construction.
func (b *Balancer) RegisterPlugin(p plugin.Plugin) error {
	return b.plugins.Register(p)
}

// Store returns the underlying store.
func (b *Balancer) Store() store.Store { return b.store }

// Plugins returns the plugin registry.
func (b *Balancer) Plugins() *plugin.Registry { return b.plugins }

// Currency returns the settlement currency code.
func (b *Balancer) Currency() string { return b.currency }

// CurrencyReference returns the reference set with WithCurrencyReference.
func (b *Balancer) CurrencyReference() string { return b.currencyRef }

// IDMode returns the id assignment mode.
func (b *Balancer) IDMode() IDMode { return b.idMode }
