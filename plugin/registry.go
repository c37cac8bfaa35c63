package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/xraph/balancer/session"
	"github.com/xraph/balancer/types"
)

// DefaultHookTimeout bounds how long a single hook may run.
const DefaultHookTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit              []OnInit
	onShutdown          []OnShutdown
	onSessionCreated    []OnSessionCreated
	onParticipantJoined []OnParticipantJoined
	onStateChanged      []OnSessionStateChanged
	onSessionSettled    []OnSessionSettled
	checkoutValidators  []CheckoutValidator
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultHookTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout. Non-positive values keep the default.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnSessionCreated); ok {
		r.onSessionCreated = append(r.onSessionCreated, v)
	}
	if v, ok := p.(OnParticipantJoined); ok {
		r.onParticipantJoined = append(r.onParticipantJoined, v)
	}
	if v, ok := p.(OnSessionStateChanged); ok {
		r.onStateChanged = append(r.onStateChanged, v)
	}
	if v, ok := p.(OnSessionSettled); ok {
		r.onSessionSettled = append(r.onSessionSettled, v)
	}
	if v, ok := p.(CheckoutValidator); ok {
		r.checkoutValidators = append(r.checkoutValidators, v)
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", Interfaces(p),
	)

	return nil
}

var hookInterfaces = []struct {
	typ  reflect.Type
	name string
}{
	{reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit"},
	{reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown"},
	{reflect.TypeOf((*OnSessionCreated)(nil)).Elem(), "OnSessionCreated"},
	{reflect.TypeOf((*OnParticipantJoined)(nil)).Elem(), "OnParticipantJoined"},
	{reflect.TypeOf((*OnSessionStateChanged)(nil)).Elem(), "OnSessionStateChanged"},
	{reflect.TypeOf((*OnSessionSettled)(nil)).Elem(), "OnSessionSettled"},
	{reflect.TypeOf((*CheckoutValidator)(nil)).Elem(), "CheckoutValidator"},
}

// Interfaces returns the names of the hook interfaces p implements.
func Interfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)
	for _, h := range hookInterfaces {
		if v.Implements(h.typ) {
			interfaces = append(interfaces, h.name)
		}
	}
	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, b interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, b)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitSessionCreated emits a session created event.
func (r *Registry) EmitSessionCreated(ctx context.Context, evt session.SessionCreated) {
	r.mu.RLock()
	plugins := r.onSessionCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSessionCreated(ctx, evt)
		}); err != nil {
			r.logger.Warn("plugin OnSessionCreated failed",
				"plugin", p.Name(),
				"session_id", evt.SessionID,
				"error", err,
			)
		}
	}
}

// EmitParticipantJoined emits a participant joined event.
func (r *Registry) EmitParticipantJoined(ctx context.Context, evt session.ParticipantJoined) {
	r.mu.RLock()
	plugins := r.onParticipantJoined
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnParticipantJoined(ctx, evt)
		}); err != nil {
			r.logger.Warn("plugin OnParticipantJoined failed",
				"plugin", p.Name(),
				"session_id", evt.SessionID,
				"error", err,
			)
		}
	}
}

// EmitSessionStateChanged emits a state transition event.
func (r *Registry) EmitSessionStateChanged(ctx context.Context, evt session.SessionStateChanged) {
	r.mu.RLock()
	plugins := r.onStateChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSessionStateChanged(ctx, evt)
		}); err != nil {
			r.logger.Warn("plugin OnSessionStateChanged failed",
				"plugin", p.Name(),
				"session_id", evt.SessionID,
				"error", err,
			)
		}
	}
}

// EmitSessionSettled emits a session settled event.
func (r *Registry) EmitSessionSettled(ctx context.Context, evt session.SessionSettled) {
	r.mu.RLock()
	plugins := r.onSessionSettled
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnSessionSettled(ctx, evt)
		}); err != nil {
			r.logger.Warn("plugin OnSessionSettled failed",
				"plugin", p.Name(),
				"session_id", evt.SessionID,
				"error", err,
			)
		}
	}
}

// ValidateCheckout runs every CheckoutValidator in registration order and
// returns the first rejection. Unlike event hooks, failures are returned
// to the caller.
func (r *Registry) ValidateCheckout(ctx context.Context, s *session.Session, expenses []types.Money) error {
	r.mu.RLock()
	validators := r.checkoutValidators
	r.mu.RUnlock()

	for _, v := range validators {
		if err := r.callWithTimeout(ctx, v.Name(), func() error {
			return v.ValidateCheckout(ctx, s, expenses)
		}); err != nil {
			return fmt.Errorf("plugin %s: %w", v.Name(), err)
		}
	}
	return nil
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the session pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return err
	case <-timer.C:
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
