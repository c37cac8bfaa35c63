// Package plugin provides an extensible plugin system for Balancer.
// Plugins hook into session lifecycle events to extend functionality, for
// example audit trails, metrics, or executing the payouts a checkout computed.
package plugin

import (
	"context"

	"github.com/xraph/balancer/session"
	"github.com/xraph/balancer/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, b interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Session hooks
// ──────────────────────────────────────────────────

// OnSessionCreated is called after a new session has been stored.
type OnSessionCreated interface {
	Plugin
	OnSessionCreated(ctx context.Context, evt session.SessionCreated) error
}

// OnParticipantJoined is called after a join has been stored.
type OnParticipantJoined interface {
	Plugin
	OnParticipantJoined(ctx context.Context, evt session.ParticipantJoined) error
}

// OnSessionStateChanged is called after each forward state transition.
type OnSessionStateChanged interface {
	Plugin
	OnSessionStateChanged(ctx context.Context, evt session.SessionStateChanged) error
}

// OnSessionSettled is called after checkout with the settlement receipt.
// Payment executors hook in here.
type OnSessionSettled interface {
	Plugin
	OnSessionSettled(ctx context.Context, evt session.SessionSettled) error
}

// ──────────────────────────────────────────────────
// Checkout validators
// ──────────────────────────────────────────────────

// CheckoutValidator applies extra policy to a checkout before anything is
// written. Returning an error rejects the checkout.
type CheckoutValidator interface {
	Plugin
	ValidateCheckout(ctx context.Context, s *session.Session, expenses []types.Money) error
}
