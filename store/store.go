// Package store defines the unified storage interface every Balancer backend
// implements.
package store

import (
	"context"

	"github.com/xraph/balancer/session"
)

// Store is the unified storage interface for all Balancer records.
type Store interface {
	session.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
