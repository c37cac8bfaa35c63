// Package balancer provides a multi-party shared-expense settlement engine
// for Go applications.
//
// Balancer is designed as a library, not a service. Import it directly into
// your Go application. It provides:
//
//   - Sessions with a fixed, ordered list of invited participants
//   - Invitation-gated joining, with the session going Active once everyone is in
//   - Even-split checkout that turns who-paid-what into net balances
//   - Pluggable storage: memory, SQLite, PostgreSQL and MongoDB
//   - Lifecycle hooks for audit trails, metrics and payment execution
//
// # Quick Start
//
// Create a balancer with your preferred store:
//
//	import (
//	    "github.com/xraph/balancer"
//	    "github.com/xraph/balancer/store/memory"
//	)
//
//	b := balancer.New(memory.New(), balancer.WithCurrency("usdc"))
//	if err := b.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer b.Stop()
//
// # Core Concepts
//
// A creator invites participants. The order of the invited list matters:
// expenses at checkout are given in the same order.
//
//	id, err := b.CreateSession(ctx, owner, []balancer.Address{alice, bob, carol})
//
// Every invited participant joins. The last join activates the session:
//
//	err = b.JoinSession(ctx, id, alice)
//
// Checkout takes what each participant paid and stores their balance:
//
//	receipt, err := b.Checkout(ctx, id, alice, []balancer.Money{
//	    balancer.USDC(100_000000), balancer.USDC(50_000000), balancer.USDC(70_000000),
//	})
//	// alice +26.666667, bob -23.333333, carol -3.333333
//
// A positive balance means the participant is owed money, a negative balance
// means they owe. The share is computed with truncating integer division, so
// balances sum to a remainder between 0 and n-1 smallest units. The remainder
// is reported on the receipt.
//
// # Ids
//
// Sessions use integer ids. By default they come from a monotonic counter
// owned by the store and start at 1. With WithIDMode(IDModeExplicit) callers
// supply ids instead, and CreateSession is rejected with ErrWrongIDMode.
//
// Settlement receipts and audit entries use TypeIDs:
//
//	stl_01h2xcejqtf2nbrexx3vqjhp41  // Settlement receipt
//	aud_01h455vb4pex5vsknk084sn02q  // Audit entry
//
// # Concurrency
//
// One Balancer serializes all of its operations behind a single lock. Plugin
// hooks run synchronously after the store write, while the lock is held, so
// hooks observe events in commit order. Hooks must not call back into the
// same Balancer synchronously.
package balancer
