package balancer

import (
	"github.com/xraph/balancer/session"
	"github.com/xraph/balancer/types"
)

// Re-export common types for convenience so users don't have to import the
// types and session packages.

// Money is re-exported from types package.
type Money = types.Money

// Address is re-exported from types package.
type Address = types.Address

// Entity is re-exported from types package.
type Entity = types.Entity

// SessionID is re-exported from session package.
type SessionID = session.ID

// Session is re-exported from session package.
type Session = session.Session

// Settlement is re-exported from session package.
type Settlement = session.Settlement

// Re-export Money constructors
var (
	USDC       = types.USDC
	USDT       = types.USDT
	Zero       = types.Zero
	Sum        = types.Sum
	ParseMajor = types.ParseMajor
)

// Re-export Address constructors
var (
	ParseAddress     = types.ParseAddress
	MustParseAddress = types.MustParseAddress
)
