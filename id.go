package balancer

import "github.com/xraph/balancer/id"

// ID is the TypeID used for settlement receipts and audit entries.
type ID = id.ID

// Prefix identifies the record type encoded in a TypeID.
type Prefix = id.Prefix
