// Package id mints the prefixed identifiers carried by checkout receipts
// ("stl_...") and audit entries ("aud_...").
//
// Session ids are plain integers chosen by the store and do not live here.
// Values are TypeIDs: a short prefix naming the record kind, then a UUIDv7
// suffix, so ids sort by creation time and survive URLs and JSON unescaped.
package id

import (
	"database/sql/driver"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix names the record kind at the front of an ID.
type Prefix string

const (
	PrefixSettlement Prefix = "stl"
	PrefixAuditEvent Prefix = "aud"
)

// ID is a prefixed TypeID. The zero value is Nil and encodes as an empty
// string in text and as NULL in SQL.
//
//nolint:recvcheck // UnmarshalText and Scan need pointer receivers.
type ID struct {
	tid typeid.TypeID
	set bool
}

// Nil is the unset ID.
var Nil ID

type (
	// SettlementID identifies a checkout receipt.
	SettlementID = ID
	// AuditEventID identifies an audit trail entry.
	AuditEventID = ID
)

// New mints a fresh ID under prefix. An invalid prefix is a programming
// error and panics.
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: bad prefix %q: %v", prefix, err))
	}
	return ID{tid: tid, set: true}
}

func NewSettlementID() ID { return New(PrefixSettlement) }
func NewAuditEventID() ID { return New(PrefixAuditEvent) }

// Parse decodes any well-formed TypeID.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse: empty string")
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{tid: tid, set: true}, nil
}

// ParseWithPrefix decodes s and rejects it unless it carries want.
func ParseWithPrefix(s string, want Prefix) (ID, error) {
	v, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if got := v.Prefix(); got != want {
		return Nil, fmt.Errorf("id: %q has prefix %q, want %q", s, got, want)
	}
	return v, nil
}

func ParseSettlementID(s string) (ID, error) { return ParseWithPrefix(s, PrefixSettlement) }
func ParseAuditEventID(s string) (ID, error) { return ParseWithPrefix(s, PrefixAuditEvent) }

// String renders "prefix_suffix", or "" for Nil.
func (i ID) String() string {
	if !i.set {
		return ""
	}
	return i.tid.String()
}

func (i ID) Prefix() Prefix {
	if !i.set {
		return ""
	}
	return Prefix(i.tid.Prefix())
}

func (i ID) IsNil() bool { return !i.set }

func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	v, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// Value stores Nil as NULL so optional receipt columns stay empty.
func (i ID) Value() (driver.Value, error) {
	if !i.set {
		return nil, nil //nolint:nilnil // NULL
	}
	return i.tid.String(), nil
}

func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T", src)
	}
}
