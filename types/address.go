package types

import (
	"database/sql/driver"
	"encoding/hex"
	"fmt"
	"strings"
)

// AddressLength is the width of a participant identity in bytes.
const AddressLength = 20

// Address identifies an account taking part in a session. It is a
// fixed-width key so it can be compared with == and used as a map key.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type Address [AddressLength]byte

// ZeroAddress is the all-zero address. It never identifies a participant.
var ZeroAddress Address

// ParseAddress parses a 0x-prefixed, 40 hex digit address. Case is ignored.
func ParseAddress(s string) (Address, error) {
	var a Address
	raw := strings.TrimSpace(s)
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		return a, fmt.Errorf("address: parse %q: missing 0x prefix", s)
	}
	raw = raw[2:]
	if len(raw) != AddressLength*2 {
		return a, fmt.Errorf("address: parse %q: want %d hex digits, got %d", s, AddressLength*2, len(raw))
	}
	if _, err := hex.Decode(a[:], []byte(raw)); err != nil {
		return ZeroAddress, fmt.Errorf("address: parse %q: %w", s, err)
	}
	return a, nil
}

// MustParseAddress is like ParseAddress but panics on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AddressFromUint64 builds an address whose low-order bytes hold n.
// Handy for fixtures: AddressFromUint64(1) is 0x00…01.
func AddressFromUint64(n uint64) Address {
	var a Address
	for i := AddressLength - 1; i >= AddressLength-8; i-- {
		a[i] = byte(n)
		n >>= 8
	}
	return a
}

// Hex returns the 0x-prefixed lowercase hex form.
func (a Address) Hex() string {
	return "0x" + hex.EncodeToString(a[:])
}

// String implements fmt.Stringer.
func (a Address) String() string { return a.Hex() }

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool { return a == ZeroAddress }

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(data []byte) error {
	parsed, err := ParseAddress(string(data))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Value implements driver.Valuer for database storage.
func (a Address) Value() (driver.Value, error) {
	return a.Hex(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (a *Address) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return a.UnmarshalText([]byte(v))
	case []byte:
		return a.UnmarshalText(v)
	default:
		return fmt.Errorf("address: cannot scan %T into Address", src)
	}
}
