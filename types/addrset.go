package types

import "encoding/json"

// AddressSet is a set of addresses that remembers insertion order.
// Iteration order is always the order in which members were added, which
// is what aligns a session's participants with its expense vector.
// The zero value is an empty set ready to use.
type AddressSet struct {
	order []Address
	index map[Address]int
}

// NewAddressSet builds a set from addrs, keeping the first occurrence of
// any duplicate. Use Add directly when duplicates must be detected.
func NewAddressSet(addrs ...Address) AddressSet {
	var s AddressSet
	for _, a := range addrs {
		s.Add(a)
	}
	return s
}

// Add inserts a at the end of the set. It reports false if a was already present.
func (s *AddressSet) Add(a Address) bool {
	if s.index == nil {
		s.index = make(map[Address]int)
	}
	if _, ok := s.index[a]; ok {
		return false
	}
	s.index[a] = len(s.order)
	s.order = append(s.order, a)
	return true
}

// Contains reports whether a is a member.
func (s AddressSet) Contains(a Address) bool {
	_, ok := s.index[a]
	return ok
}

// IndexOf returns the insertion position of a, or -1.
func (s AddressSet) IndexOf(a Address) int {
	if i, ok := s.index[a]; ok {
		return i
	}
	return -1
}

// Len returns the number of members.
func (s AddressSet) Len() int { return len(s.order) }

// Slice returns the members in insertion order. The result is a copy.
func (s AddressSet) Slice() []Address {
	out := make([]Address, len(s.order))
	copy(out, s.order)
	return out
}

// Equal reports set equality, ignoring order.
func (s AddressSet) Equal(other AddressSet) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, a := range s.order {
		if !other.Contains(a) {
			return false
		}
	}
	return true
}

// SubsetOf reports whether every member of s is in other.
func (s AddressSet) SubsetOf(other AddressSet) bool {
	for _, a := range s.order {
		if !other.Contains(a) {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s AddressSet) Clone() AddressSet {
	return NewAddressSet(s.order...)
}

// MarshalJSON encodes the set as an ordered JSON array.
func (s AddressSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Slice())
}

// UnmarshalJSON decodes an ordered JSON array.
func (s *AddressSet) UnmarshalJSON(data []byte) error {
	var addrs []Address
	if err := json.Unmarshal(data, &addrs); err != nil {
		return err
	}
	*s = NewAddressSet(addrs...)
	return nil
}
