// Package session holds the settlement session record, its lifecycle events
// and the storage contract backends implement.
package session

import (
	"fmt"
	"strconv"
	"time"

	"github.com/xraph/balancer/id"
	"github.com/xraph/balancer/types"
)

// ID is a session identifier. Ids are allocated by the store in auto mode or
// supplied by the caller in explicit mode, and are never reused.
type ID uint64

// String returns the decimal form of the id.
func (i ID) String() string { return strconv.FormatUint(uint64(i), 10) }

// ParseID parses a decimal session id.
func ParseID(s string) (ID, error) {
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("session: parse id %q: %w", s, err)
	}
	return ID(n), nil
}

// State is the lifecycle stage of a session. It only moves forward:
// Created, then Active once everyone has joined, then Settled after checkout.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receiver for UnmarshalText.
type State uint8

const (
	StateCreated State = 0
	StateActive  State = 1
	StateSettled State = 2
)

var stateNames = [...]string{
	StateCreated: "created",
	StateActive:  "active",
	StateSettled: "settled",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Valid reports whether s is a known state.
func (s State) Valid() bool { return int(s) < len(stateNames) }

// ParseState accepts the lowercase name or the numeric code.
func ParseState(s string) (State, error) {
	for i, name := range stateNames {
		if name == s {
			return State(i), nil
		}
	}
	if n, err := strconv.ParseUint(s, 10, 8); err == nil && State(n).Valid() {
		return State(n), nil
	}
	return 0, fmt.Errorf("session: unknown state %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(data []byte) error {
	parsed, err := ParseState(string(data))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Session is one settlement group. Invited is fixed at creation and defines
// the participant order that expense vectors and balances follow.
type Session struct {
	types.Entity
	ID         ID               `json:"id"`
	Creator    types.Address    `json:"creator"`
	Invited    types.AddressSet `json:"invited"`
	Joined     types.AddressSet `json:"joined"`
	State      State            `json:"state"`
	Currency   string           `json:"currency"`
	Balances   []Balance        `json:"balances,omitempty"`
	Settlement *Settlement      `json:"settlement,omitempty"`
}

// Balance is one participant's net position after checkout.
// Positive means the participant is owed, negative means they owe.
type Balance struct {
	Participant types.Address `json:"participant"`
	Amount      types.Money   `json:"amount"`
}

// Settlement is the receipt written by checkout.
type Settlement struct {
	ID        id.SettlementID `json:"id"`
	SessionID ID              `json:"session_id"`
	SettledBy types.Address   `json:"settled_by"`
	Expenses  []types.Money   `json:"expenses"`
	Total     types.Money     `json:"total"`
	Share     types.Money     `json:"share"`
	Remainder types.Money     `json:"remainder"`
	Balances  []Balance       `json:"balances"`
	SettledAt time.Time       `json:"settled_at"`
}

// ListOpts filters ListSessions. Zero values mean "no filter".
type ListOpts struct {
	State       *State
	Creator     types.Address
	Participant types.Address
	Limit       int
	Offset      int
}

// Matches reports whether s passes the filters in o. Limit and Offset are
// not considered.
func (o ListOpts) Matches(s *Session) bool {
	if o.State != nil && s.State != *o.State {
		return false
	}
	if !o.Creator.IsZero() && s.Creator != o.Creator {
		return false
	}
	if !o.Participant.IsZero() && !s.Invited.Contains(o.Participant) {
		return false
	}
	return true
}

// AllJoined reports whether every invited participant has joined.
func (s *Session) AllJoined() bool {
	return s.Joined.Len() == s.Invited.Len() && s.Joined.SubsetOf(s.Invited)
}

// BalanceOf returns the stored balance of participant, if any.
func (s *Session) BalanceOf(participant types.Address) (types.Money, bool) {
	for _, b := range s.Balances {
		if b.Participant == participant {
			return b.Amount, true
		}
	}
	return types.Money{}, false
}

// Clone returns a deep copy that shares no mutable state with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Invited = s.Invited.Clone()
	c.Joined = s.Joined.Clone()
	c.Balances = cloneBalances(s.Balances)
	c.Settlement = s.Settlement.Clone()
	return &c
}

// Clone returns a deep copy of the receipt.
func (st *Settlement) Clone() *Settlement {
	if st == nil {
		return nil
	}
	c := *st
	if st.Expenses != nil {
		c.Expenses = append([]types.Money(nil), st.Expenses...)
	}
	c.Balances = cloneBalances(st.Balances)
	return &c
}

func cloneBalances(in []Balance) []Balance {
	if in == nil {
		return nil
	}
	return append([]Balance(nil), in...)
}
