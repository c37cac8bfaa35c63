package session

import "github.com/xraph/balancer/types"

// SessionCreated is emitted once a new session has been stored.
type SessionCreated struct {
	SessionID ID              `json:"session_id"`
	Creator   types.Address   `json:"creator"`
	Invited   []types.Address `json:"invited"`
}

// ParticipantJoined is emitted for every successful join.
type ParticipantJoined struct {
	SessionID   ID            `json:"session_id"`
	Participant types.Address `json:"participant"`
}

// SessionStateChanged is emitted on each forward state transition.
type SessionStateChanged struct {
	SessionID ID    `json:"session_id"`
	State     State `json:"state"`
}

// SessionSettled carries the checkout receipt to payment collaborators.
// It follows the SessionStateChanged event for the Settled transition.
type SessionSettled struct {
	SessionID  ID          `json:"session_id"`
	Settlement *Settlement `json:"settlement"`
}
