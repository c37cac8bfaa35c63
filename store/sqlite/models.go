package sqlite

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/balancer/session"
	"github.com/xraph/balancer/types"
)

// sessionModel keeps the membership sets, balances and receipt as JSON text.
type sessionModel struct {
	grove.BaseModel `grove:"table:balancer_sessions"`

	ID         int64     `grove:"id,pk"`
	Creator    string    `grove:"creator"`
	Invited    string    `grove:"invited"`
	Joined     string    `grove:"joined"`
	State      string    `grove:"state"`
	Currency   string    `grove:"currency"`
	Balances   string    `grove:"balances"`
	Settlement *string   `grove:"settlement"`
	CreatedAt  time.Time `grove:"created_at"`
	UpdatedAt  time.Time `grove:"updated_at"`
}

func toSessionModel(s *session.Session) (*sessionModel, error) {
	if uint64(s.ID) > math.MaxInt64 {
		return nil, fmt.Errorf("session %s: id out of INTEGER range", s.ID)
	}
	invited, err := json.Marshal(s.Invited)
	if err != nil {
		return nil, err
	}
	joined, err := json.Marshal(s.Joined)
	if err != nil {
		return nil, err
	}
	balances, err := json.Marshal(s.Balances)
	if err != nil {
		return nil, err
	}

	m := &sessionModel{
		ID:        int64(s.ID),
		Creator:   s.Creator.Hex(),
		Invited:   string(invited),
		Joined:    string(joined),
		State:     s.State.String(),
		Currency:  s.Currency,
		Balances:  string(balances),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.Settlement != nil {
		raw, err := json.Marshal(s.Settlement)
		if err != nil {
			return nil, err
		}
		text := string(raw)
		m.Settlement = &text
	}
	return m, nil
}

func fromSessionModel(m *sessionModel) (*session.Session, error) {
	creator, err := types.ParseAddress(m.Creator)
	if err != nil {
		return nil, fmt.Errorf("session %d: creator: %w", m.ID, err)
	}
	state, err := session.ParseState(m.State)
	if err != nil {
		return nil, fmt.Errorf("session %d: %w", m.ID, err)
	}

	s := &session.Session{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       session.ID(m.ID),
		Creator:  creator,
		State:    state,
		Currency: m.Currency,
	}
	if err := json.Unmarshal([]byte(m.Invited), &s.Invited); err != nil {
		return nil, fmt.Errorf("session %d: invited: %w", m.ID, err)
	}
	if m.Joined != "" {
		if err := json.Unmarshal([]byte(m.Joined), &s.Joined); err != nil {
			return nil, fmt.Errorf("session %d: joined: %w", m.ID, err)
		}
	}
	if m.Balances != "" && m.Balances != "null" {
		if err := json.Unmarshal([]byte(m.Balances), &s.Balances); err != nil {
			return nil, fmt.Errorf("session %d: balances: %w", m.ID, err)
		}
	}
	if m.Settlement != nil {
		s.Settlement = new(session.Settlement)
		if err := json.Unmarshal([]byte(*m.Settlement), s.Settlement); err != nil {
			return nil, fmt.Errorf("session %d: settlement: %w", m.ID, err)
		}
	}
	return s, nil
}
