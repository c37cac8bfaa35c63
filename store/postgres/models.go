package postgres

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/balancer/session"
	"github.com/xraph/balancer/types"
)

type sessionModel struct {
	grove.BaseModel `grove:"table:balancer_sessions"`

	ID         int64           `grove:"id,pk"`
	Creator    string          `grove:"creator"`
	Invited    json.RawMessage `grove:"invited,type:jsonb"`
	Joined     json.RawMessage `grove:"joined,type:jsonb"`
	State      string          `grove:"state"`
	Currency   string          `grove:"currency"`
	Balances   json.RawMessage `grove:"balances,type:jsonb"`
	Settlement json.RawMessage `grove:"settlement,type:jsonb"`
	CreatedAt  time.Time       `grove:"created_at"`
	UpdatedAt  time.Time       `grove:"updated_at"`
}

func toSessionModel(s *session.Session) (*sessionModel, error) {
	if uint64(s.ID) > math.MaxInt64 {
		return nil, fmt.Errorf("session %s: id out of BIGINT range", s.ID)
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
	var settlement json.RawMessage
	if s.Settlement != nil {
		if settlement, err = json.Marshal(s.Settlement); err != nil {
			return nil, err
		}
	}

	return &sessionModel{
		ID:         int64(s.ID),
		Creator:    s.Creator.Hex(),
		Invited:    invited,
		Joined:     joined,
		State:      s.State.String(),
		Currency:   s.Currency,
		Balances:   balances,
		Settlement: settlement,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}, nil
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
	if err := json.Unmarshal(m.Invited, &s.Invited); err != nil {
		return nil, fmt.Errorf("session %d: invited: %w", m.ID, err)
	}
	if len(m.Joined) > 0 {
		if err := json.Unmarshal(m.Joined, &s.Joined); err != nil {
			return nil, fmt.Errorf("session %d: joined: %w", m.ID, err)
		}
	}
	if len(m.Balances) > 0 && string(m.Balances) != "null" {
		if err := json.Unmarshal(m.Balances, &s.Balances); err != nil {
			return nil, fmt.Errorf("session %d: balances: %w", m.ID, err)
		}
	}
	if len(m.Settlement) > 0 && string(m.Settlement) != "null" {
		s.Settlement = new(session.Settlement)
		if err := json.Unmarshal(m.Settlement, s.Settlement); err != nil {
			return nil, fmt.Errorf("session %d: settlement: %w", m.ID, err)
		}
	}
	return s, nil
}
