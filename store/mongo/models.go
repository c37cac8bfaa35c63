package mongo

import (
	"fmt"
	"math"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/balancer/id"
	"github.com/xraph/balancer/session"
	"github.com/xraph/balancer/types"
)

type sessionModel struct {
	grove.BaseModel `grove:"table:balancer_sessions"`

	ID         int64            `grove:"id,pk"      bson:"_id"`
	Creator    string           `grove:"creator"    bson:"creator"`
	Invited    []string         `grove:"invited"    bson:"invited"`
	Joined     []string         `grove:"joined"     bson:"joined"`
	State      string           `grove:"state"      bson:"state"`
	Currency   string           `grove:"currency"   bson:"currency"`
	Balances   []balanceModel   `grove:"balances"   bson:"balances,omitempty"`
	Settlement *settlementModel `grove:"settlement" bson:"settlement,omitempty"`
	CreatedAt  time.Time        `grove:"created_at" bson:"created_at"`
	UpdatedAt  time.Time        `grove:"updated_at" bson:"updated_at"`
}

type balanceModel struct {
	Participant string `bson:"participant"`
	Amount      int64  `bson:"amount"`
	Currency    string `bson:"currency"`
}

type settlementModel struct {
	ID        string         `bson:"id"`
	SettledBy string         `bson:"settled_by"`
	Currency  string         `bson:"currency"`
	Expenses  []int64        `bson:"expenses"`
	Total     int64          `bson:"total"`
	Share     int64          `bson:"share"`
	Remainder int64          `bson:"remainder"`
	Balances  []balanceModel `bson:"balances"`
	SettledAt time.Time      `bson:"settled_at"`
}

func toSessionModel(s *session.Session) (*sessionModel, error) {
	if uint64(s.ID) > math.MaxInt64 {
		return nil, fmt.Errorf("session %s: id out of int64 range", s.ID)
	}
	return &sessionModel{
		ID:         int64(s.ID),
		Creator:    s.Creator.Hex(),
		Invited:    hexes(s.Invited.Slice()),
		Joined:     hexes(s.Joined.Slice()),
		State:      s.State.String(),
		Currency:   s.Currency,
		Balances:   toBalanceModels(s.Balances),
		Settlement: toSettlementModel(s.Settlement),
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
	}, nil
}

func toSettlementModel(st *session.Settlement) *settlementModel {
	if st == nil {
		return nil
	}
	expenses := make([]int64, len(st.Expenses))
	for i, e := range st.Expenses {
		expenses[i] = e.Amount
	}
	return &settlementModel{
		ID:        st.ID.String(),
		SettledBy: st.SettledBy.Hex(),
		Currency:  st.Total.Currency,
		Expenses:  expenses,
		Total:     st.Total.Amount,
		Share:     st.Share.Amount,
		Remainder: st.Remainder.Amount,
		Balances:  toBalanceModels(st.Balances),
		SettledAt: st.SettledAt,
	}
}

func toBalanceModels(in []session.Balance) []balanceModel {
	if len(in) == 0 {
		return nil
	}
	out := make([]balanceModel, len(in))
	for i, b := range in {
		out[i] = balanceModel{
			Participant: b.Participant.Hex(),
			Amount:      b.Amount.Amount,
			Currency:    b.Amount.Currency,
		}
	}
	return out
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
	invited, err := parseAddresses(m.Invited)
	if err != nil {
		return nil, fmt.Errorf("session %d: invited: %w", m.ID, err)
	}
	joined, err := parseAddresses(m.Joined)
	if err != nil {
		return nil, fmt.Errorf("session %d: joined: %w", m.ID, err)
	}
	balances, err := fromBalanceModels(m.Balances)
	if err != nil {
		return nil, fmt.Errorf("session %d: balances: %w", m.ID, err)
	}

	s := &session.Session{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:       session.ID(m.ID),
		Creator:  creator,
		Invited:  types.NewAddressSet(invited...),
		Joined:   types.NewAddressSet(joined...),
		State:    state,
		Currency: m.Currency,
		Balances: balances,
	}
	if m.Settlement != nil {
		st, err := fromSettlementModel(s.ID, m.Settlement)
		if err != nil {
			return nil, fmt.Errorf("session %d: settlement: %w", m.ID, err)
		}
		s.Settlement = st
	}
	return s, nil
}

func fromSettlementModel(sessionID session.ID, m *settlementModel) (*session.Settlement, error) {
	stlID, err := id.ParseSettlementID(m.ID)
	if err != nil {
		return nil, err
	}
	settledBy, err := types.ParseAddress(m.SettledBy)
	if err != nil {
		return nil, err
	}
	balances, err := fromBalanceModels(m.Balances)
	if err != nil {
		return nil, err
	}
	expenses := make([]types.Money, len(m.Expenses))
	for i, e := range m.Expenses {
		expenses[i] = types.Money{Amount: e, Currency: m.Currency}
	}
	return &session.Settlement{
		ID:        stlID,
		SessionID: sessionID,
		SettledBy: settledBy,
		Expenses:  expenses,
		Total:     types.Money{Amount: m.Total, Currency: m.Currency},
		Share:     types.Money{Amount: m.Share, Currency: m.Currency},
		Remainder: types.Money{Amount: m.Remainder, Currency: m.Currency},
		Balances:  balances,
		SettledAt: m.SettledAt,
	}, nil
}

func fromBalanceModels(in []balanceModel) ([]session.Balance, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make([]session.Balance, len(in))
	for i, b := range in {
		addr, err := types.ParseAddress(b.Participant)
		if err != nil {
			return nil, err
		}
		out[i] = session.Balance{
			Participant: addr,
			Amount:      types.Money{Amount: b.Amount, Currency: b.Currency},
		}
	}
	return out, nil
}

func hexes(addrs []types.Address) []string {
	out := make([]string, len(addrs))
	for i, a := range addrs {
		out[i] = a.Hex()
	}
	return out
}

func parseAddresses(in []string) ([]types.Address, error) {
	out := make([]types.Address, len(in))
	for i, h := range in {
		a, err := types.ParseAddress(h)
		if err != nil {
			return nil, err
		}
		out[i] = a
	}
	return out, nil
}
