package balancer

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/balancer/id"
	"github.com/xraph/balancer/session"
	"github.com/xraph/balancer/settlement"
	"github.com/xraph/balancer/types"
)

// Checkout settles an Active session. expenses[i] is what the i-th invited
// participant paid, in invitation order. Each participant's balance is what
// they paid minus an equal share of the total; positive means they are owed.
//
// Checks run in this order: existence, caller, already settled, not active,
// length, currency, sign, overflow, then any CheckoutValidator plugins. A
// failed check writes nothing and emits nothing.
func (b *Balancer) Checkout(ctx context.Context, sessionID session.ID, caller types.Address, expenses []types.Money) (*session.Settlement, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if caller.IsZero() {
		return nil, sessionErr(sessionID, fmt.Errorf("%w: caller is the zero address", ErrInvalidAddress))
	}
	switch s.State {
	case session.StateActive:
	case session.StateSettled:
		return nil, sessionErr(sessionID, ErrAlreadySettled)
	default:
		return nil, sessionErr(sessionID, fmt.Errorf("%w: state is %s", ErrNotActive, s.State))
	}

	participants := s.Invited.Slice()
	if len(expenses) != len(participants) {
		return nil, sessionErr(sessionID, fmt.Errorf("%w: got %d expenses for %d participants",
			ErrLengthMismatch, len(expenses), len(participants)))
	}

	res, err := settlement.EvenSplit(s.Currency, expenses)
	if err != nil {
		return nil, sessionErr(sessionID, translateSettlementErr(err))
	}

	if err := b.plugins.ValidateCheckout(ctx, s.Clone(), append([]types.Money(nil), expenses...)); err != nil {
		return nil, sessionErr(sessionID, err)
	}

	balances := make([]session.Balance, len(participants))
	for i, p := range participants {
		balances[i] = session.Balance{Participant: p, Amount: res.Balances[i]}
	}

	now := b.now().UTC()
	receipt := &session.Settlement{
		ID:        id.NewSettlementID(),
		SessionID: sessionID,
		SettledBy: caller,
		Expenses:  append([]types.Money(nil), expenses...),
		Total:     res.Total,
		Share:     res.Share,
		Remainder: res.Remainder,
		Balances:  balances,
		SettledAt: now,
	}

	s.Balances = append([]session.Balance(nil), balances...)
	s.Settlement = receipt
	s.State = session.StateSettled
	s.TouchAt(now)

	if err := b.store.UpdateSession(ctx, s); err != nil {
		return nil, err
	}

	b.logger.Info("session settled",
		"session_id", sessionID,
		"settlement_id", receipt.ID,
		"settled_by", caller,
		"total", res.Total,
		"share", res.Share,
		"remainder", res.Remainder,
	)

	b.plugins.EmitSessionStateChanged(ctx, session.SessionStateChanged{
		SessionID: sessionID,
		State:     session.StateSettled,
	})
	b.plugins.EmitSessionSettled(ctx, session.SessionSettled{
		SessionID:  sessionID,
		Settlement: receipt.Clone(),
	})

	return receipt.Clone(), nil
}

// GetParticipantBalance returns a participant's balance after checkout.
// Before checkout it returns zero in the session currency together with
// ErrNotSettled.
func (b *Balancer) GetParticipantBalance(ctx context.Context, sessionID session.ID, participant types.Address) (types.Money, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.store.GetSession(ctx, sessionID)
	if err != nil {
		return types.Money{}, err
	}
	zero := types.Zero(s.Currency)
	if s.State != session.StateSettled {
		return zero, sessionErr(sessionID, ErrNotSettled)
	}
	amount, ok := s.BalanceOf(participant)
	if !ok {
		return zero, sessionErr(sessionID, fmt.Errorf("%w: %s", ErrNotParticipant, participant))
	}
	return amount, nil
}

// GetSettlement returns the checkout receipt, or ErrNotSettled.
func (b *Balancer) GetSettlement(ctx context.Context, sessionID session.ID) (*session.Settlement, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Settlement == nil {
		return nil, sessionErr(sessionID, ErrNotSettled)
	}
	return s.Settlement, nil
}

func translateSettlementErr(err error) error {
	switch {
	case errors.Is(err, settlement.ErrCurrencyMismatch):
		return fmt.Errorf("%w: %w", ErrCurrencyMismatch, err)
	case errors.Is(err, settlement.ErrNegativeAmount):
		return fmt.Errorf("%w: %w", ErrNegativeAmount, err)
	case errors.Is(err, settlement.ErrOverflow):
		return fmt.Errorf("%w: %w", ErrAmountOverflow, err)
	case errors.Is(err, settlement.ErrNoExpenses):
		return fmt.Errorf("%w: %w", ErrNoParticipants, err)
	default:
		return err
	}
}
