package balancer

import (
	"context"
	"fmt"

	"github.com/xraph/balancer/session"
	"github.com/xraph/balancer/types"
)

// CreateSession stores a new session with the next auto-allocated id and
// returns that id. The invited order is fixed here and is the order checkout
// expenses must follow.
func (b *Balancer) CreateSession(ctx context.Context, creator types.Address, invited []types.Address) (session.ID, error) {
	if b.idMode != IDModeAuto {
		return 0, fmt.Errorf("create session: %w: ids are caller-supplied", ErrWrongIDMode)
	}
	set, err := validateInvitation(creator, invited)
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sessionID, err := b.store.NextSessionID(ctx)
	if err != nil {
		return 0, err
	}
	if err := b.create(ctx, sessionID, creator, set); err != nil {
		return 0, err
	}
	return sessionID, nil
}

// CreateSessionWithID stores a new session under a caller-supplied id.
// It fails with ErrSessionAlreadyExists, and changes nothing, when the id is
// taken.
func (b *Balancer) CreateSessionWithID(ctx context.Context, sessionID session.ID, creator types.Address, invited []types.Address) error {
	if b.idMode != IDModeExplicit {
		return fmt.Errorf("create session %s: %w: ids are auto-allocated", sessionID, ErrWrongIDMode)
	}
	if sessionID == 0 {
		return ValidationError{Field: "session_id", Message: "0 is reserved"}
	}
	set, err := validateInvitation(creator, invited)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	exists, err := b.store.SessionExists(ctx, sessionID)
	if err != nil {
		return err
	}
	if exists {
		return sessionErr(sessionID, ErrSessionAlreadyExists)
	}
	return b.create(ctx, sessionID, creator, set)
}

func (b *Balancer) create(ctx context.Context, sessionID session.ID, creator types.Address, invited types.AddressSet) error {
	s := &session.Session{
		Entity:   types.NewEntityAt(b.now()),
		ID:       sessionID,
		Creator:  creator,
		Invited:  invited,
		State:    session.StateCreated,
		Currency: b.currency,
	}
	if err := b.store.CreateSession(ctx, s); err != nil {
		return err
	}

	b.logger.Debug("session created",
		"session_id", sessionID,
		"creator", creator,
		"participants", invited.Len(),
	)

	b.plugins.EmitSessionCreated(ctx, session.SessionCreated{
		SessionID: sessionID,
		Creator:   creator,
		Invited:   invited.Slice(),
	})
	return nil
}

func validateInvitation(creator types.Address, invited []types.Address) (types.AddressSet, error) {
	var set types.AddressSet
	if creator.IsZero() {
		return set, fmt.Errorf("%w: creator is the zero address", ErrInvalidAddress)
	}
	if len(invited) == 0 {
		return set, ErrNoParticipants
	}
	for i, a := range invited {
		if a.IsZero() {
			return types.AddressSet{}, fmt.Errorf("%w: invited[%d] is the zero address", ErrInvalidAddress, i)
		}
		if !set.Add(a) {
			return types.AddressSet{}, fmt.Errorf("%w: %s", ErrDuplicateParticipant, a)
		}
	}
	return set, nil
}

// SessionExists reports whether a session with the id has been created.
func (b *Balancer) SessionExists(ctx context.Context, sessionID session.ID) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.store.SessionExists(ctx, sessionID)
}

// GetSession returns a copy of the stored session.
func (b *Balancer) GetSession(ctx context.Context, sessionID session.ID) (*session.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.store.GetSession(ctx, sessionID)
}

// ListSessions returns sessions matching opts in id order.
func (b *Balancer) ListSessions(ctx context.Context, opts session.ListOpts) ([]*session.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.store.ListSessions(ctx, opts)
}
