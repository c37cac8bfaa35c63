package balancer

import (
	"context"

	"github.com/xraph/balancer/session"
	"github.com/xraph/balancer/types"
)

// JoinSession records that caller accepted the invitation. The join that
// completes the invited set moves the session from Created to Active.
func (b *Balancer) JoinSession(ctx context.Context, sessionID session.ID, caller types.Address) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.store.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if !s.Invited.Contains(caller) {
		return sessionErr(sessionID, ErrNotInvited)
	}
	if s.Joined.Contains(caller) {
		return sessionErr(sessionID, ErrAlreadyJoined)
	}

	s.Joined.Add(caller)
	activated := s.State == session.StateCreated && s.AllJoined()
	if activated {
		s.State = session.StateActive
	}
	s.TouchAt(b.now())

	if err := b.store.UpdateSession(ctx, s); err != nil {
		return err
	}

	b.logger.Debug("participant joined",
		"session_id", sessionID,
		"participant", caller,
		"joined", s.Joined.Len(),
		"invited", s.Invited.Len(),
	)

	b.plugins.EmitParticipantJoined(ctx, session.ParticipantJoined{
		SessionID:   sessionID,
		Participant: caller,
	})
	if activated {
		b.logger.Info("session active", "session_id", sessionID)
		b.plugins.EmitSessionStateChanged(ctx, session.SessionStateChanged{
			SessionID: sessionID,
			State:     session.StateActive,
		})
	}
	return nil
}

// AllParticipantsJoined reports whether every invited participant has
// joined. It is true exactly when the session is Active or Settled.
func (b *Balancer) AllParticipantsJoined(ctx context.Context, sessionID session.ID) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.store.GetSession(ctx, sessionID)
	if err != nil {
		return false, err
	}
	return s.AllJoined(), nil
}
