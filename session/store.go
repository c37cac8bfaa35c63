package session

import "context"

// Store persists sessions. Implementations hand out and accept copies: a
// *Session returned by a Store is owned by the caller.
type Store interface {
	// NextSessionID returns the id the next auto-allocated session gets.
	// It moves past an id only once a session with that id is created.
	NextSessionID(ctx context.Context) (ID, error)
	CreateSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, sessionID ID) (*Session, error)
	SessionExists(ctx context.Context, sessionID ID) (bool, error)
	UpdateSession(ctx context.Context, s *Session) error
	ListSessions(ctx context.Context, opts ListOpts) ([]*Session, error)
}
