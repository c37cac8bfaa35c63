// Package memory is an in-process Store for tests, demos and the CLI.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/xraph/balancer"
	"github.com/xraph/balancer/session"
	"github.com/xraph/balancer/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps sessions in a map. Every read and write goes through a deep
// copy so callers never alias stored state.
type Store struct {
	mu sync.RWMutex

	sessions map[session.ID]*session.Session
	lastID   session.ID
	closed   bool
}

func New() *Store {
	return &Store{
		sessions: make(map[session.ID]*session.Session),
	}
}

// Session Store implementation
func (s *Store) NextSessionID(_ context.Context) (session.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, balancer.ErrStoreClosed
	}
	return s.lastID + 1, nil
}

func (s *Store) CreateSession(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return balancer.ErrStoreClosed
	}
	if _, exists := s.sessions[sess.ID]; exists {
		return fmt.Errorf("session %s: %w", sess.ID, balancer.ErrSessionAlreadyExists)
	}
	s.sessions[sess.ID] = sess.Clone()
	if sess.ID > s.lastID {
		s.lastID = sess.ID
	}
	return nil
}

func (s *Store) GetSession(_ context.Context, sessionID session.ID) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, balancer.ErrStoreClosed
	}
	if sess, ok := s.sessions[sessionID]; ok {
		return sess.Clone(), nil
	}
	return nil, fmt.Errorf("session %s: %w", sessionID, balancer.ErrSessionNotFound)
}

func (s *Store) SessionExists(_ context.Context, sessionID session.ID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, balancer.ErrStoreClosed
	}
	_, ok := s.sessions[sessionID]
	return ok, nil
}

func (s *Store) UpdateSession(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return balancer.ErrStoreClosed
	}
	if _, exists := s.sessions[sess.ID]; !exists {
		return fmt.Errorf("session %s: %w", sess.ID, balancer.ErrSessionNotFound)
	}
	s.sessions[sess.ID] = sess.Clone()
	return nil
}

func (s *Store) ListSessions(_ context.Context, opts session.ListOpts) ([]*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, balancer.ErrStoreClosed
	}

	result := make([]*session.Session, 0)
	for _, sess := range s.sessions {
		if opts.Matches(sess) {
			result = append(result, sess.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })

	// Apply limit/offset
	start := max(opts.Offset, 0)
	if start > len(result) {
		start = len(result)
	}
	end := start + opts.Limit
	if opts.Limit <= 0 || end > len(result) {
		end = len(result)
	}

	return result[start:end], nil
}

// Store management
func (s *Store) Migrate(_ context.Context) error {
	return nil // No migration needed for memory store
}

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return balancer.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}
