// Package sqlite implements the Balancer store on SQLite via Grove ORM.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/balancer"
	"github.com/xraph/balancer/session"
	balancerstore "github.com/xraph/balancer/store"
)

// compile-time interface check
var _ balancerstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("balancer/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("balancer/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Session Store ====================

func (s *Store) NextSessionID(ctx context.Context) (session.ID, error) {
	var next int64
	err := s.sdb.NewRaw(`SELECT COALESCE(MAX(id), 0) + 1 FROM balancer_sessions`).Scan(ctx, &next)
	if err != nil {
		return 0, fmt.Errorf("balancer/sqlite: next session id: %w", err)
	}
	return session.ID(next), nil
}

func (s *Store) CreateSession(ctx context.Context, sess *session.Session) error {
	m, err := toSessionModel(sess)
	if err != nil {
		return err
	}
	res, err := s.sdb.NewInsert(m).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("balancer/sqlite: create session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("session %s: %w", sess.ID, balancer.ErrSessionAlreadyExists)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID session.ID) (*session.Session, error) {
	m := new(sessionModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", int64(sessionID)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("session %s: %w", sessionID, balancer.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("balancer/sqlite: get session: %w", err)
	}
	return fromSessionModel(m)
}

func (s *Store) SessionExists(ctx context.Context, sessionID session.ID) (bool, error) {
	var n int64
	err := s.sdb.NewRaw(`SELECT COUNT(*) FROM balancer_sessions WHERE id = ?`, int64(sessionID)).
		Scan(ctx, &n)
	if err != nil {
		return false, fmt.Errorf("balancer/sqlite: session exists: %w", err)
	}
	return n > 0, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess *session.Session) error {
	m, err := toSessionModel(sess)
	if err != nil {
		return err
	}
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("balancer/sqlite: update session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("session %s: %w", sess.ID, balancer.ErrSessionNotFound)
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context, opts session.ListOpts) ([]*session.Session, error) {
	var models []sessionModel
	q := s.sdb.NewSelect(&models)

	if opts.State != nil {
		q = q.Where("state = ?", opts.State.String())
	}
	if !opts.Creator.IsZero() {
		q = q.Where("creator = ?", opts.Creator.Hex())
	}
	if !opts.Participant.IsZero() {
		q = q.Where("EXISTS (SELECT 1 FROM json_each(invited) WHERE json_each.value = ?)", opts.Participant.Hex())
	}
	switch {
	case opts.Limit > 0:
		q = q.Limit(opts.Limit)
	case opts.Offset > 0:
		// SQLite rejects OFFSET without LIMIT.
		q = q.Limit(-1)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("balancer/sqlite: list sessions: %w", err)
	}

	result := make([]*session.Session, len(models))
	for i := range models {
		sess, err := fromSessionModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = sess
	}
	return result, nil
}

// ==================== Helpers ====================

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
