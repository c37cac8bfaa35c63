// Package postgres implements the Balancer store on PostgreSQL via Grove ORM.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/pgdriver"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/balancer"
	"github.com/xraph/balancer/session"
	balancerstore "github.com/xraph/balancer/store"
	"github.com/xraph/balancer/types"
)

// compile-time interface check
var _ balancerstore.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL via Grove ORM.
type Store struct {
	db *grove.DB
	pg *pgdriver.PgDB
}

// New creates a new PostgreSQL store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db: db,
		pg: pgdriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.pg)
	if err != nil {
		return fmt.Errorf("balancer/postgres: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("balancer/postgres: migration failed: %w", err)
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

// NextSessionID returns one past the highest id ever inserted. Rows are never
// deleted, so MAX(id) only grows.
func (s *Store) NextSessionID(ctx context.Context) (session.ID, error) {
	var next int64
	err := s.pg.NewRaw(`SELECT COALESCE(MAX(id), 0) + 1 FROM balancer_sessions`).Scan(ctx, &next)
	if err != nil {
		return 0, fmt.Errorf("balancer/postgres: next session id: %w", err)
	}
	return session.ID(next), nil
}

func (s *Store) CreateSession(ctx context.Context, sess *session.Session) error {
	m, err := toSessionModel(sess)
	if err != nil {
		return err
	}
	res, err := s.pg.NewInsert(m).
		OnConflict("(id) DO NOTHING").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("balancer/postgres: create session: %w", err)
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
	err := s.pg.NewSelect(m).
		Where("id = $1", int64(sessionID)).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, fmt.Errorf("session %s: %w", sessionID, balancer.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("balancer/postgres: get session: %w", err)
	}
	return fromSessionModel(m)
}

func (s *Store) SessionExists(ctx context.Context, sessionID session.ID) (bool, error) {
	var n int64
	err := s.pg.NewRaw(`SELECT COUNT(*) FROM balancer_sessions WHERE id = $1`, int64(sessionID)).
		Scan(ctx, &n)
	if err != nil {
		return false, fmt.Errorf("balancer/postgres: session exists: %w", err)
	}
	return n > 0, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess *session.Session) error {
	m, err := toSessionModel(sess)
	if err != nil {
		return err
	}
	res, err := s.pg.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("balancer/postgres: update session: %w", err)
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
	q := s.pg.NewSelect(&models)

	argIdx := 0
	if opts.State != nil {
		argIdx++
		q = q.Where(fmt.Sprintf("state = $%d", argIdx), opts.State.String())
	}
	if !opts.Creator.IsZero() {
		argIdx++
		q = q.Where(fmt.Sprintf("creator = $%d", argIdx), opts.Creator.Hex())
	}
	if !opts.Participant.IsZero() {
		needle, err := json.Marshal([]types.Address{opts.Participant})
		if err != nil {
			return nil, err
		}
		argIdx++
		q = q.Where(fmt.Sprintf("invited @> $%d::jsonb", argIdx), string(needle))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("balancer/postgres: list sessions: %w", err)
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
