// Package mongo implements the Balancer store on MongoDB via Grove's mongo driver.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/balancer"
	"github.com/xraph/balancer/session"
	balancerstore "github.com/xraph/balancer/store"
)

// Collection name constants.
const (
	colSessions = "balancer_sessions"
)

// compile-time interface check
var _ balancerstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all balancer collections.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("balancer/mongo: migrate %s indexes: %w", col, err)
		}
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

// NextSessionID returns one past the highest _id in the collection. Sessions
// are never deleted, so the highest _id only grows.
func (s *Store) NextSessionID(ctx context.Context) (session.ID, error) {
	var models []sessionModel
	err := s.mdb.NewFind(&models).
		Filter(bson.M{}).
		Sort(bson.D{{Key: "_id", Value: -1}}).
		Limit(1).
		Scan(ctx)
	if err != nil && !isNoDocuments(err) {
		return 0, fmt.Errorf("balancer/mongo: next session id: %w", err)
	}
	if len(models) == 0 {
		return 1, nil
	}
	return session.ID(models[0].ID + 1), nil
}

func (s *Store) CreateSession(ctx context.Context, sess *session.Session) error {
	m, err := toSessionModel(sess)
	if err != nil {
		return err
	}
	if _, err := s.mdb.NewInsert(m).Exec(ctx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("session %s: %w", sess.ID, balancer.ErrSessionAlreadyExists)
		}
		return fmt.Errorf("balancer/mongo: create session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, sessionID session.ID) (*session.Session, error) {
	var m sessionModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": int64(sessionID)}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, fmt.Errorf("session %s: %w", sessionID, balancer.ErrSessionNotFound)
		}
		return nil, fmt.Errorf("balancer/mongo: get session: %w", err)
	}
	return fromSessionModel(&m)
}

func (s *Store) SessionExists(ctx context.Context, sessionID session.ID) (bool, error) {
	n, err := s.mdb.Collection(colSessions).CountDocuments(ctx, bson.M{"_id": int64(sessionID)})
	if err != nil {
		return false, fmt.Errorf("balancer/mongo: session exists: %w", err)
	}
	return n > 0, nil
}

func (s *Store) UpdateSession(ctx context.Context, sess *session.Session) error {
	m, err := toSessionModel(sess)
	if err != nil {
		return err
	}
	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("balancer/mongo: update session: %w", err)
	}
	if res.MatchedCount() == 0 {
		return fmt.Errorf("session %s: %w", sess.ID, balancer.ErrSessionNotFound)
	}
	return nil
}

func (s *Store) ListSessions(ctx context.Context, opts session.ListOpts) ([]*session.Session, error) {
	var models []sessionModel

	filter := bson.M{}
	if opts.State != nil {
		filter["state"] = opts.State.String()
	}
	if !opts.Creator.IsZero() {
		filter["creator"] = opts.Creator.Hex()
	}
	if !opts.Participant.IsZero() {
		filter["invited"] = opts.Participant.Hex()
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})

	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("balancer/mongo: list sessions: %w", err)
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

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all balancer collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colSessions: {
			{Keys: bson.D{{Key: "state", Value: 1}}},
			{Keys: bson.D{{Key: "creator", Value: 1}}},
			{Keys: bson.D{{Key: "invited", Value: 1}}},
			{
				Keys:    bson.D{{Key: "settlement.id", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
	}
}
