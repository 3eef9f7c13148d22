// internal/adapter/storage/session_store.go

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"rendezvous/internal/domain/collab"
	"rendezvous/internal/domain/errs"
)

// SessionStore implements storage for collaboration sessions
type SessionStore struct {
	db *pgxpool.Pool
}

// NewSessionStore creates a new session store
func NewSessionStore(db *pgxpool.Pool) *SessionStore {
	return &SessionStore{
		db: db,
	}
}

// querier is satisfied by both the pool and a transaction
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// CreateSession saves a new session
func (s *SessionStore) CreateSession(ctx context.Context, session collab.Session) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sessions (id, pending, lat, lng, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, session.ID, session.Pending, session.Location.Lat, session.Location.Lng, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID
func (s *SessionStore) GetSession(ctx context.Context, id string) (*collab.Session, error) {
	return loadSession(ctx, s.db, id, false)
}

// FindSessionByMember finds the oldest session user belongs to
func (s *SessionStore) FindSessionByMember(ctx context.Context, user string) (*collab.Session, error) {
	var id string
	err := s.db.QueryRow(ctx, `
		SELECT s.id
		FROM sessions s
		WHERE $1 = ANY(s.pending)
		OR EXISTS (
			SELECT 1 FROM session_contributions c
			WHERE c.session_id = s.id AND c.member = $1
		)
		ORDER BY s.created_at
		LIMIT 1
	`, user).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying session: %w", err)
	}
	return loadSession(ctx, s.db, id, false)
}

// Contribute moves the contributor from pending to contributions. The
// conditional update holds the session row lock, so two contributions by
// the same member cannot both succeed.
func (s *SessionStore) Contribute(ctx context.Context, id string, c collab.Contribution) (*collab.Session, error) {
	var session *collab.Session

	err := s.db.BeginFunc(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE sessions
			SET pending = array_remove(pending, $2)
			WHERE id = $1 AND $2 = ANY(pending)
		`, id, c.By)
		if err != nil {
			return fmt.Errorf("error updating session: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return contributeFailure(ctx, tx, id, c.By)
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO session_contributions (session_id, member, item, contributed_at)
			VALUES ($1, $2, $3, $4)
		`, id, c.By, c.Item, c.At)
		if err != nil {
			return fmt.Errorf("error inserting contribution: %w", err)
		}

		session, err = loadSession(ctx, tx, id, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func contributeFailure(ctx context.Context, tx pgx.Tx, id, member string) error {
	var exists, contributed bool
	err := tx.QueryRow(ctx, `
		SELECT
			EXISTS (SELECT 1 FROM sessions WHERE id = $1),
			EXISTS (SELECT 1 FROM session_contributions WHERE session_id = $1 AND member = $2)
	`, id, member).Scan(&exists, &contributed)
	if err != nil {
		return fmt.Errorf("error querying session: %w", err)
	}

	switch {
	case !exists:
		return errs.NotFound(errs.CodeSessionNotFound, member, id)
	case contributed:
		return errs.NotAllowed(errs.CodeAlreadyContributed, member, id)
	default:
		return errs.NotAllowed(errs.CodeNotAMember, member, id)
	}
}

// PopSession deletes and returns a session with its contributions
func (s *SessionStore) PopSession(ctx context.Context, id string) (*collab.Session, error) {
	var session *collab.Session

	err := s.db.BeginFunc(ctx, func(tx pgx.Tx) error {
		var err error
		session, err = loadSession(ctx, tx, id, true)
		if err != nil || session == nil {
			return err
		}

		if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
			return fmt.Errorf("error deleting session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func loadSession(ctx context.Context, q querier, id string, forUpdate bool) (*collab.Session, error) {
	query := `SELECT id, pending, lat, lng, created_at FROM sessions WHERE id = $1`
	if forUpdate {
		query += " FOR UPDATE"
	}

	var session collab.Session
	err := q.QueryRow(ctx, query, id).Scan(
		&session.ID,
		&session.Pending,
		&session.Location.Lat,
		&session.Location.Lng,
		&session.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying session: %w", err)
	}
	if session.Pending == nil {
		session.Pending = []string{}
	}

	rows, err := q.Query(ctx, `
		SELECT member, item, contributed_at
		FROM session_contributions
		WHERE session_id = $1
		ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("error querying contributions: %w", err)
	}
	defer rows.Close()

	session.Contributions = []collab.Contribution{}
	for rows.Next() {
		var c collab.Contribution
		if err := rows.Scan(&c.By, &c.Item, &c.At); err != nil {
			return nil, fmt.Errorf("error scanning contribution: %w", err)
		}
		session.Contributions = append(session.Contributions, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contributions: %w", err)
	}
	return &session, nil
}
