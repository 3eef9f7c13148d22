// internal/adapter/storage/reaction_store.go

package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"rendezvous/internal/domain/sentiment"
)

// ReactionStore implements storage for reactions
type ReactionStore struct {
	db *pgxpool.Pool
}

// NewReactionStore creates a new reaction store
func NewReactionStore(db *pgxpool.Pool) *ReactionStore {
	return &ReactionStore{
		db: db,
	}
}

// UpsertReaction saves a reaction and returns the one it replaced. The
// advisory lock on the (target, reactor) pair keeps the read of the
// previous reaction consistent with the write even for first inserts.
func (s *ReactionStore) UpsertReaction(ctx context.Context, r sentiment.Reaction) (*sentiment.Reaction, error) {
	var prev *sentiment.Reaction

	err := s.db.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1 || '/' || $2))`, r.To, r.By); err != nil {
			return fmt.Errorf("error locking reaction: %w", err)
		}

		var err error
		prev, err = scanReaction(tx.QueryRow(ctx, `
			SELECT reactor, target, choice, updated_at
			FROM reactions
			WHERE target = $1 AND reactor = $2
		`, r.To, r.By))
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO reactions (target, reactor, choice, updated_at)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (target, reactor) DO UPDATE
			SET
				choice = EXCLUDED.choice,
				updated_at = EXCLUDED.updated_at
		`, r.To, r.By, string(r.Choice), r.UpdatedAt)
		if err != nil {
			return fmt.Errorf("error upserting reaction: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return prev, nil
}

// PopReaction deletes and returns a reaction
func (s *ReactionStore) PopReaction(ctx context.Context, target, by string) (*sentiment.Reaction, error) {
	return scanReaction(s.db.QueryRow(ctx, `
		DELETE FROM reactions
		WHERE target = $1 AND reactor = $2
		RETURNING reactor, target, choice, updated_at
	`, target, by))
}

// FindReactions finds every reaction to target, ordered by reactor
func (s *ReactionStore) FindReactions(ctx context.Context, target string) ([]sentiment.Reaction, error) {
	rows, err := s.db.Query(ctx, `
		SELECT reactor, target, choice, updated_at
		FROM reactions
		WHERE target = $1
		ORDER BY reactor
	`, target)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	reactions := []sentiment.Reaction{}
	for rows.Next() {
		var r sentiment.Reaction
		var choice string
		if err := rows.Scan(&r.By, &r.To, &choice, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning reaction: %w", err)
		}
		r.Choice = sentiment.Choice(choice)
		reactions = append(reactions, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating reactions: %w", err)
	}
	return reactions, nil
}

// DeleteReactions deletes every reaction to target
func (s *ReactionStore) DeleteReactions(ctx context.Context, target string) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM reactions WHERE target = $1`, target)
	if err != nil {
		return 0, fmt.Errorf("error executing query: %w", err)
	}
	return tag.RowsAffected(), nil
}

func scanReaction(row pgx.Row) (*sentiment.Reaction, error) {
	var r sentiment.Reaction
	var choice string
	err := row.Scan(&r.By, &r.To, &choice, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning reaction: %w", err)
	}
	r.Choice = sentiment.Choice(choice)
	return &r, nil
}
