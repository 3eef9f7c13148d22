// internal/adapter/storage/heat_store.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"rendezvous/internal/domain/sentiment"
)

// HeatStore implements storage for heat buckets in Postgres
type HeatStore struct {
	db *pgxpool.Pool
}

// NewHeatStore creates a new heat store
func NewHeatStore(db *pgxpool.Pool) *HeatStore {
	return &HeatStore{
		db: db,
	}
}

// UpdateScore applies fn to a bucket while holding its row lock
func (s *HeatStore) UpdateScore(ctx context.Context, bucket string, fn func(sentiment.Score) sentiment.Score) (sentiment.Score, error) {
	var next sentiment.Score

	err := s.db.BeginFunc(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO heat_scores (bucket) VALUES ($1) ON CONFLICT (bucket) DO NOTHING`, bucket); err != nil {
			return fmt.Errorf("error creating heat bucket: %w", err)
		}

		current, err := scanScore(tx.QueryRow(ctx,
			`SELECT bucket, stored, updated_at FROM heat_scores WHERE bucket = $1 FOR UPDATE`, bucket,
		))
		if err != nil {
			return err
		}
		if current == nil {
			current = &sentiment.Score{Bucket: bucket}
		}

		next = fn(*current)
		next.Bucket = bucket
		_, err = tx.Exec(ctx,
			`UPDATE heat_scores SET stored = $2, updated_at = $3 WHERE bucket = $1`,
			bucket, next.Stored, next.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("error updating heat bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		return sentiment.Score{}, err
	}
	return next, nil
}

// GetScore retrieves a bucket
func (s *HeatStore) GetScore(ctx context.Context, bucket string) (*sentiment.Score, error) {
	return scanScore(s.db.QueryRow(ctx,
		`SELECT bucket, stored, updated_at FROM heat_scores WHERE bucket = $1`, bucket,
	))
}

// ListScores lists buckets by key prefix
func (s *HeatStore) ListScores(ctx context.Context, prefix string) ([]sentiment.Score, error) {
	rows, err := s.db.Query(ctx, `
		SELECT bucket, stored, updated_at
		FROM heat_scores
		WHERE starts_with(bucket, $1)
		ORDER BY bucket
	`, prefix)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	scores := []sentiment.Score{}
	for rows.Next() {
		var sc sentiment.Score
		var updated *time.Time
		if err := rows.Scan(&sc.Bucket, &sc.Stored, &updated); err != nil {
			return nil, fmt.Errorf("error scanning heat bucket: %w", err)
		}
		if updated != nil {
			sc.UpdatedAt = *updated
		}
		scores = append(scores, sc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating heat buckets: %w", err)
	}
	return scores, nil
}

// DeleteScore deletes a bucket
func (s *HeatStore) DeleteScore(ctx context.Context, bucket string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM heat_scores WHERE bucket = $1`, bucket); err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

func scanScore(row pgx.Row) (*sentiment.Score, error) {
	var sc sentiment.Score
	var updated *time.Time
	err := row.Scan(&sc.Bucket, &sc.Stored, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning heat bucket: %w", err)
	}
	if updated != nil {
		sc.UpdatedAt = *updated
	}
	return &sc, nil
}
