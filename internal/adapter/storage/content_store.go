// internal/adapter/storage/content_store.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"rendezvous/internal/domain/content"
	"rendezvous/internal/domain/errs"
)

// ContentStore implements storage for pieces and posts
type ContentStore struct {
	db *pgxpool.Pool
}

// NewContentStore creates a new content store
func NewContentStore(db *pgxpool.Pool) *ContentStore {
	return &ContentStore{
		db: db,
	}
}

// SavePiece saves a piece to storage
func (s *ContentStore) SavePiece(ctx context.Context, p content.Piece) error {
	query := `
		INSERT INTO pieces (id, author, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if _, err := s.db.Exec(ctx, query, p.ID, p.Author, p.Content, p.CreatedAt, p.UpdatedAt); err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

// GetPiece retrieves a piece by ID
func (s *ContentStore) GetPiece(ctx context.Context, id string) (*content.Piece, error) {
	query := `
		SELECT id, author, content, created_at, updated_at
		FROM pieces
		WHERE id = $1
	`

	var p content.Piece
	err := s.db.QueryRow(ctx, query, id).Scan(&p.ID, &p.Author, &p.Content, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying piece: %w", err)
	}
	return &p, nil
}

// UpdatePieceContent replaces a piece's content
func (s *ContentStore) UpdatePieceContent(ctx context.Context, id, body string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `UPDATE pieces SET content = $2, updated_at = $3 WHERE id = $1`, id, body, at)
	if err != nil {
		return false, fmt.Errorf("error executing query: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FindPieces finds pieces by ID
func (s *ContentStore) FindPieces(ctx context.Context, ids []string) ([]content.Piece, error) {
	if len(ids) == 0 {
		return []content.Piece{}, nil
	}

	query := `
		SELECT id, author, content, created_at, updated_at
		FROM pieces
		WHERE id = ANY($1)
	`

	rows, err := s.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	pieces := []content.Piece{}
	for rows.Next() {
		var p content.Piece
		if err := rows.Scan(&p.ID, &p.Author, &p.Content, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning piece: %w", err)
		}
		pieces = append(pieces, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating pieces: %w", err)
	}
	return pieces, nil
}

// FindPieceIDsByAuthor finds the ids of pieces written by author
func (s *ContentStore) FindPieceIDsByAuthor(ctx context.Context, author string) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM pieces WHERE author = $1 ORDER BY id`, author)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning piece id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating piece ids: %w", err)
	}
	return ids, nil
}

// SavePost inserts a post and claims its pieces in one transaction
func (s *ContentStore) SavePost(ctx context.Context, p content.Post) error {
	return s.db.BeginFunc(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO posts (id, pieces, created_at, updated_at) VALUES ($1, $2, $3, $4)`,
			p.ID, p.Pieces, p.CreatedAt, p.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("error inserting post: %w", err)
		}

		tag, err := tx.Exec(ctx,
			`UPDATE pieces SET post_id = $1 WHERE id = ANY($2) AND post_id IS NULL`,
			p.ID, p.Pieces,
		)
		if err != nil {
			return fmt.Errorf("error attaching pieces: %w", err)
		}
		if int(tag.RowsAffected()) == len(p.Pieces) {
			return nil
		}

		return claimFailure(ctx, tx, p.ID, p.Pieces)
	})
}

// claimFailure explains why not every piece could be attached to post
func claimFailure(ctx context.Context, tx pgx.Tx, postID string, ids []string) error {
	rows, err := tx.Query(ctx, `SELECT id, post_id FROM pieces WHERE id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	owner := make(map[string]*string, len(ids))
	for rows.Next() {
		var id string
		var post *string
		if err := rows.Scan(&id, &post); err != nil {
			return fmt.Errorf("error scanning piece: %w", err)
		}
		owner[id] = post
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating pieces: %w", err)
	}

	for _, id := range ids {
		post, ok := owner[id]
		if !ok {
			return errs.NotFound(errs.CodePieceNotFound, "", id)
		}
		if post != nil && *post != postID {
			return errs.NotAllowed(errs.CodePieceAttached, "", id)
		}
	}
	return errs.NotAllowed(errs.CodePieceAttached, "", postID)
}

// GetPost retrieves a post by ID
func (s *ContentStore) GetPost(ctx context.Context, id string) (*content.Post, error) {
	var p content.Post
	err := s.db.QueryRow(ctx,
		`SELECT id, pieces, created_at, updated_at FROM posts WHERE id = $1`, id,
	).Scan(&p.ID, &p.Pieces, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying post: %w", err)
	}
	return &p, nil
}

// FindPosts finds posts by ID
func (s *ContentStore) FindPosts(ctx context.Context, ids []string) ([]content.Post, error) {
	if len(ids) == 0 {
		return []content.Post{}, nil
	}
	return s.queryPosts(ctx, `
		SELECT id, pieces, created_at, updated_at
		FROM posts
		WHERE id = ANY($1)
		ORDER BY updated_at DESC, id
	`, ids)
}

// ListPosts lists every post
func (s *ContentStore) ListPosts(ctx context.Context) ([]content.Post, error) {
	return s.queryPosts(ctx, `
		SELECT id, pieces, created_at, updated_at
		FROM posts
		ORDER BY updated_at DESC, id
	`)
}

// FindPostsWithPieces finds posts containing any of pieceIDs
func (s *ContentStore) FindPostsWithPieces(ctx context.Context, pieceIDs []string) ([]content.Post, error) {
	if len(pieceIDs) == 0 {
		return []content.Post{}, nil
	}
	return s.queryPosts(ctx, `
		SELECT id, pieces, created_at, updated_at
		FROM posts
		WHERE pieces && $1::text[]
		ORDER BY updated_at DESC, id
	`, pieceIDs)
}

func (s *ContentStore) queryPosts(ctx context.Context, query string, args ...interface{}) ([]content.Post, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	posts := []content.Post{}
	for rows.Next() {
		var p content.Post
		if err := rows.Scan(&p.ID, &p.Pieces, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning post: %w", err)
		}
		posts = append(posts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	return posts, nil
}

// DeletePiece deletes a piece, detaching it from its post and deleting the
// post when it held no other piece
func (s *ContentStore) DeletePiece(ctx context.Context, id string, at time.Time) (*content.DeleteResult, error) {
	result := &content.DeleteResult{PieceID: id}

	err := s.db.BeginFunc(ctx, func(tx pgx.Tx) error {
		var postID *string
		err := tx.QueryRow(ctx, `DELETE FROM pieces WHERE id = $1 RETURNING post_id`, id).Scan(&postID)
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.NotFound(errs.CodePieceNotFound, "", id)
		}
		if err != nil {
			return fmt.Errorf("error deleting piece: %w", err)
		}
		if postID == nil {
			return nil
		}
		result.PostID = *postID

		var remaining int
		err = tx.QueryRow(ctx, `
			UPDATE posts
			SET pieces = array_remove(pieces, $2), updated_at = $3
			WHERE id = $1
			RETURNING cardinality(pieces)
		`, *postID, id, at).Scan(&remaining)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("error detaching piece: %w", err)
		}
		if remaining > 0 {
			return nil
		}

		if _, err := tx.Exec(ctx, `DELETE FROM posts WHERE id = $1`, *postID); err != nil {
			return fmt.Errorf("error deleting post: %w", err)
		}
		result.PostDeleted = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
