// internal/service/content/service.go

package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rendezvous/internal/domain/content"
	"rendezvous/internal/domain/errs"
)

// Repository defines the storage interface for pieces and posts
type Repository interface {
	// SavePiece inserts a piece
	SavePiece(ctx context.Context, p content.Piece) error

	// GetPiece returns the piece with id, nil when absent
	GetPiece(ctx context.Context, id string) (*content.Piece, error)

	// UpdatePieceContent replaces a piece's content and reports whether it existed
	UpdatePieceContent(ctx context.Context, id, body string, at time.Time) (bool, error)

	// FindPieces returns the pieces with the given ids in no particular order
	FindPieces(ctx context.Context, ids []string) ([]content.Piece, error)

	// FindPieceIDsByAuthor returns ids of every piece author wrote
	FindPieceIDsByAuthor(ctx context.Context, author string) ([]string, error)

	// SavePost inserts a post and attaches its pieces as one unit. Fails with
	// PieceNotFound or PieceAttached when a piece is missing or already used.
	SavePost(ctx context.Context, p content.Post) error

	// GetPost returns the post with id, nil when absent
	GetPost(ctx context.Context, id string) (*content.Post, error)

	// FindPosts returns the posts with the given ids, most recently updated first
	FindPosts(ctx context.Context, ids []string) ([]content.Post, error)

	// ListPosts returns every post, most recently updated first
	ListPosts(ctx context.Context) ([]content.Post, error)

	// FindPostsWithPieces returns posts containing any of pieceIDs, most recently updated first
	FindPostsWithPieces(ctx context.Context, pieceIDs []string) ([]content.Post, error)

	// DeletePiece removes a piece and detaches it from its post as one unit,
	// deleting the post when the piece was its last. Fails with PieceNotFound.
	DeletePiece(ctx context.Context, id string, at time.Time) (*content.DeleteResult, error)
}

// Service owns piece and post lifecycles
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new content service
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

// CreatePiece stores a piece written by author and returns it
func (s *Service) CreatePiece(ctx context.Context, author, body string) (*content.Piece, error) {
	if strings.TrimSpace(body) == "" {
		return nil, errs.BadValues(errs.CodeInvalidInput, "content must not be empty")
	}

	now := s.now()
	piece := content.Piece{
		ID:        uuid.New().String(),
		Author:    author,
		Content:   body,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.SavePiece(ctx, piece); err != nil {
		return nil, fmt.Errorf("error saving piece: %w", err)
	}
	return &piece, nil
}

// Assemble creates a post from pieceIDs in the given order
func (s *Service) Assemble(ctx context.Context, pieceIDs []string) (*content.Post, error) {
	if len(pieceIDs) == 0 {
		return nil, errs.BadValues(errs.CodeInvalidInput, "a post needs at least one piece")
	}

	seen := make(map[string]struct{}, len(pieceIDs))
	for _, id := range pieceIDs {
		if _, dup := seen[id]; dup {
			return nil, errs.BadValues(errs.CodeInvalidInput, "piece %s listed twice", id)
		}
		seen[id] = struct{}{}
	}

	now := s.now()
	post := content.Post{
		ID:        uuid.New().String(),
		Pieces:    append([]string(nil), pieceIDs...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.SavePost(ctx, post); err != nil {
		return nil, err
	}
	return &post, nil
}

// CreateSingle creates a one-piece post authored by author
func (s *Service) CreateSingle(ctx context.Context, author, body string) (*content.Post, error) {
	piece, err := s.CreatePiece(ctx, author, body)
	if err != nil {
		return nil, err
	}
	return s.Assemble(ctx, []string{piece.ID})
}

// DeletePiece deletes piece id, cascading to its post when it was the last piece
func (s *Service) DeletePiece(ctx context.Context, id string) (*content.DeleteResult, error) {
	return s.repo.DeletePiece(ctx, id, s.now())
}

// UpdatePiece replaces the content of piece id
func (s *Service) UpdatePiece(ctx context.Context, id, body string) error {
	if strings.TrimSpace(body) == "" {
		return errs.BadValues(errs.CodeInvalidInput, "content must not be empty")
	}

	ok, err := s.repo.UpdatePieceContent(ctx, id, body, s.now())
	if err != nil {
		return fmt.Errorf("error updating piece: %w", err)
	}
	if !ok {
		return errs.NotFound(errs.CodePieceNotFound, "", id)
	}
	return nil
}

// CheckAuthor fails unless user wrote piece id
func (s *Service) CheckAuthor(ctx context.Context, user, id string) error {
	piece, err := s.repo.GetPiece(ctx, id)
	if err != nil {
		return fmt.Errorf("error getting piece: %w", err)
	}
	if piece == nil {
		return errs.NotFound(errs.CodePieceNotFound, "", id)
	}
	if piece.Author != user {
		return errs.NotAllowed(errs.CodeNotAuthor, user, id)
	}
	return nil
}

// GetPost returns post id
func (s *Service) GetPost(ctx context.Context, id string) (*content.Post, error) {
	post, err := s.repo.GetPost(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting post: %w", err)
	}
	if post == nil {
		return nil, errs.NotFound(errs.CodePostNotFound, "", id)
	}
	return post, nil
}

// ListPosts returns every post, most recent first
func (s *Service) ListPosts(ctx context.Context) ([]content.Post, error) {
	return s.repo.ListPosts(ctx)
}

// PostsByIDs returns the posts with ids, ordered as ids; missing ids are skipped
func (s *Service) PostsByIDs(ctx context.Context, ids []string) ([]content.Post, error) {
	found, err := s.repo.FindPosts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error finding posts: %w", err)
	}

	byID := make(map[string]content.Post, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	posts := make([]content.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			posts = append(posts, p)
		}
	}
	return posts, nil
}

// ByAuthor returns posts containing at least one piece written by author
func (s *Service) ByAuthor(ctx context.Context, author string) ([]content.Post, error) {
	pieceIDs, err := s.repo.FindPieceIDsByAuthor(ctx, author)
	if err != nil {
		return nil, fmt.Errorf("error finding pieces: %w", err)
	}
	if len(pieceIDs) == 0 {
		return []content.Post{}, nil
	}
	return s.repo.FindPostsWithPieces(ctx, pieceIDs)
}

// Resolve expands piece ids into piece records without mutating anything
func (s *Service) Resolve(ctx context.Context, posts []content.Post) ([]content.ResolvedPost, error) {
	var ids []string
	for _, p := range posts {
		ids = append(ids, p.Pieces...)
	}

	pieces, err := s.repo.FindPieces(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error finding pieces: %w", err)
	}
	idToPiece := make(map[string]content.Piece, len(pieces))
	for _, p := range pieces {
		idToPiece[p.ID] = p
	}

	resolved := make([]content.ResolvedPost, len(posts))
	for i, p := range posts {
		rp := content.ResolvedPost{
			ID:        p.ID,
			Pieces:    make([]content.Piece, 0, len(p.Pieces)),
			CreatedAt: p.CreatedAt,
			UpdatedAt: p.UpdatedAt,
		}
		for _, id := range p.Pieces {
			if piece, ok := idToPiece[id]; ok {
				rp.Pieces = append(rp.Pieces, piece)
			}
		}
		resolved[i] = rp
	}
	return resolved, nil
}
