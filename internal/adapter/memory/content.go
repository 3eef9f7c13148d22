// internal/adapter/memory/content.go

package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"rendezvous/internal/domain/content"
	"rendezvous/internal/domain/errs"
)

// ContentStore implements the piece and post repository in memory
type ContentStore struct {
	mu      sync.RWMutex
	pieces  map[string]content.Piece
	posts   map[string]content.Post
	pieceTo map[string]string
}

// NewContentStore creates a new content store
func NewContentStore() *ContentStore {
	return &ContentStore{
		pieces:  make(map[string]content.Piece),
		posts:   make(map[string]content.Post),
		pieceTo: make(map[string]string),
	}
}

// SavePiece saves a piece
func (s *ContentStore) SavePiece(ctx context.Context, p content.Piece) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pieces[p.ID] = p
	return nil
}

// GetPiece retrieves a piece by ID
func (s *ContentStore) GetPiece(ctx context.Context, id string) (*content.Piece, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pieces[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// UpdatePieceContent replaces a piece's content
func (s *ContentStore) UpdatePieceContent(ctx context.Context, id, body string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pieces[id]
	if !ok {
		return false, nil
	}
	p.Content = body
	p.UpdatedAt = at
	s.pieces[id] = p
	return true, nil
}

// FindPieces finds pieces by ID
func (s *ContentStore) FindPieces(ctx context.Context, ids []string) ([]content.Piece, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pieces := make([]content.Piece, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.pieces[id]; ok {
			pieces = append(pieces, p)
		}
	}
	return pieces, nil
}

// FindPieceIDsByAuthor finds the ids of pieces written by author
func (s *ContentStore) FindPieceIDsByAuthor(ctx context.Context, author string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, p := range s.pieces {
		if p.Author == author {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// SavePost saves a post and attaches its pieces
func (s *ContentStore) SavePost(ctx context.Context, p content.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range p.Pieces {
		if _, ok := s.pieces[id]; !ok {
			return errs.NotFound(errs.CodePieceNotFound, "", id)
		}
		if _, attached := s.pieceTo[id]; attached {
			return errs.NotAllowed(errs.CodePieceAttached, "", id)
		}
	}

	p.Pieces = append([]string(nil), p.Pieces...)
	s.posts[p.ID] = p
	for _, id := range p.Pieces {
		s.pieceTo[id] = p.ID
	}
	return nil
}

// GetPost retrieves a post by ID
func (s *ContentStore) GetPost(ctx context.Context, id string) (*content.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, nil
	}
	p.Pieces = append([]string(nil), p.Pieces...)
	return &p, nil
}

// FindPosts finds posts by ID
func (s *ContentStore) FindPosts(ctx context.Context, ids []string) ([]content.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]content.Post, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.posts[id]; ok {
			posts = append(posts, copyPost(p))
		}
	}
	sortPosts(posts)
	return posts, nil
}

// ListPosts lists every post
func (s *ContentStore) ListPosts(ctx context.Context) ([]content.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]content.Post, 0, len(s.posts))
	for _, p := range s.posts {
		posts = append(posts, copyPost(p))
	}
	sortPosts(posts)
	return posts, nil
}

// FindPostsWithPieces finds posts that contain any of pieceIDs
func (s *ContentStore) FindPostsWithPieces(ctx context.Context, pieceIDs []string) ([]content.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	posts := []content.Post{}
	for _, pieceID := range pieceIDs {
		postID, ok := s.pieceTo[pieceID]
		if !ok {
			continue
		}
		if _, dup := seen[postID]; dup {
			continue
		}
		seen[postID] = struct{}{}
		posts = append(posts, copyPost(s.posts[postID]))
	}
	sortPosts(posts)
	return posts, nil
}

// DeletePiece deletes a piece and detaches it from its post
func (s *ContentStore) DeletePiece(ctx context.Context, id string, at time.Time) (*content.DeleteResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pieces[id]; !ok {
		return nil, errs.NotFound(errs.CodePieceNotFound, "", id)
	}
	delete(s.pieces, id)

	result := &content.DeleteResult{PieceID: id}
	postID, ok := s.pieceTo[id]
	if !ok {
		return result, nil
	}
	delete(s.pieceTo, id)
	result.PostID = postID

	post := s.posts[postID]
	post.Pieces = content.Without(post.Pieces, id)
	if len(post.Pieces) == 0 {
		delete(s.posts, postID)
		result.PostDeleted = true
		return result, nil
	}
	post.UpdatedAt = at
	s.posts[postID] = post
	return result, nil
}

func copyPost(p content.Post) content.Post {
	p.Pieces = append([]string(nil), p.Pieces...)
	return p
}

func sortPosts(posts []content.Post) {
	sort.Slice(posts, func(i, j int) bool {
		if posts[i].UpdatedAt.Equal(posts[j].UpdatedAt) {
			return posts[i].ID < posts[j].ID
		}
		return posts[i].UpdatedAt.After(posts[j].UpdatedAt)
	})
}
