// internal/service/social/collab.go

package social

import (
	"context"
	"errors"
	"log"

	"rendezvous/internal/domain/collab"
	"rendezvous/internal/domain/content"
	"rendezvous/internal/domain/errs"
	"rendezvous/internal/domain/event"
	"rendezvous/internal/domain/geo"
)

// Contributed is the outcome of a contribution. Post is set only for the
// contribution that completed the session.
type Contributed struct {
	Session *collab.Session       `json:"session"`
	Piece   *content.Piece        `json:"piece"`
	Post    *content.ResolvedPost `json:"post,omitempty"`
}

// Session returns session id
func (s *Service) Session(ctx context.Context, id string) (*collab.Session, error) {
	return s.sessions.Get(ctx, id)
}

// SessionForUser returns the session user belongs to
func (s *Service) SessionForUser(ctx context.Context, user string) (*collab.Session, error) {
	return s.sessions.GetByMember(ctx, user)
}

// Contribute writes body as user's piece of session id. The last
// contribution assembles every piece into a post placed at the session's
// location on the map.
func (s *Service) Contribute(ctx context.Context, user, id, body string) (*Contributed, error) {
	piece, err := s.content.CreatePiece(ctx, user, body)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Contribute(ctx, user, piece.ID, id)
	if err != nil {
		if _, delErr := s.content.DeletePiece(ctx, piece.ID); delErr != nil {
			log.Printf("Error deleting rejected piece %s: %v", piece.ID, delErr)
		}
		return nil, err
	}
	s.publish(ctx, event.Contributed, session.ID, user, map[string]string{"piece": piece.ID})

	result := &Contributed{Session: session, Piece: piece}
	if !session.IsComplete() {
		return result, nil
	}

	items, err := s.sessions.Finalize(ctx, session.ID)
	if errors.Is(err, errs.ErrNotFound) {
		// Finalized by a concurrent caller
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	post, err := s.content.Assemble(ctx, items)
	if err != nil {
		// The session is gone, so nothing else will collect its pieces
		s.discardPieces(ctx, session.ID, items)
		return nil, err
	}
	if err := s.markers.Add(ctx, geo.LayerPosts, post.ID, session.Location); err != nil {
		return nil, err
	}

	resolved, err := s.content.Resolve(ctx, []content.Post{*post})
	if err != nil {
		return nil, err
	}
	result.Post = &resolved[0]

	s.publish(ctx, event.SessionFinalized, session.ID, user, map[string]string{"post": post.ID})
	s.publish(ctx, event.PostCreated, post.ID, user, locationAttrs(session.Location))
	return result, nil
}

// discardPieces deletes the pieces a session held and returns the ids that
// were actually removed. Pieces already gone are skipped.
func (s *Service) discardPieces(ctx context.Context, session string, items []string) []string {
	var deleted []string
	for _, item := range items {
		_, err := s.content.DeletePiece(ctx, item)
		if errs.HasCode(err, errs.CodePieceNotFound) {
			continue
		}
		if err != nil {
			log.Printf("Error deleting orphaned piece %s of session %s: %v", item, session, err)
			continue
		}
		deleted = append(deleted, item)
	}
	return deleted
}
