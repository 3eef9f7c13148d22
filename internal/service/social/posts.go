// internal/service/social/posts.go

package social

import (
	"context"
	"errors"
	"log"

	"rendezvous/internal/domain/content"
	"rendezvous/internal/domain/errs"
	"rendezvous/internal/domain/event"
	"rendezvous/internal/domain/geo"
)

// PostQuery selects posts for listing. With an Anchor only posts placed on
// the map are returned, closest first; otherwise every post, most recent first.
type PostQuery struct {
	Author string
	Anchor *geo.Location
	Limit  int
}

// CreatePost publishes a single-author post, placing it on the map when a
// location is given
func (s *Service) CreatePost(ctx context.Context, user, body string, location *geo.Location) (*content.ResolvedPost, error) {
	if location != nil {
		if err := location.Validate(); err != nil {
			return nil, err
		}
	}

	post, err := s.content.CreateSingle(ctx, user, body)
	if err != nil {
		return nil, err
	}

	var attrs map[string]string
	if location != nil {
		if err := s.markers.Add(ctx, geo.LayerPosts, post.ID, *location); err != nil {
			return nil, err
		}
		attrs = locationAttrs(*location)
	}

	resolved, err := s.content.Resolve(ctx, []content.Post{*post})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event.PostCreated, post.ID, user, attrs)
	return &resolved[0], nil
}

// ListPosts returns posts matching q with their pieces expanded
func (s *Service) ListPosts(ctx context.Context, q PostQuery) ([]content.ResolvedPost, error) {
	var posts []content.Post
	var err error

	if q.Author != "" {
		posts, err = s.content.ByAuthor(ctx, q.Author)
	} else if q.Anchor == nil {
		posts, err = s.content.ListPosts(ctx)
	}
	if err != nil {
		return nil, err
	}

	if q.Anchor != nil {
		filter := geo.All()
		if q.Author != "" {
			ids := make([]string, len(posts))
			for i, p := range posts {
				ids[i] = p.ID
			}
			filter = geo.OnlyPOIs(ids...)
		}

		markers, err := s.markers.FindNearby(ctx, geo.LayerPosts, filter, q.Limit, q.Anchor)
		if err != nil {
			return nil, err
		}
		ids := make([]string, len(markers))
		for i, m := range markers {
			ids[i] = m.POI
		}
		posts, err = s.content.PostsByIDs(ctx, ids)
		if err != nil {
			return nil, err
		}
	} else if q.Limit > 0 && len(posts) > q.Limit {
		posts = posts[:q.Limit]
	}

	return s.content.Resolve(ctx, posts)
}

// UpdatePiece replaces the content of a piece user wrote
func (s *Service) UpdatePiece(ctx context.Context, user, id, body string) error {
	if err := s.content.CheckAuthor(ctx, user, id); err != nil {
		return err
	}
	return s.content.UpdatePiece(ctx, id, body)
}

// DeletePiece deletes a piece user wrote. A piece still held by user's open
// collaboration cannot be deleted. When its post goes with it the post's
// marker, reactions and item heat are dropped too.
func (s *Service) DeletePiece(ctx context.Context, user, id string) (*content.DeleteResult, error) {
	if err := s.content.CheckAuthor(ctx, user, id); err != nil {
		return nil, err
	}
	if err := s.checkNotInSession(ctx, user, id); err != nil {
		return nil, err
	}

	result, err := s.content.DeletePiece(ctx, id)
	if err != nil {
		return nil, err
	}
	if !result.PostDeleted {
		return result, nil
	}

	postID := result.PostID
	if err := s.markers.Remove(ctx, geo.LayerPosts, postID); err != nil {
		log.Printf("Error removing marker of deleted post %s: %v", postID, err)
	}
	if err := s.reactions.Forget(ctx, postID); err != nil {
		log.Printf("Error removing reactions of deleted post %s: %v", postID, err)
	}
	if err := s.heatmap.Forget(ctx, postID); err != nil {
		log.Printf("Error removing heat of deleted post %s: %v", postID, err)
	}

	s.publish(ctx, event.PostDeleted, postID, user, map[string]string{"piece": id})
	return result, nil
}

// checkNotInSession fails when piece id is a contribution to user's open session
func (s *Service) checkNotInSession(ctx context.Context, user, id string) error {
	session, err := s.sessions.GetByMember(ctx, user)
	if errors.Is(err, errs.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, item := range session.Items() {
		if item == id {
			return errs.NotAllowed(errs.CodePieceInSession, user, id)
		}
	}
	return nil
}
