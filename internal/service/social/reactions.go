// internal/service/social/reactions.go

package social

import (
	"context"
	"strconv"

	"rendezvous/internal/domain/event"
	"rendezvous/internal/domain/geo"
	"rendezvous/internal/domain/sentiment"
	sentimentService "rendezvous/internal/service/sentiment"
)

// Reacted is the outcome of a reaction change
type Reacted struct {
	Reaction *sentiment.Reaction `json:"reaction,omitempty"`
	Previous *sentiment.Reaction `json:"previous,omitempty"`
	Region   bool                `json:"region"`
}

// ReactionSummary describes every reaction to a post
type ReactionSummary struct {
	Post      string               `json:"post"`
	Reactions []sentiment.Reaction `json:"reactions"`
	Average   *float64             `json:"average,omitempty"`
	Score     float64              `json:"score"`
}

// React sets user's reaction to post id
func (s *Service) React(ctx context.Context, user, id string, choice sentiment.Choice) (*Reacted, error) {
	if _, err := s.content.GetPost(ctx, id); err != nil {
		return nil, err
	}

	change, err := s.reactions.React(ctx, id, user, choice)
	if err != nil {
		return nil, err
	}
	return s.recordChange(ctx, user, id, change)
}

// Unreact removes user's reaction to post id
func (s *Service) Unreact(ctx context.Context, user, id string) (*Reacted, error) {
	change, err := s.reactions.Unreact(ctx, id, user)
	if err != nil {
		return nil, err
	}
	return s.recordChange(ctx, user, id, change)
}

func (s *Service) recordChange(ctx context.Context, user, id string, change *sentimentService.Change) (*Reacted, error) {
	var location *geo.Location
	marker, err := s.markers.Locate(ctx, geo.LayerPosts, id)
	if err != nil {
		return nil, err
	}
	if marker != nil {
		location = &marker.Location
	}

	region, err := s.heatmap.RecordChange(ctx, id, location, change)
	if err != nil {
		return nil, err
	}

	attrs := map[string]string{"delta": strconv.Itoa(change.Delta)}
	if change.Reaction != nil {
		attrs["choice"] = string(change.Reaction.Choice)
	}
	s.publish(ctx, event.ReactionChanged, id, user, attrs)

	return &Reacted{
		Reaction: change.Reaction,
		Previous: change.Previous,
		Region:   region,
	}, nil
}

// Reactions lists the reactions to post id with their average sentiment
// and the post's decayed heat
func (s *Service) Reactions(ctx context.Context, id string) (*ReactionSummary, error) {
	reactions, err := s.reactions.List(ctx, id)
	if err != nil {
		return nil, err
	}
	score, err := s.heatmap.ItemScore(ctx, id)
	if err != nil {
		return nil, err
	}

	summary := &ReactionSummary{
		Post:      id,
		Reactions: reactions,
		Score:     score,
	}
	if avg, ok := sentiment.Average(reactions); ok {
		summary.Average = &avg
	}
	return summary, nil
}

// Heatmap returns the decayed sentiment of every region
func (s *Service) Heatmap(ctx context.Context) ([]sentimentService.RegionScore, error) {
	return s.heatmap.Surface(ctx)
}
