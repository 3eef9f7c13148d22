// internal/service/sentiment/reactions.go

package sentiment

import (
	"context"
	"fmt"
	"time"

	"rendezvous/internal/domain/errs"
	"rendezvous/internal/domain/sentiment"
)

// ReactionStore defines the storage interface for reactions
type ReactionStore interface {
	// UpsertReaction stores r as the single reaction of r.By to r.To and
	// returns the reaction it replaced, nil when there was none
	UpsertReaction(ctx context.Context, r sentiment.Reaction) (*sentiment.Reaction, error)

	// PopReaction deletes and returns by's reaction to target, nil when absent
	PopReaction(ctx context.Context, target, by string) (*sentiment.Reaction, error)

	// FindReactions returns every reaction to target
	FindReactions(ctx context.Context, target string) ([]sentiment.Reaction, error)

	// DeleteReactions removes every reaction to target
	DeleteReactions(ctx context.Context, target string) (int64, error)
}

// Change describes how a reaction call moved a target's sentiment. Delta is
// the nominal difference between the new and replaced choices, before decay.
type Change struct {
	Reaction *sentiment.Reaction
	Previous *sentiment.Reaction
	Delta    int
}

// Reactions keeps at most one reaction per reactor and target
type Reactions struct {
	store ReactionStore
	now   func() time.Time
}

// NewReactions creates a new reaction service
func NewReactions(store ReactionStore) *Reactions {
	return &Reactions{
		store: store,
		now:   time.Now,
	}
}

// React sets reactor's reaction to target, replacing any earlier choice
func (r *Reactions) React(ctx context.Context, target, reactor string, choice sentiment.Choice) (*Change, error) {
	score, ok := choice.Sentiment()
	if !ok {
		return nil, errs.BadValues(errs.CodeInvalidChoice, "unknown reaction %q", choice)
	}

	reaction := sentiment.Reaction{
		By:        reactor,
		To:        target,
		Choice:    choice,
		UpdatedAt: r.now(),
	}
	prev, err := r.store.UpsertReaction(ctx, reaction)
	if err != nil {
		return nil, fmt.Errorf("error saving reaction: %w", err)
	}

	delta := score
	if prev != nil {
		old, _ := prev.Choice.Sentiment()
		delta -= old
	}
	return &Change{Reaction: &reaction, Previous: prev, Delta: delta}, nil
}

// Unreact removes reactor's reaction to target
func (r *Reactions) Unreact(ctx context.Context, target, reactor string) (*Change, error) {
	prev, err := r.store.PopReaction(ctx, target, reactor)
	if err != nil {
		return nil, fmt.Errorf("error deleting reaction: %w", err)
	}
	if prev == nil {
		return nil, errs.NotFound(errs.CodeReactionNotFound, reactor, target)
	}

	old, _ := prev.Choice.Sentiment()
	return &Change{Previous: prev, Delta: -old}, nil
}

// List returns every reaction to target
func (r *Reactions) List(ctx context.Context, target string) ([]sentiment.Reaction, error) {
	reactions, err := r.store.FindReactions(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("error finding reactions: %w", err)
	}
	return reactions, nil
}

// Forget drops every reaction to a deleted target
func (r *Reactions) Forget(ctx context.Context, target string) error {
	if _, err := r.store.DeleteReactions(ctx, target); err != nil {
		return fmt.Errorf("error deleting reactions: %w", err)
	}
	return nil
}
