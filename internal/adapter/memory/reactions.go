// internal/adapter/memory/reactions.go

package memory

import (
	"context"
	"sort"
	"sync"

	"rendezvous/internal/domain/sentiment"
)

type reactionKey struct {
	to string
	by string
}

// ReactionStore implements the reaction store in memory
type ReactionStore struct {
	mu        sync.Mutex
	reactions map[reactionKey]sentiment.Reaction
}

// NewReactionStore creates a new reaction store
func NewReactionStore() *ReactionStore {
	return &ReactionStore{
		reactions: make(map[reactionKey]sentiment.Reaction),
	}
}

// UpsertReaction saves a reaction and returns the one it replaced
func (s *ReactionStore) UpsertReaction(ctx context.Context, r sentiment.Reaction) (*sentiment.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reactionKey{to: r.To, by: r.By}
	prev, existed := s.reactions[key]
	s.reactions[key] = r
	if !existed {
		return nil, nil
	}
	return &prev, nil
}

// PopReaction deletes and returns a reaction
func (s *ReactionStore) PopReaction(ctx context.Context, target, by string) (*sentiment.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := reactionKey{to: target, by: by}
	prev, ok := s.reactions[key]
	if !ok {
		return nil, nil
	}
	delete(s.reactions, key)
	return &prev, nil
}

// FindReactions finds every reaction to target, ordered by reactor
func (s *ReactionStore) FindReactions(ctx context.Context, target string) ([]sentiment.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reactions := []sentiment.Reaction{}
	for key, r := range s.reactions {
		if key.to == target {
			reactions = append(reactions, r)
		}
	}
	sort.Slice(reactions, func(i, j int) bool {
		return reactions[i].By < reactions[j].By
	})
	return reactions, nil
}

// DeleteReactions deletes every reaction to target
func (s *ReactionStore) DeleteReactions(ctx context.Context, target string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key := range s.reactions {
		if key.to == target {
			delete(s.reactions, key)
			n++
		}
	}
	return n, nil
}
