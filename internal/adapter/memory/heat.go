// internal/adapter/memory/heat.go

package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"rendezvous/internal/domain/sentiment"
)

// HeatStore implements the heat bucket store in memory
type HeatStore struct {
	mu     sync.Mutex
	scores map[string]sentiment.Score
}

// NewHeatStore creates a new heat store
func NewHeatStore() *HeatStore {
	return &HeatStore{
		scores: make(map[string]sentiment.Score),
	}
}

// UpdateScore applies fn to a bucket under the store lock
func (s *HeatStore) UpdateScore(ctx context.Context, bucket string, fn func(sentiment.Score) sentiment.Score) (sentiment.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.scores[bucket]
	if !ok {
		current = sentiment.Score{Bucket: bucket}
	}
	next := fn(current)
	next.Bucket = bucket
	s.scores[bucket] = next
	return next, nil
}

// GetScore retrieves a bucket
func (s *HeatStore) GetScore(ctx context.Context, bucket string) (*sentiment.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	score, ok := s.scores[bucket]
	if !ok {
		return nil, nil
	}
	return &score, nil
}

// ListScores lists buckets by key prefix
func (s *HeatStore) ListScores(ctx context.Context, prefix string) ([]sentiment.Score, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	scores := []sentiment.Score{}
	for bucket, score := range s.scores {
		if strings.HasPrefix(bucket, prefix) {
			scores = append(scores, score)
		}
	}
	sort.Slice(scores, func(i, j int) bool {
		return scores[i].Bucket < scores[j].Bucket
	})
	return scores, nil
}

// DeleteScore deletes a bucket
func (s *HeatStore) DeleteScore(ctx context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.scores, bucket)
	return nil
}
