// internal/service/sentiment/heatmap.go

package sentiment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rendezvous/internal/domain/geo"
	"rendezvous/internal/domain/sentiment"
)

// HeatStore defines the storage interface for decayed heat buckets
type HeatStore interface {
	// UpdateScore replaces the bucket's score with fn applied to its current
	// one (zero Score when absent). Concurrent writers must not lose updates.
	UpdateScore(ctx context.Context, bucket string, fn func(sentiment.Score) sentiment.Score) (sentiment.Score, error)

	// GetScore returns a bucket's stored score, nil when absent
	GetScore(ctx context.Context, bucket string) (*sentiment.Score, error)

	// ListScores returns every bucket whose key starts with prefix
	ListScores(ctx context.Context, prefix string) ([]sentiment.Score, error)

	// DeleteScore removes a bucket
	DeleteScore(ctx context.Context, bucket string) error
}

// HeatmapConfig contains configuration for the heatmap
type HeatmapConfig struct {
	HalfLife time.Duration
}

// RegionScore is the effective score of one region at read time
type RegionScore struct {
	Region    string    `json:"region"`
	Score     float64   `json:"score"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Heatmap aggregates sentiment deltas into exponentially decayed buckets,
// one per region and one per item
type Heatmap struct {
	store   HeatStore
	regions geo.RegionResolver
	decay   sentiment.Decay
	now     func() time.Time
}

// NewHeatmap creates a new heatmap
func NewHeatmap(store HeatStore, regions geo.RegionResolver, config HeatmapConfig) *Heatmap {
	if config.HalfLife <= 0 {
		config.HalfLife = 24 * time.Hour
	}

	return &Heatmap{
		store:   store,
		regions: regions,
		decay:   sentiment.NewDecay(config.HalfLife),
		now:     time.Now,
	}
}

// Record folds delta into item's bucket and, when location resolves to a
// supported region, into that region's bucket. It reports whether a region
// bucket was updated.
func (h *Heatmap) Record(ctx context.Context, item string, location *geo.Location, delta float64) (bool, error) {
	return h.record(ctx, item, location, delta, h.now())
}

// RecordChange folds a reaction change into the heatmap. The replaced
// reaction is withdrawn at the weight it has decayed to since it was written,
// so removing it cancels exactly what it still contributes.
func (h *Heatmap) RecordChange(ctx context.Context, item string, location *geo.Location, change *Change) (bool, error) {
	now := h.now()
	return h.record(ctx, item, location, h.changeDelta(change, now), now)
}

func (h *Heatmap) changeDelta(change *Change, now time.Time) float64 {
	var delta float64
	if change.Reaction != nil {
		score, _ := change.Reaction.Choice.Sentiment()
		delta += float64(score)
	}
	if change.Previous != nil {
		old, _ := change.Previous.Choice.Sentiment()
		delta -= float64(old) * h.decay.Factor(now.Sub(change.Previous.UpdatedAt))
	}
	return delta
}

func (h *Heatmap) record(ctx context.Context, item string, location *geo.Location, delta float64, now time.Time) (bool, error) {
	if delta == 0 {
		return false, nil
	}

	if err := h.apply(ctx, sentiment.ItemBucket(item), delta, now); err != nil {
		return false, err
	}

	if location == nil || h.regions == nil {
		return false, nil
	}
	region, ok := h.regions.ResolveRegion(ctx, *location)
	if !ok {
		return false, nil
	}
	if err := h.apply(ctx, sentiment.RegionBucket(region), delta, now); err != nil {
		return false, err
	}
	return true, nil
}

func (h *Heatmap) apply(ctx context.Context, bucket string, delta float64, now time.Time) error {
	_, err := h.store.UpdateScore(ctx, bucket, func(current sentiment.Score) sentiment.Score {
		current.Bucket = bucket
		return h.decay.Apply(current, delta, now)
	})
	if err != nil {
		return fmt.Errorf("error updating heat bucket %s: %w", bucket, err)
	}
	return nil
}

// Surface returns the effective score of every region, sorted by region name
func (h *Heatmap) Surface(ctx context.Context) ([]RegionScore, error) {
	scores, err := h.store.ListScores(ctx, sentiment.RegionPrefix())
	if err != nil {
		return nil, fmt.Errorf("error listing heat buckets: %w", err)
	}

	now := h.now()
	surface := make([]RegionScore, 0, len(scores))
	for _, s := range scores {
		surface = append(surface, RegionScore{
			Region:    sentiment.RegionName(s.Bucket),
			Score:     h.decay.Effective(s, now),
			UpdatedAt: s.UpdatedAt,
		})
	}
	sort.Slice(surface, func(i, j int) bool {
		return surface[i].Region < surface[j].Region
	})
	return surface, nil
}

// ItemScore returns item's effective score, zero when it has no bucket
func (h *Heatmap) ItemScore(ctx context.Context, item string) (float64, error) {
	s, err := h.store.GetScore(ctx, sentiment.ItemBucket(item))
	if err != nil {
		return 0, fmt.Errorf("error getting heat bucket: %w", err)
	}
	if s == nil {
		return 0, nil
	}
	return h.decay.Effective(*s, h.now()), nil
}

// Forget drops item's bucket. Region buckets keep its past influence, which decays away.
func (h *Heatmap) Forget(ctx context.Context, item string) error {
	if err := h.store.DeleteScore(ctx, sentiment.ItemBucket(item)); err != nil {
		return fmt.Errorf("error deleting heat bucket: %w", err)
	}
	return nil
}
