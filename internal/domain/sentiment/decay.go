// internal/domain/sentiment/decay.go

package sentiment

import (
	"math"
	"strings"
	"time"
)

const (
	regionPrefix = "region:"
	itemPrefix   = "item:"
)

// RegionBucket is the heat bucket key for a named region
func RegionBucket(region string) string {
	return regionPrefix + region
}

// ItemBucket is the heat bucket key for a single reacted item
func ItemBucket(id string) string {
	return itemPrefix + id
}

// RegionPrefix is the key prefix shared by all region buckets
func RegionPrefix() string {
	return regionPrefix
}

// RegionName strips the region prefix from a bucket key
func RegionName(bucket string) string {
	return strings.TrimPrefix(bucket, regionPrefix)
}

// Score is the stored state of one heat bucket. Stored is the value as of
// UpdatedAt; its effective value decays from there.
type Score struct {
	Bucket    string    `json:"bucket"`
	Stored    float64   `json:"stored"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Decay applies exponential time decay with a fixed constant per millisecond
type Decay struct {
	Lambda float64
}

// NewDecay returns a decay under which influence halves every halfLife
func NewDecay(halfLife time.Duration) Decay {
	ms := float64(halfLife.Milliseconds())
	if ms <= 0 {
		return Decay{}
	}
	return Decay{Lambda: math.Ln2 / ms}
}

// Factor is exp(-λ·elapsedMillis); negative elapsed time does not amplify
func (d Decay) Factor(elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 1
	}
	return math.Exp(-d.Lambda * float64(elapsed.Milliseconds()))
}

// Effective returns the decayed value of s at now
func (d Decay) Effective(s Score, now time.Time) float64 {
	if s.UpdatedAt.IsZero() {
		return s.Stored
	}
	return s.Stored * d.Factor(now.Sub(s.UpdatedAt))
}

// Apply folds delta into s at now: the stored value is first decayed to now
func (d Decay) Apply(s Score, delta float64, now time.Time) Score {
	if now.Before(s.UpdatedAt) {
		now = s.UpdatedAt
	}
	return Score{
		Bucket:    s.Bucket,
		Stored:    d.Effective(s, now) + delta,
		UpdatedAt: now,
	}
}
