package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"rendezvous/internal/domain/sentiment"
)

func setupTestRedis(t *testing.T) (*RedisHeatStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisHeatStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis heat store: %v", err)
	}
	return store, s
}

func add(delta float64, at time.Time) func(sentiment.Score) sentiment.Score {
	return func(s sentiment.Score) sentiment.Score {
		s.Stored += delta
		s.UpdatedAt = at
		return s
	}
}

func TestNewRedisHeatStore(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	store, err := NewRedisHeatStore("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("NewRedisHeatStore failed: %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestNewRedisHeatStoreBadURL(t *testing.T) {
	if _, err := NewRedisHeatStore("not a url"); err == nil {
		t.Fatalf("expected an error for a malformed url")
	}
}

func TestRedisUpdateAndGetScore(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	at := time.UnixMilli(1709294400123)

	missing, err := store.GetScore(ctx, "item:p1")
	if err != nil || missing != nil {
		t.Fatalf("GetScore on empty = %v, %v", missing, err)
	}

	var seen sentiment.Score
	got, err := store.UpdateScore(ctx, "item:p1", func(cur sentiment.Score) sentiment.Score {
		seen = cur
		cur.Stored = 2.5
		cur.UpdatedAt = at
		return cur
	})
	if err != nil {
		t.Fatalf("UpdateScore: %v", err)
	}
	if seen.Stored != 0 || !seen.UpdatedAt.IsZero() || seen.Bucket != "item:p1" {
		t.Errorf("fresh bucket should start at zero, got %+v", seen)
	}
	if got.Stored != 2.5 || got.Bucket != "item:p1" {
		t.Errorf("UpdateScore returned %+v", got)
	}

	stored, err := store.GetScore(ctx, "item:p1")
	if err != nil {
		t.Fatalf("GetScore: %v", err)
	}
	if stored.Stored != 2.5 || !stored.UpdatedAt.Equal(at) {
		t.Errorf("stored = %+v, want 2.5 at %v", stored, at)
	}

	// The bucket is a plain hash
	if v := s.HGet(heatKey("item:p1"), "stored"); v != "2.5" {
		t.Errorf("raw stored field = %q", v)
	}
}

func TestRedisListScoresByPrefix(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	at := time.UnixMilli(1709294400000)
	for bucket, v := range map[string]float64{
		"region:Somerville": 1,
		"region:Cambridge":  -2,
		"item:p1":           3,
	} {
		if _, err := store.UpdateScore(ctx, bucket, add(v, at)); err != nil {
			t.Fatalf("UpdateScore(%s): %v", bucket, err)
		}
	}

	regions, err := store.ListScores(ctx, sentiment.RegionPrefix())
	if err != nil {
		t.Fatalf("ListScores: %v", err)
	}
	if len(regions) != 2 {
		t.Fatalf("expected 2 region buckets, got %+v", regions)
	}
	if regions[0].Bucket != "region:Cambridge" || regions[0].Stored != -2 {
		t.Errorf("first region = %+v", regions[0])
	}
	if regions[1].Bucket != "region:Somerville" || regions[1].Stored != 1 {
		t.Errorf("second region = %+v", regions[1])
	}

	none, err := store.ListScores(ctx, "nothing:")
	if err != nil || len(none) != 0 {
		t.Fatalf("ListScores(nothing) = %v, %v", none, err)
	}
}

func TestRedisDeleteScore(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	if _, err := store.UpdateScore(ctx, "item:p1", add(1, time.Now())); err != nil {
		t.Fatalf("UpdateScore: %v", err)
	}
	if err := store.DeleteScore(ctx, "item:p1"); err != nil {
		t.Fatalf("DeleteScore: %v", err)
	}

	if got, _ := store.GetScore(ctx, "item:p1"); got != nil {
		t.Errorf("bucket should be gone, got %+v", got)
	}
	if all, _ := store.ListScores(ctx, ""); len(all) != 0 {
		t.Errorf("index should be empty, got %+v", all)
	}
	if s.Exists(heatKey("item:p1")) {
		t.Errorf("hash key still exists")
	}
}

func TestRedisConcurrentUpdatesAreNotLost(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()
	at := time.UnixMilli(1709294400000)

	const writers, perWriter = 4, 10
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := store.UpdateScore(ctx, "region:Cambridge", add(1, at)); err != nil {
					t.Errorf("UpdateScore: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	got, err := store.GetScore(ctx, "region:Cambridge")
	if err != nil {
		t.Fatalf("GetScore: %v", err)
	}
	if got.Stored != writers*perWriter {
		t.Fatalf("stored = %v, want %d", got.Stored, writers*perWriter)
	}
}

func TestDecodeScore(t *testing.T) {
	sc, err := decodeScore("b", map[string]string{"stored": "1.5"})
	if err != nil || sc.Stored != 1.5 || !sc.UpdatedAt.IsZero() {
		t.Fatalf("decodeScore without time = %+v, %v", sc, err)
	}

	if _, err := decodeScore("b", map[string]string{"stored": "x"}); err == nil {
		t.Errorf("expected error for a bad stored value")
	}
	if _, err := decodeScore("b", map[string]string{"stored": "1", "updated": "y"}); err == nil {
		t.Errorf("expected error for a bad update time")
	}
}
