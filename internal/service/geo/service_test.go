package geo

import (
	"context"
	"errors"
	"testing"
	"time"

	"rendezvous/internal/adapter/memory"
	"rendezvous/internal/domain/errs"
	"rendezvous/internal/domain/geo"
)

// newTestIndex returns an index whose clock advances one second per marker
func newTestIndex(cfg IndexConfig) *Index {
	idx := NewIndex(memory.NewMarkerStore(), cfg)
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	idx.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return idx
}

func pois(markers []geo.Marker) []string {
	out := make([]string, len(markers))
	for i, m := range markers {
		out[i] = m.POI
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFindNearbyOrdersByDistance(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(IndexConfig{DefaultLimit: 10, MaxLimit: 10})

	anchor := geo.Location{Lat: 42.36, Lng: -71.09}
	add := map[string]geo.Location{
		"far":  {Lat: 42.50, Lng: -71.09},
		"near": {Lat: 42.361, Lng: -71.09},
		"mid":  {Lat: 42.40, Lng: -71.09},
	}
	for _, poi := range []string{"far", "near", "mid"} {
		if err := idx.Add(ctx, geo.LayerPosts, poi, add[poi]); err != nil {
			t.Fatalf("Add(%s): %v", poi, err)
		}
	}

	got, err := idx.FindNearby(ctx, geo.LayerPosts, geo.All(), 0, &anchor)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if want := []string{"near", "mid", "far"}; !equal(pois(got), want) {
		t.Fatalf("got %v, want %v", pois(got), want)
	}

	for i := 1; i < len(got); i++ {
		if geo.Distance(got[i-1].Location, anchor) > geo.Distance(got[i].Location, anchor) {
			t.Fatalf("distances not ascending at %d", i)
		}
	}
}

func TestFindNearbyWithoutAnchorKeepsRecency(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(IndexConfig{DefaultLimit: 10, MaxLimit: 10})

	for _, poi := range []string{"a", "b", "c"} {
		if err := idx.Add(ctx, geo.LayerPosts, poi, geo.Location{Lat: 1, Lng: 1}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	got, err := idx.FindNearby(ctx, geo.LayerPosts, geo.All(), 2, nil)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if want := []string{"c", "b"}; !equal(pois(got), want) {
		t.Fatalf("got %v, want %v", pois(got), want)
	}
}

func TestFindNearbyTiesKeepRecency(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(IndexConfig{DefaultLimit: 10, MaxLimit: 10})

	same := geo.Location{Lat: 10, Lng: 10}
	for _, poi := range []string{"old", "new"} {
		if err := idx.Add(ctx, geo.LayerPosts, poi, same); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	anchor := geo.Location{Lat: 0, Lng: 0}
	got, err := idx.FindNearby(ctx, geo.LayerPosts, geo.All(), 0, &anchor)
	if err != nil {
		t.Fatalf("FindNearby: %v", err)
	}
	if want := []string{"new", "old"}; !equal(pois(got), want) {
		t.Fatalf("got %v, want %v", pois(got), want)
	}
}

func TestFindNearbyLimits(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(IndexConfig{DefaultLimit: 2, MaxLimit: 3})

	for _, poi := range []string{"a", "b", "c", "d", "e"} {
		if err := idx.Add(ctx, geo.LayerMeetingRequests, poi, geo.Location{Lat: 1, Lng: 2}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	cases := []struct {
		limit int
		want  int
	}{
		{0, 2},
		{-1, 2},
		{1, 1},
		{3, 3},
		{50, 3},
	}
	for _, tc := range cases {
		got, err := idx.FindNearby(ctx, geo.LayerMeetingRequests, geo.All(), tc.limit, nil)
		if err != nil {
			t.Fatalf("FindNearby: %v", err)
		}
		if len(got) != tc.want {
			t.Errorf("limit %d returned %d markers, want %d", tc.limit, len(got), tc.want)
		}
	}
}

func TestLayersAreIndependent(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(IndexConfig{})

	loc := geo.Location{Lat: 5, Lng: 5}
	if err := idx.Add(ctx, geo.LayerPosts, "x", loc); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Add(ctx, geo.LayerMeetingRequests, "x", loc); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := idx.Remove(ctx, geo.LayerPosts, "x"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	// Removing twice is fine
	if err := idx.Remove(ctx, geo.LayerPosts, "x"); err != nil {
		t.Fatalf("second Remove: %v", err)
	}

	posts, _ := idx.Query(ctx, geo.LayerPosts, geo.All())
	requests, _ := idx.Query(ctx, geo.LayerMeetingRequests, geo.All())
	if len(posts) != 0 || len(requests) != 1 {
		t.Fatalf("posts=%d requests=%d", len(posts), len(requests))
	}
}

func TestQueryFilter(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(IndexConfig{})

	for _, poi := range []string{"a", "b", "c"} {
		if err := idx.Add(ctx, geo.LayerPosts, poi, geo.Location{}); err != nil {
			t.Fatalf("Add: %v", err)
		}
	}

	got, err := idx.Query(ctx, geo.LayerPosts, geo.OnlyPOIs("a", "c", "zzz"))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if want := []string{"c", "a"}; !equal(pois(got), want) {
		t.Fatalf("got %v, want %v", pois(got), want)
	}

	m, err := idx.Locate(ctx, geo.LayerPosts, "b")
	if err != nil || m == nil || m.POI != "b" {
		t.Fatalf("Locate(b) = %v, %v", m, err)
	}
	m, err = idx.Locate(ctx, geo.LayerPosts, "missing")
	if err != nil || m != nil {
		t.Fatalf("Locate(missing) = %v, %v", m, err)
	}
}

func TestInvalidLocationsRejected(t *testing.T) {
	ctx := context.Background()
	idx := newTestIndex(IndexConfig{})

	err := idx.Add(ctx, geo.LayerPosts, "bad", geo.Location{Lat: 91})
	if !errors.Is(err, errs.ErrBadValues) {
		t.Fatalf("expected BadValues, got %v", err)
	}

	anchor := geo.Location{Lng: 200}
	if _, err := idx.FindNearby(ctx, geo.LayerPosts, geo.All(), 0, &anchor); !errors.Is(err, errs.ErrBadValues) {
		t.Fatalf("expected BadValues for anchor, got %v", err)
	}
}
