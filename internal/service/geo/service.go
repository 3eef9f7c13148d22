// internal/service/geo/service.go

package geo

import (
	"context"
	"fmt"
	"sort"
	"time"

	"rendezvous/internal/domain/geo"
)

// MarkerStore defines the storage interface for geo markers
type MarkerStore interface {
	// SaveMarker inserts a marker
	SaveMarker(ctx context.Context, m geo.Marker) error

	// DeleteMarkers removes every marker for poi in layer and reports whether any existed
	DeleteMarkers(ctx context.Context, layer geo.Layer, poi string) (bool, error)

	// FindMarkers returns markers in layer matching filter, most recently updated first
	FindMarkers(ctx context.Context, layer geo.Layer, filter geo.Filter) ([]geo.Marker, error)
}

// IndexConfig contains configuration for the geo index
type IndexConfig struct {
	DefaultLimit int
	MaxLimit     int
}

// Index answers nearest-neighbor queries over named marker layers
type Index struct {
	store  MarkerStore
	config IndexConfig
	now    func() time.Time
}

// NewIndex creates a new geo index
func NewIndex(store MarkerStore, config IndexConfig) *Index {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 20
	}
	if config.MaxLimit < config.DefaultLimit {
		config.MaxLimit = config.DefaultLimit
	}

	return &Index{
		store:  store,
		config: config,
		now:    time.Now,
	}
}

// Add records poi at location in layer
func (i *Index) Add(ctx context.Context, layer geo.Layer, poi string, location geo.Location) error {
	if err := location.Validate(); err != nil {
		return err
	}

	marker := geo.Marker{
		Layer:     layer,
		POI:       poi,
		Location:  location,
		UpdatedAt: i.now(),
	}
	if err := i.store.SaveMarker(ctx, marker); err != nil {
		return fmt.Errorf("error saving marker: %w", err)
	}
	return nil
}

// Remove deletes poi from layer. Removing a missing marker is not an error.
func (i *Index) Remove(ctx context.Context, layer geo.Layer, poi string) error {
	if _, err := i.store.DeleteMarkers(ctx, layer, poi); err != nil {
		return fmt.Errorf("error deleting marker: %w", err)
	}
	return nil
}

// Query returns markers matching filter, most recently updated first
func (i *Index) Query(ctx context.Context, layer geo.Layer, filter geo.Filter) ([]geo.Marker, error) {
	markers, err := i.store.FindMarkers(ctx, layer, filter)
	if err != nil {
		return nil, fmt.Errorf("error finding markers: %w", err)
	}
	return markers, nil
}

// FindNearby returns at most limit markers matching filter. A limit of zero
// or less means DefaultLimit, and one above MaxLimit is capped. With an anchor
// they are ordered by ascending distance from it, ties keeping recency order;
// without one recency order is kept.
func (i *Index) FindNearby(
	ctx context.Context,
	layer geo.Layer,
	filter geo.Filter,
	limit int,
	anchor *geo.Location,
) ([]geo.Marker, error) {
	if anchor != nil {
		if err := anchor.Validate(); err != nil {
			return nil, err
		}
	}

	markers, err := i.Query(ctx, layer, filter)
	if err != nil {
		return nil, err
	}

	if anchor != nil {
		SortByDistance(markers, *anchor)
	}

	limit = i.clampLimit(limit)
	if len(markers) > limit {
		markers = markers[:limit]
	}
	return markers, nil
}

// Locate returns the most recent marker for poi, nil when it has none
func (i *Index) Locate(ctx context.Context, layer geo.Layer, poi string) (*geo.Marker, error) {
	markers, err := i.Query(ctx, layer, geo.OnlyPOIs(poi))
	if err != nil {
		return nil, err
	}
	if len(markers) == 0 {
		return nil, nil
	}
	return &markers[0], nil
}

func (i *Index) clampLimit(limit int) int {
	if limit <= 0 {
		return i.config.DefaultLimit
	}
	if limit > i.config.MaxLimit {
		return i.config.MaxLimit
	}
	return limit
}

// SortByDistance stably orders markers by great-circle distance from anchor
func SortByDistance(markers []geo.Marker, anchor geo.Location) {
	type keyed struct {
		marker   geo.Marker
		distance float64
	}

	items := make([]keyed, len(markers))
	for idx, m := range markers {
		items[idx] = keyed{marker: m, distance: geo.Distance(m.Location, anchor)}
	}
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].distance < items[b].distance
	})
	for idx := range items {
		markers[idx] = items[idx].marker
	}
}
