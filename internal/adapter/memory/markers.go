// internal/adapter/memory/markers.go

// Package memory holds process-local stores used by the memory storage
// driver and by tests. Every store guards its state with a single mutex, so
// each method is atomic with respect to the others.
package memory

import (
	"context"
	"sort"
	"sync"

	"rendezvous/internal/domain/geo"
)

// MarkerStore implements the geo marker store in memory
type MarkerStore struct {
	mu      sync.RWMutex
	markers map[geo.Layer]map[string]geo.Marker
}

// NewMarkerStore creates a new marker store
func NewMarkerStore() *MarkerStore {
	return &MarkerStore{
		markers: make(map[geo.Layer]map[string]geo.Marker),
	}
}

// SaveMarker saves a marker, replacing any earlier marker for the same poi
func (s *MarkerStore) SaveMarker(ctx context.Context, m geo.Marker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	layer, ok := s.markers[m.Layer]
	if !ok {
		layer = make(map[string]geo.Marker)
		s.markers[m.Layer] = layer
	}
	layer[m.POI] = m
	return nil
}

// DeleteMarkers deletes the marker for poi in layer
func (s *MarkerStore) DeleteMarkers(ctx context.Context, layer geo.Layer, poi string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.markers[layer][poi]; !ok {
		return false, nil
	}
	delete(s.markers[layer], poi)
	return true, nil
}

// FindMarkers finds markers in layer matching filter, most recently updated first
func (s *MarkerStore) FindMarkers(ctx context.Context, layer geo.Layer, filter geo.Filter) ([]geo.Marker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	markers := make([]geo.Marker, 0, len(s.markers[layer]))
	for poi, m := range s.markers[layer] {
		if filter.Matches(poi) {
			markers = append(markers, m)
		}
	}
	sort.Slice(markers, func(i, j int) bool {
		if markers[i].UpdatedAt.Equal(markers[j].UpdatedAt) {
			return markers[i].POI < markers[j].POI
		}
		return markers[i].UpdatedAt.After(markers[j].UpdatedAt)
	})
	return markers, nil
}
