// internal/adapter/storage/marker_store.go

package storage

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"rendezvous/internal/domain/geo"
)

// MarkerStore implements storage for geo markers
type MarkerStore struct {
	db *pgxpool.Pool
}

// NewMarkerStore creates a new marker store
func NewMarkerStore(db *pgxpool.Pool) *MarkerStore {
	return &MarkerStore{
		db: db,
	}
}

// SaveMarker saves a marker, replacing any earlier one for the same poi
func (s *MarkerStore) SaveMarker(ctx context.Context, m geo.Marker) error {
	query := `
		INSERT INTO markers (layer, poi, lat, lng, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (layer, poi) DO UPDATE
		SET
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.db.Exec(ctx, query, string(m.Layer), m.POI, m.Location.Lat, m.Location.Lng, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("error executing query: %w", err)
	}
	return nil
}

// DeleteMarkers deletes the markers for poi in layer
func (s *MarkerStore) DeleteMarkers(ctx context.Context, layer geo.Layer, poi string) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM markers WHERE layer = $1 AND poi = $2`, string(layer), poi)
	if err != nil {
		return false, fmt.Errorf("error executing query: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FindMarkers finds markers in layer matching filter, most recently updated first
func (s *MarkerStore) FindMarkers(ctx context.Context, layer geo.Layer, filter geo.Filter) ([]geo.Marker, error) {
	query := `
		SELECT layer, poi, lat, lng, updated_at
		FROM markers
		WHERE layer = $1
	`
	args := []interface{}{string(layer)}

	if ids, restricted := filter.POIs(); restricted {
		if len(ids) == 0 {
			return []geo.Marker{}, nil
		}
		query += " AND poi = ANY($2)"
		args = append(args, ids)
	}
	query += " ORDER BY updated_at DESC, poi"

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	markers := []geo.Marker{}
	for rows.Next() {
		var m geo.Marker
		var l string
		if err := rows.Scan(&l, &m.POI, &m.Location.Lat, &m.Location.Lng, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning marker: %w", err)
		}
		m.Layer = geo.Layer(l)
		markers = append(markers, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating markers: %w", err)
	}
	return markers, nil
}
