// internal/domain/geo/service.go

package geo

import (
	"context"
)

// Place provides reverse-geocoded information about a location
type Place struct {
	Name          string
	Neighborhood  string
	Locality      string // City
	AdminArea     string // State/Province
	Country       string
	FormattedAddr string
}

// Geocoder resolves coordinates to a place. Implementations call out to the
// network and may fail.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, location Location) (*Place, error)
}

// RegionResolver maps a location to a supported heatmap region. The boolean
// is false when the location cannot be bucketed, which is never an error.
type RegionResolver interface {
	ResolveRegion(ctx context.Context, location Location) (string, bool)
}
