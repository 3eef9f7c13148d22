// internal/service/geo/regions.go

package geo

import (
	"context"
	"log"
	"strings"

	"rendezvous/internal/domain/geo"
)

// RegionFilter resolves locations to one of a fixed set of supported regions
type RegionFilter struct {
	geocoder  geo.Geocoder
	supported map[string]string
}

// NewRegionFilter creates a resolver limited to the given region names
func NewRegionFilter(geocoder geo.Geocoder, regions []string) *RegionFilter {
	supported := make(map[string]string, len(regions))
	for _, r := range regions {
		name := strings.TrimSpace(r)
		if name == "" {
			continue
		}
		supported[strings.ToLower(name)] = name
	}

	return &RegionFilter{
		geocoder:  geocoder,
		supported: supported,
	}
}

// ResolveRegion returns the canonical region name for location. Geocoding
// failures and unsupported regions yield false and are never propagated.
func (f *RegionFilter) ResolveRegion(ctx context.Context, location geo.Location) (string, bool) {
	if f.geocoder == nil {
		return "", false
	}

	place, err := f.geocoder.ReverseGeocode(ctx, location)
	if err != nil {
		log.Printf("Region lookup failed for %.5f,%.5f: %v", location.Lat, location.Lng, err)
		return "", false
	}
	if place == nil {
		return "", false
	}

	region, ok := f.supported[strings.ToLower(strings.TrimSpace(place.Locality))]
	return region, ok
}

// Supported reports whether name is one of the configured regions
func (f *RegionFilter) Supported(name string) bool {
	_, ok := f.supported[strings.ToLower(strings.TrimSpace(name))]
	return ok
}
