// internal/domain/geo/model.go

package geo

import (
	"math"
	"time"

	"rendezvous/internal/domain/errs"
)

// Location is a point on the globe in decimal degrees
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects coordinates outside lat [-90,90] and lng [-180,180]
func (l Location) Validate() error {
	if math.IsNaN(l.Lat) || math.IsInf(l.Lat, 0) || l.Lat < -90 || l.Lat > 90 {
		return errs.BadValues(errs.CodeInvalidLocation, "latitude %v out of range [-90,90]", l.Lat)
	}
	if math.IsNaN(l.Lng) || math.IsInf(l.Lng, 0) || l.Lng < -180 || l.Lng > 180 {
		return errs.BadValues(errs.CodeInvalidLocation, "longitude %v out of range [-180,180]", l.Lng)
	}
	return nil
}

// Plus returns the componentwise sum of two locations. This is not a
// geodesic operation; the result must be validated before it is stored.
func (l Location) Plus(o Location) Location {
	return Location{Lat: l.Lat + o.Lat, Lng: l.Lng + o.Lng}
}

// Layer names an independent namespace of markers
type Layer string

const (
	LayerPosts           Layer = "posts"
	LayerMeetingRequests Layer = "meeting-requests"
)

// Marker ties a point of interest (a post or meeting request id) to a location
type Marker struct {
	Layer     Layer     `json:"layer"`
	POI       string    `json:"poi"`
	Location  Location  `json:"location"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Filter selects markers by point-of-interest identity
type Filter struct {
	restricted bool
	pois       map[string]struct{}
}

// All matches every marker in a layer
func All() Filter {
	return Filter{}
}

// OnlyPOIs matches markers whose poi is one of ids. An empty list matches nothing.
func OnlyPOIs(ids ...string) Filter {
	f := Filter{restricted: true, pois: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		f.pois[id] = struct{}{}
	}
	return f
}

// Matches reports whether poi passes the filter
func (f Filter) Matches(poi string) bool {
	if !f.restricted {
		return true
	}
	_, ok := f.pois[poi]
	return ok
}

// POIs returns the restricting ids and whether the filter restricts at all
func (f Filter) POIs() ([]string, bool) {
	if !f.restricted {
		return nil, false
	}
	ids := make([]string, 0, len(f.pois))
	for id := range f.pois {
		ids = append(ids, id)
	}
	return ids, true
}
