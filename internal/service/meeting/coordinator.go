// internal/service/meeting/coordinator.go

package meeting

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"rendezvous/internal/domain/errs"
	"rendezvous/internal/domain/geo"
	"rendezvous/internal/domain/meeting"
)

// Store defines the storage interface for meeting requests and meetings.
// Every method that checks exclusivity does so atomically with its write.
type Store interface {
	// CreateRequest inserts req unless its requester already holds a request
	// (AlreadyRequesting) or a meeting (AlreadyMeeting)
	CreateRequest(ctx context.Context, req meeting.Request) error

	// GetRequest returns the request with id, nil when absent
	GetRequest(ctx context.Context, id string) (*meeting.Request, error)

	// FindRequestByRequester returns user's pending request, nil when absent
	FindRequestByRequester(ctx context.Context, user string) (*meeting.Request, error)

	// FindRequests returns the requests with the given ids in no particular order
	FindRequests(ctx context.Context, ids []string) ([]meeting.Request, error)

	// PopRequestByRequester deletes and returns user's pending request, nil when absent
	PopRequestByRequester(ctx context.Context, user string) (*meeting.Request, error)

	// AcceptRequest checks acceptor exclusivity, pops request id and inserts
	// the meeting produced by build, all as one unit. A request consumed by a
	// concurrent acceptor yields RequestNotFound.
	AcceptRequest(
		ctx context.Context,
		acceptor string,
		requestID string,
		build func(meeting.Request) (meeting.Meeting, error),
	) (*meeting.Request, *meeting.Meeting, error)

	// FindMeetingByUser returns the meeting user hosts or joined, nil when absent
	FindMeetingByUser(ctx context.Context, user string) (*meeting.Meeting, error)

	// PopMeetingByUser deletes and returns user's meeting, nil when absent
	PopMeetingByUser(ctx context.Context, user string) (*meeting.Meeting, error)
}

// Markers is the slice of the geo index the coordinator needs
type Markers interface {
	Add(ctx context.Context, layer geo.Layer, poi string, location geo.Location) error
	Remove(ctx context.Context, layer geo.Layer, poi string) error
	FindNearby(ctx context.Context, layer geo.Layer, filter geo.Filter, limit int, anchor *geo.Location) ([]geo.Marker, error)
}

// Coordinator drives users through idle, request pending and matched
type Coordinator struct {
	store   Store
	markers Markers
	now     func() time.Time
}

// NewCoordinator creates a new meeting coordinator
func NewCoordinator(store Store, markers Markers) *Coordinator {
	return &Coordinator{
		store:   store,
		markers: markers,
		now:     time.Now,
	}
}

// SendRequest opens a meeting request for user at location
func (c *Coordinator) SendRequest(ctx context.Context, user string, location geo.Location) (*meeting.Request, error) {
	if err := location.Validate(); err != nil {
		return nil, err
	}

	req := meeting.Request{
		ID:        uuid.New().String(),
		Requester: user,
		Location:  location,
		CreatedAt: c.now(),
	}
	if err := c.store.CreateRequest(ctx, req); err != nil {
		return nil, err
	}

	if err := c.markers.Add(ctx, geo.LayerMeetingRequests, req.ID, location); err != nil {
		// Undo the request so the user is not left pending without a marker
		if _, popErr := c.store.PopRequestByRequester(ctx, user); popErr != nil {
			log.Printf("Error rolling back request %s: %v", req.ID, popErr)
		}
		return nil, err
	}

	return &req, nil
}

// CancelRequest removes user's pending request, returning nil when there was none
func (c *Coordinator) CancelRequest(ctx context.Context, user string) (*meeting.Request, error) {
	req, err := c.store.PopRequestByRequester(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error removing request: %w", err)
	}
	if req == nil {
		return nil, nil
	}

	if err := c.markers.Remove(ctx, geo.LayerMeetingRequests, req.ID); err != nil {
		return req, err
	}
	return req, nil
}

// AcceptRequest turns request requestID into a meeting hosted by its
// requester with acceptor as guest. The meeting location is the
// componentwise sum of the request location and location.
func (c *Coordinator) AcceptRequest(
	ctx context.Context,
	acceptor string,
	location geo.Location,
	requestID string,
) (*meeting.Meeting, error) {
	if err := location.Validate(); err != nil {
		return nil, err
	}

	req, m, err := c.store.AcceptRequest(ctx, acceptor, requestID, func(req meeting.Request) (meeting.Meeting, error) {
		at := req.Location.Plus(location)
		if err := at.Validate(); err != nil {
			return meeting.Meeting{}, err
		}
		return meeting.Meeting{
			ID:        uuid.New().String(),
			Host:      req.Requester,
			Guest:     acceptor,
			Location:  at,
			CreatedAt: c.now(),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	if err := c.markers.Remove(ctx, geo.LayerMeetingRequests, req.ID); err != nil {
		log.Printf("Error removing marker for accepted request %s: %v", req.ID, err)
	}
	return m, nil
}

// EndMeeting deletes the meeting user participates in and returns it so the
// caller can tear down anything linked to it
func (c *Coordinator) EndMeeting(ctx context.Context, user string) (*meeting.Meeting, error) {
	m, err := c.store.PopMeetingByUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error ending meeting: %w", err)
	}
	if m == nil {
		return nil, errs.NotFound(errs.CodeMeetingNotFound, user, "")
	}
	return m, nil
}

// GetByUser returns user's current request or meeting
func (c *Coordinator) GetByUser(ctx context.Context, user string) (*meeting.Status, error) {
	m, err := c.store.FindMeetingByUser(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error finding meeting: %w", err)
	}
	if m != nil {
		return &meeting.Status{Meeting: m}, nil
	}

	req, err := c.store.FindRequestByRequester(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error finding request: %w", err)
	}
	if req != nil {
		return &meeting.Status{Request: req}, nil
	}

	return nil, errs.NotFound(errs.CodeMeetingNotFound, user, "")
}

// GetRequest returns the request with id
func (c *Coordinator) GetRequest(ctx context.Context, id string) (*meeting.Request, error) {
	req, err := c.store.GetRequest(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting request: %w", err)
	}
	if req == nil {
		return nil, errs.NotFound(errs.CodeRequestNotFound, "", id)
	}
	return req, nil
}

// NearbyRequests lists open requests, closest to anchor first when given
func (c *Coordinator) NearbyRequests(ctx context.Context, limit int, anchor *geo.Location) ([]meeting.Request, error) {
	markers, err := c.markers.FindNearby(ctx, geo.LayerMeetingRequests, geo.All(), limit, anchor)
	if err != nil {
		return nil, err
	}
	if len(markers) == 0 {
		return []meeting.Request{}, nil
	}

	ids := make([]string, len(markers))
	for i, m := range markers {
		ids[i] = m.POI
	}
	found, err := c.store.FindRequests(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("error finding requests: %w", err)
	}

	byID := make(map[string]meeting.Request, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}

	// Keep marker order; skip markers whose request vanished in between
	requests := make([]meeting.Request, 0, len(markers))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			requests = append(requests, r)
		}
	}
	return requests, nil
}
