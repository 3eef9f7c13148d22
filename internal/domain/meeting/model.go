// internal/domain/meeting/model.go

package meeting

import (
	"time"

	"rendezvous/internal/domain/geo"
)

// State is a user's position in the meeting lifecycle
type State string

const (
	StateIdle           State = "idle"
	StateRequestPending State = "request_pending"
	StateMatched        State = "matched"
)

// Request is an open invitation to meet near a location
type Request struct {
	ID        string       `json:"id"`
	Requester string       `json:"requester"`
	Location  geo.Location `json:"location"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Meeting pairs the requester (host) with the user who accepted (guest)
type Meeting struct {
	ID        string       `json:"id"`
	Host      string       `json:"host"`
	Guest     string       `json:"guest"`
	Location  geo.Location `json:"location"`
	CreatedAt time.Time    `json:"createdAt"`
}

// Involves reports whether user is the host or the guest
func (m Meeting) Involves(user string) bool {
	return m.Host == user || m.Guest == user
}

// Participants returns host and guest in that order
func (m Meeting) Participants() []string {
	return []string{m.Host, m.Guest}
}

// Status is what a user currently holds; at most one field is set
type Status struct {
	Request *Request `json:"request,omitempty"`
	Meeting *Meeting `json:"meeting,omitempty"`
}

// State derives the lifecycle state from the held record
func (s Status) State() State {
	switch {
	case s.Meeting != nil:
		return StateMatched
	case s.Request != nil:
		return StateRequestPending
	default:
		return StateIdle
	}
}
