// internal/domain/event/event.go

package event

import (
	"context"
	"time"
)

// Type names a state transition published for downstream consumers
type Type string

const (
	RequestSent      Type = "meeting.request.sent"
	RequestCancelled Type = "meeting.request.cancelled"
	MeetingStarted   Type = "meeting.started"
	MeetingEnded     Type = "meeting.ended"
	SessionCreated   Type = "collab.created"
	Contributed      Type = "collab.contributed"
	SessionFinalized Type = "collab.finalized"
	SessionCleanedUp Type = "collab.cleaned"
	PostCreated      Type = "post.created"
	PostDeleted      Type = "post.deleted"
	ReactionChanged  Type = "reaction.changed"
)

// Event is a single published transition
type Event struct {
	Type       Type              `json:"type"`
	Subject    string            `json:"subject"`
	Actor      string            `json:"actor,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	OccurredAt time.Time         `json:"occurredAt"`
}

// Publisher delivers events to the event bus
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}
