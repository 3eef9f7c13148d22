// internal/service/social/service.go

package social

import (
	"context"
	"log"
	"time"

	"rendezvous/internal/domain/event"
	"rendezvous/internal/domain/geo"
	collabService "rendezvous/internal/service/collab"
	contentService "rendezvous/internal/service/content"
	geoService "rendezvous/internal/service/geo"
	meetingService "rendezvous/internal/service/meeting"
	sentimentService "rendezvous/internal/service/sentiment"
)

// Service wires the independent components into the user-facing flows:
// meetings open collaboration sessions, completed sessions become posts on
// the map, and reactions on posts feed the heatmap
type Service struct {
	markers   *geoService.Index
	meetings  *meetingService.Coordinator
	sessions  *collabService.Sessions
	content   *contentService.Service
	reactions *sentimentService.Reactions
	heatmap   *sentimentService.Heatmap
	events    event.Publisher
	now       func() time.Time
}

// Deps are the components a Service composes
type Deps struct {
	Markers   *geoService.Index
	Meetings  *meetingService.Coordinator
	Sessions  *collabService.Sessions
	Content   *contentService.Service
	Reactions *sentimentService.Reactions
	Heatmap   *sentimentService.Heatmap
	Events    event.Publisher
}

// NewService creates a new social service
func NewService(deps Deps) *Service {
	return &Service{
		markers:   deps.Markers,
		meetings:  deps.Meetings,
		sessions:  deps.Sessions,
		content:   deps.Content,
		reactions: deps.Reactions,
		heatmap:   deps.Heatmap,
		events:    deps.Events,
		now:       time.Now,
	}
}

// publish sends an event; delivery failures are logged, never returned
func (s *Service) publish(ctx context.Context, t event.Type, subject, actor string, attrs map[string]string) {
	if s.events == nil {
		return
	}

	e := event.Event{
		Type:       t,
		Subject:    subject,
		Actor:      actor,
		Attributes: attrs,
		OccurredAt: s.now(),
	}
	if err := s.events.Publish(ctx, e); err != nil {
		log.Printf("Error publishing %s event for %s: %v", t, subject, err)
	}
}

func locationAttrs(l geo.Location) map[string]string {
	return map[string]string{
		"lat": formatCoord(l.Lat),
		"lng": formatCoord(l.Lng),
	}
}
