// internal/service/social/meetings.go

package social

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"rendezvous/internal/domain/collab"
	"rendezvous/internal/domain/errs"
	"rendezvous/internal/domain/event"
	"rendezvous/internal/domain/geo"
	"rendezvous/internal/domain/meeting"
)

// Match is the outcome of an accepted request
type Match struct {
	Meeting *meeting.Meeting `json:"meeting"`
	Session *collab.Session  `json:"session"`
}

// Ended is the outcome of ending a meeting
type Ended struct {
	Meeting       *meeting.Meeting `json:"meeting"`
	Session       *collab.Session  `json:"session,omitempty"`
	DeletedPieces []string         `json:"deletedPieces,omitempty"`
}

// SendRequest opens a meeting request for user at location
func (s *Service) SendRequest(ctx context.Context, user string, location geo.Location) (*meeting.Request, error) {
	req, err := s.meetings.SendRequest(ctx, user, location)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, event.RequestSent, req.ID, user, locationAttrs(location))
	return req, nil
}

// CancelRequest withdraws user's pending request, returning nil when there was none
func (s *Service) CancelRequest(ctx context.Context, user string) (*meeting.Request, error) {
	req, err := s.meetings.CancelRequest(ctx, user)
	if err != nil {
		return nil, err
	}
	if req != nil {
		s.publish(ctx, event.RequestCancelled, req.ID, user, nil)
	}
	return req, nil
}

// NearbyRequests lists open requests, closest to anchor first when given
func (s *Service) NearbyRequests(ctx context.Context, limit int, anchor *geo.Location) ([]meeting.Request, error) {
	return s.meetings.NearbyRequests(ctx, limit, anchor)
}

// AcceptRequest turns a request into a meeting and opens the collaboration
// session its two participants will write into
func (s *Service) AcceptRequest(ctx context.Context, acceptor string, location geo.Location, requestID string) (*Match, error) {
	m, err := s.meetings.AcceptRequest(ctx, acceptor, location, requestID)
	if err != nil {
		return nil, err
	}

	session, err := s.sessions.Create(ctx, m.Participants(), m.Location)
	if err != nil {
		// Without a session the meeting cannot produce a post; undo it
		if _, endErr := s.meetings.EndMeeting(ctx, acceptor); endErr != nil {
			log.Printf("Error undoing meeting %s: %v", m.ID, endErr)
		}
		return nil, fmt.Errorf("error opening session for meeting %s: %w", m.ID, err)
	}

	attrs := locationAttrs(m.Location)
	attrs["host"] = m.Host
	attrs["guest"] = m.Guest
	attrs["request"] = requestID
	s.publish(ctx, event.MeetingStarted, m.ID, acceptor, attrs)
	s.publish(ctx, event.SessionCreated, session.ID, acceptor, map[string]string{"meeting": m.ID})

	return &Match{Meeting: m, Session: session}, nil
}

// Status returns user's current request or meeting
func (s *Service) Status(ctx context.Context, user string) (*meeting.Status, error) {
	return s.meetings.GetByUser(ctx, user)
}

// EndMeeting ends user's meeting, tears down the session shared by its
// participants and deletes pieces contributed to it that never became a post
func (s *Service) EndMeeting(ctx context.Context, user string) (*Ended, error) {
	m, err := s.meetings.EndMeeting(ctx, user)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, event.MeetingEnded, m.ID, user, nil)

	ended := &Ended{Meeting: m}

	session, err := s.sessions.GetByMember(ctx, m.Host)
	if errors.Is(err, errs.ErrNotFound) {
		// Already finalized
		return ended, nil
	}
	if err != nil {
		return nil, err
	}
	if !session.HasMemberSet(m.Participants()) {
		return ended, nil
	}

	cleaned, err := s.sessions.Cleanup(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if cleaned == nil {
		return ended, nil
	}
	ended.Session = cleaned

	ended.DeletedPieces = s.discardPieces(ctx, cleaned.ID, cleaned.Items())

	s.publish(ctx, event.SessionCleanedUp, cleaned.ID, user, map[string]string{
		"meeting": m.ID,
		"pieces":  strconv.Itoa(len(ended.DeletedPieces)),
	})
	return ended, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
