// internal/adapter/memory/meetings.go

package memory

import (
	"context"
	"sync"

	"rendezvous/internal/domain/errs"
	"rendezvous/internal/domain/meeting"
)

// MeetingStore implements the meeting request and meeting store in memory
type MeetingStore struct {
	mu          sync.Mutex
	requests    map[string]meeting.Request
	byRequester map[string]string
	meetings    map[string]meeting.Meeting
	byUser      map[string]string
}

// NewMeetingStore creates a new meeting store
func NewMeetingStore() *MeetingStore {
	return &MeetingStore{
		requests:    make(map[string]meeting.Request),
		byRequester: make(map[string]string),
		meetings:    make(map[string]meeting.Meeting),
		byUser:      make(map[string]string),
	}
}

// CreateRequest saves a request if its requester is idle
func (s *MeetingStore) CreateRequest(ctx context.Context, req meeting.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIdle(req.Requester); err != nil {
		return err
	}
	s.requests[req.ID] = req
	s.byRequester[req.Requester] = req.ID
	return nil
}

// GetRequest retrieves a request by ID
func (s *MeetingStore) GetRequest(ctx context.Context, id string) (*meeting.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	return &req, nil
}

// FindRequestByRequester finds the request held by user
func (s *MeetingStore) FindRequestByRequester(ctx context.Context, user string) (*meeting.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byRequester[user]
	if !ok {
		return nil, nil
	}
	req := s.requests[id]
	return &req, nil
}

// FindRequests finds requests by ID
func (s *MeetingStore) FindRequests(ctx context.Context, ids []string) ([]meeting.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	requests := make([]meeting.Request, 0, len(ids))
	for _, id := range ids {
		if req, ok := s.requests[id]; ok {
			requests = append(requests, req)
		}
	}
	return requests, nil
}

// PopRequestByRequester deletes and returns the request held by user
func (s *MeetingStore) PopRequestByRequester(ctx context.Context, user string) (*meeting.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byRequester[user]
	if !ok {
		return nil, nil
	}
	req := s.requests[id]
	delete(s.requests, id)
	delete(s.byRequester, user)
	return &req, nil
}

// AcceptRequest turns a request into a meeting
func (s *MeetingStore) AcceptRequest(
	ctx context.Context,
	acceptor string,
	requestID string,
	build func(meeting.Request) (meeting.Meeting, error),
) (*meeting.Request, *meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkIdle(acceptor); err != nil {
		return nil, nil, err
	}
	req, ok := s.requests[requestID]
	if !ok {
		return nil, nil, errs.NotFound(errs.CodeRequestNotFound, acceptor, requestID)
	}

	m, err := build(req)
	if err != nil {
		return nil, nil, err
	}

	delete(s.requests, req.ID)
	delete(s.byRequester, req.Requester)
	s.meetings[m.ID] = m
	s.byUser[m.Host] = m.ID
	s.byUser[m.Guest] = m.ID
	return &req, &m, nil
}

// FindMeetingByUser finds the meeting user participates in
func (s *MeetingStore) FindMeetingByUser(ctx context.Context, user string) (*meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUser[user]
	if !ok {
		return nil, nil
	}
	m := s.meetings[id]
	return &m, nil
}

// PopMeetingByUser deletes and returns the meeting user participates in
func (s *MeetingStore) PopMeetingByUser(ctx context.Context, user string) (*meeting.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byUser[user]
	if !ok {
		return nil, nil
	}
	m := s.meetings[id]
	delete(s.meetings, id)
	delete(s.byUser, m.Host)
	delete(s.byUser, m.Guest)
	return &m, nil
}

func (s *MeetingStore) checkIdle(user string) error {
	if id, ok := s.byRequester[user]; ok {
		return errs.NotAllowed(errs.CodeAlreadyRequesting, user, id)
	}
	if id, ok := s.byUser[user]; ok {
		return errs.NotAllowed(errs.CodeAlreadyMeeting, user, id)
	}
	return nil
}
