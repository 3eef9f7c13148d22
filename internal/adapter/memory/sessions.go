// internal/adapter/memory/sessions.go

package memory

import (
	"context"
	"sort"
	"sync"

	"rendezvous/internal/domain/collab"
	"rendezvous/internal/domain/errs"
)

// SessionStore implements the collaboration session store in memory
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]collab.Session
}

// NewSessionStore creates a new session store
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]collab.Session),
	}
}

// CreateSession saves a new session
func (s *SessionStore) CreateSession(ctx context.Context, session collab.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = copySession(session)
	return nil
}

// GetSession retrieves a session by ID
func (s *SessionStore) GetSession(ctx context.Context, id string) (*collab.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	out := copySession(session)
	return &out, nil
}

// FindSessionByMember finds the oldest session user belongs to
func (s *SessionStore) FindSessionByMember(ctx context.Context, user string) (*collab.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matches []collab.Session
	for _, session := range s.sessions {
		if session.IsPending(user) || session.HasContributed(user) {
			matches = append(matches, session)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	out := copySession(matches[0])
	return &out, nil
}

// Contribute moves the contributor from pending to contributions
func (s *SessionStore) Contribute(ctx context.Context, id string, c collab.Contribution) (*collab.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, errs.NotFound(errs.CodeSessionNotFound, c.By, id)
	}
	if session.HasContributed(c.By) {
		return nil, errs.NotAllowed(errs.CodeAlreadyContributed, c.By, id)
	}
	if !session.IsPending(c.By) {
		return nil, errs.NotAllowed(errs.CodeNotAMember, c.By, id)
	}

	session = copySession(session)
	session.Pending = removeString(session.Pending, c.By)
	session.Contributions = append(session.Contributions, c)
	s.sessions[id] = session

	out := copySession(session)
	return &out, nil
}

// PopSession deletes and returns a session
func (s *SessionStore) PopSession(ctx context.Context, id string) (*collab.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	delete(s.sessions, id)
	return &session, nil
}

func copySession(s collab.Session) collab.Session {
	s.Pending = append([]string{}, s.Pending...)
	s.Contributions = append([]collab.Contribution{}, s.Contributions...)
	return s
}

func removeString(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, item := range list {
		if item != v {
			out = append(out, item)
		}
	}
	return out
}
