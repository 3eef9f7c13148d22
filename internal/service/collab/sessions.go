// internal/service/collab/sessions.go

package collab

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"rendezvous/internal/domain/collab"
	"rendezvous/internal/domain/errs"
	"rendezvous/internal/domain/geo"
)

// Store defines the storage interface for collaboration sessions
type Store interface {
	// CreateSession inserts a new session
	CreateSession(ctx context.Context, s collab.Session) error

	// GetSession returns the session with id, nil when absent
	GetSession(ctx context.Context, id string) (*collab.Session, error)

	// FindSessionByMember returns a session user belongs to, nil when absent
	FindSessionByMember(ctx context.Context, user string) (*collab.Session, error)

	// Contribute moves c.By from pending to contributions as one unit and
	// returns the updated session. Fails with SessionNotFound,
	// AlreadyContributed or NotAMember.
	Contribute(ctx context.Context, id string, c collab.Contribution) (*collab.Session, error)

	// PopSession deletes the session and its contributions, returning what
	// was deleted, nil when absent
	PopSession(ctx context.Context, id string) (*collab.Session, error)
}

// Sessions manages N-party contribution barriers
type Sessions struct {
	store Store
	now   func() time.Time
}

// NewSessions creates a new session manager
func NewSessions(store Store) *Sessions {
	return &Sessions{
		store: store,
		now:   time.Now,
	}
}

// Create opens a session for a non-empty set of distinct members
func (s *Sessions) Create(ctx context.Context, members []string, location geo.Location) (*collab.Session, error) {
	if len(members) == 0 {
		return nil, errs.BadValues(errs.CodeInvalidInput, "a session needs at least one member")
	}

	seen := make(map[string]struct{}, len(members))
	pending := make([]string, 0, len(members))
	for _, m := range members {
		m = strings.TrimSpace(m)
		if m == "" {
			return nil, errs.BadValues(errs.CodeInvalidInput, "member id must not be blank")
		}
		if _, dup := seen[m]; dup {
			return nil, errs.BadValues(errs.CodeInvalidInput, "member %s listed twice", m)
		}
		seen[m] = struct{}{}
		pending = append(pending, m)
	}

	if err := location.Validate(); err != nil {
		return nil, err
	}

	session := collab.Session{
		ID:            uuid.New().String(),
		Pending:       pending,
		Contributions: []collab.Contribution{},
		Location:      location,
		CreatedAt:     s.now(),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}
	return &session, nil
}

// Contribute records item as member's single contribution to session id
func (s *Sessions) Contribute(ctx context.Context, member, item, id string) (*collab.Session, error) {
	return s.store.Contribute(ctx, id, collab.Contribution{
		By:   member,
		Item: item,
		At:   s.now(),
	})
}

// Finalize returns the contributed items in contribution order and deletes
// the session. Only a complete session can be finalized, and only once.
func (s *Sessions) Finalize(ctx context.Context, id string) ([]string, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !session.IsComplete() {
		return nil, errs.NotAllowed(errs.CodeNotComplete, "", id)
	}

	popped, err := s.store.PopSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error deleting session: %w", err)
	}
	if popped == nil {
		return nil, errs.NotFound(errs.CodeSessionNotFound, "", id)
	}
	return popped.Items(), nil
}

// Cleanup force-deletes a session whatever its state. It returns the
// deleted session, nil when it was already gone.
func (s *Sessions) Cleanup(ctx context.Context, id string) (*collab.Session, error) {
	popped, err := s.store.PopSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error deleting session: %w", err)
	}
	return popped, nil
}

// Get returns session id
func (s *Sessions) Get(ctx context.Context, id string) (*collab.Session, error) {
	session, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("error getting session: %w", err)
	}
	if session == nil {
		return nil, errs.NotFound(errs.CodeSessionNotFound, "", id)
	}
	return session, nil
}

// GetByMember returns the session user belongs to
func (s *Sessions) GetByMember(ctx context.Context, user string) (*collab.Session, error) {
	session, err := s.store.FindSessionByMember(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error finding session: %w", err)
	}
	if session == nil {
		return nil, errs.NotFound(errs.CodeSessionNotFound, user, "")
	}
	return session, nil
}
