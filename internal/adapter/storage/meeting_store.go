// internal/adapter/storage/meeting_store.go

package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"rendezvous/internal/domain/errs"
	"rendezvous/internal/domain/meeting"
)

// MeetingStore implements storage for meeting requests and meetings.
// Exclusivity checks take per-user advisory locks so a check and its write
// cannot interleave with another transaction touching the same user.
type MeetingStore struct {
	db *pgxpool.Pool
}

// NewMeetingStore creates a new meeting store
func NewMeetingStore(db *pgxpool.Pool) *MeetingStore {
	return &MeetingStore{
		db: db,
	}
}

const requestColumns = `id, requester, lat, lng, created_at`

const meetingColumns = `id, host, guest, lat, lng, created_at`

// CreateRequest saves a request if its requester is idle
func (s *MeetingStore) CreateRequest(ctx context.Context, req meeting.Request) error {
	return s.db.BeginFunc(ctx, func(tx pgx.Tx) error {
		if err := lockUsers(ctx, tx, req.Requester); err != nil {
			return err
		}
		if err := checkIdle(ctx, tx, req.Requester); err != nil {
			return err
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO meeting_requests (id, requester, lat, lng, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, req.ID, req.Requester, req.Location.Lat, req.Location.Lng, req.CreatedAt)
		if err != nil {
			return fmt.Errorf("error inserting request: %w", err)
		}
		return nil
	})
}

// GetRequest retrieves a request by ID
func (s *MeetingStore) GetRequest(ctx context.Context, id string) (*meeting.Request, error) {
	row := s.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM meeting_requests WHERE id = $1`, id)
	return scanRequest(row)
}

// FindRequestByRequester finds the request held by user
func (s *MeetingStore) FindRequestByRequester(ctx context.Context, user string) (*meeting.Request, error) {
	row := s.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM meeting_requests WHERE requester = $1`, user)
	return scanRequest(row)
}

// FindRequests finds requests by ID
func (s *MeetingStore) FindRequests(ctx context.Context, ids []string) ([]meeting.Request, error) {
	if len(ids) == 0 {
		return []meeting.Request{}, nil
	}

	rows, err := s.db.Query(ctx, `SELECT `+requestColumns+` FROM meeting_requests WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, fmt.Errorf("error executing query: %w", err)
	}
	defer rows.Close()

	requests := []meeting.Request{}
	for rows.Next() {
		var r meeting.Request
		if err := rows.Scan(&r.ID, &r.Requester, &r.Location.Lat, &r.Location.Lng, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning request: %w", err)
		}
		requests = append(requests, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating requests: %w", err)
	}
	return requests, nil
}

// PopRequestByRequester deletes and returns the request held by user
func (s *MeetingStore) PopRequestByRequester(ctx context.Context, user string) (*meeting.Request, error) {
	row := s.db.QueryRow(ctx, `DELETE FROM meeting_requests WHERE requester = $1 RETURNING `+requestColumns, user)
	return scanRequest(row)
}

// AcceptRequest consumes a request and inserts the meeting built from it
func (s *MeetingStore) AcceptRequest(
	ctx context.Context,
	acceptor string,
	requestID string,
	build func(meeting.Request) (meeting.Meeting, error),
) (*meeting.Request, *meeting.Meeting, error) {
	var req *meeting.Request
	var m meeting.Meeting

	err := s.db.BeginFunc(ctx, func(tx pgx.Tx) error {
		var requester string
		err := tx.QueryRow(ctx, `SELECT requester FROM meeting_requests WHERE id = $1`, requestID).Scan(&requester)
		if errors.Is(err, pgx.ErrNoRows) {
			return errs.NotFound(errs.CodeRequestNotFound, acceptor, requestID)
		}
		if err != nil {
			return fmt.Errorf("error querying request: %w", err)
		}

		if err := lockUsers(ctx, tx, acceptor, requester); err != nil {
			return err
		}
		if err := checkIdle(ctx, tx, acceptor); err != nil {
			return err
		}

		// A concurrent acceptor that committed first leaves nothing to delete
		row := tx.QueryRow(ctx, `DELETE FROM meeting_requests WHERE id = $1 RETURNING `+requestColumns, requestID)
		req, err = scanRequest(row)
		if err != nil {
			return err
		}
		if req == nil {
			return errs.NotFound(errs.CodeRequestNotFound, acceptor, requestID)
		}

		m, err = build(*req)
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO meetings (id, host, guest, lat, lng, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, m.ID, m.Host, m.Guest, m.Location.Lat, m.Location.Lng, m.CreatedAt)
		if err != nil {
			return fmt.Errorf("error inserting meeting: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return req, &m, nil
}

// FindMeetingByUser finds the meeting user participates in
func (s *MeetingStore) FindMeetingByUser(ctx context.Context, user string) (*meeting.Meeting, error) {
	row := s.db.QueryRow(ctx, `SELECT `+meetingColumns+` FROM meetings WHERE host = $1 OR guest = $1`, user)
	return scanMeeting(row)
}

// PopMeetingByUser deletes and returns the meeting user participates in
func (s *MeetingStore) PopMeetingByUser(ctx context.Context, user string) (*meeting.Meeting, error) {
	row := s.db.QueryRow(ctx, `DELETE FROM meetings WHERE host = $1 OR guest = $1 RETURNING `+meetingColumns, user)
	return scanMeeting(row)
}

// lockUsers takes transaction-scoped advisory locks in a stable order
func lockUsers(ctx context.Context, tx pgx.Tx, users ...string) error {
	sorted := append([]string(nil), users...)
	sort.Strings(sorted)

	var last string
	for i, u := range sorted {
		if i > 0 && u == last {
			continue
		}
		last = u
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, u); err != nil {
			return fmt.Errorf("error locking user %s: %w", u, err)
		}
	}
	return nil
}

func checkIdle(ctx context.Context, tx pgx.Tx, user string) error {
	var id string
	err := tx.QueryRow(ctx, `SELECT id FROM meeting_requests WHERE requester = $1`, user).Scan(&id)
	if err == nil {
		return errs.NotAllowed(errs.CodeAlreadyRequesting, user, id)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("error querying request: %w", err)
	}

	err = tx.QueryRow(ctx, `SELECT id FROM meetings WHERE host = $1 OR guest = $1`, user).Scan(&id)
	if err == nil {
		return errs.NotAllowed(errs.CodeAlreadyMeeting, user, id)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("error querying meeting: %w", err)
	}
	return nil
}

func scanRequest(row pgx.Row) (*meeting.Request, error) {
	var r meeting.Request
	err := row.Scan(&r.ID, &r.Requester, &r.Location.Lat, &r.Location.Lng, &r.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning request: %w", err)
	}
	return &r, nil
}

func scanMeeting(row pgx.Row) (*meeting.Meeting, error) {
	var m meeting.Meeting
	err := row.Scan(&m.ID, &m.Host, &m.Guest, &m.Location.Lat, &m.Location.Lng, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error scanning meeting: %w", err)
	}
	return &m, nil
}
