// internal/server/handlers/meeting.go

package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rendezvous/internal/domain/errs"
	"rendezvous/internal/domain/geo"
	"rendezvous/internal/domain/meeting"
	"rendezvous/internal/service/social"
)

// MeetingService is what the meeting endpoints need
type MeetingService interface {
	SendRequest(ctx context.Context, user string, location geo.Location) (*meeting.Request, error)
	CancelRequest(ctx context.Context, user string) (*meeting.Request, error)
	NearbyRequests(ctx context.Context, limit int, anchor *geo.Location) ([]meeting.Request, error)
	AcceptRequest(ctx context.Context, acceptor string, location geo.Location, requestID string) (*social.Match, error)
	Status(ctx context.Context, user string) (*meeting.Status, error)
	EndMeeting(ctx context.Context, user string) (*social.Ended, error)
}

// MeetingHandler handles meeting-related HTTP requests
type MeetingHandler struct {
	service MeetingService
}

// NewMeetingHandler creates a new meeting handler
func NewMeetingHandler(service MeetingService) *MeetingHandler {
	return &MeetingHandler{
		service: service,
	}
}

type locationRequest struct {
	Location *geo.Location `json:"location"`
}

func (l locationRequest) required() (geo.Location, error) {
	if l.Location == nil {
		return geo.Location{}, errs.BadValues(errs.CodeInvalidLocation, "location is required")
	}
	return *l.Location, nil
}

// ListRequests returns open meeting requests, closest first when lat/lng are given
func (h *MeetingHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	anchor, err := parseLocationQuery(r)
	if err != nil {
		respondWithFailure(w, err)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	requests, err := h.service.NearbyRequests(r.Context(), limit, anchor)
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, requests)
}

// SendRequest opens a meeting request at the given location
func (h *MeetingHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	var body locationRequest
	if err := decodeJSON(r, &body); err != nil {
		respondWithFailure(w, err)
		return
	}
	location, err := body.required()
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	req, err := h.service.SendRequest(r.Context(), userFrom(r), location)
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"msg":     "Meeting request sent!",
		"request": req,
	})
}

// CancelRequest withdraws the caller's pending request
func (h *MeetingHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	req, err := h.service.CancelRequest(r.Context(), userFrom(r))
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	msg := "No meeting request to cancel"
	if req != nil {
		msg = "Meeting request cancelled!"
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"msg":     msg,
		"removed": req != nil,
		"request": req,
	})
}

// AcceptRequest accepts request {id} from the caller's location
func (h *MeetingHandler) AcceptRequest(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body locationRequest
	if err := decodeJSON(r, &body); err != nil {
		respondWithFailure(w, err)
		return
	}
	location, err := body.required()
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	match, err := h.service.AcceptRequest(r.Context(), userFrom(r), location, id)
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"msg":     "Meeting started!",
		"meeting": match.Meeting,
		"session": match.Session,
	})
}

// GetMeeting returns the caller's request or meeting
func (h *MeetingHandler) GetMeeting(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context(), userFrom(r))
	if errors.Is(err, errs.ErrNotFound) {
		status = &meeting.Status{}
	} else if err != nil {
		respondWithFailure(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"state":   status.State(),
		"request": status.Request,
		"meeting": status.Meeting,
	})
}

// EndMeeting ends the caller's meeting
func (h *MeetingHandler) EndMeeting(w http.ResponseWriter, r *http.Request) {
	ended, err := h.service.EndMeeting(r.Context(), userFrom(r))
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"msg":     "Meeting ended!",
		"meeting": ended.Meeting,
		"session": ended.Session,
	})
}
