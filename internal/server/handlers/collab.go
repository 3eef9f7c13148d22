// internal/server/handlers/collab.go

package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rendezvous/internal/domain/collab"
	"rendezvous/internal/service/social"
)

// CollabService is what the collaboration endpoints need
type CollabService interface {
	Session(ctx context.Context, id string) (*collab.Session, error)
	SessionForUser(ctx context.Context, user string) (*collab.Session, error)
	Contribute(ctx context.Context, user, id, body string) (*social.Contributed, error)
}

// CollabHandler handles collaboration-related HTTP requests
type CollabHandler struct {
	service CollabService
}

// NewCollabHandler creates a new collaboration handler
func NewCollabHandler(service CollabService) *CollabHandler {
	return &CollabHandler{
		service: service,
	}
}

type contentRequest struct {
	Content string `json:"content"`
}

// GetMine returns the session the caller belongs to
func (h *CollabHandler) GetMine(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.SessionForUser(r.Context(), userFrom(r))
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

// GetSession returns session {id}
func (h *CollabHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	session, err := h.service.Session(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, session)
}

// Contribute writes the caller's piece into session {id}
func (h *CollabHandler) Contribute(w http.ResponseWriter, r *http.Request) {
	var body contentRequest
	if err := decodeJSON(r, &body); err != nil {
		respondWithFailure(w, err)
		return
	}

	result, err := h.service.Contribute(r.Context(), userFrom(r), chi.URLParam(r, "id"), body.Content)
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	if result.Post != nil {
		respondWithJSON(w, http.StatusCreated, map[string]interface{}{
			"msg":  "Collaborative post successfully created!",
			"post": result.Post,
		})
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"msg":     "Contribution saved!",
		"piece":   result.Piece,
		"session": result.Session,
	})
}
