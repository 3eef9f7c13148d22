// internal/server/handlers/reaction.go

package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rendezvous/internal/domain/sentiment"
	"rendezvous/internal/service/social"
	sentimentService "rendezvous/internal/service/sentiment"
)

// ReactionService is what the reaction and heatmap endpoints need
type ReactionService interface {
	React(ctx context.Context, user, id string, choice sentiment.Choice) (*social.Reacted, error)
	Unreact(ctx context.Context, user, id string) (*social.Reacted, error)
	Reactions(ctx context.Context, id string) (*social.ReactionSummary, error)
	Heatmap(ctx context.Context) ([]sentimentService.RegionScore, error)
}

// ReactionHandler handles reaction and heatmap HTTP requests
type ReactionHandler struct {
	service ReactionService
}

// NewReactionHandler creates a new reaction handler
func NewReactionHandler(service ReactionService) *ReactionHandler {
	return &ReactionHandler{
		service: service,
	}
}

type reactRequest struct {
	Choice sentiment.Choice `json:"choice"`
}

// GetReactions returns the reactions to post {id}
func (h *ReactionHandler) GetReactions(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Reactions(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}

// React sets the caller's reaction to post {id}
func (h *ReactionHandler) React(w http.ResponseWriter, r *http.Request) {
	var body reactRequest
	if err := decodeJSON(r, &body); err != nil {
		respondWithFailure(w, err)
		return
	}

	reacted, err := h.service.React(r.Context(), userFrom(r), chi.URLParam(r, "id"), body.Choice)
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	msg := "Reaction added!"
	if reacted.Previous != nil {
		msg = "Reaction changed!"
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"msg":      msg,
		"reaction": reacted.Reaction,
		"previous": reacted.Previous,
	})
}

// Unreact removes the caller's reaction to post {id}
func (h *ReactionHandler) Unreact(w http.ResponseWriter, r *http.Request) {
	reacted, err := h.service.Unreact(r.Context(), userFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"msg":      "Reaction removed!",
		"previous": reacted.Previous,
	})
}

// GetHeatmap returns the decayed sentiment per region
func (h *ReactionHandler) GetHeatmap(w http.ResponseWriter, r *http.Request) {
	regions, err := h.service.Heatmap(r.Context())
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"regions": regions,
		"choices": sentiment.Choices(),
	})
}
