// internal/server/handlers/post.go

package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rendezvous/internal/domain/content"
	"rendezvous/internal/domain/geo"
	"rendezvous/internal/service/social"
)

// PostService is what the post endpoints need
type PostService interface {
	CreatePost(ctx context.Context, user, body string, location *geo.Location) (*content.ResolvedPost, error)
	ListPosts(ctx context.Context, q social.PostQuery) ([]content.ResolvedPost, error)
	UpdatePiece(ctx context.Context, user, id, body string) error
	DeletePiece(ctx context.Context, user, id string) (*content.DeleteResult, error)
}

// PostHandler handles post-related HTTP requests
type PostHandler struct {
	service PostService
}

// NewPostHandler creates a new post handler
func NewPostHandler(service PostService) *PostHandler {
	return &PostHandler{
		service: service,
	}
}

type createPostRequest struct {
	Content  string        `json:"content"`
	Location *geo.Location `json:"location"`
}

// ListPosts returns posts, optionally by author and nearest to lat/lng
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
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

	posts, err := h.service.ListPosts(r.Context(), social.PostQuery{
		Author: r.URL.Query().Get("author"),
		Anchor: anchor,
		Limit:  limit,
	})
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, posts)
}

// CreatePost publishes a single-author post
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var body createPostRequest
	if err := decodeJSON(r, &body); err != nil {
		respondWithFailure(w, err)
		return
	}

	post, err := h.service.CreatePost(r.Context(), userFrom(r), body.Content, body.Location)
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, map[string]interface{}{
		"msg":  "Post successfully created!",
		"post": post,
	})
}

// UpdatePiece replaces the content of piece {id}
func (h *PostHandler) UpdatePiece(w http.ResponseWriter, r *http.Request) {
	var body contentRequest
	if err := decodeJSON(r, &body); err != nil {
		respondWithFailure(w, err)
		return
	}

	if err := h.service.UpdatePiece(r.Context(), userFrom(r), chi.URLParam(r, "id"), body.Content); err != nil {
		respondWithFailure(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"msg": "Piece successfully updated!"})
}

// DeletePiece deletes piece {id}, and its post when it was the last piece
func (h *PostHandler) DeletePiece(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.DeletePiece(r.Context(), userFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		respondWithFailure(w, err)
		return
	}

	msg := "Piece deleted successfully!"
	if result.PostDeleted {
		msg = "Piece and its post deleted successfully!"
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"msg":    msg,
		"result": result,
	})
}
