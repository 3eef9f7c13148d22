// internal/server/server.go

package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"rendezvous/internal/config"
	"rendezvous/internal/server/handlers"
)

// Service is the full application surface the HTTP API exposes
type Service interface {
	handlers.MeetingService
	handlers.CollabService
	handlers.PostService
	handlers.ReactionService
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	router *chi.Mux
}

// route is one API endpoint; user routes require the X-User-ID header
type route struct {
	method  string
	pattern string
	handler http.HandlerFunc
	user    bool
}

// NewServer creates a new HTTP server
func NewServer(cfg config.ServerConfig, service Service) *Server {
	router := NewRouter(cfg, service)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		server: httpServer,
		router: router,
	}
}

// NewRouter builds the router with middleware and every API route
func NewRouter(cfg config.ServerConfig, service Service) *chi.Mux {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CorsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", handlers.UserHeader},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Route("/api", func(r chi.Router) {
		// Health check
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})

		r.Route("/v1", func(r chi.Router) {
			for _, rt := range routes(service) {
				var h http.Handler = rt.handler
				if rt.user {
					h = handlers.RequireUser(h)
				}
				r.Method(rt.method, rt.pattern, h)
			}
		})
	})

	return router
}

func routes(service Service) []route {
	meetingHandler := handlers.NewMeetingHandler(service)
	collabHandler := handlers.NewCollabHandler(service)
	postHandler := handlers.NewPostHandler(service)
	reactionHandler := handlers.NewReactionHandler(service)

	return []route{
		// Meetings
		{http.MethodGet, "/meeting/requests", meetingHandler.ListRequests, false},
		{http.MethodPost, "/meeting/requests", meetingHandler.SendRequest, true},
		{http.MethodDelete, "/meeting/requests", meetingHandler.CancelRequest, true},
		{http.MethodPut, "/meeting/accept/{id}", meetingHandler.AcceptRequest, true},
		{http.MethodGet, "/meeting", meetingHandler.GetMeeting, true},
		{http.MethodDelete, "/meeting", meetingHandler.EndMeeting, true},

		// Collaborations
		{http.MethodGet, "/collab", collabHandler.GetMine, true},
		{http.MethodGet, "/collab/{id}", collabHandler.GetSession, false},
		{http.MethodPost, "/collab/{id}/contribute", collabHandler.Contribute, true},

		// Posts
		{http.MethodGet, "/posts", postHandler.ListPosts, false},
		{http.MethodPost, "/posts", postHandler.CreatePost, true},
		{http.MethodPatch, "/posts/pieces/{id}", postHandler.UpdatePiece, true},
		{http.MethodDelete, "/posts/pieces/{id}", postHandler.DeletePiece, true},

		// Reactions and heatmap
		{http.MethodGet, "/posts/{id}/reactions", reactionHandler.GetReactions, false},
		{http.MethodPost, "/posts/{id}/reactions", reactionHandler.React, true},
		{http.MethodDelete, "/posts/{id}/reactions", reactionHandler.Unreact, true},
		{http.MethodGet, "/heatmap", reactionHandler.GetHeatmap, false},
	}
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
