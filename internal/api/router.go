package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/vaultmcp/internal/fileservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *fileservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Files.
	r.Get("/files", h.ListFolder)
	r.Get("/files/*", h.ReadFile)
	r.Put("/files/*", h.WriteFile)
	r.Delete("/files/*", h.DeleteFile)
	r.Post("/move", h.MoveFile)

	// Folders.
	r.Post("/folders", h.CreateDirectory)
	r.Delete("/folders/*", h.DeleteFolder)

	// Search.
	r.Get("/find", h.FindFiles)
	r.Get("/search", h.Search)
	r.Post("/cache/invalidate", h.InvalidateCache)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
