package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/othalahq/othala/internal/tagsvc"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// vaultRoot is used to resolve image files for upload and serving.
func NewRouter(svc *tagsvc.Service, authEnabled bool, token string, sseHandler http.Handler, vaultRoot string) chi.Router {
	h := NewHandler(svc)
	ih := NewImageHandler(vaultRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Tag vocabulary.
	r.Get("/tags", h.ListTags)
	r.Post("/tags", h.AddTag)
	r.Post("/tags/{tag}/rename", h.RenameTag)
	r.Delete("/tags/{tag}", h.DeleteTag)
	r.Get("/tags/{tag}/notes", h.TagNotes)

	// Vault scan.
	r.Post("/scan", h.Scan)
	r.Post("/scan/apply", h.ApplyScan)

	// Reference notes.
	r.Post("/notes", h.CreateNote)
	r.Post("/notes/resolve", h.ResolveNote)
	r.Get("/notes/*", h.GetNote)

	// Image library.
	r.Get("/images", h.ListImages)
	r.Post("/images", ih.Upload)
	r.Get("/images/*", ih.ServeFile)

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.UpdateSettings)
	r.Post("/settings/reset", h.ResetSettings)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
