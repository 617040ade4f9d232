package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/othalahq/othala/internal/tagsvc"
)

// Handler holds API route handlers.
type Handler struct {
	svc *tagsvc.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *tagsvc.Service) *Handler {
	return &Handler{svc: svc}
}

// wildcardPath extracts the trailing path from the URL. Supports encoded
// slashes from OpenAPI clients (e.g. Image%20Library%2Faurora.md).
func wildcardPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListTags handles GET /api/tags.
//
//	@Summary		List vocabulary tags with usage counts
//	@Tags			tags
//	@Produce		json
//	@Param			query	query		string	false	"Substring filter"
//	@Param			sort	query		string	false	"Sort order"	Enums(name, count, relevance)
//	@Success		200		{object}	TagListResponse
//	@Security		BearerAuth
//	@Router			/tags [get]
func (h *Handler) ListTags(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.svc.ListTags(r.Context(), q.Get("query"), q.Get("sort"))
	if err != nil {
		writeServiceError(w, "list tags", err)
		return
	}
	writeJSON(w, http.StatusOK, TagListResponse{Tags: items})
}

// AddTag handles POST /api/tags.
//
//	@Summary		Add a tag to the vocabulary
//	@Tags			tags
//	@Accept			json
//	@Produce		json
//	@Param			body	body		AddTagRequest	true	"Tag to add"
//	@Success		201		{object}	AddTagResponse
//	@Failure		400		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags [post]
func (h *Handler) AddTag(w http.ResponseWriter, r *http.Request) {
	var req AddTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	tag, err := h.svc.AddTag(r.Context(), req.Name)
	if err != nil {
		writeServiceError(w, "add tag", err)
		return
	}
	writeJSON(w, http.StatusCreated, AddTagResponse{Tag: tag})
}

// RenameTag handles POST /api/tags/{tag}/rename.
//
//	@Summary		Rename a tag across the vocabulary and every document
//	@Tags			tags
//	@Accept			json
//	@Produce		json
//	@Param			tag		path		string				true	"Current tag name"
//	@Param			body	body		RenameTagRequest	true	"New name"
//	@Success		200		{object}	MutationResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags/{tag}/rename [post]
func (h *Handler) RenameTag(w http.ResponseWriter, r *http.Request) {
	oldName := chi.URLParam(r, "tag")
	var req RenameTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	newName, out, err := h.svc.RenameTag(r.Context(), oldName, req.NewName)
	if err != nil {
		writeServiceError(w, "rename tag", err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Tag: newName, Modified: out.Modified, Failed: out.Failed})
}

// DeleteTag handles DELETE /api/tags/{tag}.
//
//	@Summary		Delete a tag from the vocabulary and every document
//	@Tags			tags
//	@Produce		json
//	@Param			tag	path		string	true	"Tag name"
//	@Success		200	{object}	MutationResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/tags/{tag} [delete]
func (h *Handler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "tag")
	out, err := h.svc.DeleteTag(r.Context(), name)
	if err != nil {
		writeServiceError(w, "delete tag", err)
		return
	}
	writeJSON(w, http.StatusOK, MutationResponse{Tag: name, Modified: out.Modified, Failed: out.Failed})
}

// TagNotes handles GET /api/tags/{tag}/notes.
//
//	@Summary		List documents carrying a tag
//	@Tags			tags
//	@Produce		json
//	@Param			tag	path		string	true	"Tag name"
//	@Success		200	{object}	TagNotesResponse
//	@Security		BearerAuth
//	@Router			/tags/{tag}/notes [get]
func (h *Handler) TagNotes(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "tag")
	notes, err := h.svc.TagDocuments(r.Context(), name)
	if err != nil {
		writeServiceError(w, "tag notes", err)
		return
	}
	writeJSON(w, http.StatusOK, TagNotesResponse{Tag: name, Notes: notes})
}

// Scan handles POST /api/scan.
//
//	@Summary		Scan the vault for tags not in the vocabulary
//	@Tags			scan
//	@Produce		json
//	@Success		200	{object}	ScanResponse
//	@Security		BearerAuth
//	@Router			/scan [post]
func (h *Handler) Scan(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Scan(r.Context())
	if err != nil {
		writeServiceError(w, "scan", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ApplyScan handles POST /api/scan/apply.
//
//	@Summary		Fold scan results into the vocabulary
//	@Tags			scan
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ApplyScanRequest	true	"Tags and mode"
//	@Success		200		{object}	ApplyScanResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scan/apply [post]
func (h *Handler) ApplyScan(w http.ResponseWriter, r *http.Request) {
	var req ApplyScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	res, err := h.svc.ApplyScan(r.Context(), req.Mode, req.Tags)
	if err != nil {
		writeServiceError(w, "apply scan", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a reference note for an image
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateNoteRequest	true	"Note to create"
//	@Success		201		{object}	NoteDetail
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Image == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("image is required"))
		return
	}
	note, err := h.svc.CreateImageNote(r.Context(), tagsvc.NoteRequest{
		Image:  req.Image,
		Author: req.Author,
		Tags:   req.Tags,
		Notes:  req.Notes,
	})
	if err != nil {
		writeServiceError(w, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// ResolveNote handles POST /api/notes/resolve.
//
//	@Summary		Resolve the image embed at a cursor offset
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ResolveNoteRequest	true	"Text and offset"
//	@Success		200		{object}	ResolveNoteResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/resolve [post]
func (h *Handler) ResolveNote(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req ResolveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	image, err := h.svc.ResolveImage(r.Context(), req.Text, req.Offset)
	if err != nil {
		writeServiceError(w, "resolve note", err)
		return
	}
	writeJSON(w, http.StatusOK, ResolveNoteResponse{Image: image})
}

// GetNote handles GET /api/notes/*.
//
//	@Summary		Read a vault document
//	@Tags			notes
//	@Produce		json
//	@Param			path	path		string	true	"Document path"
//	@Success		200		{object}	NoteContentResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{path} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	content, err := h.svc.ReadNote(r.Context(), path)
	if err != nil {
		writeServiceError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, NoteContentResponse{Path: path, Content: content})
}

// ListImages handles GET /api/images.
//
//	@Summary		List vault images with their tagging state
//	@Tags			images
//	@Produce		json
//	@Success		200	{object}	ImageListResponse
//	@Security		BearerAuth
//	@Router			/images [get]
func (h *Handler) ListImages(w http.ResponseWriter, r *http.Request) {
	images, err := h.svc.ListImages(r.Context())
	if err != nil {
		writeServiceError(w, "list images", err)
		return
	}
	writeJSON(w, http.StatusOK, ImageListResponse{Images: images})
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Get the persisted settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsResponse
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, settingsResponse(h.svc.Settings(r.Context())))
}

// UpdateSettings handles PUT /api/settings.
//
//	@Summary		Update the non-tag settings
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		UpdateSettingsRequest	true	"Fields to change"
//	@Success		200		{object}	SettingsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req UpdateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	s, err := h.svc.UpdateSettings(r.Context(), req.DefaultFolder, req.AutoOpenNote)
	if err != nil {
		writeServiceError(w, "update settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse(s))
}

// ResetSettings handles POST /api/settings/reset.
//
//	@Summary		Restore the built-in default settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsResponse
//	@Security		BearerAuth
//	@Router			/settings/reset [post]
func (h *Handler) ResetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.ResetSettings(r.Context())
	if err != nil {
		writeServiceError(w, "reset settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse(s))
}
