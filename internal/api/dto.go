package api

import (
	"github.com/othalahq/othala/internal/models"
	"github.com/othalahq/othala/internal/scanner"
	"github.com/othalahq/othala/internal/tagsvc"
	"github.com/othalahq/othala/internal/vocab"
)

// AddTagRequest is the request body for adding a vocabulary tag.
type AddTagRequest struct {
	Name string `json:"name" example:"sunset" validate:"required"`
}

// AddTagResponse returns the normalized name of the added tag.
type AddTagResponse struct {
	Tag string `json:"tag" example:"sunset" validate:"required"`
}

// RenameTagRequest is the request body for renaming a tag.
type RenameTagRequest struct {
	NewName string `json:"new_name" example:"golden-hour" validate:"required"`
}

// TagListResponse wraps the tag browser listing.
type TagListResponse struct {
	Tags []models.TagCount `json:"tags" validate:"required"`
}

// MutationResponse reports a vault-wide tag rewrite.
type MutationResponse struct {
	Tag      string   `json:"tag" example:"golden-hour" validate:"required"`
	Modified int      `json:"modified" example:"3" validate:"required"`
	Failed   []string `json:"failed,omitempty"`
}

// ScanResponse is the result of a vault scan (aliased from the domain layer).
type ScanResponse = scanner.Result

// ApplyScanRequest is the request body for folding scan results into the
// vocabulary.
type ApplyScanRequest struct {
	Mode string   `json:"mode" example:"merge" enums:"merge,replace"`
	Tags []string `json:"tags" validate:"required"`
}

// ApplyScanResponse reports the vocabulary update (aliased from the domain layer).
type ApplyScanResponse = tagsvc.ApplyResult

// CreateNoteRequest is the request body for creating an image reference note.
type CreateNoteRequest struct {
	Image  string   `json:"image" example:"photos/aurora.png" validate:"required"`
	Author string   `json:"author" example:"Anna"`
	Tags   []string `json:"tags" example:"landscape,night"`
	Notes  string   `json:"notes" example:"Taken at dawn."`
}

// ResolveNoteRequest locates the image embed at a byte offset in text.
type ResolveNoteRequest struct {
	Text   string `json:"text" validate:"required"`
	Offset int    `json:"offset" example:"42"`
}

// ResolveNoteResponse carries the resolved embed target.
type ResolveNoteResponse struct {
	Image string `json:"image" example:"aurora.png" validate:"required"`
}

// NoteDetail is the created-note response type (aliased from the domain layer).
type NoteDetail = tagsvc.NoteDetail

// NoteContentResponse is the raw content of one vault document.
type NoteContentResponse struct {
	Path    string `json:"path" example:"Image Library/aurora.md" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// ImageEntry is one library image (aliased from the domain layer).
type ImageEntry = tagsvc.ImageEntry

// ImageListResponse wraps the image library listing.
type ImageListResponse struct {
	Images []ImageEntry `json:"images" validate:"required"`
}

// TagNotesResponse lists the documents carrying a tag.
type TagNotesResponse struct {
	Tag   string   `json:"tag" example:"travel" validate:"required"`
	Notes []string `json:"notes" validate:"required"`
}

// SettingsResponse mirrors the persisted settings.
type SettingsResponse struct {
	Tags          []string `json:"tags" validate:"required"`
	DefaultFolder string   `json:"default_folder" example:"Image Library" validate:"required"`
	AutoOpenNote  bool     `json:"auto_open_note" example:"true" validate:"required"`
}

func settingsResponse(s vocab.Settings) SettingsResponse {
	return SettingsResponse{Tags: s.Tags, DefaultFolder: s.DefaultFolder, AutoOpenNote: s.AutoOpenNote}
}

// UpdateSettingsRequest changes the non-tag settings; omitted fields stay
// untouched.
type UpdateSettingsRequest struct {
	DefaultFolder *string `json:"default_folder,omitempty" example:"Image Library"`
	AutoOpenNote  *bool   `json:"auto_open_note,omitempty" example:"false"`
}

// ImageUploadResponse is returned after a successful image upload.
type ImageUploadResponse struct {
	Filename string `json:"filename" example:"aurora.png" validate:"required"`
	Path     string `json:"path" example:"images/aurora.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/api/images/images/aurora.png" validate:"required"`
}
