package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/othalahq/othala/internal/imageref"
)

const (
	imagesDir      = "images"
	maxUploadBytes = 50 << 20 // 50 MB
)

// ImageHandler accepts image uploads and serves image files from the vault.
type ImageHandler struct {
	vaultRoot string
}

// NewImageHandler creates a handler rooted at the vault directory.
func NewImageHandler(vaultRoot string) *ImageHandler {
	return &ImageHandler{vaultRoot: vaultRoot}
}

// uploadDir returns the absolute path to the upload directory.
func (h *ImageHandler) uploadDir() string {
	return filepath.Join(h.vaultRoot, imagesDir)
}

// safeName validates that the filename is a plain image name (no path
// separators, no traversal) and returns the absolute path under the upload
// dir.
func (h *ImageHandler) safeName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("filename is required")
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
		return "", fmt.Errorf("invalid filename: %s", name)
	}
	if !imageref.IsImage(cleaned) {
		return "", fmt.Errorf("unsupported image extension: %s", name)
	}
	abs := filepath.Join(h.uploadDir(), cleaned)
	if !strings.HasPrefix(abs, h.uploadDir()+string(os.PathSeparator)) && abs != h.uploadDir() {
		return "", fmt.Errorf("path escapes upload directory")
	}
	return abs, nil
}

// ServeFile handles GET /api/images/*. The wildcard is a vault-relative
// path, so images anywhere in the vault can be fetched, not just uploads.
func (h *ImageHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	rel := wildcardPath(r)
	if rel == "" {
		http.Error(w, "path is required", http.StatusBadRequest)
		return
	}
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) || strings.Contains(cleaned, "..") {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	if !imageref.IsImage(cleaned) {
		http.Error(w, "not an image path", http.StatusBadRequest)
		return
	}
	abs := filepath.Join(h.vaultRoot, cleaned)
	if !strings.HasPrefix(abs, h.vaultRoot+string(os.PathSeparator)) {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/images (multipart/form-data, field "file"). The
// file lands in the vault's images directory; the watcher picks it up and
// broadcasts the library change.
func (h *ImageHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	abs, err := h.safeName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	// Ensure the upload directory exists.
	if err := os.MkdirAll(h.uploadDir(), 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create images dir"))
		return
	}

	dst, err := os.Create(abs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create file"))
		return
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to write file"))
		return
	}

	rel := imagesDir + "/" + header.Filename
	writeJSON(w, http.StatusCreated, ImageUploadResponse{
		Filename: header.Filename,
		Path:     rel,
		Size:     written,
		URL:      "/api/images/" + rel,
	})
}
