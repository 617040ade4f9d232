// Package tagsvc is the operation boundary of the tag engine. It coordinates
// the vocabulary store, the vault storage, and the metadata cache, and emits
// change events for the live surfaces.
package tagsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/othalahq/othala/internal/apperr"
	"github.com/othalahq/othala/internal/imageref"
	"github.com/othalahq/othala/internal/index"
	"github.com/othalahq/othala/internal/models"
	"github.com/othalahq/othala/internal/mutator"
	"github.com/othalahq/othala/internal/notegen"
	"github.com/othalahq/othala/internal/rank"
	"github.com/othalahq/othala/internal/scanner"
	"github.com/othalahq/othala/internal/storage"
	"github.com/othalahq/othala/internal/vocab"
)

// NoteRequest describes a reference note to create for an image.
type NoteRequest struct {
	Image  string
	Author string
	Tags   []string
	Notes  string
}

// NoteDetail is the result of creating a reference note.
type NoteDetail struct {
	Path     string `json:"path"`
	Content  string `json:"content"`
	AutoOpen bool   `json:"auto_open"`
}

// ImageEntry is one vault image with its tagging state.
type ImageEntry struct {
	Path   string   `json:"path"`
	Size   int64    `json:"size"`
	Tagged bool     `json:"tagged"`
	Notes  []string `json:"notes"`
}

// ApplyResult reports a vocabulary update from scan results.
type ApplyResult struct {
	Added int      `json:"added"`
	Total int      `json:"total"`
	Tags  []string `json:"tags"`
}

// Apply modes for ApplyScan.
const (
	ApplyMerge   = "merge"
	ApplyReplace = "replace"
)

// Service coordinates vocabulary, storage, and cache operations.
type Service struct {
	store  storage.Provider
	vocab  *vocab.Store
	db     *index.DB
	opts   scanner.Options
	logger *slog.Logger
	notify func(kind, ref string)
}

// NewService creates the tag service. notify may be nil; when set it is
// called after each successful mutation with an event kind and a subject.
func NewService(store storage.Provider, vc *vocab.Store, db *index.DB, opts scanner.Options, logger *slog.Logger, notify func(kind, ref string)) *Service {
	return &Service{store: store, vocab: vc, db: db, opts: opts, logger: logger, notify: notify}
}

// ListTags returns the vocabulary with usage counts, filtered by query and
// ordered by sortMode ("name", "count", or "relevance"; anything else falls
// back to name order). Counts come from the metadata cache; vocabulary tags
// without occurrences count zero.
func (s *Service) ListTags(_ context.Context, query, sortMode string) ([]models.TagCount, error) {
	counts, err := s.db.TagCounts()
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int, len(counts))
	for _, c := range counts {
		byName[c.Name] = c.Count
	}
	items := make([]models.TagCount, 0, len(byName))
	for _, t := range s.vocab.Tags() {
		items = append(items, models.TagCount{Name: t, Count: byName[t]})
	}
	items = rank.Filter(items, query)
	switch sortMode {
	case "count":
		items = rank.ByCount(items)
	case "relevance":
		items = rank.ByRelevance(items, query)
	default:
		items = rank.ByName(items)
	}
	return items, nil
}

// AddTag adds a tag to the vocabulary and returns its normalized name.
func (s *Service) AddTag(_ context.Context, name string) (string, error) {
	tag, err := s.vocab.Add(name)
	if err != nil {
		return "", err
	}
	s.emit("vocabulary.updated", tag)
	return tag, nil
}

// RenameTag renames a vocabulary tag and rewrites its occurrences in every
// document, returning the normalized new name. The vocabulary changes
// first; document failures are reported in the outcome without rolling it
// back. Renaming a tag to itself is a no-op.
func (s *Service) RenameTag(ctx context.Context, oldName, newName string) (string, mutator.Outcome, error) {
	o := vocab.Normalize(oldName)
	n, err := s.vocab.Rename(oldName, newName)
	if err != nil {
		return "", mutator.Outcome{}, err
	}
	if o == n {
		return n, mutator.Outcome{}, nil
	}
	out, err := mutator.Rename(ctx, s.store, o, n, s.logger)
	if err != nil {
		return n, out, err
	}
	s.refreshCache()
	s.emit("vocabulary.updated", n)
	return n, out, nil
}

// DeleteTag removes a tag from the vocabulary and strips its occurrences
// from every document, best effort.
func (s *Service) DeleteTag(ctx context.Context, name string) (mutator.Outcome, error) {
	n := vocab.Normalize(name)
	if err := s.vocab.Remove(n); err != nil {
		return mutator.Outcome{}, err
	}
	out, err := mutator.Delete(ctx, s.store, n, s.logger)
	if err != nil {
		return out, err
	}
	s.refreshCache()
	s.emit("vocabulary.updated", n)
	return out, nil
}

// Scan walks the vault and returns tag candidates not yet in the
// vocabulary. It never mutates anything.
func (s *Service) Scan(ctx context.Context) (scanner.Result, error) {
	return scanner.Scan(ctx, s.store, s.vocab.Set(), s.opts, s.logger)
}

// ApplyScan folds scan results into the vocabulary. Mode "merge" (the
// default) adds the given tags; "replace" swaps the whole vocabulary for
// them. Added counts the new entries; for a replace it equals the total.
func (s *Service) ApplyScan(_ context.Context, mode string, tags []string) (ApplyResult, error) {
	switch mode {
	case "", ApplyMerge:
		added, err := s.vocab.Merge(tags)
		if err != nil {
			return ApplyResult{}, err
		}
		all := s.vocab.Tags()
		if added > 0 {
			s.emit("vocabulary.updated", "")
		}
		return ApplyResult{Added: added, Total: len(all), Tags: all}, nil
	case ApplyReplace:
		if err := s.vocab.Replace(tags); err != nil {
			return ApplyResult{}, err
		}
		all := s.vocab.Tags()
		s.emit("vocabulary.updated", "")
		return ApplyResult{Added: len(all), Total: len(all), Tags: all}, nil
	default:
		return ApplyResult{}, fmt.Errorf("apply scan: unknown mode %q: %w", mode, apperr.ErrValidation)
	}
}

// CreateImageNote renders and writes the reference note for an image. The
// image must exist in the vault; tags outside the vocabulary are adopted
// into it; an existing note at the derived path is never overwritten.
func (s *Service) CreateImageNote(_ context.Context, req NoteRequest) (*NoteDetail, error) {
	name := strings.TrimSpace(req.Image)
	if name == "" || !imageref.IsImage(name) {
		return nil, fmt.Errorf("create note: %q: %w", name, apperr.ErrNotAnImage)
	}
	imagePath, err := s.resolveImagePath(name)
	if err != nil {
		return nil, err
	}

	tags := make([]string, 0, len(req.Tags))
	for _, t := range req.Tags {
		n := vocab.Normalize(t)
		if err := vocab.ValidateTag(n); err != nil {
			return nil, err
		}
		if !containsString(tags, n) {
			tags = append(tags, n)
		}
	}
	if len(tags) > 0 {
		added, err := s.vocab.Merge(tags)
		if err != nil {
			return nil, err
		}
		if added > 0 {
			s.emit("vocabulary.updated", "")
		}
	}

	settings := s.vocab.Settings()
	notePath := notegen.NotePath(settings.DefaultFolder, imagePath)
	if _, err := s.store.Read(notePath); err == nil {
		return nil, fmt.Errorf("create note: %s: %w", notePath, apperr.ErrAlreadyExists)
	}

	content := notegen.Render(notegen.Note{
		Image:   path.Base(imagePath),
		Author:  strings.TrimSpace(req.Author),
		Tags:    tags,
		Notes:   req.Notes,
		Created: time.Now(),
	})
	if err := s.store.Write(notePath, []byte(content)); err != nil {
		return nil, err
	}
	if err := index.IndexDocument(s.db, notePath, []byte(content), s.opts); err != nil {
		s.logger.Warn("create note: index failed", slog.String("path", notePath), slog.String("error", err.Error()))
	}
	s.emit("note.created", notePath)
	return &NoteDetail{Path: notePath, Content: content, AutoOpen: settings.AutoOpenNote}, nil
}

// ResolveImage finds the image embed at the byte offset in text (or the
// first embed when offset is negative) and returns its target.
func (s *Service) ResolveImage(_ context.Context, text string, offset int) (string, error) {
	target, ok := imageref.FindAt(text, offset)
	if !ok {
		return "", fmt.Errorf("resolve image: no embed at offset %d: %w", offset, apperr.ErrNotFound)
	}
	return target, nil
}

// ListImages returns every vault image with the notes that embed it. Embeds
// reference images by bare name or by vault path; both are matched.
func (s *Service) ListImages(_ context.Context) ([]ImageEntry, error) {
	metas, err := s.store.ListImages("")
	if err != nil {
		return nil, err
	}
	embeds, err := s.db.EmbedsByTarget()
	if err != nil {
		return nil, err
	}
	out := make([]ImageEntry, 0, len(metas))
	for _, m := range metas {
		notes := embeds[m.Path]
		if len(notes) == 0 {
			notes = embeds[path.Base(m.Path)]
		}
		out = append(out, ImageEntry{
			Path:   m.Path,
			Size:   m.Size,
			Tagged: len(notes) > 0,
			Notes:  nonNilSlice(notes),
		})
	}
	return out, nil
}

// TagDocuments returns the paths of documents carrying the tag. An unused
// tag yields an empty list.
func (s *Service) TagDocuments(_ context.Context, name string) ([]string, error) {
	docs, err := s.db.DocumentsWithTag(vocab.Normalize(name))
	if err != nil {
		return nil, err
	}
	return nonNilSlice(docs), nil
}

// ReadNote returns the raw content of a vault document.
func (s *Service) ReadNote(_ context.Context, notePath string) (string, error) {
	data, err := s.store.Read(notePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("read note: %s: %w", notePath, apperr.ErrNotFound)
		}
		return "", err
	}
	return string(data), nil
}

// Settings returns the persisted settings.
func (s *Service) Settings(_ context.Context) vocab.Settings {
	return s.vocab.Settings()
}

// UpdateSettings changes the non-tag settings. Nil fields stay untouched.
func (s *Service) UpdateSettings(_ context.Context, folder *string, autoOpen *bool) (vocab.Settings, error) {
	out, err := s.vocab.SetOptions(folder, autoOpen)
	if err != nil {
		return vocab.Settings{}, err
	}
	s.emit("settings.updated", "")
	return out, nil
}

// ResetSettings restores the built-in defaults, starter vocabulary
// included.
func (s *Service) ResetSettings(_ context.Context) (vocab.Settings, error) {
	out, err := s.vocab.Reset()
	if err != nil {
		return vocab.Settings{}, err
	}
	s.emit("settings.updated", "")
	s.emit("vocabulary.updated", "")
	return out, nil
}

// resolveImagePath resolves an image name to its vault-relative path: an
// exact path match wins, otherwise the first base-name match.
func (s *Service) resolveImagePath(name string) (string, error) {
	metas, err := s.store.ListImages("")
	if err != nil {
		return "", err
	}
	base := path.Base(name)
	match := ""
	for _, m := range metas {
		if m.Path == name {
			return name, nil
		}
		if match == "" && path.Base(m.Path) == base {
			match = m.Path
		}
	}
	if match == "" {
		return "", fmt.Errorf("image %q not in vault: %w", name, apperr.ErrNotFound)
	}
	return match, nil
}

// refreshCache re-syncs the metadata cache after a vault-wide rewrite so
// counts are fresh for the next read. The watcher would catch up anyway, so
// a failure only logs.
func (s *Service) refreshCache() {
	if err := index.Sync(s.db, s.store, s.opts, s.logger); err != nil {
		s.logger.Warn("cache refresh failed", slog.String("error", err.Error()))
	}
}

func (s *Service) emit(kind, ref string) {
	if s.notify != nil {
		s.notify(kind, ref)
	}
}

func containsString(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
