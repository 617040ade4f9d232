package tagsvc

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/othalahq/othala/internal/apperr"
	"github.com/othalahq/othala/internal/index"
	"github.com/othalahq/othala/internal/models"
	"github.com/othalahq/othala/internal/scanner"
	"github.com/othalahq/othala/internal/storage"
	"github.com/othalahq/othala/internal/testutil"
	"github.com/othalahq/othala/internal/vocab"
)

type testEnv struct {
	vault  string
	store  storage.Provider
	db     *index.DB
	vocab  *vocab.Store
	svc    *Service
	events []string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	vault, store := testutil.TestVault(t)
	db := testutil.TestDB(t)
	vc := testutil.TestVocab(t)

	e := &testEnv{vault: vault, store: store, db: db, vocab: vc}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	e.svc = NewService(store, vc, db, scanner.Options{}, logger, func(kind, _ string) {
		e.events = append(e.events, kind)
	})
	return e
}

func (e *testEnv) write(t *testing.T, path, content string) {
	t.Helper()
	if err := e.store.Write(path, []byte(content)); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func (e *testEnv) sync(t *testing.T) {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if err := index.Sync(e.db, e.store, scanner.Options{}, logger); err != nil {
		t.Fatalf("Sync: %v", err)
	}
}

func (e *testEnv) emitted(kind string) bool {
	return slices.Contains(e.events, kind)
}

func names(items []models.TagCount) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestListTagsCountsFromCache(t *testing.T) {
	e := newTestEnv(t)
	if err := e.vocab.Replace([]string{"travel", "food", "night"}); err != nil {
		t.Fatal(err)
	}
	e.write(t, "a.md", "#travel in rome #food")
	e.write(t, "b.md", "#travel again")
	e.write(t, "c.md", "#stray not in vocabulary")
	e.sync(t)

	items, err := e.svc.ListTags(context.Background(), "", "")
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	want := []models.TagCount{{Name: "food", Count: 1}, {Name: "night", Count: 0}, {Name: "travel", Count: 2}}
	if !slices.Equal(items, want) {
		t.Errorf("ListTags = %v, want %v", items, want)
	}
}

func TestListTagsSortAndFilter(t *testing.T) {
	e := newTestEnv(t)
	if err := e.vocab.Replace([]string{"art", "artisan", "cart"}); err != nil {
		t.Fatal(err)
	}
	e.write(t, "a.md", "#artisan #cart")
	e.write(t, "b.md", "#cart")
	e.sync(t)

	byCount, err := e.svc.ListTags(context.Background(), "", "count")
	if err != nil {
		t.Fatal(err)
	}
	if got := names(byCount); !slices.Equal(got, []string{"cart", "artisan", "art"}) {
		t.Errorf("count order = %v", got)
	}

	rel, err := e.svc.ListTags(context.Background(), "art", "relevance")
	if err != nil {
		t.Fatal(err)
	}
	if got := names(rel); !slices.Equal(got, []string{"art", "artisan", "cart"}) {
		t.Errorf("relevance order = %v", got)
	}

	filtered, err := e.svc.ListTags(context.Background(), "artis", "")
	if err != nil {
		t.Fatal(err)
	}
	if got := names(filtered); !slices.Equal(got, []string{"artisan"}) {
		t.Errorf("filtered = %v", got)
	}
}

func TestAddTag(t *testing.T) {
	e := newTestEnv(t)
	tag, err := e.svc.AddTag(context.Background(), "  #Sunset ")
	if err != nil {
		t.Fatalf("AddTag: %v", err)
	}
	if tag != "sunset" {
		t.Errorf("AddTag = %q, want sunset", tag)
	}
	if !e.vocab.Has("sunset") {
		t.Error("sunset not in vocabulary")
	}
	if !e.emitted("vocabulary.updated") {
		t.Error("no vocabulary.updated event")
	}

	if _, err := e.svc.AddTag(context.Background(), "sunset"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("duplicate add error = %v, want ErrAlreadyExists", err)
	}
}

func TestRenameTagRewritesDocuments(t *testing.T) {
	e := newTestEnv(t)
	if err := e.vocab.Replace([]string{"art", "art-style"}); err != nil {
		t.Fatal(err)
	}
	e.write(t, "one.md", "---\ntags: [\"art\", \"art-style\"]\n---\n\nAbout #art and #art-style.\n")
	e.sync(t)

	newName, out, err := e.svc.RenameTag(context.Background(), "art", "painting")
	if err != nil {
		t.Fatalf("RenameTag: %v", err)
	}
	if newName != "painting" {
		t.Errorf("newName = %q", newName)
	}
	if out.Modified != 1 || len(out.Failed) != 0 {
		t.Errorf("outcome = %+v", out)
	}

	got, err := e.svc.ReadNote(context.Background(), "one.md")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "#painting and #art-style.") {
		t.Errorf("inline rewrite wrong:\n%s", got)
	}
	if !strings.Contains(got, `tags: ["painting", "art-style"]`) {
		t.Errorf("front-matter rewrite wrong:\n%s", got)
	}

	tags := e.vocab.Tags()
	if !slices.Equal(tags, []string{"painting", "art-style"}) {
		t.Errorf("vocabulary = %v", tags)
	}

	// Counts reflect the rewrite without an explicit sync.
	items, err := e.svc.ListTags(context.Background(), "", "")
	if err != nil {
		t.Fatal(err)
	}
	for _, it := range items {
		if it.Name == "painting" && it.Count != 1 {
			t.Errorf("painting count = %d, want 1", it.Count)
		}
	}
}

func TestRenameTagMissing(t *testing.T) {
	e := newTestEnv(t)
	if _, _, err := e.svc.RenameTag(context.Background(), "nope", "yes"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRenameTagToItselfIsNoOp(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.vocab.Add("travel"); err != nil {
		t.Fatal(err)
	}
	e.write(t, "a.md", "#Travel stays\n")

	_, out, err := e.svc.RenameTag(context.Background(), "Travel", "travel")
	if err != nil {
		t.Fatalf("RenameTag: %v", err)
	}
	if out.Modified != 0 {
		t.Errorf("modified = %d, want 0", out.Modified)
	}
	got, _ := e.svc.ReadNote(context.Background(), "a.md")
	if got != "#Travel stays\n" {
		t.Errorf("document changed: %q", got)
	}
}

func TestDeleteTag(t *testing.T) {
	e := newTestEnv(t)
	if err := e.vocab.Replace([]string{"doomed", "keep"}); err != nil {
		t.Fatal(err)
	}
	e.write(t, "a.md", "---\ntags: [\"doomed\", \"keep\"]\n---\n\n#doomed and #keep\n")
	e.sync(t)

	out, err := e.svc.DeleteTag(context.Background(), "doomed")
	if err != nil {
		t.Fatalf("DeleteTag: %v", err)
	}
	if out.Modified != 1 {
		t.Errorf("modified = %d, want 1", out.Modified)
	}
	if e.vocab.Has("doomed") {
		t.Error("doomed still in vocabulary")
	}

	// A fresh scan discovers nothing: every occurrence is gone.
	res, err := e.svc.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if slices.Contains(res.Discovered, "doomed") {
		t.Errorf("scan rediscovered doomed: %v", res.Discovered)
	}
}

func TestScanAndApplyMerge(t *testing.T) {
	e := newTestEnv(t)
	if err := e.vocab.Replace([]string{"alpha"}); err != nil {
		t.Fatal(err)
	}
	e.write(t, "a.md", "#alpha #beta\n")
	e.write(t, "b.md", "---\ntags: [\"gamma\"]\n---\n\nbody\n")

	res, err := e.svc.Scan(context.Background())
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if !slices.Equal(res.Discovered, []string{"beta", "gamma"}) {
		t.Errorf("Discovered = %v", res.Discovered)
	}
	if res.Scanned != 2 || res.Failed != 0 {
		t.Errorf("scanned/failed = %d/%d", res.Scanned, res.Failed)
	}

	applied, err := e.svc.ApplyScan(context.Background(), "merge", res.Discovered)
	if err != nil {
		t.Fatalf("ApplyScan: %v", err)
	}
	if applied.Added != 2 || applied.Total != 3 {
		t.Errorf("applied = %+v", applied)
	}

	// Scanning again finds nothing new.
	again, err := e.svc.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(again.Discovered) != 0 {
		t.Errorf("second scan discovered %v", again.Discovered)
	}
}

func TestApplyScanReplaceAndBadMode(t *testing.T) {
	e := newTestEnv(t)
	applied, err := e.svc.ApplyScan(context.Background(), "replace", []string{"only", "these"})
	if err != nil {
		t.Fatalf("ApplyScan replace: %v", err)
	}
	if !slices.Equal(applied.Tags, []string{"only", "these"}) {
		t.Errorf("tags = %v", applied.Tags)
	}
	if !slices.Equal(e.vocab.Tags(), []string{"only", "these"}) {
		t.Errorf("vocabulary = %v", e.vocab.Tags())
	}

	if _, err := e.svc.ApplyScan(context.Background(), "overwrite", nil); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad mode error = %v, want ErrValidation", err)
	}
}

func TestCreateImageNote(t *testing.T) {
	e := newTestEnv(t)
	e.write(t, "photos/shot one.png", "fake")

	detail, err := e.svc.CreateImageNote(context.Background(), NoteRequest{
		Image:  "shot one.png",
		Author: "Anna",
		Tags:   []string{"Travel", "glacier"},
		Notes:  "Taken at dawn.",
	})
	if err != nil {
		t.Fatalf("CreateImageNote: %v", err)
	}
	if detail.Path != "Image Library/shot one.md" {
		t.Errorf("path = %q", detail.Path)
	}
	if !detail.AutoOpen {
		t.Error("AutoOpen = false, want default true")
	}

	today := time.Now().Format("2006-01-02")
	for _, want := range []string{
		"image: \"shot one.png\"",
		"author: \"Anna\"",
		`tags: ["travel", "glacier"]`,
		"created: \"" + today + "\"",
		"![[shot one.png|600]]",
		"## Notes\n\nTaken at dawn.",
	} {
		if !strings.Contains(detail.Content, want) {
			t.Errorf("content missing %q:\n%s", want, detail.Content)
		}
	}

	// The unknown tag was adopted into the vocabulary.
	if !e.vocab.Has("glacier") {
		t.Error("glacier not adopted into vocabulary")
	}

	// The note landed in the vault and the cache.
	if _, err := e.svc.ReadNote(context.Background(), detail.Path); err != nil {
		t.Errorf("note not stored: %v", err)
	}
	docs, err := e.svc.TagDocuments(context.Background(), "glacier")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(docs, []string{detail.Path}) {
		t.Errorf("TagDocuments = %v", docs)
	}
	if !e.emitted("note.created") {
		t.Error("no note.created event")
	}

	if _, err := e.svc.CreateImageNote(context.Background(), NoteRequest{Image: "shot one.png"}); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("second create error = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateImageNoteRejectsNonImage(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.svc.CreateImageNote(context.Background(), NoteRequest{Image: "essay.md"}); !errors.Is(err, apperr.ErrNotAnImage) {
		t.Errorf("error = %v, want ErrNotAnImage", err)
	}
	if _, err := e.svc.CreateImageNote(context.Background(), NoteRequest{Image: "ghost.png"}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestResolveImage(t *testing.T) {
	e := newTestEnv(t)
	text := "before ![[pic.png|600]] after"
	target, err := e.svc.ResolveImage(context.Background(), text, strings.Index(text, "pic"))
	if err != nil {
		t.Fatalf("ResolveImage: %v", err)
	}
	if target != "pic.png" {
		t.Errorf("target = %q", target)
	}
	if _, err := e.svc.ResolveImage(context.Background(), "no embeds here", -1); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestListImages(t *testing.T) {
	e := newTestEnv(t)
	e.write(t, "img/tagged.png", "x")
	e.write(t, "img/bare.jpg", "x")
	e.write(t, "Image Library/tagged.md", "---\ntags: [\"travel\"]\n---\n\n![[tagged.png|600]]\n")
	e.sync(t)

	entries, err := e.svc.ListImages(context.Background())
	if err != nil {
		t.Fatalf("ListImages: %v", err)
	}
	byPath := make(map[string]ImageEntry, len(entries))
	for _, en := range entries {
		byPath[en.Path] = en
	}
	tagged, ok := byPath["img/tagged.png"]
	if !ok || !tagged.Tagged {
		t.Errorf("tagged.png entry = %+v", tagged)
	}
	if !slices.Equal(tagged.Notes, []string{"Image Library/tagged.md"}) {
		t.Errorf("notes = %v", tagged.Notes)
	}
	bare, ok := byPath["img/bare.jpg"]
	if !ok || bare.Tagged || len(bare.Notes) != 0 {
		t.Errorf("bare.jpg entry = %+v", bare)
	}
}

func TestReadNoteMissing(t *testing.T) {
	e := newTestEnv(t)
	if _, err := e.svc.ReadNote(context.Background(), "ghost.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestSettingsUpdateAndReset(t *testing.T) {
	e := newTestEnv(t)
	folder := "Archive"
	autoOpen := false
	s, err := e.svc.UpdateSettings(context.Background(), &folder, &autoOpen)
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if s.DefaultFolder != "Archive" || s.AutoOpenNote {
		t.Errorf("settings = %+v", s)
	}
	if !e.emitted("settings.updated") {
		t.Error("no settings.updated event")
	}

	empty := "  "
	if _, err := e.svc.UpdateSettings(context.Background(), &empty, nil); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty folder error = %v, want ErrValidation", err)
	}

	reset, err := e.svc.ResetSettings(context.Background())
	if err != nil {
		t.Fatalf("ResetSettings: %v", err)
	}
	if reset.DefaultFolder != "Image Library" || !reset.AutoOpenNote {
		t.Errorf("reset settings = %+v", reset)
	}
	if len(reset.Tags) != 16 {
		t.Errorf("reset vocabulary size = %d, want 16", len(reset.Tags))
	}
}
