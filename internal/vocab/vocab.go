// Package vocab owns the curated tag vocabulary and its persisted settings
// file. The store is the single source of truth for which tags are offered;
// every mutation is written back before it is observable.
package vocab

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"sync"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/othalahq/othala/internal/apperr"
	"github.com/othalahq/othala/pkg/config"
)

// Settings is the persisted state of the vocabulary store.
type Settings struct {
	Tags          []string `yaml:"tags"`
	DefaultFolder string   `yaml:"default_folder"`
	AutoOpenNote  bool     `yaml:"auto_open_note"`
}

// DefaultSettings returns the built-in starter vocabulary and options used
// on first run and as the fallback for missing keys.
func DefaultSettings() Settings {
	return Settings{
		Tags: []string{
			"landscape", "portrait", "architecture", "nature",
			"travel", "food", "people", "animals",
			"abstract", "macro", "street", "night",
			"black-white", "vintage", "minimal", "urban",
		},
		DefaultFolder: "Image Library",
		AutoOpenNote:  true,
	}
}

var tagPattern = regexp.MustCompile(`^[\w-]+$`)

// Normalize lower-cases and trims a tag name and strips a leading #.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	name = strings.TrimPrefix(name, "#")
	return strings.ToLower(strings.TrimSpace(name))
}

// ValidateTag checks a normalized tag name against the vocabulary rules.
func ValidateTag(name string) error {
	err := validation.Validate(name,
		validation.Required.Error("must not be empty"),
		validation.RuneLength(2, 0).Error("must be at least 2 characters"),
		validation.Match(tagPattern).Error("may only contain letters, digits, underscores and hyphens"),
	)
	if err != nil {
		return fmt.Errorf("%w: %q %s", apperr.ErrInvalidTag, name, err)
	}
	return nil
}

// Store is the loaded vocabulary. A mutex serializes mutations; each one is
// persisted before the method returns.
type Store struct {
	mu   sync.Mutex
	path string
	s    Settings
}

// Load reads the settings file at path, merging it over the defaults. A
// missing file yields the defaults without creating it; the file appears on
// the first mutation. Entries that fail validation are dropped.
func Load(path string) (*Store, error) {
	st := &Store{path: path, s: DefaultSettings()}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return st, nil
		}
		return nil, fmt.Errorf("vocab: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &st.s); err != nil {
		return nil, fmt.Errorf("vocab: parse %s: %w", path, err)
	}
	st.s.Tags = normalizeList(st.s.Tags)
	if strings.TrimSpace(st.s.DefaultFolder) == "" {
		st.s.DefaultFolder = DefaultSettings().DefaultFolder
	}
	return st, nil
}

// normalizeList normalizes, validates, and dedupes in first-seen order.
func normalizeList(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := Normalize(t)
		if ValidateTag(n) != nil {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Path returns the settings file location.
func (st *Store) Path() string { return st.path }

// Tags returns a copy of the vocabulary in display order.
func (st *Store) Tags() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]string, len(st.s.Tags))
	copy(out, st.s.Tags)
	return out
}

// Set returns the vocabulary as a membership set of normalized names.
func (st *Store) Set() map[string]struct{} {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := make(map[string]struct{}, len(st.s.Tags))
	for _, t := range st.s.Tags {
		out[t] = struct{}{}
	}
	return out
}

// Has reports whether name (after normalization) is in the vocabulary.
func (st *Store) Has(name string) bool {
	n := Normalize(name)
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.has(n)
}

// Settings returns a copy of the full persisted state.
func (st *Store) Settings() Settings {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshot()
}

// Add inserts a new tag and persists. Returns the normalized name.
func (st *Store) Add(name string) (string, error) {
	n := Normalize(name)
	if err := ValidateTag(n); err != nil {
		return "", err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.has(n) {
		return "", fmt.Errorf("vocab: add %q: %w", n, apperr.ErrAlreadyExists)
	}
	st.s.Tags = append(st.s.Tags, n)
	if err := st.save(); err != nil {
		st.s.Tags = st.s.Tags[:len(st.s.Tags)-1]
		return "", err
	}
	return n, nil
}

// Remove deletes a tag and persists.
func (st *Store) Remove(name string) error {
	n := Normalize(name)
	st.mu.Lock()
	defer st.mu.Unlock()
	idx := st.index(n)
	if idx < 0 {
		return fmt.Errorf("vocab: remove %q: %w", n, apperr.ErrNotFound)
	}
	prev := st.s.Tags
	st.s.Tags = append(append([]string{}, prev[:idx]...), prev[idx+1:]...)
	if err := st.save(); err != nil {
		st.s.Tags = prev
		return err
	}
	return nil
}

// Rename replaces old with new in place, preserving display position. When
// new already exists the two entries merge: old is removed and no duplicate
// is added. Returns the normalized new name.
func (st *Store) Rename(old, new string) (string, error) {
	o, n := Normalize(old), Normalize(new)
	if err := ValidateTag(n); err != nil {
		return "", err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	idx := st.index(o)
	if idx < 0 {
		return "", fmt.Errorf("vocab: rename %q: %w", o, apperr.ErrNotFound)
	}
	if o == n {
		return n, nil
	}
	prev := st.s.Tags
	next := make([]string, len(prev))
	copy(next, prev)
	if st.has(n) {
		next = append(next[:idx], next[idx+1:]...)
	} else {
		next[idx] = n
	}
	st.s.Tags = next
	if err := st.save(); err != nil {
		st.s.Tags = prev
		return "", err
	}
	return n, nil
}

// Merge adds every tag not already present and persists once. The whole
// batch is validated before anything is mutated. Returns the number added.
func (st *Store) Merge(tags []string) (int, error) {
	normalized := make([]string, 0, len(tags))
	for _, t := range tags {
		n := Normalize(t)
		if err := ValidateTag(n); err != nil {
			return 0, err
		}
		normalized = append(normalized, n)
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	prev := st.s.Tags
	next := make([]string, len(prev), len(prev)+len(normalized))
	copy(next, prev)
	added := 0
	for _, n := range normalized {
		if indexOf(next, n) >= 0 {
			continue
		}
		next = append(next, n)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	st.s.Tags = next
	if err := st.save(); err != nil {
		st.s.Tags = prev
		return 0, err
	}
	return added, nil
}

// Replace swaps the whole vocabulary for the given list and persists. The
// batch is validated and deduped first.
func (st *Store) Replace(tags []string) error {
	for _, t := range tags {
		if err := ValidateTag(Normalize(t)); err != nil {
			return err
		}
	}
	next := normalizeList(tags)
	st.mu.Lock()
	defer st.mu.Unlock()
	prev := st.s.Tags
	st.s.Tags = next
	if err := st.save(); err != nil {
		st.s.Tags = prev
		return err
	}
	return nil
}

// SetOptions updates the non-tag settings. Nil fields are left untouched.
func (st *Store) SetOptions(folder *string, autoOpen *bool) (Settings, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	prev := st.s
	if folder != nil {
		f := strings.TrimSpace(*folder)
		if f == "" {
			return Settings{}, fmt.Errorf("vocab: default folder must not be empty: %w", apperr.ErrValidation)
		}
		st.s.DefaultFolder = f
	}
	if autoOpen != nil {
		st.s.AutoOpenNote = *autoOpen
	}
	if err := st.save(); err != nil {
		st.s = prev
		return Settings{}, err
	}
	return st.snapshot(), nil
}

// Reset restores the built-in defaults and persists them.
func (st *Store) Reset() (Settings, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	prev := st.s
	st.s = DefaultSettings()
	if err := st.save(); err != nil {
		st.s = prev
		return Settings{}, err
	}
	return st.snapshot(), nil
}

// snapshot copies the settings. Callers must hold mu.
func (st *Store) snapshot() Settings {
	out := st.s
	out.Tags = make([]string, len(st.s.Tags))
	copy(out.Tags, st.s.Tags)
	return out
}

// has and index assume the name is normalized and mu is held.
func (st *Store) has(n string) bool  { return st.index(n) >= 0 }
func (st *Store) index(n string) int { return indexOf(st.s.Tags, n) }

func indexOf(tags []string, n string) int {
	for i, t := range tags {
		if t == n {
			return i
		}
	}
	return -1
}

// save persists the settings through the atomic config writer. Callers must
// hold mu.
func (st *Store) save() error {
	if err := config.Save(st.path, &st.s); err != nil {
		return fmt.Errorf("vocab: save settings: %w", err)
	}
	return nil
}
