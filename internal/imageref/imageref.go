// Package imageref recognizes image files and the wiki-style embeds that
// reference them from Markdown documents.
package imageref

import (
	"path/filepath"
	"regexp"
	"strings"
)

// extensions lists the image file extensions the tool recognizes.
var extensions = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".webp": {},
	".bmp":  {},
	".svg":  {},
}

// embedRe matches an embed like ![[photo.png]] or ![[photo.png|600]]. The
// capture group holds the target without the optional display-width alias.
var embedRe = regexp.MustCompile(`(?i)!\[\[([^\[\]|]+\.(?:png|jpe?g|gif|webp|bmp|svg))(?:\|[^\[\]]*)?\]\]`)

// IsImage reports whether path has a recognized image extension.
func IsImage(path string) bool {
	_, ok := extensions[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Find returns the target of the first image embed in text.
func Find(text string) (string, bool) {
	m := embedRe.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// FindAt returns the target of the embed whose span contains the byte
// offset. A negative offset falls back to the first embed in text.
func FindAt(text string, offset int) (string, bool) {
	if offset < 0 {
		return Find(text)
	}
	for _, m := range embedRe.FindAllStringSubmatchIndex(text, -1) {
		if offset >= m[0] && offset < m[1] {
			return text[m[2]:m[3]], true
		}
	}
	return "", false
}

// FindAll returns the distinct embed targets in text, in first-seen order.
func FindAll(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, m := range embedRe.FindAllStringSubmatch(text, -1) {
		target := m[1]
		if _, ok := seen[target]; ok {
			continue
		}
		seen[target] = struct{}{}
		out = append(out, target)
	}
	return out
}
