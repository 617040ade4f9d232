// Package scanner discovers tag candidates across the vault's documents.
// Scanning is read-only; it proposes additions and never removes anything
// from the vocabulary.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"

	"github.com/othalahq/othala/internal/frontmatter"
	"github.com/othalahq/othala/internal/storage"
	"github.com/othalahq/othala/internal/vocab"
)

var (
	inlineTagRe = regexp.MustCompile(`#([\w-]+)`)
	listTagRe   = regexp.MustCompile(`(?m)^- ([\w-]+)`)
)

// Options control the optional extraction surfaces.
type Options struct {
	// ListMarkers also treats lines beginning with "- tag" as tag markers.
	// Off by default: ordinary Markdown bullet lists over-match badly.
	ListMarkers bool
}

// Extraction holds the tags found in a single document, normalized and
// deduped per surface. A tag written both inline and in front matter
// appears in both lists.
type Extraction struct {
	Inline      []string
	Frontmatter []string
}

// Extract pulls tag candidates from one document. Inline markers are read
// from the body; front-matter tags come from the codec. When the document
// has no well-formed front-matter block the whole text counts as body.
func Extract(content string, opts Options) Extraction {
	body := content
	var ex Extraction

	if blk, ok := frontmatter.Parse(content); ok {
		body = blk.Body()
		seen := make(map[string]struct{})
		for _, raw := range blk.Tags() {
			appendTag(&ex.Frontmatter, seen, raw)
		}
	}

	seen := make(map[string]struct{})
	for _, m := range inlineTagRe.FindAllStringSubmatch(body, -1) {
		appendTag(&ex.Inline, seen, m[1])
	}
	if opts.ListMarkers {
		for _, m := range listTagRe.FindAllStringSubmatch(body, -1) {
			appendTag(&ex.Inline, seen, m[1])
		}
	}
	return ex
}

func appendTag(dst *[]string, seen map[string]struct{}, raw string) {
	n := vocab.Normalize(raw)
	if vocab.ValidateTag(n) != nil {
		return
	}
	if _, dup := seen[n]; dup {
		return
	}
	seen[n] = struct{}{}
	*dst = append(*dst, n)
}

// Result summarizes a vault scan.
type Result struct {
	Discovered []string `json:"discovered"`
	Scanned    int      `json:"scanned"`
	Failed     int      `json:"failed"`
}

// Scan walks every document in the vault and returns the candidates not in
// known (a set of normalized names), sorted. Unreadable documents are
// logged, counted, and skipped. Cancellation is checked between documents.
func Scan(ctx context.Context, store storage.Provider, known map[string]struct{}, opts Options, logger *slog.Logger) (Result, error) {
	docs, err := store.List("")
	if err != nil {
		return Result{}, fmt.Errorf("scanner: list vault: %w", err)
	}

	found := make(map[string]struct{})
	var res Result
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("scanner: %w", err)
		}
		data, err := store.Read(doc.Path)
		if err != nil {
			res.Failed++
			logger.Warn("scan: read failed", slog.String("path", doc.Path), slog.String("error", err.Error()))
			continue
		}
		res.Scanned++
		ex := Extract(string(data), opts)
		for _, t := range ex.Inline {
			if _, ok := known[t]; !ok {
				found[t] = struct{}{}
			}
		}
		for _, t := range ex.Frontmatter {
			if _, ok := known[t]; !ok {
				found[t] = struct{}{}
			}
		}
	}

	res.Discovered = make([]string, 0, len(found))
	for t := range found {
		res.Discovered = append(res.Discovered, t)
	}
	sort.Strings(res.Discovered)
	return res, nil
}
