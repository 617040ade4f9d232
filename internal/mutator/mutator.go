// Package mutator rewrites tag occurrences across every document in the
// vault. It is purely textual: vocabulary bookkeeping happens at the
// operation boundary, before the rewrite runs.
package mutator

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/othalahq/othala/internal/frontmatter"
	"github.com/othalahq/othala/internal/storage"
)

// tokenRe matches one inline tag occurrence: a # marker anywhere or a
// dash marker at line start, followed by the longest run of word
// characters and hyphens. The maximal-munch body is what keeps whole tags
// intact: renaming "art" can never touch #art-style, because that token's
// body is "art-style".
var tokenRe = regexp.MustCompile(`(?m)(#|^- )([\w-]+)`)

// Outcome reports a vault-wide rewrite. Failed lists the documents whose
// read or write failed; the rest of the batch is unaffected by them.
type Outcome struct {
	Modified int      `json:"modified"`
	Failed   []string `json:"failed,omitempty"`
}

// Rename rewrites every occurrence of oldTag to newTag: inline markers
// keep their prefix and swap the body, front-matter entries are
// substituted (collapsing into an existing newTag entry rather than
// duplicating it). Matching is case-insensitive; both names must be
// normalized. The returned error covers only vault enumeration and
// cancellation.
func Rename(ctx context.Context, store storage.Provider, oldTag, newTag string, logger *slog.Logger) (Outcome, error) {
	return apply(ctx, store, logger, "rename", func(content string) (string, bool) {
		return renameDocument(content, oldTag, newTag)
	})
}

// Delete removes every occurrence of tag: inline markers disappear with
// their prefix, front-matter entries leave the list and an emptied list is
// written as []. The name must be normalized.
func Delete(ctx context.Context, store storage.Provider, tag string, logger *slog.Logger) (Outcome, error) {
	return apply(ctx, store, logger, "delete", func(content string) (string, bool) {
		return deleteDocument(content, tag)
	})
}

// apply runs rewrite over every document, writing back only when the
// content changed. Each document is its own error boundary; cancellation is
// checked between documents, and documents already rewritten stay rewritten.
func apply(ctx context.Context, store storage.Provider, logger *slog.Logger, op string, rewrite func(string) (string, bool)) (Outcome, error) {
	docs, err := store.List("")
	if err != nil {
		return Outcome{}, fmt.Errorf("mutator: list vault: %w", err)
	}
	var out Outcome
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("mutator: %s: %w", op, err)
		}
		data, err := store.Read(doc.Path)
		if err != nil {
			out.Failed = append(out.Failed, doc.Path)
			logger.Warn(op+": read failed", slog.String("path", doc.Path), slog.String("error", err.Error()))
			continue
		}
		next, changed := rewrite(string(data))
		if !changed {
			continue
		}
		if err := store.Write(doc.Path, []byte(next)); err != nil {
			out.Failed = append(out.Failed, doc.Path)
			logger.Warn(op+": write failed", slog.String("path", doc.Path), slog.String("error", err.Error()))
			continue
		}
		out.Modified++
		logger.Debug(op+": rewrote document", slog.String("path", doc.Path))
	}
	return out, nil
}

func renameDocument(content, oldTag, newTag string) (string, bool) {
	out, inlineChanged := rewriteInline(content, oldTag, newTag)
	out, fmChanged := rewriteFrontmatter(out, oldTag, newTag)
	return out, inlineChanged || fmChanged
}

func deleteDocument(content, tag string) (string, bool) {
	out, inlineChanged := rewriteInline(content, tag, "")
	out, fmChanged := rewriteFrontmatter(out, tag, "")
	return out, inlineChanged || fmChanged
}

// rewriteInline substitutes the body of every matching token. An empty
// replacement removes the whole occurrence, marker included.
func rewriteInline(content, tag, replacement string) (string, bool) {
	matches := tokenRe.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content, false
	}
	var b strings.Builder
	last := 0
	changed := false
	for _, m := range matches {
		body := content[m[4]:m[5]]
		if !strings.EqualFold(body, tag) {
			continue
		}
		changed = true
		if replacement == "" {
			b.WriteString(content[last:m[0]])
			last = m[1]
		} else {
			b.WriteString(content[last:m[4]])
			b.WriteString(replacement)
			last = m[5]
		}
	}
	if !changed {
		return content, false
	}
	b.WriteString(content[last:])
	return b.String(), true
}

// rewriteFrontmatter removes or substitutes entries of the tags list. The
// list is re-serialized in flow style only when an entry actually matched;
// untouched documents keep every byte.
func rewriteFrontmatter(content, tag, replacement string) (string, bool) {
	blk, ok := frontmatter.Parse(content)
	if !ok {
		return content, false
	}
	entries := blk.Tags()
	if len(entries) == 0 {
		return content, false
	}

	replaced := make([]string, 0, len(entries))
	changed := false
	for _, e := range entries {
		v := strings.TrimSpace(e)
		if strings.EqualFold(v, tag) {
			changed = true
			if replacement == "" {
				continue
			}
			v = replacement
		}
		replaced = append(replaced, v)
	}
	if !changed {
		return content, false
	}

	// Collapse duplicates introduced by the substitution, first one wins.
	deduped := make([]string, 0, len(replaced))
	for _, v := range replaced {
		if containsFold(deduped, v) {
			continue
		}
		deduped = append(deduped, v)
	}
	return blk.SetTags(deduped), true
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
