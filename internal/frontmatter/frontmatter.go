// Package frontmatter reads and rewrites the YAML front-matter block of a
// Markdown document. The block must open with `---` on the very first line
// and close with the next `---` line; anything else is treated as a document
// without front matter. Rewrites touch only the tags entry and leave every
// other byte of the document alone.
package frontmatter

import (
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// listItemRe matches one item line of a block-style YAML list.
var listItemRe = regexp.MustCompile(`^\s*-(\s|$)`)

// Block is a parsed front-matter block together with the full document it
// was read from, so the tags entry can be rewritten in place.
type Block struct {
	lines     []string
	end       int // line index of the closing delimiter
	data      map[string]interface{}
	tagsStart int // first line of the tags entry, -1 when absent
	tagsEnd   int // line after the last line of the tags entry
}

// Parse returns the document's front-matter block. ok is false when the
// document has no block, the block never closes, or its YAML is invalid;
// callers fall back to treating the whole document as body.
func Parse(content string) (*Block, bool) {
	lines := strings.Split(content, "\n")
	if trimCR(lines[0]) != "---" {
		return nil, false
	}
	end := -1
	for i := 1; i < len(lines); i++ {
		if trimCR(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return nil, false
	}

	var data map[string]interface{}
	if err := yaml.Unmarshal([]byte(strings.Join(lines[1:end], "\n")), &data); err != nil {
		return nil, false
	}

	b := &Block{lines: lines, end: end, data: data, tagsStart: -1, tagsEnd: -1}
	for i := 1; i < end; i++ {
		rest, ok := strings.CutPrefix(trimCR(lines[i]), "tags:")
		if !ok {
			continue
		}
		if rest != "" && !strings.HasPrefix(rest, " ") && !strings.HasPrefix(rest, "\t") {
			continue // scalar like "tags:foo", not the key
		}
		b.tagsStart = i
		if strings.TrimSpace(rest) == "" {
			// Block-style list: the entry spans the item lines below.
			j := i + 1
			for j < end && listItemRe.MatchString(trimCR(lines[j])) {
				j++
			}
			b.tagsEnd = j
		} else {
			b.tagsEnd = i + 1
		}
		break
	}
	return b, true
}

// Tags returns the entries of the tags list as written, trimmed. A bare
// string value is treated as a single-entry list.
func (b *Block) Tags() []string {
	var out []string
	switch v := b.data["tags"].(type) {
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				s = strings.TrimSpace(s)
				if s != "" {
					out = append(out, s)
				}
			}
		}
	case string:
		if s := strings.TrimSpace(v); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// SetTags returns the whole document with the tags entry replaced by a
// single flow-style line. When the block has no tags entry one is inserted
// just before the closing delimiter. All other lines are kept verbatim.
func (b *Block) SetTags(tags []string) string {
	entry := "tags: " + FormatList(tags)
	out := make([]string, 0, len(b.lines)+1)
	if b.tagsStart >= 0 {
		out = append(out, b.lines[:b.tagsStart]...)
		out = append(out, entry)
		out = append(out, b.lines[b.tagsEnd:]...)
	} else {
		out = append(out, b.lines[:b.end]...)
		out = append(out, entry)
		out = append(out, b.lines[b.end:]...)
	}
	return strings.Join(out, "\n")
}

// Body returns the document content after the closing delimiter line.
func (b *Block) Body() string {
	if b.end+1 >= len(b.lines) {
		return ""
	}
	return strings.Join(b.lines[b.end+1:], "\n")
}

// FormatList renders tags as a flow-style YAML list with quoted entries,
// e.g. ["travel", "sunset"], or [] for an empty list.
func FormatList(tags []string) string {
	if len(tags) == 0 {
		return "[]"
	}
	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = strconv.Quote(t)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func trimCR(s string) string {
	return strings.TrimSuffix(s, "\r")
}
