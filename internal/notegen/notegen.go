// Package notegen renders the reference notes the tool creates for tagged
// images and derives their vault paths.
package notegen

import (
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/othalahq/othala/internal/frontmatter"
)

// Note describes one reference note to render.
type Note struct {
	Image   string // original image filename, kept verbatim in the embed
	Author  string
	Tags    []string
	Notes   string
	Created time.Time
}

// Render produces the full Markdown document: front matter with image,
// author, tags, and created date, then the sized embed and a notes section.
func Render(n Note) string {
	var b strings.Builder
	b.WriteString("---\n")
	b.WriteString("image: " + strconv.Quote(n.Image) + "\n")
	b.WriteString("author: " + strconv.Quote(n.Author) + "\n")
	b.WriteString("tags: " + frontmatter.FormatList(n.Tags) + "\n")
	b.WriteString("created: \"" + n.Created.Format("2006-01-02") + "\"\n")
	b.WriteString("---\n\n")
	b.WriteString("![[" + n.Image + "|600]]\n\n")
	b.WriteString("## Notes\n\n")
	b.WriteString(n.Notes)
	if n.Notes != "" && !strings.HasSuffix(n.Notes, "\n") {
		b.WriteString("\n")
	}
	return b.String()
}

// fileSanitizer replaces the characters that are unsafe in note filenames.
var fileSanitizer = strings.NewReplacer(
	"<", "_", ">", "_", ":", "_", `"`, "_", "/", "_", `\`, "_", "|", "_", "?", "_", "*", "_",
)

// SanitizeFilename replaces unsafe filename characters with underscores.
func SanitizeFilename(name string) string {
	return fileSanitizer.Replace(name)
}

// NotePath derives the vault-relative note path for an image: the
// sanitized image base name with its extension swapped for .md, under
// folder.
func NotePath(folder, image string) string {
	base := path.Base(image)
	base = strings.TrimSuffix(base, path.Ext(base))
	return path.Join(folder, SanitizeFilename(base)+".md")
}
