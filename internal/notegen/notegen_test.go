package notegen

import (
	"testing"
	"time"

	"github.com/othalahq/othala/internal/frontmatter"
	"github.com/othalahq/othala/internal/scanner"
)

func TestRender(t *testing.T) {
	n := Note{
		Image:   "sunset.jpg",
		Author:  "Jane",
		Tags:    []string{"travel", "sunset"},
		Notes:   "taken from the pier",
		Created: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
	}
	got := Render(n)
	want := `---
image: "sunset.jpg"
author: "Jane"
tags: ["travel", "sunset"]
created: "2026-08-25"
---

![[sunset.jpg|600]]

## Notes

taken from the pier
`
	if got != want {
		t.Errorf("Render:\ngot  %q\nwant %q", got, want)
	}
}

func TestRenderEmptyFields(t *testing.T) {
	n := Note{Image: "p.png", Created: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	got := Render(n)
	want := "---\nimage: \"p.png\"\nauthor: \"\"\ntags: []\ncreated: \"2026-01-02\"\n---\n\n![[p.png|600]]\n\n## Notes\n\n"
	if got != want {
		t.Errorf("Render:\ngot  %q\nwant %q", got, want)
	}
}

func TestRenderedNoteRoundTrips(t *testing.T) {
	// The generated note must be readable by the same codec and scanner
	// that the rename/delete paths use.
	n := Note{
		Image:   "shot.png",
		Tags:    []string{"macro", "night"},
		Created: time.Now(),
	}
	content := Render(n)

	blk, ok := frontmatter.Parse(content)
	if !ok {
		t.Fatal("generated note not parseable")
	}
	tags := blk.Tags()
	if len(tags) != 2 || tags[0] != "macro" || tags[1] != "night" {
		t.Fatalf("Tags = %v", tags)
	}

	ex := scanner.Extract(content, scanner.Options{})
	if len(ex.Frontmatter) != 2 {
		t.Fatalf("scanner sees %v", ex.Frontmatter)
	}
}

func TestSanitizeFilename(t *testing.T) {
	got := SanitizeFilename(`a<b>c:d"e/f\g|h?i*j`)
	want := "a_b_c_d_e_f_g_h_i_j"
	if got != want {
		t.Errorf("SanitizeFilename = %q, want %q", got, want)
	}
	if got := SanitizeFilename("already-safe_name"); got != "already-safe_name" {
		t.Errorf("safe name altered: %q", got)
	}
}

func TestNotePath(t *testing.T) {
	cases := []struct {
		folder, image, want string
	}{
		{"Image Library", "sunset.jpg", "Image Library/sunset.md"},
		{"Image Library", "gallery/deep/shot.png", "Image Library/shot.md"},
		{"Curated", `we?ird*name.webp`, "Curated/we_ird_name.md"},
		{"Curated", "noext", "Curated/noext.md"},
	}
	for _, tc := range cases {
		if got := NotePath(tc.folder, tc.image); got != tc.want {
			t.Errorf("NotePath(%q, %q) = %q, want %q", tc.folder, tc.image, got, tc.want)
		}
	}
}
