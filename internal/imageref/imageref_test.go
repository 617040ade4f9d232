package imageref

import (
	"strings"
	"testing"
)

func TestIsImage(t *testing.T) {
	cases := []struct {
		path string
		want bool
	}{
		{"photo.png", true},
		{"photo.jpg", true},
		{"gallery/shot.JPEG", true},
		{"diagram.svg", true},
		{"anim.webp", true},
		{"pixel.bmp", true},
		{"clip.gif", true},
		{"notes.md", false},
		{"archive.png.zip", false},
		{"noextension", false},
		{"trailingdot.", false},
	}
	for _, tc := range cases {
		if got := IsImage(tc.path); got != tc.want {
			t.Errorf("IsImage(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestFind(t *testing.T) {
	text := "intro\n\n![[sunset.jpg|600]]\n\n## Notes\n"
	got, ok := Find(text)
	if !ok || got != "sunset.jpg" {
		t.Fatalf("Find = %q, %v; want sunset.jpg, true", got, ok)
	}

	if _, ok := Find("no embeds here ![[not-an-image.txt]]"); ok {
		t.Fatal("Find matched a non-image embed")
	}
}

func TestFindCaseInsensitiveExtension(t *testing.T) {
	got, ok := Find("![[Scan_001.PNG]]")
	if !ok || got != "Scan_001.PNG" {
		t.Fatalf("Find = %q, %v; want Scan_001.PNG, true", got, ok)
	}
}

func TestFindAt(t *testing.T) {
	text := "before ![[a.png]] middle ![[b.gif|200]] after"
	aStart := strings.Index(text, "![[a.png]]")
	bStart := strings.Index(text, "![[b.gif")

	if got, ok := FindAt(text, aStart+2); !ok || got != "a.png" {
		t.Fatalf("FindAt inside first embed = %q, %v", got, ok)
	}
	if got, ok := FindAt(text, bStart+5); !ok || got != "b.gif" {
		t.Fatalf("FindAt inside second embed = %q, %v", got, ok)
	}
	if _, ok := FindAt(text, 0); ok {
		t.Fatal("FindAt on plain text should not match")
	}
	// Negative offset falls back to the first embed.
	if got, ok := FindAt(text, -1); !ok || got != "a.png" {
		t.Fatalf("FindAt(-1) = %q, %v; want a.png, true", got, ok)
	}
}

func TestFindAllDedupes(t *testing.T) {
	text := "![[a.png]] ![[b.jpeg]] ![[a.png|300]]"
	got := FindAll(text)
	if len(got) != 2 || got[0] != "a.png" || got[1] != "b.jpeg" {
		t.Fatalf("FindAll = %v, want [a.png b.jpeg]", got)
	}
}
