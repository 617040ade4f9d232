// Package rank provides the pure view transforms over (tag, count) pairs:
// substring filtering and the three sort orders offered by the tag browser.
package rank

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/othalahq/othala/internal/models"
)

// Filter returns the items whose name contains query, case-insensitively,
// in their original order. An empty query passes everything through.
func Filter(items []models.TagCount, query string) []models.TagCount {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return items
	}
	out := make([]models.TagCount, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), q) {
			out = append(out, it)
		}
	}
	return out
}

// ByName returns a copy sorted by name ascending. Comparison is
// numeric-aware, so img2 sorts before img10.
func ByName(items []models.TagCount) []models.TagCount {
	out := clone(items)
	c := newCollator()
	sort.SliceStable(out, func(i, j int) bool {
		return c.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}

// ByCount returns a copy sorted by count descending, ties by name
// ascending.
func ByCount(items []models.TagCount) []models.TagCount {
	out := clone(items)
	c := newCollator()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return c.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}

// ByRelevance returns a copy sorted by query relevance: 1000 for an exact
// name match, 100 for a prefix match, 10 for a substring match, plus
// min(count, 5) as a boost. Ties break by descending count, then name.
// Without a query it degrades to ByName.
func ByRelevance(items []models.TagCount, query string) []models.TagCount {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return ByName(items)
	}
	out := clone(items)
	c := newCollator()
	sort.SliceStable(out, func(i, j int) bool {
		si, sj := score(out[i], q), score(out[j], q)
		if si != sj {
			return si > sj
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return c.CompareString(out[i].Name, out[j].Name) < 0
	})
	return out
}

func score(it models.TagCount, q string) int {
	name := strings.ToLower(it.Name)
	base := 0
	switch {
	case name == q:
		base = 1000
	case strings.HasPrefix(name, q):
		base = 100
	case strings.Contains(name, q):
		base = 10
	}
	boost := it.Count
	if boost > 5 {
		boost = 5
	}
	if boost < 0 {
		boost = 0
	}
	return base + boost
}

// newCollator builds a fresh collator per sort; a Collator is not safe for
// concurrent use.
func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.Numeric)
}

func clone(items []models.TagCount) []models.TagCount {
	out := make([]models.TagCount, len(items))
	copy(out, items)
	return out
}
