// Package models defines the domain types for Othala.
package models

import "time"

// DocumentMeta is a lightweight representation of a Markdown document in the
// vault, returned by list operations.
type DocumentMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ImageMeta describes an image file found in the vault.
type ImageMeta struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TagCount pairs a vocabulary tag with its usage count across the vault.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// TagRef records one tagging of a document, keyed by where the tag was
// written. Source is "inline" for #tag and list-marker occurrences and
// "frontmatter" for entries of the tags list.
type TagRef struct {
	Tag    string `json:"tag"`
	Source string `json:"source"`
}
