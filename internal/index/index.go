package index

import "github.com/othalahq/othala/internal/models"

// Cache defines the interface for metadata cache operations. Consumers
// should depend on this interface rather than the concrete *DB type to
// facilitate testing with mocks.
type Cache interface {
	UpsertDocument(d DocRow, tags []models.TagRef, embeds []string) error
	DeleteDocument(path string) error
	GetChecksum(path string) (string, error)
	AllChecksums() (map[string]string, error)
	TagCounts() ([]models.TagCount, error)
	DocumentsWithTag(tag string) ([]string, error)
	EmbedsByTarget() (map[string][]string, error)
	Close() error
}

// Verify *DB satisfies Cache at compile time.
var _ Cache = (*DB)(nil)
