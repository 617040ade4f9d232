package index

import (
	"log/slog"
	"time"

	"github.com/othalahq/othala/internal/imageref"
	"github.com/othalahq/othala/internal/models"
	"github.com/othalahq/othala/internal/scanner"
	"github.com/othalahq/othala/internal/storage"
)

// Sync walks the vault and brings the cache up to date:
//   - new/changed documents are re-extracted and upserted
//   - documents removed from disk are deleted from the cache
func Sync(db *DB, store storage.Provider, opts scanner.Options, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexDocument(db, m.Path, data, opts); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.DeleteDocument(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexDocument extracts tags and image embeds from data and upserts the
// document's cache rows.
func IndexDocument(db *DB, path string, data []byte, opts scanner.Options) error {
	ex := scanner.Extract(string(data), opts)
	refs := make([]models.TagRef, 0, len(ex.Inline)+len(ex.Frontmatter))
	for _, t := range ex.Inline {
		refs = append(refs, models.TagRef{Tag: t, Source: "inline"})
	}
	for _, t := range ex.Frontmatter {
		refs = append(refs, models.TagRef{Tag: t, Source: "frontmatter"})
	}

	row := DocRow{
		Path:      path,
		Checksum:  storage.Checksum(data),
		UpdatedAt: time.Now(),
	}
	return db.UpsertDocument(row, refs, imageref.FindAll(string(data)))
}
