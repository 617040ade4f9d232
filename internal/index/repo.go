package index

import (
	"fmt"
	"time"

	"github.com/othalahq/othala/internal/models"
)

// DocRow represents a row in the documents table.
type DocRow struct {
	Path      string
	Checksum  string
	UpdatedAt time.Time
}

// UpsertDocument inserts or replaces a document together with its tag and
// embed rows, within one transaction.
func (db *DB) UpsertDocument(d DocRow, tags []models.TagRef, embeds []string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	_, err = tx.Exec(`
		INSERT INTO documents (path, checksum, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			checksum   = excluded.checksum,
			updated_at = excluded.updated_at
	`, d.Path, d.Checksum, d.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert document: %w", err)
	}

	// Replace tag rows: delete old then bulk insert.
	_, _ = tx.Exec(`DELETE FROM doc_tags WHERE path = ?`, d.Path)
	if len(tags) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO doc_tags (path, tag, source) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare tag insert: %w", err)
		}
		defer stmt.Close()
		for _, ref := range tags {
			if _, err := stmt.Exec(d.Path, ref.Tag, ref.Source); err != nil {
				return fmt.Errorf("index: insert tag: %w", err)
			}
		}
	}

	// Replace embed rows the same way.
	_, _ = tx.Exec(`DELETE FROM embeds WHERE source = ?`, d.Path)
	if len(embeds) > 0 {
		stmt, err := tx.Prepare(`INSERT OR IGNORE INTO embeds (source, target) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("index: prepare embed insert: %w", err)
		}
		defer stmt.Close()
		for _, target := range embeds {
			if _, err := stmt.Exec(d.Path, target); err != nil {
				return fmt.Errorf("index: insert embed: %w", err)
			}
		}
	}

	return tx.Commit()
}

// DeleteDocument removes a document with its tag and embed rows.
func (db *DB) DeleteDocument(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	_, _ = tx.Exec(`DELETE FROM doc_tags WHERE path = ?`, path)
	_, _ = tx.Exec(`DELETE FROM embeds WHERE source = ?`, path)
	_, _ = tx.Exec(`DELETE FROM documents WHERE path = ?`, path)

	return tx.Commit()
}

// GetChecksum returns the stored checksum for a document, or empty string
// if not cached.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM documents WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path → checksum for every cached document.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM documents`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}

// TagCounts returns how many documents carry each tag, every tag included.
func (db *DB) TagCounts() ([]models.TagCount, error) {
	rows, err := db.conn.Query(`
		SELECT tag, COUNT(DISTINCT path) FROM doc_tags GROUP BY tag ORDER BY tag
	`)
	if err != nil {
		return nil, fmt.Errorf("index: tag counts: %w", err)
	}
	defer rows.Close()
	var out []models.TagCount
	for rows.Next() {
		var tc models.TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, err
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

// DocumentsWithTag returns the paths of documents carrying tag, sorted.
func (db *DB) DocumentsWithTag(tag string) ([]string, error) {
	rows, err := db.conn.Query(`SELECT DISTINCT path FROM doc_tags WHERE tag = ? ORDER BY path`, tag)
	if err != nil {
		return nil, fmt.Errorf("index: documents with tag: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// EmbedsByTarget returns image target → embedding document paths for every
// embed in the cache.
func (db *DB) EmbedsByTarget() (map[string][]string, error) {
	rows, err := db.conn.Query(`SELECT target, source FROM embeds ORDER BY target, source`)
	if err != nil {
		return nil, fmt.Errorf("index: embeds: %w", err)
	}
	defer rows.Close()
	out := make(map[string][]string)
	for rows.Next() {
		var target, source string
		if err := rows.Scan(&target, &source); err != nil {
			return nil, err
		}
		out[target] = append(out[target], source)
	}
	return out, rows.Err()
}
