// Package testutil provides shared test helpers for setting up vaults,
// vocabularies, and usage caches.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/othalahq/othala/internal/index"
	"github.com/othalahq/othala/internal/storage"
	"github.com/othalahq/othala/internal/vocab"
)

// TestDB creates a temporary SQLite-backed usage cache that is
// automatically cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "othala-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory with a storage.Provider.
func TestVault(t *testing.T) (string, storage.Provider) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// TestVocab creates a vocabulary store persisting to a temp settings file.
// It starts with the built-in defaults; mutations land in the temp file.
func TestVocab(t *testing.T) *vocab.Store {
	t.Helper()
	vc, err := vocab.Load(filepath.Join(t.TempDir(), "settings.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	return vc
}
