package database

import (
	"path/filepath"
	"testing"
)

func TestOpenAndMigrate(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audiocove.db")
	db, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	// The schema must be usable after migration.
	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM chapters`).Scan(&count); err != nil {
		t.Fatalf("querying chapters: %v", err)
	}
	if count != 0 {
		t.Errorf("chapters = %d rows, want 0 on a fresh database", count)
	}

	// Re-running on an up-to-date database is a no-op, not an error.
	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate (second run): %v", err)
	}
}

func TestOpen_InMemory(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
}
