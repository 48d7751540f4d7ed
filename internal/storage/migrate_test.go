package storage

import (
	"database/sql"
	"path/filepath"
	"testing"
)

func TestMigrateRoundTripCompatibility(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "migrate-roundtrip.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := MigrateUp(db); err != nil {
		t.Fatalf("first migrate up failed: %v", err)
	}

	if err := MigrateDown(db); err != nil {
		t.Fatalf("migrate down failed: %v", err)
	}

	if err := MigrateUp(db); err != nil {
		t.Fatalf("second migrate up failed: %v", err)
	}

	repo, err := NewSQLiteRepository(db, nil)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}

	if err := repo.Set(KeyAccessToken, "tok-roundtrip"); err != nil {
		t.Fatalf("insert after roundtrip failed: %v", err)
	}

	got, err := repo.Get(KeyAccessToken)
	if err != nil {
		t.Fatalf("get after roundtrip failed: %v", err)
	}
	if got != "tok-roundtrip" {
		t.Fatalf("unexpected token after roundtrip: %q", got)
	}
}
