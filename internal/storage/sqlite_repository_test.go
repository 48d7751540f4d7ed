package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := OpenSQLite(filepath.Join(t.TempDir(), "state", "tasktree-test.db"), nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestKVCRUD(t *testing.T) {
	repo := setupRepo(t)

	if _, err := repo.Get(KeyAccessToken); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got: %v", err)
	}

	if err := repo.SetMany(map[string]string{
		KeyAccessToken: "tok1",
		KeyUserProfile: `{"id":"u1","email":"a@b.c"}`,
	}); err != nil {
		t.Fatalf("set many: %v", err)
	}
	if err := repo.Set(KeyAccessToken, "tok2"); err != nil {
		t.Fatalf("overwrite token: %v", err)
	}

	token, err := repo.Get(KeyAccessToken)
	if err != nil || token != "tok2" {
		t.Fatalf("unexpected token: %q err=%v", token, err)
	}
	profile, err := repo.Get(KeyUserProfile)
	if err != nil || profile == "" {
		t.Fatalf("unexpected profile: %q err=%v", profile, err)
	}

	if err := repo.Delete(KeyAccessToken, KeyUserProfile); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Get(KeyUserProfile); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got: %v", err)
	}
}

func TestKVSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	repo, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := repo.Set(KeyDarkMode, "true"); err != nil {
		t.Fatalf("set: %v", err)
	}
	_ = repo.Close()

	reopened, err := OpenSQLite(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, err := reopened.Get(KeyDarkMode)
	if err != nil || got != "true" {
		t.Fatalf("expected persisted dark mode, got %q err=%v", got, err)
	}
}

func TestSectionCache(t *testing.T) {
	for name, cache := range map[string]SectionCache{
		"sqlite": setupRepo(t),
		"memory": NewMemoryKV(),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if _, _, err := cache.LoadSections(ctx, "u1"); !errors.Is(err, ErrNotFound) {
				t.Fatalf("expected ErrNotFound, got %v", err)
			}
			at := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
			if err := cache.SaveSections(ctx, "u1", []byte(`[{"id":"s1"}]`), at); err != nil {
				t.Fatalf("save: %v", err)
			}
			payload, fetched, err := cache.LoadSections(ctx, "u1")
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if string(payload) != `[{"id":"s1"}]` || !fetched.Equal(at) {
				t.Fatalf("unexpected cache entry: %s @ %v", payload, fetched)
			}
		})
	}
}
