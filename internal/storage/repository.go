package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("storage: not found")

// Well-known keys for durable client state.
const (
	KeyAccessToken = "auth.token"
	KeyUserProfile = "auth.user"
	KeyDarkMode    = "prefs.dark_mode"
)

// KV is the durable key-value backing of the token store and preferences.
// Every call writes through immediately.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
	// SetMany writes all pairs or none.
	SetMany(pairs map[string]string) error
	Delete(keys ...string) error
}

// SectionCache keeps the last authoritative section payload per user so the
// client can render something before the first fetch completes.
type SectionCache interface {
	SaveSections(ctx context.Context, userID string, payload []byte, fetchedAt time.Time) error
	LoadSections(ctx context.Context, userID string) ([]byte, time.Time, error)
}
