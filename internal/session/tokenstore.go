package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/sandeepkv93/tasktree/internal/model"
	"github.com/sandeepkv93/tasktree/internal/storage"
)

// TokenStore holds the access token and the profile it belongs to. All
// writes are synchronous and reach durable storage before returning.
type TokenStore interface {
	Get() (string, bool)
	Profile() (model.Profile, bool)
	Set(token string, profile model.Profile) error
	SetToken(token string) error
	Clear() error
}

type KVTokenStore struct {
	mu      sync.RWMutex
	kv      storage.KV
	token   string
	profile *model.Profile
}

// NewKVTokenStore loads whatever a previous process left behind. A profile
// that no longer decodes is dropped; startup verification recovers from it.
func NewKVTokenStore(kv storage.KV) (*KVTokenStore, error) {
	if kv == nil {
		return nil, errors.New("session: nil kv")
	}
	s := &KVTokenStore{kv: kv}

	token, err := kv.Get(storage.KeyAccessToken)
	switch {
	case err == nil:
		s.token = token
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("load token: %w", err)
	}

	raw, err := kv.Get(storage.KeyUserProfile)
	switch {
	case err == nil:
		var p model.Profile
		if json.Unmarshal([]byte(raw), &p) == nil {
			s.profile = &p
		}
	case !errors.Is(err, storage.ErrNotFound):
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return s, nil
}

func (s *KVTokenStore) Get() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

func (s *KVTokenStore) Profile() (model.Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return model.Profile{}, false
	}
	return *s.profile, true
}

func (s *KVTokenStore) Set(token string, profile model.Profile) error {
	raw, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.SetMany(map[string]string{
		storage.KeyAccessToken: token,
		storage.KeyUserProfile: string(raw),
	}); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.token = token
	s.profile = &profile
	return nil
}

func (s *KVTokenStore) SetToken(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Set(storage.KeyAccessToken, token); err != nil {
		return fmt.Errorf("persist token: %w", err)
	}
	s.token = token
	return nil
}

func (s *KVTokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.profile = nil
	if err := s.kv.Delete(storage.KeyAccessToken, storage.KeyUserProfile); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
