package devserver

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/sandeepkv93/tasktree/internal/model"
)

var (
	errNotFound     = errors.New("not found")
	errForbidden    = errors.New("forbidden")
	errConflict     = errors.New("already exists")
	errInvalidInput = errors.New("invalid input")
)

type account struct {
	profile  model.Profile
	password string
	verified bool
	otp      string
}

// store is the in-memory backend state. Every method takes the lock and
// returns deep copies so handlers never share memory with the store.
type store struct {
	mu       sync.Mutex
	accounts map[string]*account // by lower-cased email
	byID     map[string]*account
	sections []*model.Section
	refresh  map[string]string // refresh token -> user id
}

func newStore() *store {
	return &store{
		accounts: make(map[string]*account),
		byID:     make(map[string]*account),
		refresh:  make(map[string]string),
	}
}

func newID() string { return uuid.New().String() }

func (s *store) register(in model.Registration, otp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(in.Email))
	if existing, ok := s.accounts[key]; ok && existing.verified {
		return fmt.Errorf("%w: email %s is registered", errConflict, in.Email)
	}
	role := in.Role
	if role == "" {
		role = model.RoleSolo
	}
	acct := &account{
		profile:  model.Profile{ID: newID(), Name: strings.TrimSpace(in.Name), Email: key, Role: role},
		password: in.Password,
		otp:      otp,
	}
	s.accounts[key] = acct
	s.byID[acct.profile.ID] = acct
	return nil
}

// seed creates a verified account directly.
func (s *store) seed(p model.Profile, password string) model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = newID()
	}
	p.Email = strings.ToLower(p.Email)
	if p.Role == "" {
		p.Role = model.RoleSolo
	}
	acct := &account{profile: p, password: password, verified: true}
	s.accounts[p.Email] = acct
	s.byID[p.ID] = acct
	return p
}

func (s *store) verifyOTP(email, otp string) (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return model.Profile{}, fmt.Errorf("%w: account", errNotFound)
	}
	if acct.otp == "" || acct.otp != otp {
		return model.Profile{}, fmt.Errorf("%w: verification code does not match", errInvalidInput)
	}
	acct.verified = true
	acct.otp = ""
	return acct.profile, nil
}

func (s *store) resendOTP(email, otp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[strings.ToLower(email)]
	if !ok || acct.verified {
		return fmt.Errorf("%w: no pending verification", errNotFound)
	}
	acct.otp = otp
	return nil
}

func (s *store) authenticate(email, password string) (model.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[strings.ToLower(email)]
	if !ok || !acct.verified || acct.password != password {
		return model.Profile{}, false
	}
	return acct.profile, true
}

func (s *store) profile(userID string) (model.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byID[userID]
	if !ok {
		return model.Profile{}, false
	}
	return acct.profile, true
}

func (s *store) setDarkMode(userID string, on bool) (model.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byID[userID]
	if !ok {
		return model.Profile{}, errNotFound
	}
	acct.profile.DarkMode = on
	return acct.profile, nil
}

func (s *store) issueRefresh(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	token := newID()
	s.refresh[token] = userID
	return token
}

func (s *store) redeemRefresh(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	userID, ok := s.refresh[token]
	return userID, ok
}

func (s *store) revokeRefresh(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.refresh, token)
}

// visibleSections returns sections the user owns or has an assigned task in.
func (s *store) visibleSections(userID string) []model.Section {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := ""
	if acct, ok := s.byID[userID]; ok {
		email = acct.profile.Email
	}
	out := make([]model.Section, 0)
	for _, sec := range s.sections {
		if sec.OwnerUserID == userID || slices.ContainsFunc(sec.Tasks, func(t model.Task) bool { return t.IsAssigned(email) }) {
			out = append(out, sec.Clone())
		}
	}
	return out
}

func (s *store) createSection(userID, name string) (model.Section, error) {
	if strings.TrimSpace(name) == "" {
		return model.Section{}, fmt.Errorf("%w: section name is required", errInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	sec := &model.Section{ID: newID(), Name: strings.TrimSpace(name), OwnerUserID: userID, Tasks: []model.Task{}}
	s.sections = append(s.sections, sec)
	return sec.Clone(), nil
}

func (s *store) deleteSection(userID, sectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.sections, func(sec *model.Section) bool { return sec.ID == sectionID })
	if idx < 0 {
		return fmt.Errorf("%w: section", errNotFound)
	}
	if s.sections[idx].OwnerUserID != userID {
		return fmt.Errorf("%w: only the owner can delete a section", errForbidden)
	}
	s.sections = slices.Delete(s.sections, idx, idx+1)
	return nil
}

// withSection runs fn on the live section under the lock.
func (s *store) withSection(sectionID string, fn func(sec *model.Section) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sec := range s.sections {
		if sec.ID == sectionID {
			return fn(sec)
		}
	}
	return fmt.Errorf("%w: section", errNotFound)
}

func (s *store) sharedSection(token string) (model.Section, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sec := range s.sections {
		if sec.ShareToken != "" && sec.ShareToken == token && sec.IsPubliclyShared {
			return sec.Clone(), nil
		}
	}
	return model.Section{}, fmt.Errorf("%w: shared section", errNotFound)
}

// findTask locates a task by id across all sections; the assign endpoint
// does not carry a section id.
func (s *store) findTask(taskID string, fn func(sec *model.Section, task *model.Task) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sec := range s.sections {
		for i := range sec.Tasks {
			if sec.Tasks[i].ID == taskID {
				return fn(sec, &sec.Tasks[i])
			}
		}
	}
	return fmt.Errorf("%w: task", errNotFound)
}

func (s *store) email(userID string) string {
	if acct, ok := s.byID[userID]; ok {
		return acct.profile.Email
	}
	return ""
}
