package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sandeepkv93/tasktree/internal/api"
	"github.com/sandeepkv93/tasktree/internal/apperr"
	"github.com/sandeepkv93/tasktree/internal/model"
)

// refreshTimeout bounds a shared refresh that no single caller can cancel.
const refreshTimeout = 30 * time.Second

var errEmptyRefresh = errors.New("refresh returned an empty token")

type State string

const (
	StateUnauthenticated State = "unauthenticated"
	StateVerifying       State = "verifying"
	StateAuthenticated   State = "authenticated"
)

// Gateway is the slice of the backend API the session lifecycle needs.
type Gateway interface {
	Register(ctx context.Context, in model.Registration) (string, error)
	VerifyOTP(ctx context.Context, email, otp string) (model.AuthGrant, error)
	ResendOTP(ctx context.Context, email string) (string, error)
	Login(ctx context.Context, creds model.Credentials) (model.AuthGrant, error)
	Logout(ctx context.Context) error
	VerifyToken(ctx context.Context) (model.Profile, error)
	RefreshToken(ctx context.Context) (string, error)
}

// Session is a read-only view of the current authentication state.
type Session struct {
	IsAuthenticated bool
	AccessToken     string
	User            *model.Profile
}

type Options struct {
	Logger *slog.Logger
	// RefreshSkew triggers a refresh before sending when the access token
	// expires within this window. Zero disables proactive refresh.
	RefreshSkew time.Duration
	Now         func() time.Time
}

type Manager struct {
	gw     Gateway
	store  TokenStore
	logger *slog.Logger
	skew   time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	state     State
	user      *model.Profile
	observers []func(State)

	initOnce sync.Once
	initErr  error
	refresh  singleflight.Group
}

func NewManager(gw Gateway, store TokenStore, opts Options) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		gw:     gw,
		store:  store,
		logger: logger,
		skew:   opts.RefreshSkew,
		now:    now,
		state:  StateUnauthenticated,
	}
}

// Subscribe registers fn to be called after every state transition.
func (m *Manager) Subscribe(fn func(State)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observers = append(m.observers, fn)
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

func (m *Manager) User() (model.Profile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return model.Profile{}, false
	}
	return *m.user, true
}

func (m *Manager) Session() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := Session{IsAuthenticated: m.state == StateAuthenticated}
	if out.IsAuthenticated {
		out.AccessToken, _ = m.store.Get()
		if m.user != nil {
			u := *m.user
			out.User = &u
		}
	}
	return out
}

// Initialize validates a token left by a previous run. It talks to the
// backend at most once per Manager; later calls return the first result.
func (m *Manager) Initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.initErr = m.initialize(ctx)
	})
	return m.initErr
}

func (m *Manager) initialize(ctx context.Context) error {
	if _, ok := m.store.Get(); !ok {
		m.transition(StateUnauthenticated, nil)
		return nil
	}
	m.transition(StateVerifying, nil)

	profile, err := m.gw.VerifyToken(ctx)
	if err != nil {
		m.logger.Warn("stored token rejected", slog.String("error", err.Error()))
		m.terminate()
		return apperr.Wrap(apperr.KindAuthFailure, "verify session", err)
	}
	token, ok := m.store.Get()
	if !ok {
		// Cleared by a failed refresh during verification.
		m.terminate()
		return apperr.New(apperr.KindAuthFailure, "verify session", "session expired")
	}
	if err := m.store.Set(token, profile); err != nil {
		m.logger.Error("persist verified profile", slog.String("error", err.Error()))
	}
	m.transition(StateAuthenticated, &profile)
	return nil
}

func (m *Manager) Login(ctx context.Context, creds model.Credentials) (model.Profile, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return model.Profile{}, apperr.Validation("login", "email and password are required")
	}
	grant, err := m.gw.Login(ctx, creds)
	if err != nil {
		return model.Profile{}, apperr.Wrap(apperr.KindAuthFailure, "login", err)
	}
	if err := m.establish(grant); err != nil {
		return model.Profile{}, err
	}
	m.logger.Info("logged in", slog.String("user", grant.User.ID))
	return grant.User, nil
}

func (m *Manager) Register(ctx context.Context, in model.Registration) (string, error) {
	if err := in.Validate(); err != nil {
		return "", apperr.Validation("register", strings.TrimPrefix(err.Error(), "model: "))
	}
	msg, err := m.gw.Register(ctx, in)
	if err != nil {
		return "", apperr.Wrap(apperr.KindRequestFailed, "register", err)
	}
	return msg, nil
}

// VerifyOTP completes registration. A grant carrying a token logs the user in.
func (m *Manager) VerifyOTP(ctx context.Context, email, otp string) (model.Profile, error) {
	if strings.TrimSpace(email) == "" || strings.TrimSpace(otp) == "" {
		return model.Profile{}, apperr.Validation("verify otp", "email and code are required")
	}
	grant, err := m.gw.VerifyOTP(ctx, email, strings.TrimSpace(otp))
	if err != nil {
		return model.Profile{}, apperr.Wrap(apperr.KindRequestFailed, "verify otp", err)
	}
	if grant.AccessToken == "" {
		return grant.User, nil
	}
	if err := m.establish(grant); err != nil {
		return model.Profile{}, err
	}
	return grant.User, nil
}

func (m *Manager) ResendOTP(ctx context.Context, email string) (string, error) {
	if strings.TrimSpace(email) == "" {
		return "", apperr.Validation("resend otp", "email is required")
	}
	msg, err := m.gw.ResendOTP(ctx, email)
	if err != nil {
		return "", apperr.Wrap(apperr.KindRequestFailed, "resend otp", err)
	}
	return msg, nil
}

// Logout never fails from the caller's point of view: the backend call is
// best effort and local state is always cleared.
func (m *Manager) Logout(ctx context.Context) {
	if err := m.gw.Logout(ctx); err != nil {
		m.logger.Warn("backend logout failed", slog.String("error", err.Error()))
	}
	m.terminate()
}

// UpdateProfile replaces the cached profile after a preference change.
func (m *Manager) UpdateProfile(p model.Profile) {
	token, ok := m.store.Get()
	if !ok {
		return
	}
	if err := m.store.Set(token, p); err != nil {
		m.logger.Error("persist profile", slog.String("error", err.Error()))
	}
	m.mu.Lock()
	m.user = &p
	m.mu.Unlock()
}

// AccessToken returns the token to attach to the next request, refreshing
// first when it is about to expire.
func (m *Manager) AccessToken(ctx context.Context) (string, error) {
	token, ok := m.store.Get()
	if !ok {
		return "", apperr.New(apperr.KindAuthFailure, "authorize", "not logged in")
	}
	if m.skew <= 0 {
		return token, nil
	}
	exp, known := tokenExpiry(token)
	if !known || m.now().Add(m.skew).Before(exp) {
		return token, nil
	}
	fresh, err := m.refreshShared(ctx, token)
	if err != nil {
		// Let the request go out; a 401 takes the regular refresh path.
		m.logger.Debug("proactive refresh failed", slog.String("error", err.Error()))
		return token, nil
	}
	return fresh, nil
}

// Refresh obtains a new access token after the backend rejected rejected.
// Concurrent callers share one in-flight refresh. The session is terminated
// only when the backend refuses the refresh; a caller giving up or a
// transport failure leaves it intact.
func (m *Manager) Refresh(ctx context.Context, rejected string) (string, error) {
	token, err := m.refreshShared(ctx, rejected)
	if err == nil {
		return token, nil
	}
	if !refusedByBackend(err) {
		m.logger.Warn("token refresh interrupted", slog.String("error", err.Error()))
		return "", apperr.Wrap(apperr.KindNetworkFailure, "refresh session", err)
	}
	m.logger.Warn("token refresh refused, ending session", slog.String("error", err.Error()))
	m.terminate()
	return "", apperr.Wrap(apperr.KindAuthFailure, "refresh session", err)
}

func refusedByBackend(err error) bool {
	if errors.Is(err, errEmptyRefresh) {
		return true
	}
	switch api.StatusOf(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

// refreshShared runs one refresh for all waiters. The backend call is
// detached from the caller's cancellation and bounded by refreshTimeout;
// each caller stops waiting when its own ctx ends.
func (m *Manager) refreshShared(ctx context.Context, rejected string) (string, error) {
	if current, ok := m.store.Get(); ok && current != rejected {
		// Another caller already rotated the token.
		return current, nil
	}
	detached := context.WithoutCancel(ctx)
	ch := m.refresh.DoChan("refresh", func() (any, error) {
		rctx, cancel := context.WithTimeout(detached, refreshTimeout)
		defer cancel()
		token, err := m.gw.RefreshToken(rctx)
		if err != nil {
			return "", err
		}
		if token == "" {
			return "", errEmptyRefresh
		}
		if err := m.store.SetToken(token); err != nil {
			return "", err
		}
		m.logger.Debug("access token refreshed")
		return token, nil
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (m *Manager) establish(grant model.AuthGrant) error {
	if grant.AccessToken == "" {
		return apperr.New(apperr.KindAuthFailure, "login", "backend returned no access token")
	}
	if err := m.store.Set(grant.AccessToken, grant.User); err != nil {
		return apperr.Wrap(apperr.KindAuthFailure, "store session", err)
	}
	user := grant.User
	m.transition(StateAuthenticated, &user)
	return nil
}

func (m *Manager) terminate() {
	if err := m.store.Clear(); err != nil {
		m.logger.Error("clear token store", slog.String("error", err.Error()))
	}
	m.transition(StateUnauthenticated, nil)
}

func (m *Manager) transition(next State, user *model.Profile) {
	m.mu.Lock()
	changed := m.state != next
	m.state = next
	m.user = user
	observers := append([]func(State){}, m.observers...)
	m.mu.Unlock()
	if !changed {
		return
	}
	for _, fn := range observers {
		fn(next)
	}
}
