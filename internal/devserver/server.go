package devserver

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/sandeepkv93/tasktree/internal/model"
)

const (
	refreshCookie  = "refreshToken"
	userIDKey      = "userID"
	defaultTTL     = 15 * time.Minute
	defaultBaseURL = "http://localhost:5173"
)

type Options struct {
	Logger *slog.Logger
	// Secret signs access tokens. A random secret is used when empty.
	Secret []byte
	// AccessTTL bounds access token lifetime; keep it short to exercise refresh.
	AccessTTL time.Duration
	Now       func() time.Time
	// OTP generates verification codes. Codes are logged at info level.
	OTP func() string
	// BaseURL is the web origin used in share links.
	BaseURL string
}

// Server is an in-memory TaskTree backend for local development and tests.
type Server struct {
	engine  *gin.Engine
	store   *store
	logger  *slog.Logger
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
	otp     func() string
	baseURL string
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	secret := opts.Secret
	if len(secret) == 0 {
		secret = []byte(newID())
	}
	ttl := opts.AccessTTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	otp := opts.OTP
	if otp == nil {
		otp = func() string { return fmt.Sprintf("%06d", rand.IntN(1_000_000)) }
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := &Server{
		engine:  router,
		store:   newStore(),
		logger:  logger,
		secret:  secret,
		ttl:     ttl,
		now:     now,
		otp:     otp,
		baseURL: baseURL,
	}
	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// SeedUser creates a verified account, bypassing OTP.
func (s *Server) SeedUser(p model.Profile, password string) model.Profile {
	return s.store.seed(p, password)
}

func (s *Server) registerRoutes() {
	auth := s.engine.Group("/auth")
	{
		auth.POST("/register", s.handleRegister)
		auth.POST("/verify-otp", s.handleVerifyOTP)
		auth.POST("/resend-otp", s.handleResendOTP)
		auth.POST("/login", s.handleLogin)
		auth.GET("/refresh", s.handleRefresh)
		auth.POST("/logout", s.requireAuth, s.handleLogout)
		auth.GET("/verify", s.requireAuth, s.handleVerify)
		auth.PUT("/darkmode", s.requireAuth, s.handleDarkMode)
	}

	s.engine.GET("/sections/shared/:token", s.handleSharedSection)
	sections := s.engine.Group("/sections", s.requireAuth)
	{
		sections.GET("/:id", s.handleListSections)
		sections.POST("", s.handleCreateSection)
		sections.DELETE("/:id", s.handleDeleteSection)
		sections.PUT("/:id/toggle-public-view", s.handleTogglePublic)
		sections.POST("/:id/share", s.handleShareSection)
	}

	tasks := s.engine.Group("/tasks", s.requireAuth)
	{
		tasks.POST("/:id", s.handleCreateTask)
		tasks.POST("/:id/assign", s.handleAssignTask)
		tasks.PUT("/:id/:taskId", s.handleUpdateTask)
		tasks.DELETE("/:id/:taskId", s.handleDeleteTask)
		tasks.PUT("/:id/:taskId/done", s.handleTaskDone)
	}

	subtasks := s.engine.Group("/subtasks", s.requireAuth)
	{
		subtasks.POST("/:id/:taskId", s.handleCreateSubTask)
		subtasks.PUT("/:id/:taskId/:subId", s.handleUpdateSubTask)
		subtasks.DELETE("/:id/:taskId/:subId", s.handleDeleteSubTask)
		subtasks.PUT("/:id/:taskId/:subId/done", s.handleSubTaskDone)
	}
}

type accessClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (s *Server) issueAccess(p model.Profile) (string, error) {
	now := s.now()
	claims := accessClaims{
		Email: p.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			ID:        newID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

func (s *Server) requireAuth(c *gin.Context) {
	header := c.GetHeader("Authorization")
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "missing access token"})
		return
	}
	var claims accessClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		s.logger.Debug("access token rejected", slog.String("error", err.Error()))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "invalid or expired access token"})
		return
	}
	if _, ok := s.store.profile(claims.Subject); !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "unknown user"})
		return
	}
	c.Set(userIDKey, claims.Subject)
	c.Next()
}

func currentUser(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// respondError logs the error and maps store sentinels to HTTP statuses.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, errForbidden):
		status = http.StatusForbidden
	case errors.Is(err, errNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errConflict):
		status = http.StatusConflict
	}
	s.logger.Warn("request failed",
		slog.String("path", c.FullPath()),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)
	c.JSON(status, gin.H{"message": err.Error()})
}

func respondSuccess(c *gin.Context, status int, payload any) {
	if payload == nil {
		c.Status(status)
		return
	}
	c.JSON(status, payload)
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errInvalidInput}, args...)...)
}
