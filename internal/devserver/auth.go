package devserver

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sandeepkv93/tasktree/internal/model"
)

type emailRequest struct {
	Email string `json:"email"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req model.Registration
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest("invalid payload"))
		return
	}
	if err := req.Validate(); err != nil {
		s.respondError(c, badRequest("%v", err))
		return
	}
	code := s.otp()
	if err := s.store.register(req, code); err != nil {
		s.respondError(c, err)
		return
	}
	s.logger.Info("verification code issued", slog.String("email", req.Email), slog.String("otp", code))
	respondSuccess(c, http.StatusCreated, gin.H{"message": "verification code sent to " + req.Email})
}

func (s *Server) handleVerifyOTP(c *gin.Context) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest("invalid payload"))
		return
	}
	profile, err := s.store.verifyOTP(req.Email, req.OTP)
	if err != nil {
		s.respondError(c, err)
		return
	}
	s.grant(c, profile)
}

func (s *Server) handleResendOTP(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest("invalid payload"))
		return
	}
	code := s.otp()
	if err := s.store.resendOTP(req.Email, code); err != nil {
		s.respondError(c, err)
		return
	}
	s.logger.Info("verification code reissued", slog.String("email", req.Email), slog.String("otp", code))
	respondSuccess(c, http.StatusOK, gin.H{"message": "verification code resent"})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req model.Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest("invalid payload"))
		return
	}
	profile, ok := s.store.authenticate(req.Email, req.Password)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "invalid email or password"})
		return
	}
	s.grant(c, profile)
}

// grant issues an access token in the body and a refresh token as an
// http-only cookie.
func (s *Server) grant(c *gin.Context, profile model.Profile) {
	token, err := s.issueAccess(profile)
	if err != nil {
		s.respondError(c, err)
		return
	}
	refresh := s.store.issueRefresh(profile.ID)
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(refreshCookie, refresh, int((7 * 24 * 60 * 60)), "/", "", false, true)
	respondSuccess(c, http.StatusOK, gin.H{"accessToken": token, "user": profile})
}

func (s *Server) handleRefresh(c *gin.Context) {
	raw, err := c.Cookie(refreshCookie)
	if err != nil || raw == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "missing refresh token"})
		return
	}
	userID, ok := s.store.redeemRefresh(raw)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "refresh token revoked"})
		return
	}
	profile, ok := s.store.profile(userID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"message": "unknown user"})
		return
	}
	token, err := s.issueAccess(profile)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"accessToken": token})
}

func (s *Server) handleLogout(c *gin.Context) {
	if raw, err := c.Cookie(refreshCookie); err == nil {
		s.store.revokeRefresh(raw)
	}
	c.SetCookie(refreshCookie, "", -1, "/", "", false, true)
	respondSuccess(c, http.StatusOK, gin.H{"message": "logged out"})
}

func (s *Server) handleVerify(c *gin.Context) {
	profile, _ := s.store.profile(currentUser(c))
	respondSuccess(c, http.StatusOK, gin.H{"user": profile})
}

func (s *Server) handleDarkMode(c *gin.Context) {
	var req struct {
		DarkMode *bool `json:"darkMode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.DarkMode == nil {
		s.respondError(c, badRequest("darkMode is required"))
		return
	}
	profile, err := s.store.setDarkMode(currentUser(c), *req.DarkMode)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, gin.H{"darkMode": profile.DarkMode})
}
