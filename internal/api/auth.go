package api

import (
	"context"
	"net/http"

	"github.com/sandeepkv93/tasktree/internal/model"
)

type messageResponse struct {
	Message string `json:"message"`
}

type authResponse struct {
	AccessToken string        `json:"accessToken"`
	User        model.Profile `json:"user"`
}

func (r authResponse) grant() model.AuthGrant {
	return model.AuthGrant{AccessToken: r.AccessToken, User: r.User}
}

func (c *Client) Register(ctx context.Context, in model.Registration) (string, error) {
	var out messageResponse
	err := c.do(ctx, call{op: "register", method: http.MethodPost, path: []string{"auth", "register"}, body: in, out: &out})
	return out.Message, err
}

func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (model.AuthGrant, error) {
	var out authResponse
	err := c.do(ctx, call{
		op:     "verify otp",
		method: http.MethodPost,
		path:   []string{"auth", "verify-otp"},
		body:   map[string]string{"email": email, "otp": otp},
		out:    &out,
	})
	return out.grant(), err
}

func (c *Client) ResendOTP(ctx context.Context, email string) (string, error) {
	var out messageResponse
	err := c.do(ctx, call{
		op:     "resend otp",
		method: http.MethodPost,
		path:   []string{"auth", "resend-otp"},
		body:   map[string]string{"email": email},
		out:    &out,
	})
	return out.Message, err
}

func (c *Client) Login(ctx context.Context, creds model.Credentials) (model.AuthGrant, error) {
	var out authResponse
	err := c.do(ctx, call{op: "login", method: http.MethodPost, path: []string{"auth", "login"}, body: creds, out: &out})
	return out.grant(), err
}

// Logout carries the token but never triggers a refresh: a session that
// cannot be refreshed is being discarded anyway.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, call{op: "logout", method: http.MethodPost, path: []string{"auth", "logout"}, auth: true, noRefresh: true})
}

func (c *Client) VerifyToken(ctx context.Context) (model.Profile, error) {
	var out struct {
		User model.Profile `json:"user"`
	}
	err := c.do(ctx, call{op: "verify token", method: http.MethodGet, path: []string{"auth", "verify"}, auth: true, out: &out})
	return out.User, err
}

func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	var out authResponse
	err := c.do(ctx, call{op: "refresh token", method: http.MethodGet, path: []string{"auth", "refresh"}, out: &out})
	return out.AccessToken, err
}

func (c *Client) UpdateDarkMode(ctx context.Context, enabled bool) (bool, error) {
	var out struct {
		DarkMode bool `json:"darkMode"`
	}
	err := c.do(ctx, call{
		op:     "update dark mode",
		method: http.MethodPut,
		path:   []string{"auth", "darkmode"},
		body:   map[string]bool{"darkMode": enabled},
		auth:   true,
		out:    &out,
	})
	return out.DarkMode, err
}
