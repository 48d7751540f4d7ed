package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/sandeepkv93/tasktree/internal/apperr"
)

const defaultTimeout = 15 * time.Second

// Authenticator supplies bearer tokens and recovers from a rejected one.
type Authenticator interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context, rejected string) (string, error)
}

// RequestError is a non-2xx backend response.
type RequestError struct {
	Op      string
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("tasktree api: %s: status %d: %s", e.Op, e.Status, e.Message)
}

func (e *RequestError) UserMessage() string { return e.Message }

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Status
	}
	return 0
}

type Client struct {
	base    *url.URL
	http    *http.Client
	auth    Authenticator
	logger  *slog.Logger
	timeout time.Duration
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithAuthenticator(a Authenticator) Option {
	return func(c *Client) { c.auth = a }
}

// New builds a client for the backend rooted at baseURL. A cookie jar is
// always attached because the refresh credential travels as a cookie.
func New(baseURL string, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api url must be absolute: %q", baseURL)
	}
	c := &Client{base: base, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.http.Jar = jar
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	return c, nil
}

// SetAuthenticator wires the session after construction, breaking the
// client/session construction cycle.
func (c *Client) SetAuthenticator(a Authenticator) {
	c.auth = a
}

// BaseURL is used to build public share links.
func (c *Client) BaseURL() string {
	return c.base.String()
}

type call struct {
	op        string
	method    string
	path      []string
	body      any
	out       any
	auth      bool
	noRefresh bool
}

func (c *Client) do(ctx context.Context, in call) error {
	token := ""
	if in.auth {
		if c.auth == nil {
			return apperr.New(apperr.KindAuthFailure, in.op, "not logged in")
		}
		var err error
		token, err = c.auth.AccessToken(ctx)
		if err != nil {
			return err
		}
	}

	err := c.send(ctx, in, token)
	if !in.auth || in.noRefresh || StatusOf(err) != http.StatusUnauthorized {
		return err
	}

	c.logger.Debug("request unauthorized, refreshing", slog.String("op", in.op))
	fresh, refreshErr := c.auth.Refresh(ctx, token)
	if refreshErr != nil {
		// An interrupted refresh keeps its own kind so callers do not
		// mistake it for a rejected session.
		if kind, ok := apperr.KindOf(refreshErr); ok && kind != apperr.KindAuthFailure {
			return apperr.Wrap(kind, in.op, refreshErr)
		}
		return apperr.Wrap(apperr.KindAuthFailure, in.op, err)
	}
	err = c.send(ctx, in, fresh)
	if StatusOf(err) == http.StatusUnauthorized {
		return apperr.Wrap(apperr.KindAuthFailure, in.op, err)
	}
	return err
}

func (c *Client) send(ctx context.Context, in call, token string) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in.body != nil {
		raw, err := json.Marshal(in.body)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", in.op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, in.method, c.endpoint(in.path...), body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", in.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", slog.String("op", in.op), slog.String("error", err.Error()))
		return apperr.Wrap(apperr.KindNetworkFailure, in.op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperr.Wrap(apperr.KindNetworkFailure, in.op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reqErr := &RequestError{Op: in.op, Status: resp.StatusCode, Message: backendMessage(raw, resp.StatusCode)}
		c.logger.Debug("backend rejected request",
			slog.String("op", in.op),
			slog.Int("status", resp.StatusCode),
			slog.String("error", reqErr.Message),
		)
		return apperr.Wrap(apperr.KindRequestFailed, in.op, reqErr)
	}

	if in.out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, in.out); err != nil {
		return apperr.Wrap(apperr.KindRequestFailed, in.op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *Client) endpoint(segments ...string) string {
	u := *c.base
	prefix := strings.TrimRight(c.base.Path, "/")
	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		escaped = append(escaped, url.PathEscape(s))
	}
	u.Path = prefix + "/" + strings.Join(segments, "/")
	u.RawPath = prefix + "/" + strings.Join(escaped, "/")
	return u.String()
}

func backendMessage(raw []byte, status int) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	if text := strings.TrimSpace(string(raw)); text != "" && len(text) < 200 && !strings.HasPrefix(text, "{") {
		return text
	}
	return http.StatusText(status)
}
