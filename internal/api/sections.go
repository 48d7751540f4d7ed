package api

import (
	"context"
	"net/http"

	"github.com/sandeepkv93/tasktree/internal/model"
)

type sectionResponse struct {
	Section model.Section `json:"section"`
}

func (c *Client) FetchSections(ctx context.Context, userID string) ([]model.Section, error) {
	var out struct {
		Sections []model.Section `json:"sections"`
	}
	err := c.do(ctx, call{op: "fetch sections", method: http.MethodGet, path: []string{"sections", userID}, auth: true, out: &out})
	return out.Sections, err
}

func (c *Client) CreateSection(ctx context.Context, name string) (model.Section, error) {
	var out sectionResponse
	err := c.do(ctx, call{
		op:     "create section",
		method: http.MethodPost,
		path:   []string{"sections"},
		body:   map[string]string{"name": name},
		auth:   true,
		out:    &out,
	})
	return out.Section, err
}

func (c *Client) DeleteSection(ctx context.Context, sectionID string) error {
	return c.do(ctx, call{op: "delete section", method: http.MethodDelete, path: []string{"sections", sectionID}, auth: true})
}

func (c *Client) TogglePublicView(ctx context.Context, sectionID string) (model.Section, error) {
	var out sectionResponse
	err := c.do(ctx, call{
		op:     "toggle public view",
		method: http.MethodPut,
		path:   []string{"sections", sectionID, "toggle-public-view"},
		auth:   true,
		out:    &out,
	})
	return out.Section, err
}

func (c *Client) ShareSection(ctx context.Context, sectionID string) (model.Share, error) {
	var out model.Share
	err := c.do(ctx, call{op: "share section", method: http.MethodPost, path: []string{"sections", sectionID, "share"}, auth: true, out: &out})
	return out, err
}

// FetchSharedSection reads a publicly shared section; no credentials are sent.
func (c *Client) FetchSharedSection(ctx context.Context, shareToken string) (model.Section, error) {
	var out sectionResponse
	err := c.do(ctx, call{op: "fetch shared section", method: http.MethodGet, path: []string{"sections", "shared", shareToken}, out: &out})
	return out.Section, err
}
