package client

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/erazemk/toolshare/internal/model"
)

// Tools returns one page of the community's available tools. Page 0 or 1
// is the first page.
func (c *Client) Tools(ctx context.Context, page int) (*model.Page[model.Tool], error) {
	var out model.Page[model.Tool]
	if err := c.do(ctx, http.MethodGet, "/tools/"+pageQuery(page), nil, &out, "Failed to load tools."); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyTools returns every tool owned by the caller.
func (c *Client) MyTools(ctx context.Context) ([]model.Tool, error) {
	var out model.Page[model.Tool]
	if err := c.do(ctx, http.MethodGet, "/tools/my-tools/", nil, &out, "Failed to load your tools."); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// CreateTool lists a new tool. img may be nil.
func (c *Client) CreateTool(ctx context.Context, form model.ToolForm, img *Image) (*model.Tool, error) {
	fields := [][2]string{
		{"name", form.Name},
		{"category", form.Category},
		{"condition", form.Condition},
	}
	var out model.Tool
	if err := c.doMultipart(ctx, http.MethodPost, "/tools/", fields, img, &out, "Failed to add tool. Please try again."); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTool replaces a tool's fields. img may be nil to keep the current
// image.
func (c *Client) UpdateTool(ctx context.Context, id int64, form model.ToolForm, img *Image) (*model.Tool, error) {
	fields := [][2]string{
		{"name", form.Name},
		{"category", form.Category},
		{"condition", form.Condition},
		{"is_available", strconv.FormatBool(form.IsAvailable)},
	}
	var out model.Tool
	if err := c.doMultipart(ctx, http.MethodPut, fmt.Sprintf("/tools/%d/", id), fields, img, &out, "Failed to update tool."); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteTool removes one of the caller's tools.
func (c *Client) DeleteTool(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/tools/%d/", id), nil, nil, "Failed to delete tool.")
}

// ToolStats returns tool counters for the dashboard.
func (c *Client) ToolStats(ctx context.Context) (*model.Stats, error) {
	var out model.Stats
	if err := c.do(ctx, http.MethodGet, "/tools/stats/", nil, &out, "Failed to load tool statistics."); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindTool looks a tool up in the community list, walking pages until it is
// found or the list ends. It returns ErrNotFound when the tool is absent.
func (c *Client) FindTool(ctx context.Context, id int64) (*model.Tool, error) {
	for page := 1; ; page++ {
		p, err := c.Tools(ctx, page)
		if err != nil {
			return nil, err
		}
		for i := range p.Results {
			if p.Results[i].ID == id {
				return &p.Results[i], nil
			}
		}
		if !p.HasNext() {
			return nil, &APIError{Status: http.StatusNotFound, Message: "Tool not found"}
		}
	}
}
