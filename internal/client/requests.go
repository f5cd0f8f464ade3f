package client

import (
	"context"
	"fmt"
	"net/http"

	"github.com/erazemk/toolshare/internal/model"
)

// MyRequests returns one page of the caller's outgoing borrow requests.
func (c *Client) MyRequests(ctx context.Context, page int) (*model.Page[model.BorrowRequest], error) {
	var out model.Page[model.BorrowRequest]
	if err := c.do(ctx, http.MethodGet, "/requests/"+pageQuery(page), nil, &out, "Failed to load your requests."); err != nil {
		return nil, err
	}
	return &out, nil
}

// IncomingRequests returns one page of requests against the caller's tools.
func (c *Client) IncomingRequests(ctx context.Context, page int) (*model.Page[model.BorrowRequest], error) {
	var out model.Page[model.BorrowRequest]
	if err := c.do(ctx, http.MethodGet, "/requests/incoming/"+pageQuery(page), nil, &out, "Failed to load incoming requests."); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRequest submits a borrow request.
func (c *Client) CreateRequest(ctx context.Context, form model.BorrowForm) (*model.BorrowRequest, error) {
	var out model.BorrowRequest
	if err := c.do(ctx, http.MethodPost, "/requests/", form, &out, "Failed to submit request. Please try again."); err != nil {
		return nil, err
	}
	return &out, nil
}

// Approve moves a pending request to approved.
func (c *Client) Approve(ctx context.Context, id int64) (*model.ActionResponse, error) {
	return c.act(ctx, id, model.ActionApprove, "Failed to approve request")
}

// Reject moves a pending request to rejected.
func (c *Client) Reject(ctx context.Context, id int64) (*model.ActionResponse, error) {
	return c.act(ctx, id, model.ActionReject, "Failed to reject request")
}

// MarkReturned moves an approved request to returned.
func (c *Client) MarkReturned(ctx context.Context, id int64) (*model.ActionResponse, error) {
	return c.act(ctx, id, model.ActionReturned, "Failed to mark as returned")
}

// Act performs an owner action by name.
func (c *Client) Act(ctx context.Context, id int64, action string) (*model.ActionResponse, error) {
	switch action {
	case model.ActionApprove:
		return c.Approve(ctx, id)
	case model.ActionReject:
		return c.Reject(ctx, id)
	case model.ActionReturned:
		return c.MarkReturned(ctx, id)
	default:
		return nil, fmt.Errorf("unknown request action %q", action)
	}
}

func (c *Client) act(ctx context.Context, id int64, action, fallback string) (*model.ActionResponse, error) {
	var out model.ActionResponse
	path := fmt.Sprintf("/requests/%d/%s/", id, action)
	if err := c.do(ctx, http.MethodPost, path, nil, &out, fallback); err != nil {
		return nil, err
	}
	return &out, nil
}

// RequestStats returns request counters for the dashboard.
func (c *Client) RequestStats(ctx context.Context) (*model.Stats, error) {
	var out model.Stats
	if err := c.do(ctx, http.MethodGet, "/requests/stats/", nil, &out, "Failed to load request statistics."); err != nil {
		return nil, err
	}
	return &out, nil
}

// Notifications returns the caller's unread counters.
func (c *Client) Notifications(ctx context.Context) (model.NotificationData, error) {
	var out model.NotificationData
	err := c.do(ctx, http.MethodGet, "/requests/notifications/", nil, &out, "Failed to load notifications.")
	return out, err
}

// MarkNotificationsRead resets the caller's unread counters on the backend.
func (c *Client) MarkNotificationsRead(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/requests/notifications/read/", nil, nil, "Failed to mark notifications as read.")
}

// BorrowedTools returns every request the caller made as a borrower.
func (c *Client) BorrowedTools(ctx context.Context) ([]model.BorrowRequest, error) {
	var out model.Page[model.BorrowRequest]
	if err := c.do(ctx, http.MethodGet, "/requests/borrowed/", nil, &out, "Failed to load borrowed tools."); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// LentTools returns every request made against the caller's tools.
func (c *Client) LentTools(ctx context.Context) ([]model.BorrowRequest, error) {
	var out model.Page[model.BorrowRequest]
	if err := c.do(ctx, http.MethodGet, "/requests/lent/", nil, &out, "Failed to load lent tools."); err != nil {
		return nil, err
	}
	return out.Results, nil
}
