package client

import (
	"context"
	"net/http"

	"github.com/erazemk/toolshare/internal/model"
)

// Signup creates an account and returns its token.
func (c *Client) Signup(ctx context.Context, form model.SignupForm) (*model.AuthResponse, error) {
	var out model.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/signup/", form, &out, "Signup failed. Please try again."); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*model.AuthResponse, error) {
	body := model.LoginForm{Email: email, Password: password}
	var out model.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login/", body, &out, "Login failed. Please check your credentials."); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout invalidates the client's token on the backend.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/auth/logout/", nil, nil, "Logout failed.")
}

// CurrentUser returns the profile of the authenticated user.
func (c *Client) CurrentUser(ctx context.Context) (*model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodGet, "/auth/user/", nil, &out, "Failed to load your profile."); err != nil {
		return nil, err
	}
	return &out, nil
}
