package api

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spendwise/spendwise/internal/model"
)

// tokenResponse is the body of every auth call that issues a token.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

// Login exchanges credentials for an access token and stores it.
func (c *Client) Login(ctx context.Context, email, password string) error {
	var resp tokenResponse
	payload := map[string]string{"email": email, "password": password}
	if err := c.postJSON(ctx, "/auth/login", payload, &resp); err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	if err := c.tokens.Set(resp.AccessToken); err != nil {
		return fmt.Errorf("login succeeded but token could not be stored: %w", err)
	}
	return nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, email, password string) error {
	payload := map[string]string{"email": email, "password": password}
	if err := c.postJSON(ctx, "/auth/register", payload, nil); err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return nil
}

// ForgotPassword requests a password reset code for the given address.
func (c *Client) ForgotPassword(ctx context.Context, email string) error {
	payload := map[string]string{"email": email}
	if err := c.postJSON(ctx, "/auth/forgot-password", payload, nil); err != nil {
		return fmt.Errorf("failed to request password reset: %w", err)
	}
	return nil
}

// RestorePassword completes the reset flow with the emailed code.
func (c *Client) RestorePassword(ctx context.Context, email, code, password string) error {
	payload := map[string]string{"email": email, "code": code, "password": password}
	if err := c.postJSON(ctx, "/auth/restore-password", payload, nil); err != nil {
		return fmt.Errorf("failed to restore password: %w", err)
	}
	return nil
}

// Logout ends the server-side session. The local token is cleared on every
// exit path: the session must end locally whatever the server says.
func (c *Client) Logout(ctx context.Context) error {
	defer func() {
		if err := c.tokens.Clear(); err != nil {
			slog.Warn("failed to clear stored token", "error", err)
		}
	}()
	if err := c.postJSON(ctx, "/auth/logout", nil, nil); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}
	return nil
}

// Profile fetches the authenticated user's profile.
func (c *Client) Profile(ctx context.Context) (model.UserProfile, error) {
	var profile model.UserProfile
	if err := c.get(ctx, "/users/me", nil, &profile); err != nil {
		return model.UserProfile{}, fmt.Errorf("failed to fetch profile: %w", err)
	}
	return profile, nil
}
