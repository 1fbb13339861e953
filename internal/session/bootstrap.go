// Package session decides the initial authentication state at startup.
package session

import (
	"context"
	"log/slog"

	"github.com/spendwise/spendwise/internal/model"
	"github.com/spendwise/spendwise/internal/token"
)

// ProfileFetcher is the slice of the API client the bootstrap needs.
type ProfileFetcher interface {
	Profile(ctx context.Context) (model.UserProfile, error)
}

// Bootstrap validates any persisted token by fetching the user profile. It
// returns whether the session is authenticated; a rejected or missing token
// leaves the store cleared.
func Bootstrap(ctx context.Context, tokens token.Store, client ProfileFetcher) bool {
	if tokens.Get() == "" {
		if err := tokens.Clear(); err != nil {
			slog.Warn("failed to clear token store", "error", err)
		}
		return false
	}

	if _, err := client.Profile(ctx); err != nil {
		slog.Warn("stored token failed validation", "error", err)
		if clearErr := tokens.Clear(); clearErr != nil {
			slog.Warn("failed to clear rejected token", "error", clearErr)
		}
		return false
	}

	return true
}
