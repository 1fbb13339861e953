package main

import (
	"context"
	"fmt"

	"github.com/spf13/viper"

	"github.com/spendwise/spendwise/internal/api"
	"github.com/spendwise/spendwise/internal/config"
	"github.com/spendwise/spendwise/internal/session"
	"github.com/spendwise/spendwise/internal/store"
	"github.com/spendwise/spendwise/internal/token"
)

// buildClient wires the token store and API client from configuration.
func buildClient() (*api.Client, token.Store, error) {
	tokenPath := config.ExpandPath(viper.GetString("token_file"))
	if tokenPath == "" {
		var err error
		tokenPath, err = token.DefaultPath()
		if err != nil {
			return nil, nil, fmt.Errorf("failed to resolve token path: %w", err)
		}
	}

	tokens, err := token.NewFileStore(tokenPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open token store: %w", err)
	}

	return api.NewClient(viper.GetString("api.base_url"), tokens), tokens, nil
}

// buildStore runs the auth bootstrap and returns a ready store. It fails when
// no valid session exists, pointing the user at login.
func buildStore(ctx context.Context) (*store.Store, *api.Client, error) {
	client, tokens, err := buildClient()
	if err != nil {
		return nil, nil, err
	}

	st := store.New(client)
	authenticated := session.Bootstrap(ctx, tokens, client)
	st.SetAuthenticated(authenticated)
	if !authenticated {
		return nil, nil, fmt.Errorf("not logged in; run: spendwise login")
	}
	return st, client, nil
}
