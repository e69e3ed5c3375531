package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ClientCredentials are the API-client credentials presented with a
// request, optionally naming the target application.
type ClientCredentials struct {
	ClientID        string
	ClientSecret    string
	ApplicationSlug string
}

// EnsureClientAccess validates the presented client id and secret and, when
// an application slug is named, that the application is live and the client
// holds a grant for it. It has no side effects. The resolved application is
// returned when a slug was given.
func (s *Service) EnsureClientAccess(ctx context.Context, creds ClientCredentials) (*Application, error) {
	clientID := strings.TrimSpace(creds.ClientID)
	if clientID == "" || creds.ClientSecret == "" {
		CompareDummy(s.passwords, creds.ClientSecret)
		return nil, ErrInvalidClientCredentials
	}
	client, err := s.store.AuthClients().FindByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			CompareDummy(s.passwords, creds.ClientSecret)
			return nil, ErrInvalidClientCredentials
		}
		return nil, fmt.Errorf("find auth client: %w", err)
	}
	if client.Status != ClientStatusActive {
		CompareDummy(s.passwords, creds.ClientSecret)
		return nil, ErrInvalidClientCredentials
	}
	if !s.passwords.Compare(creds.ClientSecret, client.ClientSecretHash) {
		return nil, ErrInvalidClientCredentials
	}

	if strings.TrimSpace(creds.ApplicationSlug) == "" {
		return nil, nil
	}
	app, err := s.activeApplication(ctx, creds.ApplicationSlug)
	if err != nil {
		return nil, err
	}
	ok, err := s.store.AuthClients().HasApplicationAccess(ctx, client.ID, app.ID)
	if err != nil {
		return nil, fmt.Errorf("check client grant: %w", err)
	}
	if !ok {
		return nil, ErrClientAccessDenied
	}
	return app, nil
}
