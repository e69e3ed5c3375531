package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"authcore.org/internal/ids"
)

var (
	slugStrip    = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces   = regexp.MustCompile(`\s+`)
	slugCollapse = regexp.MustCompile(`-+`)
)

// Slugify normalizes a display name into a URL-safe application slug.
func Slugify(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	value = slugStrip.ReplaceAllString(value, "")
	value = slugSpaces.ReplaceAllString(value, "-")
	value = slugCollapse.ReplaceAllString(value, "-")
	return strings.Trim(value, "-")
}

// CreateApplicationInput names a new tenant. Slug is derived from the name
// when omitted.
type CreateApplicationInput struct {
	Name string
	Slug string
}

// CreateApplication provisions an active application with a unique slug.
func (s *Service) CreateApplication(ctx context.Context, in CreateApplicationInput) (*Application, error) {
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		slug = Slugify(in.Name)
	}
	if slug == "" {
		return nil, NewError(KindUnprocessable, "invalid application slug")
	}
	if _, err := s.store.Applications().FindBySlug(ctx, slug); err == nil {
		return nil, NewError(KindConflict, "application slug already exists")
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("find application: %w", err)
	}
	app := &Application{
		ID:       ids.New(),
		PublicID: ids.NewPublic(),
		Name:     strings.TrimSpace(in.Name),
		Slug:     slug,
		Status:   ApplicationStatusActive,
	}
	if err := s.store.Applications().Create(ctx, app); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, NewError(KindConflict, "application slug already exists")
		}
		return nil, fmt.Errorf("create application: %w", err)
	}
	return app, nil
}

// CreateAuthClientInput names a new API client. Client id and secret are
// generated when omitted.
type CreateAuthClientInput struct {
	Name         string
	ClientID     string
	ClientSecret string
}

// CreateAuthClientResult carries the plaintext secret exactly once; it is
// never retrievable again.
type CreateAuthClientResult struct {
	PublicID     string `json:"id"`
	Name         string `json:"name"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
}

// CreateAuthClient provisions an active API client with a hashed secret.
func (s *Service) CreateAuthClient(ctx context.Context, in CreateAuthClientInput) (CreateAuthClientResult, error) {
	clientID := strings.TrimSpace(in.ClientID)
	if clientID == "" {
		id, err := randomClientID()
		if err != nil {
			return CreateAuthClientResult{}, err
		}
		clientID = id
	}
	secret := in.ClientSecret
	if secret == "" {
		sec, err := randomClientSecret()
		if err != nil {
			return CreateAuthClientResult{}, err
		}
		secret = sec
	}
	if _, err := s.store.AuthClients().FindByClientID(ctx, clientID); err == nil {
		return CreateAuthClientResult{}, NewError(KindConflict, "client id already exists")
	} else if !errors.Is(err, ErrNotFound) {
		return CreateAuthClientResult{}, fmt.Errorf("find auth client: %w", err)
	}
	hash, err := s.passwords.Hash(secret)
	if err != nil {
		return CreateAuthClientResult{}, fmt.Errorf("hash client secret: %w", err)
	}
	client := &AuthClient{
		ID:               ids.New(),
		PublicID:         ids.NewPublic(),
		Name:             strings.TrimSpace(in.Name),
		ClientID:         clientID,
		ClientSecretHash: hash,
		Status:           ClientStatusActive,
	}
	if err := s.store.AuthClients().Create(ctx, client); err != nil {
		if errors.Is(err, ErrConflict) {
			return CreateAuthClientResult{}, NewError(KindConflict, "client id already exists")
		}
		return CreateAuthClientResult{}, fmt.Errorf("create auth client: %w", err)
	}
	return CreateAuthClientResult{
		PublicID:     client.PublicID,
		Name:         client.Name,
		ClientID:     client.ClientID,
		ClientSecret: secret,
		Status:       client.Status,
	}, nil
}

// GrantClientAccess grants an API client access to an application. The
// grant is an idempotent upsert.
func (s *Service) GrantClientAccess(ctx context.Context, clientID, applicationSlug string) error {
	client, err := s.store.AuthClients().FindByClientID(ctx, strings.TrimSpace(clientID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewError(KindNotFound, "client not found")
		}
		return fmt.Errorf("find auth client: %w", err)
	}
	app, err := s.store.Applications().FindBySlug(ctx, strings.TrimSpace(applicationSlug))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewError(KindNotFound, "application not found")
		}
		return fmt.Errorf("find application: %w", err)
	}
	if err := s.store.AuthClients().GrantApplicationAccess(ctx, client.ID, app.ID); err != nil {
		return fmt.Errorf("grant client access: %w", err)
	}
	return nil
}

// GrantUserAccess grants a user membership in an application with the
// given role (default user). Idempotent upsert.
func (s *Service) GrantUserAccess(ctx context.Context, userPublicID, applicationSlug, role string) error {
	if role == "" {
		role = RoleUser
	}
	if role != RoleUser && role != RoleAdmin {
		return NewError(KindUnprocessable, "invalid membership role")
	}
	user, err := s.store.Users().FindByPublicID(ctx, strings.TrimSpace(userPublicID))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewError(KindNotFound, "user not found")
		}
		return fmt.Errorf("find user: %w", err)
	}
	app, err := s.store.Applications().FindBySlug(ctx, strings.TrimSpace(applicationSlug))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return NewError(KindNotFound, "application not found")
		}
		return fmt.Errorf("find application: %w", err)
	}
	m := Membership{UserID: user.ID, ApplicationID: app.ID, Role: role}
	if err := s.store.Memberships().Upsert(ctx, m); err != nil {
		return fmt.Errorf("upsert membership: %w", err)
	}
	return nil
}

func randomClientID() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return "cl_" + hex.EncodeToString(buf), nil
}

func randomClientSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return "cs_" + base64.RawURLEncoding.EncodeToString(buf), nil
}
