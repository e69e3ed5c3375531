package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"authcore.org/internal/ids"
)

const refreshTokenBytes = 48

// UserSummary is the public shape of a user returned with a session.
type UserSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email"`
}

// ApplicationSummary is the public shape of the application context,
// including the role the user holds in it.
type ApplicationSummary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
	Role string `json:"role"`
}

// SessionResult is the product of a successful login or refresh.
type SessionResult struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	ExpiresIn    int64              `json:"expires_in"`
	User         UserSummary        `json:"user"`
	Application  ApplicationSummary `json:"application"`
}

// LoginInput are end-user credentials against one application.
type LoginInput struct {
	ApplicationSlug string
	Email           string
	Password        string
}

// Login authenticates the user and issues an access/refresh token pair.
// Preconditions are checked in order: live application, valid credentials
// on an active account, verified email, application membership.
func (s *Service) Login(ctx context.Context, in LoginInput) (SessionResult, error) {
	app, err := s.activeApplication(ctx, in.ApplicationSlug)
	if err != nil {
		return SessionResult{}, err
	}
	user, err := s.store.Users().FindByEmail(ctx, NormalizeEmail(in.Email))
	if err != nil && !errors.Is(err, ErrNotFound) {
		return SessionResult{}, fmt.Errorf("find user: %w", err)
	}
	valid := false
	if user != nil {
		valid = s.passwords.Compare(in.Password, user.PasswordHash)
	} else {
		// Equivalent-cost comparison so a missing account is
		// indistinguishable from a wrong password by timing.
		CompareDummy(s.passwords, in.Password)
	}
	if user == nil || !valid || user.Status == UserStatusSuspended {
		return SessionResult{}, ErrInvalidCredentials
	}
	if !user.Verified() {
		return SessionResult{}, ErrEmailNotVerified
	}
	role, err := s.applicationRole(ctx, user, app)
	if err != nil {
		return SessionResult{}, err
	}
	var res SessionResult
	err = s.store.InTx(ctx, func(tx Store) error {
		res, err = s.issueSession(ctx, tx, user, app, role)
		return err
	})
	if err != nil {
		return SessionResult{}, err
	}
	return res, nil
}

// RefreshInput presents a refresh token for rotation.
type RefreshInput struct {
	ApplicationSlug string
	RefreshToken    string
}

// Refresh rotates a refresh token: the presented token is revoked and a
// fresh pair is issued in the same unit of work. A token rotates exactly
// once; replaying it afterwards fails.
func (s *Service) Refresh(ctx context.Context, in RefreshInput) (SessionResult, error) {
	app, err := s.activeApplication(ctx, in.ApplicationSlug)
	if err != nil {
		return SessionResult{}, err
	}
	stored, err := s.store.RefreshTokens().FindValidByHash(ctx, s.tokens.Hash(in.RefreshToken), s.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return SessionResult{}, ErrInvalidRefreshToken
		}
		return SessionResult{}, fmt.Errorf("find refresh token: %w", err)
	}
	if stored.ApplicationID != app.ID {
		return SessionResult{}, ErrInvalidRefreshToken
	}
	user, err := s.store.Users().FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return SessionResult{}, ErrInvalidCredentials
		}
		return SessionResult{}, fmt.Errorf("find user: %w", err)
	}
	if user.Status != UserStatusActive {
		return SessionResult{}, ErrInvalidCredentials
	}
	role, err := s.applicationRole(ctx, user, app)
	if err != nil {
		return SessionResult{}, err
	}

	var res SessionResult
	err = s.store.InTx(ctx, func(tx Store) error {
		if err := tx.RefreshTokens().Revoke(ctx, stored.ID, s.now().UTC()); err != nil {
			if errors.Is(err, ErrNotFound) {
				// A concurrent rotation won; this caller loses.
				return ErrInvalidRefreshToken
			}
			return fmt.Errorf("revoke refresh token: %w", err)
		}
		res, err = s.issueSession(ctx, tx, user, app, role)
		return err
	})
	if err != nil {
		return SessionResult{}, err
	}
	return res, nil
}

// LogoutInput presents a refresh token for revocation.
type LogoutInput struct {
	ApplicationSlug string
	RefreshToken    string
}

// Logout revokes the matching refresh token. It is an idempotent no-op
// when the application is unavailable or the token does not resolve, so
// the call never leaks token validity.
func (s *Service) Logout(ctx context.Context, in LogoutInput) error {
	app, err := s.store.Applications().FindBySlug(ctx, in.ApplicationSlug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find application: %w", err)
	}
	if app.Status != ApplicationStatusActive {
		return nil
	}
	stored, err := s.store.RefreshTokens().FindValidByHash(ctx, s.tokens.Hash(in.RefreshToken), s.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find refresh token: %w", err)
	}
	if stored.ApplicationID != app.ID {
		return nil
	}
	if err := s.store.RefreshTokens().Revoke(ctx, stored.ID, s.now().UTC()); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

// MeInput identifies the bearer of an access token within an application.
type MeInput struct {
	UserPublicID    string
	ApplicationSlug string
}

// MeResult is the "who am I" response.
type MeResult struct {
	User        UserSummary        `json:"user"`
	Application ApplicationSummary `json:"application"`
}

// Me resolves the authenticated subject. Every failure collapses into the
// same unauthorized error.
func (s *Service) Me(ctx context.Context, in MeInput) (MeResult, error) {
	user, err := s.store.Users().FindByPublicID(ctx, in.UserPublicID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return MeResult{}, ErrUnauthorizedSession
		}
		return MeResult{}, fmt.Errorf("find user: %w", err)
	}
	if user.Status != UserStatusActive {
		return MeResult{}, ErrUnauthorizedSession
	}
	app, err := s.store.Applications().FindBySlug(ctx, in.ApplicationSlug)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return MeResult{}, ErrUnauthorizedSession
		}
		return MeResult{}, fmt.Errorf("find application: %w", err)
	}
	if app.Status != ApplicationStatusActive {
		return MeResult{}, ErrUnauthorizedSession
	}
	role, err := s.applicationRole(ctx, user, app)
	if err != nil {
		if errors.Is(err, ErrUserAccessDenied) {
			return MeResult{}, ErrUnauthorizedSession
		}
		return MeResult{}, err
	}
	return MeResult{
		User:        summarizeUser(user),
		Application: summarizeApplication(app, role),
	}, nil
}

// issueSession mints the signed access token and persists a fresh opaque
// refresh token through the given store view.
func (s *Service) issueSession(ctx context.Context, tx Store, user *User, app *Application, role string) (SessionResult, error) {
	claims := AccessClaims{
		Email:           user.Email,
		Name:            user.Name,
		ApplicationSlug: app.Slug,
		Role:            role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: user.PublicID,
		},
	}
	access, err := s.issuer.Sign(claims, s.accessTTL)
	if err != nil {
		return SessionResult{}, fmt.Errorf("sign access token: %w", err)
	}
	raw, err := randomHex(refreshTokenBytes)
	if err != nil {
		return SessionResult{}, err
	}
	now := s.now().UTC()
	rec := &RefreshToken{
		ID:            ids.New(),
		UserID:        user.ID,
		ApplicationID: app.ID,
		TokenHash:     s.tokens.Hash(raw),
		ExpiresAt:     now.Add(s.refreshTTL),
	}
	if err := tx.RefreshTokens().Create(ctx, rec); err != nil {
		return SessionResult{}, fmt.Errorf("create refresh token: %w", err)
	}
	return SessionResult{
		AccessToken:  access,
		RefreshToken: raw,
		ExpiresIn:    int64(s.accessTTL.Seconds()),
		User:         summarizeUser(user),
		Application:  summarizeApplication(app, role),
	}, nil
}

func summarizeUser(u *User) UserSummary {
	return UserSummary{
		ID:          u.PublicID,
		Name:        u.Name,
		DisplayName: u.DisplayName,
		Email:       u.Email,
	}
}

func summarizeApplication(app *Application, role string) ApplicationSummary {
	return ApplicationSummary{
		ID:   app.PublicID,
		Name: app.Name,
		Slug: app.Slug,
		Role: role,
	}
}
