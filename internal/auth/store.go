package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
// Implementations return ErrNotFound for missing rows and ErrConflict for
// unique-constraint violations.
type Store interface {
	Users() UserStore
	Applications() ApplicationStore
	AuthClients() AuthClientStore
	Memberships() MembershipStore
	RefreshTokens() RefreshTokenStore
	PasswordResetTokens() PasswordResetTokenStore
	EmailVerificationCodes() EmailVerificationCodeStore

	// InTx runs fn against a store view bound to a single transaction.
	// Either every write made through the view commits or none do.
	InTx(ctx context.Context, fn func(Store) error) error
}

// UserStore manages user accounts.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByPublicID(ctx context.Context, publicID string) (*User, error)
	// UpdatePendingProfile refreshes the profile fields and password hash
	// of a not-yet-verified account on repeated registration.
	UpdatePendingProfile(ctx context.Context, userID, name, displayName, passwordHash string) error
	UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error
	// Activate marks the account verified and active.
	Activate(ctx context.Context, userID string, at time.Time) error
}

// ApplicationStore manages tenant applications.
type ApplicationStore interface {
	Create(ctx context.Context, app *Application) error
	FindBySlug(ctx context.Context, slug string) (*Application, error)
}

// AuthClientStore manages API client credentials and their grants.
type AuthClientStore interface {
	Create(ctx context.Context, client *AuthClient) error
	FindByClientID(ctx context.Context, clientID string) (*AuthClient, error)
	GrantApplicationAccess(ctx context.Context, authClientID, applicationID string) error
	HasApplicationAccess(ctx context.Context, authClientID, applicationID string) (bool, error)
}

// MembershipStore manages user-application bindings.
type MembershipStore interface {
	// Upsert creates the membership or updates its role; granting twice is
	// idempotent, never duplicative.
	Upsert(ctx context.Context, m Membership) error
	Find(ctx context.Context, userID, applicationID string) (*Membership, error)
}

// RefreshTokenStore manages the refresh token lifecycle.
type RefreshTokenStore interface {
	Create(ctx context.Context, tok *RefreshToken) error
	// FindValidByHash returns the unrevoked, unexpired token matching the
	// hash, or ErrNotFound.
	FindValidByHash(ctx context.Context, tokenHash string, now time.Time) (*RefreshToken, error)
	// Revoke marks the token revoked. Returns ErrNotFound when the token
	// is already revoked, so concurrent rotations observe exactly one
	// winner.
	Revoke(ctx context.Context, id string, at time.Time) error
}

// PasswordResetTokenStore manages one-time password-reset tokens.
type PasswordResetTokenStore interface {
	Create(ctx context.Context, tok *PasswordResetToken) error
	FindValidByHash(ctx context.Context, tokenHash, applicationID string, now time.Time) (*PasswordResetToken, error)
	// MarkUsed consumes the token. Returns ErrNotFound when already used.
	MarkUsed(ctx context.Context, id string, at time.Time) error
	// InvalidateForUser retires every outstanding unused token for the
	// user within the application.
	InvalidateForUser(ctx context.Context, userID, applicationID string, at time.Time) error
}

// EmailVerificationCodeStore manages one-time verification codes.
type EmailVerificationCodeStore interface {
	Create(ctx context.Context, code *EmailVerificationCode) error
	FindValidByHash(ctx context.Context, codeHash, applicationID string, now time.Time) (*EmailVerificationCode, error)
	MarkUsed(ctx context.Context, id string, at time.Time) error
	InvalidateForUser(ctx context.Context, userID, applicationID string, at time.Time) error
}
