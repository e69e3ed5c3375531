package auth

import "time"

const (
	UserStatusPending   = "pending"
	UserStatusActive    = "active"
	UserStatusSuspended = "suspended"

	ApplicationStatusActive    = "active"
	ApplicationStatusSuspended = "suspended"

	ClientStatusActive  = "active"
	ClientStatusRevoked = "revoked"
)

const (
	// RoleUser and RoleAdmin are per-application membership roles.
	RoleUser  = "user"
	RoleAdmin = "admin"
	// RoleRoot is a global user role granting implicit admin access to
	// every application without an explicit membership row.
	RoleRoot = "root"
)

// User represents an end-user account. Accounts start pending and become
// active once the email is verified; they are suspended, never deleted.
type User struct {
	ID              string
	PublicID        string
	Name            string
	DisplayName     string
	Email           string
	PasswordHash    string
	Status          string
	Role            string
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Verified reports whether the account completed email verification.
func (u *User) Verified() bool { return u.EmailVerifiedAt != nil }

// Application is a named tenant consuming the auth service. The slug is
// normalized at creation time and immutable afterwards.
type Application struct {
	ID        string
	PublicID  string
	Name      string
	Slug      string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AuthClient is a machine credential (client id/secret) authorized to call
// the API on behalf of one or more applications. The secret is stored only
// as a hash.
type AuthClient struct {
	ID               string
	PublicID         string
	Name             string
	ClientID         string
	ClientSecretHash string
	Status           string
	CreatedAt        time.Time
}

// Membership binds a user to an application with a role. Unique per
// (user, application); granting twice upserts the role.
type Membership struct {
	UserID        string
	ApplicationID string
	Role          string
	CreatedAt     time.Time
}

// ClientApplicationAccess grants an auth client access to one application.
// Absence of a row means no access.
type ClientApplicationAccess struct {
	AuthClientID  string
	ApplicationID string
	CreatedAt     time.Time
}

// RefreshToken is one active session credential, stored only as the hash of
// its plaintext. Revoked on logout or rotation and never usable again.
type RefreshToken struct {
	ID            string
	UserID        string
	ApplicationID string
	TokenHash     string
	ExpiresAt     time.Time
	RevokedAt     *time.Time
	CreatedAt     time.Time
}

// PasswordResetToken is a one-time password-change credential.
type PasswordResetToken struct {
	ID            string
	UserID        string
	ApplicationID string
	TokenHash     string
	ExpiresAt     time.Time
	UsedAt        *time.Time
	CreatedAt     time.Time
}

// EmailVerificationCode is a one-time registration-completion credential.
// The role captured at registration time is applied to the membership when
// the code is redeemed.
type EmailVerificationCode struct {
	ID            string
	UserID        string
	ApplicationID string
	Role          string
	CodeHash      string
	ExpiresAt     time.Time
	UsedAt        *time.Time
	CreatedAt     time.Time
}
