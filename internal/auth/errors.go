package auth

import "errors"

// Kind classifies a failure so the boundary layer can map it to a status
// code without pattern-matching message text.
type Kind string

const (
	KindUnauthorized  Kind = "unauthorized"
	KindForbidden     Kind = "forbidden"
	KindNotFound      Kind = "not_found"
	KindConflict      Kind = "conflict"
	KindUnprocessable Kind = "unprocessable"
	KindInternal      Kind = "internal"
)

// Error is a typed workflow failure carrying its kind alongside the
// human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// NewError builds a typed failure.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf extracts the failure kind from an error chain. Errors that do not
// carry a kind classify as internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Store-level sentinels. Workflows translate them into kinded failures;
// they never cross the service boundary directly.
var (
	ErrNotFound = errors.New("auth: not found")
	ErrConflict = errors.New("auth: already exists")
)

// Shared workflow failures.
var (
	ErrInvalidClientCredentials = NewError(KindUnauthorized, "invalid client credentials")
	ErrInvalidCredentials       = NewError(KindUnauthorized, "invalid credentials")
	ErrInvalidRefreshToken      = NewError(KindUnauthorized, "invalid refresh token")
	ErrUnauthorizedSession      = NewError(KindUnauthorized, "unauthorized")
	ErrClientAccessDenied       = NewError(KindForbidden, "client has no access to this application")
	ErrUserAccessDenied         = NewError(KindForbidden, "user has no access to this application")
	ErrApplicationUnavailable   = NewError(KindUnprocessable, "application unavailable")
	ErrUserSuspended            = NewError(KindUnprocessable, "user is suspended")
	ErrEmailNotVerified         = NewError(KindUnprocessable, "email not verified")
	ErrEmailTaken               = NewError(KindUnprocessable, "email already registered with another password")
	ErrInvalidVerificationCode  = NewError(KindUnprocessable, "invalid verification code")
	ErrInvalidResetToken        = NewError(KindUnprocessable, "invalid or expired token")
)
