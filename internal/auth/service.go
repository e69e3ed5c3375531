package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const (
	defaultAccessTTL       = 15 * time.Minute
	defaultRefreshTTL      = 30 * 24 * time.Hour
	defaultResetTTL        = 30 * time.Minute
	defaultVerificationTTL = 10 * time.Minute
	defaultPublicBaseURL   = "http://localhost:3001"
)

// Service orchestrates the credential-lifecycle workflows against the
// Store. All collaborators are injected; Service holds no mutable state
// beyond configuration fixed at construction time.
type Service struct {
	store     Store
	passwords PasswordHasher
	tokens    TokenHasher
	issuer    SessionIssuer
	notifier  Notifier
	now       func() time.Time

	accessTTL       time.Duration
	refreshTTL      time.Duration
	resetTTL        time.Duration
	verificationTTL time.Duration
	publicBaseURL   string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service) error

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.accessTTL = ttl
		}
		return nil
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.refreshTTL = ttl
		}
		return nil
	}
}

// WithResetTTL configures password-reset token lifetime.
func WithResetTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.resetTTL = ttl
		}
		return nil
	}
}

// WithVerificationTTL configures email verification code lifetime.
func WithVerificationTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) error {
		if ttl > 0 {
			s.verificationTTL = ttl
		}
		return nil
	}
}

// WithPublicBaseURL sets the public URL embedded into reset links.
func WithPublicBaseURL(u string) ServiceOption {
	return func(s *Service) error {
		u = strings.TrimRight(strings.TrimSpace(u), "/")
		if u != "" {
			s.publicBaseURL = u
		}
		return nil
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// NewService constructs the Service with its collaborators.
func NewService(store Store, passwords PasswordHasher, tokens TokenHasher, issuer SessionIssuer, notifier Notifier, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if passwords == nil {
		return nil, errors.New("auth: password hasher is required")
	}
	if tokens == nil {
		return nil, errors.New("auth: token hasher is required")
	}
	if issuer == nil {
		return nil, errors.New("auth: session issuer is required")
	}
	if notifier == nil {
		return nil, errors.New("auth: notifier is required")
	}
	svc := &Service{
		store:           store,
		passwords:       passwords,
		tokens:          tokens,
		issuer:          issuer,
		notifier:        notifier,
		now:             time.Now,
		accessTTL:       defaultAccessTTL,
		refreshTTL:      defaultRefreshTTL,
		resetTTL:        defaultResetTTL,
		verificationTTL: defaultVerificationTTL,
		publicBaseURL:   defaultPublicBaseURL,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// Issuer exposes the session issuer so the boundary layer can verify
// bearer tokens.
func (s *Service) Issuer() SessionIssuer { return s.issuer }

// NormalizeEmail lowercases and trims an address for comparison and
// storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// activeApplication resolves a slug to an active application or fails with
// the application-unavailable condition.
func (s *Service) activeApplication(ctx context.Context, slug string) (*Application, error) {
	app, err := s.store.Applications().FindBySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrApplicationUnavailable
		}
		return nil, fmt.Errorf("find application: %w", err)
	}
	if app.Status != ApplicationStatusActive {
		return nil, ErrApplicationUnavailable
	}
	return app, nil
}

// applicationRole resolves the role a user holds within an application.
// Root users pass without a membership row and act as admins.
func (s *Service) applicationRole(ctx context.Context, user *User, app *Application) (string, error) {
	m, err := s.store.Memberships().Find(ctx, user.ID, app.ID)
	if err == nil {
		return m.Role, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return "", fmt.Errorf("find membership: %w", err)
	}
	if user.Role == RoleRoot {
		return RoleAdmin, nil
	}
	return "", ErrUserAccessDenied
}

// randomHex returns n random bytes, hex encoded.
func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// randomDigits returns a zero-padded numeric code of the given length.
func randomDigits(length int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return fmt.Sprintf("%0*d", length, n), nil
}
