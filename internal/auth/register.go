package auth

import (
	"context"
	"errors"
	"fmt"

	"authcore.org/internal/ids"
)

// Registration outcomes.
const (
	RegistrationVerificationRequired = "verification_required"
	RegistrationCreated              = "created"
)

// RegisterInput is the registration payload for one application.
type RegisterInput struct {
	ApplicationSlug string
	Name            string
	DisplayName     string
	Email           string
	Password        string
	Role            string
}

// RegisterResult reports how a registration concluded.
type RegisterResult struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Register runs the per-email registration state machine:
// absent -> pending -> active. New and still-pending accounts get a fresh
// verification code; an already verified account with a matching password
// is attached to the application idempotently.
func (s *Service) Register(ctx context.Context, in RegisterInput) (RegisterResult, error) {
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	if role != RoleUser && role != RoleAdmin {
		return RegisterResult{}, NewError(KindUnprocessable, "invalid membership role")
	}
	app, err := s.activeApplication(ctx, in.ApplicationSlug)
	if err != nil {
		return RegisterResult{}, err
	}

	email := NormalizeEmail(in.Email)
	existing, err := s.store.Users().FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return RegisterResult{}, fmt.Errorf("find user: %w", err)
	}

	verificationRequired := RegisterResult{
		Status:  RegistrationVerificationRequired,
		Message: "verification code sent to email",
	}

	if existing == nil {
		hash, err := s.passwords.Hash(in.Password)
		if err != nil {
			return RegisterResult{}, fmt.Errorf("hash password: %w", err)
		}
		user := &User{
			ID:           ids.New(),
			PublicID:     ids.NewPublic(),
			Name:         in.Name,
			DisplayName:  in.DisplayName,
			Email:        email,
			PasswordHash: hash,
			Status:       UserStatusPending,
			Role:         RoleUser,
		}
		err = s.store.InTx(ctx, func(tx Store) error {
			if err := tx.Users().Create(ctx, user); err != nil {
				if errors.Is(err, ErrConflict) {
					return ErrEmailTaken
				}
				return fmt.Errorf("create user: %w", err)
			}
			return s.issueVerificationCode(ctx, tx, user, app, role)
		})
		if err != nil {
			return RegisterResult{}, err
		}
		return verificationRequired, nil
	}

	if existing.Status == UserStatusSuspended {
		return RegisterResult{}, ErrUserSuspended
	}
	if !s.passwords.Compare(in.Password, existing.PasswordHash) {
		// Re-registering an existing email with a different password is
		// rejected so the call cannot be used to take over or probe
		// accounts.
		return RegisterResult{}, ErrEmailTaken
	}

	if !existing.Verified() {
		hash, err := s.passwords.Hash(in.Password)
		if err != nil {
			return RegisterResult{}, fmt.Errorf("hash password: %w", err)
		}
		err = s.store.InTx(ctx, func(tx Store) error {
			if err := tx.Users().UpdatePendingProfile(ctx, existing.ID, in.Name, in.DisplayName, hash); err != nil {
				return fmt.Errorf("update pending profile: %w", err)
			}
			existing.Name = in.Name
			return s.issueVerificationCode(ctx, tx, existing, app, role)
		})
		if err != nil {
			return RegisterResult{}, err
		}
		return verificationRequired, nil
	}

	if err := s.store.Memberships().Upsert(ctx, Membership{UserID: existing.ID, ApplicationID: app.ID, Role: role}); err != nil {
		return RegisterResult{}, fmt.Errorf("upsert membership: %w", err)
	}
	return RegisterResult{Status: RegistrationCreated, Message: "account created successfully"}, nil
}

// issueVerificationCode retires any outstanding code for the user within
// the application, persists a fresh 6-digit code, and mails it. Runs
// inside the caller's unit of work so a failed send aborts the write.
func (s *Service) issueVerificationCode(ctx context.Context, tx Store, user *User, app *Application, role string) error {
	code, err := randomDigits(6)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	codes := tx.EmailVerificationCodes()
	if err := codes.InvalidateForUser(ctx, user.ID, app.ID, now); err != nil {
		return fmt.Errorf("invalidate verification codes: %w", err)
	}
	rec := &EmailVerificationCode{
		ID:            ids.New(),
		UserID:        user.ID,
		ApplicationID: app.ID,
		Role:          role,
		CodeHash:      s.tokens.Hash(code),
		ExpiresAt:     now.Add(s.verificationTTL),
	}
	if err := codes.Create(ctx, rec); err != nil {
		return fmt.Errorf("create verification code: %w", err)
	}
	msg := Message{
		From:    "no-reply",
		To:      []Recipient{{Name: user.Name, Email: user.Email}},
		Subject: "Your verification code",
		HTML:    fmt.Sprintf("<p>Your verification code is: <b>%s</b></p>", code),
		Text:    fmt.Sprintf("Your verification code is: %s", code),
	}
	if err := s.notifier.Send(ctx, msg); err != nil {
		return fmt.Errorf("send verification code: %w", err)
	}
	return nil
}

// VerifyEmailInput carries an emailed 6-digit code back to the service.
type VerifyEmailInput struct {
	ApplicationSlug string
	Email           string
	Code            string
}

// VerifyEmail consumes a verification code, activates the account, and
// creates the membership captured at registration time. Failures are the
// same generic error whether the user, the code, or the match is missing.
func (s *Service) VerifyEmail(ctx context.Context, in VerifyEmailInput) error {
	app, err := s.activeApplication(ctx, in.ApplicationSlug)
	if err != nil {
		return err
	}
	user, err := s.store.Users().FindByEmail(ctx, NormalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidVerificationCode
		}
		return fmt.Errorf("find user: %w", err)
	}
	code, err := s.store.EmailVerificationCodes().FindValidByHash(ctx, s.tokens.Hash(in.Code), app.ID, s.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidVerificationCode
		}
		return fmt.Errorf("find verification code: %w", err)
	}
	if code.UserID != user.ID {
		return ErrInvalidVerificationCode
	}

	now := s.now().UTC()
	return s.store.InTx(ctx, func(tx Store) error {
		if err := tx.EmailVerificationCodes().MarkUsed(ctx, code.ID, now); err != nil {
			if errors.Is(err, ErrNotFound) {
				// Consumed concurrently.
				return ErrInvalidVerificationCode
			}
			return fmt.Errorf("mark code used: %w", err)
		}
		if err := tx.Users().Activate(ctx, user.ID, now); err != nil {
			return fmt.Errorf("activate user: %w", err)
		}
		m := Membership{UserID: user.ID, ApplicationID: app.ID, Role: code.Role}
		if err := tx.Memberships().Upsert(ctx, m); err != nil {
			return fmt.Errorf("upsert membership: %w", err)
		}
		return nil
	})
}
