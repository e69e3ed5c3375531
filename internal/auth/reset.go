package auth

import (
	"context"
	"errors"
	"fmt"

	"authcore.org/internal/ids"
)

const resetTokenBytes = 32

// ForgotPasswordInput requests a reset link for an account.
type ForgotPasswordInput struct {
	ApplicationSlug string
	Email           string
}

// ForgotPassword issues a one-time reset token and mails a link embedding
// it. When the application, the user, or the membership is missing the call
// succeeds without writing anything, so it cannot be used to enumerate
// accounts.
func (s *Service) ForgotPassword(ctx context.Context, in ForgotPasswordInput) error {
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
	user, err := s.store.Users().FindByEmail(ctx, NormalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}
	if _, err := s.store.Memberships().Find(ctx, user.ID, app.ID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("find membership: %w", err)
	}

	raw, err := randomHex(resetTokenBytes)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	link := fmt.Sprintf("%s/reset-password?token=%s&application=%s", s.publicBaseURL, raw, app.Slug)
	return s.store.InTx(ctx, func(tx Store) error {
		resets := tx.PasswordResetTokens()
		if err := resets.InvalidateForUser(ctx, user.ID, app.ID, now); err != nil {
			return fmt.Errorf("invalidate reset tokens: %w", err)
		}
		rec := &PasswordResetToken{
			ID:            ids.New(),
			UserID:        user.ID,
			ApplicationID: app.ID,
			TokenHash:     s.tokens.Hash(raw),
			ExpiresAt:     now.Add(s.resetTTL),
		}
		if err := resets.Create(ctx, rec); err != nil {
			return fmt.Errorf("create reset token: %w", err)
		}
		msg := Message{
			From:    "no-reply",
			To:      []Recipient{{Name: user.Name, Email: user.Email}},
			Subject: "Password recovery",
			HTML:    fmt.Sprintf("<p>Click the link to reset your password: %s</p>", link),
			Text:    fmt.Sprintf("Click the link to reset your password: %s", link),
		}
		if err := s.notifier.Send(ctx, msg); err != nil {
			return fmt.Errorf("send reset link: %w", err)
		}
		return nil
	})
}

// ResetPasswordInput redeems a reset token for a new password.
type ResetPasswordInput struct {
	ApplicationSlug string
	Token           string
	Password        string
}

// ResetPassword consumes the token and updates the password hash in one
// unit of work, so a crash can never leave a redeemable token paired with
// an already-changed password.
func (s *Service) ResetPassword(ctx context.Context, in ResetPasswordInput) error {
	app, err := s.activeApplication(ctx, in.ApplicationSlug)
	if err != nil {
		return err
	}
	stored, err := s.store.PasswordResetTokens().FindValidByHash(ctx, s.tokens.Hash(in.Token), app.ID, s.now().UTC())
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("find reset token: %w", err)
	}
	user, err := s.store.Users().FindByID(ctx, stored.UserID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("find user: %w", err)
	}
	if _, err := s.applicationRole(ctx, user, app); err != nil {
		return err
	}
	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.now().UTC()
	return s.store.InTx(ctx, func(tx Store) error {
		if err := tx.PasswordResetTokens().MarkUsed(ctx, stored.ID, now); err != nil {
			if errors.Is(err, ErrNotFound) {
				return ErrInvalidResetToken
			}
			return fmt.Errorf("mark reset token used: %w", err)
		}
		if err := tx.Users().UpdatePasswordHash(ctx, user.ID, hash); err != nil {
			return fmt.Errorf("update password hash: %w", err)
		}
		return nil
	})
}
