package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"authcore.org/internal/auth"
)

type refreshTokenStore struct {
	q querier
}

func (s refreshTokenStore) Create(ctx context.Context, tok *auth.RefreshToken) error {
	row := s.q.QueryRowContext(ctx, `
		insert into refresh_tokens (id, user_id, application_id, token_hash, expires_at)
		values ($1, $2, $3, $4, $5)
		returning created_at
	`, tok.ID, tok.UserID, tok.ApplicationID, tok.TokenHash, tok.ExpiresAt)
	if err := row.Scan(&tok.CreatedAt); err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (s refreshTokenStore) FindValidByHash(ctx context.Context, tokenHash string, now time.Time) (*auth.RefreshToken, error) {
	var (
		t       auth.RefreshToken
		revoked sql.NullTime
	)
	err := s.q.QueryRowContext(ctx, `
		select id, user_id, application_id, token_hash, expires_at, revoked_at, created_at
		from refresh_tokens
		where token_hash = $1 and revoked_at is null and expires_at > $2
	`, tokenHash, now).Scan(&t.ID, &t.UserID, &t.ApplicationID, &t.TokenHash, &t.ExpiresAt, &revoked, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if revoked.Valid {
		t.RevokedAt = &revoked.Time
	}
	return &t, nil
}

// Revoke is first-committer-wins: the `revoked_at is null` guard means a
// concurrent rotation of the same token updates zero rows and reads as
// not found.
func (s refreshTokenStore) Revoke(ctx context.Context, id string, at time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		update refresh_tokens set revoked_at = $2
		where id = $1 and revoked_at is null
	`, id, at)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

type resetTokenStore struct {
	q querier
}

func (s resetTokenStore) Create(ctx context.Context, tok *auth.PasswordResetToken) error {
	row := s.q.QueryRowContext(ctx, `
		insert into password_reset_tokens (id, user_id, application_id, token_hash, expires_at)
		values ($1, $2, $3, $4, $5)
		returning created_at
	`, tok.ID, tok.UserID, tok.ApplicationID, tok.TokenHash, tok.ExpiresAt)
	if err := row.Scan(&tok.CreatedAt); err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (s resetTokenStore) FindValidByHash(ctx context.Context, tokenHash, applicationID string, now time.Time) (*auth.PasswordResetToken, error) {
	var (
		t    auth.PasswordResetToken
		used sql.NullTime
	)
	err := s.q.QueryRowContext(ctx, `
		select id, user_id, application_id, token_hash, expires_at, used_at, created_at
		from password_reset_tokens
		where token_hash = $1 and application_id = $2 and used_at is null and expires_at > $3
	`, tokenHash, applicationID, now).Scan(&t.ID, &t.UserID, &t.ApplicationID, &t.TokenHash, &t.ExpiresAt, &used, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if used.Valid {
		t.UsedAt = &used.Time
	}
	return &t, nil
}

func (s resetTokenStore) MarkUsed(ctx context.Context, id string, at time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		update password_reset_tokens set used_at = $2
		where id = $1 and used_at is null
	`, id, at)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

func (s resetTokenStore) InvalidateForUser(ctx context.Context, userID, applicationID string, at time.Time) error {
	_, err := s.q.ExecContext(ctx, `
		update password_reset_tokens set used_at = $3
		where user_id = $1 and application_id = $2 and used_at is null
	`, userID, applicationID, at)
	return err
}

type verificationCodeStore struct {
	q querier
}

func (s verificationCodeStore) Create(ctx context.Context, code *auth.EmailVerificationCode) error {
	row := s.q.QueryRowContext(ctx, `
		insert into email_verification_codes (id, user_id, application_id, role, code_hash, expires_at)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at
	`, code.ID, code.UserID, code.ApplicationID, code.Role, code.CodeHash, code.ExpiresAt)
	if err := row.Scan(&code.CreatedAt); err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (s verificationCodeStore) FindValidByHash(ctx context.Context, codeHash, applicationID string, now time.Time) (*auth.EmailVerificationCode, error) {
	var (
		c    auth.EmailVerificationCode
		used sql.NullTime
	)
	err := s.q.QueryRowContext(ctx, `
		select id, user_id, application_id, role, code_hash, expires_at, used_at, created_at
		from email_verification_codes
		where code_hash = $1 and application_id = $2 and used_at is null and expires_at > $3
	`, codeHash, applicationID, now).Scan(&c.ID, &c.UserID, &c.ApplicationID, &c.Role, &c.CodeHash, &c.ExpiresAt, &used, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if used.Valid {
		c.UsedAt = &used.Time
	}
	return &c, nil
}

func (s verificationCodeStore) MarkUsed(ctx context.Context, id string, at time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		update email_verification_codes set used_at = $2
		where id = $1 and used_at is null
	`, id, at)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

func (s verificationCodeStore) InvalidateForUser(ctx context.Context, userID, applicationID string, at time.Time) error {
	_, err := s.q.ExecContext(ctx, `
		update email_verification_codes set used_at = $3
		where user_id = $1 and application_id = $2 and used_at is null
	`, userID, applicationID, at)
	return err
}
