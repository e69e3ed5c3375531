package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"authcore.org/internal/auth"
)

type userStore struct {
	q querier
}

const userColumns = `id, public_id, name, display_name, email, password_hash, status, role, email_verified_at, created_at, updated_at`

func (s userStore) Create(ctx context.Context, u *auth.User) error {
	row := s.q.QueryRowContext(ctx, `
		insert into users (id, public_id, name, display_name, email, password_hash, status, role)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning created_at, updated_at
	`, u.ID, u.PublicID, u.Name, u.DisplayName, u.Email, u.PasswordHash, u.Status, u.Role)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (s userStore) FindByID(ctx context.Context, id string) (*auth.User, error) {
	return s.scanOne(s.q.QueryRowContext(ctx, `select `+userColumns+` from users where id = $1`, id))
}

func (s userStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.scanOne(s.q.QueryRowContext(ctx, `select `+userColumns+` from users where email = $1`, email))
}

func (s userStore) FindByPublicID(ctx context.Context, publicID string) (*auth.User, error) {
	return s.scanOne(s.q.QueryRowContext(ctx, `select `+userColumns+` from users where public_id = $1`, publicID))
}

func (s userStore) UpdatePendingProfile(ctx context.Context, userID, name, displayName, passwordHash string) error {
	res, err := s.q.ExecContext(ctx, `
		update users
		set name = $2, display_name = $3, password_hash = $4, updated_at = now()
		where id = $1 and email_verified_at is null
	`, userID, name, displayName, passwordHash)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

func (s userStore) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	res, err := s.q.ExecContext(ctx, `
		update users set password_hash = $2, updated_at = now() where id = $1
	`, userID, passwordHash)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

func (s userStore) Activate(ctx context.Context, userID string, at time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		update users
		set status = $2, email_verified_at = coalesce(email_verified_at, $3), updated_at = $3
		where id = $1
	`, userID, auth.UserStatusActive, at)
	if err != nil {
		return err
	}
	return oneRowOrNotFound(res)
}

func (s userStore) scanOne(row *sql.Row) (*auth.User, error) {
	var (
		u        auth.User
		verified sql.NullTime
	)
	err := row.Scan(&u.ID, &u.PublicID, &u.Name, &u.DisplayName, &u.Email, &u.PasswordHash, &u.Status, &u.Role, &verified, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if verified.Valid {
		u.EmailVerifiedAt = &verified.Time
	}
	return &u, nil
}

func oneRowOrNotFound(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return auth.ErrNotFound
	}
	return nil
}
