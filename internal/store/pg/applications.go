package pg

import (
	"context"
	"database/sql"
	"errors"

	"authcore.org/internal/auth"
)

type applicationStore struct {
	q querier
}

func (s applicationStore) Create(ctx context.Context, app *auth.Application) error {
	row := s.q.QueryRowContext(ctx, `
		insert into applications (id, public_id, name, slug, status)
		values ($1, $2, $3, $4, $5)
		returning created_at, updated_at
	`, app.ID, app.PublicID, app.Name, app.Slug, app.Status)
	if err := row.Scan(&app.CreatedAt, &app.UpdatedAt); err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (s applicationStore) FindBySlug(ctx context.Context, slug string) (*auth.Application, error) {
	var app auth.Application
	err := s.q.QueryRowContext(ctx, `
		select id, public_id, name, slug, status, created_at, updated_at
		from applications where slug = $1
	`, slug).Scan(&app.ID, &app.PublicID, &app.Name, &app.Slug, &app.Status, &app.CreatedAt, &app.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

type authClientStore struct {
	q querier
}

func (s authClientStore) Create(ctx context.Context, client *auth.AuthClient) error {
	row := s.q.QueryRowContext(ctx, `
		insert into auth_clients (id, public_id, name, client_id, client_secret_hash, status)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at
	`, client.ID, client.PublicID, client.Name, client.ClientID, client.ClientSecretHash, client.Status)
	if err := row.Scan(&client.CreatedAt); err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (s authClientStore) FindByClientID(ctx context.Context, clientID string) (*auth.AuthClient, error) {
	var c auth.AuthClient
	err := s.q.QueryRowContext(ctx, `
		select id, public_id, name, client_id, client_secret_hash, status, created_at
		from auth_clients where client_id = $1
	`, clientID).Scan(&c.ID, &c.PublicID, &c.Name, &c.ClientID, &c.ClientSecretHash, &c.Status, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s authClientStore) GrantApplicationAccess(ctx context.Context, authClientID, applicationID string) error {
	_, err := s.q.ExecContext(ctx, `
		insert into client_application_access (auth_client_id, application_id)
		values ($1, $2)
		on conflict (auth_client_id, application_id) do nothing
	`, authClientID, applicationID)
	return err
}

func (s authClientStore) HasApplicationAccess(ctx context.Context, authClientID, applicationID string) (bool, error) {
	var one int
	err := s.q.QueryRowContext(ctx, `
		select 1 from client_application_access
		where auth_client_id = $1 and application_id = $2
	`, authClientID, applicationID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

type membershipStore struct {
	q querier
}

func (s membershipStore) Upsert(ctx context.Context, m auth.Membership) error {
	_, err := s.q.ExecContext(ctx, `
		insert into memberships (user_id, application_id, role)
		values ($1, $2, $3)
		on conflict (user_id, application_id) do update set role = excluded.role
	`, m.UserID, m.ApplicationID, m.Role)
	return err
}

func (s membershipStore) Find(ctx context.Context, userID, applicationID string) (*auth.Membership, error) {
	var m auth.Membership
	err := s.q.QueryRowContext(ctx, `
		select user_id, application_id, role, created_at
		from memberships where user_id = $1 and application_id = $2
	`, userID, applicationID).Scan(&m.UserID, &m.ApplicationID, &m.Role, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}
