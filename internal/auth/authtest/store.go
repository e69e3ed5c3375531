// Package authtest provides an in-memory auth.Store for tests.
package authtest

import (
	"context"
	"sync"
	"time"

	"authcore.org/internal/auth"
)

// Store implements auth.Store entirely in memory. InTx runs the closure
// against the same store without rollback; tests asserting atomicity
// should inspect effects rather than rely on rollback semantics.
type Store struct {
	mu sync.Mutex

	users   map[string]*auth.User
	apps    map[string]*auth.Application
	clients map[string]*auth.AuthClient
	members map[string]auth.Membership
	grants  map[string]bool
	refresh map[string]*auth.RefreshToken
	resets  map[string]*auth.PasswordResetToken
	codes   map[string]*auth.EmailVerificationCode
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:   map[string]*auth.User{},
		apps:    map[string]*auth.Application{},
		clients: map[string]*auth.AuthClient{},
		members: map[string]auth.Membership{},
		grants:  map[string]bool{},
		refresh: map[string]*auth.RefreshToken{},
		resets:  map[string]*auth.PasswordResetToken{},
		codes:   map[string]*auth.EmailVerificationCode{},
	}
}

func (s *Store) Users() auth.UserStore                                 { return usersView{s} }
func (s *Store) Applications() auth.ApplicationStore                   { return appsView{s} }
func (s *Store) AuthClients() auth.AuthClientStore                     { return clientsView{s} }
func (s *Store) Memberships() auth.MembershipStore                     { return membersView{s} }
func (s *Store) RefreshTokens() auth.RefreshTokenStore                 { return refreshView{s} }
func (s *Store) PasswordResetTokens() auth.PasswordResetTokenStore     { return resetsView{s} }
func (s *Store) EmailVerificationCodes() auth.EmailVerificationCodeStore { return codesView{s} }

func (s *Store) InTx(ctx context.Context, fn func(auth.Store) error) error {
	return fn(s)
}

func memberKey(userID, appID string) string { return userID + "|" + appID }

// SetApplicationStatus force-updates an application row for test setup.
func (s *Store) SetApplicationStatus(id, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	app, ok := s.apps[id]
	if ok {
		app.Status = status
	}
	return ok
}

// SetUserStatus force-updates a user row for test setup.
func (s *Store) SetUserStatus(id, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if ok {
		u.Status = status
	}
	return ok
}

// SetUserRole force-updates a user's global role for test setup.
func (s *Store) SetUserRole(id, role string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if ok {
		u.Role = role
	}
	return ok
}

// AllRefreshTokens returns copies of every refresh token row.
func (s *Store) AllRefreshTokens() []auth.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.RefreshToken, 0, len(s.refresh))
	for _, t := range s.refresh {
		out = append(out, *t)
	}
	return out
}

// AllResetTokens returns copies of every password-reset token row.
func (s *Store) AllResetTokens() []auth.PasswordResetToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.PasswordResetToken, 0, len(s.resets))
	for _, t := range s.resets {
		out = append(out, *t)
	}
	return out
}

// AllVerificationCodes returns copies of every verification code row.
func (s *Store) AllVerificationCodes() []auth.EmailVerificationCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auth.EmailVerificationCode, 0, len(s.codes))
	for _, c := range s.codes {
		out = append(out, *c)
	}
	return out
}

// Users ----------------------------------------------------------------

type usersView struct{ s *Store }

func (v usersView) Create(ctx context.Context, u *auth.User) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, existing := range v.s.users {
		if existing.Email == u.Email || existing.PublicID == u.PublicID {
			return auth.ErrConflict
		}
	}
	cp := *u
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	v.s.users[u.ID] = &cp
	return nil
}

func (v usersView) FindByID(ctx context.Context, id string) (*auth.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if u, ok := v.s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, auth.ErrNotFound
}

func (v usersView) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, u := range v.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (v usersView) FindByPublicID(ctx context.Context, publicID string) (*auth.User, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, u := range v.s.users {
		if u.PublicID == publicID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (v usersView) UpdatePendingProfile(ctx context.Context, userID, name, displayName, passwordHash string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	u, ok := v.s.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.Name = name
	u.DisplayName = displayName
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (v usersView) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	u, ok := v.s.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

func (v usersView) Activate(ctx context.Context, userID string, at time.Time) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	u, ok := v.s.users[userID]
	if !ok {
		return auth.ErrNotFound
	}
	u.Status = auth.UserStatusActive
	verified := at
	u.EmailVerifiedAt = &verified
	u.UpdatedAt = at
	return nil
}

// Applications ----------------------------------------------------------

type appsView struct{ s *Store }

func (v appsView) Create(ctx context.Context, app *auth.Application) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, existing := range v.s.apps {
		if existing.Slug == app.Slug {
			return auth.ErrConflict
		}
	}
	cp := *app
	cp.CreatedAt = time.Now().UTC()
	cp.UpdatedAt = cp.CreatedAt
	v.s.apps[app.ID] = &cp
	return nil
}

func (v appsView) FindBySlug(ctx context.Context, slug string) (*auth.Application, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, app := range v.s.apps {
		if app.Slug == slug {
			cp := *app
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

// Auth clients ----------------------------------------------------------

type clientsView struct{ s *Store }

func (v clientsView) Create(ctx context.Context, client *auth.AuthClient) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, existing := range v.s.clients {
		if existing.ClientID == client.ClientID {
			return auth.ErrConflict
		}
	}
	cp := *client
	cp.CreatedAt = time.Now().UTC()
	v.s.clients[client.ID] = &cp
	return nil
}

func (v clientsView) FindByClientID(ctx context.Context, clientID string) (*auth.AuthClient, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, c := range v.s.clients {
		if c.ClientID == clientID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (v clientsView) GrantApplicationAccess(ctx context.Context, authClientID, applicationID string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.grants[memberKey(authClientID, applicationID)] = true
	return nil
}

func (v clientsView) HasApplicationAccess(ctx context.Context, authClientID, applicationID string) (bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.grants[memberKey(authClientID, applicationID)], nil
}

// Memberships -----------------------------------------------------------

type membersView struct{ s *Store }

func (v membersView) Upsert(ctx context.Context, m auth.Membership) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	key := memberKey(m.UserID, m.ApplicationID)
	if existing, ok := v.s.members[key]; ok {
		existing.Role = m.Role
		v.s.members[key] = existing
		return nil
	}
	m.CreatedAt = time.Now().UTC()
	v.s.members[key] = m
	return nil
}

func (v membersView) Find(ctx context.Context, userID, applicationID string) (*auth.Membership, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if m, ok := v.s.members[memberKey(userID, applicationID)]; ok {
		cp := m
		return &cp, nil
	}
	return nil, auth.ErrNotFound
}

// Refresh tokens --------------------------------------------------------

type refreshView struct{ s *Store }

func (v refreshView) Create(ctx context.Context, tok *auth.RefreshToken) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	cp := *tok
	cp.CreatedAt = time.Now().UTC()
	v.s.refresh[tok.ID] = &cp
	return nil
}

func (v refreshView) FindValidByHash(ctx context.Context, tokenHash string, now time.Time) (*auth.RefreshToken, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, t := range v.s.refresh {
		if t.TokenHash == tokenHash && t.RevokedAt == nil && t.ExpiresAt.After(now) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (v refreshView) Revoke(ctx context.Context, id string, at time.Time) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	t, ok := v.s.refresh[id]
	if !ok || t.RevokedAt != nil {
		return auth.ErrNotFound
	}
	revoked := at
	t.RevokedAt = &revoked
	return nil
}

// Password reset tokens -------------------------------------------------

type resetsView struct{ s *Store }

func (v resetsView) Create(ctx context.Context, tok *auth.PasswordResetToken) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	cp := *tok
	cp.CreatedAt = time.Now().UTC()
	v.s.resets[tok.ID] = &cp
	return nil
}

func (v resetsView) FindValidByHash(ctx context.Context, tokenHash, applicationID string, now time.Time) (*auth.PasswordResetToken, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, t := range v.s.resets {
		if t.TokenHash == tokenHash && t.ApplicationID == applicationID && t.UsedAt == nil && t.ExpiresAt.After(now) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (v resetsView) MarkUsed(ctx context.Context, id string, at time.Time) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	t, ok := v.s.resets[id]
	if !ok || t.UsedAt != nil {
		return auth.ErrNotFound
	}
	used := at
	t.UsedAt = &used
	return nil
}

func (v resetsView) InvalidateForUser(ctx context.Context, userID, applicationID string, at time.Time) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, t := range v.s.resets {
		if t.UserID == userID && t.ApplicationID == applicationID && t.UsedAt == nil {
			used := at
			t.UsedAt = &used
		}
	}
	return nil
}

// Email verification codes ----------------------------------------------

type codesView struct{ s *Store }

func (v codesView) Create(ctx context.Context, code *auth.EmailVerificationCode) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	cp := *code
	cp.CreatedAt = time.Now().UTC()
	v.s.codes[code.ID] = &cp
	return nil
}

func (v codesView) FindValidByHash(ctx context.Context, codeHash, applicationID string, now time.Time) (*auth.EmailVerificationCode, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, c := range v.s.codes {
		if c.CodeHash == codeHash && c.ApplicationID == applicationID && c.UsedAt == nil && c.ExpiresAt.After(now) {
			cp := *c
			return &cp, nil
		}
	}
	return nil, auth.ErrNotFound
}

func (v codesView) MarkUsed(ctx context.Context, id string, at time.Time) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	c, ok := v.s.codes[id]
	if !ok || c.UsedAt != nil {
		return auth.ErrNotFound
	}
	used := at
	c.UsedAt = &used
	return nil
}

func (v codesView) InvalidateForUser(ctx context.Context, userID, applicationID string, at time.Time) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	for _, c := range v.s.codes {
		if c.UserID == userID && c.ApplicationID == applicationID && c.UsedAt == nil {
			used := at
			c.UsedAt = &used
		}
	}
	return nil
}
