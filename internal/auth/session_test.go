package auth_test

import (
	"context"
	"testing"
	"time"

	"authcore.org/internal/auth"
)

func TestLoginIssuesSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	e.registerVerified(t, "acme-crm", "Jordan", "jordan@example.com", "hunter2!", "")

	res, err := e.svc.Login(ctx, auth.LoginInput{
		ApplicationSlug: "acme-crm",
		Email:           "JORDAN@example.com",
		Password:        "hunter2!",
	})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatalf("missing tokens in session result")
	}
	if res.ExpiresIn != int64((15 * time.Minute).Seconds()) {
		t.Fatalf("unexpected expires_in: %d", res.ExpiresIn)
	}
	if res.Application.Slug != "acme-crm" || res.Application.Role != auth.RoleUser {
		t.Fatalf("unexpected application summary: %+v", res.Application)
	}

	claims, err := e.svc.Issuer().Parse(res.AccessToken)
	if err != nil {
		t.Fatalf("Parse access token: %v", err)
	}
	if claims.Subject != res.User.ID {
		t.Fatalf("subject %s does not match user id %s", claims.Subject, res.User.ID)
	}
	if claims.Email != "jordan@example.com" || claims.ApplicationSlug != "acme-crm" || claims.Role != auth.RoleUser {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	// The opaque refresh token is stored only as a hash.
	for _, row := range e.store.AllRefreshTokens() {
		if row.TokenHash == res.RefreshToken {
			t.Fatalf("refresh token stored in plaintext")
		}
	}
}

func TestLoginFailures(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	suspended := e.seedApplication(t, "Old App", "", auth.ApplicationStatusSuspended)
	e.registerVerified(t, "acme-crm", "Jordan", "jordan@example.com", "hunter2!", "")

	// Application availability is checked before credentials.
	_, err := e.svc.Login(ctx, auth.LoginInput{ApplicationSlug: "missing", Email: "jordan@example.com", Password: "wrong"})
	wantErr(t, err, auth.ErrApplicationUnavailable)
	_, err = e.svc.Login(ctx, auth.LoginInput{ApplicationSlug: suspended.Slug, Email: "jordan@example.com", Password: "hunter2!"})
	wantErr(t, err, auth.ErrApplicationUnavailable)

	// Unknown account and wrong password are indistinguishable.
	_, err = e.svc.Login(ctx, auth.LoginInput{ApplicationSlug: "acme-crm", Email: "ghost@example.com", Password: "hunter2!"})
	wantErr(t, err, auth.ErrInvalidCredentials)
	_, err = e.svc.Login(ctx, auth.LoginInput{ApplicationSlug: "acme-crm", Email: "jordan@example.com", Password: "wrong"})
	wantErr(t, err, auth.ErrInvalidCredentials)
}

func TestLoginUnverifiedEmail(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	if _, err := e.svc.Register(ctx, auth.RegisterInput{
		ApplicationSlug: "acme-crm", Name: "Jordan", Email: "jordan@example.com", Password: "hunter2!",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := e.svc.Login(ctx, auth.LoginInput{ApplicationSlug: "acme-crm", Email: "jordan@example.com", Password: "hunter2!"})
	wantErr(t, err, auth.ErrEmailNotVerified)

	// A wrong password on the pending account still reads as bad credentials.
	_, err = e.svc.Login(ctx, auth.LoginInput{ApplicationSlug: "acme-crm", Email: "jordan@example.com", Password: "wrong"})
	wantErr(t, err, auth.ErrInvalidCredentials)
}

func TestLoginWithoutMembership(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	e.seedApplication(t, "Acme Billing", "", "")
	e.registerVerified(t, "acme-crm", "Jordan", "jordan@example.com", "hunter2!", "")

	_, err := e.svc.Login(ctx, auth.LoginInput{ApplicationSlug: "acme-billing", Email: "jordan@example.com", Password: "hunter2!"})
	wantErr(t, err, auth.ErrUserAccessDenied)
}

func TestLoginRootActsAsAdminEverywhere(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	e.seedApplication(t, "Acme Billing", "", "")
	e.registerVerified(t, "acme-crm", "Root", "root@example.com", "hunter2!", "")
	user, err := e.store.Users().FindByEmail(ctx, "root@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	e.store.SetUserRole(user.ID, auth.RoleRoot)

	res, err := e.svc.Login(ctx, auth.LoginInput{ApplicationSlug: "acme-billing", Email: "root@example.com", Password: "hunter2!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if res.Application.Role != auth.RoleAdmin {
		t.Fatalf("root should act as admin, got %s", res.Application.Role)
	}
}

func TestRefreshRotatesExactlyOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	e.registerVerified(t, "acme-crm", "Jordan", "jordan@example.com", "hunter2!", "")
	session, err := e.svc.Login(ctx, auth.LoginInput{ApplicationSlug: "acme-crm", Email: "jordan@example.com", Password: "hunter2!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	rotated, err := e.svc.Refresh(ctx, auth.RefreshInput{ApplicationSlug: "acme-crm", RefreshToken: session.RefreshToken})
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if rotated.RefreshToken == session.RefreshToken {
		t.Fatalf("rotation returned the same refresh token")
	}

	// Replaying the consumed token fails; the rotated one still works.
	_, err = e.svc.Refresh(ctx, auth.RefreshInput{ApplicationSlug: "acme-crm", RefreshToken: session.RefreshToken})
	wantErr(t, err, auth.ErrInvalidRefreshToken)
	if _, err := e.svc.Refresh(ctx, auth.RefreshInput{ApplicationSlug: "acme-crm", RefreshToken: rotated.RefreshToken}); err != nil {
		t.Fatalf("rotated token did not refresh: %v", err)
	}
}

func TestRefreshScopesToApplication(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	e.seedApplication(t, "Acme Billing", "", "")
	e.registerVerified(t, "acme-crm", "Jordan", "jordan@example.com", "hunter2!", "")
	session, err := e.svc.Login(ctx, auth.LoginInput{ApplicationSlug: "acme-crm", Email: "jordan@example.com", Password: "hunter2!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	_, err = e.svc.Refresh(ctx, auth.RefreshInput{ApplicationSlug: "acme-billing", RefreshToken: session.RefreshToken})
	wantErr(t, err, auth.ErrInvalidRefreshToken)
}

func TestRefreshExpiredToken(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	e.registerVerified(t, "acme-crm", "Jordan", "jordan@example.com", "hunter2!", "")
	session, err := e.svc.Login(ctx, auth.LoginInput{ApplicationSlug: "acme-crm", Email: "jordan@example.com", Password: "hunter2!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	e.clock.Advance(31 * 24 * time.Hour)
	_, err = e.svc.Refresh(ctx, auth.RefreshInput{ApplicationSlug: "acme-crm", RefreshToken: session.RefreshToken})
	wantErr(t, err, auth.ErrInvalidRefreshToken)
}

func TestRefreshSuspendedUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	e.registerVerified(t, "acme-crm", "Jordan", "jordan@example.com", "hunter2!", "")
	session, err := e.svc.Login(ctx, auth.LoginInput{ApplicationSlug: "acme-crm", Email: "jordan@example.com", Password: "hunter2!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	user, err := e.store.Users().FindByEmail(ctx, "jordan@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	e.store.SetUserStatus(user.ID, auth.UserStatusSuspended)

	_, err = e.svc.Refresh(ctx, auth.RefreshInput{ApplicationSlug: "acme-crm", RefreshToken: session.RefreshToken})
	wantErr(t, err, auth.ErrInvalidCredentials)
}

func TestLogoutIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	e.registerVerified(t, "acme-crm", "Jordan", "jordan@example.com", "hunter2!", "")
	session, err := e.svc.Login(ctx, auth.LoginInput{ApplicationSlug: "acme-crm", Email: "jordan@example.com", Password: "hunter2!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	in := auth.LogoutInput{ApplicationSlug: "acme-crm", RefreshToken: session.RefreshToken}
	if err := e.svc.Logout(ctx, in); err != nil {
		t.Fatalf("first Logout: %v", err)
	}
	if err := e.svc.Logout(ctx, in); err != nil {
		t.Fatalf("repeated Logout: %v", err)
	}
	if err := e.svc.Logout(ctx, auth.LogoutInput{ApplicationSlug: "missing", RefreshToken: "garbage"}); err != nil {
		t.Fatalf("Logout with unknown inputs: %v", err)
	}

	_, err = e.svc.Refresh(ctx, auth.RefreshInput{ApplicationSlug: "acme-crm", RefreshToken: session.RefreshToken})
	wantErr(t, err, auth.ErrInvalidRefreshToken)
}

func TestMe(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	e.registerVerified(t, "acme-crm", "Jordan", "jordan@example.com", "hunter2!", "")
	session, err := e.svc.Login(ctx, auth.LoginInput{ApplicationSlug: "acme-crm", Email: "jordan@example.com", Password: "hunter2!"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	res, err := e.svc.Me(ctx, auth.MeInput{UserPublicID: session.User.ID, ApplicationSlug: "acme-crm"})
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if res.User.Email != "jordan@example.com" || res.Application.Role != auth.RoleUser {
		t.Fatalf("unexpected me result: %+v", res)
	}

	_, err = e.svc.Me(ctx, auth.MeInput{UserPublicID: "unknown", ApplicationSlug: "acme-crm"})
	wantErr(t, err, auth.ErrUnauthorizedSession)
	_, err = e.svc.Me(ctx, auth.MeInput{UserPublicID: session.User.ID, ApplicationSlug: "missing"})
	wantErr(t, err, auth.ErrUnauthorizedSession)
}
