package auth_test

import (
	"context"
	"strings"
	"testing"

	"authcore.org/internal/auth"
)

func TestSlugify(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Acme CRM", "acme-crm"},
		{"  Spaced   Out  ", "spaced-out"},
		{"Already-Slugged", "already-slugged"},
		{"Symbols!@# Stripped", "symbols-stripped"},
		{"--edge--case--", "edge-case"},
		{"___", ""},
	}
	for _, tc := range cases {
		if got := auth.Slugify(tc.in); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCreateApplication(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	app, err := e.svc.CreateApplication(ctx, auth.CreateApplicationInput{Name: "Acme CRM"})
	if err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}
	if app.Slug != "acme-crm" || app.Status != auth.ApplicationStatusActive {
		t.Fatalf("unexpected application: %+v", app)
	}
	if app.PublicID == "" || app.PublicID == app.ID {
		t.Fatalf("public id must differ from the storage key")
	}

	_, err = e.svc.CreateApplication(ctx, auth.CreateApplicationInput{Name: "ACME crm"})
	wantKind(t, err, auth.KindConflict)

	_, err = e.svc.CreateApplication(ctx, auth.CreateApplicationInput{Name: "!!!"})
	wantKind(t, err, auth.KindUnprocessable)
}

func TestCreateAuthClientGeneratesCredentials(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	res, err := e.svc.CreateAuthClient(ctx, auth.CreateAuthClientInput{Name: "backend"})
	if err != nil {
		t.Fatalf("CreateAuthClient: %v", err)
	}
	if !strings.HasPrefix(res.ClientID, "cl_") {
		t.Fatalf("unexpected client id: %s", res.ClientID)
	}
	if !strings.HasPrefix(res.ClientSecret, "cs_") {
		t.Fatalf("unexpected client secret: %s", res.ClientSecret)
	}
	if res.Status != auth.ClientStatusActive {
		t.Fatalf("unexpected status: %s", res.Status)
	}

	stored, err := e.store.AuthClients().FindByClientID(ctx, res.ClientID)
	if err != nil {
		t.Fatalf("FindByClientID: %v", err)
	}
	if stored.ClientSecretHash == res.ClientSecret {
		t.Fatalf("client secret stored in plaintext")
	}

	_, err = e.svc.CreateAuthClient(ctx, auth.CreateAuthClientInput{Name: "dup", ClientID: res.ClientID})
	wantKind(t, err, auth.KindConflict)
}

func TestEnsureClientAccess(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	client, err := e.svc.CreateAuthClient(ctx, auth.CreateAuthClientInput{Name: "backend"})
	if err != nil {
		t.Fatalf("CreateAuthClient: %v", err)
	}

	// Valid credentials without a slug pass the global guard.
	if _, err := e.svc.EnsureClientAccess(ctx, auth.ClientCredentials{ClientID: client.ClientID, ClientSecret: client.ClientSecret}); err != nil {
		t.Fatalf("EnsureClientAccess: %v", err)
	}

	_, err = e.svc.EnsureClientAccess(ctx, auth.ClientCredentials{ClientID: client.ClientID, ClientSecret: "wrong"})
	wantErr(t, err, auth.ErrInvalidClientCredentials)
	_, err = e.svc.EnsureClientAccess(ctx, auth.ClientCredentials{ClientID: "cl_missing", ClientSecret: client.ClientSecret})
	wantErr(t, err, auth.ErrInvalidClientCredentials)
	_, err = e.svc.EnsureClientAccess(ctx, auth.ClientCredentials{})
	wantErr(t, err, auth.ErrInvalidClientCredentials)

	// A slug requires an explicit grant.
	creds := auth.ClientCredentials{ClientID: client.ClientID, ClientSecret: client.ClientSecret, ApplicationSlug: "acme-crm"}
	_, err = e.svc.EnsureClientAccess(ctx, creds)
	wantErr(t, err, auth.ErrClientAccessDenied)

	if err := e.svc.GrantClientAccess(ctx, client.ClientID, "acme-crm"); err != nil {
		t.Fatalf("GrantClientAccess: %v", err)
	}
	app, err := e.svc.EnsureClientAccess(ctx, creds)
	if err != nil {
		t.Fatalf("EnsureClientAccess after grant: %v", err)
	}
	if app == nil || app.Slug != "acme-crm" {
		t.Fatalf("expected resolved application, got %+v", app)
	}

	// Granting twice stays idempotent.
	if err := e.svc.GrantClientAccess(ctx, client.ClientID, "acme-crm"); err != nil {
		t.Fatalf("repeated GrantClientAccess: %v", err)
	}

	creds.ApplicationSlug = "missing"
	_, err = e.svc.EnsureClientAccess(ctx, creds)
	wantErr(t, err, auth.ErrApplicationUnavailable)
}

func TestGrantClientAccessMissingSides(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	client, err := e.svc.CreateAuthClient(ctx, auth.CreateAuthClientInput{Name: "backend"})
	if err != nil {
		t.Fatalf("CreateAuthClient: %v", err)
	}

	wantKind(t, e.svc.GrantClientAccess(ctx, "cl_missing", "acme-crm"), auth.KindNotFound)
	wantKind(t, e.svc.GrantClientAccess(ctx, client.ClientID, "missing"), auth.KindNotFound)
}

func TestGrantUserAccess(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	e.seedApplication(t, "Acme Billing", "", "")
	e.registerVerified(t, "acme-crm", "Jordan", "jordan@example.com", "hunter2!", "")
	user, err := e.store.Users().FindByEmail(ctx, "jordan@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}

	if err := e.svc.GrantUserAccess(ctx, user.PublicID, "acme-billing", auth.RoleAdmin); err != nil {
		t.Fatalf("GrantUserAccess: %v", err)
	}
	m, err := e.store.Memberships().Find(ctx, user.ID, mustApp(t, e, "acme-billing").ID)
	if err != nil {
		t.Fatalf("membership was not created: %v", err)
	}
	if m.Role != auth.RoleAdmin {
		t.Fatalf("unexpected role: %s", m.Role)
	}

	// Re-granting updates the role in place.
	if err := e.svc.GrantUserAccess(ctx, user.PublicID, "acme-billing", ""); err != nil {
		t.Fatalf("repeated GrantUserAccess: %v", err)
	}
	m, err = e.store.Memberships().Find(ctx, user.ID, mustApp(t, e, "acme-billing").ID)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if m.Role != auth.RoleUser {
		t.Fatalf("role was not updated, got %s", m.Role)
	}

	wantKind(t, e.svc.GrantUserAccess(ctx, "unknown", "acme-crm", ""), auth.KindNotFound)
	wantKind(t, e.svc.GrantUserAccess(ctx, user.PublicID, "missing", ""), auth.KindNotFound)
	wantKind(t, e.svc.GrantUserAccess(ctx, user.PublicID, "acme-crm", "owner"), auth.KindUnprocessable)
}
