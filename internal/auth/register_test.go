package auth_test

import (
	"context"
	"testing"
	"time"

	"authcore.org/internal/auth"
)

func TestRegisterNewUserRequiresVerification(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")

	res, err := e.svc.Register(ctx, auth.RegisterInput{
		ApplicationSlug: "acme-crm",
		Name:            "Jordan",
		Email:           "Jordan@Example.com ",
		Password:        "hunter2!",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Status != auth.RegistrationVerificationRequired {
		t.Fatalf("unexpected status: %s", res.Status)
	}

	user, err := e.store.Users().FindByEmail(ctx, "jordan@example.com")
	if err != nil {
		t.Fatalf("stored email was not normalized: %v", err)
	}
	if user.Status != auth.UserStatusPending {
		t.Fatalf("expected pending account, got %s", user.Status)
	}
	if user.Verified() {
		t.Fatalf("new account must not be verified")
	}
	if user.PasswordHash == "hunter2!" {
		t.Fatalf("password stored in plaintext")
	}
	if len(e.mail.messages()) != 1 {
		t.Fatalf("expected one verification mail, got %d", len(e.mail.messages()))
	}

	code := e.lastCode(t)
	if err := e.svc.VerifyEmail(ctx, auth.VerifyEmailInput{ApplicationSlug: "acme-crm", Email: "jordan@example.com", Code: code}); err != nil {
		t.Fatalf("VerifyEmail: %v", err)
	}
	user, err = e.store.Users().FindByEmail(ctx, "jordan@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if user.Status != auth.UserStatusActive || !user.Verified() {
		t.Fatalf("account was not activated: status=%s verified=%v", user.Status, user.Verified())
	}
	m, err := e.store.Memberships().Find(ctx, user.ID, mustApp(t, e, "acme-crm").ID)
	if err != nil {
		t.Fatalf("membership was not created: %v", err)
	}
	if m.Role != auth.RoleUser {
		t.Fatalf("unexpected membership role: %s", m.Role)
	}

	// A consumed code never redeems twice.
	err = e.svc.VerifyEmail(ctx, auth.VerifyEmailInput{ApplicationSlug: "acme-crm", Email: "jordan@example.com", Code: code})
	wantErr(t, err, auth.ErrInvalidVerificationCode)
}

func TestRegisterPendingReissuesSingleActiveCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")

	in := auth.RegisterInput{ApplicationSlug: "acme-crm", Name: "Sam", Email: "sam@example.com", Password: "pa55word"}
	if _, err := e.svc.Register(ctx, in); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	first := e.lastCode(t)

	in.Name = "Samuel"
	if _, err := e.svc.Register(ctx, in); err != nil {
		t.Fatalf("second Register: %v", err)
	}
	second := e.lastCode(t)

	live := 0
	for _, c := range e.store.AllVerificationCodes() {
		if c.UsedAt == nil {
			live++
		}
	}
	if live != 1 {
		t.Fatalf("expected exactly one live code, got %d", live)
	}

	err := e.svc.VerifyEmail(ctx, auth.VerifyEmailInput{ApplicationSlug: "acme-crm", Email: "sam@example.com", Code: first})
	if first != second {
		wantErr(t, err, auth.ErrInvalidVerificationCode)
		err = e.svc.VerifyEmail(ctx, auth.VerifyEmailInput{ApplicationSlug: "acme-crm", Email: "sam@example.com", Code: second})
	}
	if err != nil {
		t.Fatalf("latest code did not verify: %v", err)
	}

	user, err := e.store.Users().FindByEmail(ctx, "sam@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if user.Name != "Samuel" {
		t.Fatalf("pending profile was not refreshed: %s", user.Name)
	}
}

func TestRegisterExistingEmailWrongPassword(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	e.registerVerified(t, "acme-crm", "Riley", "riley@example.com", "correct horse", "")

	_, err := e.svc.Register(ctx, auth.RegisterInput{
		ApplicationSlug: "acme-crm",
		Name:            "Riley",
		Email:           "riley@example.com",
		Password:        "battery staple",
	})
	wantErr(t, err, auth.ErrEmailTaken)
}

func TestRegisterVerifiedMatchingPasswordAttaches(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	e.seedApplication(t, "Acme Billing", "", "")
	e.registerVerified(t, "acme-crm", "Riley", "riley@example.com", "correct horse", "")

	res, err := e.svc.Register(ctx, auth.RegisterInput{
		ApplicationSlug: "acme-billing",
		Name:            "Riley",
		Email:           "riley@example.com",
		Password:        "correct horse",
		Role:            auth.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.Status != auth.RegistrationCreated {
		t.Fatalf("unexpected status: %s", res.Status)
	}
	user, err := e.store.Users().FindByEmail(ctx, "riley@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	m, err := e.store.Memberships().Find(ctx, user.ID, mustApp(t, e, "acme-billing").ID)
	if err != nil {
		t.Fatalf("membership was not created: %v", err)
	}
	if m.Role != auth.RoleAdmin {
		t.Fatalf("unexpected role: %s", m.Role)
	}
}

func TestRegisterSuspendedUser(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	e.registerVerified(t, "acme-crm", "Riley", "riley@example.com", "correct horse", "")
	user, err := e.store.Users().FindByEmail(ctx, "riley@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	e.store.SetUserStatus(user.ID, auth.UserStatusSuspended)

	_, err = e.svc.Register(ctx, auth.RegisterInput{
		ApplicationSlug: "acme-crm",
		Name:            "Riley",
		Email:           "riley@example.com",
		Password:        "correct horse",
	})
	wantErr(t, err, auth.ErrUserSuspended)
}

func TestRegisterUnknownApplication(t *testing.T) {
	e := newEnv(t)
	_, err := e.svc.Register(context.Background(), auth.RegisterInput{
		ApplicationSlug: "nope",
		Name:            "Riley",
		Email:           "riley@example.com",
		Password:        "correct horse",
	})
	wantErr(t, err, auth.ErrApplicationUnavailable)
}

func TestRegisterRejectsRootRole(t *testing.T) {
	e := newEnv(t)
	e.seedApplication(t, "Acme CRM", "", "")
	_, err := e.svc.Register(context.Background(), auth.RegisterInput{
		ApplicationSlug: "acme-crm",
		Name:            "Riley",
		Email:           "riley@example.com",
		Password:        "correct horse",
		Role:            auth.RoleRoot,
	})
	wantKind(t, err, auth.KindUnprocessable)
}

func TestRegisterFailedSendAbortsRegistration(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	e.mail.fail = context.DeadlineExceeded

	_, err := e.svc.Register(ctx, auth.RegisterInput{
		ApplicationSlug: "acme-crm",
		Name:            "Riley",
		Email:           "riley@example.com",
		Password:        "correct horse",
	})
	if err == nil {
		t.Fatalf("expected send failure to propagate")
	}
}

func TestVerifyEmailExpiredCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")
	if _, err := e.svc.Register(ctx, auth.RegisterInput{
		ApplicationSlug: "acme-crm",
		Name:            "Riley",
		Email:           "riley@example.com",
		Password:        "correct horse",
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	code := e.lastCode(t)

	e.clock.Advance(11 * time.Minute)
	err := e.svc.VerifyEmail(ctx, auth.VerifyEmailInput{ApplicationSlug: "acme-crm", Email: "riley@example.com", Code: code})
	wantErr(t, err, auth.ErrInvalidVerificationCode)
}

func TestVerifyEmailForeignCode(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.seedApplication(t, "Acme CRM", "", "")

	if _, err := e.svc.Register(ctx, auth.RegisterInput{
		ApplicationSlug: "acme-crm", Name: "A", Email: "a@example.com", Password: "password-a",
	}); err != nil {
		t.Fatalf("Register a: %v", err)
	}
	codeA := e.lastCode(t)
	if _, err := e.svc.Register(ctx, auth.RegisterInput{
		ApplicationSlug: "acme-crm", Name: "B", Email: "b@example.com", Password: "password-b",
	}); err != nil {
		t.Fatalf("Register b: %v", err)
	}

	// A's code presented under B's email must not activate B.
	err := e.svc.VerifyEmail(ctx, auth.VerifyEmailInput{ApplicationSlug: "acme-crm", Email: "b@example.com", Code: codeA})
	wantErr(t, err, auth.ErrInvalidVerificationCode)
}

func mustApp(t *testing.T, e *env, slug string) *auth.Application {
	t.Helper()
	app, err := e.store.Applications().FindBySlug(context.Background(), slug)
	if err != nil {
		t.Fatalf("FindBySlug(%s): %v", slug, err)
	}
	return app
}
