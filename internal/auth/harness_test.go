package auth_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"authcore.org/internal/auth"
	"authcore.org/internal/auth/authtest"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type captureNotifier struct {
	mu   sync.Mutex
	sent []auth.Message
	fail error
}

func (n *captureNotifier) Send(ctx context.Context, msg auth.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail != nil {
		return n.fail
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *captureNotifier) messages() []auth.Message {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]auth.Message, len(n.sent))
	copy(out, n.sent)
	return out
}

func (n *captureNotifier) last(t *testing.T) auth.Message {
	t.Helper()
	msgs := n.messages()
	if len(msgs) == 0 {
		t.Fatalf("no message was sent")
	}
	return msgs[len(msgs)-1]
}

type env struct {
	store *authtest.Store
	svc   *auth.Service
	mail  *captureNotifier
	clock *clock
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := authtest.New()
	mail := &captureNotifier{}
	clk := &clock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	issuer, err := auth.NewJWTIssuer("0123456789abcdef0123456789abcdef", "authcore-test")
	if err != nil {
		t.Fatalf("NewJWTIssuer: %v", err)
	}
	svc, err := auth.NewService(
		store,
		auth.NewBcryptHasher(bcrypt.MinCost),
		auth.SHA256TokenHasher{},
		issuer,
		mail,
		auth.WithClock(clk.Now),
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &env{store: store, svc: svc, mail: mail, clock: clk}
}

func (e *env) seedApplication(t *testing.T, name, slug, status string) *auth.Application {
	t.Helper()
	app, err := e.svc.CreateApplication(context.Background(), auth.CreateApplicationInput{Name: name, Slug: slug})
	if err != nil {
		t.Fatalf("CreateApplication(%s): %v", slug, err)
	}
	if status != "" && status != auth.ApplicationStatusActive {
		if !e.store.SetApplicationStatus(app.ID, status) {
			t.Fatalf("application %s not in store", app.ID)
		}
		app.Status = status
	}
	return app
}

// registerVerified walks an end user through register + verify so the
// account is active with a membership in the application.
func (e *env) registerVerified(t *testing.T, slug, name, email, password, role string) {
	t.Helper()
	ctx := context.Background()
	res, err := e.svc.Register(ctx, auth.RegisterInput{
		ApplicationSlug: slug,
		Name:            name,
		Email:           email,
		Password:        password,
		Role:            role,
	})
	if err != nil {
		t.Fatalf("Register(%s): %v", email, err)
	}
	if res.Status != auth.RegistrationVerificationRequired {
		t.Fatalf("unexpected registration status: %s", res.Status)
	}
	code := e.lastCode(t)
	if err := e.svc.VerifyEmail(ctx, auth.VerifyEmailInput{ApplicationSlug: slug, Email: email, Code: code}); err != nil {
		t.Fatalf("VerifyEmail(%s): %v", email, err)
	}
}

// lastCode extracts the 6-digit code from the most recent mail.
func (e *env) lastCode(t *testing.T) string {
	t.Helper()
	msg := e.mail.last(t)
	const prefix = "Your verification code is: "
	if !strings.HasPrefix(msg.Text, prefix) {
		t.Fatalf("unexpected mail body: %q", msg.Text)
	}
	code := strings.TrimPrefix(msg.Text, prefix)
	if len(code) != 6 {
		t.Fatalf("unexpected code length: %q", code)
	}
	return code
}

// lastResetToken extracts the token from the most recent reset link.
func (e *env) lastResetToken(t *testing.T) string {
	t.Helper()
	msg := e.mail.last(t)
	idx := strings.Index(msg.Text, "token=")
	if idx < 0 {
		t.Fatalf("reset mail carries no token: %q", msg.Text)
	}
	rest := msg.Text[idx+len("token="):]
	if amp := strings.Index(rest, "&"); amp >= 0 {
		rest = rest[:amp]
	}
	return rest
}

func wantKind(t *testing.T, err error, kind auth.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s failure, got nil", kind)
	}
	if got := auth.KindOf(err); got != kind {
		t.Fatalf("expected kind %s, got %s (%v)", kind, got, err)
	}
}

func wantErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}
