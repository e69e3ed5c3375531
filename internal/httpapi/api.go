package httpapi

import (
	"context"
	"net/http"
	"time"

	"authcore.org/internal/auth"
	"authcore.org/internal/obs"
)

// ReadyProbe reports whether downstream dependencies are reachable.
type ReadyProbe struct {
	Pinger interface {
		Ping(ctx context.Context) error
	}
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.Pinger == nil {
		return nil
	}
	return rp.Pinger.Ping(ctx)
}

// Options tune the HTTP layer.
type Options struct {
	Version        string
	RateLimitRPS   float64
	RateLimitBurst int
}

// API is the HTTP boundary over the auth service.
type API struct {
	mux        *http.ServeMux
	svc        *auth.Service
	readyProbe ReadyProbe
	opts       Options
}

func New(svc *auth.Service, rp ReadyProbe, opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		svc:        svc,
		readyProbe: rp,
		opts:       opts,
	}

	// health/ready
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)

	// Prometheus metrics
	a.mux.Handle("/metrics", obs.Handler())

	// Credential workflows. Everything under /v1/auth requires client
	// credentials and a target application; the limiter shields the
	// endpoints that accept guesses.
	authMux := http.NewServeMux()
	authMux.HandleFunc("/v1/auth/register", a.handleRegister)
	authMux.HandleFunc("/v1/auth/verify-email", a.handleVerifyEmail)
	authMux.HandleFunc("/v1/auth/login", a.handleLogin)
	authMux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	authMux.HandleFunc("/v1/auth/logout", a.handleLogout)
	authMux.HandleFunc("/v1/auth/forgot-password", a.handleForgotPassword)
	authMux.HandleFunc("/v1/auth/reset-password", a.handleResetPassword)
	authMux.HandleFunc("/v1/auth/me", a.handleMe)
	a.mux.Handle("/v1/auth/", RateLimit(authMux, opts.RateLimitRPS, opts.RateLimitBurst))

	// Provisioning. Client credentials without an application scope.
	a.mux.HandleFunc("/v1/admin/applications", a.handleCreateApplication)
	a.mux.HandleFunc("/v1/admin/clients", a.handleCreateClient)
	a.mux.HandleFunc("/v1/admin/clients/grants", a.handleGrantClientAccess)
	a.mux.HandleFunc("/v1/admin/users/grants", a.handleGrantUserAccess)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = MaxBodyBytes(h, 1<<20)
	h = Logging(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "authcore-api",
		"version": a.opts.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}
