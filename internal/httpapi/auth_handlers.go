package httpapi

import (
	"net/http"
	"strings"

	"authcore.org/internal/audit"
	"authcore.org/internal/auth"
	"authcore.org/internal/obs"
)

// Client credential headers expected on every workflow request.
const (
	headerClientID        = "X-Client-Id"
	headerClientSecret    = "X-Client-Secret"
	headerApplicationSlug = "X-Application-Slug"
)

// guardApplication authenticates the calling API client and resolves the
// target application. On failure the response is already written.
func (a *API) guardApplication(w http.ResponseWriter, r *http.Request) (*auth.Application, bool) {
	creds := auth.ClientCredentials{
		ClientID:        r.Header.Get(headerClientID),
		ClientSecret:    r.Header.Get(headerClientSecret),
		ApplicationSlug: r.Header.Get(headerApplicationSlug),
	}
	if strings.TrimSpace(creds.ApplicationSlug) == "" {
		writeError(w, r, http.StatusUnprocessableEntity, "application header is required")
		return nil, false
	}
	app, err := a.svc.EnsureClientAccess(r.Context(), creds)
	if err != nil {
		handleAuthError(w, r, err)
		return nil, false
	}
	return app, true
}

type registerRequest struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	app, ok := a.guardApplication(w, r)
	if !ok {
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "name, email and password are required")
		return
	}

	res, err := a.svc.Register(r.Context(), auth.RegisterInput{
		ApplicationSlug: app.Slug,
		Name:            req.Name,
		DisplayName:     req.DisplayName,
		Email:           req.Email,
		Password:        req.Password,
		Role:            req.Role,
	})
	if err != nil {
		outcome := handleAuthError(w, r, err)
		obs.ObserveAuthOperation("register", outcome)
		return
	}
	obs.ObserveAuthOperation("register", res.Status)
	_ = audit.LogEvent(r.Context(), "auth.register", map[string]any{
		"application": app.Slug,
		"email":       auth.NormalizeEmail(req.Email),
		"status":      res.Status,
	})
	writeJSON(w, http.StatusCreated, res)
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (a *API) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	app, ok := a.guardApplication(w, r)
	if !ok {
		return
	}
	var req verifyEmailRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Code) == "" {
		writeError(w, r, http.StatusBadRequest, "email and code are required")
		return
	}

	err := a.svc.VerifyEmail(r.Context(), auth.VerifyEmailInput{
		ApplicationSlug: app.Slug,
		Email:           req.Email,
		Code:            req.Code,
	})
	if err != nil {
		outcome := handleAuthError(w, r, err)
		obs.ObserveAuthOperation("verify_email", outcome)
		return
	}
	obs.ObserveAuthOperation("verify_email", "ok")
	_ = audit.LogEvent(r.Context(), "auth.email_verified", map[string]any{
		"application": app.Slug,
		"email":       auth.NormalizeEmail(req.Email),
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "email verified successfully"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	app, ok := a.guardApplication(w, r)
	if !ok {
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "email and password are required")
		return
	}

	res, err := a.svc.Login(r.Context(), auth.LoginInput{
		ApplicationSlug: app.Slug,
		Email:           req.Email,
		Password:        req.Password,
	})
	if err != nil {
		outcome := handleAuthError(w, r, err)
		obs.ObserveAuthOperation("login", outcome)
		return
	}
	obs.ObserveAuthOperation("login", "ok")
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"application": app.Slug,
		"user_id":     res.User.ID,
	})
	writeJSON(w, http.StatusOK, res)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	app, ok := a.guardApplication(w, r)
	if !ok {
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.RefreshToken) == "" {
		writeError(w, r, http.StatusBadRequest, "refresh_token is required")
		return
	}

	res, err := a.svc.Refresh(r.Context(), auth.RefreshInput{
		ApplicationSlug: app.Slug,
		RefreshToken:    req.RefreshToken,
	})
	if err != nil {
		outcome := handleAuthError(w, r, err)
		obs.ObserveAuthOperation("refresh", outcome)
		return
	}
	obs.ObserveAuthOperation("refresh", "ok")
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	app, ok := a.guardApplication(w, r)
	if !ok {
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.svc.Logout(r.Context(), auth.LogoutInput{
		ApplicationSlug: app.Slug,
		RefreshToken:    req.RefreshToken,
	}); err != nil {
		outcome := handleAuthError(w, r, err)
		obs.ObserveAuthOperation("logout", outcome)
		return
	}
	obs.ObserveAuthOperation("logout", "ok")
	w.WriteHeader(http.StatusNoContent)
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (a *API) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	app, ok := a.guardApplication(w, r)
	if !ok {
		return
	}
	var req forgotPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		writeError(w, r, http.StatusBadRequest, "email is required")
		return
	}

	if err := a.svc.ForgotPassword(r.Context(), auth.ForgotPasswordInput{
		ApplicationSlug: app.Slug,
		Email:           req.Email,
	}); err != nil {
		outcome := handleAuthError(w, r, err)
		obs.ObserveAuthOperation("forgot_password", outcome)
		return
	}
	obs.ObserveAuthOperation("forgot_password", "ok")
	// The response is identical whether or not the account exists.
	writeJSON(w, http.StatusAccepted, map[string]string{
		"message": "if the account exists, a recovery link has been sent",
	})
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (a *API) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	app, ok := a.guardApplication(w, r)
	if !ok {
		return
	}
	var req resetPasswordRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Token) == "" || req.Password == "" {
		writeError(w, r, http.StatusBadRequest, "token and password are required")
		return
	}

	if err := a.svc.ResetPassword(r.Context(), auth.ResetPasswordInput{
		ApplicationSlug: app.Slug,
		Token:           req.Token,
		Password:        req.Password,
	}); err != nil {
		outcome := handleAuthError(w, r, err)
		obs.ObserveAuthOperation("reset_password", outcome)
		return
	}
	obs.ObserveAuthOperation("reset_password", "ok")
	_ = audit.LogEvent(r.Context(), "auth.password_reset", map[string]any{
		"application": app.Slug,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated successfully"})
}
