package httpapi

import (
	"net/http"
	"strings"

	"authcore.org/internal/audit"
	"authcore.org/internal/auth"
)

// guardClient authenticates the caller for provisioning endpoints, which
// are not scoped to one application.
func (a *API) guardClient(w http.ResponseWriter, r *http.Request) bool {
	_, err := a.svc.EnsureClientAccess(r.Context(), auth.ClientCredentials{
		ClientID:     r.Header.Get(headerClientID),
		ClientSecret: r.Header.Get(headerClientSecret),
	})
	if err != nil {
		handleAuthError(w, r, err)
		return false
	}
	return true
}

type createApplicationRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type applicationResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Slug   string `json:"slug"`
	Status string `json:"status"`
}

func (a *API) handleCreateApplication(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.guardClient(w, r) {
		return
	}
	var req createApplicationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}

	app, err := a.svc.CreateApplication(r.Context(), auth.CreateApplicationInput{
		Name: req.Name,
		Slug: req.Slug,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.application_created", map[string]any{
		"application": app.Slug,
	})
	writeJSON(w, http.StatusCreated, applicationResponse{
		ID:     app.PublicID,
		Name:   app.Name,
		Slug:   app.Slug,
		Status: app.Status,
	})
}

type createClientRequest struct {
	Name         string `json:"name"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

func (a *API) handleCreateClient(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.guardClient(w, r) {
		return
	}
	var req createClientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, http.StatusBadRequest, "name is required")
		return
	}

	// The response carries the plaintext secret exactly once.
	res, err := a.svc.CreateAuthClient(r.Context(), auth.CreateAuthClientInput{
		Name:         req.Name,
		ClientID:     req.ClientID,
		ClientSecret: req.ClientSecret,
	})
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.client_created", map[string]any{
		"client_id": res.ClientID,
	})
	writeJSON(w, http.StatusCreated, res)
}

type grantClientRequest struct {
	ClientID        string `json:"client_id"`
	ApplicationSlug string `json:"application_slug"`
}

func (a *API) handleGrantClientAccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.guardClient(w, r) {
		return
	}
	var req grantClientRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.ClientID) == "" || strings.TrimSpace(req.ApplicationSlug) == "" {
		writeError(w, r, http.StatusBadRequest, "client_id and application_slug are required")
		return
	}

	if err := a.svc.GrantClientAccess(r.Context(), req.ClientID, req.ApplicationSlug); err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.client_access_granted", map[string]any{
		"client_id":   req.ClientID,
		"application": req.ApplicationSlug,
	})
	w.WriteHeader(http.StatusNoContent)
}

type grantUserRequest struct {
	UserID          string `json:"user_id"`
	ApplicationSlug string `json:"application_slug"`
	Role            string `json:"role"`
}

func (a *API) handleGrantUserAccess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.guardClient(w, r) {
		return
	}
	var req grantUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.UserID) == "" || strings.TrimSpace(req.ApplicationSlug) == "" {
		writeError(w, r, http.StatusBadRequest, "user_id and application_slug are required")
		return
	}

	if err := a.svc.GrantUserAccess(r.Context(), req.UserID, req.ApplicationSlug, req.Role); err != nil {
		handleAuthError(w, r, err)
		return
	}
	_ = audit.LogEvent(r.Context(), "admin.user_access_granted", map[string]any{
		"user_id":     req.UserID,
		"application": req.ApplicationSlug,
		"role":        req.Role,
	})
	w.WriteHeader(http.StatusNoContent)
}
