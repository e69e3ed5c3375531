package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"authcore.org/internal/auth"
)

const (
	authHeader = "Authorization"
	bearer     = "Bearer "
)

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearer)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearer):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return
	}
	claims, err := a.svc.Issuer().Parse(token)
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}
	// Access tokens carry their application scope; no client headers here.
	if claims.ApplicationSlug == "" {
		writeError(w, r, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx := auth.ContextWithSubject(r.Context(), auth.Subject{
		UserID:          claims.Subject,
		Email:           claims.Email,
		ApplicationSlug: claims.ApplicationSlug,
		Role:            claims.Role,
	})
	res, err := a.svc.Me(ctx, auth.MeInput{
		UserPublicID:    claims.Subject,
		ApplicationSlug: claims.ApplicationSlug,
	})
	if err != nil {
		handleAuthError(w, r.WithContext(ctx), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
