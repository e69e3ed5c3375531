package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"authcore.org/internal/auth"
	"authcore.org/internal/obs"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

// statusForKind maps a workflow failure kind to an HTTP status.
func statusForKind(kind auth.Kind) int {
	switch kind {
	case auth.KindUnauthorized:
		return http.StatusUnauthorized
	case auth.KindForbidden:
		return http.StatusForbidden
	case auth.KindNotFound:
		return http.StatusNotFound
	case auth.KindConflict:
		return http.StatusConflict
	case auth.KindUnprocessable:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// handleAuthError writes the failure and returns its outcome label for
// metrics. Internal failures are logged and masked.
func handleAuthError(w http.ResponseWriter, r *http.Request, err error) string {
	kind := auth.KindOf(err)
	if kind == auth.KindInternal {
		obs.LogRequest(map[string]any{
			"level":      "error",
			"msg":        "request failed",
			"path":       r.URL.Path,
			"error":      err.Error(),
			"request_id": RequestIDFromContext(r.Context()),
		})
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return string(auth.KindInternal)
	}
	writeError(w, r, statusForKind(kind), err.Error())
	return string(kind)
}

type requestIDCtxKey struct{}

// RequestIDFromContext returns the request id assigned by the middleware.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDCtxKey{}).(string); ok {
		return v
	}
	return ""
}
