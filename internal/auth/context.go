package auth

import (
	"context"
	"strings"
)

type ctxKey string

const subjectKey ctxKey = "auth_subject"

// Subject is the authenticated principal attached to a request context by
// the bearer middleware. UserID is the public identifier from the token.
type Subject struct {
	UserID          string
	Email           string
	ApplicationSlug string
	Role            string
}

// ContextWithSubject attaches the authenticated subject to the context.
func ContextWithSubject(ctx context.Context, sub Subject) context.Context {
	if strings.TrimSpace(sub.UserID) == "" {
		return ctx
	}
	return context.WithValue(ctx, subjectKey, sub)
}

// SubjectFromContext extracts the authenticated subject, if any.
func SubjectFromContext(ctx context.Context) (Subject, bool) {
	if ctx == nil {
		return Subject{}, false
	}
	sub, ok := ctx.Value(subjectKey).(Subject)
	return sub, ok
}

// UserIDFromContext returns the authenticated user's public id.
func UserIDFromContext(ctx context.Context) (string, bool) {
	sub, ok := SubjectFromContext(ctx)
	if !ok {
		return "", false
	}
	return sub.UserID, true
}
