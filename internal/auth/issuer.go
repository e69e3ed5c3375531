package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken indicates an access token failed validation.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims are the signed claims carried by an access token.
type AccessClaims struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	ApplicationSlug string `json:"application_slug"`
	Role            string `json:"role"`
	jwt.RegisteredClaims
}

// SessionIssuer mints and verifies signed, time-boxed access tokens.
type SessionIssuer interface {
	Sign(claims AccessClaims, ttl time.Duration) (string, error)
	Parse(token string) (*AccessClaims, error)
}

// JWTIssuer implements SessionIssuer with HS256 JWTs.
type JWTIssuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTIssuer constructs an issuer. The secret must be non-empty.
func NewJWTIssuer(secret, issuer string) (*JWTIssuer, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	return &JWTIssuer{secret: []byte(secret), issuer: issuer, now: time.Now}, nil
}

func (i *JWTIssuer) Sign(claims AccessClaims, ttl time.Duration) (string, error) {
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("subject is required")
	}
	if ttl <= 0 {
		return "", errors.New("ttl must be greater than zero")
	}
	now := i.now().UTC()
	claims.Issuer = i.issuer
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	claims.ID = uuid.NewString()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

func (i *JWTIssuer) Parse(token string) (*AccessClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return i.secret, nil
	}, jwt.WithIssuer(i.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
