// Package auth resolves the learner behind an HTTP request. Identity is
// issued elsewhere; this package only verifies it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/felixgeelhaar/circuitscribe/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// LearnerHeader carries the learner id in header mode
const LearnerHeader = "X-Learner-ID"

// Modes
const (
	ModeJWT    = "jwt"
	ModeHeader = "header"
)

// Authenticator extracts a learner id from a request
type Authenticator interface {
	Authenticate(r *http.Request) (string, error)
}

// New returns the authenticator for mode
func New(mode, secret, issuer string) (Authenticator, error) {
	switch mode {
	case ModeJWT, "":
		if secret == "" {
			return nil, errors.New("jwt auth requires a secret")
		}
		return NewJWT([]byte(secret), issuer), nil
	case ModeHeader:
		return HeaderAuthenticator{}, nil
	default:
		return nil, fmt.Errorf("unknown auth mode %q", mode)
	}
}

// JWTAuthenticator validates HS256 bearer tokens and uses the subject as learner id
type JWTAuthenticator struct {
	secret []byte
	issuer string
}

// NewJWT creates a JWT authenticator. An empty issuer accepts any issuer.
func NewJWT(secret []byte, issuer string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: secret, issuer: issuer}
}

// Authenticate validates the bearer token on r
func (a *JWTAuthenticator) Authenticate(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || token == "" {
		return "", fmt.Errorf("%w: missing bearer token", domain.ErrUnauthorized)
	}
	return a.Verify(token)
}

// Verify parses a token and returns its subject
func (a *JWTAuthenticator) Verify(token string) (string, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("%w: invalid token", domain.ErrUnauthorized)
	}

	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return "", fmt.Errorf("%w: token has no subject", domain.ErrUnauthorized)
	}
	return subject, nil
}

// Issue signs a token for learnerID valid for ttl
func (a *JWTAuthenticator) Issue(learnerID string, ttl time.Duration) (string, error) {
	if learnerID == "" {
		return "", fmt.Errorf("%w: learner id is empty", domain.ErrInvalidInput)
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   learnerID,
		Issuer:    a.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// HeaderAuthenticator trusts the X-Learner-ID header. Development only.
type HeaderAuthenticator struct{}

// Authenticate reads the learner header
func (HeaderAuthenticator) Authenticate(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(LearnerHeader))
	if id == "" {
		return "", fmt.Errorf("%w: missing %s header", domain.ErrUnauthorized, LearnerHeader)
	}
	return id, nil
}

type learnerKey struct{}

// WithLearner stores the learner id in ctx
func WithLearner(ctx context.Context, learnerID string) context.Context {
	return context.WithValue(ctx, learnerKey{}, learnerID)
}

// LearnerFrom returns the learner id stored by WithLearner
func LearnerFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(learnerKey{}).(string)
	return id, ok && id != ""
}
