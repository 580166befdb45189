// Package auth resolves the calling user from a bearer token or, for trusted internal
// callers, the X-User-ID header.
package auth

import (
	"context"
	"fmt"
)

// Mode selects how bearer tokens are verified.
type Mode string

const (
	// ModeClerk verifies Clerk-issued JWTs against a JWKS endpoint.
	ModeClerk Mode = "clerk"
	// ModeNoop accepts any non-empty token as the user ID. Local development and tests only.
	ModeNoop Mode = "noop"
)

// Config selects and tunes a Verifier.
type Config struct {
	Mode     Mode
	JWKSURL  string
	Audience string
	Issuer   string
}

// AuthenticatedUser is the subject a request runs on behalf of.
type AuthenticatedUser struct {
	UserID    string
	SessionID string
	ExpiresAt int64
	Token     string
}

// Verifier turns a bearer token into an AuthenticatedUser.
type Verifier interface {
	Verify(ctx context.Context, token string) (AuthenticatedUser, error)
}

// NewVerifier builds the Verifier for cfg.Mode.
func NewVerifier(cfg Config) (Verifier, error) {
	switch cfg.Mode {
	case ModeClerk:
		return newClerkVerifier(cfg)
	case ModeNoop:
		return noopVerifier{}, nil
	default:
		return nil, fmt.Errorf("unsupported auth mode: %s", cfg.Mode)
	}
}

type ctxKey struct{}

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, user AuthenticatedUser) context.Context {
	return context.WithValue(ctx, ctxKey{}, user)
}

// UserFromContext returns the user stored by Middleware or WithUser.
func UserFromContext(ctx context.Context) (AuthenticatedUser, bool) {
	value, ok := ctx.Value(ctxKey{}).(AuthenticatedUser)
	return value, ok
}
