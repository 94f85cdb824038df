// Package auth validates API keys for the governance HTTP surface.
package auth

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrMissingAPIKey   = errors.New("missing authorization header")
	ErrInvalidAPIKey   = errors.New("invalid API key")
	ErrAuthUnavailable = errors.New("authentication backend unavailable")
)

// ClientContext holds the authenticated client's identity and role.
type ClientContext struct {
	ClientID string
	Name     string
	Role     string // "agent" (submit actions) or "reviewer" (approve/reject)
}

// Authenticator validates a bearer token and returns the client context.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*ClientContext, error)
}

// StaticAuthenticator validates key format only: the key must carry the
// "wsk_" prefix. Used when no database is configured (local development).
type StaticAuthenticator struct{}

func NewStaticAuthenticator() *StaticAuthenticator {
	return &StaticAuthenticator{}
}

func (a *StaticAuthenticator) Authenticate(_ context.Context, token string) (*ClientContext, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingAPIKey
	}
	if !strings.HasPrefix(token, "wsk_") {
		return nil, ErrInvalidAPIKey
	}
	return &ClientContext{
		ClientID: "local",
		Name:     "local",
		Role:     "reviewer",
	}, nil
}
