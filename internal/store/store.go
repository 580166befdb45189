// Package store provides the key-value backends behind the challenge persistence adapter.
// A backend holds many users; Store(scope) narrows it to one user's keys.
package store

import (
	"context"
	"errors"
	"strings"

	"github.com/br-silvano/moveit-next/internal/challenge"
)

// Backend is a scoped key-value store.
type Backend interface {
	Store(scope string) challenge.Store
	// Ping reports whether the backend can currently serve reads.
	Ping(ctx context.Context) error
	Close() error
}

var (
	// ErrMissingScope indicates an empty scope was supplied.
	ErrMissingScope = errors.New("store scope is required")
	// ErrMissingKey indicates an empty key was supplied.
	ErrMissingKey = errors.New("store key is required")
)

func checkScopeKey(scope, key string) error {
	if strings.TrimSpace(scope) == "" {
		return ErrMissingScope
	}
	if strings.TrimSpace(key) == "" {
		return ErrMissingKey
	}
	return nil
}
