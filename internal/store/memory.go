package store

import (
	"context"
	"sync"

	"github.com/br-silvano/moveit-next/internal/challenge"
)

type memoryBackend struct {
	mu    sync.RWMutex
	store map[string]map[string]string // scope -> key -> value
}

// NewMemory returns an in-memory backend intended for local development and tests.
func NewMemory() Backend {
	return &memoryBackend{
		store: make(map[string]map[string]string),
	}
}

func (b *memoryBackend) Store(scope string) challenge.Store {
	return scoped{scope: scope, backend: b}
}

func (b *memoryBackend) Ping(context.Context) error {
	return nil
}

func (b *memoryBackend) Close() error {
	return nil
}

func (b *memoryBackend) load(_ context.Context, scope, key string) (string, bool, error) {
	if err := checkScopeKey(scope, key); err != nil {
		return "", false, err
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	values, ok := b.store[scope]
	if !ok {
		return "", false, nil
	}
	value, ok := values[key]
	return value, ok, nil
}

func (b *memoryBackend) save(_ context.Context, scope, key, value string) error {
	if err := checkScopeKey(scope, key); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	values, ok := b.store[scope]
	if !ok {
		values = make(map[string]string)
		b.store[scope] = values
	}
	values[key] = value
	return nil
}

// scopedBackend is implemented by every backend so scoped can adapt it to challenge.Store.
type scopedBackend interface {
	load(ctx context.Context, scope, key string) (string, bool, error)
	save(ctx context.Context, scope, key, value string) error
}

type scoped struct {
	scope   string
	backend scopedBackend
}

func (s scoped) Load(ctx context.Context, key string) (string, bool, error) {
	return s.backend.load(ctx, s.scope, key)
}

func (s scoped) Save(ctx context.Context, key, value string) error {
	return s.backend.save(ctx, s.scope, key, value)
}
