package challenge

import (
	"context"
	"errors"
	"sync"
)

type mapStore struct {
	mu     sync.Mutex
	values map[string]string
	saves  int
	loadFn func(key string) (string, bool, error)
	saveFn func(key, value string) error
}

func newMapStore(values map[string]string) *mapStore {
	if values == nil {
		values = map[string]string{}
	}
	return &mapStore{values: values}
}

func (s *mapStore) Load(_ context.Context, key string) (string, bool, error) {
	if s.loadFn != nil {
		return s.loadFn(key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *mapStore) Save(_ context.Context, key, value string) error {
	if s.saveFn != nil {
		return s.saveFn(key, value)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.saves++
	return nil
}

func (s *mapStore) snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

var errStoreDown = errors.New("store down")

type fakeNotifier struct {
	permission Permission
	requested  int
	sent       []Notification
}

func (f *fakeNotifier) RequestPermission(context.Context) Permission {
	f.requested++
	return f.permission
}

func (f *fakeNotifier) Permission() Permission { return f.permission }

func (f *fakeNotifier) Notify(_ context.Context, n Notification) {
	f.sent = append(f.sent, n)
}

type fakePlayer struct {
	played []string
}

func (f *fakePlayer) Play(_ context.Context, asset string) {
	f.played = append(f.played, asset)
}

// fixedRandom always returns idx, wrapped into range.
type fixedRandom struct{ idx int }

func (f fixedRandom) IntN(n int) int { return f.idx % n }
