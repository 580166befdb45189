package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/br-silvano/moveit-next/internal/challenge"
)

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "moveit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Backend{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func TestBackendLoadSave(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := backend.Store("user-1")

			_, ok, err := store.Load(ctx, challenge.KeyLevel)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, store.Save(ctx, challenge.KeyLevel, "3"))
			require.NoError(t, store.Save(ctx, challenge.KeyLevel, "4"))

			value, ok, err := store.Load(ctx, challenge.KeyLevel)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, "4", value)
		})
	}
}

func TestBackendScopesAreIsolated(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, backend.Store("alice").Save(ctx, challenge.KeyCurrentExperience, "12"))

			_, ok, err := backend.Store("bob").Load(ctx, challenge.KeyCurrentExperience)
			require.NoError(t, err)
			require.False(t, ok)
		})
	}
}

func TestBackendRejectsEmptyScopeAndKey(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.ErrorIs(t, backend.Store(" ").Save(ctx, challenge.KeyLevel, "1"), ErrMissingScope)

			_, _, err := backend.Store("user").Load(ctx, "")
			require.ErrorIs(t, err, ErrMissingKey)
		})
	}
}

func TestBackendProgressRoundTrip(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			want := challenge.Progress{Level: 5, CurrentExperience: 17, ChallengesCompleted: 42}

			require.NoError(t, challenge.SaveProgress(ctx, backend.Store("user-rt"), want))
			got, err := challenge.LoadProgress(ctx, backend.Store("user-rt"))
			require.NoError(t, err)
			require.Equal(t, want, got)
		})
	}
}

func TestBackendConcurrentWrites(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					assert.NoError(t, challenge.SaveProgress(ctx, backend.Store("busy"), challenge.Progress{Level: 2, CurrentExperience: 1, ChallengesCompleted: 1}))
				}()
			}
			wg.Wait()

			got, err := challenge.LoadProgress(ctx, backend.Store("busy"))
			require.NoError(t, err)
			require.Equal(t, challenge.Progress{Level: 2, CurrentExperience: 1, ChallengesCompleted: 1}, got)
		})
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	_, err := OpenSQLite("  ")
	require.Error(t, err)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "moveit.db")
	ctx := context.Background()

	first, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, first.Store("me").Save(ctx, challenge.KeyChallengesCompleted, "9"))
	require.NoError(t, first.Close())

	second, err := OpenSQLite(path)
	require.NoError(t, err)
	defer second.Close()

	value, ok, err := second.Store("me").Load(ctx, challenge.KeyChallengesCompleted)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "9", value)
}

func TestBackendPing(t *testing.T) {
	for name, backend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, backend.Ping(context.Background()))
		})
	}

	closed, err := OpenSQLite(filepath.Join(t.TempDir(), "closed.db"))
	require.NoError(t, err)
	require.NoError(t, closed.Close())
	require.Error(t, closed.Ping(context.Background()))
}
