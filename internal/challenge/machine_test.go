package challenge

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func testCatalog(t *testing.T, amounts ...int) *Catalog {
	t.Helper()
	defs := make([]Definition, 0, len(amounts))
	for i, amount := range amounts {
		kind := KindBody
		if i%2 == 1 {
			kind = KindEye
		}
		defs = append(defs, Definition{Kind: kind, Description: "challenge", Amount: amount})
	}
	catalog, err := NewCatalog(defs)
	require.NoError(t, err)
	return catalog
}

func newTestMachine(t *testing.T, opts Options) *Machine {
	t.Helper()
	m, err := NewMachine(context.Background(), opts)
	require.NoError(t, err)
	return m
}

func TestExperienceToNextLevel(t *testing.T) {
	for level := 1; level <= 100; level++ {
		want := ((level + 1) * 4) * ((level + 1) * 4)
		require.Equal(t, want, ExperienceToNextLevel(level), "level %d", level)
	}
	require.Equal(t, 64, ExperienceToNextLevel(1))
	require.Equal(t, 144, ExperienceToNextLevel(2))
}

func TestNewMachineRequiresCatalog(t *testing.T) {
	_, err := NewMachine(context.Background(), Options{})
	require.ErrorIs(t, err, ErrMissingCatalog)
}

func TestNewMachineDefaults(t *testing.T) {
	notifier := &fakeNotifier{permission: PermissionGranted}
	m := newTestMachine(t, Options{Catalog: testCatalog(t, 4), Store: newMapStore(nil), Notifier: notifier})

	require.Equal(t, Snapshot{
		Level:                 1,
		CurrentExperience:     0,
		ExperienceToNextLevel: 64,
		ChallengesCompleted:   0,
	}, m.Snapshot())
	require.Equal(t, 1, notifier.requested)
}

func TestNewMachineSurvivesStoreFailure(t *testing.T) {
	store := newMapStore(nil)
	store.loadFn = func(string) (string, bool, error) { return "", false, errStoreDown }
	store.saveFn = func(string, string) error { return errStoreDown }

	m := newTestMachine(t, Options{Catalog: testCatalog(t, 4), Store: store, Random: fixedRandom{}})
	m.StartNewChallenge(context.Background())
	_, ok := m.CompleteChallenge(context.Background())

	require.True(t, ok)
	require.Equal(t, Progress{Level: 1, CurrentExperience: 4, ChallengesCompleted: 1}, m.Progress())
}

func TestCompleteChallengeWithoutActiveIsNoop(t *testing.T) {
	store := newMapStore(map[string]string{KeyLevel: "3", KeyCurrentExperience: "10", KeyChallengesCompleted: "5"})
	m := newTestMachine(t, Options{Catalog: testCatalog(t, 4), Store: store})
	before := m.Snapshot()

	for i := 0; i < 3; i++ {
		_, ok := m.CompleteChallenge(context.Background())
		require.False(t, ok)
	}

	require.Equal(t, before, m.Snapshot())
	require.Zero(t, store.saves)
}

func TestCompleteChallengeWithoutLevelUp(t *testing.T) {
	store := newMapStore(nil)
	m := newTestMachine(t, Options{Catalog: testCatalog(t, 4), Store: store, Random: fixedRandom{}})

	m.StartNewChallenge(context.Background())
	completion, ok := m.CompleteChallenge(context.Background())

	require.True(t, ok)
	require.False(t, completion.LeveledUp)
	require.Equal(t, 4, completion.Awarded)

	snap := m.Snapshot()
	require.Equal(t, 1, snap.Level)
	require.Equal(t, 4, snap.CurrentExperience)
	require.Equal(t, 1, snap.ChallengesCompleted)
	require.Nil(t, snap.ActiveChallenge)
	require.False(t, snap.LevelUpModalOpen)

	require.Equal(t, map[string]string{
		KeyLevel:               "1",
		KeyCurrentExperience:   "4",
		KeyChallengesCompleted: "1",
	}, store.snapshot())
}

func TestCompleteChallengeLevelsUp(t *testing.T) {
	store := newMapStore(map[string]string{KeyLevel: "1", KeyCurrentExperience: "60"})
	m := newTestMachine(t, Options{Catalog: testCatalog(t, 10), Store: store, Random: fixedRandom{}})

	m.StartNewChallenge(context.Background())
	completion, ok := m.CompleteChallenge(context.Background())

	require.True(t, ok)
	require.True(t, completion.LeveledUp)
	require.Equal(t, 2, completion.Level)

	snap := m.Snapshot()
	require.Equal(t, 2, snap.Level)
	require.Equal(t, 6, snap.CurrentExperience)
	require.Equal(t, 144, snap.ExperienceToNextLevel)
	require.Equal(t, 1, snap.ChallengesCompleted)
	require.True(t, snap.LevelUpModalOpen)
	require.Equal(t, "2", store.snapshot()[KeyLevel])
}

func TestCompleteChallengeExactThreshold(t *testing.T) {
	store := newMapStore(map[string]string{KeyCurrentExperience: "54"})
	m := newTestMachine(t, Options{Catalog: testCatalog(t, 10), Store: store, Random: fixedRandom{}})

	m.StartNewChallenge(context.Background())
	m.CompleteChallenge(context.Background())

	snap := m.Snapshot()
	require.Equal(t, 2, snap.Level)
	require.Equal(t, 0, snap.CurrentExperience)
}

// An award that crosses two thresholds still grants a single level and keeps the surplus
// computed against the first threshold. Changing this is a product decision.
func TestCompleteChallengeGainsOnlyOneLevelPerCompletion(t *testing.T) {
	m := newTestMachine(t, Options{Catalog: testCatalog(t, 250), Store: newMapStore(nil), Random: fixedRandom{}})

	m.StartNewChallenge(context.Background())
	completion, ok := m.CompleteChallenge(context.Background())
	require.True(t, ok)
	require.True(t, completion.LeveledUp)

	snap := m.Snapshot()
	require.Equal(t, 2, snap.Level)
	require.Equal(t, 250-64, snap.CurrentExperience)
	require.GreaterOrEqual(t, snap.CurrentExperience, snap.ExperienceToNextLevel)
}

func TestStartNewChallengeSideEffects(t *testing.T) {
	tests := []struct {
		name       string
		permission Permission
		wantNotify bool
	}{
		{name: "granted", permission: PermissionGranted, wantNotify: true},
		{name: "denied", permission: PermissionDenied},
		{name: "not asked", permission: PermissionDefault},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &fakeNotifier{permission: tt.permission}
			player := &fakePlayer{}
			m := newTestMachine(t, Options{
				Catalog:  testCatalog(t, 80, 90),
				Notifier: notifier,
				Player:   player,
				Random:   fixedRandom{idx: 1},
			})

			def := m.StartNewChallenge(context.Background())

			require.Equal(t, 90, def.Amount)
			require.Equal(t, []string{DefaultSoundAsset}, player.played)
			if tt.wantNotify {
				require.Equal(t, []Notification{{Title: "Novo desafio", Body: "Valendo 90xp!", Amount: 90}}, notifier.sent)
			} else {
				require.Empty(t, notifier.sent)
			}
		})
	}
}

func TestStartNewChallengeUsesConfiguredAsset(t *testing.T) {
	player := &fakePlayer{}
	m := newTestMachine(t, Options{Catalog: testCatalog(t, 10), Player: player, SoundAsset: "/sounds/ding.ogg"})

	m.StartNewChallenge(context.Background())
	require.Equal(t, []string{"/sounds/ding.ogg"}, player.played)
}

func TestStartNewChallengeReplacesActive(t *testing.T) {
	store := newMapStore(nil)
	random := &sequenceRandom{values: []int{0, 1}}
	m := newTestMachine(t, Options{Catalog: testCatalog(t, 10, 20), Store: store, Random: random})

	m.StartNewChallenge(context.Background())
	m.StartNewChallenge(context.Background())

	snap := m.Snapshot()
	require.NotNil(t, snap.ActiveChallenge)
	require.Equal(t, 20, snap.ActiveChallenge.Amount)
	require.Zero(t, snap.ChallengesCompleted)
	require.Zero(t, store.saves)
}

func TestStartNewChallengeVisitsWholeCatalog(t *testing.T) {
	catalog, err := LoadBundledCatalog()
	require.NoError(t, err)
	m := newTestMachine(t, Options{Catalog: catalog, Random: NewRandom(42)})

	seen := make(map[Definition]int)
	for i := 0; i < 10_000; i++ {
		def := m.StartNewChallenge(context.Background())
		require.True(t, catalog.Contains(def))
		seen[def]++
	}

	for _, def := range catalog.All() {
		require.NotZero(t, seen[def], "definition never selected: %s", def.Description)
	}
}

func TestNewRandomIsDeterministic(t *testing.T) {
	a, b := NewRandom(7), NewRandom(7)
	for i := 0; i < 100; i++ {
		require.Equal(t, a.IntN(12), b.IntN(12))
	}
}

func TestResetChallengeAfterStart(t *testing.T) {
	store := newMapStore(map[string]string{KeyLevel: "2", KeyCurrentExperience: "7", KeyChallengesCompleted: "3"})
	m := newTestMachine(t, Options{Catalog: testCatalog(t, 10), Store: store})
	before := m.Snapshot()

	m.StartNewChallenge(context.Background())
	require.NotNil(t, m.Snapshot().ActiveChallenge)

	m.ResetChallenge()
	require.Equal(t, before, m.Snapshot())
	require.Zero(t, store.saves)

	m.ResetChallenge()
	require.Nil(t, m.Snapshot().ActiveChallenge)
}

func TestLevelUpAndCloseModal(t *testing.T) {
	store := newMapStore(map[string]string{KeyCurrentExperience: "30"})
	m := newTestMachine(t, Options{Catalog: testCatalog(t, 10), Store: store})

	m.LevelUp(context.Background())
	snap := m.Snapshot()
	require.Equal(t, 2, snap.Level)
	require.Equal(t, 30, snap.CurrentExperience)
	require.Equal(t, 144, snap.ExperienceToNextLevel)
	require.True(t, snap.LevelUpModalOpen)
	require.Equal(t, "2", store.snapshot()[KeyLevel])

	m.CloseLevelUpModal()
	require.False(t, m.Snapshot().LevelUpModalOpen)
	require.Equal(t, 2, m.Snapshot().Level)
}

func TestModalIndependentOfActiveChallenge(t *testing.T) {
	m := newTestMachine(t, Options{Catalog: testCatalog(t, 10)})

	m.LevelUp(context.Background())
	m.StartNewChallenge(context.Background())
	m.CloseLevelUpModal()

	snap := m.Snapshot()
	require.NotNil(t, snap.ActiveChallenge)
	require.False(t, snap.LevelUpModalOpen)
}

func TestProgressRoundTrip(t *testing.T) {
	store := newMapStore(nil)
	catalog := testCatalog(t, 40)

	first := newTestMachine(t, Options{Catalog: catalog, Store: store, Random: fixedRandom{}})
	for i := 0; i < 5; i++ {
		first.StartNewChallenge(context.Background())
		first.CompleteChallenge(context.Background())
	}
	want := first.Progress()
	require.Equal(t, Progress{Level: 2, CurrentExperience: 136, ChallengesCompleted: 5}, want)

	second := newTestMachine(t, Options{Catalog: catalog, Store: store})
	require.Equal(t, want, second.Progress())
	require.Nil(t, second.Snapshot().ActiveChallenge)
	require.False(t, second.Snapshot().LevelUpModalOpen)
}

func TestSnapshotDoesNotExposeInternalState(t *testing.T) {
	m := newTestMachine(t, Options{Catalog: testCatalog(t, 10), Random: fixedRandom{}})
	m.StartNewChallenge(context.Background())

	snap := m.Snapshot()
	snap.ActiveChallenge.Amount = 1000

	require.Equal(t, 10, m.Snapshot().ActiveChallenge.Amount)
}

type sequenceRandom struct {
	values []int
	next   int
}

func (s *sequenceRandom) IntN(n int) int {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v % n
}
