package challenge

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

const (
	// NotificationTitle is the fixed title of the "new challenge" notification.
	NotificationTitle = "Novo desafio"
	// DefaultSoundAsset is played whenever a challenge starts.
	DefaultSoundAsset = "/notification.mp3"
)

// NotificationBody renders the notification text for a challenge reward.
func NotificationBody(amount int) string {
	return fmt.Sprintf("Valendo %dxp!", amount)
}

// NewRandom returns a seedable random source. A zero seed picks one from the clock.
func NewRandom(seed uint64) *rand.Rand {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Options wires a Machine to its catalog and collaborators. Only Catalog is required.
type Options struct {
	Catalog    *Catalog
	Store      Store
	Notifier   Notifier
	Player     SoundPlayer
	Random     RandomSource
	SoundAsset string
	Logger     *slog.Logger
}

// Machine owns one session's challenge state. It is not safe for concurrent use;
// callers serialise events.
type Machine struct {
	catalog    *Catalog
	store      Store
	notifier   Notifier
	player     SoundPlayer
	random     RandomSource
	soundAsset string
	logger     *slog.Logger

	level               int
	currentExperience   int
	challengesCompleted int
	activeChallenge     *Definition
	levelUpModalOpen    bool
}

// NewMachine seeds a machine from the store and requests notification permission once.
func NewMachine(ctx context.Context, opts Options) (*Machine, error) {
	if opts.Catalog == nil || opts.Catalog.Len() == 0 {
		return nil, ErrMissingCatalog
	}

	m := &Machine{
		catalog:    opts.Catalog,
		store:      opts.Store,
		notifier:   opts.Notifier,
		player:     opts.Player,
		random:     opts.Random,
		soundAsset: opts.SoundAsset,
		logger:     opts.Logger,
	}
	if m.notifier == nil {
		m.notifier = nopNotifier{}
	}
	if m.player == nil {
		m.player = nopPlayer{}
	}
	if m.random == nil {
		m.random = NewRandom(0)
	}
	if m.soundAsset == "" {
		m.soundAsset = DefaultSoundAsset
	}
	if m.logger == nil {
		m.logger = slog.New(slog.DiscardHandler)
	}

	progress, err := LoadProgress(ctx, m.store)
	if err != nil {
		m.logger.Warn("failed to load progress, using defaults", slog.Any("error", err))
	}
	m.level = progress.Level
	m.currentExperience = progress.CurrentExperience
	m.challengesCompleted = progress.ChallengesCompleted

	permission := m.notifier.RequestPermission(ctx)
	m.logger.Debug("notification permission requested", slog.String("permission", string(permission)))

	return m, nil
}

// Snapshot returns the current state, including the derived threshold.
func (m *Machine) Snapshot() Snapshot {
	var active *Definition
	if m.activeChallenge != nil {
		def := *m.activeChallenge
		active = &def
	}
	return Snapshot{
		Level:                 m.level,
		CurrentExperience:     m.currentExperience,
		ExperienceToNextLevel: ExperienceToNextLevel(m.level),
		ChallengesCompleted:   m.challengesCompleted,
		ActiveChallenge:       active,
		LevelUpModalOpen:      m.levelUpModalOpen,
	}
}

// Progress returns the persisted part of the state.
func (m *Machine) Progress() Progress {
	return Progress{
		Level:               m.level,
		CurrentExperience:   m.currentExperience,
		ChallengesCompleted: m.challengesCompleted,
	}
}

// Catalog returns the catalog the machine draws from.
func (m *Machine) Catalog() *Catalog {
	return m.catalog
}

// StartNewChallenge activates a uniformly random definition, replacing any active one,
// then plays the sound and notifies when permission was granted.
func (m *Machine) StartNewChallenge(ctx context.Context) Definition {
	def := m.catalog.At(m.random.IntN(m.catalog.Len()))
	m.activeChallenge = &def

	m.player.Play(ctx, m.soundAsset)

	if m.notifier.Permission() == PermissionGranted {
		m.notifier.Notify(ctx, Notification{
			Title:  NotificationTitle,
			Body:   NotificationBody(def.Amount),
			Amount: def.Amount,
		})
	}

	m.logger.Debug("challenge started", slog.String("kind", string(def.Kind)), slog.Int("amount", def.Amount))
	return def
}

// CompleteChallenge awards the active challenge. It reports false and changes nothing
// when no challenge is active.
//
// At most one level is gained per completion: the surplus is computed against the
// threshold of the level the user was at, even if it still exceeds the next threshold.
func (m *Machine) CompleteChallenge(ctx context.Context) (Completion, bool) {
	if m.activeChallenge == nil {
		return Completion{}, false
	}

	def := *m.activeChallenge
	finalExperience := m.currentExperience + def.Amount
	threshold := ExperienceToNextLevel(m.level)

	leveledUp := false
	if finalExperience >= threshold {
		finalExperience -= threshold
		m.levelUp()
		leveledUp = true
	}

	m.currentExperience = finalExperience
	m.activeChallenge = nil
	m.challengesCompleted++
	m.persist(ctx)

	return Completion{
		Challenge: def,
		Awarded:   def.Amount,
		LeveledUp: leveledUp,
		Level:     m.level,
	}, true
}

// ResetChallenge drops the active challenge without touching any counter.
func (m *Machine) ResetChallenge() {
	m.activeChallenge = nil
}

// LevelUp increments the level and opens the level-up modal.
func (m *Machine) LevelUp(ctx context.Context) {
	m.levelUp()
	m.persist(ctx)
}

// CloseLevelUpModal hides the level-up modal.
func (m *Machine) CloseLevelUpModal() {
	m.levelUpModalOpen = false
}

func (m *Machine) levelUp() {
	m.level++
	m.levelUpModalOpen = true
}

func (m *Machine) persist(ctx context.Context) {
	if err := SaveProgress(ctx, m.store, m.Progress()); err != nil {
		m.logger.Warn("failed to persist progress", slog.Any("error", err))
	}
}

type nopNotifier struct{}

func (nopNotifier) RequestPermission(context.Context) Permission { return PermissionDenied }
func (nopNotifier) Permission() Permission                       { return PermissionDenied }
func (nopNotifier) Notify(context.Context, Notification)         {}

type nopPlayer struct{}

func (nopPlayer) Play(context.Context, string) {}
