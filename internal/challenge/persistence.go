package challenge

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// Persisted keys, stored as decimal integer text.
const (
	KeyLevel               = "level"
	KeyCurrentExperience   = "currentExperience"
	KeyChallengesCompleted = "challengesCompleted"
)

// KeyNotificationPermission holds the user's last answer to the notification prompt.
const KeyNotificationPermission = "notificationPermission"

// Store is the persistence adapter. A missing key is reported with ok=false, never as an error.
type Store interface {
	Load(ctx context.Context, key string) (value string, ok bool, err error)
	Save(ctx context.Context, key, value string) error
}

// Progress holds the three persisted counters.
type Progress struct {
	Level               int `json:"level"`
	CurrentExperience   int `json:"current_experience"`
	ChallengesCompleted int `json:"challenges_completed"`
}

// DefaultProgress is used for every key that has no stored value.
func DefaultProgress() Progress {
	return Progress{Level: 1}
}

// LoadProgress reads the three keys independently. Keys that are missing, unreadable or
// unparsable keep their default; the first read error is returned for logging only.
func LoadProgress(ctx context.Context, store Store) (Progress, error) {
	progress := DefaultProgress()
	if store == nil {
		return progress, nil
	}

	level, experience, completions := progress.Level, progress.CurrentExperience, progress.ChallengesCompleted

	var g errgroup.Group
	g.Go(func() error { return loadInt(ctx, store, KeyLevel, &level) })
	g.Go(func() error { return loadInt(ctx, store, KeyCurrentExperience, &experience) })
	g.Go(func() error { return loadInt(ctx, store, KeyChallengesCompleted, &completions) })
	err := g.Wait()

	if level >= 1 {
		progress.Level = level
	}
	if experience >= 0 {
		progress.CurrentExperience = experience
	}
	if completions >= 0 {
		progress.ChallengesCompleted = completions
	}
	return progress, err
}

func loadInt(ctx context.Context, store Store, key string, dst *int) error {
	raw, ok, err := store.Load(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("parse %s: %w", key, err)
	}
	*dst = v
	return nil
}

// SaveProgress writes all three keys. Writes are independent: a failure on one key does not
// prevent the others, so the store may end up partially updated.
func SaveProgress(ctx context.Context, store Store, progress Progress) error {
	if store == nil {
		return nil
	}

	var g errgroup.Group
	g.Go(func() error { return saveInt(ctx, store, KeyLevel, progress.Level) })
	g.Go(func() error { return saveInt(ctx, store, KeyCurrentExperience, progress.CurrentExperience) })
	g.Go(func() error { return saveInt(ctx, store, KeyChallengesCompleted, progress.ChallengesCompleted) })
	return g.Wait()
}

func saveInt(ctx context.Context, store Store, key string, value int) error {
	if err := store.Save(ctx, key, strconv.Itoa(value)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// LoadPermission reads the stored notification permission. ok is false when the user has
// never answered or the stored value is not a known permission.
func LoadPermission(ctx context.Context, store Store) (Permission, bool, error) {
	if store == nil {
		return "", false, nil
	}
	raw, ok, err := store.Load(ctx, KeyNotificationPermission)
	if err != nil {
		return "", false, fmt.Errorf("load %s: %w", KeyNotificationPermission, err)
	}
	if !ok {
		return "", false, nil
	}
	p, err := ParsePermission(raw)
	if err != nil {
		return "", false, fmt.Errorf("parse %s: %w", KeyNotificationPermission, err)
	}
	return p, true, nil
}

// SavePermission stores the user's answer to the notification prompt.
func SavePermission(ctx context.Context, store Store, p Permission) error {
	if store == nil {
		return nil
	}
	if err := store.Save(ctx, KeyNotificationPermission, string(p)); err != nil {
		return fmt.Errorf("save %s: %w", KeyNotificationPermission, err)
	}
	return nil
}
