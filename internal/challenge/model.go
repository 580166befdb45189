package challenge

import (
	"context"
	"fmt"
)

// Kind identifies the category of a challenge.
type Kind string

const (
	KindBody Kind = "body"
	KindEye  Kind = "eye"
)

// knownKinds is the closed set accepted when a catalog is loaded.
var knownKinds = map[Kind]struct{}{
	KindBody: {},
	KindEye:  {},
}

// Definition is a static challenge template drawn from the catalog.
type Definition struct {
	Kind        Kind   `json:"type" validate:"required,challenge_kind"`
	Description string `json:"description" validate:"required"`
	Amount      int    `json:"amount" validate:"gt=0"`
}

// Snapshot is a read-only view of the state machine handed to UI collaborators.
type Snapshot struct {
	Level                 int         `json:"level"`
	CurrentExperience     int         `json:"current_experience"`
	ExperienceToNextLevel int         `json:"experience_to_next_level"`
	ChallengesCompleted   int         `json:"challenges_completed"`
	ActiveChallenge       *Definition `json:"active_challenge"`
	LevelUpModalOpen      bool        `json:"level_up_modal_open"`
}

// Completion describes the outcome of completing the active challenge.
type Completion struct {
	Challenge Definition `json:"challenge"`
	Awarded   int        `json:"awarded"`
	LeveledUp bool       `json:"leveled_up"`
	Level     int        `json:"level"`
}

// ExperienceToNextLevel returns the experience needed to leave the given level.
func ExperienceToNextLevel(level int) int {
	base := (level + 1) * 4
	return base * base
}

// Permission mirrors the notification permission states a user can grant.
type Permission string

const (
	PermissionDefault Permission = "default"
	PermissionGranted Permission = "granted"
	PermissionDenied  Permission = "denied"
)

// ParsePermission validates a permission coming from a client or config value.
func ParsePermission(raw string) (Permission, error) {
	switch p := Permission(raw); p {
	case PermissionDefault, PermissionGranted, PermissionDenied:
		return p, nil
	default:
		return "", fmt.Errorf("unknown notification permission %q", raw)
	}
}

// Notification is emitted when a new challenge starts.
type Notification struct {
	Title  string `json:"title"`
	Body   string `json:"body"`
	Amount int    `json:"amount"`
}

// Notifier delivers system notifications. Failures are never reported back.
type Notifier interface {
	RequestPermission(ctx context.Context) Permission
	Permission() Permission
	Notify(ctx context.Context, n Notification)
}

// SoundPlayer plays an audio asset, fire-and-forget.
type SoundPlayer interface {
	Play(ctx context.Context, asset string)
}

// RandomSource picks an index in [0, n). *math/rand/v2.Rand satisfies it.
type RandomSource interface {
	IntN(n int) int
}
