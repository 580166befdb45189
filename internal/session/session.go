package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/br-silvano/moveit-next/internal/challenge"
	"github.com/br-silvano/moveit-next/internal/notify"
	"github.com/br-silvano/moveit-next/internal/sound"
)

// Session owns one user's state machine and its per-session collaborators.
// The machine is single-threaded; every access goes through the session mutex.
//
// Once the registry ends a session it is closed, and calls made through a handle that
// outlived it are carried out on the user's current session instead.
type Session struct {
	ID        string
	UserID    string
	StartedAt time.Time

	registry *Registry
	store    challenge.Store
	logger   *slog.Logger

	mu      sync.Mutex
	closed  bool
	machine *challenge.Machine
	inbox   *notify.Inbox
	cues    *sound.Cues
}

// Snapshot returns the current machine state.
func (s *Session) Snapshot(ctx context.Context) (snap challenge.Snapshot, err error) {
	err = s.with(ctx, func(cur *Session) {
		snap = cur.machine.Snapshot()
	})
	return snap, err
}

// Start begins a new challenge.
func (s *Session) Start(ctx context.Context) (def challenge.Definition, snap challenge.Snapshot, err error) {
	err = s.with(ctx, func(cur *Session) {
		def = cur.machine.StartNewChallenge(ctx)
		snap = cur.machine.Snapshot()
	})
	return def, snap, err
}

// Complete completes the active challenge, if any.
func (s *Session) Complete(ctx context.Context) (completion challenge.Completion, ok bool, snap challenge.Snapshot, err error) {
	err = s.with(ctx, func(cur *Session) {
		completion, ok = cur.machine.CompleteChallenge(ctx)
		snap = cur.machine.Snapshot()
	})
	return completion, ok, snap, err
}

// Reset drops the active challenge.
func (s *Session) Reset(ctx context.Context) (snap challenge.Snapshot, err error) {
	err = s.with(ctx, func(cur *Session) {
		cur.machine.ResetChallenge()
		snap = cur.machine.Snapshot()
	})
	return snap, err
}

// LevelUp forces a level-up.
func (s *Session) LevelUp(ctx context.Context) (snap challenge.Snapshot, err error) {
	err = s.with(ctx, func(cur *Session) {
		cur.machine.LevelUp(ctx)
		snap = cur.machine.Snapshot()
	})
	return snap, err
}

// CloseLevelUpModal hides the level-up modal.
func (s *Session) CloseLevelUpModal(ctx context.Context) (snap challenge.Snapshot, err error) {
	err = s.with(ctx, func(cur *Session) {
		cur.machine.CloseLevelUpModal()
		snap = cur.machine.Snapshot()
	})
	return snap, err
}

// SetPermission records the user's answer to the notification prompt. The answer is
// stored with the user's progress so later sessions start from it; a failed write is
// logged and the session keeps the new value.
func (s *Session) SetPermission(ctx context.Context, p challenge.Permission) error {
	return s.with(ctx, func(cur *Session) {
		cur.inbox.SetPermission(p)
		if err := challenge.SavePermission(ctx, cur.store, p); err != nil {
			cur.logger.Warn("failed to persist notification permission", slog.Any("error", err))
		}
	})
}

// Inbox exposes the session's pending notifications.
func (s *Session) Inbox() *notify.Inbox {
	return s.inbox
}

// Cues exposes the session's pending sound cues.
func (s *Session) Cues() *sound.Cues {
	return s.cues
}

// with runs fn on the live session for s.UserID while holding its lock.
func (s *Session) with(ctx context.Context, fn func(cur *Session)) error {
	cur := s
	for {
		cur.mu.Lock()
		if !cur.closed {
			fn(cur)
			cur.mu.Unlock()
			return nil
		}
		cur.mu.Unlock()

		if s.registry == nil {
			return ErrSessionEnded
		}
		next, err := s.registry.Get(ctx, s.UserID)
		if err != nil {
			return err
		}
		cur = next
	}
}

// close waits for the call in flight, if any, and stops the session from serving more.
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}
