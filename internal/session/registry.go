package session

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jellydator/ttlcache/v3"

	"github.com/br-silvano/moveit-next/internal/challenge"
	"github.com/br-silvano/moveit-next/internal/notify"
	"github.com/br-silvano/moveit-next/internal/sound"
	"github.com/br-silvano/moveit-next/internal/store"
)

// DefaultIdleTTL ends a session after this much inactivity.
const DefaultIdleTTL = 30 * time.Minute

// Config tunes how sessions are built.
type Config struct {
	IdleTTL                time.Duration
	NotificationPermission challenge.Permission
	SoundAsset             string
	// Seed makes challenge selection reproducible per user when non-zero.
	Seed uint64
}

// Registry hands out one Session per user, creating it from the backend on first use and
// dropping it once idle.
type Registry struct {
	catalog  *challenge.Catalog
	backend  store.Backend
	resolver sound.Resolver
	cfg      Config
	logger   *slog.Logger

	// mu serialises session creation and guards live, the last session built per user.
	// A user's previous session is closed before the next one loads its progress.
	mu       sync.Mutex
	live     map[string]*Session
	sessions *ttlcache.Cache[string, *Session]
}

// NewRegistry builds a registry and starts its expiry loop. The returned func stops it.
func NewRegistry(catalog *challenge.Catalog, backend store.Backend, resolver sound.Resolver, cfg Config, logger *slog.Logger) (*Registry, func()) {
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.NotificationPermission == "" {
		cfg.NotificationPermission = challenge.PermissionDefault
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := &Registry{
		catalog:  catalog,
		backend:  backend,
		resolver: resolver,
		cfg:      cfg,
		logger:   logger,
		live:     make(map[string]*Session),
		sessions: ttlcache.New[string, *Session](
			ttlcache.WithTTL[string, *Session](cfg.IdleTTL),
		),
	}
	r.sessions.OnEviction(r.onEviction)
	go r.sessions.Start()

	return r, r.sessions.Stop
}

// Get returns the user's live session, creating it when none exists.
func (r *Registry) Get(ctx context.Context, userID string) (*Session, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	if item := r.sessions.Get(userID); item != nil {
		return item.Value(), nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if item := r.sessions.Get(userID); item != nil {
		return item.Value(), nil
	}

	if prev, ok := r.live[userID]; ok {
		prev.close()
		delete(r.live, userID)
	}

	sess, err := r.newSession(ctx, userID)
	if err != nil {
		return nil, err
	}
	r.live[userID] = sess
	r.sessions.Set(userID, sess, ttlcache.DefaultTTL)
	return sess, nil
}

// End drops the user's session, if any. Persisted counters are kept.
func (r *Registry) End(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions.Delete(userID)
	if prev, ok := r.live[userID]; ok {
		prev.close()
		delete(r.live, userID)
	}
}

// Len reports the number of live sessions.
func (r *Registry) Len() int {
	return r.sessions.Len()
}

func (r *Registry) onEviction(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, *Session]) {
	sess := item.Value()

	r.mu.Lock()
	if r.live[item.Key()] == sess {
		delete(r.live, item.Key())
	}
	r.mu.Unlock()
	sess.close()

	r.logger.Info("session ended",
		slog.String("sessionId", sess.ID),
		slog.String("userId", item.Key()),
		slog.String("reason", evictionReason(reason)),
	)
}

func (r *Registry) newSession(ctx context.Context, userID string) (*Session, error) {
	id := newSessionID()
	logger := r.logger.With(slog.String("sessionId", id), slog.String("userId", userID))
	st := r.backend.Store(userID)

	permission := r.cfg.NotificationPermission
	if stored, ok, err := challenge.LoadPermission(ctx, st); err != nil {
		logger.Warn("failed to load notification permission", slog.Any("error", err))
	} else if ok {
		permission = stored
	}

	inbox := notify.NewInbox(permission, notify.DefaultInboxLimit)
	cues := sound.NewCues(r.resolver)

	machine, err := challenge.NewMachine(ctx, challenge.Options{
		Catalog:    r.catalog,
		Store:      st,
		Notifier:   inbox,
		Player:     cues,
		Random:     challenge.NewRandom(r.seedFor(userID)),
		SoundAsset: r.cfg.SoundAsset,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create state machine: %w", err)
	}

	logger.Info("session started", slog.String("permission", string(permission)))
	return &Session{
		ID:        id,
		UserID:    userID,
		StartedAt: time.Now().UTC(),
		registry:  r,
		store:     st,
		logger:    logger,
		machine:   machine,
		inbox:     inbox,
		cues:      cues,
	}, nil
}

func (r *Registry) seedFor(userID string) uint64 {
	if r.cfg.Seed == 0 {
		return 0
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(userID))
	return r.cfg.Seed ^ h.Sum64()
}

func newSessionID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

func evictionReason(reason ttlcache.EvictionReason) string {
	switch reason {
	case ttlcache.EvictionReasonDeleted:
		return "deleted"
	case ttlcache.EvictionReasonExpired:
		return "expired"
	case ttlcache.EvictionReasonCapacityReached:
		return "capacity_reached"
	case ttlcache.EvictionReasonMaxCostExceeded:
		return "max_cost_exceeded"
	default:
		return "unknown"
	}
}
