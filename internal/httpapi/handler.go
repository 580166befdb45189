package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/br-silvano/moveit-next/internal/challenge"
	"github.com/br-silvano/moveit-next/internal/notify"
	"github.com/br-silvano/moveit-next/internal/platform/apierrors"
	sharedauth "github.com/br-silvano/moveit-next/internal/platform/auth"
	"github.com/br-silvano/moveit-next/internal/platform/logging"
	"github.com/br-silvano/moveit-next/internal/session"
	"github.com/br-silvano/moveit-next/internal/sound"
)

const (
	serviceTimeout     = 8 * time.Second
	maxBodyBytes       = 4 * 1024
	retryAfterDuration = "60"
)

// Profile is the static identity rendered next to the level.
type Profile struct {
	Name      string
	AvatarURL string
}

// Dependencies wires the handlers to the session layer.
type Dependencies struct {
	Sessions *session.Registry
	Catalog  *challenge.Catalog
	Limiter  *session.Limiter
	Profile  Profile
	Logger   *slog.Logger
}

type handler struct {
	sessions *session.Registry
	catalog  *challenge.Catalog
	limiter  *session.Limiter
	profile  Profile
	logger   *slog.Logger
}

// ProfileResponse is returned by GET /v1/profile.
type ProfileResponse struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Level     int    `json:"level"`
}

// StartResponse is returned by POST /v1/challenges/start.
type StartResponse struct {
	Challenge challenge.Definition `json:"challenge"`
	State     challenge.Snapshot   `json:"state"`
}

// CompleteResponse is returned by POST /v1/challenges/complete.
type CompleteResponse struct {
	Completed bool                  `json:"completed"`
	Result    *challenge.Completion `json:"result,omitempty"`
	State     challenge.Snapshot    `json:"state"`
}

// NotificationsResponse is returned by GET /v1/notifications.
type NotificationsResponse struct {
	Permission    challenge.Permission `json:"permission"`
	Notifications []notify.Message     `json:"notifications"`
	Sounds        []sound.Cue          `json:"sounds"`
}

type permissionRequest struct {
	Permission string `json:"permission"`
}

// RegisterRoutes registers every challenge route on r.
func RegisterRoutes(r chi.Router, deps Dependencies) {
	h := &handler{
		sessions: deps.Sessions,
		catalog:  deps.Catalog,
		limiter:  deps.Limiter,
		profile:  deps.Profile,
		logger:   deps.Logger,
	}
	if h.logger == nil {
		h.logger = slog.New(slog.DiscardHandler)
	}

	r.Get("/v1/profile", h.getProfile)

	r.Route("/v1/challenges", func(r chi.Router) {
		r.Get("/", h.listChallenges)
		r.Get("/state", h.getState)
		r.Post("/start", h.startChallenge)
		r.Post("/complete", h.completeChallenge)
		r.Post("/reset", h.resetChallenge)
	})

	r.Route("/v1/level-up", func(r chi.Router) {
		r.Post("/", h.levelUp)
		r.Post("/close", h.closeLevelUpModal)
	})

	r.Route("/v1/notifications", func(r chi.Router) {
		r.Get("/", h.drainNotifications)
		r.Put("/permission", h.setPermission)
	})
}

func (h *handler) getProfile(w http.ResponseWriter, r *http.Request) {
	sess, userID, ok := h.session(w, r)
	if !ok {
		return
	}
	snap, err := sess.Snapshot(r.Context())
	if err != nil {
		h.sessionFailed(w, r, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, ProfileResponse{
		UserID:    userID,
		Name:      h.profile.Name,
		AvatarURL: h.profile.AvatarURL,
		Level:     snap.Level,
	})
}

func (h *handler) listChallenges(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"challenges": h.catalog.All()})
}

func (h *handler) getState(w http.ResponseWriter, r *http.Request) {
	sess, userID, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeSnapshot(w, r, userID)(sess.Snapshot(r.Context()))
}

func (h *handler) startChallenge(w http.ResponseWriter, r *http.Request) {
	userID := requestUserID(r)
	if userID != "" && !h.limiter.Allow(userID) {
		w.Header().Set("Retry-After", retryAfterDuration)
		writeError(w, r, apierrors.CodeRateLimited, "too many challenges started, try again later")
		return
	}

	sess, _, ok := h.session(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	def, snap, err := sess.Start(ctx)
	if err != nil {
		h.sessionFailed(w, r, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, StartResponse{Challenge: def, State: snap})
}

func (h *handler) completeChallenge(w http.ResponseWriter, r *http.Request) {
	sess, userID, ok := h.session(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	completion, completed, snap, err := sess.Complete(ctx)
	if err != nil {
		h.sessionFailed(w, r, userID, err)
		return
	}
	resp := CompleteResponse{Completed: completed, State: snap}
	if completed {
		resp.Result = &completion
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) resetChallenge(w http.ResponseWriter, r *http.Request) {
	sess, userID, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeSnapshot(w, r, userID)(sess.Reset(r.Context()))
}

func (h *handler) levelUp(w http.ResponseWriter, r *http.Request) {
	sess, userID, ok := h.session(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	h.writeSnapshot(w, r, userID)(sess.LevelUp(ctx))
}

func (h *handler) closeLevelUpModal(w http.ResponseWriter, r *http.Request) {
	sess, userID, ok := h.session(w, r)
	if !ok {
		return
	}
	h.writeSnapshot(w, r, userID)(sess.CloseLevelUpModal(r.Context()))
}

func (h *handler) drainNotifications(w http.ResponseWriter, r *http.Request) {
	sess, _, ok := h.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, NotificationsResponse{
		Permission:    sess.Inbox().Permission(),
		Notifications: sess.Inbox().Drain(),
		Sounds:        sess.Cues().Drain(),
	})
}

func (h *handler) setPermission(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer r.Body.Close()

	var body permissionRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&body); err != nil {
		writeError(w, r, apierrors.CodeBadRequest, "invalid request body")
		return
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, apierrors.CodeBadRequest, "invalid request body")
		return
	}

	permission, err := challenge.ParsePermission(body.Permission)
	if err != nil || permission == challenge.PermissionDefault {
		writeError(w, r, apierrors.CodeBadRequest, "permission must be granted or denied")
		return
	}

	sess, userID, ok := h.session(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	if err := sess.SetPermission(ctx, permission); err != nil {
		h.sessionFailed(w, r, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]challenge.Permission{"permission": permission})
}

// session resolves the caller's session, writing an error response when it cannot.
func (h *handler) session(w http.ResponseWriter, r *http.Request) (*session.Session, string, bool) {
	userID := requestUserID(r)
	if userID == "" {
		writeError(w, r, apierrors.CodeUnauthorized, "missing user ID")
		return nil, "", false
	}

	ctx, cancel := context.WithTimeout(r.Context(), serviceTimeout)
	defer cancel()

	sess, err := h.sessions.Get(ctx, userID)
	if err != nil {
		h.sessionFailed(w, r, userID, err)
		return nil, "", false
	}
	return sess, userID, true
}

func (h *handler) sessionFailed(w http.ResponseWriter, r *http.Request, userID string, err error) {
	code := apierrors.CodeInternal
	if errors.Is(err, session.ErrMissingUserID) {
		code = apierrors.CodeUnauthorized
	}
	logRequestError(r.Context(), h.logger, "failed to load session", err, userID)
	writeError(w, r, code, "failed to load session")
}

// writeSnapshot returns a writer for a session call that yields a snapshot.
func (h *handler) writeSnapshot(w http.ResponseWriter, r *http.Request, userID string) func(challenge.Snapshot, error) {
	return func(snap challenge.Snapshot, err error) {
		if err != nil {
			h.sessionFailed(w, r, userID, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func requestUserID(r *http.Request) string {
	user, _ := sharedauth.UserFromContext(r.Context())
	return user.UserID
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, code, message string) {
	writeJSON(w, apierrors.ToStatusCode(code), apierrors.ErrorResponse{
		Code:      code,
		Message:   message,
		RequestID: middleware.GetReqID(r.Context()),
	})
}

func logRequestError(ctx context.Context, logger *slog.Logger, message string, err error, userID string) {
	if logger == nil || err == nil {
		return
	}
	logging.WithRequestID(ctx, logger).Error(message,
		slog.String("userId", userID),
		slog.Any("error", err),
	)
}
