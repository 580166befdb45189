package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/br-silvano/moveit-next/internal/platform/apierrors"
)

// UserIDHeader carries the user ID on calls from trusted internal services.
const UserIDHeader = "X-User-ID"

var (
	errMissingAuthHeader = errors.New("authorization header missing")
	errInvalidAuthHeader = errors.New("authorization header is malformed")
)

// MiddlewareOptions tunes Middleware.
type MiddlewareOptions struct {
	// TrustUserHeader accepts UserIDHeader as the user ID without verifying a token.
	TrustUserHeader bool
}

// Middleware rejects requests without a verifiable caller and stores the caller on the
// request context. A nil verifier lets every request through unauthenticated.
func Middleware(verifier Verifier, opts MiddlewareOptions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			if opts.TrustUserHeader {
				if userID := strings.TrimSpace(r.Header.Get(UserIDHeader)); userID != "" {
					next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), AuthenticatedUser{UserID: userID})))
					return
				}
			}

			token, err := bearerToken(r)
			if err != nil {
				unauthorized(w, r, err)
				return
			}

			user, err := verifier.Verify(r.Context(), token)
			if err != nil {
				unauthorized(w, r, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingAuthHeader
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", errInvalidAuthHeader
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", errInvalidAuthHeader
	}
	return token, nil
}

func unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(apierrors.ErrorResponse{
		Code:      apierrors.CodeUnauthorized,
		Message:   err.Error(),
		RequestID: middleware.GetReqID(r.Context()),
	})
}
