package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/shopdesk/catalog-service/internal/models"
)

type userKey struct{}

// UserFromContext returns the account resolved by Middleware.
func UserFromContext(ctx context.Context) (*models.User, error) {
	u, ok := ctx.Value(userKey{}).(*models.User)
	if !ok || u == nil {
		return nil, ErrUnauthorized
	}
	return u, nil
}

// Middleware requires a valid bearer token for an approved account and puts
// the claims and the account in the request context.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := s.tokens.ParseToken(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		u, err := s.Authorize(r.Context(), claims)
		switch {
		case errors.Is(err, ErrNotApproved):
			writeError(w, http.StatusForbidden, ErrNotApproved.Error())
			return
		case errors.Is(err, ErrUnauthorized):
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		case err != nil:
			s.logger.Error().Err(err).Msg("authorize failed")
			writeError(w, http.StatusInternalServerError, "authorization unavailable")
			return
		}

		ctx := WithClaims(r.Context(), claims)
		ctx = context.WithValue(ctx, userKey{}, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects accounts without the admin role. It must run after
// Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := UserFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if !u.IsAdmin() {
			writeError(w, http.StatusForbidden, ErrForbidden.Error())
			return
		}
		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
