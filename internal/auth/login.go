package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopdesk/catalog-service/internal/db"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// LoginHandler handles POST /api/auth/login
func (s *Service) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	resp, err := s.Login(ctx, req)
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, ErrNotApproved):
		writeError(w, http.StatusForbidden, ErrNotApproved.Error())
	case err != nil:
		s.logger.Error().Err(err).Msg("login failed")
		writeError(w, http.StatusInternalServerError, "login failed")
	default:
		writeJSON(w, http.StatusOK, resp)
	}
}

// RegisterHandler handles POST /api/auth/register
func (s *Service) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	u, err := s.Register(ctx, req)
	switch {
	case errors.Is(err, ErrInvalidRegistration):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, db.ErrEmailTaken):
		writeError(w, http.StatusConflict, err.Error())
	case err != nil:
		s.logger.Error().Err(err).Msg("registration failed")
		writeError(w, http.StatusInternalServerError, "registration failed")
	default:
		msg := "Account created"
		if !u.Approved {
			msg = "Account created, waiting for admin approval"
		}
		writeJSON(w, http.StatusCreated, map[string]any{"message": msg, "user": u})
	}
}

// MeHandler handles GET /api/auth/me behind the middleware.
func (s *Service) MeHandler(w http.ResponseWriter, r *http.Request) {
	u, err := UserFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, u)
}
