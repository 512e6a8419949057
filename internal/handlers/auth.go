package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/crucial707/userdir/internal/metrics"
	"github.com/crucial707/userdir/internal/middleware"
	"github.com/crucial707/userdir/internal/repo"
)

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	UserRepo *repo.UserRepo
	Secret   []byte
	// TokenTTL is the token lifetime; zero falls back to 24h.
	TokenTTL time.Duration
}

// ==========================
// Login (verifies credentials, issues a bearer token)
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		JSONError(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	user, err := h.UserRepo.GetByCredentials(r.Context(), input.Username, input.Password)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidCredentials) {
			metrics.IncLoginAttempt("failure")
			JSONError(w, MsgInvalidCredentials, http.StatusUnauthorized)
			return
		}
		slog.Error("login", "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}

	// Deactivated accounts keep their password but cannot log in.
	if !user.IsActive {
		metrics.IncLoginAttempt("failure")
		JSONError(w, MsgInvalidCredentials, http.StatusUnauthorized)
		return
	}

	ttl := h.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"exp":      now.Add(ttl).Unix(),
		"iat":      now.Unix(),
		"jti":      uuid.NewString(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(h.Secret)
	if err != nil {
		slog.Error("sign token", "error", err)
		JSONError(w, "failed to issue token", http.StatusInternalServerError)
		return
	}

	metrics.IncLoginAttempt("success")

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token": signed,
		"user":  toResponse(user),
	})
}

// ==========================
// Me (returns the authenticated account)
// ==========================
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal := middleware.PrincipalFrom(r.Context())
	if principal == nil {
		JSONError(w, middleware.MsgCredentialsNotProvided, http.StatusForbidden)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(principal))
}
