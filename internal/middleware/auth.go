package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/crucial707/userdir/internal/models"
	"github.com/crucial707/userdir/internal/repo"
)

type principalKey struct{}

const (
	// MsgCredentialsNotProvided is the body sent when a protected route is
	// hit without a usable Authorization header.
	MsgCredentialsNotProvided = "Authentication credentials were not provided."
	// MsgInvalidToken is sent when a bearer token fails verification.
	MsgInvalidToken = "Invalid authentication token."
)

// WithPrincipal returns a context carrying the authenticated user.
func WithPrincipal(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, principalKey{}, u)
}

// PrincipalFrom returns the authenticated user stored by RequireAuth, or
// nil when the request carried no credentials.
func PrincipalFrom(ctx context.Context) *models.User {
	u, _ := ctx.Value(principalKey{}).(*models.User)
	return u
}

// RequireAuth verifies the bearer token and loads the account it names.
// The account is fetched fresh on every request so deactivated or deleted
// users lose access immediately, not at token expiry.
func RequireAuth(users *repo.UserRepo, secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
				writeDetail(w, http.StatusForbidden, MsgCredentialsNotProvided)
				return
			}
			user, ok := loadPrincipal(w, r, users, secret)
			if !ok {
				return
			}
			serveAs(next, w, r, user)
		})
	}
}

// OptionalAuth authenticates requests that carry credentials and passes
// the rest through anonymously. A bearer token that is present must still
// verify; only the absent header skips authentication.
func OptionalAuth(users *repo.UserRepo, secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}
			user, ok := loadPrincipal(w, r, users, secret)
			if !ok {
				return
			}
			serveAs(next, w, r, user)
		})
	}
}

// loadPrincipal verifies the bearer token and fetches the account it
// names. On failure it writes the 403 body and reports false.
func loadPrincipal(w http.ResponseWriter, r *http.Request, users *repo.UserRepo, secret []byte) (*models.User, bool) {
	tokenStr := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		writeDetail(w, http.StatusForbidden, MsgInvalidToken)
		return nil, false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		writeDetail(w, http.StatusForbidden, MsgInvalidToken)
		return nil, false
	}
	rawID, ok := claims["user_id"].(float64)
	if !ok {
		writeDetail(w, http.StatusForbidden, MsgInvalidToken)
		return nil, false
	}

	user, err := users.GetByID(r.Context(), int(rawID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Token names an account that no longer exists.
			writeDetail(w, http.StatusForbidden, MsgCredentialsNotProvided)
			return nil, false
		}
		writeDetail(w, http.StatusInternalServerError, "internal server error")
		return nil, false
	}
	if !user.IsActive {
		writeDetail(w, http.StatusForbidden, MsgCredentialsNotProvided)
		return nil, false
	}
	return user, true
}

// serveAs runs next with the principal in context and the request-log
// username slot filled.
func serveAs(next http.Handler, w http.ResponseWriter, r *http.Request, user *models.User) {
	if slot, ok := r.Context().Value(authUserKey{}).(*authUser); ok {
		slot.name = user.Username
	}
	next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), user)))
}

// writeDetail writes the {"detail": ...} error body shared by every
// middleware rejection.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
