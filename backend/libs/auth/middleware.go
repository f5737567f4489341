package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"evcharge/backend/libs/httpx"
)

// Roles.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ErrUserNotFound is returned by loaders when the token subject no longer exists.
var ErrUserNotFound = errors.New("auth: user not found")

// User is the authenticated principal attached to a request.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserLoader resolves a token subject to a user record.
type UserLoader interface {
	UserByID(ctx context.Context, id int64) (*User, error)
}

type contextKey string

const userKey contextKey = "authUser"

// WithUser stores u in ctx.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userKey).(*User)
	return u, ok && u != nil
}

// Protect verifies the bearer token, loads the user and stores it in the request context.
func Protect(tokens *TokenService, users UserLoader, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				httpx.Fail(w, http.StatusUnauthorized, "Not authorized to access this route - no token")
				return
			}

			claims, err := tokens.ValidateToken(token)
			if err != nil {
				httpx.Fail(w, http.StatusUnauthorized, tokenErrorMessage(err))
				return
			}

			user, err := users.UserByID(r.Context(), claims.UserID)
			if err != nil {
				if errors.Is(err, ErrUserNotFound) {
					httpx.Fail(w, http.StatusUnauthorized, "User not found")
					return
				}
				logger.Error("load authenticated user", zap.Int64("user_id", claims.UserID), zap.Error(err))
				httpx.Internal(w, "", err, false)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// Authorize allows only the listed roles. It must run after Protect.
func Authorize(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				httpx.Fail(w, http.StatusUnauthorized, "Not authorized to access this route")
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			httpx.Fail(w, http.StatusForbidden, fmt.Sprintf("User role %s is not authorized to access this route", user.Role))
		})
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "Token has expired, please login again"
	case errors.Is(err, ErrTokenNotActive):
		return "Token not active yet"
	default:
		return "Invalid token signature"
	}
}
