package http

import (
	"context"
	"net/http"
	"strings"

	"aptitude-service/internal/domain"
)

// Identity is asserted by the upstream gateway through request headers.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

type identity struct {
	UserID string
	Role   string
}

func (id identity) IsAdmin() bool {
	return id.Role == domain.RoleAdmin
}

type contextKey string

const identityContextKey contextKey = "identity"

func identityFromContext(ctx context.Context) identity {
	id, _ := ctx.Value(identityContextKey).(identity)
	return id
}

func requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(headerUserID))
		if userID == "" {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing "+headerUserID+" header")
			return
		}
		id := identity{
			UserID: userID,
			Role:   strings.ToLower(strings.TrimSpace(r.Header.Get(headerUserRole))),
		}
		ctx := context.WithValue(r.Context(), identityContextKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !identityFromContext(r.Context()).IsAdmin() {
			respondError(w, http.StatusForbidden, "forbidden", "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
