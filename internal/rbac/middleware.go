package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shepherd-hq/shepherd/internal/roles"
	"github.com/shepherd-hq/shepherd/internal/shared"
)

// PrincipalLoader resolves a user id to a Principal.
type PrincipalLoader interface {
	Principal(ctx context.Context, userID int64) (Principal, error)
}

// Middleware wires authentication and role guards for HTTP handlers.
type Middleware struct {
	Principals PrincipalLoader
	Logger     *slog.Logger
	// LoginURL receives guests turned away by RequireAuth.
	LoginURL string
}

// RequireAuth sends guests to the login page. For GET and HEAD requests the
// requested URI is remembered so the login can return to it.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUserID(r, m.Logger); ok {
			next.ServeHTTP(w, r)
			return
		}
		if sess := shared.SessionFromContext(r.Context()); sess != nil &&
			(r.Method == http.MethodGet || r.Method == http.MethodHead) {
			sess.Set(shared.IntendedURLKey, r.URL.RequestURI())
		}
		http.Redirect(w, r, m.LoginURL, http.StatusFound)
	})
}

// RequireRole admits verified, active principals holding any of the given
// roles and stores the principal in the request context.
func (m Middleware) RequireRole(allowed ...roles.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := CurrentUserID(r, m.Logger)
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			principal, err := m.Principals.Principal(r.Context(), userID)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
				if m.Logger != nil {
					m.Logger.Error("rbac require role", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !principal.Verified || !principal.Active || !principal.Roles.HasAny(allowed...) {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

// CurrentUserID reads the authenticated user id from the request session.
func CurrentUserID(r *http.Request, logger *slog.Logger) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		return 0, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if logger != nil {
			logger.Error("rbac parse user id", slog.String("value", raw))
		}
		return 0, false
	}
	return id, true
}
