package rbac

import (
	"log/slog"
	"net/http"

	"github.com/barpos/barpos/internal/shared"
)

// Middleware wires authorization checks for HTTP handlers.
type Middleware struct {
	Manager *Manager
	Logger  *slog.Logger
}

// Require ensures the session's role set grants the given permission.
func (m Middleware) Require(action Action, relation Relation, entity string, attributes ...string) func(http.Handler) http.Handler {
	if len(attributes) == 0 {
		attributes = []string{AttributeWildcard}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.UserID() == 0 {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if !m.Manager.Can(sess.Roles(), action, relation, entity, attributes) {
				if m.Logger != nil {
					m.Logger.Debug("authorization denied",
						slog.String("action", action),
						slog.String("relation", string(relation)),
						slog.String("entity", entity),
						slog.Int64("user_id", sess.UserID()))
				}
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
