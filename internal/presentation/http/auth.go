package httppresentation

import (
	"context"
	"net/http"
	"strings"

	apporder "github.com/Zhima-Mochi/minishop-chapa/internal/application/order"
	domuser "github.com/Zhima-Mochi/minishop-chapa/internal/domain/user"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability"
	"github.com/Zhima-Mochi/minishop-chapa/internal/observability/logctx"
)

type userKey struct{}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

// requireUser resolves the bearer token and stores the user in the request context.
func (h *Handler) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := h.svc.Auth.Authenticate(r.Context(), bearerToken(r))
		if err != nil {
			writeError(r.Context(), w, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey{}, u)
		ctx = logctx.With(ctx, logctx.FromOr(ctx, h.log).With(observability.F("user_id", u.ID)))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin must run after requireUser.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !currentUser(r).IsAdmin() {
			writeError(r.Context(), w, domuser.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func currentUser(r *http.Request) *domuser.User {
	u, _ := r.Context().Value(userKey{}).(*domuser.User)
	return u
}

func actorOf(r *http.Request) apporder.Actor {
	u := currentUser(r)
	if u == nil {
		return apporder.Actor{}
	}
	return apporder.Actor{UserID: u.ID, Admin: u.IsAdmin()}
}
