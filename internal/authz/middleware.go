package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sentinel-auth/sentinel/internal/platform/httpx"
	"github.com/sentinel-auth/sentinel/internal/shared"
)

// Resolver loads the acting identity for the current request from the store.
// Permissions may change between requests, so the lookup happens on every
// call instead of trusting anything cached in the session.
type Resolver interface {
	FindPrincipal(ctx context.Context, id int64) (Principal, error)
}

// Guard wraps protected handlers with per-request access checks.
type Guard struct {
	Service  *Service
	Resolver Resolver
	Logger   *slog.Logger
}

type principalContextKey struct{}

// ContextWithPrincipal stores the resolved principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the resolved principal from context.
func PrincipalFromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(principalContextKey{}).(Principal)
	return p
}

// RequireAuthenticated ensures an identity is attached to the request.
func (g Guard) RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := g.current(w, r)
			if !ok {
				return
			}
			if !p.Active() {
				// A stale session for a deactivated account resolves to no
				// identity at all.
				httpx.RespondError(w, shared.ErrUnauthenticated)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAccess ensures the current user holds (resource, action).
func (g Guard) RequireAccess(resource ResourceCode, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := g.current(w, r)
			if !ok {
				return
			}
			allowed, err := g.Service.HasPermission(r.Context(), p, resource, action)
			if err != nil {
				g.logError("require access", err)
				httpx.RespondError(w, err)
				return
			}
			if !allowed {
				httpx.Detail(w, http.StatusForbidden, "Forbidden: missing permission.")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAdministrator ensures the current user is a superuser or holds the
// admin role.
func (g Guard) RequireAdministrator() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := g.current(w, r)
			if !ok {
				return
			}
			admin := false
			if p.Active() {
				var err error
				admin, err = g.Service.IsAdministrator(r.Context(), p)
				if err != nil {
					g.logError("require administrator", err)
					httpx.RespondError(w, err)
					return
				}
			}
			if !admin {
				httpx.Detail(w, http.StatusForbidden, "Forbidden: administrator role required.")
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), p)))
		})
	}
}

// current resolves the acting identity, writing the authentication-required
// response when none is attached. The boolean reports whether to proceed.
func (g Guard) current(w http.ResponseWriter, r *http.Request) (Principal, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return nil, false
	}
	raw := strings.TrimSpace(sess.User())
	if raw == "" {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return nil, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		g.logError("parse session user id", err)
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return nil, false
	}
	p, err := g.Resolver.FindPrincipal(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return nil, false
		}
		g.logError("resolve principal", err)
		httpx.Detail(w, http.StatusInternalServerError, "Internal server error.")
		return nil, false
	}
	return p, true
}

func (g Guard) logError(msg string, err error) {
	if g.Logger != nil {
		g.Logger.Error(msg, slog.Any("error", err))
	}
}
