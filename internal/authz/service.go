package authz

import (
	"context"
)

// Store exposes the membership queries the decision engine reads. Reads are
// always live; decisions are never cached across calls.
type Store interface {
	UserHasPermission(ctx context.Context, userID int64, resource ResourceCode, action Action) (bool, error)
	UserHasRole(ctx context.Context, userID int64, slug RoleSlug) (bool, error)
}

// Service computes access decisions over the user -> roles -> permissions
// graph. All methods are read-only and safe for concurrent use.
type Service struct {
	store Store
}

// NewService constructs a Service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// HasPermission reports whether the principal may perform action on resource.
// Inactive users are denied everything; superusers are allowed everything;
// otherwise at least one assigned role must hold a matching grant.
func (s *Service) HasPermission(ctx context.Context, p Principal, resource ResourceCode, action Action) (bool, error) {
	if p == nil || !p.Active() {
		return false, nil
	}
	if p.Superuser() {
		return true, nil
	}
	return s.store.UserHasPermission(ctx, p.PrincipalID(), resource, action)
}

// HasRole reports direct role membership.
func (s *Service) HasRole(ctx context.Context, p Principal, slug RoleSlug) (bool, error) {
	if p == nil {
		return false, nil
	}
	return s.store.UserHasRole(ctx, p.PrincipalID(), slug)
}

// IsAdministrator reports whether the principal is a superuser or holds the
// admin role.
func (s *Service) IsAdministrator(ctx context.Context, p Principal) (bool, error) {
	if p == nil {
		return false, nil
	}
	if p.Superuser() {
		return true, nil
	}
	return s.HasRole(ctx, p, AdminRole)
}
