package grants

import (
	"context"
	"errors"
	"strings"

	"github.com/sentinel-auth/sentinel/internal/authz"
	"github.com/sentinel-auth/sentinel/internal/shared"
)

// Service orchestrates administrative grant and assignment mutations. Every
// mutation is idempotent: repeating a call leaves the store unchanged and
// reports the no-op outcome instead of failing.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// GrantPermission creates the (role, resource, action) grant.
func (s *Service) GrantPermission(ctx context.Context, slug authz.RoleSlug, code authz.ResourceCode, action authz.Action) (Outcome, error) {
	role, resource, err := s.lookupPair(ctx, slug, code)
	if err != nil {
		return "", err
	}
	created, err := s.repo.InsertGrant(ctx, role.ID, resource.ID, action)
	if err != nil {
		return "", err
	}
	if !created {
		return OutcomeAlreadyGranted, nil
	}
	return OutcomeGranted, nil
}

// RevokePermission deletes the (role, resource, action) grant. A missing
// grant reports OutcomeNotFound rather than an error.
func (s *Service) RevokePermission(ctx context.Context, slug authz.RoleSlug, code authz.ResourceCode, action authz.Action) (Outcome, error) {
	role, resource, err := s.lookupPair(ctx, slug, code)
	if err != nil {
		return "", err
	}
	deleted, err := s.repo.DeleteGrant(ctx, role.ID, resource.ID, action)
	if err != nil {
		return "", err
	}
	if !deleted {
		return OutcomeNotFound, nil
	}
	return OutcomeRevoked, nil
}

// AssignRole adds the user to the role.
func (s *Service) AssignRole(ctx context.Context, userEmail string, slug authz.RoleSlug) (Outcome, error) {
	userID, role, err := s.lookupUserRole(ctx, userEmail, slug)
	if err != nil {
		return "", err
	}
	created, err := s.repo.InsertAssignment(ctx, userID, role.ID)
	if err != nil {
		return "", err
	}
	if !created {
		return OutcomeAlreadyAssigned, nil
	}
	return OutcomeAssigned, nil
}

// RevokeRole removes the user from the role. A missing assignment reports
// OutcomeNotFound rather than an error.
func (s *Service) RevokeRole(ctx context.Context, userEmail string, slug authz.RoleSlug) (Outcome, error) {
	userID, role, err := s.lookupUserRole(ctx, userEmail, slug)
	if err != nil {
		return "", err
	}
	deleted, err := s.repo.DeleteAssignment(ctx, userID, role.ID)
	if err != nil {
		return "", err
	}
	if !deleted {
		return OutcomeNotFound, nil
	}
	return OutcomeRevoked, nil
}

// ListRolesWithPermissions returns every role ordered by slug ascending, each
// with its grants in insertion order.
func (s *Service) ListRolesWithPermissions(ctx context.Context) ([]RoleGrants, error) {
	return s.repo.ListRolesWithGrants(ctx)
}

// CreateRole creates a role, deriving the slug from the name when absent.
func (s *Service) CreateRole(ctx context.Context, name, slug, description string) (*authz.Role, Outcome, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", shared.InvalidInputf("name is required.")
	}
	if slug = strings.TrimSpace(slug); slug == "" {
		slug = Slugify(name)
	}
	role, created, err := s.repo.CreateRole(ctx, name, authz.RoleSlug(slug), strings.TrimSpace(description))
	if err != nil {
		return nil, "", err
	}
	if !created {
		return role, OutcomeAlreadyExists, nil
	}
	return role, OutcomeCreated, nil
}

// CreateResource creates a resource identified by its code.
func (s *Service) CreateResource(ctx context.Context, code, name, description string) (*authz.Resource, Outcome, error) {
	code = strings.TrimSpace(code)
	name = strings.TrimSpace(name)
	if code == "" || name == "" {
		return nil, "", shared.InvalidInputf("code and name are required.")
	}
	resource, created, err := s.repo.CreateResource(ctx, authz.ResourceCode(Slugify(code)), name, strings.TrimSpace(description))
	if err != nil {
		return nil, "", err
	}
	if !created {
		return resource, OutcomeAlreadyExists, nil
	}
	return resource, OutcomeCreated, nil
}

// DeleteRole removes a role; its grants and assignments go with it.
func (s *Service) DeleteRole(ctx context.Context, slug authz.RoleSlug) error {
	deleted, err := s.repo.DeleteRole(ctx, slug)
	if err != nil {
		return err
	}
	if !deleted {
		return shared.NotFoundf("Role not found.")
	}
	return nil
}

func (s *Service) lookupPair(ctx context.Context, slug authz.RoleSlug, code authz.ResourceCode) (*authz.Role, *authz.Resource, error) {
	role, err := s.repo.GetRoleBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, shared.NotFoundf("Role not found.")
		}
		return nil, nil, err
	}
	resource, err := s.repo.GetResourceByCode(ctx, code)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, nil, shared.NotFoundf("Resource not found.")
		}
		return nil, nil, err
	}
	return role, resource, nil
}

func (s *Service) lookupUserRole(ctx context.Context, userEmail string, slug authz.RoleSlug) (int64, *authz.Role, error) {
	userID, err := s.repo.FindUserIDByEmail(ctx, userEmail)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return 0, nil, shared.NotFoundf("User not found.")
		}
		return 0, nil, err
	}
	role, err := s.repo.GetRoleBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return 0, nil, shared.NotFoundf("Role not found.")
		}
		return 0, nil, err
	}
	return userID, role, nil
}
