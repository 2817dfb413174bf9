package grants

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinel-auth/sentinel/internal/authz"
	"github.com/sentinel-auth/sentinel/internal/shared"
	_ "github.com/sentinel-auth/sentinel/testing"
)

type grantRow struct {
	roleID     int64
	resourceID int64
	action     authz.Action
}

type assignmentRow struct {
	userID int64
	roleID int64
}

// mockRepository keeps the store in maps and slices, enforcing the same
// uniqueness and cascade semantics as the SQL schema.
type mockRepository struct {
	roles          map[authz.RoleSlug]*authz.Role
	resources      map[authz.ResourceCode]*authz.Resource
	usersByEmail   map[string]int64
	grantRows      []grantRow
	assignmentRows []assignmentRow
	nextID         int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles:        make(map[authz.RoleSlug]*authz.Role),
		resources:    make(map[authz.ResourceCode]*authz.Resource),
		usersByEmail: make(map[string]int64),
		nextID:       1,
	}
}

func (m *mockRepository) id() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *mockRepository) addRole(slug authz.RoleSlug, name string) *authz.Role {
	role := &authz.Role{ID: m.id(), Name: name, Slug: slug}
	m.roles[slug] = role
	return role
}

func (m *mockRepository) addResource(code authz.ResourceCode, name string) *authz.Resource {
	res := &authz.Resource{ID: m.id(), Code: code, Name: name}
	m.resources[code] = res
	return res
}

func (m *mockRepository) addUser(email string) int64 {
	id := m.id()
	m.usersByEmail[email] = id
	return id
}

func (m *mockRepository) GetRoleBySlug(ctx context.Context, slug authz.RoleSlug) (*authz.Role, error) {
	role, ok := m.roles[slug]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return role, nil
}

func (m *mockRepository) GetResourceByCode(ctx context.Context, code authz.ResourceCode) (*authz.Resource, error) {
	res, ok := m.resources[code]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return res, nil
}

func (m *mockRepository) FindUserIDByEmail(ctx context.Context, email string) (int64, error) {
	id, ok := m.usersByEmail[email]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return id, nil
}

func (m *mockRepository) InsertGrant(ctx context.Context, roleID, resourceID int64, action authz.Action) (bool, error) {
	for _, row := range m.grantRows {
		if row.roleID == roleID && row.resourceID == resourceID && row.action == action {
			return false, nil
		}
	}
	m.grantRows = append(m.grantRows, grantRow{roleID, resourceID, action})
	return true, nil
}

func (m *mockRepository) DeleteGrant(ctx context.Context, roleID, resourceID int64, action authz.Action) (bool, error) {
	for i, row := range m.grantRows {
		if row.roleID == roleID && row.resourceID == resourceID && row.action == action {
			m.grantRows = append(m.grantRows[:i], m.grantRows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) InsertAssignment(ctx context.Context, userID, roleID int64) (bool, error) {
	for _, row := range m.assignmentRows {
		if row.userID == userID && row.roleID == roleID {
			return false, nil
		}
	}
	m.assignmentRows = append(m.assignmentRows, assignmentRow{userID, roleID})
	return true, nil
}

func (m *mockRepository) DeleteAssignment(ctx context.Context, userID, roleID int64) (bool, error) {
	for i, row := range m.assignmentRows {
		if row.userID == userID && row.roleID == roleID {
			m.assignmentRows = append(m.assignmentRows[:i], m.assignmentRows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) ListRolesWithGrants(ctx context.Context) ([]RoleGrants, error) {
	slugs := make([]authz.RoleSlug, 0, len(m.roles))
	for slug := range m.roles {
		slugs = append(slugs, slug)
	}
	for i := range slugs {
		for j := i + 1; j < len(slugs); j++ {
			if slugs[j] < slugs[i] {
				slugs[i], slugs[j] = slugs[j], slugs[i]
			}
		}
	}
	result := make([]RoleGrants, 0, len(slugs))
	for _, slug := range slugs {
		role := m.roles[slug]
		entry := RoleGrants{
			ID:          role.ID,
			Name:        role.Name,
			Slug:        role.Slug,
			Description: role.Description,
			Permissions: []PermissionEntry{},
		}
		for _, row := range m.grantRows {
			if row.roleID != role.ID {
				continue
			}
			for code, res := range m.resources {
				if res.ID == row.resourceID {
					entry.Permissions = append(entry.Permissions, PermissionEntry{Resource: code, Action: row.action})
				}
			}
		}
		result = append(result, entry)
	}
	return result, nil
}

func (m *mockRepository) CreateRole(ctx context.Context, name string, slug authz.RoleSlug, description string) (*authz.Role, bool, error) {
	if existing, ok := m.roles[slug]; ok {
		return existing, false, nil
	}
	role := &authz.Role{ID: m.id(), Name: name, Slug: slug, Description: description}
	m.roles[slug] = role
	return role, true, nil
}

func (m *mockRepository) CreateResource(ctx context.Context, code authz.ResourceCode, name, description string) (*authz.Resource, bool, error) {
	if existing, ok := m.resources[code]; ok {
		return existing, false, nil
	}
	res := &authz.Resource{ID: m.id(), Code: code, Name: name, Description: description}
	m.resources[code] = res
	return res, true, nil
}

// DeleteRole cascades to grant and assignment rows, mirroring the schema's
// ON DELETE CASCADE.
func (m *mockRepository) DeleteRole(ctx context.Context, slug authz.RoleSlug) (bool, error) {
	role, ok := m.roles[slug]
	if !ok {
		return false, nil
	}
	delete(m.roles, slug)
	kept := m.grantRows[:0]
	for _, row := range m.grantRows {
		if row.roleID != role.ID {
			kept = append(kept, row)
		}
	}
	m.grantRows = kept
	keptAssignments := m.assignmentRows[:0]
	for _, row := range m.assignmentRows {
		if row.roleID != role.ID {
			keptAssignments = append(keptAssignments, row)
		}
	}
	m.assignmentRows = keptAssignments
	return true, nil
}

// UserHasPermission implements authz.Store over the mock's rows so decision
// checks can run against the same data the grant manager mutates.
func (m *mockRepository) UserHasPermission(ctx context.Context, userID int64, resource authz.ResourceCode, action authz.Action) (bool, error) {
	res, ok := m.resources[resource]
	if !ok {
		return false, nil
	}
	for _, assignment := range m.assignmentRows {
		if assignment.userID != userID {
			continue
		}
		for _, row := range m.grantRows {
			if row.roleID == assignment.roleID && row.resourceID == res.ID && row.action == action {
				return true, nil
			}
		}
	}
	return false, nil
}

func (m *mockRepository) UserHasRole(ctx context.Context, userID int64, slug authz.RoleSlug) (bool, error) {
	role, ok := m.roles[slug]
	if !ok {
		return false, nil
	}
	for _, assignment := range m.assignmentRows {
		if assignment.userID == userID && assignment.roleID == role.ID {
			return true, nil
		}
	}
	return false, nil
}

var _ Repository = (*mockRepository)(nil)
var _ authz.Store = (*mockRepository)(nil)

func TestGrantPermissionIdempotent(t *testing.T) {
	repo := newMockRepository()
	repo.addRole("editor", "Editor")
	repo.addResource("projects", "Projects")
	svc := NewService(repo)
	ctx := context.Background()

	outcome, err := svc.GrantPermission(ctx, "editor", "projects", authz.ActionEdit)
	require.NoError(t, err)
	assert.Equal(t, OutcomeGranted, outcome)

	outcome, err = svc.GrantPermission(ctx, "editor", "projects", authz.ActionEdit)
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyGranted, outcome)

	assert.Len(t, repo.grantRows, 1, "repeated grants must leave exactly one row")
}

func TestGrantPermissionMissingTargets(t *testing.T) {
	repo := newMockRepository()
	repo.addRole("editor", "Editor")
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.GrantPermission(ctx, "ghost", "projects", authz.ActionView)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.GrantPermission(ctx, "editor", "ghost-resource", authz.ActionView)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, repo.grantRows, "failed lookups must not mutate")
}

func TestRevokePermission(t *testing.T) {
	repo := newMockRepository()
	repo.addRole("editor", "Editor")
	repo.addResource("projects", "Projects")
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.GrantPermission(ctx, "editor", "projects", authz.ActionView)
	require.NoError(t, err)

	outcome, err := svc.RevokePermission(ctx, "editor", "projects", authz.ActionView)
	require.NoError(t, err)
	assert.Equal(t, OutcomeRevoked, outcome)

	outcome, err = svc.RevokePermission(ctx, "editor", "projects", authz.ActionView)
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome, "revoking an absent grant is a reported no-op, not an error")
}

func TestAssignRoleIdempotent(t *testing.T) {
	repo := newMockRepository()
	repo.addRole("viewer", "Viewer")
	repo.addUser("user@test.local")
	svc := NewService(repo)
	ctx := context.Background()

	outcome, err := svc.AssignRole(ctx, "user@test.local", "viewer")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAssigned, outcome)

	outcome, err = svc.AssignRole(ctx, "user@test.local", "viewer")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyAssigned, outcome)

	assert.Len(t, repo.assignmentRows, 1, "a user holds each role at most once")
}

func TestRevokeRole(t *testing.T) {
	repo := newMockRepository()
	repo.addRole("viewer", "Viewer")
	repo.addUser("user@test.local")
	svc := NewService(repo)
	ctx := context.Background()

	outcome, err := svc.RevokeRole(ctx, "user@test.local", "viewer")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome)

	_, err = svc.AssignRole(ctx, "user@test.local", "viewer")
	require.NoError(t, err)

	outcome, err = svc.RevokeRole(ctx, "user@test.local", "viewer")
	require.NoError(t, err)
	assert.Equal(t, OutcomeRevoked, outcome)

	_, err = svc.RevokeRole(ctx, "ghost@test.local", "viewer")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeleteRoleCascades(t *testing.T) {
	repo := newMockRepository()
	repo.addRole("editor", "Editor")
	repo.addResource("projects", "Projects")
	userID := repo.addUser("user@test.local")
	svc := NewService(repo)
	engine := authz.NewService(repo)
	ctx := context.Background()

	_, err := svc.GrantPermission(ctx, "editor", "projects", authz.ActionEdit)
	require.NoError(t, err)
	_, err = svc.AssignRole(ctx, "user@test.local", "editor")
	require.NoError(t, err)

	principal := testPrincipal{id: userID, active: true}
	allowed, err := engine.HasPermission(ctx, principal, "projects", authz.ActionEdit)
	require.NoError(t, err)
	require.True(t, allowed)

	require.NoError(t, svc.DeleteRole(ctx, "editor"))

	assert.Empty(t, repo.grantRows, "role deletion must not orphan grants")
	assert.Empty(t, repo.assignmentRows, "role deletion must not orphan assignments")

	allowed, err = engine.HasPermission(ctx, principal, "projects", authz.ActionEdit)
	require.NoError(t, err)
	assert.False(t, allowed, "permissions that depended on the role must be gone")

	assert.ErrorIs(t, svc.DeleteRole(ctx, "editor"), shared.ErrNotFound)
}

func TestListRolesWithPermissionsOrdering(t *testing.T) {
	repo := newMockRepository()
	repo.addRole("viewer", "Viewer")
	repo.addRole("admin", "Administrator")
	repo.addRole("editor", "Editor")
	repo.addResource("projects", "Projects")
	svc := NewService(repo)
	ctx := context.Background()

	_, err := svc.GrantPermission(ctx, "viewer", "projects", authz.ActionView)
	require.NoError(t, err)

	roles, err := svc.ListRolesWithPermissions(ctx)
	require.NoError(t, err)
	require.Len(t, roles, 3)
	assert.Equal(t, authz.RoleSlug("admin"), roles[0].Slug)
	assert.Equal(t, authz.RoleSlug("editor"), roles[1].Slug)
	assert.Equal(t, authz.RoleSlug("viewer"), roles[2].Slug)
	assert.Empty(t, roles[0].Permissions)
	require.Len(t, roles[2].Permissions, 1)
	assert.Equal(t, authz.ResourceCode("projects"), roles[2].Permissions[0].Resource)
}

func TestCreateRoleGeneratesSlug(t *testing.T) {
	repo := newMockRepository()
	svc := NewService(repo)
	ctx := context.Background()

	role, outcome, err := svc.CreateRole(ctx, "Release Managers", "", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeCreated, outcome)
	assert.Equal(t, authz.RoleSlug("release-managers"), role.Slug)

	again, outcome, err := svc.CreateRole(ctx, "Release Managers", "release-managers", "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyExists, outcome)
	assert.Equal(t, role.ID, again.ID)

	_, _, err = svc.CreateRole(ctx, "   ", "", "")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

type testPrincipal struct {
	id        int64
	active    bool
	superuser bool
}

func (p testPrincipal) PrincipalID() int64 { return p.id }
func (p testPrincipal) Active() bool       { return p.active }
func (p testPrincipal) Superuser() bool    { return p.superuser }
