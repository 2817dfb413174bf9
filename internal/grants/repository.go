package grants

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sentinel-auth/sentinel/internal/authz"
	"github.com/sentinel-auth/sentinel/internal/shared"
)

const uniqueViolation = "23505"

// Repository defines persistence operations for the grant manager.
type Repository interface {
	GetRoleBySlug(ctx context.Context, slug authz.RoleSlug) (*authz.Role, error)
	GetResourceByCode(ctx context.Context, code authz.ResourceCode) (*authz.Resource, error)
	FindUserIDByEmail(ctx context.Context, email string) (int64, error)

	InsertGrant(ctx context.Context, roleID, resourceID int64, action authz.Action) (bool, error)
	DeleteGrant(ctx context.Context, roleID, resourceID int64, action authz.Action) (bool, error)
	InsertAssignment(ctx context.Context, userID, roleID int64) (bool, error)
	DeleteAssignment(ctx context.Context, userID, roleID int64) (bool, error)

	ListRolesWithGrants(ctx context.Context) ([]RoleGrants, error)
	CreateRole(ctx context.Context, name string, slug authz.RoleSlug, description string) (*authz.Role, bool, error)
	CreateResource(ctx context.Context, code authz.ResourceCode, name, description string) (*authz.Resource, bool, error)
	DeleteRole(ctx context.Context, slug authz.RoleSlug) (bool, error)
}

// PGRepository implements Repository using PostgreSQL. Multi-step mutations
// lean on row-uniqueness constraints rather than application locks: a
// concurrent duplicate insert resolves to the existing row.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GetRoleBySlug fetches a role by its stable slug.
func (r *PGRepository) GetRoleBySlug(ctx context.Context, slug authz.RoleSlug) (*authz.Role, error) {
	const query = `SELECT id, name, slug, description FROM roles WHERE slug = $1`
	var role authz.Role
	if err := r.pool.QueryRow(ctx, query, string(slug)).Scan(&role.ID, &role.Name, &role.Slug, &role.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &role, nil
}

// GetResourceByCode fetches a resource by its stable code.
func (r *PGRepository) GetResourceByCode(ctx context.Context, code authz.ResourceCode) (*authz.Resource, error) {
	const query = `SELECT id, code, name, description FROM resources WHERE code = $1`
	var res authz.Resource
	if err := r.pool.QueryRow(ctx, query, string(code)).Scan(&res.ID, &res.Code, &res.Name, &res.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &res, nil
}

// FindUserIDByEmail resolves a user identifier.
func (r *PGRepository) FindUserIDByEmail(ctx context.Context, email string) (int64, error) {
	const query = `SELECT id FROM users WHERE email = $1`
	var id int64
	if err := r.pool.QueryRow(ctx, query, email).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, shared.ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

// InsertGrant creates a (role, resource, action) row. Returns false when the
// row already exists, including when a concurrent insert won the race.
func (r *PGRepository) InsertGrant(ctx context.Context, roleID, resourceID int64, action authz.Action) (bool, error) {
	const query = `
		INSERT INTO role_permissions (role_id, resource_id, action)
		VALUES ($1, $2, $3)
		ON CONFLICT (role_id, resource_id, action) DO NOTHING`
	tag, err := r.pool.Exec(ctx, query, roleID, resourceID, string(action))
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteGrant removes at most one grant row.
func (r *PGRepository) DeleteGrant(ctx context.Context, roleID, resourceID int64, action authz.Action) (bool, error) {
	const query = `DELETE FROM role_permissions WHERE role_id = $1 AND resource_id = $2 AND action = $3`
	tag, err := r.pool.Exec(ctx, query, roleID, resourceID, string(action))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// InsertAssignment creates a (user, role) row, keeping assigned_at from the
// first writer when the pair already exists.
func (r *PGRepository) InsertAssignment(ctx context.Context, userID, roleID int64) (bool, error) {
	const query = `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO NOTHING`
	tag, err := r.pool.Exec(ctx, query, userID, roleID)
	if err != nil {
		if isUniqueViolation(err) {
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteAssignment removes at most one assignment row.
func (r *PGRepository) DeleteAssignment(ctx context.Context, userID, roleID int64) (bool, error) {
	const query = `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`
	tag, err := r.pool.Exec(ctx, query, userID, roleID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// ListRolesWithGrants returns every role ordered by slug with its grants in
// insertion order.
func (r *PGRepository) ListRolesWithGrants(ctx context.Context) ([]RoleGrants, error) {
	const query = `
		SELECT r.id, r.name, r.slug, r.description, res.code, rp.action
		FROM roles r
		LEFT JOIN role_permissions rp ON rp.role_id = r.id
		LEFT JOIN resources res ON res.id = rp.resource_id
		ORDER BY r.slug ASC, rp.id ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make([]RoleGrants, 0)
	index := make(map[int64]int)
	for rows.Next() {
		var (
			role     RoleGrants
			resource *string
			action   *string
		)
		if err := rows.Scan(&role.ID, &role.Name, &role.Slug, &role.Description, &resource, &action); err != nil {
			return nil, err
		}
		pos, seen := index[role.ID]
		if !seen {
			role.Permissions = []PermissionEntry{}
			result = append(result, role)
			pos = len(result) - 1
			index[role.ID] = pos
		}
		if resource != nil && action != nil {
			result[pos].Permissions = append(result[pos].Permissions, PermissionEntry{
				Resource: authz.ResourceCode(*resource),
				Action:   authz.Action(*action),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateRole inserts a role, returning the existing row when the slug is
// already taken.
func (r *PGRepository) CreateRole(ctx context.Context, name string, slug authz.RoleSlug, description string) (*authz.Role, bool, error) {
	const insert = `
		INSERT INTO roles (name, slug, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO NOTHING
		RETURNING id, name, slug, description`
	var role authz.Role
	err := r.pool.QueryRow(ctx, insert, name, string(slug), description).Scan(&role.ID, &role.Name, &role.Slug, &role.Description)
	if err == nil {
		return &role, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) && !isUniqueViolation(err) {
		return nil, false, err
	}
	existing, err := r.GetRoleBySlug(ctx, slug)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// CreateResource inserts a resource, returning the existing row when the code
// is already taken.
func (r *PGRepository) CreateResource(ctx context.Context, code authz.ResourceCode, name, description string) (*authz.Resource, bool, error) {
	const insert = `
		INSERT INTO resources (code, name, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (code) DO NOTHING
		RETURNING id, code, name, description`
	var res authz.Resource
	err := r.pool.QueryRow(ctx, insert, string(code), name, description).Scan(&res.ID, &res.Code, &res.Name, &res.Description)
	if err == nil {
		return &res, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) && !isUniqueViolation(err) {
		return nil, false, err
	}
	existing, err := r.GetResourceByCode(ctx, code)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// DeleteRole removes a role by slug. Grants and assignments follow via the
// store's cascade constraints.
func (r *PGRepository) DeleteRole(ctx context.Context, slug authz.RoleSlug) (bool, error) {
	const query = `DELETE FROM roles WHERE slug = $1`
	tag, err := r.pool.Exec(ctx, query, string(slug))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var _ Repository = (*PGRepository)(nil)
