package authz

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store with point EXISTS queries against PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PGStore.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

// UserHasPermission checks the transitive closure user -> roles -> grants for
// an exact (resource, action) match.
func (s *PGStore) UserHasPermission(ctx context.Context, userID int64, resource ResourceCode, action Action) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			JOIN role_permissions rp ON rp.role_id = ur.role_id
			JOIN resources res ON res.id = rp.resource_id
			WHERE ur.user_id = $1 AND res.code = $2 AND rp.action = $3
		)`
	var allowed bool
	if err := s.pool.QueryRow(ctx, query, userID, string(resource), string(action)).Scan(&allowed); err != nil {
		return false, err
	}
	return allowed, nil
}

// UserHasRole checks direct membership in the role identified by slug.
func (s *PGStore) UserHasRole(ctx context.Context, userID int64, slug RoleSlug) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM user_roles ur
			JOIN roles r ON r.id = ur.role_id
			WHERE ur.user_id = $1 AND r.slug = $2
		)`
	var member bool
	if err := s.pool.QueryRow(ctx, query, userID, string(slug)).Scan(&member); err != nil {
		return false, err
	}
	return member, nil
}

var _ Store = (*PGStore)(nil)
