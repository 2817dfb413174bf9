package authz

import (
	"time"

	"github.com/sentinel-auth/sentinel/internal/shared"
)

// RoleSlug is the stable identifier for a role in API operations.
type RoleSlug string

// ResourceCode is the stable identifier for a protected resource.
type ResourceCode string

// AdminRole is the role slug that, alongside the superuser flag, makes a
// user an administrator.
const AdminRole RoleSlug = "admin"

// Action is the operation being authorized against a resource.
type Action string

const (
	ActionView   Action = "view"
	ActionEdit   Action = "edit"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

// Actions lists every recognized action.
func Actions() []Action {
	return []Action{ActionView, ActionEdit, ActionDelete, ActionManage}
}

// ParseAction validates a raw action string at the boundary.
func ParseAction(raw string) (Action, error) {
	switch Action(raw) {
	case ActionView, ActionEdit, ActionDelete, ActionManage:
		return Action(raw), nil
	}
	return "", shared.InvalidInputf("Invalid action supplied.")
}

// Role is a named bundle of permissions.
type Role struct {
	ID          int64
	Name        string
	Slug        RoleSlug
	Description string
}

// Resource is a protected capability or domain.
type Resource struct {
	ID          int64
	Code        ResourceCode
	Name        string
	Description string
}

// Grant ties a role to an action on a resource. The (role, resource, action)
// triple is unique in the store.
type Grant struct {
	ID         int64
	RoleID     int64
	ResourceID int64
	Action     Action
}

// Assignment ties a user to a role. The (user, role) pair is unique in the
// store and AssignedAt is immutable.
type Assignment struct {
	ID         int64
	UserID     int64
	RoleID     int64
	AssignedAt time.Time
}

// Principal describes the authenticated actor. Every decision takes the
// acting identity explicitly; there is no request-global user binding.
type Principal interface {
	PrincipalID() int64
	Active() bool
	Superuser() bool
}
