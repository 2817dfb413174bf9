package grants

import (
	"encoding/json"
	"strings"

	"github.com/sentinel-auth/sentinel/internal/authz"
)

// Outcome reports how an idempotent mutation resolved.
type Outcome string

const (
	OutcomeGranted         Outcome = "granted"
	OutcomeAlreadyGranted  Outcome = "already_granted"
	OutcomeRevoked         Outcome = "revoked"
	OutcomeNotFound        Outcome = "not_found"
	OutcomeAssigned        Outcome = "assigned"
	OutcomeAlreadyAssigned Outcome = "already_assigned"
	OutcomeCreated         Outcome = "created"
	OutcomeAlreadyExists   Outcome = "already_exists"
)

// PermissionEntry is one grant row in a listing, in insertion order.
type PermissionEntry struct {
	Resource authz.ResourceCode `json:"resource"`
	Action   authz.Action       `json:"action"`
}

// RoleGrants is one role with its permissions, as served to admin dashboards.
type RoleGrants struct {
	ID          int64             `json:"id"`
	Name        string            `json:"name"`
	Slug        authz.RoleSlug    `json:"slug"`
	Description string            `json:"description"`
	Permissions []PermissionEntry `json:"permissions"`
}

// FlexBool accepts native booleans plus the loosely-typed forms callers send:
// the strings "true"/"1"/"yes" (case-insensitive) map to true, any other
// string to false, and numbers follow their truthiness.
type FlexBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *FlexBool) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case bool:
		*b = FlexBool(v)
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			*b = true
		default:
			*b = false
		}
	case float64:
		*b = v != 0
	default:
		*b = false
	}
	return nil
}

// Bool unwraps the flag.
func (b FlexBool) Bool() bool { return bool(b) }
