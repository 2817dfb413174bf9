package accounts

import "time"

// User represents a user account. Accounts are soft-deactivated, never hard
// deleted.
type User struct {
	ID            int64
	Email         string
	Username      string
	FirstName     string
	LastName      string
	PasswordHash  string
	IsActive      bool
	IsSuperuser   bool
	EmailVerified bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PrincipalID implements authz.Principal.
func (u *User) PrincipalID() int64 { return u.ID }

// Active implements authz.Principal.
func (u *User) Active() bool { return u.IsActive }

// Superuser implements authz.Principal.
func (u *User) Superuser() bool { return u.IsSuperuser }
