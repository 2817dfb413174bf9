package accounts

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/sentinel-auth/sentinel/internal/shared"
)

// Service wraps credential lifecycle business rules.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register creates a new account in the unverified state.
func (s *Service) Register(ctx context.Context, email, username, password string) (*User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.repo.Create(ctx, strings.ToLower(strings.TrimSpace(email)), strings.TrimSpace(username), string(hash))
}

// Authenticate validates email/password credentials. Unverified accounts are
// rejected with ErrEmailNotVerified so the caller can resend verification;
// the user is still returned in that case.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if !user.EmailVerified {
		return user, shared.ErrEmailNotVerified
	}
	return user, nil
}

// UpdateProfile changes the mutable profile fields.
func (s *Service) UpdateProfile(ctx context.Context, user *User, firstName, lastName, username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return shared.InvalidInputf("username is required.")
	}
	return s.repo.UpdateProfile(ctx, user.ID, strings.TrimSpace(firstName), strings.TrimSpace(lastName), username)
}

// Deactivate soft-deactivates the account after confirming the password.
func (s *Service) Deactivate(ctx context.Context, user *User, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return shared.InvalidInputf("Incorrect password.")
		}
		return err
	}
	return s.repo.SetActive(ctx, user.ID, false)
}

// GetByID fetches an account by primary key.
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}
