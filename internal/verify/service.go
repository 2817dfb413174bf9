package verify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sentinel-auth/sentinel/internal/accounts"
	"github.com/sentinel-auth/sentinel/jobs"
)

// Enqueuer submits outbound mail to the background queue.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) error
}

// Flags flips the verified flag in the account store.
type Flags interface {
	MarkEmailVerified(ctx context.Context, id int64) (bool, error)
}

// Service orchestrates issuing verification links and consuming them.
type Service struct {
	tokens   *TokenStore
	flags    Flags
	enqueuer Enqueuer
	baseURL  string
	logger   *slog.Logger
}

// NewService constructs a Service. baseURL is the externally reachable origin
// used to build verification links.
func NewService(tokens *TokenStore, flags Flags, enqueuer Enqueuer, baseURL string, logger *slog.Logger) *Service {
	return &Service{tokens: tokens, flags: flags, enqueuer: enqueuer, baseURL: baseURL, logger: logger}
}

// SendVerification issues a token for the user and enqueues the verification
// message.
func (s *Service) SendVerification(ctx context.Context, user *accounts.User) error {
	token, err := s.tokens.Issue(ctx, user.ID)
	if err != nil {
		return err
	}
	link := fmt.Sprintf("%s/auth/verify/%s", s.baseURL, token)
	payload := jobs.SendEmailPayload{
		To:      user.Email,
		Subject: "Verify your email address",
		Body:    "Follow this link to verify your email address: " + link,
	}
	if err := s.enqueuer.EnqueueSendEmail(ctx, payload); err != nil {
		return fmt.Errorf("verify: enqueue mail: %w", err)
	}
	if s.logger != nil {
		s.logger.Info("verification mail queued", slog.Int64("user_id", user.ID))
	}
	return nil
}

// Confirm consumes the token and marks the bound account verified. The flag
// flips at most once; a token for an already-verified account still consumes
// but reports success only on the first flip.
func (s *Service) Confirm(ctx context.Context, token string) error {
	userID, err := s.tokens.Consume(ctx, token)
	if err != nil {
		return err
	}
	if _, err := s.flags.MarkEmailVerified(ctx, userID); err != nil {
		return err
	}
	return nil
}
