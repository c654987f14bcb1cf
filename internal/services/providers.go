package services

import (
	"context"
	"fmt"

	"github.com/Jkinney331/CombatID-sub001/internal/models"
	"github.com/Jkinney331/CombatID-sub001/internal/repository"
	"github.com/Jkinney331/CombatID-sub001/pkg/email"
)

// DeliveryProvider sends one notification over an external channel. The
// dispatch sweep records Send errors as FAILED on the notification; it never
// retries automatically.
type DeliveryProvider interface {
	Send(ctx context.Context, notification *models.Notification) error
}

// EmailProvider delivers notifications over SMTP, resolving the recipient
// address from the identity snapshot.
type EmailProvider struct {
	identity repository.IdentityRepository
}

func NewEmailProvider(identity repository.IdentityRepository) *EmailProvider {
	return &EmailProvider{identity: identity}
}

func (p *EmailProvider) Send(ctx context.Context, notification *models.Notification) error {
	user, err := p.identity.GetUserSummary(ctx, notification.UserID)
	if err != nil {
		return fmt.Errorf("failed to resolve recipient: %w", err)
	}
	if user.Email == "" {
		return fmt.Errorf("user %s has no email address", notification.UserID.Hex())
	}
	return email.SendEmail(user.Email, notification.Title, notification.Message)
}
