package services

import (
	"context"
	"time"

	"github.com/Jkinney331/CombatID-sub001/internal/models"
	"github.com/Jkinney331/CombatID-sub001/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ComplianceService is the thin orchestration layer exposed to controllers
// for privacy workflows, composing the consent ledger and the notification
// dispatcher.
type ComplianceService struct {
	consents      *ConsentService
	notifications *NotificationService
	identityRepo  repository.IdentityRepository
}

func NewComplianceService(consents *ConsentService, notifications *NotificationService, identityRepo repository.IdentityRepository) *ComplianceService {
	return &ComplianceService{
		consents:      consents,
		notifications: notifications,
		identityRepo:  identityRepo,
	}
}

// ExportUserData assembles the data-portability snapshot: identity summary,
// full consent trail, organization memberships and login history. Pure read.
func (s *ComplianceService) ExportUserData(ctx context.Context, userID primitive.ObjectID) (*models.UserDataExport, error) {
	user, err := s.identityRepo.GetUserSummary(ctx, userID)
	if err != nil {
		return nil, err
	}

	consents, err := s.consents.History(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	organizations, err := s.identityRepo.GetOrganizationMemberships(ctx, userID)
	if err != nil {
		return nil, err
	}

	sessions, err := s.identityRepo.GetSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	logrus.WithField("user_id", userID.Hex()).Info("User data exported")
	return &models.UserDataExport{
		ExportedAt:    time.Now(),
		User:          user,
		Consents:      consents,
		Organizations: organizations,
		LoginHistory:  sessions,
	}, nil
}

// RequestDataDeletion records the intent to delete and acknowledges it.
// Deletion itself runs out of band: admin review, grace period and legal
// holds are handled by a separate process.
func (s *ComplianceService) RequestDataDeletion(ctx context.Context, userID primitive.ObjectID) (*models.DeletionRequestAck, error) {
	requestID := uuid.NewString()

	logrus.WithFields(logrus.Fields{
		"user_id":    userID.Hex(),
		"request_id": requestID,
	}).Info("Data deletion requested")

	return &models.DeletionRequestAck{
		RequestID: requestID,
		Message:   "Your data deletion request has been received. We will process it within 30 days as required by law.",
	}, nil
}

// GrantSignupConsents is the signup path: grant the listed consents and seed
// default notification preferences. A preference-seeding failure does not
// undo the granted consents.
func (s *ComplianceService) GrantSignupConsents(ctx context.Context, userID primitive.ObjectID, types []models.ConsentType, ipAddress, userAgent string) ([]models.ConsentRecord, error) {
	records, err := s.consents.GrantBulk(ctx, userID, types, ipAddress, userAgent)
	if err != nil {
		return nil, err
	}

	if err := s.notifications.InitializePreferences(ctx, userID); err != nil {
		logrus.WithError(err).WithField("user_id", userID.Hex()).Warn("Failed to initialize notification preferences at signup")
	}
	return records, nil
}
