package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Jkinney331/CombatID-sub001/internal/models"
	"github.com/Jkinney331/CombatID-sub001/internal/repository"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GrantConsentDTO carries one consent decision plus audit metadata.
type GrantConsentDTO struct {
	UserID    primitive.ObjectID
	Type      models.ConsentType
	Granted   bool
	IPAddress string
	UserAgent string
}

// ConsentService owns the versioned consent ledger. Only the record matching
// the currently configured version of a type counts toward platform access;
// records for older versions are kept for audit.
type ConsentService struct {
	repo     repository.ConsentRepository
	versions map[models.ConsentType]string
}

// NewConsentService creates a consent service evaluating against the given
// version table (normally models.ConsentVersions).
func NewConsentService(repo repository.ConsentRepository, versions map[models.ConsentType]string) *ConsentService {
	return &ConsentService{
		repo:     repo,
		versions: versions,
	}
}

// Versions returns a copy of the current version table.
func (s *ConsentService) Versions() map[models.ConsentType]string {
	out := make(map[models.ConsentType]string, len(s.versions))
	for t, v := range s.versions {
		out[t] = v
	}
	return out
}

// Grant records or updates a consent decision for the current version of the
// type. Repeated identical calls mutate the same record, never create a
// duplicate.
func (s *ConsentService) Grant(ctx context.Context, dto GrantConsentDTO) (*models.ConsentRecord, error) {
	currentVersion, ok := s.versions[dto.Type]
	if !ok {
		return nil, fmt.Errorf("unknown consent type %q: %w", dto.Type, models.ErrInvalidInput)
	}

	existing, err := s.repo.GetByKey(ctx, dto.UserID, dto.Type, currentVersion)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	if existing != nil {
		existing.Granted = dto.Granted
		if dto.Granted {
			existing.GrantedAt = &now
			existing.RevokedAt = nil
		} else {
			existing.RevokedAt = &now
		}
		if dto.IPAddress != "" {
			existing.IPAddress = dto.IPAddress
		}
		if dto.UserAgent != "" {
			existing.UserAgent = dto.UserAgent
		}
		return s.repo.Update(ctx, existing)
	}

	record := &models.ConsentRecord{
		UserID:    dto.UserID,
		Type:      dto.Type,
		Version:   currentVersion,
		Granted:   dto.Granted,
		IPAddress: dto.IPAddress,
		UserAgent: dto.UserAgent,
	}
	if dto.Granted {
		record.GrantedAt = &now
	} else {
		record.RevokedAt = &now
	}
	return s.repo.Create(ctx, record)
}

// Revoke withdraws a consent at the current version. Required consent types
// cannot be revoked here: doing so would suspend platform access, which is
// outside this service's authority.
func (s *ConsentService) Revoke(ctx context.Context, userID primitive.ObjectID, consentType models.ConsentType) (*models.ConsentRecord, error) {
	currentVersion, ok := s.versions[consentType]
	if !ok {
		return nil, fmt.Errorf("unknown consent type %q: %w", consentType, models.ErrInvalidInput)
	}

	record, err := s.repo.GetByKey(ctx, userID, consentType, currentVersion)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, fmt.Errorf("consent record for %s: %w", consentType, models.ErrNotFound)
	}

	if models.IsRequiredConsent(consentType) {
		return nil, fmt.Errorf("%s: %w", consentType, models.ErrConsentRequired)
	}

	now := time.Now()
	record.Granted = false
	record.RevokedAt = &now

	logrus.WithFields(logrus.Fields{
		"user_id": userID.Hex(),
		"type":    consentType,
	}).Info("Consent revoked")
	return s.repo.Update(ctx, record)
}

// Status reports the user's standing on every known consent type against the
// current version table.
func (s *ConsentService) Status(ctx context.Context, userID primitive.ObjectID) ([]models.ConsentStatus, error) {
	records, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	statuses := make([]models.ConsentStatus, 0, len(models.AllConsentTypes()))
	for _, consentType := range models.AllConsentTypes() {
		currentVersion := s.versions[consentType]

		var current *models.ConsentRecord
		for i := range records {
			if records[i].Type == consentType && records[i].Version == currentVersion {
				current = &records[i]
				break
			}
		}

		status := models.ConsentStatus{
			Type:           consentType,
			CurrentVersion: currentVersion,
			NeedsRenewal:   current == nil,
		}
		if current != nil {
			status.Granted = current.Granted
			status.GrantedAt = current.GrantedAt
			status.GrantedVersion = current.Version
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// HasRequiredConsents reports whether every required consent is granted at
// the current version.
func (s *ConsentService) HasRequiredConsents(ctx context.Context, userID primitive.ObjectID) (bool, error) {
	statuses, err := s.Status(ctx, userID)
	if err != nil {
		return false, err
	}

	for _, required := range models.RequiredConsents {
		satisfied := false
		for _, status := range statuses {
			if status.Type == required && status.Granted && !status.NeedsRenewal {
				satisfied = true
				break
			}
		}
		if !satisfied {
			return false, nil
		}
	}
	return true, nil
}

// MissingConsents returns the required types the user has not granted at the
// current version.
func (s *ConsentService) MissingConsents(ctx context.Context, userID primitive.ObjectID) ([]models.ConsentType, error) {
	statuses, err := s.Status(ctx, userID)
	if err != nil {
		return nil, err
	}

	missing := make([]models.ConsentType, 0)
	for _, required := range models.RequiredConsents {
		for _, status := range statuses {
			if status.Type == required && (!status.Granted || status.NeedsRenewal) {
				missing = append(missing, required)
				break
			}
		}
	}
	return missing, nil
}

// GrantBulk grants every listed type, typically at signup. Each grant is
// independent: one failure is logged and skipped without rolling back
// siblings.
func (s *ConsentService) GrantBulk(ctx context.Context, userID primitive.ObjectID, types []models.ConsentType, ipAddress, userAgent string) ([]models.ConsentRecord, error) {
	records := make([]models.ConsentRecord, 0, len(types))
	for _, consentType := range types {
		record, err := s.Grant(ctx, GrantConsentDTO{
			UserID:    userID,
			Type:      consentType,
			Granted:   true,
			IPAddress: ipAddress,
			UserAgent: userAgent,
		})
		if err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"user_id": userID.Hex(),
				"type":    consentType,
			}).Warn("Failed to grant consent in bulk operation")
			continue
		}
		records = append(records, *record)
	}

	logrus.WithFields(logrus.Fields{
		"user_id": userID.Hex(),
		"granted": len(records),
	}).Info("Bulk consents granted")
	return records, nil
}

// History returns the full audit trail for the user, optionally filtered to
// one type. Pass an empty type for all.
func (s *ConsentService) History(ctx context.Context, userID primitive.ObjectID, consentType models.ConsentType) ([]models.ConsentRecord, error) {
	return s.repo.GetHistory(ctx, userID, consentType)
}
