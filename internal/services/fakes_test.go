package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Jkinney331/CombatID-sub001/internal/models"
	"github.com/Jkinney331/CombatID-sub001/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository fakes backing the service tests.

type memConsentRepo struct {
	records []*models.ConsentRecord
}

func newMemConsentRepo() *memConsentRepo {
	return &memConsentRepo{}
}

func (r *memConsentRepo) GetByKey(_ context.Context, userID primitive.ObjectID, consentType models.ConsentType, version string) (*models.ConsentRecord, error) {
	for _, rec := range r.records {
		if rec.UserID == userID && rec.Type == consentType && rec.Version == version {
			return rec, nil
		}
	}
	return nil, nil
}

func (r *memConsentRepo) Create(_ context.Context, record *models.ConsentRecord) (*models.ConsentRecord, error) {
	record.ID = primitive.NewObjectID()
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	r.records = append(r.records, record)
	return record, nil
}

func (r *memConsentRepo) Update(_ context.Context, record *models.ConsentRecord) (*models.ConsentRecord, error) {
	record.UpdatedAt = time.Now()
	for i, rec := range r.records {
		if rec.ID == record.ID {
			r.records[i] = record
			return record, nil
		}
	}
	return nil, fmt.Errorf("consent record %s not stored", record.ID.Hex())
}

func (r *memConsentRepo) GetByUser(_ context.Context, userID primitive.ObjectID) ([]models.ConsentRecord, error) {
	var out []models.ConsentRecord
	for _, rec := range r.records {
		if rec.UserID == userID {
			out = append(out, *rec)
		}
	}
	return out, nil
}

func (r *memConsentRepo) GetHistory(_ context.Context, userID primitive.ObjectID, consentType models.ConsentType) ([]models.ConsentRecord, error) {
	var out []models.ConsentRecord
	for _, rec := range r.records {
		if rec.UserID == userID && (consentType == "" || rec.Type == consentType) {
			out = append(out, *rec)
		}
	}
	return out, nil
}

type memNotificationRepo struct {
	notifications []*models.Notification
}

func newMemNotificationRepo() *memNotificationRepo {
	return &memNotificationRepo{}
}

func (r *memNotificationRepo) Create(_ context.Context, n *models.Notification) (*models.Notification, error) {
	n.ID = primitive.NewObjectID()
	n.CreatedAt = time.Now()
	r.notifications = append(r.notifications, n)
	return n, nil
}

func (r *memNotificationRepo) GetByID(_ context.Context, id primitive.ObjectID) (*models.Notification, error) {
	for _, n := range r.notifications {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, nil
}

func (r *memNotificationRepo) matches(n *models.Notification, filter repository.NotificationFilter) bool {
	if n.UserID != filter.UserID {
		return false
	}
	if filter.Type != "" && n.Type != filter.Type {
		return false
	}
	if filter.Status != "" && n.Status != filter.Status {
		return false
	}
	if filter.UnreadOnly && n.ReadAt != nil {
		return false
	}
	return true
}

func (r *memNotificationRepo) List(_ context.Context, filter repository.NotificationFilter) ([]models.Notification, error) {
	// Insertion order is creation order; newest first means reverse.
	var matched []models.Notification
	for i := len(r.notifications) - 1; i >= 0; i-- {
		if r.matches(r.notifications[i], filter) {
			matched = append(matched, *r.notifications[i])
		}
	}

	if filter.Skip >= int64(len(matched)) {
		return nil, nil
	}
	matched = matched[filter.Skip:]
	if filter.Limit > 0 && int64(len(matched)) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func (r *memNotificationRepo) Count(_ context.Context, filter repository.NotificationFilter) (int64, error) {
	var count int64
	for _, n := range r.notifications {
		if r.matches(n, filter) {
			count++
		}
	}
	return count, nil
}

func (r *memNotificationRepo) CountUnread(_ context.Context, userID primitive.ObjectID) (int64, error) {
	var count int64
	for _, n := range r.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}

func (r *memNotificationRepo) MarkRead(_ context.Context, id primitive.ObjectID, readAt time.Time) error {
	for _, n := range r.notifications {
		if n.ID == id {
			n.Status = models.StatusRead
			at := readAt
			n.ReadAt = &at
			return nil
		}
	}
	return fmt.Errorf("notification %s not stored", id.Hex())
}

func (r *memNotificationRepo) MarkAllRead(_ context.Context, userID primitive.ObjectID, readAt time.Time) (int64, error) {
	var count int64
	for _, n := range r.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			n.Status = models.StatusRead
			at := readAt
			n.ReadAt = &at
			count++
		}
	}
	return count, nil
}

func (r *memNotificationRepo) Delete(_ context.Context, id primitive.ObjectID) error {
	for i, n := range r.notifications {
		if n.ID == id {
			r.notifications = append(r.notifications[:i], r.notifications[i+1:]...)
			return nil
		}
	}
	return nil
}

func (r *memNotificationRepo) DeleteByUser(_ context.Context, userID primitive.ObjectID) (int64, error) {
	var kept []*models.Notification
	var deleted int64
	for _, n := range r.notifications {
		if n.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, n)
	}
	r.notifications = kept
	return deleted, nil
}

func (r *memNotificationRepo) ListPending(_ context.Context, limit int64) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range r.notifications {
		if n.Status == models.StatusPending {
			out = append(out, *n)
			if int64(len(out)) == limit {
				break
			}
		}
	}
	return out, nil
}

func (r *memNotificationRepo) MarkSent(_ context.Context, id primitive.ObjectID, sentAt time.Time) error {
	for _, n := range r.notifications {
		if n.ID == id {
			n.Status = models.StatusSent
			at := sentAt
			n.SentAt = &at
			return nil
		}
	}
	return fmt.Errorf("notification %s not stored", id.Hex())
}

func (r *memNotificationRepo) MarkFailed(_ context.Context, id primitive.ObjectID, reason string) error {
	for _, n := range r.notifications {
		if n.ID == id {
			n.Status = models.StatusFailed
			n.FailureReason = reason
			return nil
		}
	}
	return fmt.Errorf("notification %s not stored", id.Hex())
}

type memPreferenceRepo struct {
	prefs []*models.NotificationPreference
}

func newMemPreferenceRepo() *memPreferenceRepo {
	return &memPreferenceRepo{}
}

func (r *memPreferenceRepo) Get(_ context.Context, userID primitive.ObjectID, notificationType models.NotificationType) (*models.NotificationPreference, error) {
	for _, p := range r.prefs {
		if p.UserID == userID && p.Type == notificationType {
			return p, nil
		}
	}
	return nil, nil
}

func (r *memPreferenceRepo) GetByUser(_ context.Context, userID primitive.ObjectID) ([]models.NotificationPreference, error) {
	var out []models.NotificationPreference
	for _, p := range r.prefs {
		if p.UserID == userID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (r *memPreferenceRepo) Create(_ context.Context, pref *models.NotificationPreference) (*models.NotificationPreference, error) {
	pref.ID = primitive.NewObjectID()
	pref.CreatedAt = time.Now()
	pref.UpdatedAt = pref.CreatedAt
	r.prefs = append(r.prefs, pref)
	return pref, nil
}

func (r *memPreferenceRepo) Update(_ context.Context, pref *models.NotificationPreference) (*models.NotificationPreference, error) {
	pref.UpdatedAt = time.Now()
	for i, p := range r.prefs {
		if p.ID == pref.ID {
			r.prefs[i] = pref
			return pref, nil
		}
	}
	return nil, fmt.Errorf("preference %s not stored", pref.ID.Hex())
}

type memIdentityRepo struct {
	user     *models.UserSummary
	orgs     []models.OrganizationMembership
	sessions []models.SessionRecord
}

func (r *memIdentityRepo) GetUserSummary(_ context.Context, userID primitive.ObjectID) (*models.UserSummary, error) {
	if r.user == nil || r.user.ID != userID {
		return nil, fmt.Errorf("user %s: %w", userID.Hex(), models.ErrNotFound)
	}
	return r.user, nil
}

func (r *memIdentityRepo) GetOrganizationMemberships(_ context.Context, userID primitive.ObjectID) ([]models.OrganizationMembership, error) {
	return r.orgs, nil
}

func (r *memIdentityRepo) GetSessions(_ context.Context, userID primitive.ObjectID) ([]models.SessionRecord, error) {
	return r.sessions, nil
}

// stubProvider is a controllable delivery provider.
type stubProvider struct {
	err    error
	panics bool
	sent   []primitive.ObjectID
}

func (p *stubProvider) Send(_ context.Context, n *models.Notification) error {
	if p.panics {
		panic("provider exploded")
	}
	if p.err != nil {
		return p.err
	}
	p.sent = append(p.sent, n.ID)
	return nil
}
