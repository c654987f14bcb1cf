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

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
	pendingBatchSize = 100
)

// CreateNotificationDTO carries everything needed to create a notification.
// Channel defaults to IN_APP when empty.
type CreateNotificationDTO struct {
	UserID     primitive.ObjectID
	Type       models.NotificationType
	Title      string
	Message    string
	Data       map[string]interface{}
	EntityType string
	EntityID   string
	Channel    models.NotificationChannel
}

// NotificationQueryDTO narrows FindByUser listings.
type NotificationQueryDTO struct {
	Type       models.NotificationType
	Status     models.NotificationStatus
	UnreadOnly bool
	Page       int64
	Limit      int64
}

// UpdatePreferenceDTO updates channel opt-ins for one notification type. Nil
// flags are left unchanged on update and take the channel default on
// creation.
type UpdatePreferenceDTO struct {
	Type         models.NotificationType
	InAppEnabled *bool
	EmailEnabled *bool
	PushEnabled  *bool
	SMSEnabled   *bool
}

// NotificationList is the paginated FindByUser result. UnreadCount always
// counts every unread notification for the user, independent of the query
// filters.
type NotificationList struct {
	Notifications []models.Notification `json:"notifications"`
	Total         int64                 `json:"total"`
	UnreadCount   int64                 `json:"unread_count"`
}

// NotificationService creates notifications gated by user preferences and
// advances their delivery lifecycle.
type NotificationService struct {
	repo      repository.NotificationRepository
	prefRepo  repository.PreferenceRepository
	providers map[models.NotificationChannel]DeliveryProvider
}

func NewNotificationService(repo repository.NotificationRepository, prefRepo repository.PreferenceRepository, providers map[models.NotificationChannel]DeliveryProvider) *NotificationService {
	if providers == nil {
		providers = map[models.NotificationChannel]DeliveryProvider{}
	}
	return &NotificationService{
		repo:      repo,
		prefRepo:  prefRepo,
		providers: providers,
	}
}

func (s *NotificationService) channelEnabled(ctx context.Context, userID primitive.ObjectID, notificationType models.NotificationType, channel models.NotificationChannel) (bool, error) {
	pref, err := s.prefRepo.Get(ctx, userID, notificationType)
	if err != nil {
		return false, err
	}
	if pref == nil {
		pref = models.DefaultPreference(userID, notificationType)
	}
	return pref.ChannelEnabled(channel), nil
}

// Create persists a PENDING notification unless the user has opted out of
// the channel for this type, in which case it returns (nil, nil). Silent
// suppression is intentional: callers must not treat an opt-out as a
// failure.
func (s *NotificationService) Create(ctx context.Context, dto CreateNotificationDTO) (*models.Notification, error) {
	channel := dto.Channel
	if channel == "" {
		channel = models.ChannelInApp
	}

	enabled, err := s.channelEnabled(ctx, dto.UserID, dto.Type, channel)
	if err != nil {
		return nil, err
	}
	if !enabled {
		logrus.WithFields(logrus.Fields{
			"user_id": dto.UserID.Hex(),
			"type":    dto.Type,
			"channel": channel,
		}).Debug("Notification suppressed by user preference")
		return nil, nil
	}

	notification := &models.Notification{
		UserID:     dto.UserID,
		Type:       dto.Type,
		Title:      dto.Title,
		Message:    dto.Message,
		Data:       dto.Data,
		EntityType: dto.EntityType,
		EntityID:   dto.EntityID,
		Channel:    channel,
		Status:     models.StatusPending,
	}
	return s.repo.Create(ctx, notification)
}

// CreateBulk creates each notification independently and returns how many
// were persisted. Suppressed or failed items do not block siblings.
func (s *NotificationService) CreateBulk(ctx context.Context, dtos []CreateNotificationDTO) (int, error) {
	created := 0
	for _, dto := range dtos {
		notification, err := s.Create(ctx, dto)
		if err != nil {
			logrus.WithError(err).WithField("user_id", dto.UserID.Hex()).Warn("Failed to create notification in bulk operation")
			continue
		}
		if notification != nil {
			created++
		}
	}
	return created, nil
}

// FindByID returns a notification by id.
func (s *NotificationService) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification == nil {
		return nil, fmt.Errorf("notification %s: %w", id.Hex(), models.ErrNotFound)
	}
	return notification, nil
}

// FindByUser returns a page of the user's notifications plus total and
// unread counts.
func (s *NotificationService) FindByUser(ctx context.Context, userID primitive.ObjectID, query NotificationQueryDTO) (*NotificationList, error) {
	page := query.Page
	if page < 1 {
		page = 1
	}
	limit := query.Limit
	if limit < 1 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	filter := repository.NotificationFilter{
		UserID:     userID,
		Type:       query.Type,
		Status:     query.Status,
		UnreadOnly: query.UnreadOnly,
		Skip:       (page - 1) * limit,
		Limit:      limit,
	}

	notifications, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	unreadCount, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return nil, err
	}

	if notifications == nil {
		notifications = []models.Notification{}
	}
	return &NotificationList{
		Notifications: notifications,
		Total:         total,
		UnreadCount:   unreadCount,
	}, nil
}

// ownedByUser fetches a notification and verifies ownership. Both a missing
// record and a foreign-owned one yield the same ErrNotFound so callers
// cannot probe for other users' notifications.
func (s *NotificationService) ownedByUser(ctx context.Context, id, userID primitive.ObjectID) (*models.Notification, error) {
	notification, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if notification == nil || notification.UserID != userID {
		return nil, fmt.Errorf("notification %s: %w", id.Hex(), models.ErrNotFound)
	}
	return notification, nil
}

// MarkAsRead transitions the user's notification to READ. Idempotent when
// already read.
func (s *NotificationService) MarkAsRead(ctx context.Context, id, userID primitive.ObjectID) (*models.Notification, error) {
	notification, err := s.ownedByUser(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if notification.Status == models.StatusRead {
		return notification, nil
	}

	now := time.Now()
	if err := s.repo.MarkRead(ctx, id, now); err != nil {
		return nil, err
	}
	notification.Status = models.StatusRead
	notification.ReadAt = &now
	return notification, nil
}

// MarkAllAsRead transitions every unread notification for the user and
// returns how many were updated.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID, time.Now())
}

// GetUnreadCount counts all unread notifications for the user.
func (s *NotificationService) GetUnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.repo.CountUnread(ctx, userID)
}

// Delete removes the user's notification. Ownership is checked like
// MarkAsRead.
func (s *NotificationService) Delete(ctx context.Context, id, userID primitive.ObjectID) error {
	if _, err := s.ownedByUser(ctx, id, userID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// DeleteAll removes every notification for the user and returns the count.
func (s *NotificationService) DeleteAll(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.repo.DeleteByUser(ctx, userID)
}

// GetPreferences returns only explicitly stored preference rows; absence of
// a row means defaults apply.
func (s *NotificationService) GetPreferences(ctx context.Context, userID primitive.ObjectID) ([]models.NotificationPreference, error) {
	prefs, err := s.prefRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		prefs = []models.NotificationPreference{}
	}
	return prefs, nil
}

// UpdatePreference creates or updates the row for (user, type). Omitted
// flags keep their stored value on update and take the channel default on
// creation.
func (s *NotificationService) UpdatePreference(ctx context.Context, userID primitive.ObjectID, dto UpdatePreferenceDTO) (*models.NotificationPreference, error) {
	existing, err := s.prefRepo.Get(ctx, userID, dto.Type)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		pref := models.DefaultPreference(userID, dto.Type)
		applyPreferenceFlags(pref, dto)
		return s.prefRepo.Create(ctx, pref)
	}

	applyPreferenceFlags(existing, dto)
	return s.prefRepo.Update(ctx, existing)
}

func applyPreferenceFlags(pref *models.NotificationPreference, dto UpdatePreferenceDTO) {
	if dto.InAppEnabled != nil {
		pref.InAppEnabled = *dto.InAppEnabled
	}
	if dto.EmailEnabled != nil {
		pref.EmailEnabled = *dto.EmailEnabled
	}
	if dto.PushEnabled != nil {
		pref.PushEnabled = *dto.PushEnabled
	}
	if dto.SMSEnabled != nil {
		pref.SMSEnabled = *dto.SMSEnabled
	}
}

// InitializePreferences seeds one default row per known notification type.
// Safe to call repeatedly: existing rows, including user customizations, are
// left untouched.
func (s *NotificationService) InitializePreferences(ctx context.Context, userID primitive.ObjectID) error {
	for _, notificationType := range models.AllNotificationTypes() {
		existing, err := s.prefRepo.Get(ctx, userID, notificationType)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := s.prefRepo.Create(ctx, models.DefaultPreference(userID, notificationType)); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"user_id": userID.Hex(),
				"type":    notificationType,
			}).Warn("Failed to seed notification preference")
		}
	}
	return nil
}

// NotifyDocumentExpiring alerts the user that a compliance document is about
// to lapse.
func (s *NotificationService) NotifyDocumentExpiring(ctx context.Context, userID primitive.ObjectID, documentType string, expirationDate time.Time, documentID string) (*models.Notification, error) {
	return s.Create(ctx, CreateNotificationDTO{
		UserID:  userID,
		Type:    models.NotificationDocumentExpiring,
		Title:   "Document Expiring Soon",
		Message: fmt.Sprintf("Your %s will expire on %s", documentType, expirationDate.Format("Jan 2, 2006")),
		Data: map[string]interface{}{
			"document_type":   documentType,
			"expiration_date": expirationDate.Format(time.RFC3339),
		},
		EntityType: "Document",
		EntityID:   documentID,
	})
}

// NotifyEventApproved tells a promoter their event was sanctioned.
func (s *NotificationService) NotifyEventApproved(ctx context.Context, userID primitive.ObjectID, eventName, eventID string) (*models.Notification, error) {
	return s.Create(ctx, CreateNotificationDTO{
		UserID:     userID,
		Type:       models.NotificationEventApproved,
		Title:      "Event Approved",
		Message:    fmt.Sprintf("Your event %q has been approved", eventName),
		EntityType: "Event",
		EntityID:   eventID,
	})
}

// NotifyEventRejected tells a promoter their event was rejected, with an
// optional reason.
func (s *NotificationService) NotifyEventRejected(ctx context.Context, userID primitive.ObjectID, eventName, eventID, reason string) (*models.Notification, error) {
	message := fmt.Sprintf("Your event %q has been rejected", eventName)
	var data map[string]interface{}
	if reason != "" {
		message = fmt.Sprintf("%s: %s", message, reason)
		data = map[string]interface{}{"reason": reason}
	}
	return s.Create(ctx, CreateNotificationDTO{
		UserID:     userID,
		Type:       models.NotificationEventRejected,
		Title:      "Event Rejected",
		Message:    message,
		Data:       data,
		EntityType: "Event",
		EntityID:   eventID,
	})
}

// NotifyBoutSigned announces a signed bout agreement.
func (s *NotificationService) NotifyBoutSigned(ctx context.Context, userID primitive.ObjectID, fighterName, eventName, boutID string) (*models.Notification, error) {
	return s.Create(ctx, CreateNotificationDTO{
		UserID:     userID,
		Type:       models.NotificationBoutSigned,
		Title:      "Bout Agreement Signed",
		Message:    fmt.Sprintf("%s has signed the bout agreement for %s", fighterName, eventName),
		EntityType: "Bout",
		EntityID:   boutID,
	})
}

// NotifySuspensionCreated informs a fighter of a medical suspension.
func (s *NotificationService) NotifySuspensionCreated(ctx context.Context, userID primitive.ObjectID, reason, suspensionID string) (*models.Notification, error) {
	return s.Create(ctx, CreateNotificationDTO{
		UserID:     userID,
		Type:       models.NotificationSuspensionCreated,
		Title:      "Medical Suspension Issued",
		Message:    fmt.Sprintf("A medical suspension has been issued: %s", reason),
		EntityType: "MedicalSuspension",
		EntityID:   suspensionID,
	})
}

// NotifyEligibilityChanged informs a fighter their eligibility status moved.
func (s *NotificationService) NotifyEligibilityChanged(ctx context.Context, userID primitive.ObjectID, newStatus, fighterID string) (*models.Notification, error) {
	return s.Create(ctx, CreateNotificationDTO{
		UserID:     userID,
		Type:       models.NotificationEligibilityChanged,
		Title:      "Eligibility Status Changed",
		Message:    fmt.Sprintf("Your eligibility status has changed to: %s", newStatus),
		Data:       map[string]interface{}{"new_status": newStatus},
		EntityType: "Fighter",
		EntityID:   fighterID,
	})
}

// ProcessPendingNotifications advances up to 100 PENDING notifications
// toward SENT or FAILED and returns how many were sent. IN_APP delivery is
// the record itself, so those transition to SENT immediately; other channels
// go through the registered delivery provider. A provider failure marks that
// one notification FAILED and the sweep continues.
//
// The sweep assumes a single scheduler instance; there is no claim step, so
// two concurrent sweeps could double-process the same batch.
func (s *NotificationService) ProcessPendingNotifications(ctx context.Context) (int, error) {
	pending, err := s.repo.ListPending(ctx, pendingBatchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range pending {
		notification := &pending[i]

		if notification.Channel == models.ChannelInApp {
			if err := s.repo.MarkSent(ctx, notification.ID, time.Now()); err != nil {
				logrus.WithError(err).WithField("notification_id", notification.ID.Hex()).Error("Failed to mark notification as sent")
				continue
			}
			processed++
			continue
		}

		provider, ok := s.providers[notification.Channel]
		if !ok {
			reason := fmt.Sprintf("no delivery provider configured for channel %s", notification.Channel)
			if err := s.repo.MarkFailed(ctx, notification.ID, reason); err != nil {
				logrus.WithError(err).WithField("notification_id", notification.ID.Hex()).Error("Failed to mark notification as failed")
			}
			continue
		}

		if err := s.deliver(ctx, provider, notification); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"notification_id": notification.ID.Hex(),
				"channel":         notification.Channel,
			}).Warn("Notification delivery failed")
			if err := s.repo.MarkFailed(ctx, notification.ID, err.Error()); err != nil {
				logrus.WithError(err).WithField("notification_id", notification.ID.Hex()).Error("Failed to mark notification as failed")
			}
			continue
		}

		if err := s.repo.MarkSent(ctx, notification.ID, time.Now()); err != nil {
			logrus.WithError(err).WithField("notification_id", notification.ID.Hex()).Error("Failed to mark notification as sent")
			continue
		}
		processed++
	}
	return processed, nil
}

// deliver invokes the provider, converting a panic into an error so one bad
// provider call cannot abort the sweep.
func (s *NotificationService) deliver(ctx context.Context, provider DeliveryProvider, notification *models.Notification) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("delivery panicked: %v", r)
		}
	}()
	return provider.Send(ctx, notification)
}
