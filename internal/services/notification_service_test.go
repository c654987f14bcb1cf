package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/Jkinney331/CombatID-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newNotificationFixture(providers map[models.NotificationChannel]DeliveryProvider) (*NotificationService, *memNotificationRepo, *memPreferenceRepo) {
	repo := newMemNotificationRepo()
	prefRepo := newMemPreferenceRepo()
	return NewNotificationService(repo, prefRepo, providers), repo, prefRepo
}

func boolPtr(b bool) *bool { return &b }

func TestCreateDefaultsToInApp(t *testing.T) {
	svc, _, _ := newNotificationFixture(nil)
	userID := primitive.NewObjectID()

	notification, err := svc.Create(context.Background(), CreateNotificationDTO{
		UserID:  userID,
		Type:    models.NotificationEventApproved,
		Title:   "Event Approved",
		Message: "ok",
	})
	require.NoError(t, err)
	require.NotNil(t, notification)
	assert.Equal(t, models.ChannelInApp, notification.Channel)
	assert.Equal(t, models.StatusPending, notification.Status)
	assert.False(t, notification.ID.IsZero())
}

func TestCreateSuppressedByPreference(t *testing.T) {
	svc, repo, _ := newNotificationFixture(nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	_, err := svc.UpdatePreference(ctx, userID, UpdatePreferenceDTO{
		Type:         models.NotificationDocumentExpiring,
		InAppEnabled: boolPtr(false),
	})
	require.NoError(t, err)

	notification, err := svc.NotifyDocumentExpiring(ctx, userID, "medical clearance", time.Now().Add(72*time.Hour), "doc-1")
	require.NoError(t, err, "an opt-out is not an error")
	assert.Nil(t, notification, "an opt-out must be a silent no-op")
	assert.Empty(t, repo.notifications, "nothing may be persisted for a suppressed notification")

	count, err := svc.GetUnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateUsesChannelDefaultsWithoutPreferenceRow(t *testing.T) {
	svc, _, _ := newNotificationFixture(nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	// Email is enabled by default.
	emailNotif, err := svc.Create(ctx, CreateNotificationDTO{
		UserID:  userID,
		Type:    models.NotificationBoutSigned,
		Title:   "t",
		Message: "m",
		Channel: models.ChannelEmail,
	})
	require.NoError(t, err)
	assert.NotNil(t, emailNotif)

	// SMS is disabled by default.
	smsNotif, err := svc.Create(ctx, CreateNotificationDTO{
		UserID:  userID,
		Type:    models.NotificationBoutSigned,
		Title:   "t",
		Message: "m",
		Channel: models.ChannelSMS,
	})
	require.NoError(t, err)
	assert.Nil(t, smsNotif)
}

func TestCreateBulkCountsOnlyPersisted(t *testing.T) {
	svc, _, _ := newNotificationFixture(nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	_, err := svc.UpdatePreference(ctx, userID, UpdatePreferenceDTO{
		Type:         models.NotificationEventRejected,
		InAppEnabled: boolPtr(false),
	})
	require.NoError(t, err)

	created, err := svc.CreateBulk(ctx, []CreateNotificationDTO{
		{UserID: userID, Type: models.NotificationEventApproved, Title: "a", Message: "a"},
		{UserID: userID, Type: models.NotificationEventRejected, Title: "b", Message: "b"},
		{UserID: userID, Type: models.NotificationBoutSigned, Title: "c", Message: "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, created)
}

func TestFindByUserPagination(t *testing.T) {
	svc, _, _ := newNotificationFixture(nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := svc.Create(ctx, CreateNotificationDTO{
			UserID:  userID,
			Type:    models.NotificationEventApproved,
			Title:   fmt.Sprintf("n-%d", i),
			Message: "m",
		})
		require.NoError(t, err)
	}

	// Oversized limits are clamped to 100.
	list, err := svc.FindByUser(ctx, userID, NotificationQueryDTO{Limit: 101})
	require.NoError(t, err)
	assert.Len(t, list.Notifications, 25)
	assert.Equal(t, int64(25), list.Total)
	assert.Equal(t, int64(25), list.UnreadCount)

	// Page 2 with limit 20 skips exactly 20 rows.
	list, err = svc.FindByUser(ctx, userID, NotificationQueryDTO{Page: 2, Limit: 20})
	require.NoError(t, err)
	assert.Len(t, list.Notifications, 5)
	assert.Equal(t, int64(25), list.Total)

	// Default limit is 20.
	list, err = svc.FindByUser(ctx, userID, NotificationQueryDTO{})
	require.NoError(t, err)
	assert.Len(t, list.Notifications, 20)
}

func TestFindByUserUnreadCountIgnoresFilters(t *testing.T) {
	svc, _, _ := newNotificationFixture(nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateNotificationDTO{UserID: userID, Type: models.NotificationEventApproved, Title: "a", Message: "m"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateNotificationDTO{UserID: userID, Type: models.NotificationBoutSigned, Title: "b", Message: "m"})
	require.NoError(t, err)

	_, err = svc.MarkAsRead(ctx, first.ID, userID)
	require.NoError(t, err)

	list, err := svc.FindByUser(ctx, userID, NotificationQueryDTO{Type: models.NotificationEventApproved})
	require.NoError(t, err)
	assert.Equal(t, int64(1), list.Total, "total respects the type filter")
	assert.Equal(t, int64(1), list.UnreadCount, "unread count ignores the filters")

	list, err = svc.FindByUser(ctx, userID, NotificationQueryDTO{UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, list.Notifications, 1)
}

func TestMarkAsReadOwnership(t *testing.T) {
	svc, repo, _ := newNotificationFixture(nil)
	owner := primitive.NewObjectID()
	intruder := primitive.NewObjectID()
	ctx := context.Background()

	notification, err := svc.Create(ctx, CreateNotificationDTO{UserID: owner, Type: models.NotificationEventApproved, Title: "t", Message: "m"})
	require.NoError(t, err)

	_, err = svc.MarkAsRead(ctx, notification.ID, intruder)
	assert.ErrorIs(t, err, models.ErrNotFound, "foreign-owned must look identical to missing")

	stored, err := repo.GetByID(ctx, notification.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status, "a rejected call must not mutate the record")
	assert.Nil(t, stored.ReadAt)

	_, err = svc.MarkAsRead(ctx, primitive.NewObjectID(), owner)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMarkAsReadIsIdempotent(t *testing.T) {
	svc, _, _ := newNotificationFixture(nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	notification, err := svc.Create(ctx, CreateNotificationDTO{UserID: userID, Type: models.NotificationEventApproved, Title: "t", Message: "m"})
	require.NoError(t, err)

	first, err := svc.MarkAsRead(ctx, notification.ID, userID)
	require.NoError(t, err)
	require.NotNil(t, first.ReadAt)

	second, err := svc.MarkAsRead(ctx, notification.ID, userID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRead, second.Status)
	assert.Equal(t, first.ReadAt, second.ReadAt)
}

func TestMarkAllAsRead(t *testing.T) {
	svc, _, _ := newNotificationFixture(nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, CreateNotificationDTO{UserID: userID, Type: models.NotificationEventApproved, Title: "t", Message: "m"})
		require.NoError(t, err)
	}

	count, err := svc.MarkAllAsRead(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	unread, err := svc.GetUnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestDeleteOwnershipAndDeleteAll(t *testing.T) {
	svc, repo, _ := newNotificationFixture(nil)
	owner := primitive.NewObjectID()
	intruder := primitive.NewObjectID()
	ctx := context.Background()

	notification, err := svc.Create(ctx, CreateNotificationDTO{UserID: owner, Type: models.NotificationEventApproved, Title: "t", Message: "m"})
	require.NoError(t, err)

	err = svc.Delete(ctx, notification.ID, intruder)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.Len(t, repo.notifications, 1)

	require.NoError(t, svc.Delete(ctx, notification.ID, owner))
	assert.Empty(t, repo.notifications)

	for i := 0; i < 2; i++ {
		_, err := svc.Create(ctx, CreateNotificationDTO{UserID: owner, Type: models.NotificationBoutSigned, Title: "t", Message: "m"})
		require.NoError(t, err)
	}
	deleted, err := svc.DeleteAll(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
}

func TestUpdatePreferencePartialFlags(t *testing.T) {
	svc, _, _ := newNotificationFixture(nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	// Creation: omitted flags take the channel defaults.
	pref, err := svc.UpdatePreference(ctx, userID, UpdatePreferenceDTO{
		Type:        models.NotificationSuspensionCreated,
		PushEnabled: boolPtr(true),
	})
	require.NoError(t, err)
	assert.True(t, pref.InAppEnabled)
	assert.True(t, pref.EmailEnabled)
	assert.True(t, pref.PushEnabled)
	assert.False(t, pref.SMSEnabled)

	// Update: omitted flags stay as stored.
	pref, err = svc.UpdatePreference(ctx, userID, UpdatePreferenceDTO{
		Type:       models.NotificationSuspensionCreated,
		SMSEnabled: boolPtr(true),
	})
	require.NoError(t, err)
	assert.True(t, pref.PushEnabled, "omission must not reset a customized flag")
	assert.True(t, pref.SMSEnabled)
}

func TestInitializePreferencesIsIdempotent(t *testing.T) {
	svc, _, _ := newNotificationFixture(nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	// A pre-existing customization must survive initialization.
	_, err := svc.UpdatePreference(ctx, userID, UpdatePreferenceDTO{
		Type:         models.NotificationDocumentExpiring,
		InAppEnabled: boolPtr(false),
	})
	require.NoError(t, err)

	require.NoError(t, svc.InitializePreferences(ctx, userID))
	require.NoError(t, svc.InitializePreferences(ctx, userID))

	prefs, err := svc.GetPreferences(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, prefs, len(models.AllNotificationTypes()))

	for _, pref := range prefs {
		if pref.Type == models.NotificationDocumentExpiring {
			assert.False(t, pref.InAppEnabled, "initialization must not overwrite customizations")
		} else {
			assert.True(t, pref.InAppEnabled)
			assert.True(t, pref.EmailEnabled)
			assert.False(t, pref.PushEnabled)
			assert.False(t, pref.SMSEnabled)
		}
	}
}

func TestNotificationHelpersBuildTemplates(t *testing.T) {
	svc, _, _ := newNotificationFixture(nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	rejected, err := svc.NotifyEventRejected(ctx, userID, "Rumble 42", "evt-1", "missing insurance")
	require.NoError(t, err)
	require.NotNil(t, rejected)
	assert.Equal(t, models.NotificationEventRejected, rejected.Type)
	assert.Contains(t, rejected.Message, "missing insurance")
	assert.Equal(t, "Event", rejected.EntityType)
	assert.Equal(t, "evt-1", rejected.EntityID)

	suspension, err := svc.NotifySuspensionCreated(ctx, userID, "TKO loss", "susp-1")
	require.NoError(t, err)
	require.NotNil(t, suspension)
	assert.Equal(t, "Medical Suspension Issued", suspension.Title)

	eligibility, err := svc.NotifyEligibilityChanged(ctx, userID, "SUSPENDED", "fighter-1")
	require.NoError(t, err)
	require.NotNil(t, eligibility)
	assert.Equal(t, "SUSPENDED", eligibility.Data["new_status"])
}

func TestProcessPendingSweepResilience(t *testing.T) {
	failing := &stubProvider{err: fmt.Errorf("smtp connection refused")}
	svc, repo, _ := newNotificationFixture(map[models.NotificationChannel]DeliveryProvider{
		models.ChannelEmail: failing,
	})
	userID := primitive.NewObjectID()
	ctx := context.Background()

	first, err := svc.Create(ctx, CreateNotificationDTO{UserID: userID, Type: models.NotificationEventApproved, Title: "a", Message: "m"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, CreateNotificationDTO{UserID: userID, Type: models.NotificationEventApproved, Title: "b", Message: "m", Channel: models.ChannelEmail})
	require.NoError(t, err)
	third, err := svc.Create(ctx, CreateNotificationDTO{UserID: userID, Type: models.NotificationEventApproved, Title: "c", Message: "m"})
	require.NoError(t, err)

	processed, err := svc.ProcessPendingNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, processed)

	stored, _ := repo.GetByID(ctx, first.ID)
	assert.Equal(t, models.StatusSent, stored.Status)
	assert.NotNil(t, stored.SentAt)

	stored, _ = repo.GetByID(ctx, second.ID)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.NotEmpty(t, stored.FailureReason)

	stored, _ = repo.GetByID(ctx, third.ID)
	assert.Equal(t, models.StatusSent, stored.Status)
}

func TestProcessPendingProviderSuccess(t *testing.T) {
	provider := &stubProvider{}
	svc, repo, _ := newNotificationFixture(map[models.NotificationChannel]DeliveryProvider{
		models.ChannelEmail: provider,
	})
	userID := primitive.NewObjectID()
	ctx := context.Background()

	notification, err := svc.Create(ctx, CreateNotificationDTO{UserID: userID, Type: models.NotificationEventApproved, Title: "t", Message: "m", Channel: models.ChannelEmail})
	require.NoError(t, err)

	processed, err := svc.ProcessPendingNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, []primitive.ObjectID{notification.ID}, provider.sent)

	stored, _ := repo.GetByID(ctx, notification.ID)
	assert.Equal(t, models.StatusSent, stored.Status)
}

func TestProcessPendingWithoutProvider(t *testing.T) {
	svc, repo, _ := newNotificationFixture(nil)
	userID := primitive.NewObjectID()
	ctx := context.Background()

	_, err := svc.UpdatePreference(ctx, userID, UpdatePreferenceDTO{
		Type:        models.NotificationEventApproved,
		PushEnabled: boolPtr(true),
	})
	require.NoError(t, err)

	notification, err := svc.Create(ctx, CreateNotificationDTO{UserID: userID, Type: models.NotificationEventApproved, Title: "t", Message: "m", Channel: models.ChannelPush})
	require.NoError(t, err)
	require.NotNil(t, notification)

	processed, err := svc.ProcessPendingNotifications(ctx)
	require.NoError(t, err)
	assert.Zero(t, processed)

	stored, _ := repo.GetByID(ctx, notification.ID)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.Contains(t, stored.FailureReason, "no delivery provider configured")
}

func TestProcessPendingSurvivesProviderPanic(t *testing.T) {
	svc, repo, _ := newNotificationFixture(map[models.NotificationChannel]DeliveryProvider{
		models.ChannelEmail: &stubProvider{panics: true},
	})
	userID := primitive.NewObjectID()
	ctx := context.Background()

	panicking, err := svc.Create(ctx, CreateNotificationDTO{UserID: userID, Type: models.NotificationEventApproved, Title: "t", Message: "m", Channel: models.ChannelEmail})
	require.NoError(t, err)
	inApp, err := svc.Create(ctx, CreateNotificationDTO{UserID: userID, Type: models.NotificationEventApproved, Title: "t", Message: "m"})
	require.NoError(t, err)

	processed, err := svc.ProcessPendingNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	stored, _ := repo.GetByID(ctx, panicking.ID)
	assert.Equal(t, models.StatusFailed, stored.Status)
	assert.Contains(t, stored.FailureReason, "panic")

	stored, _ = repo.GetByID(ctx, inApp.ID)
	assert.Equal(t, models.StatusSent, stored.Status)
}
