package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType identifies the business event behind a notification.
type NotificationType string

const (
	NotificationDocumentExpiring   NotificationType = "DOCUMENT_EXPIRING"
	NotificationEventApproved      NotificationType = "EVENT_APPROVED"
	NotificationEventRejected      NotificationType = "EVENT_REJECTED"
	NotificationBoutSigned         NotificationType = "BOUT_SIGNED"
	NotificationSuspensionCreated  NotificationType = "SUSPENSION_CREATED"
	NotificationEligibilityChanged NotificationType = "ELIGIBILITY_CHANGED"
)

// AllNotificationTypes returns every known notification type in a stable order.
func AllNotificationTypes() []NotificationType {
	return []NotificationType{
		NotificationDocumentExpiring,
		NotificationEventApproved,
		NotificationEventRejected,
		NotificationBoutSigned,
		NotificationSuspensionCreated,
		NotificationEligibilityChanged,
	}
}

// NotificationChannel is the delivery medium, fixed at creation time.
type NotificationChannel string

const (
	ChannelInApp NotificationChannel = "IN_APP"
	ChannelEmail NotificationChannel = "EMAIL"
	ChannelPush  NotificationChannel = "PUSH"
	ChannelSMS   NotificationChannel = "SMS"
)

// NotificationStatus tracks delivery lifecycle. READ and FAILED are terminal;
// a FAILED notification is only retried by creating a new one.
type NotificationStatus string

const (
	StatusPending NotificationStatus = "PENDING"
	StatusSent    NotificationStatus = "SENT"
	StatusRead    NotificationStatus = "READ"
	StatusFailed  NotificationStatus = "FAILED"
)

type Notification struct {
	ID            primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID     `bson:"user_id" json:"user_id"`
	Type          NotificationType       `bson:"type" json:"type"`
	Title         string                 `bson:"title" json:"title"`
	Message       string                 `bson:"message" json:"message"`
	Data          map[string]interface{} `bson:"data,omitempty" json:"data,omitempty"`
	EntityType    string                 `bson:"entity_type,omitempty" json:"entity_type,omitempty"`
	EntityID      string                 `bson:"entity_id,omitempty" json:"entity_id,omitempty"`
	Channel       NotificationChannel    `bson:"channel" json:"channel"`
	Status        NotificationStatus     `bson:"status" json:"status"`
	ReadAt        *time.Time             `bson:"read_at,omitempty" json:"read_at,omitempty"`
	SentAt        *time.Time             `bson:"sent_at,omitempty" json:"sent_at,omitempty"`
	FailureReason string                 `bson:"failure_reason,omitempty" json:"failure_reason,omitempty"`
	CreatedAt     time.Time              `bson:"created_at" json:"created_at"`
}
