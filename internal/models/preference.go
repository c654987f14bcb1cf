package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationPreference holds a user's per-type channel opt-ins. A missing
// row is not an error: defaults apply (in-app and email on, push and sms
// off) until the user customizes, so defaults are computed rather than
// stored.
type NotificationPreference struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	Type         NotificationType   `bson:"type" json:"type"`
	InAppEnabled bool               `bson:"in_app_enabled" json:"in_app_enabled"`
	EmailEnabled bool               `bson:"email_enabled" json:"email_enabled"`
	PushEnabled  bool               `bson:"push_enabled" json:"push_enabled"`
	SMSEnabled   bool               `bson:"sms_enabled" json:"sms_enabled"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updated_at"`
}

// DefaultPreference returns the preference implied when no row is stored.
func DefaultPreference(userID primitive.ObjectID, t NotificationType) *NotificationPreference {
	return &NotificationPreference{
		UserID:       userID,
		Type:         t,
		InAppEnabled: true,
		EmailEnabled: true,
		PushEnabled:  false,
		SMSEnabled:   false,
	}
}

// ChannelEnabled reports whether the preference allows delivery on ch.
// Unknown channels are treated as disabled.
func (p *NotificationPreference) ChannelEnabled(ch NotificationChannel) bool {
	switch ch {
	case ChannelInApp:
		return p.InAppEnabled
	case ChannelEmail:
		return p.EmailEnabled
	case ChannelPush:
		return p.PushEnabled
	case ChannelSMS:
		return p.SMSEnabled
	}
	return false
}
