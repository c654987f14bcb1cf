package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identity records are owned by the external identity system; this service
// only reads them to assemble the data-portability export.

// UserSummary is the identity snapshot included in a data export.
type UserSummary struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Email       string             `bson:"email" json:"email"`
	FirstName   string             `bson:"first_name" json:"first_name"`
	LastName    string             `bson:"last_name" json:"last_name"`
	Phone       string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Role        string             `bson:"role" json:"role"`
	Status      string             `bson:"status" json:"status"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	LastLoginAt *time.Time         `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
}

// OrganizationMembership links a user to a gym, promotion or commission.
type OrganizationMembership struct {
	ID               primitive.ObjectID `bson:"_id" json:"id"`
	UserID           primitive.ObjectID `bson:"user_id" json:"user_id"`
	OrganizationID   primitive.ObjectID `bson:"organization_id" json:"organization_id"`
	OrganizationName string             `bson:"organization_name" json:"organization_name"`
	Role             string             `bson:"role" json:"role"`
	JoinedAt         time.Time          `bson:"joined_at" json:"joined_at"`
}

// SessionRecord is one login-history entry.
type SessionRecord struct {
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	IPAddress    string             `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent    string             `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	LastActiveAt time.Time          `bson:"last_active_at" json:"last_active_at"`
	CreatedAt    time.Time          `bson:"created_at" json:"created_at"`
}

// UserDataExport is the single snapshot returned for data-portability
// requests.
type UserDataExport struct {
	ExportedAt    time.Time                `json:"exported_at"`
	User          *UserSummary             `json:"user"`
	Consents      []ConsentRecord          `json:"consents"`
	Organizations []OrganizationMembership `json:"organizations"`
	LoginHistory  []SessionRecord          `json:"login_history"`
}

// DeletionRequestAck acknowledges a data-deletion request. Execution of the
// deletion happens out of band after the legally required grace period.
type DeletionRequestAck struct {
	RequestID string `json:"request_id"`
	Message   string `json:"message"`
}
