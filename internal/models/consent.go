package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ConsentType identifies a legal or medical disclosure a user can consent to.
type ConsentType string

const (
	ConsentTermsOfService          ConsentType = "TERMS_OF_SERVICE"
	ConsentPrivacyPolicy           ConsentType = "PRIVACY_POLICY"
	ConsentHIPAAAuthorization      ConsentType = "HIPAA_AUTHORIZATION"
	ConsentDataSharing             ConsentType = "DATA_SHARING"
	ConsentMarketingCommunications ConsentType = "MARKETING_COMMUNICATIONS"
)

// ConsentVersions maps each consent type to the currently effective policy
// version. Bump an entry here when the underlying document changes; users
// who consented under the old version will show needs_renewal.
var ConsentVersions = map[ConsentType]string{
	ConsentTermsOfService:          "1.0",
	ConsentPrivacyPolicy:           "1.0",
	ConsentHIPAAAuthorization:      "1.0",
	ConsentDataSharing:             "1.0",
	ConsentMarketingCommunications: "1.0",
}

// RequiredConsents are mandatory for platform access and cannot be revoked
// through the standard API.
var RequiredConsents = []ConsentType{
	ConsentTermsOfService,
	ConsentPrivacyPolicy,
	ConsentHIPAAAuthorization,
}

// AllConsentTypes returns every known consent type in a stable order.
func AllConsentTypes() []ConsentType {
	return []ConsentType{
		ConsentTermsOfService,
		ConsentPrivacyPolicy,
		ConsentHIPAAAuthorization,
		ConsentDataSharing,
		ConsentMarketingCommunications,
	}
}

// IsRequiredConsent reports whether t is in the required set.
func IsRequiredConsent(t ConsentType) bool {
	for _, required := range RequiredConsents {
		if t == required {
			return true
		}
	}
	return false
}

// ConsentRecord is one user's decision on one policy version. The
// (user_id, type, version) triple is the natural key: the record is mutated
// in place while the version stays current and a new record is created when
// the policy version bumps, so older versions remain for audit.
type ConsentRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user_id" json:"user_id"`
	Type      ConsentType        `bson:"type" json:"type"`
	Version   string             `bson:"version" json:"version"`
	Granted   bool               `bson:"granted" json:"granted"`
	GrantedAt *time.Time         `bson:"granted_at,omitempty" json:"granted_at,omitempty"`
	RevokedAt *time.Time         `bson:"revoked_at,omitempty" json:"revoked_at,omitempty"`
	IPAddress string             `bson:"ip_address,omitempty" json:"ip_address,omitempty"`
	UserAgent string             `bson:"user_agent,omitempty" json:"user_agent,omitempty"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`
}

// ConsentStatus summarizes a user's standing on one consent type against the
// currently configured version.
type ConsentStatus struct {
	Type           ConsentType `json:"type"`
	CurrentVersion string      `json:"current_version"`
	Granted        bool        `json:"granted"`
	GrantedAt      *time.Time  `json:"granted_at,omitempty"`
	GrantedVersion string      `json:"granted_version,omitempty"`
	NeedsRenewal   bool        `json:"needs_renewal"`
}
