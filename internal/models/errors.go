package models

import "errors"

// Sentinel errors shared across services. Check with errors.Is instead of
// string matching.
var (
	// ErrNotFound indicates the requested record does not exist. Ownership
	// violations surface the same error so non-owners cannot probe for
	// existence.
	ErrNotFound = errors.New("resource not found")

	// ErrConsentRequired indicates an attempt to revoke a consent type that
	// is mandatory for platform access.
	ErrConsentRequired = errors.New("consent is required for platform access and cannot be revoked")

	// ErrInvalidInput indicates validation failure on input parameters.
	ErrInvalidInput = errors.New("invalid input parameters")
)
