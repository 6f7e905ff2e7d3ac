package entity

import "time"

// AuditEvent is what happened to a passcode request. Stored as SMALLINT.
type AuditEvent int16

const (
	AuditEventUnknown AuditEvent = iota
	AuditEventIssued
	AuditEventRateLimited
	AuditEventDeliveryFailed
	AuditEventVerified
)

func (e AuditEvent) String() string {
	switch e {
	case AuditEventIssued:
		return "issued"
	case AuditEventRateLimited:
		return "rate_limited"
	case AuditEventDeliveryFailed:
		return "delivery_failed"
	case AuditEventVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// Audit is one row of identity_otp_audits. It never carries a passcode or a
// plaintext identity.
type Audit struct {
	ID int64
	// IdentityHash is the HMAC fingerprint of the normalized email.
	IdentityHash string
	Event        AuditEvent
	// Outcome is the verification status label for AuditEventVerified and
	// empty otherwise.
	Outcome   string
	ClientIP  string
	CreatedAt time.Time
}
