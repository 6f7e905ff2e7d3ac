package otp

import "time"

// Session is a live passcode bound to an identity.
type Session struct {
	ID        string
	Identity  string
	Code      string
	CreatedAt time.Time
	ExpiresAt time.Time
	Attempts  int
}

// Status is the result class of a verification.
type Status int

const (
	// StatusExpiredOrMissing covers unknown, consumed and expired sessions alike.
	StatusExpiredOrMissing Status = iota
	// StatusSuccess means the code matched and the session was consumed.
	StatusSuccess
	// StatusTooManyAttempts means the attempt budget was spent before this call.
	StatusTooManyAttempts
	// StatusMismatch means the code did not match; the session stays live.
	StatusMismatch
)

// String returns a stable label usable in logs and metrics.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusTooManyAttempts:
		return "too_many_attempts"
	case StatusMismatch:
		return "mismatch"
	default:
		return "expired_or_missing"
	}
}

// Reason returns the human-readable failure reason. It is empty on success.
func (s Status) Reason() string {
	switch s {
	case StatusSuccess:
		return ""
	case StatusTooManyAttempts:
		return "Too many attempts"
	case StatusMismatch:
		return "Invalid OTP"
	default:
		return "OTP expired or invalid session"
	}
}

// Outcome is what a verification produced. Identity is set only on success.
type Outcome struct {
	Status   Status
	Identity string
}

// OK reports whether the verification succeeded.
func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}
