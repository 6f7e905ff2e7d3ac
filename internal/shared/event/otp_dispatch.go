// Package event holds broker destinations and payloads shared between modules.
package event

import "time"

const (
	OTPDispatchDestination          string = "otp_dispatch"
	OTPDispatchConsumerNotification string = "otp_dispatch_notification"
)

// HeaderCorrelationID carries the request correlation id across the broker.
const HeaderCorrelationID string = "cID"

// OTPDispatchMessage asks the notification module to deliver a passcode.
type OTPDispatchMessage struct {
	Identity  string    `json:"identity"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}
