package inbound

import "fmt"

type GenerateRequest struct {
	Email string `json:"email"`
}

type GenerateResponse struct {
	SessionID string `json:"session_id"`

	email string
}

func (r GenerateResponse) Message() string {
	return fmt.Sprintf("Verification code sent to %s", r.email)
}

type VerifyRequest struct {
	SessionID string `json:"session_id"`
	OTP       string `json:"otp"`
}

type VerifyResponse struct {
	Success bool   `json:"success"`
	Email   string `json:"email"`
}

func (VerifyResponse) Message() string {
	return "Authentication successful"
}

type StatusResponse struct {
	ActiveSessions     int `json:"active_sessions"`
	RateLimiterEntries int `json:"rate_limiter_entries"`
}
