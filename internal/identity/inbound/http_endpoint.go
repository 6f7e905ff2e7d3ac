package inbound

import (
	"github.com/shandysiswandi/passgate/internal/identity/usecase"
	"github.com/shandysiswandi/passgate/internal/pkg/router"
)

// HTTPEndpoint exposes the passcode issuance and verification handlers.
type HTTPEndpoint struct {
	uc uc
}

// Generate issues a passcode for an email address and delivers it.
// @Summary Request a verification code
// @Description Normalises the email, applies the per-identity rate limit, creates a session and sends the code.
// @Tags Identity, OTP
// @Accept json
// @Produce json
// @Param request body GenerateRequest true "Generate payload"
// @Success 200 {object} router.successResponse{data=GenerateResponse} "Session created"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Failure 429 {object} router.errorResponse "Too many requests"
// @Failure 502 {object} router.errorResponse "Failed to send verification code"
// @Failure 500 {object} router.errorResponse "Internal server error"
// @Router /api/v1/identity/otp/generate [post]
func (h *HTTPEndpoint) Generate(r *router.Request) (any, error) {
	var req GenerateRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.RequestPasscode(r.Context(), usecase.RequestPasscodeInput{
		Email:    req.Email,
		ClientIP: r.ClientIP(),
	})
	if err != nil {
		return nil, err
	}

	return GenerateResponse{SessionID: resp.SessionID, email: resp.Email}, nil
}

// Verify settles a session with a submitted code.
// @Summary Verify a code
// @Description Consumes the session when the code matches. Every failed outcome is reported as 401.
// @Tags Identity, OTP
// @Accept json
// @Produce json
// @Param request body VerifyRequest true "Verify payload"
// @Success 200 {object} router.successResponse{data=VerifyResponse} "Authentication successful"
// @Failure 400 {object} router.errorResponse "Invalid request body"
// @Failure 401 {object} router.errorResponse "Invalid OTP, too many attempts or expired session"
// @Failure 422 {object} router.errorResponse "Validation error"
// @Router /api/v1/identity/otp/verify [post]
func (h *HTTPEndpoint) Verify(r *router.Request) (any, error) {
	var req VerifyRequest
	if err := r.DecodeBody(&req); err != nil {
		return nil, err
	}

	resp, err := h.uc.VerifyPasscode(r.Context(), usecase.VerifyPasscodeInput{
		SessionID: req.SessionID,
		OTP:       req.OTP,
		ClientIP:  r.ClientIP(),
	})
	if err != nil {
		return nil, err
	}

	return VerifyResponse{Success: true, Email: resp.Email}, nil
}

// Status reports live session and rate limiter counts.
// @Summary OTP service status
// @Tags Identity, OTP
// @Produce json
// @Security BearerAuth
// @Success 200 {object} router.successResponse{data=StatusResponse} "Counts"
// @Failure 401 {object} router.errorResponse "Missing or invalid token"
// @Router /api/v1/identity/otp/status [get]
func (h *HTTPEndpoint) Status(r *router.Request) (any, error) {
	resp, err := h.uc.Status(r.Context())
	if err != nil {
		return nil, err
	}

	return StatusResponse{
		ActiveSessions:     resp.ActiveSessions,
		RateLimiterEntries: resp.RateLimiterEntries,
	}, nil
}
