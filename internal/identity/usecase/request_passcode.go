package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/shandysiswandi/passgate/internal/identity/entity"
	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
)

type RequestPasscodeInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	ClientIP string `json:"-"`
}

type RequestPasscodeOutput struct {
	SessionID string
	Email     string
}

func (s *Usecase) RequestPasscode(ctx context.Context, in RequestPasscodeInput) (*RequestPasscodeOutput, error) {
	ctx, span := s.startSpan(ctx, "RequestPasscode")
	defer span.End()

	in.Email = normalizeIdentity(in.Email)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	fp, err := s.fingerprint(in.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to fingerprint identity", "error", err)
		return nil, goerror.NewServer(err)
	}

	allowed, err := s.limiter.Allow(ctx, fp)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check otp rate limit", "identity", fp, "error", err)
		return nil, goerror.NewServer(err)
	}
	if !allowed {
		slog.WarnContext(ctx, "otp request rate limited", "identity", fp)
		add(ctx, s.rateLimited)
		s.audit(ctx, entity.AuditEventRateLimited, fp, "", in.ClientIP)
		return nil, goerror.NewBusiness(s.rateLimitMessage(), goerror.CodeTooManyRequest)
	}

	sessionID, code, err := s.manager.RequestOTP(in.Email)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue otp session", "identity", fp, "error", err)
		return nil, goerror.NewServer(err)
	}

	// the session stays valid when delivery fails; it expires on its own
	if err := s.notifier.Send(ctx, in.Email, code); err != nil {
		slog.ErrorContext(ctx, "failed to deliver otp", "identity", fp, "error", err)
		s.audit(ctx, entity.AuditEventDeliveryFailed, fp, "", in.ClientIP)
		return nil, goerror.WrapBusiness(err, "Failed to send verification code", goerror.CodeBadGateway)
	}

	add(ctx, s.issued)
	s.audit(ctx, entity.AuditEventIssued, fp, "", in.ClientIP)
	slog.InfoContext(ctx, "otp issued", "identity", fp)

	return &RequestPasscodeOutput{SessionID: sessionID, Email: in.Email}, nil
}

func (s *Usecase) rateLimitMessage() string {
	if s.window <= 0 {
		return "Too many requests. Please try again later."
	}
	if s.window < 2*time.Minute {
		return fmt.Sprintf("Too many requests. Please try again in %d seconds.", int(math.Ceil(s.window.Seconds())))
	}
	return fmt.Sprintf("Too many requests. Please try again in %d minutes.", int(math.Ceil(s.window.Minutes())))
}
