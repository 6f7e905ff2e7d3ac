package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/passgate/internal/identity/entity"
	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type VerifyPasscodeInput struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
	OTP       string `json:"otp" validate:"required,max=16"`
	ClientIP  string `json:"-"`
}

type VerifyPasscodeOutput struct {
	Email string
}

// VerifyPasscode settles a session. Every failed outcome is a 401 whose
// message is the outcome's reason.
func (s *Usecase) VerifyPasscode(ctx context.Context, in VerifyPasscodeInput) (*VerifyPasscodeOutput, error) {
	ctx, span := s.startSpan(ctx, "VerifyPasscode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	out := s.manager.Verify(in.SessionID, in.OTP)

	add(ctx, s.verified, metric.WithAttributes(attribute.String("outcome", out.Status.String())))

	var fp string
	if out.OK() {
		var err error
		if fp, err = s.fingerprint(out.Identity); err != nil {
			slog.WarnContext(ctx, "failed to fingerprint identity", "error", err)
		}
	}
	s.audit(ctx, entity.AuditEventVerified, fp, out.Status.String(), in.ClientIP)

	if !out.OK() {
		slog.WarnContext(ctx, "otp verification failed", "outcome", out.Status.String())
		return nil, goerror.NewBusiness(out.Status.Reason(), goerror.CodeUnauthorized)
	}

	slog.InfoContext(ctx, "otp verified", "identity", fp)

	return &VerifyPasscodeOutput{Email: out.Identity}, nil
}
