package usecase

import (
	"context"
	"log/slog"
	"time"
)

type DeliverPasscodeInput struct {
	Identity  string `validate:"required,email"`
	Code      string `validate:"required,passcode"`
	ExpiresAt time.Time
}

// DeliverPasscode mails a passcode taken off the dispatch destination.
// Malformed or expired events are dropped with a nil error so the broker
// does not redeliver them. Send failures are returned for redelivery.
func (s *Usecase) DeliverPasscode(ctx context.Context, in DeliverPasscodeInput) error {
	ctx, span := s.startSpan(ctx, "DeliverPasscode")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "invalid otp dispatch event", "error", err)
		add(ctx, s.dropped)
		return nil
	}

	if !in.ExpiresAt.IsZero() && !s.clock.Now().Before(in.ExpiresAt) {
		slog.WarnContext(ctx, "otp dispatch event expired before delivery", "expires_at", in.ExpiresAt)
		add(ctx, s.dropped)
		return nil
	}

	if err := s.sender.Send(ctx, in.Identity, in.Code); err != nil {
		slog.ErrorContext(ctx, "failed to send otp email", "error", err)
		return err
	}

	add(ctx, s.delivered)

	return nil
}
