package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/shandysiswandi/passgate/internal/notification/usecase"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/messaging"
	"github.com/shandysiswandi/passgate/internal/pkg/uid"
	"github.com/shandysiswandi/passgate/internal/shared/event"
)

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers []messaging.Header) context.Context {
	if v, ok := messaging.HeaderValue(headers, event.HeaderCorrelationID); ok && v != "" {
		return instrument.SetCorrelationID(ctx, v)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

// OTPDispatch decodes an otp_dispatch event and hands it to the usecase.
// The body carries the passcode, so only the message id is logged.
func (h *MQHandler) OTPDispatch(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "OTPDispatch")
	defer span.End()

	slog.InfoContext(ctx, "consume: otp dispatch", "msg_id", msg.ID(), "attempts", msg.Attempts())

	var payload event.OTPDispatchMessage
	if err := json.Unmarshal(msg.Body(), &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of otp dispatch", "msg_id", msg.ID(), "error", err)
		return nil
	}

	if err := h.uc.DeliverPasscode(ctx, usecase.DeliverPasscodeInput{
		Identity:  payload.Identity,
		Code:      payload.Code,
		ExpiresAt: payload.ExpiresAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume otp dispatch", "msg_id", msg.ID(), "error", err)
		return err
	}

	return nil
}
