package notifier

import (
	"context"
	"log/slog"
)

// Log writes the passcode to the application log instead of delivering it.
// The "otp" key is masked unless removed from instrument.log_mask_fields.
type Log struct{}

func NewLog() Log { return Log{} }

func (Log) Send(ctx context.Context, identity, code string) error {
	slog.InfoContext(ctx, "passcode issued (log notifier)", "recipient", identity, "otp", code)
	return nil
}
