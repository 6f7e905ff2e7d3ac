package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/passgate/internal/identity/entity"
)

// audit records an event in the background. It detaches from the request
// context so the write outlives the response, and a failed write only logs.
func (s *Usecase) audit(ctx context.Context, event entity.AuditEvent, identityHash, outcome, clientIP string) {
	if s.repoAudit == nil {
		return
	}

	row := entity.Audit{
		ID:           s.uid.Generate(),
		IdentityHash: identityHash,
		Event:        event,
		Outcome:      outcome,
		ClientIP:     clientIP,
		CreatedAt:    s.clock.Now(),
	}

	started := s.goroutine.Go(context.WithoutCancel(ctx), func(ctx context.Context) error {
		if err := s.repoAudit.CreateAudit(ctx, row); err != nil {
			slog.ErrorContext(ctx, "failed to repo create otp audit", "event", event.String(), "error", err)
		}
		return nil
	})
	if !started {
		slog.WarnContext(ctx, "otp audit dropped", "event", event.String())
	}
}
