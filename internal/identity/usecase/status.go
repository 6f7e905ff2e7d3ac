package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
)

type StatusOutput struct {
	ActiveSessions     int
	RateLimiterEntries int
}

// Status reports live sessions and identities tracked by the rate limiter.
func (s *Usecase) Status(ctx context.Context) (*StatusOutput, error) {
	ctx, span := s.startSpan(ctx, "Status")
	defer span.End()

	entries, err := s.limiter.Len(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count rate limiter entries", "error", err)
		return nil, goerror.NewServer(err)
	}

	return &StatusOutput{
		ActiveSessions:     s.manager.ActiveSessions(),
		RateLimiterEntries: entries,
	}, nil
}
