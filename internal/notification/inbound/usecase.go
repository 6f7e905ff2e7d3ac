package inbound

import (
	"context"

	"github.com/shandysiswandi/passgate/internal/notification/usecase"
)

type uc interface {
	DeliverPasscode(ctx context.Context, in usecase.DeliverPasscodeInput) error
}
