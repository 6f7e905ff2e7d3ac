package inbound

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/shandysiswandi/passgate/internal/pkg/config"
	"github.com/shandysiswandi/passgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/messaging"
	"github.com/shandysiswandi/passgate/internal/pkg/uid"
	"github.com/shandysiswandi/passgate/internal/shared/event"
)

// RegisterMQConsumer starts every consumer named in
// modules.notification.consumer_names. It returns how many were started.
func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	consumer messaging.Consumer,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) int {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enabled := cfg.GetArray("modules.notification.consumer_names")

	consumers := []struct {
		name    string
		topic   string
		group   string
		handler messaging.Handler
	}{
		{
			name:    event.OTPDispatchConsumerNotification,
			topic:   event.OTPDispatchDestination,
			group:   event.OTPDispatchConsumerNotification,
			handler: mqHandler.OTPDispatch,
		},
	}

	started := 0
	for _, c := range consumers {
		if !slices.Contains(enabled, c.name) {
			continue
		}

		ok := routine.Go(ctx, func(pCtx context.Context) error {
			slog.InfoContext(pCtx, "running job for handling consumer", "consumer", c.name)
			err := consumer.Consume(pCtx,
				c.topic,
				c.handler,
				messaging.WithGroup(c.group),
				messaging.WithAutoAck(true),
				messaging.WithConcurrency(cfg.GetInt("modules.notification.concurrency")),
				messaging.WithMaxInFlight(cfg.GetInt("modules.notification.concurrency")),
			)
			// shutdown cancels pCtx
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
		if ok {
			started++
		}
	}

	return started
}
