package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/messaging"
	"github.com/shandysiswandi/passgate/internal/shared/event"
)

var ErrPublisherRequired = errors.New("notifier: publisher is required")

// BrokerOptions configures the broker driver.
type BrokerOptions struct {
	Publisher messaging.Publisher
	Clock     clock.Clocker
	// Validity stamps ExpiresAt on the event so stale dispatches can be dropped.
	Validity time.Duration
}

// Broker hands delivery to the notification module through the
// otp_dispatch destination. Broker acceptance counts as delivery.
type Broker struct {
	pub      messaging.Publisher
	clock    clock.Clocker
	validity time.Duration
}

func NewBroker(opts BrokerOptions) (*Broker, error) {
	if opts.Publisher == nil {
		return nil, ErrPublisherRequired
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	return &Broker{pub: opts.Publisher, clock: clk, validity: opts.Validity}, nil
}

func (b *Broker) Send(ctx context.Context, identity, code string) error {
	body, err := json.Marshal(event.OTPDispatchMessage{
		Identity:  identity,
		Code:      code,
		ExpiresAt: b.clock.Now().Add(b.validity),
	})
	if err != nil {
		return deliveryError(err)
	}

	var headers []messaging.Header
	if cID := instrument.GetCorrelationID(ctx); cID != "" {
		headers = append(headers, messaging.Header{Key: event.HeaderCorrelationID, Value: []byte(cID)})
	}

	if _, err := b.pub.Publish(ctx, event.OTPDispatchDestination, messaging.OutgoingMessage{
		Body:    body,
		Headers: headers,
	}); err != nil {
		return deliveryError(err)
	}

	return nil
}
