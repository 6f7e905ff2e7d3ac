package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type sender interface {
	Send(ctx context.Context, identity, code string) error
}

type Usecase struct {
	sender    sender
	clock     clock.Clocker
	validator validator.Validator
	ins       instrument.Instrumentation

	delivered metric.Int64Counter
	dropped   metric.Int64Counter
}

type Dependency struct {
	Sender     sender
	Clock      clock.Clocker
	Validator  validator.Validator
	Instrument instrument.Instrumentation
}

func New(dep Dependency) *Usecase {
	s := &Usecase{
		sender:    dep.Sender,
		clock:     dep.Clock,
		validator: dep.Validator,
		ins:       dep.Instrument,
	}

	meter := s.ins.Meter("notification.usecase")
	var err error
	if s.delivered, err = meter.Int64Counter("notification.otp.delivered"); err != nil {
		slog.Error("failed to create otp delivered counter", "error", err)
	}
	if s.dropped, err = meter.Int64Counter("notification.otp.dropped",
		metric.WithDescription("Dispatch events discarded as invalid or stale")); err != nil {
		slog.Error("failed to create otp dropped counter", "error", err)
	}

	return s
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}

func add(ctx context.Context, c metric.Int64Counter) {
	if c != nil {
		c.Add(ctx, 1)
	}
}
