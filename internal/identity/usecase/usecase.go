package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/shandysiswandi/passgate/internal/identity/entity"
	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/shandysiswandi/passgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/passgate/internal/pkg/hash"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/otp"
	"github.com/shandysiswandi/passgate/internal/pkg/uid"
	"github.com/shandysiswandi/passgate/internal/pkg/validator"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var errEmptyFingerprint = errors.New("identity: empty fingerprint")

type otpManager interface {
	RequestOTP(identity string) (sessionID, code string, err error)
	Verify(sessionID, code string) otp.Outcome
	ActiveSessions() int
}

type rateLimiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Len(ctx context.Context) (int, error)
}

type notifier interface {
	Send(ctx context.Context, identity, code string) error
}

type repoAudit interface {
	CreateAudit(ctx context.Context, in entity.Audit) error
}

type Usecase struct {
	manager   otpManager
	limiter   rateLimiter
	notifier  notifier
	repoAudit repoAudit
	validator validator.Validator
	hmac      hash.Hash
	uid       uid.NumberID
	clock     clock.Clocker
	ins       instrument.Instrumentation
	goroutine *goroutine.Manager
	window    time.Duration

	issued      metric.Int64Counter
	verified    metric.Int64Counter
	rateLimited metric.Int64Counter
}

type Dependency struct {
	Manager  otpManager
	Limiter  rateLimiter
	Notifier notifier
	// RepoAudit is nil when auditing is disabled.
	RepoAudit  repoAudit
	Validator  validator.Validator
	HMAC       hash.Hash
	UID        uid.NumberID
	Clock      clock.Clocker
	Instrument instrument.Instrumentation
	Goroutine  *goroutine.Manager
	// RateLimitWindow is quoted back to rate-limited callers.
	RateLimitWindow time.Duration
}

func New(dep Dependency) *Usecase {
	s := &Usecase{
		manager:   dep.Manager,
		limiter:   dep.Limiter,
		notifier:  dep.Notifier,
		repoAudit: dep.RepoAudit,
		validator: dep.Validator,
		hmac:      dep.HMAC,
		uid:       dep.UID,
		clock:     dep.Clock,
		ins:       dep.Instrument,
		goroutine: dep.Goroutine,
		window:    dep.RateLimitWindow,
	}

	meter := s.ins.Meter("identity.usecase")
	var err error
	if s.issued, err = meter.Int64Counter("identity.otp.issued",
		metric.WithDescription("Passcodes issued and delivered")); err != nil {
		slog.Error("failed to create otp issued counter", "error", err)
	}
	if s.verified, err = meter.Int64Counter("identity.otp.verified",
		metric.WithDescription("Verification attempts by outcome")); err != nil {
		slog.Error("failed to create otp verified counter", "error", err)
	}
	if s.rateLimited, err = meter.Int64Counter("identity.otp.rate_limited",
		metric.WithDescription("Passcode requests rejected by the rate limiter")); err != nil {
		slog.Error("failed to create otp rate limited counter", "error", err)
	}

	return s
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

// normalizeIdentity is applied before rate limiting and storage so that
// " User@Example.com" and "user@example.com" share one window and session space.
func normalizeIdentity(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// fingerprint keys the rate limiter and audit rows, so raw identities never
// leave the process.
func (s *Usecase) fingerprint(identity string) (string, error) {
	fp, err := s.hmac.Hash(identity)
	if err != nil {
		return "", err
	}
	if len(fp) == 0 {
		return "", errEmptyFingerprint
	}
	return string(fp), nil
}

func add(ctx context.Context, c metric.Int64Counter, opts ...metric.AddOption) {
	if c != nil {
		c.Add(ctx, 1, opts...)
	}
}
