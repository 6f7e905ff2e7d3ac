package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/passgate/internal/identity/inbound"
	"github.com/shandysiswandi/passgate/internal/identity/outbound/db"
	"github.com/shandysiswandi/passgate/internal/identity/usecase"
	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/shandysiswandi/passgate/internal/pkg/config"
	"github.com/shandysiswandi/passgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/passgate/internal/pkg/hash"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/migrate"
	"github.com/shandysiswandi/passgate/internal/pkg/notifier"
	"github.com/shandysiswandi/passgate/internal/pkg/otp"
	"github.com/shandysiswandi/passgate/internal/pkg/ratelimit"
	"github.com/shandysiswandi/passgate/internal/pkg/router"
	"github.com/shandysiswandi/passgate/internal/pkg/uid"
	"github.com/shandysiswandi/passgate/internal/pkg/validator"
)

type Dependency struct {
	Ctx        context.Context            `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Manager    *otp.Manager               `validate:"required"`
	Limiter    ratelimit.Limiter          `validate:"required"`
	Notifier   notifier.Notifier          `validate:"required"`
	// DBConn is only needed when modules.identity.audit.enabled is set.
	DBConn *pgxpool.Pool
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	ucDep := usecase.Dependency{
		Manager:         dep.Manager,
		Limiter:         dep.Limiter,
		Notifier:        dep.Notifier,
		Validator:       dep.Validator,
		HMAC:            dep.HMAC,
		UID:             dep.UID,
		Clock:           dep.Clock,
		Instrument:      dep.Instrument,
		Goroutine:       dep.Goroutine,
		RateLimitWindow: dep.Config.GetSecond("modules.identity.rate_limit.window_seconds"),
	}

	if dep.Config.GetBool("modules.identity.audit.enabled") {
		if dep.DBConn == nil {
			return fmt.Errorf("identity: audit enabled without a database connection")
		}
		if _, err := migrate.Up(dep.Ctx, dep.DBConn, db.Migrations()); err != nil {
			return fmt.Errorf("identity: migrate audit schema: %w", err)
		}
		ucDep.RepoAudit = db.NewDB(dep.DBConn, dep.Instrument)
	}

	uc := usecase.New(ucDep)

	inbound.RegisterHTTPEndpoint(dep.Router, uc, dep.Config.GetString("modules.identity.status_token"))

	return nil
}
