package app

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/shandysiswandi/passgate/internal/pkg/config"
	"github.com/shandysiswandi/passgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/passgate/internal/pkg/hash"
	"github.com/shandysiswandi/passgate/internal/pkg/instrument"
	"github.com/shandysiswandi/passgate/internal/pkg/mail"
	"github.com/shandysiswandi/passgate/internal/pkg/messaging"
	"github.com/shandysiswandi/passgate/internal/pkg/notifier"
	"github.com/shandysiswandi/passgate/internal/pkg/otp"
	"github.com/shandysiswandi/passgate/internal/pkg/ratelimit"
	"github.com/shandysiswandi/passgate/internal/pkg/router"
	"github.com/shandysiswandi/passgate/internal/pkg/uid"
	"github.com/shandysiswandi/passgate/internal/pkg/validator"
)

type closer struct {
	name string
	// skip drops resources that configuration never built.
	skip bool
	fn   func(context.Context) error
}

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID

	// resources, each built only when configuration asks for it
	dbConn    *pgxpool.Pool
	cacheConn *redis.Client
	mail      mail.Mail
	messaging messaging.Messaging

	// passcode core
	otpManager *otp.Manager
	limiter    ratelimit.Limiter
	notifier   notifier.Notifier

	// server
	router     *router.Router
	httpServer *http.Server

	closers []closer
}

// New loads configuration from CONFIG_PATH and wires the application.
func New() *App {
	app := newApp()
	app.initConfig()
	app.build()

	return app
}

// newWithConfig wires the application around an already loaded config.
func newWithConfig(cfg config.Config) *App {
	app := newApp()
	app.config = cfg
	app.build()

	return app
}

func newApp() *App {
	ctx, cancel := context.WithCancel(context.Background())
	return &App{
		ctx:    ctx,
		cancel: cancel,
	}
}

func (a *App) build() {
	a.initInstrument()
	a.initLibraries()
	a.initDatabase()
	a.initCache()
	a.initMail()
	a.initMessaging()
	a.initPasscode()
	a.initSweepers()
	a.initHTTPServer()
	a.initModules()
	a.initClosers()
}
