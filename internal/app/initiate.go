package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/nsqio/go-nsq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/samber/lo"
	"github.com/shandysiswandi/passgate/internal/pkg/clock"
	"github.com/shandysiswandi/passgate/internal/pkg/config"
	"github.com/shandysiswandi/passgate/internal/pkg/goerror"
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

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path, defaults)
	if err != nil {
		slog.Error("failed to init config", "path", path, "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("app.tz"))

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          a.config.GetBool("instrument.enabled"),
		ServiceName:      a.config.GetString("instrument.service_name"),
		ServiceVersion:   a.config.GetString("instrument.service_version"),
		Environment:      a.config.GetString("instrument.env"),
		OTLPEndpoint:     a.config.GetString("instrument.otlp_endpoint"),
		OTLPSecure:       a.config.GetBool("instrument.otlp_secure"),
		TraceSampleRatio: a.config.GetFloat64("instrument.trace_sample_ratio"),
		MetricsInterval:  a.config.GetSecond("instrument.metric_interval_seconds"),
		LogLevel:         a.config.GetString("instrument.log_level"),
		MaskFields:       a.config.GetArray("instrument.log_mask_fields"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewManager(a.config.GetInt("app.server.max_goroutine"))

	secret := a.config.GetString("hash.hmac.secret")
	if secret == "" {
		slog.Warn("hash.hmac.secret is empty, identity fingerprints are unkeyed")
	}
	a.hmac = hash.NewHMACSHA256(secret)

	validator, err := validator.NewV10Validator()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = validator

	snow, err := uid.NewSnowflake()
	if err != nil {
		slog.Error("failed to init uid number snowflake", "error", err)
		os.Exit(1)
	}
	a.uid = snow
}

func (a *App) auditEnabled() bool {
	return a.config.GetBool("modules.identity.enabled") && a.config.GetBool("modules.identity.audit.enabled")
}

func (a *App) notifierDriver() string {
	return strings.TrimSpace(a.config.GetString("modules.identity.notifier.driver"))
}

func (a *App) notificationEnabled() bool {
	return a.config.GetBool("modules.notification.enabled")
}

func (a *App) initDatabase() {
	if !a.auditEnabled() {
		return
	}

	config, err := pgxpool.ParseConfig(a.config.GetString("database.url"))
	if err != nil {
		slog.Error("failed to parse DB connection string.", "error", err)
		os.Exit(1)
	}

	config.MaxConns = a.config.GetInt32("database.pool.max_conns")
	config.MinConns = a.config.GetInt32("database.pool.min_conns")
	config.MaxConnLifetime = a.config.GetSecond("database.pool.max_conn_lifetime_seconds")
	config.MaxConnIdleTime = a.config.GetSecond("database.pool.max_conn_idle_seconds")
	config.HealthCheckPeriod = a.config.GetSecond("database.pool.health_check_period_seconds")

	pool, err := pgxpool.NewWithConfig(a.ctx, config)
	if err != nil {
		slog.Error("failed to create DB connection pool", "error", err)
		os.Exit(1)
	}

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		slog.Error("failed to ping DB", "error", err)
		os.Exit(1)
	}

	a.dbConn = pool
}

func (a *App) initCache() {
	if strings.TrimSpace(a.config.GetString("modules.identity.rate_limit.driver")) != ratelimit.DriverRedis {
		return
	}

	opt, err := redis.ParseURL(a.config.GetString("redis.url"))
	if err != nil {
		slog.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}

	rdb := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	a.cacheConn = rdb
}

func (a *App) initMail() {
	if a.notifierDriver() != notifier.DriverMail && !a.notificationEnabled() {
		return
	}

	mail, err := mail.NewSMTP(mail.SMTPConfig{
		Host:               a.config.GetString("mail.host"),
		Port:               a.config.GetInt("mail.port"),
		Username:           a.config.GetString("mail.username"),
		Password:           a.config.GetString("mail.password"),
		From:               a.config.GetString("mail.from"),
		FromName:           a.config.GetString("mail.from_name"),
		SSL:                a.config.GetBool("mail.ssl"),
		InsecureSkipVerify: a.config.GetBool("mail.insecure_skip_verify"),
	})
	if err != nil {
		slog.Error("failed to init mail", "error", err)
		os.Exit(1)
	}

	a.mail = mail
}

func (a *App) nsqConfig(prefix string) *nsq.Config {
	cfg := nsq.NewConfig()
	if v := a.config.GetInt(prefix + ".max_in_flight"); v > 0 {
		cfg.MaxInFlight = v
	}
	if v := a.config.GetUint16(prefix + ".max_attempts"); v > 0 {
		cfg.MaxAttempts = v
	}
	if v := a.config.GetSecond(prefix + ".dial_timeout_seconds"); v > 0 {
		cfg.DialTimeout = v
	}
	if v := a.config.GetSecond(prefix + ".read_timeout_seconds"); v > 0 {
		cfg.ReadTimeout = v
	}
	if v := a.config.GetSecond(prefix + ".write_timeout_seconds"); v > 0 {
		cfg.WriteTimeout = v
	}
	if v := a.config.GetSecond(prefix + ".lookupd_poll_interval_seconds"); v > 0 {
		cfg.LookupdPollInterval = v
	}
	if v := a.config.GetSecond(prefix + ".default_requeue_delay_seconds"); v > 0 {
		cfg.DefaultRequeueDelay = v
	}
	return cfg
}

func (a *App) initMessaging() {
	if a.notifierDriver() != notifier.DriverBroker && !a.notificationEnabled() {
		return
	}

	driver := a.config.GetString("messaging.driver")
	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		NSQ: messaging.NSQConfig{
			ProducerAddr:         a.config.GetString("messaging.nsq.producer_addr"),
			ConsumerNSQDAddrs:    a.config.GetArray("messaging.nsq.consumer_nsqd_addrs"),
			ConsumerLookupdAddrs: a.config.GetArray("messaging.nsq.consumer_lookupd_addrs"),
			ProducerConfig:       a.nsqConfig("messaging.nsq.producer_config"),
			ConsumerConfig:       a.nsqConfig("messaging.nsq.consumer_config"),
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("app.name")),
				nats.MaxReconnects(a.config.GetInt("messaging.nats.max_reconnects")),
				nats.ReconnectWait(a.config.GetSecond("messaging.nats.reconnect_wait_seconds")),
				nats.RetryOnFailedConnect(a.config.GetBool("messaging.nats.retry_on_failed_connect")),
			},
		},
		Kafka: messaging.KafkaConfig{
			Brokers: a.config.GetArray("messaging.kafka.brokers"),
		},
		PubSub: messaging.PubSubConfig{
			ProjectID:       a.config.GetString("messaging.google_pubsub.project_id"),
			Endpoint:        a.config.GetString("messaging.google_pubsub.endpoint"),
			CredentialsFile: a.config.GetString("messaging.google_pubsub.credentials_file"),
		},
	})
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.messaging = client
}

// initPasscode builds the generator, session store, manager, rate limiter
// and notifier shared by the identity module.
func (a *App) initPasscode() {
	gen := otp.NewRandom(a.config.GetInt("modules.identity.otp.length"))
	store := otp.NewMemoryStore(a.clock, gen, a.config.GetInt("modules.identity.otp.max_attempts"))
	a.otpManager = otp.NewManager(gen, store, a.config.GetSecond("modules.identity.otp.validity_seconds"))

	// the manager falls back to its default for non-positive values
	validity := a.otpManager.Validity()

	var rdb redis.UniversalClient
	if a.cacheConn != nil {
		rdb = a.cacheConn
	}

	driver := a.config.GetString("modules.identity.rate_limit.driver")
	limiter, err := ratelimit.NewFromDriver(driver, ratelimit.FactoryOptions{
		Config: ratelimit.Config{
			MaxRequests: a.config.GetInt("modules.identity.rate_limit.max_requests"),
			Window:      a.config.GetSecond("modules.identity.rate_limit.window_seconds"),
		},
		Memory: ratelimit.MemoryOptions{Clock: a.clock},
		Redis: ratelimit.RedisOptions{
			Client: rdb,
			Clock:  a.clock,
			Prefix: a.config.GetString("redis.prefix"),
		},
	})
	if err != nil {
		slog.Error("failed to init rate limiter", "error", err, "driver", driver)
		os.Exit(1)
	}
	a.limiter = limiter

	nDriver := a.notifierDriver()
	n, err := notifier.NewFromDriver(nDriver, notifier.FactoryOptions{
		Mail:   a.mailNotifierOptions(validity),
		Broker: notifier.BrokerOptions{Publisher: a.messaging, Clock: a.clock, Validity: validity},
	})
	if err != nil {
		slog.Error("failed to init notifier", "error", err, "driver", nDriver)
		os.Exit(1)
	}
	if nDriver == notifier.DriverLog || nDriver == "" {
		slog.Warn("passcodes are written to the log, do not use the log notifier in production")
	}
	if a.brokerWithoutConsumer() {
		slog.Warn("passcodes are published to the in-process broker but the notification module is disabled, nothing will deliver them",
			"messaging_driver", messaging.DriverMemory)
	}
	a.notifier = n
}

// brokerWithoutConsumer reports whether dispatch events go to the in-process
// broker with no consumer in this process to pick them up.
func (a *App) brokerWithoutConsumer() bool {
	return a.notifierDriver() == notifier.DriverBroker &&
		strings.TrimSpace(a.config.GetString("messaging.driver")) == messaging.DriverMemory &&
		!a.notificationEnabled()
}

func (a *App) mailNotifierOptions(validity time.Duration) notifier.MailOptions {
	return notifier.MailOptions{
		Client:   a.mail,
		Validity: validity,
		Subject:  a.config.GetString("mail.subject"),
		Product:  a.config.GetString("mail.product"),
		Team:     a.config.GetString("mail.team"),
		Retries:  a.config.GetInt("modules.identity.notifier.retries"),
		Backoff:  time.Duration(a.config.GetInt("modules.identity.notifier.backoff_millis")) * time.Millisecond,
	}
}

// initSweepers bounds the memory held by expired sessions and idle limiter
// keys. The redis limiter expires its keys itself.
func (a *App) initSweepers() {
	interval := a.config.GetSecond("modules.identity.otp.sweep_interval_seconds")
	if !a.goroutine.Go(a.ctx, func(ctx context.Context) error {
		return a.otpManager.RunSweeper(ctx, interval)
	}) {
		slog.Warn("otp session sweeper not started")
	}

	if mem, ok := a.limiter.(*ratelimit.Memory); ok {
		interval := a.config.GetSecond("modules.identity.rate_limit.sweep_interval_seconds")
		if !a.goroutine.Go(a.ctx, func(ctx context.Context) error {
			return mem.RunSweeper(ctx, interval)
		}) {
			slog.Warn("rate limit sweeper not started")
		}
	}
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:     a.config,
		UUID:       a.uuid,
		Instrument: a.ins,
	})

	a.router.GET("/health", a.health)

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.server.cors"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("app.server.http.address"),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.http.read_timeout_seconds"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.http.read_header_timeout_seconds"),
		WriteTimeout:      a.config.GetSecond("app.server.http.write_timeout_seconds"),
		IdleTimeout:       a.config.GetSecond("app.server.http.idle_timeout_seconds"),
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

func (healthResponse) Message() string { return "ok" }

// health pings the optional backing stores. Sessions live in memory, so a
// running process is otherwise healthy.
func (a *App) health(r *router.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if a.dbConn != nil {
		if err := a.dbConn.Ping(ctx); err != nil {
			slog.ErrorContext(ctx, "health: database ping failed", "error", err)
			return nil, goerror.NewServer(err)
		}
	}
	if a.cacheConn != nil {
		if err := a.cacheConn.Ping(ctx).Err(); err != nil {
			slog.ErrorContext(ctx, "health: redis ping failed", "error", err)
			return nil, goerror.NewServer(err)
		}
	}

	return healthResponse{Status: "up"}, nil
}

func (a *App) initClosers() {
	all := []closer{
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "Messaging",
			skip: a.messaging == nil,
			fn: func(context.Context) error {
				return a.messaging.Close()
			},
		},
		{
			name: "Mail",
			skip: a.mail == nil,
			fn: func(context.Context) error {
				return a.mail.Close()
			},
		},
		{
			name: "Redis",
			skip: a.cacheConn == nil,
			fn: func(context.Context) error {
				return a.cacheConn.Close()
			},
		},
		{
			name: "Database",
			skip: a.dbConn == nil,
			fn: func(context.Context) error {
				a.dbConn.Close()

				return nil
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}

	a.closers = lo.Reject(all, func(c closer, _ int) bool { return c.skip })
}
