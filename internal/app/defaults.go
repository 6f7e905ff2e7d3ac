package app

import (
	"github.com/shandysiswandi/passgate/internal/pkg/messaging"
	"github.com/shandysiswandi/passgate/internal/pkg/notifier"
	"github.com/shandysiswandi/passgate/internal/pkg/otp"
	"github.com/shandysiswandi/passgate/internal/pkg/ratelimit"
	"github.com/shandysiswandi/passgate/internal/shared/event"
)

// defaults applies when a key is absent from both the file and the environment.
var defaults = map[string]any{
	"app.name":                                    "passgate",
	"app.tz":                                      "UTC",
	"app.server.max_goroutine":                    256,
	"app.server.http.address":                     ":8080",
	"app.server.http.read_timeout_seconds":        10,
	"app.server.http.read_header_timeout_seconds": 5,
	"app.server.http.write_timeout_seconds":       15,
	"app.server.http.idle_timeout_seconds":        60,
	"app.server.throttle.rps":                     0,
	"app.server.throttle.burst":                   0,
	"app.server.trusted_proxies":                  "",

	"instrument.enabled":                 false,
	"instrument.service_name":            "passgate",
	"instrument.log_level":               "info",
	"instrument.trace_sample_ratio":      1.0,
	"instrument.metric_interval_seconds": 60,
	"instrument.log_mask_fields":         "otp,code,passcode,authorization,password",

	"modules.identity.enabled":                           true,
	"modules.identity.otp.length":                        otp.DefaultLength,
	"modules.identity.otp.validity_seconds":              int(otp.DefaultValidity.Seconds()),
	"modules.identity.otp.max_attempts":                  otp.DefaultMaxAttempts,
	"modules.identity.otp.sweep_interval_seconds":        60,
	"modules.identity.rate_limit.driver":                 ratelimit.DriverMemory,
	"modules.identity.rate_limit.max_requests":           ratelimit.DefaultMaxRequests,
	"modules.identity.rate_limit.window_seconds":         int(ratelimit.DefaultWindow.Seconds()),
	"modules.identity.rate_limit.sweep_interval_seconds": 60,
	"modules.identity.notifier.driver":                   notifier.DriverLog,
	"modules.identity.notifier.retries":                  2,
	"modules.identity.notifier.backoff_millis":           200,
	"modules.identity.audit.enabled":                     false,

	"modules.notification.enabled":        false,
	"modules.notification.consumer_names": event.OTPDispatchConsumerNotification,
	"modules.notification.concurrency":    4,

	"mail.subject": notifier.DefaultSubject,
	"mail.product": notifier.DefaultProduct,
	"mail.team":    notifier.DefaultTeam,

	"redis.prefix": "passgate:ratelimit:",

	"messaging.driver": messaging.DriverMemory,

	"database.pool.max_conns":                   10,
	"database.pool.min_conns":                   1,
	"database.pool.max_conn_lifetime_seconds":   3600,
	"database.pool.max_conn_idle_seconds":       300,
	"database.pool.health_check_period_seconds": 30,
}
