package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/passgate/internal/identity"
	"github.com/shandysiswandi/passgate/internal/notification"
	"github.com/shandysiswandi/passgate/internal/pkg/notifier"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.identity.enabled") {
		if err := identity.New(identity.Dependency{
			Ctx:        a.ctx,
			Config:     a.config,
			Instrument: a.ins,
			Router:     a.router,
			Validator:  a.validator,
			Clock:      a.clock,
			UID:        a.uid,
			HMAC:       a.hmac,
			Goroutine:  a.goroutine,
			Manager:    a.otpManager,
			Limiter:    a.limiter,
			Notifier:   a.notifier,
			DBConn:     a.dbConn,
		}); err != nil {
			slog.Error("failed to init module identity", "error", err)
			os.Exit(1)
		}
	}

	if a.notificationEnabled() {
		mailer, err := notifier.NewMail(a.mailNotifierOptions(a.otpManager.Validity()))
		if err != nil {
			slog.Error("failed to init notification mailer", "error", err)
			os.Exit(1)
		}

		if err := notification.New(notification.Dependency{
			Ctx:        a.ctx,
			Messaging:  a.messaging,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			Clock:      a.clock,
			Goroutine:  a.goroutine,
			Validator:  a.validator,
			Mail:       mailer,
		}); err != nil {
			slog.Error("failed to init module notification", "error", err)
			os.Exit(1)
		}
	}
}
