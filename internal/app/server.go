package app

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
)

// Start binds the HTTP address, serves passcode traffic and returns a channel
// that is closed once a termination signal arrives.
func (a *App) Start() <-chan struct{} {
	l, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		slog.Error("failed to bind http address", "address", a.httpServer.Addr, "error", err)
		os.Exit(1)
	}

	slog.Info("http server listening",
		"address", l.Addr().String(),
		"notifier", a.notifierDriver(),
		"limiter", a.config.GetString("modules.identity.rate_limit.driver"),
	)

	errChan := a.Serve(l)
	done := make(chan struct{})

	go func() {
		sigCtx, stop := signal.NotifyContext(a.ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
		defer stop()

		select {
		case err := <-errChan:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http server stopped unexpectedly", "error", err)
				os.Exit(1)
			}
		case <-sigCtx.Done():
			slog.Info("termination signal received")
		}

		a.cancel()
		close(done)
	}()

	return done
}

// Serve runs the HTTP server on l. The returned channel yields the serve
// error once and is then closed.
func (a *App) Serve(l net.Listener) <-chan error {
	errChan := make(chan error, 1)

	go func() {
		defer close(errChan)
		errChan <- a.httpServer.Serve(l)
	}()

	return errChan
}

// Stop drains in-flight requests, then sweepers, consumers and pending audit
// writes, and finally runs the closers in order.
func (a *App) Stop(ctx context.Context) {
	a.cancel()

	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "http server shutdown", "error", err)
	}

	if err := a.goroutine.Wait(); err != nil {
		slog.ErrorContext(ctx, "background task failed", "error", err)
	}

	issued, swept := a.otpManager.Stats()
	slog.InfoContext(ctx, "background tasks finished",
		"sessions_issued", issued,
		"sessions_swept", swept,
		"sessions_active", a.otpManager.ActiveSessions(),
	)

	for _, c := range a.closers {
		if err := c.fn(ctx); err != nil {
			slog.ErrorContext(ctx, "failed to close resource", "name", c.name, "error", err)
		}
	}

	slog.InfoContext(ctx, "application stopped")
}
