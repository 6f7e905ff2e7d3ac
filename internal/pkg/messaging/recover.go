package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"

	"github.com/shandysiswandi/passgate/internal/pkg/stacktrace"
)

// dispatch runs handler with panic recovery and applies auto-ack.
func dispatch(ctx context.Context, kind string, handler Handler, msg Message, responded *atomic.Bool, autoAck bool) error {
	err := callHandlerWithRecover(ctx, kind, func() error { return handler(ctx, msg) })
	if !autoAck || responded.Load() {
		return err
	}

	if err == nil {
		return msg.Ack(ctx)
	}
	if nerr := msg.Nack(ctx); nerr != nil {
		return nerr
	}
	return err
}

func callHandlerWithRecover(ctx context.Context, kind string, fn func() error) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			stack := debug.Stack()
			if paths := stacktrace.InternalPaths(stack); len(paths) > 0 {
				slog.ErrorContext(ctx, "panic in messaging handler", "kind", kind, "panic", rvr, "stack", paths)
			} else {
				slog.ErrorContext(ctx, "panic in messaging handler", "kind", kind, "panic", rvr, "stack", string(stack))
			}
			err = fmt.Errorf("messaging: panic in %s handler: %v", kind, rvr)
		}
	}()

	return fn()
}
