// Package logging configures the process logger and logs gateway events.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	eventbus "github.com/hanpama/stitchgate/internal/eventbus"
	events "github.com/hanpama/stitchgate/internal/events"
	reqid "github.com/hanpama/stitchgate/internal/reqid"
)

// ParseLevel accepts debug, info, warn and error.
func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("logging: unknown level %q", level)
}

// New builds a logger writing text or json records to w.
func New(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}
	return slog.New(handler).With("service", "stitchgate"), nil
}

// Subscribe logs lifecycle events at info and per-request events at debug.
// It returns a function that removes every subscription.
func Subscribe(logger *slog.Logger) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.PhaseChange) {
			logger.InfoContext(ctx, "phase changed", "from", e.From, "to", e.To)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.ProbeAttempt) {
			logger.DebugContext(ctx, "service not reachable yet", "address", e.Address, "elapsed", e.Elapsed, "error", e.Err)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.ProbeReady) {
			logger.InfoContext(ctx, "service reachable", "address", e.Address, "elapsed", e.Elapsed)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.IntrospectionFinish) {
			if e.Err != nil {
				logger.ErrorContext(ctx, "introspection failed", "service", e.Service, "error", e.Err)
				return
			}
			logger.InfoContext(ctx, "introspected service", "service", e.Service, "types", e.Types, "duration", e.Duration)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.BackendCallFinish) {
			attrs := append(requestAttrs(ctx),
				"backend", e.Service,
				"operation", e.Operation,
				"status", e.Status,
				"duration", e.Duration,
			)
			if e.Err != nil {
				logger.WarnContext(ctx, "backend call failed", append(attrs, "error", e.Err)...)
				return
			}
			logger.DebugContext(ctx, "backend call", attrs...)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
			attrs := append(requestAttrs(ctx),
				"operation_name", e.OperationName,
				"operation_type", e.OperationType,
				"errors", len(e.Errors),
				"duration", e.Duration,
			)
			if e.Rejected {
				logger.DebugContext(ctx, "operation rejected", append(attrs, "error", firstError(e.Errors))...)
				return
			}
			logger.DebugContext(ctx, "operation finished", attrs...)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			logger.DebugContext(ctx, "http request", append(requestAttrs(ctx),
				"method", e.Request.Method,
				"path", e.Request.URL.Path,
				"status", e.Status,
				"duration", e.Duration,
			)...)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func requestAttrs(ctx context.Context) []any {
	if rid, ok := reqid.FromContext(ctx); ok {
		return []any{"request_id", rid}
	}
	return nil
}

func firstError(list []error) error {
	if len(list) == 0 {
		return nil
	}
	return list[0]
}
