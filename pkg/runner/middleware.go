package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/youvisa/pkg/domain"
)

// Middleware decorates an EventHandler, e.g. to validate, log or measure events.
type Middleware func(next EventHandler) EventHandler

// Chain wraps h with the middlewares. The first one listed runs first.
func Chain(h EventHandler, mws ...Middleware) EventHandler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Sanitize cleans the text of text events before they reach next.
// Input that cannot be cleaned is rejected with the sanitizer's error.
func Sanitize(s *Sanitizer) Middleware {
	return func(next EventHandler) EventHandler {
		return EventHandlerFunc(func(ctx context.Context, ev domain.Event) (*domain.Reply, error) {
			if ev.Kind == domain.EventText {
				clean, err := s.Sanitize(ev.Text)
				if err != nil {
					return nil, fmt.Errorf("text event: %w", err)
				}
				ev.Text = clean
			}
			return next.Handle(ctx, ev)
		})
	}
}

// Logging records every event at debug level and failures at error level.
// Message text is never logged; it may carry personal data.
func Logging(logger *slog.Logger) Middleware {
	return func(next EventHandler) EventHandler {
		return EventHandlerFunc(func(ctx context.Context, ev domain.Event) (*domain.Reply, error) {
			start := time.Now()
			reply, err := next.Handle(ctx, ev)
			if err != nil {
				logger.Error("Event handling failed",
					"user_id", ev.UserID,
					"kind", ev.Kind,
					"err", err,
				)
				return nil, err
			}
			logger.Debug("Event handled",
				"user_id", ev.UserID,
				"kind", ev.Kind,
				"step", reply.Step,
				"messages", len(reply.Messages),
				"duration", time.Since(start),
			)
			return reply, nil
		})
	}
}

// Observe reports the kind and result of every event to fn, e.g. a metrics recorder.
func Observe(fn func(kind domain.EventKind, err error)) Middleware {
	return func(next EventHandler) EventHandler {
		return EventHandlerFunc(func(ctx context.Context, ev domain.Event) (*domain.Reply, error) {
			reply, err := next.Handle(ctx, ev)
			fn(ev.Kind, err)
			return reply, err
		})
	}
}
