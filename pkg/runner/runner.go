package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aretw0/youvisa/internal/logging"
	"github.com/aretw0/youvisa/pkg/domain"
)

// MsgEventFailed is shown when the engine could not process a line.
const MsgEventFailed = "Não foi possível processar sua mensagem agora. Tente novamente em instantes."

// Runner handles the chat loop of one user against an EventHandler using provided IO.
// This allows for easy testing and integration with different frontends (CLI, TUI, scripts).
type Runner struct {
	// Events receives the parsed events, usually the workflow engine.
	Events EventHandler

	// Handler is the strategy for IO. Defaults to a TextHandler on Stdin/Stdout.
	Handler IOHandler

	// Logger is used for internal logging.
	// If nil, a no-op logger is used.
	Logger *slog.Logger

	// UserID is the external id events are sent as.
	UserID string

	// Sanitizer cleans every line before it is parsed.
	Sanitizer *Sanitizer

	// AutoStart sends a start event before the first read.
	AutoStart bool
}

// NewRunner creates a Runner that feeds events to events.
func NewRunner(events EventHandler, opts ...Option) *Runner {
	r := &Runner{
		Events: events,
		UserID: DefaultUserID,
		Logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.Sanitizer == nil {
		r.Sanitizer = NewSanitizer(0)
	}
	return r
}

// Run reads lines until EOF, "exit"/"quit", or ctx is done.
// Per-line problems are reported to the user and the loop goes on; only IO
// failures end it with an error.
func (r *Runner) Run(ctx context.Context) error {
	handler := r.resolveHandler()

	if r.AutoStart {
		if err := r.dispatch(ctx, handler, domain.Event{UserID: r.UserID, Kind: domain.EventStart}); err != nil {
			return err
		}
	}

	for {
		line, err := handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		clean, err := r.Sanitizer.Sanitize(line)
		if err != nil {
			r.Logger.Warn("Chat input rejected", "user_id", r.UserID, "err", err)
			if err := handler.SystemOutput(ctx, MsgInputRejected); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
			continue
		}

		ev, err := ParseLine(r.UserID, clean)
		if err != nil {
			if err := handler.SystemOutput(ctx, err.Error()); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
			continue
		}

		if err := r.dispatch(ctx, handler, ev); err != nil {
			return err
		}
	}
}

func (r *Runner) dispatch(ctx context.Context, handler IOHandler, ev domain.Event) error {
	reply, err := r.Events.Handle(ctx, ev)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		r.Logger.Error("Chat event failed", "user_id", ev.UserID, "kind", ev.Kind, "err", err)
		if err := handler.SystemOutput(ctx, MsgEventFailed); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		return nil
	}
	if err := handler.Output(ctx, reply); err != nil {
		return fmt.Errorf("output error: %w", err)
	}
	return nil
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler == nil {
		r.Handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	return r.Handler
}
