package runner

import "log/slog"

// DefaultUserID identifies the person at the terminal when none is configured.
const DefaultUserID = "local"

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithUserID sets the external user id events are sent as.
func WithUserID(id string) Option {
	return func(r *Runner) {
		if id != "" {
			r.UserID = id
		}
	}
}

// WithSanitizer replaces the default input sanitizer.
func WithSanitizer(s *Sanitizer) Option {
	return func(r *Runner) {
		r.Sanitizer = s
	}
}

// WithAutoStart sends a start event before reading the first line.
func WithAutoStart(enabled bool) Option {
	return func(r *Runner) {
		r.AutoStart = enabled
	}
}
