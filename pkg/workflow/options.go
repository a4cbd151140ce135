package workflow

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/youvisa/pkg/domain"
)

// DefaultClassifyTimeout bounds a single classifier call.
const DefaultClassifyTimeout = 60 * time.Second

// DefaultAssistantTimeout bounds a single assistant call.
const DefaultAssistantTimeout = 30 * time.Second

// ActiveTaskPolicy decides what happens when a user who already has an active
// task picks a country again.
type ActiveTaskPolicy string

const (
	// PolicyAllow always creates a new task. Older active tasks stay in place.
	PolicyAllow ActiveTaskPolicy = "allow"
	// PolicyReuse resumes the active task when it targets the same country.
	PolicyReuse ActiveTaskPolicy = "reuse"
	// PolicyForbid refuses a new task while another one is active.
	PolicyForbid ActiveTaskPolicy = "forbid"
)

// ParseActiveTaskPolicy validates a configured policy name. Empty means PolicyAllow.
func ParseActiveTaskPolicy(s string) (ActiveTaskPolicy, error) {
	switch p := ActiveTaskPolicy(s); p {
	case "":
		return PolicyAllow, nil
	case PolicyAllow, PolicyReuse, PolicyForbid:
		return p, nil
	}
	return "", fmt.Errorf("unknown active task policy %q", s)
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHooks registers lifecycle callbacks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithClassifyTimeout bounds each classifier call.
func WithClassifyTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.classifyTimeout = d
		}
	}
}

// WithAssistantTimeout bounds each assistant call.
func WithAssistantTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.assistantTimeout = d
		}
	}
}

// WithMaxClassificationAttempts ends the session after n consecutive rejected
// uploads. Zero keeps retries unlimited.
func WithMaxClassificationAttempts(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxAttempts = n
		}
	}
}

// WithActiveTaskPolicy sets how country selection treats an existing active task.
func WithActiveTaskPolicy(p ActiveTaskPolicy) Option {
	return func(e *Engine) {
		if p != "" {
			e.policy = p
		}
	}
}

// WithMatchMode sets how free text is resolved to a country.
func WithMatchMode(m MatchMode) Option {
	return func(e *Engine) {
		if m != "" {
			e.matchMode = m
		}
	}
}

// WithClock sets the time source used for hook timestamps.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) {
		if clock != nil {
			e.clock = clock
		}
	}
}
