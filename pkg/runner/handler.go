package runner

import (
	"context"

	"github.com/aretw0/youvisa/pkg/domain"
)

// EventHandler processes one inbound event. The workflow engine implements it.
type EventHandler interface {
	Handle(ctx context.Context, ev domain.Event) (*domain.Reply, error)
}

// EventHandlerFunc adapts a function to EventHandler.
type EventHandlerFunc func(ctx context.Context, ev domain.Event) (*domain.Reply, error)

// Handle calls f(ctx, ev).
func (f EventHandlerFunc) Handle(ctx context.Context, ev domain.Event) (*domain.Reply, error) {
	return f(ctx, ev)
}

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (CLI/TUI) and JSON (Structured) modes.
type IOHandler interface {
	// Output presents the engine's reply to the user.
	Output(ctx context.Context, reply *domain.Reply) error

	// Input reads the next line from the user.
	// Returns io.EOF when there is nothing more to read.
	Input(ctx context.Context) (string, error)

	// SystemOutput presents a meta-message to the user (errors, hints).
	// This is distinct from the replies of the conversation.
	SystemOutput(ctx context.Context, msg string) error
}
