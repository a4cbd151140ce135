// Package cli holds the composition root and helpers behind cmd/youvisa.
package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/youvisa/internal/config"
	"github.com/aretw0/youvisa/internal/logging"
)

// NewLogger configures the application logger from cfg.
// Debug forces the debug level regardless of YOUVISA_LOG_LEVEL.
func NewLogger(cfg *config.Config, debug bool) (*slog.Logger, error) {
	if debug {
		return logging.New(slog.LevelDebug, cfg.LogFormat), nil
	}
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	return logging.New(level, cfg.LogFormat), nil
}

// PrintSystemMessage prints a standardized system message.
func PrintSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}
