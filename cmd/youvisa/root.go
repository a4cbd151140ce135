package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/youvisa/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "youvisa",
	Short: "YOUVISA collects and checks visa application documents",
	Long: `YOUVISA runs the document intake conversation: it registers applicants,
opens a visa task for the chosen country, classifies every uploaded file and
marks the task READY once all required documents are in.

Settings come from the environment (TRANSPORT_TOKEN, OPENAI_API_KEY, YOUVISA_*);
flags override the database and listen address.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().String("db-driver", "", "Task store driver: sqlite, postgres or memory (overrides YOUVISA_DB_DRIVER)")
	rootCmd.PersistentFlags().String("db-dsn", "", "Task store DSN or sqlite path (overrides YOUVISA_DB_DSN)")
}

// loadConfig reads the environment and applies flag overrides. Strict mode
// enforces the required secrets; offline commands skip them.
func loadConfig(cmd *cobra.Command, strict bool) (*config.Config, error) {
	cfg, err := config.Parse()
	if err != nil {
		return nil, err
	}
	if v, _ := cmd.Flags().GetString("db-driver"); v != "" {
		cfg.DBDriver = v
	}
	if v, _ := cmd.Flags().GetString("db-dsn"); v != "" {
		cfg.DBDSN = v
	}
	if cmd.Flags().Lookup("addr") != nil {
		if v, _ := cmd.Flags().GetString("addr"); v != "" {
			cfg.HTTPAddr = v
		}
	}
	if strict {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func debugFlag(cmd *cobra.Command) bool {
	debug, _ := cmd.Flags().GetBool("debug")
	return debug
}
