package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/youvisa/internal/cli"
	"github.com/aretw0/youvisa/internal/config"
	"github.com/aretw0/youvisa/internal/presentation/tui"
	"github.com/aretw0/youvisa/pkg/runner"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the intake assistant in the terminal",
	Long: `Runs the intake conversation on stdin/stdout. Type /start to begin,
/cancel to abort, "/attach <file>" to upload a document and "exit" to quit.
Sessions are kept on disk, so a conversation survives a restart.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, false)
		if err != nil {
			return err
		}
		if strings.TrimSpace(cfg.OpenAIKey) == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY", config.ErrMissingConfiguration)
		}
		logger, err := cli.NewLogger(cfg, debugFlag(cmd))
		if err != nil {
			return err
		}

		sessionDir, _ := cmd.Flags().GetString("session-dir")
		userID, _ := cmd.Flags().GetString("user")
		jsonMode, _ := cmd.Flags().GetBool("json")

		ctx := cmd.Context()
		app, err := cli.Build(ctx, cfg, logger, cli.BuildOptions{SessionDir: sessionDir})
		if err != nil {
			return err
		}
		defer app.Close()

		var handler runner.IOHandler
		if jsonMode {
			handler = runner.NewJSONHandler(os.Stdin, os.Stdout)
		} else {
			var opts []runner.TextHandlerOption
			if tui.IsTerminal(os.Stdout) {
				tui.PrintBanner(os.Stdout)
				opts = append(opts, runner.WithTextHandlerRenderer(tui.NewRenderer(tui.Width(os.Stdout))))
			}
			handler = runner.NewTextHandler(os.Stdin, os.Stdout, opts...)
		}

		r := runner.NewRunner(app.Events,
			runner.WithLogger(logger),
			runner.WithInputHandler(handler),
			runner.WithUserID(userID),
			runner.WithAutoStart(!jsonMode),
		)
		if err := r.Run(ctx); err != nil {
			return err
		}
		if !jsonMode {
			cli.PrintSystemMessage(os.Stdout, "Até logo!")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("session-dir", ".youvisa/sessions", "Directory for conversation sessions")
	chatCmd.Flags().String("user", runner.DefaultUserID, "User id of the local conversation")
	chatCmd.Flags().Bool("json", false, "Read JSON-quoted lines and write replies as JSON")
}
