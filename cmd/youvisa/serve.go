package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/aretw0/youvisa"
	"github.com/aretw0/youvisa/internal/cli"
	httpAdapter "github.com/aretw0/youvisa/pkg/adapters/http"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP transport and reporting API",
	Long: `Starts the intake engine behind an HTTP API. The messaging transport posts
events to /v1/events; operators use the reporting routes and /metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, true)
		if err != nil {
			return err
		}
		logger, err := cli.NewLogger(cfg, debugFlag(cmd))
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		app, err := cli.Build(ctx, cfg, logger, cli.BuildOptions{})
		if err != nil {
			return err
		}
		defer app.Close()

		api := httpAdapter.NewServer(app.Events, app.Store, app.Docs, cfg.TransportToken,
			httpAdapter.WithLogger(logger),
			httpAdapter.WithMetrics(app.Metrics.Handler()),
			httpAdapter.WithVersion(youvisa.Version),
			httpAdapter.WithStreams(app.Streams),
		)
		srv := &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			logger.Info("Server listening", "addr", srv.Addr, "db_driver", cfg.DBDriver)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("Graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				return srv.Close()
			}
			return nil
		})
		if err := g.Wait(); err != nil {
			return err
		}
		logger.Info("Server stopped")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (overrides YOUVISA_HTTP_ADDR)")
}
