package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/youvisa/internal/config"
	"github.com/aretw0/youvisa/internal/metrics"
	"github.com/aretw0/youvisa/pkg/adapters/file"
	httpAdapter "github.com/aretw0/youvisa/pkg/adapters/http"
	"github.com/aretw0/youvisa/pkg/adapters/memory"
	"github.com/aretw0/youvisa/pkg/adapters/openai"
	"github.com/aretw0/youvisa/pkg/adapters/postgres"
	"github.com/aretw0/youvisa/pkg/adapters/redis"
	"github.com/aretw0/youvisa/pkg/adapters/sqlite"
	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/persistence/middleware"
	"github.com/aretw0/youvisa/pkg/ports"
	"github.com/aretw0/youvisa/pkg/runner"
	"github.com/aretw0/youvisa/pkg/session"
	"github.com/aretw0/youvisa/pkg/workflow"
)

// lockPrefix namespaces the distributed locks; the locker appends "lock:<user>".
const lockPrefix = "youvisa:"

// App is the wired object graph shared by the serve and chat commands.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    ports.TaskStore
	Sessions *session.Manager
	Docs     ports.DocumentStorage
	Engine   *workflow.Engine
	Metrics  *metrics.Metrics
	Streams  *httpAdapter.StreamManager

	// Events is the engine behind the transport middleware stack.
	Events runner.EventHandler

	closers []func() error
}

// BuildOptions tweaks the composition for a particular command.
type BuildOptions struct {
	// SessionDir keeps sessions in files instead of memory or Redis.
	SessionDir string
	// Providers may replace the OpenAI adapters, e.g. in tests.
	Classifier ports.Classifier
	Assistant  ports.Assistant
}

// Build wires stores, providers and the engine from cfg.
// Callers must Close the returned App.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts BuildOptions) (app *App, err error) {
	app = &App{
		Config:  cfg,
		Logger:  logger,
		Docs:    file.NewDocuments(cfg.StorageDir),
		Metrics: metrics.New(),
		Streams: httpAdapter.NewStreamManager(logger),
	}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	store, closeStore, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	app.Store = store
	app.closers = append(app.closers, closeStore)

	sessions, closeSessions, err := OpenSessions(ctx, cfg, logger, opts.SessionDir)
	if err != nil {
		return nil, err
	}
	app.Sessions = sessions
	app.closers = append(app.closers, closeSessions)

	classifier, assistant := opts.Classifier, opts.Assistant
	if classifier == nil || assistant == nil {
		client, err := openai.NewClient(openai.Config{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIBaseURL,
			Model:   cfg.OpenAIModel,
		})
		if err != nil {
			return nil, fmt.Errorf("openai client: %w", err)
		}
		if classifier == nil {
			classifier = openai.NewClassifier(client)
		}
		if assistant == nil {
			assistant = openai.NewAssistant(client)
		}
	}

	engineOpts, err := engineOptions(cfg)
	if err != nil {
		return nil, err
	}
	engineOpts = append(engineOpts,
		workflow.WithLogger(logger),
		workflow.WithHooks(domain.MergeHooks(app.Metrics.Hooks(logger), app.Streams.Hooks())),
	)
	app.Engine = workflow.New(store, sessions, classifier, assistant, app.Docs, engineOpts...)

	app.Events = runner.Chain(app.Engine,
		runner.Observe(app.Metrics.ObserveEvent),
		runner.Logging(logger),
		runner.Sanitize(runner.NewSanitizer(cfg.MaxInputSize)),
	)
	return app, nil
}

// Close releases stores and connections in reverse order of creation.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// OpenStore opens the TaskStore selected by cfg.DBDriver.
func OpenStore(ctx context.Context, cfg *config.Config) (ports.TaskStore, func() error, error) {
	switch cfg.DBDriver {
	case "memory":
		return memory.NewTaskStore(), func() error { return nil }, nil
	case "postgres":
		store, err := postgres.Open(ctx, cfg.DBDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return store, store.Close, nil
	case "sqlite", "":
		store, err := sqlite.Open(cfg.DBDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return store, store.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported db driver %q", cfg.DBDriver)
	}
}

// OpenSessions builds the session manager: file sessions when dir is set,
// Redis (with a distributed lock) when YOUVISA_REDIS_URL is set, memory
// otherwise. Registration answers are always sealed at rest and, with
// YOUVISA_SESSION_KEY, the whole session is encrypted.
func OpenSessions(ctx context.Context, cfg *config.Config, logger *slog.Logger, dir string) (*session.Manager, func() error, error) {
	var (
		store   ports.SessionStore
		closeFn = func() error { return nil }
		mgrOpts = []session.Option{session.WithLogger(logger)}
	)

	switch {
	case dir != "":
		store = file.NewSessions(dir)
	case cfg.RedisURL != "":
		client, err := redis.NewClient(cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		rs := redis.NewFromClient(client, redis.WithTTL(cfg.SessionTTL))
		if err := rs.Ping(ctx); err != nil {
			_ = rs.Close()
			return nil, nil, fmt.Errorf("redis: %w", err)
		}
		store, closeFn = rs, rs.Close
		mgrOpts = append(mgrOpts, session.WithLocker(redis.NewLocker(client, lockPrefix)))
	default:
		store = memory.NewStore()
	}

	key, err := cfg.SessionKeyBytes()
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	pii, err := middleware.NewPIIMiddleware(key)
	if err != nil {
		_ = closeFn()
		return nil, nil, err
	}
	mws := []middleware.Middleware{pii}
	if key != nil {
		enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key})
		if err != nil {
			_ = closeFn()
			return nil, nil, err
		}
		mws = append(mws, enc)
	}
	return session.NewManager(middleware.Chain(store, mws...), mgrOpts...), closeFn, nil
}

func engineOptions(cfg *config.Config) ([]workflow.Option, error) {
	policy, err := workflow.ParseActiveTaskPolicy(cfg.ActiveTaskPolicy)
	if err != nil {
		return nil, err
	}
	mode, err := workflow.ParseMatchMode(cfg.MatchMode)
	if err != nil {
		return nil, err
	}
	return []workflow.Option{
		workflow.WithClassifyTimeout(cfg.ClassifyTimeout),
		workflow.WithAssistantTimeout(cfg.AssistantTimeout),
		workflow.WithMaxClassificationAttempts(cfg.MaxClassifyAttempts),
		workflow.WithActiveTaskPolicy(policy),
		workflow.WithMatchMode(mode),
	}, nil
}
