package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/eservice/internal/api/http"
	"github.com/spec-kit/eservice/internal/api/http/handlers"
	"github.com/spec-kit/eservice/internal/auth"
	"github.com/spec-kit/eservice/internal/cache"
	"github.com/spec-kit/eservice/internal/config"
	"github.com/spec-kit/eservice/internal/events"
	"github.com/spec-kit/eservice/internal/observability"
	"github.com/spec-kit/eservice/internal/persistence"
	"github.com/spec-kit/eservice/internal/repository"
	"github.com/spec-kit/eservice/internal/service"
	"github.com/spec-kit/eservice/internal/ticketnumber"
	"github.com/spec-kit/eservice/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "eservice",
		Short:         "eService ticket platform API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newMigrateCmd(), newTokenCmd(), newHashAPIKeyCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newMigrateCmd() *cobra.Command {
	migrate := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	migrate.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withLogger(func(cfg *config.Config, logger *zap.Logger) error {
					return persistence.MigrateUp(cfg.Postgres.DSN, logger)
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the most recent migration",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withLogger(func(cfg *config.Config, logger *zap.Logger) error {
					return persistence.MigrateDown(cfg.Postgres.DSN, logger)
				})
			},
		},
	)
	return migrate
}

func newTokenCmd() *cobra.Command {
	var subject string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed access token",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
			token, expires, err := tokens.GenerateToken(subject)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires at %s\n", expires.Format(time.RFC3339))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject id carried by the token (required)")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newHashAPIKeyCmd() *cobra.Command {
	var cost int
	cmd := &cobra.Command{
		Use:   "hash-api-key <key>",
		Short: "Print the bcrypt hash to use as AUTH_API_KEY_HASH",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := auth.HashAPIKey(args[0], cost)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), hash)
			return nil
		},
	}
	cmd.Flags().IntVar(&cost, "cost", 0, "bcrypt cost (0 uses the library default)")
	return cmd
}

func withLogger(fn func(cfg *config.Config, logger *zap.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	return fn(cfg, logger)
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	return withLogger(func(cfg *config.Config, logger *zap.Logger) error {
		ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		shutdownTracing := observability.SetupTracing(ctx, cfg.Telemetry, cfg.App, logger)
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := shutdownTracing(flushCtx); err != nil {
				logger.Warn("tracer shutdown", zap.Error(err))
			}
		}()

		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer pg.Close()

		if pg.Enabled() && cfg.Postgres.RunMigrations {
			if err := persistence.MigrateUp(cfg.Postgres.DSN, logger); err != nil {
				return fmt.Errorf("run migrations: %w", err)
			}
		}

		rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
		defer rdb.Close()

		metrics := observability.NewMetrics()

		var (
			ticketRepo repository.TicketRepository
			auditRepo  repository.AuditRepository
			counter    ticketnumber.CounterStore
		)
		if pg.Enabled() {
			pool := pg.PoolHandle()
			ticketRepo = repository.NewTicketRepository(pool)
			auditRepo = repository.NewAuditRepository(pool)
			counter = repository.NewPostgresCounter(pool)
		} else {
			logger.Warn("using in-memory ticket store; data is lost on restart")
			ticketRepo = repository.NewMemoryTicketRepository()
			auditRepo = repository.NewMemoryAuditRepository()
			counter = ticketnumber.NewMemoryCounter(0)
		}

		var ticketCache cache.Cache = cache.Noop{}
		if cfg.Cache.Enabled && rdb.Enabled() {
			ticketCache = cache.NewRedisCache(rdb.Client, cache.RedisOptions{
				KeyPrefix:  cfg.Cache.KeyPrefix,
				DefaultTTL: cfg.Cache.TTL(),
				OpTimeout:  cfg.Redis.Timeout(),
				Observer:   metrics,
			})
		}

		dispatcher := events.NewInMemoryDispatcher()
		deps := service.TicketDependencies{
			TicketRepo: ticketRepo,
			Numbers:    ticketnumber.NewGenerator(counter),
			Cache:      ticketCache,
			CacheTTL:   cfg.Cache.TTL(),
			Dispatcher: dispatcher,
			Logger:     logger,
			OpTimeout:  cfg.Postgres.OperationTimeout(),
		}
		ticketService := service.NewTicketService(deps)
		queryService := service.NewTicketQueryService(deps)
		auditService := service.NewAuditService(dispatcher, auditRepo, logger, cfg.Postgres.OperationTimeout())
		worker.StartAuditWorker(auditService)

		tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTL())
		if cfg.Auth.Enabled {
			logger.Info("authentication enabled")
		}

		app := fiber.New(fiber.Config{
			AppName:      cfg.App.Name,
			ErrorHandler: httptransport.ErrorHandler(logger),
		})
		httptransport.RegisterMiddlewares(app, httptransport.MiddlewareConfig{
			Logger:         logger,
			Metrics:        metrics,
			RequestTimeout: cfg.App.RequestTimeout(),
			RateLimit:      cfg.RateLimit,
			CORS:           cfg.CORS,
		})
		httptransport.RegisterRoutes(app, httptransport.RouteConfig{
			Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Dependency{
				"postgres": pg,
				"redis":    rdb,
			}, logger),
			Tickets:        handlers.NewTicketsHandler(ticketService, queryService, auditService),
			AuthMiddleware: auth.NewAuthMiddleware(cfg.Auth.Enabled, tokens, cfg.Auth.APIKeyHash),
			Metrics:        metrics,
		})

		listenErr := make(chan error, 1)
		go func() {
			logger.Info("http server starting", zap.String("addr", cfg.App.Addr()))
			listenErr <- app.Listen(cfg.App.Addr())
		}()

		select {
		case err := <-listenErr:
			return fmt.Errorf("fiber listen: %w", err)
		case <-ctx.Done():
			logger.Info("shutting down")
		}

		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
		return nil
	})
}
