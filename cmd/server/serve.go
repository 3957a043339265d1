package main

import (
	"context"
	"errors"
	"fmt"

	goRedis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	apiGraphQL "github.com/fastygo/taskhub/api/graphql"
	apiHandler "github.com/fastygo/taskhub/api/handler"
	"github.com/fastygo/taskhub/internal/config"
	"github.com/fastygo/taskhub/internal/infrastructure/metrics"
	"github.com/fastygo/taskhub/internal/infrastructure/monitor"
	redisInfra "github.com/fastygo/taskhub/internal/infrastructure/redis"
	"github.com/fastygo/taskhub/internal/middleware"
	"github.com/fastygo/taskhub/internal/router"
	"github.com/fastygo/taskhub/internal/security"
	"github.com/fastygo/taskhub/internal/services/lifecycle"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	"github.com/fastygo/taskhub/usecase"
	authUC "github.com/fastygo/taskhub/usecase/auth"
	"github.com/fastygo/taskhub/usecase/bootstrap"
	taskUC "github.com/fastygo/taskhub/usecase/task"
	userUC "github.com/fastygo/taskhub/usecase/user"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadRuntime()
		if err != nil {
			return err
		}
		defer logger.Sync()
		return serve(cmd.Context(), cfg, logger)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	manager := lifecycle.New(cfg.Context.ShutdownTimeout, logger)
	appMetrics := metrics.New()

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	manager.Register("storage", store.close)

	checks := []monitor.Check{store.check}
	redisClient, err := redisInfra.NewClient(ctx, cfg.Redis, logger)
	switch {
	case errors.Is(err, redisInfra.ErrDisabled):
		logger.Info("redis disabled, rate limiter uses process memory")
	case err != nil:
		_ = manager.Shutdown(ctx)
		return fmt.Errorf("redis connection failed: %w", err)
	default:
		checks = append(checks, monitor.Check{Name: "redis", Ping: redisInfra.Ping(redisClient)})
		manager.Register("redis", func(context.Context) error { return redisClient.Close() })
	}

	mon, err := monitor.New(cfg.Monitor.Schedule, logger, checks...)
	if err != nil {
		_ = manager.Shutdown(ctx)
		return fmt.Errorf("monitor schedule: %w", err)
	}
	mon.Start()
	manager.Register("monitor", mon.Stop)

	hasher := security.NewBcryptHasher(bcrypt.DefaultCost)
	codec := security.NewTokenCodec(cfg.JWTSecret(), cfg.JWT.TTL, logger,
		security.WithIssuer(cfg.JWT.Issuer),
		security.WithFailureHook(func(reason security.FailureReason) {
			appMetrics.TokenRejected(string(reason))
		}),
	)
	denials := usecase.WithDenialRecorder(appMetrics)

	seeder := bootstrap.New(store.users, store.tasks, hasher, logger)
	if err := seeder.Seed(ctx, seedOptions(cfg)); err != nil {
		_ = manager.Shutdown(ctx)
		return fmt.Errorf("seed: %w", err)
	}

	authService := authUC.New(store.users, hasher, codec, logger, denials)
	userService := userUC.New(store.users, hasher, logger, denials)
	taskService := taskUC.New(store.tasks, cfg.Tasks.AdminOverride, logger, denials)

	schema, err := apiGraphQL.NewSchema(authService, userService, taskService)
	if err != nil {
		_ = manager.Shutdown(ctx)
		return fmt.Errorf("graphql schema: %w", err)
	}

	limiter, err := newRateLimiter(cfg, redisClient, appMetrics, logger)
	if err != nil {
		_ = manager.Shutdown(ctx)
		return err
	}

	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)
	handlers := router.Handlers{
		Auth:    apiHandler.NewAuthHandler(authService, ctxAdapter, logger),
		User:    apiHandler.NewUserHandler(userService, ctxAdapter, logger),
		Task:    apiHandler.NewTaskHandler(taskService, ctxAdapter, logger),
		Health:  apiHandler.NewHealthHandler(mon, ctxAdapter, logger),
		GraphQL: apiGraphQL.NewHandler(schema, ctxAdapter, logger),
	}
	if cfg.HTTP.EnableMetrics {
		handlers.Metrics = appMetrics.Handler()
	}

	r := router.New(handlers, router.Middlewares{
		Auth:         middleware.JWTAuth(codec, store.users, logger),
		OptionalAuth: middleware.OptionalAuth(codec, store.users, logger),
		RateLimit:    limiter,
	})

	handler := r.Handler
	if cfg.HTTP.EnableMetrics {
		handler = appMetrics.Middleware(handler)
	}

	server := &fasthttp.Server{
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
		Concurrency:  cfg.HTTP.MaxConn,
		Name:         cfg.AppName,
	}

	manager.Go("http_server", func() error {
		logger.Info("server started",
			zap.String("address", cfg.Address()),
			zap.String("storage", cfg.Storage.Driver),
		)
		return server.ListenAndServe(cfg.Address())
	})
	manager.Register("http_server", server.ShutdownWithContext)

	return manager.Wait(ctx)
}

func newRateLimiter(cfg *config.Config, client *goRedis.Client, recorder middleware.RateLimitRecorder, logger *zap.Logger) (*middleware.RateLimiter, error) {
	if !cfg.RateLimit.Enabled {
		return nil, nil
	}
	store, err := middleware.NewLimiterStore(client, cfg.RateLimit.Prefix)
	if err != nil {
		return nil, fmt.Errorf("rate limiter store: %w", err)
	}
	return middleware.NewRateLimiter(store, int64(cfg.RateLimit.SignInPerMinute), recorder, logger), nil
}
