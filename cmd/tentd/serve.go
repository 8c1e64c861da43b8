package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/tentd/tentd/client"
	"github.com/tentd/tentd/internal/config"
	"github.com/tentd/tentd/internal/infra/database"
	"github.com/tentd/tentd/internal/infra/repository"
	"github.com/tentd/tentd/internal/present/rest"
	"github.com/tentd/tentd/internal/present/rest/middleware"
	"github.com/tentd/tentd/internal/service"
	"github.com/tentd/tentd/internal/usecase"
)

func serveCmd() *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return err
			}
			if debug {
				cfg.Server.Debug = true
			}
			return serve(cfg)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func serve(cfg config.Config) error {
	if cfg.Server.Debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	if cfg.Server.EnableTrace {
		cleanup, err := setupTraceProvider(cfg.Server.TraceEndpoint)
		if err != nil {
			return err
		}
		defer cleanup()
	}

	db, err := database.Open(cfg.Database.Driver, cfg.Database.Dsn)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	var rdb *redis.Client
	var signal *service.SignalService
	if cfg.Redis.Addr != "" {
		rdb = database.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		signal = service.NewSignalService(rdb)
	}

	var mc *memcache.Client
	if cfg.Cache.MemcachedAddr != "" {
		mc = database.NewMemcached(cfg.Cache.MemcachedAddr)
	}
	profileRepo := repository.NewProfileRepository(db, mc)

	entityRepo := repository.NewEntityRepository(db)
	followerRepo := repository.NewFollowerRepository(db)
	followingRepo := repository.NewFollowingRepository(db)
	postRepo := repository.NewPostRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	tentClient := client.New(client.WithTimeout(cfg.Server.RemoteTimeout()))
	notifier := service.NewNotifierService(
		tentClient,
		followerRepo,
		signal,
		cfg.Server.FanoutWorkers,
		cfg.Server.RemoteTimeout(),
	)

	entityUC := usecase.NewEntityUsecase(entityRepo, profileRepo, cfg.Server.PublicURL)
	profileUC := usecase.NewProfileUsecase(profileRepo)
	followUC := usecase.NewFollowUsecase(followerRepo, followingRepo, tentClient, tentClient)
	postUC := usecase.NewPostUsecase(postRepo, profileUC, notifier)
	groupUC := usecase.NewGroupUsecase(groupRepo)
	notificationUC := usecase.NewNotificationUsecase(notificationRepo)

	auth := service.NewAuthService(followerRepo, rdb)

	handler := rest.NewHandler(
		entityUC,
		profileUC,
		followUC,
		postUC,
		groupUC,
		notificationUC,
		signal,
		cfg.Server.SingleUser,
	)

	e := echo.New()
	e.HideBanner = true
	if cfg.Server.EnableTrace {
		e.Use(otelecho.Middleware("tentd"))
	}
	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	handler.RegisterRoutes(
		e,
		middleware.NewEntityMiddleware(entityUC, cfg.Server.SingleUser),
		middleware.NewAuthMiddleware(auth),
	)

	return e.Start(cfg.Server.Listen)
}

func setupTraceProvider(endpoint string) (func(), error) {
	exporter, err := otlptracehttp.New(
		context.Background(),
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(provider)

	return func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			slog.Error("failed to shut down trace provider", "error", err)
		}
	}, nil
}
