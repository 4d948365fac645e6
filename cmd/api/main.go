package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fieldops-io/assettrack-backend/api/routes"
	"github.com/fieldops-io/assettrack-backend/internal/archive"
	"github.com/fieldops-io/assettrack-backend/internal/assets"
	"github.com/fieldops-io/assettrack-backend/internal/audits"
	"github.com/fieldops-io/assettrack-backend/internal/auth"
	"github.com/fieldops-io/assettrack-backend/internal/history"
	"github.com/fieldops-io/assettrack-backend/internal/jobs"
	"github.com/fieldops-io/assettrack-backend/internal/users"
	"github.com/fieldops-io/assettrack-backend/pkg/auth/session"
	"github.com/fieldops-io/assettrack-backend/pkg/config"
	"github.com/fieldops-io/assettrack-backend/pkg/db"
	"github.com/fieldops-io/assettrack-backend/pkg/logger"
	"github.com/fieldops-io/assettrack-backend/pkg/migrate"
	"github.com/fieldops-io/assettrack-backend/pkg/outbox"
	"github.com/fieldops-io/assettrack-backend/pkg/redis"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("bootstrap database: %w", err)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return fmt.Errorf("dev migrations: %w", err)
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return fmt.Errorf("bootstrap redis: %w", err)
	}
	defer redisClient.Close()

	router, err := buildRouter(cfg, logg, dbClient, redisClient)
	if err != nil {
		return err
	}

	addr := listenAddr(cfg)
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instanceID(),
	})
	logg.Info(ctx, "starting api server")

	return serve(ctx, logg, &http.Server{Addr: addr, Handler: router})
}

// buildRouter wires every domain service onto the HTTP router. Construction
// order matters only where services share a repository.
func buildRouter(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (http.Handler, error) {
	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return nil, fmt.Errorf("create session manager: %w", err)
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(dbClient.DB()),
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		return nil, fmt.Errorf("create auth service: %w", err)
	}

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create register service: %w", err)
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	historyService, err := history.NewService(history.NewRepository(dbClient.DB()))
	if err != nil {
		return nil, fmt.Errorf("create history service: %w", err)
	}

	assetRepo := assets.NewRepository(dbClient.DB())
	assetService, err := assets.NewService(assetRepo, dbClient, historyService)
	if err != nil {
		return nil, fmt.Errorf("create asset service: %w", err)
	}

	jobService, err := jobs.NewService(jobs.ServiceParams{
		Repo:    jobs.NewRepository(dbClient.DB()),
		Assets:  assetRepo,
		History: historyService,
		Tx:      dbClient,
		Outbox:  outboxService,
	})
	if err != nil {
		return nil, fmt.Errorf("create job service: %w", err)
	}

	auditRepo := audits.NewRepository(dbClient.DB())
	auditService, err := audits.NewService(audits.ServiceParams{
		Repo:   auditRepo,
		Assets: assetRepo,
		Tx:     dbClient,
		Outbox: outboxService,
		Logger: logg,
	})
	if err != nil {
		return nil, fmt.Errorf("create audit service: %w", err)
	}

	archiveService, err := archive.NewService(archive.ServiceParams{
		Repo:   archive.NewRepository(dbClient.DB()),
		Audits: auditRepo,
		Assets: assetRepo,
		Tx:     dbClient,
		Outbox: outboxService,
		Logger: logg,
	})
	if err != nil {
		return nil, fmt.Errorf("create archive service: %w", err)
	}

	router := routes.NewRouter(routes.RouterParams{
		Config:         cfg,
		Logger:         logg,
		DBPinger:       dbClient,
		RedisClient:    redisClient,
		SessionChecker: sessionManager,
		AuthService:    authService,
		Register:       registerService,
		Assets:         assetService,
		History:        historyService,
		Jobs:           jobService,
		Audits:         auditService,
		Archive:        archiveService,
	})
	return router, nil
}

// serve blocks until the listener fails or a termination signal arrives,
// then drains in-flight requests within the shutdown grace period.
func serve(ctx context.Context, logg *logger.Logger, server *http.Server) error {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-stop:
		logg.Info(ctx, "shutting down on signal "+sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		logg.Info(ctx, "api server shut down cleanly")
		return nil
	}
}

// listenAddr prefers the platform-injected PORT over the configured one.
func listenAddr(cfg *config.Config) string {
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	return ":" + port
}

func instanceID() string {
	if id := os.Getenv("DYNO"); id != "" {
		return id
	}
	return "local"
}
