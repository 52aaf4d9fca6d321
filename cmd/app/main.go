package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"UD_contest_bot/internal/api"
	"UD_contest_bot/internal/flow"
	"UD_contest_bot/internal/metrics"
	"UD_contest_bot/internal/middleware"
	"UD_contest_bot/internal/repository"
	"UD_contest_bot/internal/service"
	"UD_contest_bot/internal/session"
	"UD_contest_bot/internal/telegram"
	"UD_contest_bot/pkg/auth"
	"UD_contest_bot/pkg/logger"
	"UD_contest_bot/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg); err != nil {
		logger.Logger().Fatal("Application stopped with error", zap.Error(err))
	}
}

func run(cfg *Config) error {
	zapLogger := logger.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize repository: %w", err)
	}
	defer repo.Close()

	checks := map[string]api.HealthCheck{"postgres": repo.Ping}

	redisClient, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize redis: %w", err)
	}

	var sessions session.Store
	if redisClient != nil {
		defer redisClient.Close()
		checks["redis"] = redisClient.Health
		sessions = session.NewRedisStore(redisClient.Client, cfg.Flow.SessionTTL)
		zapLogger.Info("Keeping registration sessions in redis")
	} else {
		sessions = session.NewMemoryStore(cfg.Flow.SessionTTL)
		zapLogger.Info("Keeping registration sessions in memory")
	}

	m := metrics.New(prometheus.DefaultRegisterer)

	botAPI, err := telegram.NewAPI(cfg.Telegram)
	if err != nil {
		return err
	}
	zapLogger.Info("Authorized on bot account", zap.String("username", botAPI.Self.UserName))

	services := service.NewService(
		service.NewRegistrationService(repo, repo, repo),
		service.NewSubscriptionService(repo, telegram.NewChannelChecker(botAPI)),
		service.NewUserService(repo, repo),
	)

	feed := api.NewFeed(m)

	controller := flow.New(services, services, services, sessions,
		flow.WithNotifier(telegram.NewNotifier(botAPI)),
		flow.WithPublisher(feed),
		flow.WithMetrics(m),
		flow.WithRegions(cfg.Flow.Regions),
		flow.WithLogger(logger.Named("flow")),
	)
	bot := telegram.NewBot(cfg.Telegram, botAPI, controller, m, logger.Named("bot"))

	telegramAuth := auth.NewTelegramAuth(cfg.Telegram.BotToken, cfg.DebugAuth)
	authz := middleware.NewAuthorization(cfg.Admins)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
	}
	corsConfig.AllowHeaders = []string{"*"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour

	router.Use(cors.New(corsConfig))

	api.NewHealthRoutes(router, checks, prometheus.DefaultGatherer)

	a := router.Group("/api/v1")
	api.NewUserRoutes(a, services, telegramAuth, authz, botAPI.Self.UserName)
	api.NewFeedRoutes(a, feed, telegramAuth.TelegramAuthMiddleware(), authz.AdminOnly())

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		zapLogger.Info("Starting bot update loop")
		return bot.Run(gctx)
	})

	g.Go(func() error {
		zapLogger.Info("Starting server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zapLogger.Info("Shutting down")
		feed.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
