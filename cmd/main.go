package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"givebox/backend/internal/app"
	"givebox/backend/internal/chathub"
	"givebox/backend/internal/config"
	"givebox/backend/internal/id"
	"givebox/backend/internal/logger"
	"givebox/backend/internal/models"
	"givebox/backend/internal/push"
	"givebox/backend/internal/storage"
	"givebox/backend/internal/telegram"
	"givebox/backend/internal/telemetry"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupDependencies(ctx context.Context, cfg config.Config) (*gorm.DB, *redis.Client, error) {
	gormLevel := gormlogger.Warn
	if cfg.IsProduction() {
		gormLevel = gormlogger.Error
	}
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormLevel),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("postgres pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	if err := storage.Migrate(db); err != nil {
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	slog.InfoContext(ctx, "database connected, migrations complete")

	if cfg.RedisURL == "" {
		slog.InfoContext(ctx, "redis disabled, using in-process change feed")
		return db, nil, nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("connect redis: %w", err)
	}
	slog.InfoContext(ctx, "redis connected")
	return db, rdb, nil
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	// OTel must init before logger (logger bridges into the OTel provider).
	tel, err := telemetry.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger.Setup(cfg)
	slog.InfoContext(ctx, "givebox realtime starting", "env", cfg.Env, "otel", cfg.OTel.Enabled())

	if err := id.Init(cfg.SnowflakeID); err != nil {
		slog.ErrorContext(ctx, "failed to initialize snowflake id generator", "error", err)
		os.Exit(1)
	}

	db, rdb, err := setupDependencies(ctx, cfg)
	if err != nil {
		slog.ErrorContext(ctx, "failed to set up dependencies", "error", err)
		os.Exit(1)
	}
	if rdb != nil {
		defer rdb.Close()
	}

	var feed chathub.Feed = chathub.NewMemoryFeed()
	if rdb != nil {
		feed = chathub.NewRedisFeed(rdb)
	}

	senders := push.Router{}
	if cfg.WebPush.Enabled() {
		senders[models.PushWeb] = push.NewWebPush(cfg.WebPush)
	} else {
		slog.WarnContext(ctx, "web push disabled, VAPID keys not configured")
	}

	services := app.NewServices(app.ServicesConfig{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Feed:   feed,
		Sender: senders,
	})

	runCtx, stopBot := context.WithCancel(ctx)
	defer stopBot()

	var botUsername string
	if cfg.Telegram.Enabled() {
		bot, err := telegram.NewBotService(cfg.Telegram.BotToken, services.Store)
		if err != nil {
			slog.ErrorContext(ctx, "failed to start telegram bot", "error", err)
			os.Exit(1)
		}
		senders[models.PushTelegram] = &push.Telegram{Bot: bot.BotAPI}
		botUsername = bot.Username()
		go bot.Run(runCtx)
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           services.Router(botUsername),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.InfoContext(ctx, "http server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.ErrorContext(ctx, "http server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.InfoContext(ctx, "shutting down...")
	stopBot()

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(shutdownCtx, "http server shutdown error", "error", err)
	}
	services.Shutdown()

	if tel != nil {
		if err := tel.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}
	slog.InfoContext(shutdownCtx, "shutdown complete")
}
