package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"prism-board/api"
	"prism-board/board"
	"prism-board/changefeed"
	"prism-board/config"
	"prism-board/storage"
)

func main() {
	debug := config.EnvBool("DEBUG")
	if debug {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.StandardLogger()

	env, err := config.Require("DATABASE_PATH", "REDIS_CONNECTION_STRING", "STORAGE_CONNECTION_STRING",
		"NOTIFICATIONS_TABLE", "NOTIFICATION_EVENTS_QUEUE")
	if err != nil {
		log.Fatal(err)
	}

	db, err := storage.Open(env["DATABASE_PATH"])
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	store := storage.NewStore(db)

	rc := redis.NewClient(config.RedisOptions(env["REDIS_CONNECTION_STRING"]))
	defer rc.Close()

	snapshotTTL, err := config.EnvDur("SNAPSHOT_CACHE_TTL", 10*time.Minute)
	if err != nil {
		log.Fatal(err)
	}
	dedupeTTL, err := config.EnvDur("DEDUPER_TTL", 24*time.Hour)
	if err != nil {
		log.Fatal(err)
	}
	senderCfg, err := senderConfig()
	if err != nil {
		log.Fatal(err)
	}

	queue, err := changefeed.NewAzureQueue(env["STORAGE_CONNECTION_STRING"], env["NOTIFICATION_EVENTS_QUEUE"])
	if err != nil {
		log.Fatalf("queue: %v", err)
	}
	sender := changefeed.NewEventSender(queue, senderCfg, logger)
	defer sender.Close()
	feed := changefeed.NewFeed(rc, config.EnvString("BOARD_CHANGES_CHANNEL", changefeed.DefaultChannel), sender, logger)

	table, err := storage.NewNotificationTable(env["STORAGE_CONNECTION_STRING"], env["NOTIFICATIONS_TABLE"])
	if err != nil {
		log.Fatalf("notifications table: %v", err)
	}

	svc := board.NewService(store, storage.NewSnapshotCache(store, rc, snapshotTTL), feed, logger,
		board.WithNotifications(storage.NewNotificationStore(table)))

	auth, err := api.NewAuthFromEnv()
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, "Idempotency-Key"},
	}))
	e.Use(api.GzipRequestMiddleware(64 * 1024))
	if debug {
		pprof.Register(e)
	}
	api.Register(e, svc, auth, api.NewRedisDeduper(rc, dedupeTTL), logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		addr := ":" + config.EnvString("API_PORT", "8080")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("server shutdown")
	}
}

func senderConfig() (changefeed.SenderConfig, error) {
	cfg := changefeed.DefaultSenderConfig()
	var err error
	if cfg.Workers, err = config.EnvInt("EVENT_SENDER_WORKERS", cfg.Workers); err != nil {
		return cfg, err
	}
	if cfg.Buffer, err = config.EnvInt("EVENT_SENDER_BUFFER", cfg.Buffer); err != nil {
		return cfg, err
	}
	if cfg.EnqueueTimeout, err = config.EnvDur("EVENT_SENDER_TIMEOUT", cfg.EnqueueTimeout); err != nil {
		return cfg, err
	}
	if cfg.HandoffTimeout, err = config.EnvDur("EVENT_SENDER_HANDOFF_TIMEOUT", cfg.HandoffTimeout); err != nil {
		return cfg, err
	}
	return cfg, nil
}
