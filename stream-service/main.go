package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"prism-board/api"
	"prism-board/board"
	"prism-board/changefeed"
	"prism-board/config"
	"prism-board/storage"
	"prism-board/stream"
)

func main() {
	if config.EnvBool("DEBUG") {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.StandardLogger()

	env, err := config.Require("DATABASE_PATH", "REDIS_CONNECTION_STRING")
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
	keepAlive, err := config.EnvDur("STREAM_KEEPALIVE", 15*time.Second)
	if err != nil {
		log.Fatal(err)
	}

	// Read-only: the stream service never writes, so it publishes nothing.
	boards := board.NewService(store, storage.NewSnapshotCache(store, rc, snapshotTTL), nil, logger)

	auth, err := api.NewAuthFromEnv()
	if err != nil {
		log.Fatalf("auth: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	hub := stream.NewHub()
	channel := config.EnvString("BOARD_CHANGES_CHANNEL", changefeed.DefaultChannel)
	go stream.Subscribe(ctx, logger, rc, channel, hub, time.Second)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	stream.Register(e, boards, auth, hub, logger, keepAlive)

	go func() {
		addr := ":" + config.EnvString("STREAM_SERVICE_PORT", "9000")
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
