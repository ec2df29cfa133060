package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"prism-board/changefeed"
	"prism-board/config"
	"prism-board/notifier"
	"prism-board/storage"
)

func main() {
	if config.EnvBool("DEBUG") {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.StandardLogger()
	logger.Info("notifier service starting")

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

	queue, err := changefeed.NewAzureQueue(env["STORAGE_CONNECTION_STRING"], env["NOTIFICATION_EVENTS_QUEUE"])
	if err != nil {
		log.Fatalf("queue: %v", err)
	}
	table, err := storage.NewNotificationTable(env["STORAGE_CONNECTION_STRING"], env["NOTIFICATIONS_TABLE"])
	if err != nil {
		log.Fatalf("notifications table: %v", err)
	}
	sink := storage.NewNotificationStore(table)

	workerCfg, err := workerConfig()
	if err != nil {
		log.Fatal(err)
	}
	sweepInterval, err := config.EnvDur("DUE_SWEEP_INTERVAL", 5*time.Minute)
	if err != nil {
		log.Fatal(err)
	}
	dueWindow, err := config.EnvDur("DUE_SOON_WINDOW", 24*time.Hour)
	if err != nil {
		log.Fatal(err)
	}
	dueTTL, err := config.EnvDur("DUE_DEDUPE_TTL", 7*24*time.Hour)
	if err != nil {
		log.Fatal(err)
	}

	worker := notifier.NewWorker(queue, notifier.NewProcessor(store, sink, logger), workerCfg, logger)
	sweeper := notifier.NewDueSweeper(store, sink, rc, dueWindow, dueTTL, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(gctx) })
	g.Go(func() error { return sweeper.Run(gctx, sweepInterval) })
	if err := g.Wait(); err != nil {
		logger.WithError(err).Error("notifier stopped")
		return
	}
	logger.Info("notifier service stopped")
}

func workerConfig() (notifier.WorkerConfig, error) {
	cfg := notifier.DefaultWorkerConfig()
	var err error
	if cfg.Batch, err = config.EnvInt("NOTIFIER_BATCH", cfg.Batch); err != nil {
		return cfg, err
	}
	if cfg.Visibility, err = config.EnvDur("NOTIFIER_VISIBILITY", cfg.Visibility); err != nil {
		return cfg, err
	}
	if cfg.Idle, err = config.EnvDur("NOTIFIER_IDLE", cfg.Idle); err != nil {
		return cfg, err
	}
	maxDequeues, err := config.EnvInt("NOTIFIER_MAX_DEQUEUES", int(cfg.MaxDequeues))
	if err != nil {
		return cfg, err
	}
	cfg.MaxDequeues = int64(maxDequeues)
	return cfg, nil
}
