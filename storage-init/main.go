package main

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"prism-board/changefeed"
	"prism-board/config"
	"prism-board/storage"
)

func main() {
	if config.EnvBool("DEBUG") {
		log.SetLevel(log.DebugLevel)
	}
	log.Info("storage init starting")

	env, err := config.Require("STORAGE_CONNECTION_STRING", "NOTIFICATIONS_TABLE", "NOTIFICATION_EVENTS_QUEUE", "DATABASE_PATH")
	if err != nil {
		log.Fatal(err)
	}
	connStr := env["STORAGE_CONNECTION_STRING"]

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	table, err := storage.NewNotificationTable(connStr, env["NOTIFICATIONS_TABLE"])
	if err != nil {
		log.Fatalf("table client: %v", err)
	}
	if err := storage.CreateNotificationTable(ctx, table); err != nil {
		log.Fatalf("create table %s: %v", env["NOTIFICATIONS_TABLE"], err)
	}

	queue, err := changefeed.NewAzureQueue(connStr, env["NOTIFICATION_EVENTS_QUEUE"])
	if err != nil {
		log.Fatalf("queue client: %v", err)
	}
	if err := queue.Create(ctx); err != nil {
		log.Fatalf("create queue %s: %v", env["NOTIFICATION_EVENTS_QUEUE"], err)
	}

	db, err := storage.Open(env["DATABASE_PATH"])
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	if err := db.Close(); err != nil {
		log.Warnf("close database: %v", err)
	}

	log.WithField("database", env["DATABASE_PATH"]).Info("storage init complete")
}
