package main

import (
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"prism-board/board"
	"prism-board/changefeed"
	"prism-board/config"
	"prism-board/storage"
)

// rootOptions holds the flags shared by every command.
type rootOptions struct {
	DB          string
	Redis       string
	Channel     string
	SnapshotTTL time.Duration
	Verbose     bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "boardctl",
		Short:         "Operate prism boards",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log.SetOutput(cmd.ErrOrStderr())
			if opts.Verbose {
				log.SetLevel(log.DebugLevel)
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.DB, "db", config.EnvString("DATABASE_PATH", "data/prism.db"), "SQLite database path")
	pf.StringVar(&opts.Redis, "redis", os.Getenv("REDIS_CONNECTION_STRING"), "Redis connection string; when set, changes evict cached boards and reach live streams")
	pf.StringVar(&opts.Channel, "channel", config.EnvString("BOARD_CHANGES_CHANNEL", changefeed.DefaultChannel), "Redis change channel")
	pf.DurationVar(&opts.SnapshotTTL, "snapshot-ttl", 10*time.Minute, "board snapshot cache TTL")
	pf.BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newCompactCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newAdminCommand(opts))
	cmd.AddCommand(newTokenCommand())

	return cmd
}

// backend is an opened database plus the service running on top of it.
type backend struct {
	svc   *board.Service
	store *storage.Store
	db    *storage.DB
	rc    *redis.Client
}

func (o *rootOptions) open() (*backend, error) {
	db, err := storage.Open(o.DB)
	if err != nil {
		return nil, err
	}
	b := &backend{db: db, store: storage.NewStore(db)}

	var (
		snapshots board.Snapshots
		publisher board.Publisher
	)
	if o.Redis != "" {
		b.rc = redis.NewClient(config.RedisOptions(o.Redis))
		snapshots = storage.NewSnapshotCache(b.store, b.rc, o.SnapshotTTL)
		publisher = changefeed.NewFeed(b.rc, o.Channel, nil, log.StandardLogger())
	}
	b.svc = board.NewService(b.store, snapshots, publisher, log.StandardLogger())
	return b, nil
}

func (b *backend) Close() {
	if b.rc != nil {
		if err := b.rc.Close(); err != nil {
			log.WithError(err).Warn("close redis")
		}
	}
	if err := b.db.Close(); err != nil {
		log.WithError(err).Warn("close database")
	}
}
