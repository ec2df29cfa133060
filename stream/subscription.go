package stream

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"prism-board/changefeed"
)

var errChannelClosed = errors.New("pubsub channel closed")

// Subscribe listens on the change channel and notifies the hub of every board that
// changed. It reconnects after retry when the subscription drops and returns when
// ctx is done.
func Subscribe(ctx context.Context, logger *log.Logger, rc *redis.Client, channel string, hub *Hub, retry time.Duration) {
	for {
		err := listen(ctx, logger, rc, channel, hub)
		if ctx.Err() != nil {
			return
		}
		logger.WithError(err).WithField("channel", channel).Error("change stream interrupted, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(retry):
		}
	}
}

func listen(ctx context.Context, logger *log.Logger, rc *redis.Client, channel string, hub *Hub) error {
	sub := rc.Subscribe(ctx, channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errChannelClosed
			}
			ev, err := changefeed.Decode([]byte(msg.Payload))
			if err != nil {
				logger.WithError(err).Warn("unable to parse change event")
				continue
			}
			n := hub.Notify(ev.BoardID)
			logger.WithFields(log.Fields{
				"boardId":     ev.BoardID,
				"table":       ev.Table,
				"subscribers": n,
			}).Debug("board changed")
		}
	}
}
