// Package changefeed carries committed board changes to the realtime stream and to the
// notification queue.
package changefeed

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"prism-board/domain"
)

// DefaultChannel is the Redis channel every board change is published on.
const DefaultChannel = "board-changes"

// Feed publishes change events to Redis and forwards notifiable events to a sender.
type Feed struct {
	rc      *redis.Client
	channel string
	sender  *EventSender
	log     *log.Logger
	now     func() time.Time
}

// NewFeed creates a Feed. sender may be nil when notifications are disabled.
func NewFeed(rc *redis.Client, channel string, sender *EventSender, logger *log.Logger) *Feed {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Feed{rc: rc, channel: channel, sender: sender, log: logger, now: time.Now}
}

// Channel returns the Redis channel events are published on.
func (f *Feed) Channel() string { return f.channel }

// Publish sends ev to realtime subscribers. Notifiable events are also handed to the
// event sender; a full sender falls back to an inline enqueue.
func (f *Feed) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	if ev.Time == 0 {
		ev.Time = f.now().UnixMilli()
	}
	payload, err := sonic.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal change event: %w", err)
	}
	if f.rc != nil {
		if err := f.rc.Publish(ctx, f.channel, payload).Err(); err != nil {
			return fmt.Errorf("publish change event: %w", err)
		}
	}
	if f.sender != nil && ev.Notifiable() {
		f.sender.Send(ctx, payload)
	}
	f.log.WithFields(log.Fields{
		"boardId": ev.BoardID,
		"table":   ev.Table,
		"op":      ev.Op,
	}).Debug("board change published")
	return nil
}

// Decode parses a change event from a pub/sub or queue payload.
func Decode(payload []byte) (domain.ChangeEvent, error) {
	var ev domain.ChangeEvent
	if err := sonic.Unmarshal(payload, &ev); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("decode change event: %w", err)
	}
	if ev.BoardID == "" {
		return domain.ChangeEvent{}, fmt.Errorf("decode change event: missing boardId")
	}
	return ev, nil
}
