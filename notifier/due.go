package notifier

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"prism-board/domain"
	"prism-board/storage"
)

const dueKeyPrefix = "due"

// DueCards lists cards due in a time window.
type DueCards interface {
	CardsDueBetween(ctx context.Context, from, to time.Time) ([]storage.DueCard, error)
}

// DueSweeper notifies card members once about cards whose due date is near.
type DueSweeper struct {
	cards  DueCards
	sink   Sink
	redis  *redis.Client
	window time.Duration
	ttl    time.Duration
	now    func() time.Time
	log    *log.Logger
}

// NewDueSweeper creates a sweeper. window is how far ahead a due date counts as
// soon; ttl bounds how long a sent reminder is remembered.
func NewDueSweeper(cards DueCards, sink Sink, rc *redis.Client, window, ttl time.Duration, logger *log.Logger) *DueSweeper {
	return &DueSweeper{cards: cards, sink: sink, redis: rc, window: window, ttl: ttl, now: time.Now, log: logger}
}

// Run sweeps every interval until ctx is done.
func (s *DueSweeper) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if n, err := s.Sweep(ctx); err != nil {
			s.log.WithError(err).Error("due-soon sweep")
		} else if n > 0 {
			s.log.WithField("created", n).Info("due-soon notifications sent")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// Sweep notifies members of cards due within the window and returns how many
// notifications were created. A reminder for the same card, member and due date is
// sent once.
func (s *DueSweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now().UTC()
	due, err := s.cards.CardsDueBetween(ctx, now, now.Add(s.window))
	if err != nil {
		return 0, err
	}
	created := 0
	for _, dc := range due {
		for _, userID := range dc.MemberIDs {
			key := dueKey(dc.Card.ID, userID, *dc.Card.DueDate)
			fresh, err := s.redis.SetNX(ctx, key, 1, s.ttl).Result()
			if err != nil {
				return created, fmt.Errorf("due-soon dedupe: %w", err)
			}
			if !fresh {
				continue
			}
			_, err = s.sink.Add(ctx, domain.Notification{
				UserID:  userID,
				Type:    domain.NotificationDueSoon,
				CardID:  dc.Card.ID,
				BoardID: dc.BoardID,
				Message: fmt.Sprintf("%q is due %s", dc.Card.Title, dc.Card.DueDate.UTC().Format(time.RFC1123)),
			})
			if err != nil {
				if derr := s.redis.Del(context.WithoutCancel(ctx), key).Err(); derr != nil {
					s.log.WithError(derr).WithField("key", key).Warn("release due-soon key")
				}
				return created, fmt.Errorf("notify %s: %w", userID, err)
			}
			created++
		}
	}
	return created, nil
}

func dueKey(cardID, userID string, due time.Time) string {
	return dueKeyPrefix + ":" + cardID + ":" + userID + ":" + strconv.FormatInt(due.Unix(), 10)
}
