// Package notifier turns board change events into per-user notifications.
package notifier

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	log "github.com/sirupsen/logrus"

	"prism-board/domain"
)

// Cards reads the card state a notification describes.
type Cards interface {
	GetCard(ctx context.Context, cardID string) (domain.Card, error)
	CardMembers(ctx context.Context, cardID string) ([]string, error)
}

// Sink stores notifications.
type Sink interface {
	Add(ctx context.Context, n domain.Notification) (domain.Notification, error)
}

// Processor creates the notifications a single change event implies.
type Processor struct {
	cards Cards
	sink  Sink
	log   *log.Logger
}

// NewProcessor creates a Processor.
func NewProcessor(cards Cards, sink Sink, logger *log.Logger) *Processor {
	return &Processor{cards: cards, sink: sink, log: logger}
}

// Handle stores the notifications for ev and returns how many were created. Events
// that notify nobody return zero. Events about cards deleted since are dropped.
func (p *Processor) Handle(ctx context.Context, ev domain.ChangeEvent) (int, error) {
	if !ev.Notifiable() {
		return 0, nil
	}
	switch ev.Table {
	case domain.TableCardMembers:
		var data domain.MemberAssignedData
		if err := sonic.Unmarshal(ev.Data, &data); err != nil {
			return 0, fmt.Errorf("decode member assignment: %w", err)
		}
		if data.UserID == "" || data.UserID == ev.ActorID {
			return 0, nil
		}
		return p.notify(ctx, ev, data.CardID, domain.NotificationMemberAssigned, []string{data.UserID},
			func(title string) string { return fmt.Sprintf("You were assigned to %q", title) })
	case domain.TableComments:
		var data domain.CommentAddedData
		if err := sonic.Unmarshal(ev.Data, &data); err != nil {
			return 0, fmt.Errorf("decode comment: %w", err)
		}
		members, err := p.cards.CardMembers(ctx, data.CardID)
		if err != nil {
			return 0, err
		}
		recipients := members[:0:0]
		for _, m := range members {
			if m != ev.ActorID {
				recipients = append(recipients, m)
			}
		}
		return p.notify(ctx, ev, data.CardID, domain.NotificationCommentAdded, recipients,
			func(title string) string { return fmt.Sprintf("New comment on %q", title) })
	}
	return 0, nil
}

func (p *Processor) notify(ctx context.Context, ev domain.ChangeEvent, cardID, typ string, recipients []string, message func(string) string) (int, error) {
	if len(recipients) == 0 {
		return 0, nil
	}
	card, err := p.cards.GetCard(ctx, cardID)
	if errors.Is(err, domain.ErrNotFound) {
		p.log.WithFields(log.Fields{"cardId": cardID, "type": typ}).Debug("card gone, skipping notification")
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	created := 0
	for _, userID := range recipients {
		_, err := p.sink.Add(ctx, domain.Notification{
			UserID:  userID,
			Type:    typ,
			CardID:  cardID,
			BoardID: ev.BoardID,
			Message: message(card.Title),
		})
		if err != nil {
			return created, fmt.Errorf("notify %s: %w", userID, err)
		}
		created++
	}
	return created, nil
}
