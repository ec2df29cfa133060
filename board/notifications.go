package board

import (
	"context"
	"errors"

	"prism-board/domain"
)

var errNotificationsDisabled = errors.New("notifications are not configured")

// Notifications returns the user's latest notifications, newest first.
func (s *Service) Notifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	if s.notifications == nil {
		return nil, errNotificationsDisabled
	}
	return s.notifications.Latest(ctx, userID, NotificationLimit)
}

// MarkNotificationRead marks one of the user's notifications as read.
func (s *Service) MarkNotificationRead(ctx context.Context, userID, id string) error {
	if s.notifications == nil {
		return errNotificationsDisabled
	}
	return s.notifications.MarkRead(ctx, userID, id)
}

// MarkAllNotificationsRead marks every notification of the user as read.
func (s *Service) MarkAllNotificationsRead(ctx context.Context, userID string) (int, error) {
	if s.notifications == nil {
		return 0, errNotificationsDisabled
	}
	return s.notifications.MarkAllRead(ctx, userID)
}
