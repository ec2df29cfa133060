package api

import (
	"context"

	"prism-board/board"
	"prism-board/domain"
	"prism-board/reorder"
)

// Service is the board service surface the handlers call.
type Service interface {
	UpsertProfile(ctx context.Context, userID string, req domain.ProfileRequest) (domain.Profile, error)
	ListUsers(ctx context.Context) ([]domain.Profile, error)

	ListBoards(ctx context.Context, userID string) ([]domain.Board, error)
	CreateBoard(ctx context.Context, userID string, req domain.CreateBoardRequest) (domain.Board, error)
	GetBoard(ctx context.Context, userID, boardID, member string) (domain.BoardSnapshot, error)
	DeleteBoard(ctx context.Context, userID, boardID string) error
	AddBoardMember(ctx context.Context, userID, boardID string, req domain.MemberRequest) error
	RemoveBoardMember(ctx context.Context, userID, boardID, memberID string) error
	Compact(ctx context.Context, userID, boardID string) (board.CompactResult, error)
	Calendar(ctx context.Context, userID, boardID, member string) ([]domain.CalendarEvent, error)

	CreateList(ctx context.Context, userID, boardID string, req domain.TitleRequest) (domain.List, error)
	RenameList(ctx context.Context, userID, listID string, req domain.TitleRequest) error
	DeleteList(ctx context.Context, userID, listID string) error
	MoveList(ctx context.Context, userID, boardID string, req domain.MoveListRequest) ([]reorder.Change, error)
	AddListMember(ctx context.Context, userID, listID, memberID string) error
	RemoveListMember(ctx context.Context, userID, listID, memberID string) error

	CreateCard(ctx context.Context, userID, listID string, req domain.TitleRequest) (domain.Card, error)
	GetCard(ctx context.Context, userID, cardID string) (domain.CardDetail, error)
	UpdateCard(ctx context.Context, userID, cardID string, p domain.CardPatch) (domain.Card, error)
	DeleteCard(ctx context.Context, userID, cardID string) error
	MoveCard(ctx context.Context, userID, cardID string, req domain.MoveCardRequest) ([]reorder.Change, error)
	AttachLabel(ctx context.Context, userID, cardID, labelID string) error
	DetachLabel(ctx context.Context, userID, cardID, labelID string) error
	AssignMember(ctx context.Context, userID, cardID, memberID string) error
	UnassignMember(ctx context.Context, userID, cardID, memberID string) error

	ListLabels(ctx context.Context, userID, boardID string) ([]domain.Label, error)
	CreateLabel(ctx context.Context, userID, boardID string, req domain.LabelRequest) (domain.Label, error)

	AddChecklistItem(ctx context.Context, userID, cardID string, req domain.ChecklistItemRequest) (domain.ChecklistItem, error)
	UpdateChecklistItem(ctx context.Context, userID, itemID string, p domain.ChecklistItemPatch) (domain.ChecklistItem, error)
	DeleteChecklistItem(ctx context.Context, userID, itemID string) error

	AddComment(ctx context.Context, userID, cardID string, req domain.CommentRequest) (domain.Comment, error)
	EditComment(ctx context.Context, userID, commentID string, req domain.CommentRequest) (domain.Comment, error)
	DeleteComment(ctx context.Context, userID, commentID string) error

	Notifications(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int, error)
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper rejects replayed move commands.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when the move fails.
	Remove(ctx context.Context, userID, key string) error
}
