package domain

import "encoding/json"

// Tables that produce change events.
const (
	TableBoards         = "boards"
	TableBoardMembers   = "board_members"
	TableLists          = "lists"
	TableListMembers    = "list_members"
	TableCards          = "cards"
	TableCardMembers    = "card_members"
	TableCardLabels     = "card_labels"
	TableLabels         = "labels"
	TableChecklistItems = "checklist_items"
	TableComments       = "comments"
)

// Change operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeEvent signals that rows belonging to a board were committed. Consumers treat
// every event the same way: refetch the board.
type ChangeEvent struct {
	BoardID  string          `json:"boardId"`
	Table    string          `json:"table"`
	Op       string          `json:"op"`
	EntityID string          `json:"entityId,omitempty"`
	ActorID  string          `json:"actorId,omitempty"`
	Data     json.RawMessage `json:"data,omitempty"`
	Time     int64           `json:"time"`
}

// Notifiable reports whether the event can produce user notifications.
func (ev ChangeEvent) Notifiable() bool {
	if ev.Op != OpInsert {
		return false
	}
	return ev.Table == TableCardMembers || ev.Table == TableComments
}

// MemberAssignedData is carried by card_members inserts.
type MemberAssignedData struct {
	CardID string `json:"cardId"`
	UserID string `json:"userId"`
}

// CommentAddedData is carried by comments inserts.
type CommentAddedData struct {
	CardID    string `json:"cardId"`
	CommentID string `json:"commentId"`
}
