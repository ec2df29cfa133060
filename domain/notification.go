package domain

import "time"

// Notification types.
const (
	NotificationMemberAssigned = "member_assigned"
	NotificationCommentAdded   = "comment_added"
	NotificationDueSoon        = "due_soon"
)

// Notification is a per-user message about activity on a card.
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	CardID    string    `json:"cardId"`
	BoardID   string    `json:"boardId,omitempty"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// CalendarEvent is a dated entry for the calendar view: either a card due date or
// a checklist item due date.
type CalendarEvent struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Date      string `json:"date"`
	Kind      string `json:"kind"`
	CardID    string `json:"cardId"`
	CardTitle string `json:"cardTitle"`
	ListTitle string `json:"listTitle"`
	Completed bool   `json:"completed,omitempty"`
}

// Calendar event kinds.
const (
	CalendarCard      = "card"
	CalendarChecklist = "checklist"
)
