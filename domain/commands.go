package domain

import "time"

// CreateBoardRequest is the body of POST /api/boards.
type CreateBoardRequest struct {
	Title string `json:"title"`
}

// TitleRequest carries a title for lists, cards and renames.
type TitleRequest struct {
	Title string `json:"title"`
}

// MemberRequest adds a user to a board.
type MemberRequest struct {
	UserID string `json:"userId"`
}

// ProfileRequest upserts the caller's profile.
type ProfileRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// MoveListRequest moves a list to a new index among its board's lists. ToIndex is
// required.
type MoveListRequest struct {
	ListID  string `json:"listId"`
	ToIndex *int   `json:"toIndex"`
}

// MoveCardRequest moves a card into ListID. A nil Index appends to the end.
type MoveCardRequest struct {
	ListID string `json:"listId"`
	Index  *int   `json:"index,omitempty"`
}

// CardPatch carries optional card field updates. ClearStartDate and ClearDueDate
// remove the respective dates.
type CardPatch struct {
	Title          *string    `json:"title,omitempty"`
	Description    *string    `json:"description,omitempty"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	ClearStartDate bool       `json:"clearStartDate,omitempty"`
	ClearDueDate   bool       `json:"clearDueDate,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p CardPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.StartDate == nil && p.DueDate == nil &&
		!p.ClearStartDate && !p.ClearDueDate
}

// LabelRequest creates a label, optionally attaching it to CardID.
type LabelRequest struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	CardID string `json:"cardId,omitempty"`
}

// ChecklistItemRequest adds a checklist item.
type ChecklistItemRequest struct {
	Title   string     `json:"title"`
	DueDate *time.Time `json:"dueDate,omitempty"`
}

// ChecklistItemPatch carries optional checklist item updates.
type ChecklistItemPatch struct {
	Title        *string    `json:"title,omitempty"`
	Completed    *bool      `json:"completed,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"`
	ClearDueDate bool       `json:"clearDueDate,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ChecklistItemPatch) Empty() bool {
	return p.Title == nil && p.Completed == nil && p.DueDate == nil && !p.ClearDueDate
}

// CommentRequest adds or edits a comment.
type CommentRequest struct {
	Content string `json:"content"`
}
