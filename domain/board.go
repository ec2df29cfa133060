package domain

import "time"

// Profile is a user known to the board service. ID is the auth subject.
type Profile struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"isAdmin,omitempty"`
}

// Board owns an ordered set of lists.
type Board struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

// List is a column on a board. Position orders lists within their board.
type List struct {
	ID        string    `json:"id"`
	BoardID   string    `json:"boardId"`
	Title     string    `json:"title"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"createdAt"`
}

// Card is a single item on a list. Position orders cards within their list.
type Card struct {
	ID          string     `json:"id"`
	ListID      string     `json:"listId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Position    int        `json:"position"`
	StartDate   *time.Time `json:"startDate,omitempty"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Label is a board-scoped tag that can be attached to cards.
type Label struct {
	ID      string `json:"id"`
	BoardID string `json:"boardId"`
	Name    string `json:"name"`
	Color   string `json:"color"`
}

// ChecklistItem is an entry in a card's checklist.
type ChecklistItem struct {
	ID        string     `json:"id"`
	CardID    string     `json:"cardId"`
	Title     string     `json:"title"`
	Completed bool       `json:"completed"`
	DueDate   *time.Time `json:"dueDate,omitempty"`
	Position  int        `json:"position"`
}

// Comment is a note left on a card by a board member.
type Comment struct {
	ID        string    `json:"id"`
	CardID    string    `json:"cardId"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CardView is a card with everything rendered alongside it on the board.
type CardView struct {
	Card
	Labels    []Label         `json:"labels"`
	MemberIDs []string        `json:"memberIds"`
	Checklist []ChecklistItem `json:"checklist"`
	Comments  []Comment       `json:"comments"`
}

// CardDetail is the single-card view, with the list title and rendered description.
type CardDetail struct {
	CardView
	BoardID         string `json:"boardId"`
	ListTitle       string `json:"listTitle"`
	DescriptionHTML string `json:"descriptionHtml,omitempty"`
}

// ListView is a list with its cards ordered by position.
type ListView struct {
	List
	MemberIDs []string   `json:"memberIds"`
	Cards     []CardView `json:"cards"`
}

// BoardSnapshot is the full state of a board as served to clients. Lists and cards are
// ordered by position, ties broken by id.
type BoardSnapshot struct {
	Board     Board      `json:"board"`
	MemberIDs []string   `json:"memberIds"`
	Labels    []Label    `json:"labels"`
	Lists     []ListView `json:"lists"`
}

// Filter returns a read-only view containing lists the user is a member of in full,
// and from the remaining lists only the cards assigned to the user. Lists with neither
// are dropped. The result must never be fed back into reordering.
func (s BoardSnapshot) Filter(userID string) BoardSnapshot {
	if userID == "" {
		return s
	}
	out := s
	out.Lists = make([]ListView, 0, len(s.Lists))
	for _, l := range s.Lists {
		if contains(l.MemberIDs, userID) {
			out.Lists = append(out.Lists, l)
			continue
		}
		cards := make([]CardView, 0, len(l.Cards))
		for _, c := range l.Cards {
			if contains(c.MemberIDs, userID) {
				cards = append(cards, c)
			}
		}
		if len(cards) == 0 {
			continue
		}
		l.Cards = cards
		out.Lists = append(out.Lists, l)
	}
	return out
}

func contains(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
