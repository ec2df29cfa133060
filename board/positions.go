package board

import (
	"prism-board/domain"
	"prism-board/reorder"
)

func listItems(lists []domain.List) []reorder.Item {
	out := make([]reorder.Item, len(lists))
	for i, l := range lists {
		out[i] = reorder.Item{ID: l.ID, ParentID: l.BoardID, Position: l.Position}
	}
	return out
}

func cardItems(cards []domain.Card) []reorder.Item {
	out := make([]reorder.Item, len(cards))
	for i, c := range cards {
		out[i] = reorder.Item{ID: c.ID, ParentID: c.ListID, Position: c.Position}
	}
	return out
}

func indexOf(items []reorder.Item, id string) int {
	for i, it := range reorder.Sort(items) {
		if it.ID == id {
			return i
		}
	}
	return -1
}
