package storage

import (
	"context"

	"prism-board/domain"
)

// Entity kinds that can be resolved to their owning board.
const (
	KindList          = "list"
	KindCard          = "card"
	KindLabel         = "label"
	KindChecklistItem = "checklist_item"
	KindComment       = "comment"
)

var boardOfQueries = map[string]string{
	KindList:  "SELECT board_id FROM lists WHERE id = ?",
	KindCard:  "SELECT l.board_id FROM cards c JOIN lists l ON l.id = c.list_id WHERE c.id = ?",
	KindLabel: "SELECT board_id FROM labels WHERE id = ?",
	KindChecklistItem: `SELECT l.board_id FROM checklist_items i
		JOIN cards c ON c.id = i.card_id JOIN lists l ON l.id = c.list_id WHERE i.id = ?`,
	KindComment: `SELECT l.board_id FROM comments m
		JOIN cards c ON c.id = m.card_id JOIN lists l ON l.id = c.list_id WHERE m.id = ?`,
}

// BoardOf returns the id of the board owning the entity of the given kind.
func (s *Store) BoardOf(ctx context.Context, kind, id string) (string, error) {
	q, ok := boardOfQueries[kind]
	if !ok {
		return "", domain.Invalid("unknown entity kind %q", kind)
	}
	var boardID string
	if err := s.db.QueryRowContext(ctx, q, id).Scan(&boardID); err != nil {
		return "", notFound(err)
	}
	return boardID, nil
}
