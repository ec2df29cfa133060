package storage

import (
	"context"
	"database/sql"
	"fmt"

	"prism-board/domain"
)

const cardColumns = "id, list_id, title, description, position, start_date, due_date, created_at"

// CreateCard appends c to its list and returns the stored card.
func (s *Store) CreateCard(ctx context.Context, c domain.Card) (domain.Card, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM cards WHERE list_id = ?", c.ListID).Scan(&c.Position); err != nil {
			return fmt.Errorf("count cards: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO cards ("+cardColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			c.ID, c.ListID, c.Title, c.Description, c.Position,
			nullTime(c.StartDate), nullTime(c.DueDate), formatTime(c.CreatedAt)); err != nil {
			return fmt.Errorf("insert card: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Card{}, err
	}
	return c, nil
}

// GetCard returns a card by id.
func (s *Store) GetCard(ctx context.Context, cardID string) (domain.Card, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+cardColumns+" FROM cards WHERE id = ?", cardID)
	return scanCard(row)
}

// Cards returns the cards of a list ordered by position, then id.
func (s *Store) Cards(ctx context.Context, listID string) ([]domain.Card, error) {
	return s.queryCards(ctx, "SELECT "+cardColumns+" FROM cards WHERE list_id = ? ORDER BY position, id", listID)
}

// BoardCards returns every card on the board ordered by list, position and id.
func (s *Store) BoardCards(ctx context.Context, boardID string) ([]domain.Card, error) {
	return s.queryCards(ctx, `
		SELECT c.id, c.list_id, c.title, c.description, c.position, c.start_date, c.due_date, c.created_at
		FROM cards c JOIN lists l ON l.id = c.list_id
		WHERE l.board_id = ?
		ORDER BY c.list_id, c.position, c.id`, boardID)
}

// UpdateCard writes the editable fields of c: title, description and dates.
func (s *Store) UpdateCard(ctx context.Context, c domain.Card) error {
	return affected(s.db.ExecContext(ctx, `
		UPDATE cards SET title = ?, description = ?, start_date = ?, due_date = ? WHERE id = ?`,
		c.Title, c.Description, nullTime(c.StartDate), nullTime(c.DueDate), c.ID))
}

// DeleteCard removes the card and its children.
func (s *Store) DeleteCard(ctx context.Context, cardID string) error {
	return affected(s.db.ExecContext(ctx, "DELETE FROM cards WHERE id = ?", cardID))
}

// AddCardMember assigns userID to the card. It reports whether the assignment is new.
func (s *Store) AddCardMember(ctx context.Context, cardID, userID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO card_members (card_id, user_id) VALUES (?, ?)", cardID, userID)
	if err != nil {
		return false, fmt.Errorf("add card member: %w", err)
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// RemoveCardMember unassigns userID from the card.
func (s *Store) RemoveCardMember(ctx context.Context, cardID, userID string) error {
	return affected(s.db.ExecContext(ctx, "DELETE FROM card_members WHERE card_id = ? AND user_id = ?", cardID, userID))
}

// CardMembers returns the user ids assigned to the card.
func (s *Store) CardMembers(ctx context.Context, cardID string) ([]string, error) {
	return s.queryIDs(ctx, "SELECT user_id FROM card_members WHERE card_id = ? ORDER BY user_id", cardID)
}

// AttachLabel attaches a label to the card. Attaching twice is a no-op.
func (s *Store) AttachLabel(ctx context.Context, cardID, labelID string) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO card_labels (card_id, label_id) VALUES (?, ?)", cardID, labelID)
	if err != nil {
		return fmt.Errorf("attach label: %w", err)
	}
	return nil
}

// DetachLabel removes a label from the card.
func (s *Store) DetachLabel(ctx context.Context, cardID, labelID string) error {
	return affected(s.db.ExecContext(ctx, "DELETE FROM card_labels WHERE card_id = ? AND label_id = ?", cardID, labelID))
}

func (s *Store) queryCards(ctx context.Context, query string, args ...any) ([]domain.Card, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query cards: %w", err)
	}
	defer rows.Close()
	out := []domain.Card{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanCard(row scanner) (domain.Card, error) {
	var c domain.Card
	var start, due sql.NullString
	var created string
	if err := row.Scan(&c.ID, &c.ListID, &c.Title, &c.Description, &c.Position, &start, &due, &created); err != nil {
		return domain.Card{}, notFound(err)
	}
	c.StartDate = timePtr(start)
	c.DueDate = timePtr(due)
	c.CreatedAt = parseTime(created)
	return c, nil
}
