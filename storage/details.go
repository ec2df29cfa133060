package storage

import (
	"context"
	"database/sql"
	"fmt"

	"prism-board/domain"
)

// CreateLabel inserts a board label.
func (s *Store) CreateLabel(ctx context.Context, l domain.Label) error {
	_, err := s.db.ExecContext(ctx, "INSERT INTO labels (id, board_id, name, color) VALUES (?, ?, ?, ?)",
		l.ID, l.BoardID, l.Name, l.Color)
	if err != nil {
		return fmt.Errorf("insert label: %w", err)
	}
	return nil
}

// GetLabel returns a label by id.
func (s *Store) GetLabel(ctx context.Context, labelID string) (domain.Label, error) {
	var l domain.Label
	err := s.db.QueryRowContext(ctx, "SELECT id, board_id, name, color FROM labels WHERE id = ?", labelID).
		Scan(&l.ID, &l.BoardID, &l.Name, &l.Color)
	if err != nil {
		return domain.Label{}, notFound(err)
	}
	return l, nil
}

// Labels returns the board's labels ordered by name.
func (s *Store) Labels(ctx context.Context, boardID string) ([]domain.Label, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, board_id, name, color FROM labels WHERE board_id = ? ORDER BY name, id", boardID)
	if err != nil {
		return nil, fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()
	out := []domain.Label{}
	for rows.Next() {
		var l domain.Label
		if err := rows.Scan(&l.ID, &l.BoardID, &l.Name, &l.Color); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// AddChecklistItem appends the item to its card's checklist and returns it.
func (s *Store) AddChecklistItem(ctx context.Context, it domain.ChecklistItem) (domain.ChecklistItem, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM checklist_items WHERE card_id = ?", it.CardID).Scan(&it.Position); err != nil {
			return fmt.Errorf("count checklist items: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO checklist_items (id, card_id, title, completed, due_date, position) VALUES (?, ?, ?, ?, ?, ?)`,
			it.ID, it.CardID, it.Title, boolInt(it.Completed), nullTime(it.DueDate), it.Position); err != nil {
			return fmt.Errorf("insert checklist item: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.ChecklistItem{}, err
	}
	return it, nil
}

// GetChecklistItem returns a checklist item by id.
func (s *Store) GetChecklistItem(ctx context.Context, itemID string) (domain.ChecklistItem, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, card_id, title, completed, due_date, position FROM checklist_items WHERE id = ?", itemID)
	return scanChecklistItem(row)
}

// UpdateChecklistItem writes title, completion and due date.
func (s *Store) UpdateChecklistItem(ctx context.Context, it domain.ChecklistItem) error {
	return affected(s.db.ExecContext(ctx, "UPDATE checklist_items SET title = ?, completed = ?, due_date = ? WHERE id = ?",
		it.Title, boolInt(it.Completed), nullTime(it.DueDate), it.ID))
}

// DeleteChecklistItem removes a checklist item.
func (s *Store) DeleteChecklistItem(ctx context.Context, itemID string) error {
	return affected(s.db.ExecContext(ctx, "DELETE FROM checklist_items WHERE id = ?", itemID))
}

// AddComment inserts a comment.
func (s *Store) AddComment(ctx context.Context, c domain.Comment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (id, card_id, user_id, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, c.CardID, c.UserID, c.Content, formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert comment: %w", err)
	}
	return nil
}

// GetComment returns a comment by id.
func (s *Store) GetComment(ctx context.Context, commentID string) (domain.Comment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, card_id, user_id, content, created_at, updated_at FROM comments WHERE id = ?", commentID)
	return scanComment(row)
}

// UpdateComment replaces the content of a comment.
func (s *Store) UpdateComment(ctx context.Context, c domain.Comment) error {
	return affected(s.db.ExecContext(ctx, "UPDATE comments SET content = ?, updated_at = ? WHERE id = ?",
		c.Content, formatTime(c.UpdatedAt), c.ID))
}

// DeleteComment removes a comment.
func (s *Store) DeleteComment(ctx context.Context, commentID string) error {
	return affected(s.db.ExecContext(ctx, "DELETE FROM comments WHERE id = ?", commentID))
}

func scanChecklistItem(row scanner) (domain.ChecklistItem, error) {
	var it domain.ChecklistItem
	var completed int
	var due sql.NullString
	if err := row.Scan(&it.ID, &it.CardID, &it.Title, &completed, &due, &it.Position); err != nil {
		return domain.ChecklistItem{}, notFound(err)
	}
	it.Completed = completed == 1
	it.DueDate = timePtr(due)
	return it, nil
}

func scanComment(row scanner) (domain.Comment, error) {
	var c domain.Comment
	var created, updated string
	if err := row.Scan(&c.ID, &c.CardID, &c.UserID, &c.Content, &created, &updated); err != nil {
		return domain.Comment{}, notFound(err)
	}
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return c, nil
}
