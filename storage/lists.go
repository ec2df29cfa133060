package storage

import (
	"context"
	"database/sql"
	"fmt"

	"prism-board/domain"
)

// CreateList appends l to its board: its position is the current number of lists.
// The stored list is returned.
func (s *Store) CreateList(ctx context.Context, l domain.List) (domain.List, error) {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM lists WHERE board_id = ?", l.BoardID).Scan(&l.Position); err != nil {
			return fmt.Errorf("count lists: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO lists (id, board_id, title, position, created_at) VALUES (?, ?, ?, ?, ?)",
			l.ID, l.BoardID, l.Title, l.Position, formatTime(l.CreatedAt)); err != nil {
			return fmt.Errorf("insert list: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.List{}, err
	}
	return l, nil
}

// GetList returns a list by id.
func (s *Store) GetList(ctx context.Context, listID string) (domain.List, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, board_id, title, position, created_at FROM lists WHERE id = ?", listID)
	return scanList(row)
}

// Lists returns every list of the board ordered by position, then id.
func (s *Store) Lists(ctx context.Context, boardID string) ([]domain.List, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, board_id, title, position, created_at FROM lists
		WHERE board_id = ? ORDER BY position, id`, boardID)
	if err != nil {
		return nil, fmt.Errorf("query lists: %w", err)
	}
	defer rows.Close()
	out := []domain.List{}
	for rows.Next() {
		l, err := scanList(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// RenameList sets the list title.
func (s *Store) RenameList(ctx context.Context, listID, title string) error {
	return affected(s.db.ExecContext(ctx, "UPDATE lists SET title = ? WHERE id = ?", title, listID))
}

// DeleteList removes the list and, through cascades, its cards.
func (s *Store) DeleteList(ctx context.Context, listID string) error {
	return affected(s.db.ExecContext(ctx, "DELETE FROM lists WHERE id = ?", listID))
}

// AddListMember adds userID to the list. Adding an existing member is a no-op.
func (s *Store) AddListMember(ctx context.Context, listID, userID string) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO list_members (list_id, user_id) VALUES (?, ?)", listID, userID)
	if err != nil {
		return fmt.Errorf("add list member: %w", err)
	}
	return nil
}

// RemoveListMember removes userID from the list.
func (s *Store) RemoveListMember(ctx context.Context, listID, userID string) error {
	return affected(s.db.ExecContext(ctx, "DELETE FROM list_members WHERE list_id = ? AND user_id = ?", listID, userID))
}

func scanList(row scanner) (domain.List, error) {
	var l domain.List
	var created string
	if err := row.Scan(&l.ID, &l.BoardID, &l.Title, &l.Position, &created); err != nil {
		return domain.List{}, notFound(err)
	}
	l.CreatedAt = parseTime(created)
	return l, nil
}
