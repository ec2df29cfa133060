package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"prism-board/domain"
)

// UpsertProfile creates or updates a user profile. The admin flag is left untouched
// on update.
func (s *Store) UpsertProfile(ctx context.Context, p domain.Profile) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, name, email, is_admin) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		p.ID, p.Name, p.Email, boolInt(p.IsAdmin))
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	return nil
}

// SetAdmin grants or revokes the admin flag.
func (s *Store) SetAdmin(ctx context.Context, userID string, admin bool) error {
	return affected(s.db.ExecContext(ctx, "UPDATE profiles SET is_admin = ? WHERE id = ?", boolInt(admin), userID))
}

// GetProfile returns the profile of userID.
func (s *Store) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	var p domain.Profile
	var admin int
	err := s.db.QueryRowContext(ctx, "SELECT id, name, email, is_admin FROM profiles WHERE id = ?", userID).
		Scan(&p.ID, &p.Name, &p.Email, &admin)
	if err != nil {
		return domain.Profile{}, notFound(err)
	}
	p.IsAdmin = admin == 1
	return p, nil
}

// IsAdmin reports whether userID carries the admin flag. Unknown users are not admins.
func (s *Store) IsAdmin(ctx context.Context, userID string) (bool, error) {
	p, err := s.GetProfile(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return p.IsAdmin, nil
}

// ListProfiles returns every known profile ordered by name.
func (s *Store) ListProfiles(ctx context.Context) ([]domain.Profile, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name, email, is_admin FROM profiles ORDER BY name, id")
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	defer rows.Close()
	out := []domain.Profile{}
	for rows.Next() {
		var p domain.Profile
		var admin int
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &admin); err != nil {
			return nil, err
		}
		p.IsAdmin = admin == 1
		out = append(out, p)
	}
	return out, rows.Err()
}

// CreateBoard inserts the board and makes its owner a member.
func (s *Store) CreateBoard(ctx context.Context, b domain.Board) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO boards (id, title, owner_id, created_at) VALUES (?, ?, ?, ?)",
			b.ID, b.Title, b.OwnerID, formatTime(b.CreatedAt)); err != nil {
			return fmt.Errorf("insert board: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO board_members (board_id, user_id) VALUES (?, ?)",
			b.ID, b.OwnerID); err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
}

// GetBoard returns a board by id.
func (s *Store) GetBoard(ctx context.Context, boardID string) (domain.Board, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, title, owner_id, created_at FROM boards WHERE id = ?", boardID)
	return scanBoard(row)
}

// ListBoards returns the boards userID is a member of, or every board when all is set.
func (s *Store) ListBoards(ctx context.Context, userID string, all bool) ([]domain.Board, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if all {
		rows, err = s.db.QueryContext(ctx, "SELECT id, title, owner_id, created_at FROM boards ORDER BY created_at, id")
	} else {
		rows, err = s.db.QueryContext(ctx, `
			SELECT b.id, b.title, b.owner_id, b.created_at
			FROM boards b JOIN board_members m ON m.board_id = b.id
			WHERE m.user_id = ?
			ORDER BY b.created_at, b.id`, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	defer rows.Close()
	out := []domain.Board{}
	for rows.Next() {
		b, err := scanBoard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// DeleteBoard removes the board. Lists, cards and their children cascade.
func (s *Store) DeleteBoard(ctx context.Context, boardID string) error {
	return affected(s.db.ExecContext(ctx, "DELETE FROM boards WHERE id = ?", boardID))
}

// AddBoardMember adds userID to the board. Adding an existing member is a no-op.
func (s *Store) AddBoardMember(ctx context.Context, boardID, userID string) error {
	_, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO board_members (board_id, user_id) VALUES (?, ?)", boardID, userID)
	if err != nil {
		return fmt.Errorf("add board member: %w", err)
	}
	return nil
}

// RemoveBoardMember removes userID from the board.
func (s *Store) RemoveBoardMember(ctx context.Context, boardID, userID string) error {
	return affected(s.db.ExecContext(ctx, "DELETE FROM board_members WHERE board_id = ? AND user_id = ?", boardID, userID))
}

// IsBoardMember reports whether userID belongs to the board.
func (s *Store) IsBoardMember(ctx context.Context, boardID, userID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM board_members WHERE board_id = ? AND user_id = ?",
		boardID, userID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}
	return n > 0, nil
}

// BoardMembers returns the user ids of the board's members.
func (s *Store) BoardMembers(ctx context.Context, boardID string) ([]string, error) {
	return s.queryIDs(ctx, "SELECT user_id FROM board_members WHERE board_id = ? ORDER BY user_id", boardID)
}

func (s *Store) queryIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanBoard(row scanner) (domain.Board, error) {
	var b domain.Board
	var created string
	if err := row.Scan(&b.ID, &b.Title, &b.OwnerID, &created); err != nil {
		return domain.Board{}, notFound(err)
	}
	b.CreatedAt = parseTime(created)
	return b, nil
}
