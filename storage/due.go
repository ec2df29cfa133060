package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"prism-board/domain"
)

// DueCard is a card with a due date together with its board and assignees.
type DueCard struct {
	Card      domain.Card
	BoardID   string
	MemberIDs []string
}

// CardsDueBetween returns cards whose due date falls in [from, to), earliest first.
func (s *Store) CardsDueBetween(ctx context.Context, from, to time.Time) ([]DueCard, error) {
	out, err := s.dueCards(ctx, from, to)
	if err != nil {
		return nil, err
	}
	for i := range out {
		members, err := s.CardMembers(ctx, out[i].Card.ID)
		if err != nil {
			return nil, err
		}
		out[i].MemberIDs = members
	}
	return out, nil
}

func (s *Store) dueCards(ctx context.Context, from, to time.Time) ([]DueCard, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.list_id, c.title, c.description, c.position, c.start_date, c.due_date, c.created_at, l.board_id
		FROM cards c JOIN lists l ON l.id = c.list_id
		WHERE c.due_date IS NOT NULL AND c.due_date >= ? AND c.due_date < ?
		ORDER BY c.due_date, c.id`, formatTime(from), formatTime(to))
	if err != nil {
		return nil, fmt.Errorf("query due cards: %w", err)
	}
	defer rows.Close()
	var out []DueCard
	for rows.Next() {
		var dc DueCard
		var start, due sql.NullString
		var created string
		c := &dc.Card
		if err := rows.Scan(&c.ID, &c.ListID, &c.Title, &c.Description, &c.Position, &start, &due, &created, &dc.BoardID); err != nil {
			return nil, err
		}
		c.StartDate = timePtr(start)
		c.DueDate = timePtr(due)
		c.CreatedAt = parseTime(created)
		out = append(out, dc)
	}
	return out, rows.Err()
}
