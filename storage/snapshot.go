package storage

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"prism-board/domain"
)

type pair struct{ owner, id string }

// LoadSnapshot reads the full board: members, labels and every list with its cards
// and card children. Sections are queried concurrently.
func (s *Store) LoadSnapshot(ctx context.Context, boardID string) (domain.BoardSnapshot, error) {
	board, err := s.GetBoard(ctx, boardID)
	if err != nil {
		return domain.BoardSnapshot{}, err
	}

	var (
		members     []string
		labels      []domain.Label
		lists       []domain.List
		cards       []domain.Card
		listMembers []pair
		cardMembers []pair
		cardLabels  []pair
		checklist   []domain.ChecklistItem
		comments    []domain.Comment
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		members, err = s.BoardMembers(gctx, boardID)
		return err
	})
	g.Go(func() (err error) {
		labels, err = s.Labels(gctx, boardID)
		return err
	})
	g.Go(func() (err error) {
		lists, err = s.Lists(gctx, boardID)
		return err
	})
	g.Go(func() (err error) {
		cards, err = s.BoardCards(gctx, boardID)
		return err
	})
	g.Go(func() (err error) {
		listMembers, err = s.queryPairs(gctx, `
			SELECT m.list_id, m.user_id FROM list_members m JOIN lists l ON l.id = m.list_id
			WHERE l.board_id = ? ORDER BY m.user_id`, boardID)
		return err
	})
	g.Go(func() (err error) {
		cardMembers, err = s.queryPairs(gctx, `
			SELECT m.card_id, m.user_id FROM card_members m
			JOIN cards c ON c.id = m.card_id JOIN lists l ON l.id = c.list_id
			WHERE l.board_id = ? ORDER BY m.user_id`, boardID)
		return err
	})
	g.Go(func() (err error) {
		cardLabels, err = s.queryPairs(gctx, `
			SELECT cl.card_id, cl.label_id FROM card_labels cl
			JOIN cards c ON c.id = cl.card_id JOIN lists l ON l.id = c.list_id
			WHERE l.board_id = ?`, boardID)
		return err
	})
	g.Go(func() (err error) {
		checklist, err = s.boardChecklist(gctx, boardID)
		return err
	})
	g.Go(func() (err error) {
		comments, err = s.boardComments(gctx, boardID)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.BoardSnapshot{}, fmt.Errorf("load board %s: %w", boardID, err)
	}

	labelByID := make(map[string]domain.Label, len(labels))
	for _, l := range labels {
		labelByID[l.ID] = l
	}
	views := make(map[string]*domain.CardView, len(cards))
	byList := make(map[string][]*domain.CardView)
	for i := range cards {
		v := &domain.CardView{
			Card:      cards[i],
			Labels:    []domain.Label{},
			MemberIDs: []string{},
			Checklist: []domain.ChecklistItem{},
			Comments:  []domain.Comment{},
		}
		views[v.ID] = v
		byList[v.ListID] = append(byList[v.ListID], v)
	}
	for _, p := range cardMembers {
		if v, ok := views[p.owner]; ok {
			v.MemberIDs = append(v.MemberIDs, p.id)
		}
	}
	for _, p := range cardLabels {
		v, ok := views[p.owner]
		l, found := labelByID[p.id]
		if ok && found {
			v.Labels = append(v.Labels, l)
		}
	}
	for _, it := range checklist {
		if v, ok := views[it.CardID]; ok {
			v.Checklist = append(v.Checklist, it)
		}
	}
	for _, c := range comments {
		if v, ok := views[c.CardID]; ok {
			v.Comments = append(v.Comments, c)
		}
	}
	membersOfList := make(map[string][]string)
	for _, p := range listMembers {
		membersOfList[p.owner] = append(membersOfList[p.owner], p.id)
	}

	snap := domain.BoardSnapshot{
		Board:     board,
		MemberIDs: members,
		Labels:    labels,
		Lists:     make([]domain.ListView, 0, len(lists)),
	}
	for _, l := range lists {
		lv := domain.ListView{List: l, MemberIDs: membersOfList[l.ID], Cards: []domain.CardView{}}
		if lv.MemberIDs == nil {
			lv.MemberIDs = []string{}
		}
		for _, v := range byList[l.ID] {
			lv.Cards = append(lv.Cards, *v)
		}
		snap.Lists = append(snap.Lists, lv)
	}
	return snap, nil
}

func (s *Store) queryPairs(ctx context.Context, query string, args ...any) ([]pair, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []pair
	for rows.Next() {
		var p pair
		if err := rows.Scan(&p.owner, &p.id); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) boardChecklist(ctx context.Context, boardID string) ([]domain.ChecklistItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.card_id, i.title, i.completed, i.due_date, i.position
		FROM checklist_items i JOIN cards c ON c.id = i.card_id JOIN lists l ON l.id = c.list_id
		WHERE l.board_id = ? ORDER BY i.card_id, i.position, i.id`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.ChecklistItem
	for rows.Next() {
		it, err := scanChecklistItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) boardComments(ctx context.Context, boardID string) ([]domain.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.card_id, m.user_id, m.content, m.created_at, m.updated_at
		FROM comments m JOIN cards c ON c.id = m.card_id JOIN lists l ON l.id = c.list_id
		WHERE l.board_id = ? ORDER BY m.created_at, m.id`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Comment
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
