package board

import (
	"context"

	"prism-board/domain"
	"prism-board/reorder"
	"prism-board/storage"
)

// CreateList appends a list to the board.
func (s *Service) CreateList(ctx context.Context, userID, boardID string, req domain.TitleRequest) (domain.List, error) {
	title, err := domain.NormalizeTitle(req.Title)
	if err != nil {
		return domain.List{}, err
	}
	if _, err := s.authorize(ctx, userID, boardID); err != nil {
		return domain.List{}, err
	}
	l, err := s.store.CreateList(ctx, domain.List{ID: s.newID(), BoardID: boardID, Title: title, CreatedAt: s.now().UTC()})
	if err != nil {
		return domain.List{}, err
	}
	s.changed(ctx, event(boardID, domain.TableLists, domain.OpInsert, l.ID, userID))
	return l, nil
}

// RenameList changes a list's title.
func (s *Service) RenameList(ctx context.Context, userID, listID string, req domain.TitleRequest) error {
	title, err := domain.NormalizeTitle(req.Title)
	if err != nil {
		return err
	}
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindList, listID)
	if err != nil {
		return err
	}
	if err := s.store.RenameList(ctx, listID, title); err != nil {
		return err
	}
	s.changed(ctx, event(boardID, domain.TableLists, domain.OpUpdate, listID, userID))
	return nil
}

// DeleteList removes a list and its cards. Remaining lists keep their positions until
// the next move or compaction.
func (s *Service) DeleteList(ctx context.Context, userID, listID string) error {
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindList, listID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteList(ctx, listID); err != nil {
		return err
	}
	s.changed(ctx, event(boardID, domain.TableLists, domain.OpDelete, listID, userID))
	return nil
}

// MoveList moves a list to toIndex among the board's lists and returns the position
// writes that were committed.
func (s *Service) MoveList(ctx context.Context, userID, boardID string, req domain.MoveListRequest) ([]reorder.Change, error) {
	if req.ToIndex == nil {
		return nil, domain.Invalid("toIndex is required")
	}
	if _, err := s.authorize(ctx, userID, boardID); err != nil {
		return nil, err
	}
	lists, err := s.store.Lists(ctx, boardID)
	if err != nil {
		return nil, err
	}
	items := listItems(lists)
	from := indexOf(items, req.ListID)
	if from < 0 {
		return nil, domain.ErrNotFound
	}
	_, changes, err := reorder.ReorderWithinParent(items, from, *req.ToIndex)
	if err != nil {
		return nil, invalidMove(err)
	}
	if len(changes) == 0 {
		return []reorder.Change{}, nil
	}
	if err := s.store.ApplyChanges(ctx, domain.TableLists, changes); err != nil {
		return nil, err
	}
	s.changed(ctx, event(boardID, domain.TableLists, domain.OpUpdate, req.ListID, userID))
	return changes, nil
}

// AddListMember adds a board member to a list.
func (s *Service) AddListMember(ctx context.Context, userID, listID, memberID string) error {
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindList, listID)
	if err != nil {
		return err
	}
	if err := s.requireMember(ctx, boardID, memberID); err != nil {
		return err
	}
	if err := s.store.AddListMember(ctx, listID, memberID); err != nil {
		return err
	}
	s.changed(ctx, event(boardID, domain.TableListMembers, domain.OpInsert, listID, userID))
	return nil
}

// RemoveListMember removes a user from a list.
func (s *Service) RemoveListMember(ctx context.Context, userID, listID, memberID string) error {
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindList, listID)
	if err != nil {
		return err
	}
	if err := s.store.RemoveListMember(ctx, listID, memberID); err != nil {
		return err
	}
	s.changed(ctx, event(boardID, domain.TableListMembers, domain.OpDelete, listID, userID))
	return nil
}

// requireMember rejects users who are not members of the board.
func (s *Service) requireMember(ctx context.Context, boardID, userID string) error {
	if userID == "" {
		return domain.Invalid("userId is required")
	}
	ok, err := s.store.IsBoardMember(ctx, boardID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Invalid("user %s is not a member of the board", userID)
	}
	return nil
}
