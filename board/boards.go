package board

import (
	"context"

	"prism-board/domain"
	"prism-board/reorder"
)

// UpsertProfile records the caller's name and email.
func (s *Service) UpsertProfile(ctx context.Context, userID string, req domain.ProfileRequest) (domain.Profile, error) {
	p := domain.Profile{ID: userID, Name: domain.NormalizeText(req.Name), Email: domain.NormalizeText(req.Email)}
	if err := s.store.UpsertProfile(ctx, p); err != nil {
		return domain.Profile{}, err
	}
	return p, nil
}

// ListUsers returns every known profile.
func (s *Service) ListUsers(ctx context.Context) ([]domain.Profile, error) {
	return s.store.ListProfiles(ctx)
}

// ListBoards returns the boards the user belongs to; admins see every board.
func (s *Service) ListBoards(ctx context.Context, userID string) ([]domain.Board, error) {
	admin, err := s.store.IsAdmin(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.ListBoards(ctx, userID, admin)
}

// CreateBoard creates a board owned by the user, who also becomes its first member.
func (s *Service) CreateBoard(ctx context.Context, userID string, req domain.CreateBoardRequest) (domain.Board, error) {
	title, err := domain.NormalizeTitle(req.Title)
	if err != nil {
		return domain.Board{}, err
	}
	b := domain.Board{ID: s.newID(), Title: title, OwnerID: userID, CreatedAt: s.now().UTC()}
	if err := s.store.CreateBoard(ctx, b); err != nil {
		return domain.Board{}, err
	}
	s.changed(ctx, event(b.ID, domain.TableBoards, domain.OpInsert, b.ID, userID))
	return b, nil
}

// GetBoard returns the full board. A non-empty member restricts the view to that
// user's lists and cards.
func (s *Service) GetBoard(ctx context.Context, userID, boardID, member string) (domain.BoardSnapshot, error) {
	if _, err := s.authorize(ctx, userID, boardID); err != nil {
		return domain.BoardSnapshot{}, err
	}
	snap, err := s.snapshots.LoadSnapshot(ctx, boardID)
	if err != nil {
		return domain.BoardSnapshot{}, err
	}
	return snap.Filter(member), nil
}

// DeleteBoard removes the board with everything on it.
func (s *Service) DeleteBoard(ctx context.Context, userID, boardID string) error {
	if _, err := s.authorizeOwner(ctx, userID, boardID); err != nil {
		return err
	}
	if err := s.store.DeleteBoard(ctx, boardID); err != nil {
		return err
	}
	s.changed(ctx, event(boardID, domain.TableBoards, domain.OpDelete, boardID, userID))
	return nil
}

// AddBoardMember adds a user to the board.
func (s *Service) AddBoardMember(ctx context.Context, userID, boardID string, req domain.MemberRequest) error {
	if req.UserID == "" {
		return domain.Invalid("userId is required")
	}
	if _, err := s.authorizeOwner(ctx, userID, boardID); err != nil {
		return err
	}
	if err := s.store.AddBoardMember(ctx, boardID, req.UserID); err != nil {
		return err
	}
	s.changed(ctx, event(boardID, domain.TableBoardMembers, domain.OpInsert, req.UserID, userID))
	return nil
}

// RemoveBoardMember removes a user from the board. The owner cannot be removed.
func (s *Service) RemoveBoardMember(ctx context.Context, userID, boardID, memberID string) error {
	b, err := s.authorizeOwner(ctx, userID, boardID)
	if err != nil {
		return err
	}
	if memberID == b.OwnerID {
		return domain.Invalid("the board owner cannot be removed")
	}
	if err := s.store.RemoveBoardMember(ctx, boardID, memberID); err != nil {
		return err
	}
	s.changed(ctx, event(boardID, domain.TableBoardMembers, domain.OpDelete, memberID, userID))
	return nil
}

// CompactResult reports how many rows a compaction rewrote.
type CompactResult struct {
	Lists int `json:"lists"`
	Cards int `json:"cards"`
}

// Compact renumbers every list and card position on the board to 0..n-1.
func (s *Service) Compact(ctx context.Context, userID, boardID string) (CompactResult, error) {
	if _, err := s.authorizeOwner(ctx, userID, boardID); err != nil {
		return CompactResult{}, err
	}
	return s.compact(ctx, boardID, userID)
}

// CompactBoard renumbers positions without an acting user. It backs the operator CLI.
func (s *Service) CompactBoard(ctx context.Context, boardID string) (CompactResult, error) {
	if _, err := s.store.GetBoard(ctx, boardID); err != nil {
		return CompactResult{}, err
	}
	return s.compact(ctx, boardID, "")
}

func (s *Service) compact(ctx context.Context, boardID, actorID string) (CompactResult, error) {
	lists, err := s.store.Lists(ctx, boardID)
	if err != nil {
		return CompactResult{}, err
	}
	listChanges := compactChanges(listItems(lists))

	var cardChanges []reorder.Change
	for _, l := range lists {
		cards, err := s.store.Cards(ctx, l.ID)
		if err != nil {
			return CompactResult{}, err
		}
		cardChanges = append(cardChanges, compactChanges(cardItems(cards))...)
	}

	if len(listChanges) > 0 {
		if err := s.store.ApplyChanges(ctx, domain.TableLists, listChanges); err != nil {
			return CompactResult{}, err
		}
	}
	if len(cardChanges) > 0 {
		if err := s.store.ApplyChanges(ctx, domain.TableCards, cardChanges); err != nil {
			return CompactResult{}, err
		}
	}
	res := CompactResult{Lists: len(listChanges), Cards: len(cardChanges)}
	if res.Lists > 0 || res.Cards > 0 {
		s.changed(ctx, event(boardID, domain.TableLists, domain.OpUpdate, "", actorID))
	}
	return res, nil
}

// compactChanges returns the writes renumbering items, or nil when they are already dense.
func compactChanges(items []reorder.Item) []reorder.Change {
	if reorder.Dense(items) {
		return nil
	}
	_, changes := reorder.Compact(items)
	return changes
}
