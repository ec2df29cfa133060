package board

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"prism-board/domain"
	"prism-board/storage"
)

// ListLabels returns the labels defined on the board.
func (s *Service) ListLabels(ctx context.Context, userID, boardID string) ([]domain.Label, error) {
	if _, err := s.authorize(ctx, userID, boardID); err != nil {
		return nil, err
	}
	return s.store.Labels(ctx, boardID)
}

// CreateLabel defines a label on the board and, when req.CardID is set, attaches it to
// that card.
func (s *Service) CreateLabel(ctx context.Context, userID, boardID string, req domain.LabelRequest) (domain.Label, error) {
	name, err := domain.NormalizeTitle(req.Name)
	if err != nil {
		return domain.Label{}, err
	}
	color := strings.TrimSpace(req.Color)
	if color == "" {
		return domain.Label{}, domain.Invalid("color is required")
	}
	if _, err := s.authorize(ctx, userID, boardID); err != nil {
		return domain.Label{}, err
	}
	if req.CardID != "" {
		cardBoard, err := s.store.BoardOf(ctx, storage.KindCard, req.CardID)
		if err != nil {
			return domain.Label{}, err
		}
		if cardBoard != boardID {
			return domain.Label{}, domain.Invalid("card belongs to another board")
		}
	}
	l := domain.Label{ID: s.newID(), BoardID: boardID, Name: name, Color: color}
	if err := s.store.CreateLabel(ctx, l); err != nil {
		return domain.Label{}, err
	}
	if req.CardID != "" {
		if err := s.store.AttachLabel(ctx, req.CardID, l.ID); err != nil {
			return domain.Label{}, err
		}
	}
	s.changed(ctx, event(boardID, domain.TableLabels, domain.OpInsert, l.ID, userID))
	return l, nil
}

// AddChecklistItem appends an item to the card's checklist.
func (s *Service) AddChecklistItem(ctx context.Context, userID, cardID string, req domain.ChecklistItemRequest) (domain.ChecklistItem, error) {
	title, err := domain.NormalizeTitle(req.Title)
	if err != nil {
		return domain.ChecklistItem{}, err
	}
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindCard, cardID)
	if err != nil {
		return domain.ChecklistItem{}, err
	}
	it, err := s.store.AddChecklistItem(ctx, domain.ChecklistItem{ID: s.newID(), CardID: cardID, Title: title, DueDate: req.DueDate})
	if err != nil {
		return domain.ChecklistItem{}, err
	}
	s.changed(ctx, event(boardID, domain.TableChecklistItems, domain.OpInsert, it.ID, userID))
	return it, nil
}

// UpdateChecklistItem applies a partial update to a checklist item.
func (s *Service) UpdateChecklistItem(ctx context.Context, userID, itemID string, p domain.ChecklistItemPatch) (domain.ChecklistItem, error) {
	if p.Empty() {
		return domain.ChecklistItem{}, domain.Invalid("nothing to update")
	}
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindChecklistItem, itemID)
	if err != nil {
		return domain.ChecklistItem{}, err
	}
	it, err := s.store.GetChecklistItem(ctx, itemID)
	if err != nil {
		return domain.ChecklistItem{}, err
	}
	if p.Title != nil {
		if it.Title, err = domain.NormalizeTitle(*p.Title); err != nil {
			return domain.ChecklistItem{}, err
		}
	}
	if p.Completed != nil {
		it.Completed = *p.Completed
	}
	if p.ClearDueDate {
		it.DueDate = nil
	} else if p.DueDate != nil {
		it.DueDate = p.DueDate
	}
	if err := s.store.UpdateChecklistItem(ctx, it); err != nil {
		return domain.ChecklistItem{}, err
	}
	s.changed(ctx, event(boardID, domain.TableChecklistItems, domain.OpUpdate, itemID, userID))
	return it, nil
}

// DeleteChecklistItem removes a checklist item.
func (s *Service) DeleteChecklistItem(ctx context.Context, userID, itemID string) error {
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindChecklistItem, itemID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteChecklistItem(ctx, itemID); err != nil {
		return err
	}
	s.changed(ctx, event(boardID, domain.TableChecklistItems, domain.OpDelete, itemID, userID))
	return nil
}

// AddComment posts a comment on the card as the user.
func (s *Service) AddComment(ctx context.Context, userID, cardID string, req domain.CommentRequest) (domain.Comment, error) {
	content := domain.NormalizeText(req.Content)
	if content == "" {
		return domain.Comment{}, domain.Invalid("content is required")
	}
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindCard, cardID)
	if err != nil {
		return domain.Comment{}, err
	}
	now := s.now().UTC()
	c := domain.Comment{ID: s.newID(), CardID: cardID, UserID: userID, Content: content, CreatedAt: now, UpdatedAt: now}
	if err := s.store.AddComment(ctx, c); err != nil {
		return domain.Comment{}, err
	}
	ev := event(boardID, domain.TableComments, domain.OpInsert, c.ID, userID)
	if ev.Data, err = sonic.Marshal(domain.CommentAddedData{CardID: cardID, CommentID: c.ID}); err != nil {
		return domain.Comment{}, fmt.Errorf("marshal event data: %w", err)
	}
	s.changed(ctx, ev)
	return c, nil
}

// EditComment replaces the content of the user's own comment.
func (s *Service) EditComment(ctx context.Context, userID, commentID string, req domain.CommentRequest) (domain.Comment, error) {
	content := domain.NormalizeText(req.Content)
	if content == "" {
		return domain.Comment{}, domain.Invalid("content is required")
	}
	c, boardID, err := s.ownComment(ctx, userID, commentID)
	if err != nil {
		return domain.Comment{}, err
	}
	c.Content = content
	c.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateComment(ctx, c); err != nil {
		return domain.Comment{}, err
	}
	s.changed(ctx, event(boardID, domain.TableComments, domain.OpUpdate, commentID, userID))
	return c, nil
}

// DeleteComment removes the user's own comment.
func (s *Service) DeleteComment(ctx context.Context, userID, commentID string) error {
	_, boardID, err := s.ownComment(ctx, userID, commentID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteComment(ctx, commentID); err != nil {
		return err
	}
	s.changed(ctx, event(boardID, domain.TableComments, domain.OpDelete, commentID, userID))
	return nil
}

func (s *Service) ownComment(ctx context.Context, userID, commentID string) (domain.Comment, string, error) {
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindComment, commentID)
	if err != nil {
		return domain.Comment{}, "", err
	}
	c, err := s.store.GetComment(ctx, commentID)
	if err != nil {
		return domain.Comment{}, "", err
	}
	if c.UserID != userID {
		return domain.Comment{}, "", domain.ErrForbidden
	}
	return c, boardID, nil
}
