package board

import (
	"bytes"
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/yuin/goldmark"

	"prism-board/domain"
	"prism-board/reorder"
	"prism-board/storage"
)

// CreateCard appends a card to the list.
func (s *Service) CreateCard(ctx context.Context, userID, listID string, req domain.TitleRequest) (domain.Card, error) {
	title, err := domain.NormalizeTitle(req.Title)
	if err != nil {
		return domain.Card{}, err
	}
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindList, listID)
	if err != nil {
		return domain.Card{}, err
	}
	c, err := s.store.CreateCard(ctx, domain.Card{ID: s.newID(), ListID: listID, Title: title, CreatedAt: s.now().UTC()})
	if err != nil {
		return domain.Card{}, err
	}
	s.changed(ctx, event(boardID, domain.TableCards, domain.OpInsert, c.ID, userID))
	return c, nil
}

// GetCard returns the card with its children, list title and rendered description.
func (s *Service) GetCard(ctx context.Context, userID, cardID string) (domain.CardDetail, error) {
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindCard, cardID)
	if err != nil {
		return domain.CardDetail{}, err
	}
	snap, err := s.snapshots.LoadSnapshot(ctx, boardID)
	if err != nil {
		return domain.CardDetail{}, err
	}
	for _, l := range snap.Lists {
		for _, c := range l.Cards {
			if c.ID != cardID {
				continue
			}
			html, err := renderMarkdown(c.Description)
			if err != nil {
				return domain.CardDetail{}, err
			}
			return domain.CardDetail{CardView: c, BoardID: boardID, ListTitle: l.Title, DescriptionHTML: html}, nil
		}
	}
	return domain.CardDetail{}, domain.ErrNotFound
}

// UpdateCard applies a partial update to title, description and dates.
func (s *Service) UpdateCard(ctx context.Context, userID, cardID string, p domain.CardPatch) (domain.Card, error) {
	if p.Empty() {
		return domain.Card{}, domain.Invalid("nothing to update")
	}
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindCard, cardID)
	if err != nil {
		return domain.Card{}, err
	}
	c, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return domain.Card{}, err
	}
	if p.Title != nil {
		if c.Title, err = domain.NormalizeTitle(*p.Title); err != nil {
			return domain.Card{}, err
		}
	}
	if p.Description != nil {
		c.Description = domain.NormalizeText(*p.Description)
	}
	if p.ClearStartDate {
		c.StartDate = nil
	} else if p.StartDate != nil {
		c.StartDate = p.StartDate
	}
	if p.ClearDueDate {
		c.DueDate = nil
	} else if p.DueDate != nil {
		c.DueDate = p.DueDate
	}
	if c.StartDate != nil && c.DueDate != nil && c.StartDate.After(*c.DueDate) {
		return domain.Card{}, domain.Invalid("start date is after due date")
	}
	if err := s.store.UpdateCard(ctx, c); err != nil {
		return domain.Card{}, err
	}
	s.changed(ctx, event(boardID, domain.TableCards, domain.OpUpdate, cardID, userID))
	return c, nil
}

// DeleteCard removes a card and its children.
func (s *Service) DeleteCard(ctx context.Context, userID, cardID string) error {
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindCard, cardID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteCard(ctx, cardID); err != nil {
		return err
	}
	s.changed(ctx, event(boardID, domain.TableCards, domain.OpDelete, cardID, userID))
	return nil
}

// MoveCard moves a card into req.ListID at req.Index, appending when Index is nil.
// Both lists must belong to the same board. Sibling sets are always loaded in full
// from the store.
func (s *Service) MoveCard(ctx context.Context, userID, cardID string, req domain.MoveCardRequest) ([]reorder.Change, error) {
	if req.ListID == "" {
		return nil, domain.Invalid("listId is required")
	}
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindCard, cardID)
	if err != nil {
		return nil, err
	}
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return nil, err
	}
	dstList, err := s.store.GetList(ctx, req.ListID)
	if err != nil {
		return nil, err
	}
	if dstList.BoardID != boardID {
		return nil, domain.Invalid("cards cannot move between boards")
	}

	src, err := s.store.Cards(ctx, card.ListID)
	if err != nil {
		return nil, err
	}
	dst := src
	if req.ListID != card.ListID {
		if dst, err = s.store.Cards(ctx, req.ListID); err != nil {
			return nil, err
		}
	}

	var changes []reorder.Change
	if req.Index == nil {
		_, _, changes, err = reorder.MoveToEnd(cardItems(src), cardItems(dst), cardID, req.ListID)
	} else {
		_, _, changes, err = reorder.MoveAcrossParents(cardItems(src), cardItems(dst), cardID, req.ListID, *req.Index)
	}
	if err != nil {
		return nil, invalidMove(err)
	}
	if len(changes) == 0 {
		return []reorder.Change{}, nil
	}
	if err := s.store.ApplyChanges(ctx, domain.TableCards, changes); err != nil {
		return nil, err
	}
	s.changed(ctx, event(boardID, domain.TableCards, domain.OpUpdate, cardID, userID))
	return changes, nil
}

// AttachLabel attaches a board label to the card.
func (s *Service) AttachLabel(ctx context.Context, userID, cardID, labelID string) error {
	boardID, err := s.cardAndLabel(ctx, userID, cardID, labelID)
	if err != nil {
		return err
	}
	if err := s.store.AttachLabel(ctx, cardID, labelID); err != nil {
		return err
	}
	s.changed(ctx, event(boardID, domain.TableCardLabels, domain.OpInsert, cardID, userID))
	return nil
}

// DetachLabel removes a label from the card.
func (s *Service) DetachLabel(ctx context.Context, userID, cardID, labelID string) error {
	boardID, err := s.cardAndLabel(ctx, userID, cardID, labelID)
	if err != nil {
		return err
	}
	if err := s.store.DetachLabel(ctx, cardID, labelID); err != nil {
		return err
	}
	s.changed(ctx, event(boardID, domain.TableCardLabels, domain.OpDelete, cardID, userID))
	return nil
}

func (s *Service) cardAndLabel(ctx context.Context, userID, cardID, labelID string) (string, error) {
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindCard, cardID)
	if err != nil {
		return "", err
	}
	labelBoard, err := s.store.BoardOf(ctx, storage.KindLabel, labelID)
	if err != nil {
		return "", err
	}
	if labelBoard != boardID {
		return "", domain.Invalid("label belongs to another board")
	}
	return boardID, nil
}

// AssignMember assigns a board member to the card. A new assignment publishes a
// card_members insert that notifies the assignee.
func (s *Service) AssignMember(ctx context.Context, userID, cardID, memberID string) error {
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindCard, cardID)
	if err != nil {
		return err
	}
	if err := s.requireMember(ctx, boardID, memberID); err != nil {
		return err
	}
	added, err := s.store.AddCardMember(ctx, cardID, memberID)
	if err != nil {
		return err
	}
	if !added {
		return nil
	}
	ev := event(boardID, domain.TableCardMembers, domain.OpInsert, cardID, userID)
	ev.Data, err = sonic.Marshal(domain.MemberAssignedData{CardID: cardID, UserID: memberID})
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	s.changed(ctx, ev)
	return nil
}

// UnassignMember removes a user from the card.
func (s *Service) UnassignMember(ctx context.Context, userID, cardID, memberID string) error {
	boardID, err := s.authorizeEntity(ctx, userID, storage.KindCard, cardID)
	if err != nil {
		return err
	}
	if err := s.store.RemoveCardMember(ctx, cardID, memberID); err != nil {
		return err
	}
	s.changed(ctx, event(boardID, domain.TableCardMembers, domain.OpDelete, cardID, userID))
	return nil
}

func renderMarkdown(src string) (string, error) {
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("render description: %w", err)
	}
	return buf.String(), nil
}
