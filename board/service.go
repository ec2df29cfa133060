// Package board implements the board operations: authorisation, creation with appended
// positions, moves through the reorder package and change publication.
package board

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"prism-board/domain"
	"prism-board/reorder"
	"prism-board/storage"
)

// Store is the relational persistence the service needs.
type Store interface {
	UpsertProfile(ctx context.Context, p domain.Profile) error
	ListProfiles(ctx context.Context) ([]domain.Profile, error)
	IsAdmin(ctx context.Context, userID string) (bool, error)

	CreateBoard(ctx context.Context, b domain.Board) error
	GetBoard(ctx context.Context, boardID string) (domain.Board, error)
	ListBoards(ctx context.Context, userID string, all bool) ([]domain.Board, error)
	DeleteBoard(ctx context.Context, boardID string) error
	AddBoardMember(ctx context.Context, boardID, userID string) error
	RemoveBoardMember(ctx context.Context, boardID, userID string) error
	IsBoardMember(ctx context.Context, boardID, userID string) (bool, error)

	CreateList(ctx context.Context, l domain.List) (domain.List, error)
	GetList(ctx context.Context, listID string) (domain.List, error)
	Lists(ctx context.Context, boardID string) ([]domain.List, error)
	RenameList(ctx context.Context, listID, title string) error
	DeleteList(ctx context.Context, listID string) error
	AddListMember(ctx context.Context, listID, userID string) error
	RemoveListMember(ctx context.Context, listID, userID string) error

	CreateCard(ctx context.Context, c domain.Card) (domain.Card, error)
	GetCard(ctx context.Context, cardID string) (domain.Card, error)
	Cards(ctx context.Context, listID string) ([]domain.Card, error)
	BoardCards(ctx context.Context, boardID string) ([]domain.Card, error)
	UpdateCard(ctx context.Context, c domain.Card) error
	DeleteCard(ctx context.Context, cardID string) error
	AddCardMember(ctx context.Context, cardID, userID string) (bool, error)
	RemoveCardMember(ctx context.Context, cardID, userID string) error
	CardMembers(ctx context.Context, cardID string) ([]string, error)
	AttachLabel(ctx context.Context, cardID, labelID string) error
	DetachLabel(ctx context.Context, cardID, labelID string) error

	CreateLabel(ctx context.Context, l domain.Label) error
	GetLabel(ctx context.Context, labelID string) (domain.Label, error)
	Labels(ctx context.Context, boardID string) ([]domain.Label, error)

	AddChecklistItem(ctx context.Context, it domain.ChecklistItem) (domain.ChecklistItem, error)
	GetChecklistItem(ctx context.Context, itemID string) (domain.ChecklistItem, error)
	UpdateChecklistItem(ctx context.Context, it domain.ChecklistItem) error
	DeleteChecklistItem(ctx context.Context, itemID string) error

	AddComment(ctx context.Context, c domain.Comment) error
	GetComment(ctx context.Context, commentID string) (domain.Comment, error)
	UpdateComment(ctx context.Context, c domain.Comment) error
	DeleteComment(ctx context.Context, commentID string) error

	BoardOf(ctx context.Context, kind, id string) (string, error)
	ApplyChanges(ctx context.Context, table string, changes []reorder.Change) error
}

// Snapshots serves full boards and drops stale copies after writes.
type Snapshots interface {
	LoadSnapshot(ctx context.Context, boardID string) (domain.BoardSnapshot, error)
	Evict(ctx context.Context, boardIDs ...string) error
}

// Publisher announces committed changes.
type Publisher interface {
	Publish(ctx context.Context, ev domain.ChangeEvent) error
}

// Notifications reads and acknowledges user notifications.
type Notifications interface {
	Latest(ctx context.Context, userID string, limit int) ([]domain.Notification, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
}

// NotificationLimit is the number of notifications returned to a user.
const NotificationLimit = 10

// Service implements board operations on behalf of an acting user.
type Service struct {
	store         Store
	snapshots     Snapshots
	publisher     Publisher
	notifications Notifications
	log           *log.Logger
	now           func() time.Time
	newID         func() string
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDs overrides id generation.
func WithIDs(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// WithNotifications enables the notification endpoints.
func WithNotifications(n Notifications) Option {
	return func(s *Service) { s.notifications = n }
}

// NewService creates a Service. A nil snapshots source reads straight from the store.
func NewService(store Store, snapshots Snapshots, publisher Publisher, logger *log.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = log.StandardLogger()
	}
	if snapshots == nil {
		if loader, ok := store.(storage.SnapshotLoader); ok {
			snapshots = uncached{loader}
		}
	}
	s := &Service{
		store:     store,
		snapshots: snapshots,
		publisher: publisher,
		log:       logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type uncached struct{ storage.SnapshotLoader }

func (uncached) Evict(context.Context, ...string) error { return nil }

// authorize resolves access to a board: members and admins pass.
func (s *Service) authorize(ctx context.Context, userID, boardID string) (domain.Board, error) {
	b, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return domain.Board{}, err
	}
	ok, err := s.store.IsBoardMember(ctx, boardID, userID)
	if err != nil {
		return domain.Board{}, err
	}
	if ok {
		return b, nil
	}
	admin, err := s.store.IsAdmin(ctx, userID)
	if err != nil {
		return domain.Board{}, err
	}
	if !admin {
		return domain.Board{}, domain.ErrForbidden
	}
	return b, nil
}

// authorizeOwner allows only the board owner and admins.
func (s *Service) authorizeOwner(ctx context.Context, userID, boardID string) (domain.Board, error) {
	b, err := s.store.GetBoard(ctx, boardID)
	if err != nil {
		return domain.Board{}, err
	}
	if b.OwnerID == userID {
		return b, nil
	}
	admin, err := s.store.IsAdmin(ctx, userID)
	if err != nil {
		return domain.Board{}, err
	}
	if !admin {
		return domain.Board{}, domain.ErrForbidden
	}
	return b, nil
}

// authorizeEntity resolves the board owning an entity and checks access to it.
func (s *Service) authorizeEntity(ctx context.Context, userID, kind, id string) (string, error) {
	boardID, err := s.store.BoardOf(ctx, kind, id)
	if err != nil {
		return "", err
	}
	if _, err := s.authorize(ctx, userID, boardID); err != nil {
		return "", err
	}
	return boardID, nil
}

// changed evicts the cached board and publishes one change event. The write has already
// committed, so publication failures are logged rather than returned.
func (s *Service) changed(ctx context.Context, ev domain.ChangeEvent) {
	if s.snapshots != nil {
		if err := s.snapshots.Evict(ctx, ev.BoardID); err != nil {
			s.log.WithError(err).WithField("boardId", ev.BoardID).Error("cached board not evicted")
		}
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.log.WithError(err).WithFields(log.Fields{
			"boardId": ev.BoardID,
			"table":   ev.Table,
		}).Warn("change event not published")
	}
}

func event(boardID, table, op, entityID, actorID string) domain.ChangeEvent {
	return domain.ChangeEvent{BoardID: boardID, Table: table, Op: op, EntityID: entityID, ActorID: actorID}
}

// invalidMove turns reorder validation errors into domain validation errors.
func invalidMove(err error) error {
	if errors.Is(err, reorder.ErrIndexOutOfRange) || errors.Is(err, reorder.ErrUnknownItem) {
		return fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	return err
}
