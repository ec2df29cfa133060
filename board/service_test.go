package board

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"prism-board/domain"
	"prism-board/reorder"
	"prism-board/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.ChangeEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, ev domain.ChangeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
}

func (p *recordingPublisher) tables() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, ev := range p.events {
		out[i] = ev.Table
	}
	return out
}

// brokenSnapshots serves from the store but cannot evict.
type brokenSnapshots struct{ storage.SnapshotLoader }

func (brokenSnapshots) Evict(context.Context, ...string) error {
	return errors.New("redis unavailable")
}

// failingStore fails position writes.
type failingStore struct {
	*storage.Store
}

func (failingStore) ApplyChanges(context.Context, string, []reorder.Change) error {
	return errors.New("disk full")
}

type fixture struct {
	svc   *Service
	store *storage.Store
	pub   *recordingPublisher
	board domain.Board
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "board.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	store := storage.NewStore(db)
	pub := &recordingPublisher{}
	logger, _ := test.NewNullLogger()

	var n int
	ids := func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
	clock := func() time.Time { return time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC) }
	svc := NewService(store, nil, pub, logger, WithIDs(ids), WithClock(clock))

	b, err := svc.CreateBoard(context.Background(), "owner", domain.CreateBoardRequest{Title: "Roadmap"})
	require.NoError(t, err)
	pub.reset()
	return &fixture{svc: svc, store: store, pub: pub, board: b}
}

func (f *fixture) lists(t *testing.T, titles ...string) []domain.List {
	t.Helper()
	var out []domain.List
	for _, title := range titles {
		l, err := f.svc.CreateList(context.Background(), "owner", f.board.ID, domain.TitleRequest{Title: title})
		require.NoError(t, err)
		out = append(out, l)
	}
	return out
}

func (f *fixture) cards(t *testing.T, listID string, titles ...string) []domain.Card {
	t.Helper()
	var out []domain.Card
	for _, title := range titles {
		c, err := f.svc.CreateCard(context.Background(), "owner", listID, domain.TitleRequest{Title: title})
		require.NoError(t, err)
		out = append(out, c)
	}
	return out
}

func titlesOf(cards []domain.Card) []string {
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = c.Title
	}
	return out
}

func intPtr(i int) *int { return &i }

func TestCreateAppendsAndPublishes(t *testing.T) {
	f := newFixture(t)
	lists := f.lists(t, "Todo", "Doing", "Done")
	for i, l := range lists {
		require.Equal(t, i, l.Position)
	}
	cards := f.cards(t, lists[0].ID, "A", "B")
	require.Equal(t, 1, cards[1].Position)
	require.Equal(t, []string{
		domain.TableLists, domain.TableLists, domain.TableLists,
		domain.TableCards, domain.TableCards,
	}, f.pub.tables())
	for _, ev := range f.pub.events {
		require.Equal(t, f.board.ID, ev.BoardID)
		require.Equal(t, domain.OpInsert, ev.Op)
	}
}

func TestCreateRejectsBlankTitle(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateList(context.Background(), "owner", f.board.ID, domain.TitleRequest{Title: "  "})
	require.ErrorIs(t, err, domain.ErrValidation)
	require.Empty(t, f.pub.tables())
}

func TestAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "Todo")

	_, err := f.svc.GetBoard(ctx, "stranger", f.board.ID, "")
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.CreateCard(ctx, "stranger", lists[0].ID, domain.TitleRequest{Title: "x"})
	require.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.svc.GetBoard(ctx, "owner", "missing", "")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, f.store.UpsertProfile(ctx, domain.Profile{ID: "root"}))
	require.NoError(t, f.store.SetAdmin(ctx, "root", true))
	_, err = f.svc.GetBoard(ctx, "root", f.board.ID, "")
	require.NoError(t, err)
	boards, err := f.svc.ListBoards(ctx, "root")
	require.NoError(t, err)
	require.Len(t, boards, 1)

	require.NoError(t, f.svc.AddBoardMember(ctx, "owner", f.board.ID, domain.MemberRequest{UserID: "u2"}))
	require.ErrorIs(t, f.svc.DeleteBoard(ctx, "u2", f.board.ID), domain.ErrForbidden)
	require.ErrorIs(t, f.svc.RemoveBoardMember(ctx, "owner", f.board.ID, "owner"), domain.ErrValidation)
}

func TestMoveListScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "A", "B", "C")
	f.pub.reset()

	changes, err := f.svc.MoveList(ctx, "owner", f.board.ID, domain.MoveListRequest{ListID: lists[0].ID, ToIndex: intPtr(2)})
	require.NoError(t, err)
	require.Len(t, changes, 3)

	got, err := f.store.Lists(ctx, f.board.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"B", "C", "A"}, []string{got[0].Title, got[1].Title, got[2].Title})
	for i, l := range got {
		require.Equal(t, i, l.Position)
	}
	require.Equal(t, []string{domain.TableLists}, f.pub.tables())
}

func TestMoveListNoOpPublishesNothing(t *testing.T) {
	f := newFixture(t)
	lists := f.lists(t, "A", "B")
	f.pub.reset()
	changes, err := f.svc.MoveList(context.Background(), "owner", f.board.ID, domain.MoveListRequest{ListID: lists[1].ID, ToIndex: intPtr(1)})
	require.NoError(t, err)
	require.Empty(t, changes)
	require.Empty(t, f.pub.tables())
}

func TestMoveListOutOfRange(t *testing.T) {
	f := newFixture(t)
	lists := f.lists(t, "A", "B")
	f.pub.reset()
	_, err := f.svc.MoveList(context.Background(), "owner", f.board.ID, domain.MoveListRequest{ListID: lists[0].ID, ToIndex: intPtr(2)})
	require.ErrorIs(t, err, domain.ErrValidation)
	require.ErrorIs(t, err, reorder.ErrIndexOutOfRange)
	require.Empty(t, f.pub.tables())

	_, err = f.svc.MoveList(context.Background(), "owner", f.board.ID, domain.MoveListRequest{ListID: "ghost", ToIndex: intPtr(0)})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMoveListRequiresIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "A", "B")
	f.pub.reset()

	_, err := f.svc.MoveList(ctx, "owner", f.board.ID, domain.MoveListRequest{ListID: lists[1].ID})
	require.ErrorIs(t, err, domain.ErrValidation)

	got, err := f.store.Lists(ctx, f.board.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "B"}, []string{got[0].Title, got[1].Title})
	require.Empty(t, f.pub.tables())
}

func TestMoveCardAcrossLists(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "Source", "Dest")
	src := f.cards(t, lists[0].ID, "X", "Y")
	f.cards(t, lists[1].ID, "M")
	f.pub.reset()

	changes, err := f.svc.MoveCard(ctx, "owner", src[1].ID, domain.MoveCardRequest{ListID: lists[1].ID, Index: intPtr(0)})
	require.NoError(t, err)
	require.Equal(t, reorder.Change{ID: src[1].ID, Position: 0, ParentID: lists[1].ID}, changes[0])

	left, err := f.store.Cards(ctx, lists[0].ID)
	require.NoError(t, err)
	require.Equal(t, []string{"X"}, titlesOf(left))
	right, err := f.store.Cards(ctx, lists[1].ID)
	require.NoError(t, err)
	require.Equal(t, []string{"Y", "M"}, titlesOf(right))
	require.Equal(t, 1, right[1].Position)
	require.Equal(t, []string{domain.TableCards}, f.pub.tables())
}

func TestMoveCardAppendsByDefault(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "Source", "Empty")
	src := f.cards(t, lists[0].ID, "P")

	_, err := f.svc.MoveCard(ctx, "owner", src[0].ID, domain.MoveCardRequest{ListID: lists[1].ID})
	require.NoError(t, err)
	moved, err := f.store.GetCard(ctx, src[0].ID)
	require.NoError(t, err)
	require.Equal(t, lists[1].ID, moved.ListID)
	require.Equal(t, 0, moved.Position)
}

func TestMoveCardRejectsNegativeIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "Source", "Dest")
	src := f.cards(t, lists[0].ID, "X")
	f.cards(t, lists[1].ID, "M", "N")
	f.pub.reset()

	for _, listID := range []string{lists[1].ID, lists[0].ID} {
		_, err := f.svc.MoveCard(ctx, "owner", src[0].ID, domain.MoveCardRequest{ListID: listID, Index: intPtr(-1)})
		require.ErrorIs(t, err, domain.ErrValidation)
		require.ErrorIs(t, err, reorder.ErrIndexOutOfRange)
	}

	right, err := f.store.Cards(ctx, lists[1].ID)
	require.NoError(t, err)
	require.Equal(t, []string{"M", "N"}, titlesOf(right))
	require.Empty(t, f.pub.tables())
}

func TestMoveCardWithinList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "Only")
	cards := f.cards(t, lists[0].ID, "A", "B", "C")

	_, err := f.svc.MoveCard(ctx, "owner", cards[0].ID, domain.MoveCardRequest{ListID: lists[0].ID})
	require.NoError(t, err)
	got, err := f.store.Cards(ctx, lists[0].ID)
	require.NoError(t, err)
	require.Equal(t, []string{"B", "C", "A"}, titlesOf(got))
}

func TestMoveCardRejectsOtherBoard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "Mine")
	cards := f.cards(t, lists[0].ID, "A")

	other, err := f.svc.CreateBoard(ctx, "owner", domain.CreateBoardRequest{Title: "Other"})
	require.NoError(t, err)
	otherList, err := f.svc.CreateList(ctx, "owner", other.ID, domain.TitleRequest{Title: "Theirs"})
	require.NoError(t, err)

	_, err = f.svc.MoveCard(ctx, "owner", cards[0].ID, domain.MoveCardRequest{ListID: otherList.ID})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestMoveCardPersistenceFailurePublishesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "A", "B")
	cards := f.cards(t, lists[0].ID, "X")
	f.pub.reset()

	logger, _ := test.NewNullLogger()
	svc := NewService(failingStore{f.store}, nil, f.pub, logger)
	_, err := svc.MoveCard(ctx, "owner", cards[0].ID, domain.MoveCardRequest{ListID: lists[1].ID})
	require.Error(t, err)
	require.Empty(t, f.pub.tables())

	stored, err := f.store.GetCard(ctx, cards[0].ID)
	require.NoError(t, err)
	require.Equal(t, lists[0].ID, stored.ListID)
}

func TestPublishFailureIsLoggedNotReturned(t *testing.T) {
	f := newFixture(t)
	logger, hook := test.NewNullLogger()
	pub := &recordingPublisher{err: errors.New("redis down")}
	svc := NewService(f.store, nil, pub, logger)

	_, err := svc.CreateList(context.Background(), "owner", f.board.ID, domain.TitleRequest{Title: "Todo"})
	require.NoError(t, err)
	require.NotNil(t, hook.LastEntry())
	require.Equal(t, "change event not published", hook.LastEntry().Message)
}

func TestEvictFailureIsLoggedAndStillPublishes(t *testing.T) {
	f := newFixture(t)
	logger, hook := test.NewNullLogger()
	pub := &recordingPublisher{}
	svc := NewService(f.store, brokenSnapshots{f.store}, pub, logger)

	_, err := svc.CreateList(context.Background(), "owner", f.board.ID, domain.TitleRequest{Title: "Todo"})
	require.NoError(t, err)
	require.Len(t, hook.AllEntries(), 1)
	require.Equal(t, "cached board not evicted", hook.LastEntry().Message)
	require.Equal(t, f.board.ID, hook.LastEntry().Data["boardId"])
	require.Equal(t, []string{domain.TableLists}, pub.tables())
}

func TestAssignMemberPublishesOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "Todo")
	cards := f.cards(t, lists[0].ID, "A")
	require.NoError(t, f.svc.AddBoardMember(ctx, "owner", f.board.ID, domain.MemberRequest{UserID: "u2"}))
	f.pub.reset()

	require.NoError(t, f.svc.AssignMember(ctx, "owner", cards[0].ID, "u2"))
	require.NoError(t, f.svc.AssignMember(ctx, "owner", cards[0].ID, "u2"))
	require.Len(t, f.pub.events, 1)

	ev := f.pub.events[0]
	require.True(t, ev.Notifiable())
	var data domain.MemberAssignedData
	require.NoError(t, sonic.Unmarshal(ev.Data, &data))
	require.Equal(t, domain.MemberAssignedData{CardID: cards[0].ID, UserID: "u2"}, data)

	require.ErrorIs(t, f.svc.AssignMember(ctx, "owner", cards[0].ID, "stranger"), domain.ErrValidation)
}

func TestCommentsAuthorOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "Todo")
	cards := f.cards(t, lists[0].ID, "A")
	require.NoError(t, f.svc.AddBoardMember(ctx, "owner", f.board.ID, domain.MemberRequest{UserID: "u2"}))

	c, err := f.svc.AddComment(ctx, "u2", cards[0].ID, domain.CommentRequest{Content: "looks good"})
	require.NoError(t, err)
	_, err = f.svc.EditComment(ctx, "owner", c.ID, domain.CommentRequest{Content: "hijack"})
	require.ErrorIs(t, err, domain.ErrForbidden)
	edited, err := f.svc.EditComment(ctx, "u2", c.ID, domain.CommentRequest{Content: "looks great"})
	require.NoError(t, err)
	require.Equal(t, "looks great", edited.Content)
	require.ErrorIs(t, f.svc.DeleteComment(ctx, "owner", c.ID), domain.ErrForbidden)
	require.NoError(t, f.svc.DeleteComment(ctx, "u2", c.ID))
	_, err = f.svc.AddComment(ctx, "u2", cards[0].ID, domain.CommentRequest{Content: " "})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestGetCardRendersDescription(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "Todo")
	cards := f.cards(t, lists[0].ID, "A")
	desc := "**bold** move"
	_, err := f.svc.UpdateCard(ctx, "owner", cards[0].ID, domain.CardPatch{Description: &desc})
	require.NoError(t, err)

	detail, err := f.svc.GetCard(ctx, "owner", cards[0].ID)
	require.NoError(t, err)
	require.Equal(t, "Todo", detail.ListTitle)
	require.Equal(t, f.board.ID, detail.BoardID)
	require.Contains(t, detail.DescriptionHTML, "<strong>bold</strong>")
}

func TestUpdateCardDates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "Todo")
	cards := f.cards(t, lists[0].ID, "A")
	start := time.Date(2030, 3, 5, 0, 0, 0, 0, time.UTC)
	due := start.Add(-time.Hour)

	_, err := f.svc.UpdateCard(ctx, "owner", cards[0].ID, domain.CardPatch{StartDate: &start, DueDate: &due})
	require.ErrorIs(t, err, domain.ErrValidation)

	due = start.Add(48 * time.Hour)
	c, err := f.svc.UpdateCard(ctx, "owner", cards[0].ID, domain.CardPatch{StartDate: &start, DueDate: &due})
	require.NoError(t, err)
	require.True(t, c.DueDate.Equal(due))

	c, err = f.svc.UpdateCard(ctx, "owner", cards[0].ID, domain.CardPatch{ClearDueDate: true})
	require.NoError(t, err)
	require.Nil(t, c.DueDate)
	require.NotNil(t, c.StartDate)

	_, err = f.svc.UpdateCard(ctx, "owner", cards[0].ID, domain.CardPatch{})
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestLabelsAndChecklist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "Todo")
	cards := f.cards(t, lists[0].ID, "A")

	l, err := f.svc.CreateLabel(ctx, "owner", f.board.ID, domain.LabelRequest{Name: "bug", Color: "#ff0000", CardID: cards[0].ID})
	require.NoError(t, err)
	labels, err := f.svc.ListLabels(ctx, "owner", f.board.ID)
	require.NoError(t, err)
	require.Len(t, labels, 1)

	require.NoError(t, f.svc.DetachLabel(ctx, "owner", cards[0].ID, l.ID))
	require.NoError(t, f.svc.AttachLabel(ctx, "owner", cards[0].ID, l.ID))

	first, err := f.svc.AddChecklistItem(ctx, "owner", cards[0].ID, domain.ChecklistItemRequest{Title: "write"})
	require.NoError(t, err)
	second, err := f.svc.AddChecklistItem(ctx, "owner", cards[0].ID, domain.ChecklistItemRequest{Title: "ship"})
	require.NoError(t, err)
	require.Equal(t, 0, first.Position)
	require.Equal(t, 1, second.Position)

	done := true
	updated, err := f.svc.UpdateChecklistItem(ctx, "owner", first.ID, domain.ChecklistItemPatch{Completed: &done})
	require.NoError(t, err)
	require.True(t, updated.Completed)
	require.NoError(t, f.svc.DeleteChecklistItem(ctx, "owner", second.ID))

	detail, err := f.svc.GetCard(ctx, "owner", cards[0].ID)
	require.NoError(t, err)
	require.Len(t, detail.Labels, 1)
	require.Len(t, detail.Checklist, 1)
}

func TestCalendar(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "Todo")
	cards := f.cards(t, lists[0].ID, "Launch", "Undated")
	due := time.Date(2030, 4, 2, 15, 0, 0, 0, time.UTC)
	itemDue := time.Date(2030, 4, 1, 8, 0, 0, 0, time.UTC)
	_, err := f.svc.UpdateCard(ctx, "owner", cards[0].ID, domain.CardPatch{DueDate: &due})
	require.NoError(t, err)
	_, err = f.svc.AddChecklistItem(ctx, "owner", cards[0].ID, domain.ChecklistItemRequest{Title: "Rehearse", DueDate: &itemDue})
	require.NoError(t, err)

	events, err := f.svc.Calendar(ctx, "owner", f.board.ID, "")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, domain.CalendarChecklist, events[0].Kind)
	require.Equal(t, "2030-04-01", events[0].Date)
	require.Equal(t, "Launch", events[0].CardTitle)
	require.Equal(t, domain.CalendarCard, events[1].Kind)
	require.Equal(t, "Todo", events[1].ListTitle)

	filtered, err := f.svc.Calendar(ctx, "owner", f.board.ID, "nobody")
	require.NoError(t, err)
	require.Empty(t, filtered)
}

func TestMemberFilterIsReadOnlyView(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "Todo", "Doing")
	cards := f.cards(t, lists[1].ID, "A", "B")
	require.NoError(t, f.svc.AddBoardMember(ctx, "owner", f.board.ID, domain.MemberRequest{UserID: "u2"}))
	require.NoError(t, f.svc.AssignMember(ctx, "owner", cards[1].ID, "u2"))

	view, err := f.svc.GetBoard(ctx, "owner", f.board.ID, "u2")
	require.NoError(t, err)
	require.Len(t, view.Lists, 1)
	require.Len(t, view.Lists[0].Cards, 1)

	// Moves use the full sibling set, so index 0 is the real head of the list.
	_, err = f.svc.MoveCard(ctx, "owner", cards[1].ID, domain.MoveCardRequest{ListID: lists[1].ID, Index: intPtr(0)})
	require.NoError(t, err)
	got, err := f.store.Cards(ctx, lists[1].ID)
	require.NoError(t, err)
	require.Equal(t, []string{"B", "A"}, titlesOf(got))
}

func TestCompactRestoresDensity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "A", "B")
	cards := f.cards(t, lists[0].ID, "X", "Y")
	require.NoError(t, f.store.ApplyChanges(ctx, domain.TableLists, []reorder.Change{{ID: lists[1].ID, Position: 7}}))
	require.NoError(t, f.store.ApplyChanges(ctx, domain.TableCards, []reorder.Change{{ID: cards[0].ID, Position: 4}, {ID: cards[1].ID, Position: 9}}))
	f.pub.reset()

	_, err := f.svc.Compact(ctx, "someone", f.board.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)

	res, err := f.svc.Compact(ctx, "owner", f.board.ID)
	require.NoError(t, err)
	require.Equal(t, CompactResult{Lists: 1, Cards: 2}, res)
	require.Len(t, f.pub.events, 1)

	res, err = f.svc.CompactBoard(ctx, f.board.ID)
	require.NoError(t, err)
	require.Equal(t, CompactResult{}, res)
}

func TestCompactDenseBoardWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "A", "B")
	f.cards(t, lists[0].ID, "X", "Y")
	f.pub.reset()

	logger, _ := test.NewNullLogger()
	svc := NewService(failingStore{f.store}, nil, f.pub, logger)
	res, err := svc.CompactBoard(ctx, f.board.ID)
	require.NoError(t, err)
	require.Equal(t, CompactResult{}, res)
	require.Empty(t, f.pub.tables())
}

func TestDeleteListCascadesCards(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	lists := f.lists(t, "Todo")
	cards := f.cards(t, lists[0].ID, "A")
	require.NoError(t, f.svc.DeleteList(ctx, "owner", lists[0].ID))
	_, err := f.store.GetCard(ctx, cards[0].ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

type memNotifications struct {
	items []domain.Notification
}

func (m *memNotifications) Latest(ctx context.Context, userID string, limit int) ([]domain.Notification, error) {
	var out []domain.Notification
	for _, n := range m.items {
		if n.UserID == userID && len(out) < limit {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNotifications) MarkRead(ctx context.Context, userID, id string) error {
	for i := range m.items {
		if m.items[i].UserID == userID && m.items[i].ID == id {
			m.items[i].Read = true
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *memNotifications) MarkAllRead(ctx context.Context, userID string) (int, error) {
	n := 0
	for i := range m.items {
		if m.items[i].UserID == userID && !m.items[i].Read {
			m.items[i].Read = true
			n++
		}
	}
	return n, nil
}

func TestNotificationsDelegate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Notifications(ctx, "owner")
	require.Error(t, err)

	notes := &memNotifications{}
	for i := 0; i < 12; i++ {
		notes.items = append(notes.items, domain.Notification{ID: fmt.Sprint(i), UserID: "owner"})
	}
	logger, _ := test.NewNullLogger()
	svc := NewService(f.store, nil, nil, logger, WithNotifications(notes))
	got, err := svc.Notifications(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, got, NotificationLimit)
	require.NoError(t, svc.MarkNotificationRead(ctx, "owner", "3"))
	require.ErrorIs(t, svc.MarkNotificationRead(ctx, "owner", "99"), domain.ErrNotFound)
	n, err := svc.MarkAllNotificationsRead(ctx, "owner")
	require.NoError(t, err)
	require.Equal(t, 11, n)
}
