package notifier

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"prism-board/changefeed"
	"prism-board/domain"
	"prism-board/storage"
)

type fakeCards struct {
	cards   map[string]domain.Card
	members map[string][]string
}

func (f *fakeCards) GetCard(_ context.Context, cardID string) (domain.Card, error) {
	c, ok := f.cards[cardID]
	if !ok {
		return domain.Card{}, domain.ErrNotFound
	}
	return c, nil
}

func (f *fakeCards) CardMembers(_ context.Context, cardID string) ([]string, error) {
	return f.members[cardID], nil
}

type memSink struct {
	mu     sync.Mutex
	out    []domain.Notification
	failOn string
}

func (s *memSink) Add(_ context.Context, n domain.Notification) (domain.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.UserID == s.failOn {
		return domain.Notification{}, errors.New("table unavailable")
	}
	s.out = append(s.out, n)
	return n, nil
}

func (s *memSink) recipients() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.out))
	for i, n := range s.out {
		out[i] = n.UserID
	}
	return out
}

type queuedMessage struct {
	changefeed.Message
	deleted bool
}

type memQueue struct {
	mu   sync.Mutex
	msgs []*queuedMessage
}

func (q *memQueue) Enqueue(_ context.Context, text string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.msgs = append(q.msgs, &queuedMessage{Message: changefeed.Message{ID: text, Text: text}})
	return nil
}

func (q *memQueue) Dequeue(_ context.Context, max int, _ time.Duration) ([]changefeed.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var out []changefeed.Message
	for _, m := range q.msgs {
		if m.deleted || len(out) == max {
			continue
		}
		m.DequeueCount++
		out = append(out, m.Message)
	}
	return out, nil
}

func (q *memQueue) Delete(_ context.Context, m changefeed.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, qm := range q.msgs {
		if qm.ID == m.ID {
			qm.deleted = true
		}
	}
	return nil
}

func (q *memQueue) pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for _, m := range q.msgs {
		if !m.deleted {
			n++
		}
	}
	return n
}

func newCards() *fakeCards {
	return &fakeCards{
		cards:   map[string]domain.Card{"c1": {ID: "c1", Title: "Ship it"}},
		members: map[string][]string{"c1": {"alice", "bob", "carol"}},
	}
}

func changeEvent(t *testing.T, table, actor string, data any) domain.ChangeEvent {
	t.Helper()
	raw, err := sonic.Marshal(data)
	require.NoError(t, err)
	return domain.ChangeEvent{BoardID: "b1", Table: table, Op: domain.OpInsert, ActorID: actor, Data: raw}
}

func TestMemberAssignedNotifiesAssignee(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sink := &memSink{}
	p := NewProcessor(newCards(), sink, logger)

	n, err := p.Handle(context.Background(), changeEvent(t, domain.TableCardMembers, "alice",
		domain.MemberAssignedData{CardID: "c1", UserID: "bob"}))
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.Equal(t, []string{"bob"}, sink.recipients())
	require.Equal(t, domain.NotificationMemberAssigned, sink.out[0].Type)
	require.Equal(t, "b1", sink.out[0].BoardID)
	require.Contains(t, sink.out[0].Message, "Ship it")
}

func TestSelfAssignmentIsSilent(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sink := &memSink{}
	p := NewProcessor(newCards(), sink, logger)

	n, err := p.Handle(context.Background(), changeEvent(t, domain.TableCardMembers, "bob",
		domain.MemberAssignedData{CardID: "c1", UserID: "bob"}))
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, sink.recipients())
}

func TestCommentNotifiesMembersExceptAuthor(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sink := &memSink{}
	p := NewProcessor(newCards(), sink, logger)

	n, err := p.Handle(context.Background(), changeEvent(t, domain.TableComments, "bob",
		domain.CommentAddedData{CardID: "c1", CommentID: "m1"}))
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"alice", "carol"}, sink.recipients())
	for _, got := range sink.out {
		require.Equal(t, domain.NotificationCommentAdded, got.Type)
	}
}

func TestDeletedCardAndOtherEventsAreSkipped(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sink := &memSink{}
	p := NewProcessor(newCards(), sink, logger)
	ctx := context.Background()

	n, err := p.Handle(ctx, changeEvent(t, domain.TableCardMembers, "alice",
		domain.MemberAssignedData{CardID: "gone", UserID: "bob"}))
	require.NoError(t, err)
	require.Zero(t, n)

	update := changeEvent(t, domain.TableCards, "alice", map[string]string{})
	update.Op = domain.OpUpdate
	n, err = p.Handle(ctx, update)
	require.NoError(t, err)
	require.Zero(t, n)
	require.Empty(t, sink.recipients())
}

func enqueueEvent(t *testing.T, q *memQueue, ev domain.ChangeEvent) {
	t.Helper()
	raw, err := sonic.Marshal(ev)
	require.NoError(t, err)
	require.NoError(t, q.Enqueue(context.Background(), string(raw)))
}

func TestWorkerDeletesHandledAndPoisonMessages(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sink := &memSink{}
	q := &memQueue{}
	w := NewWorker(q, NewProcessor(newCards(), sink, logger), DefaultWorkerConfig(), logger)

	enqueueEvent(t, q, changeEvent(t, domain.TableComments, "alice", domain.CommentAddedData{CardID: "c1"}))
	require.NoError(t, q.Enqueue(context.Background(), "{broken"))

	n, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Zero(t, q.pending())
	require.Equal(t, []string{"bob", "carol"}, sink.recipients())
}

func TestWorkerLeavesFailedMessagesForRedelivery(t *testing.T) {
	logger, _ := test.NewNullLogger()
	sink := &memSink{failOn: "bob"}
	q := &memQueue{}
	cfg := DefaultWorkerConfig()
	cfg.MaxDequeues = 2
	w := NewWorker(q, NewProcessor(newCards(), sink, logger), cfg, logger)

	enqueueEvent(t, q, changeEvent(t, domain.TableCardMembers, "alice", domain.MemberAssignedData{CardID: "c1", UserID: "bob"}))

	_, err := w.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, q.pending(), "failed message should stay queued")

	_, err = w.ProcessBatch(context.Background())
	require.NoError(t, err)
	require.Zero(t, q.pending(), "message should be dropped after max dequeues")
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	logger, _ := test.NewNullLogger()
	q := &memQueue{}
	cfg := DefaultWorkerConfig()
	cfg.Idle = 5 * time.Millisecond
	w := NewWorker(q, NewProcessor(newCards(), &memSink{}, logger), cfg, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

type fakeDue struct {
	cards []storage.DueCard
	from  time.Time
	to    time.Time
}

func (f *fakeDue) CardsDueBetween(_ context.Context, from, to time.Time) ([]storage.DueCard, error) {
	f.from, f.to = from, to
	return f.cards, nil
}

func newSweeper(t *testing.T, due *fakeDue, sink Sink) (*DueSweeper, *miniredis.Miniredis) {
	t.Helper()
	m, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(m.Close)
	rc := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	logger, _ := test.NewNullLogger()

	s := NewDueSweeper(due, sink, rc, 24*time.Hour, 48*time.Hour, logger)
	s.now = func() time.Time { return time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC) }
	return s, m
}

func TestDueSweepNotifiesOnce(t *testing.T) {
	dueAt := time.Date(2030, 1, 1, 17, 0, 0, 0, time.UTC)
	due := &fakeDue{cards: []storage.DueCard{{
		Card:      domain.Card{ID: "c1", Title: "Ship it", DueDate: &dueAt},
		BoardID:   "b1",
		MemberIDs: []string{"alice", "bob"},
	}}}
	sink := &memSink{}
	s, _ := newSweeper(t, due, sink)
	ctx := context.Background()

	n, err := s.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, time.Date(2030, 1, 2, 8, 0, 0, 0, time.UTC), due.to)
	require.Equal(t, domain.NotificationDueSoon, sink.out[0].Type)

	n, err = s.Sweep(ctx)
	require.NoError(t, err)
	require.Zero(t, n, "second sweep must not repeat reminders")

	moved := dueAt.Add(time.Hour)
	due.cards[0].Card.DueDate = &moved
	n, err = s.Sweep(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, n, "a new due date is a new reminder")
}

func TestDueSweepReleasesKeyOnFailure(t *testing.T) {
	dueAt := time.Date(2030, 1, 1, 17, 0, 0, 0, time.UTC)
	due := &fakeDue{cards: []storage.DueCard{{
		Card:      domain.Card{ID: "c1", Title: "Ship it", DueDate: &dueAt},
		MemberIDs: []string{"bob"},
	}}}
	sink := &memSink{failOn: "bob"}
	s, m := newSweeper(t, due, sink)

	_, err := s.Sweep(context.Background())
	require.Error(t, err)
	require.False(t, m.Exists(dueKey("c1", "bob", dueAt)))

	sink.failOn = ""
	n, err := s.Sweep(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)
}
