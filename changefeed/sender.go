package changefeed

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// SenderConfig sizes the event sender.
type SenderConfig struct {
	Workers        int
	Buffer         int
	EnqueueTimeout time.Duration
	HandoffTimeout time.Duration
}

// DefaultSenderConfig returns the settings used when the environment sets none.
func DefaultSenderConfig() SenderConfig {
	return SenderConfig{
		Workers:        8,
		Buffer:         1024,
		EnqueueTimeout: 30 * time.Second,
		HandoffTimeout: 15 * time.Millisecond,
	}
}

type sendJob struct {
	payload []byte
}

// EventSender enqueues notification events on a bounded worker pool. When the pool
// cannot accept a job within the handoff timeout the job is enqueued inline.
type EventSender struct {
	queue   Queue
	cfg     SenderConfig
	log     *log.Logger
	jobs    chan sendJob
	wg      sync.WaitGroup
	closeMu sync.Mutex
	closed  bool
}

// NewEventSender starts cfg.Workers workers enqueueing on q.
func NewEventSender(q Queue, cfg SenderConfig, logger *log.Logger) *EventSender {
	if logger == nil {
		panic("Logger is not initialized")
	}
	def := DefaultSenderConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.Buffer < 0 {
		cfg.Buffer = 0
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = def.EnqueueTimeout
	}
	s := &EventSender{
		queue: q,
		cfg:   cfg,
		log:   logger,
		jobs:  make(chan sendJob, cfg.Buffer),
	}
	for i := 0; i < cfg.Workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	logger.Infof("event sender started, workers: %d, buffer: %d, timeout: %v, handoff: %v",
		cfg.Workers, cfg.Buffer, cfg.EnqueueTimeout, cfg.HandoffTimeout)
	return s
}

// Send hands payload to the pool, enqueueing inline when the pool is saturated or closed.
func (s *EventSender) Send(ctx context.Context, payload []byte) {
	if s.tryEnqueueJob(sendJob{payload: payload}) {
		return
	}
	s.log.Warn("event sender saturated, enqueueing inline")
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.EnqueueTimeout)
	defer cancel()
	s.enqueue(ctx, -1, payload)
}

// Close stops accepting jobs and waits for queued jobs to drain.
func (s *EventSender) Close() {
	s.closeMu.Lock()
	if !s.closed {
		s.closed = true
		close(s.jobs)
	}
	s.closeMu.Unlock()
	s.wg.Wait()
}

func (s *EventSender) worker(id int) {
	defer s.wg.Done()
	for j := range s.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.EnqueueTimeout)
		s.enqueue(ctx, id, j.payload)
		cancel()
	}
}

func (s *EventSender) enqueue(ctx context.Context, worker int, payload []byte) {
	if err := s.queue.Enqueue(ctx, string(payload)); err != nil {
		s.log.WithError(err).WithField("worker", worker).Error("notification event enqueue failed")
	}
}

func (s *EventSender) tryEnqueueJob(job sendJob) bool {
	if ok, closed := trySendNonBlocking(s.jobs, job); closed {
		return false
	} else if ok {
		return true
	}

	if s.cfg.HandoffTimeout <= 0 {
		return false
	}

	timer := time.NewTimer(s.cfg.HandoffTimeout)
	defer timer.Stop()

	ok, closed := sendWithTimer(s.jobs, job, timer.C)
	if closed {
		return false
	}
	return ok
}

func trySendNonBlocking(ch chan sendJob, job sendJob) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	default:
		return false, false
	}
}

func sendWithTimer(ch chan sendJob, job sendJob, timer <-chan time.Time) (ok bool, closed bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			closed = true
		}
	}()

	select {
	case ch <- job:
		return true, false
	case <-timer:
		return false, false
	}
}
