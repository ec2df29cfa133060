package notifier

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"prism-board/changefeed"
)

// WorkerConfig tunes queue polling.
type WorkerConfig struct {
	Batch       int
	Visibility  time.Duration
	Idle        time.Duration
	MaxDequeues int64
}

// DefaultWorkerConfig returns the polling settings used in production.
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		Batch:       16,
		Visibility:  30 * time.Second,
		Idle:        time.Second,
		MaxDequeues: 5,
	}
}

// Worker consumes notification events from the queue.
type Worker struct {
	queue changefeed.Queue
	proc  *Processor
	cfg   WorkerConfig
	log   *log.Logger
}

// NewWorker creates a Worker.
func NewWorker(q changefeed.Queue, proc *Processor, cfg WorkerConfig, logger *log.Logger) *Worker {
	return &Worker{queue: q, proc: proc, cfg: cfg, log: logger}
}

// Run polls until ctx is done, sleeping cfg.Idle after an empty or failed poll.
func (w *Worker) Run(ctx context.Context) error {
	for {
		n, err := w.ProcessBatch(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			w.log.WithError(err).Error("dequeue notification events")
		}
		if n > 0 {
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.cfg.Idle):
		}
	}
}

// ProcessBatch handles one batch of messages and returns how many were dequeued.
// A message is deleted once handled. Failed messages stay on the queue and become
// visible again; after MaxDequeues attempts, and for undecodable payloads, they
// are dropped.
func (w *Worker) ProcessBatch(ctx context.Context) (int, error) {
	msgs, err := w.queue.Dequeue(ctx, w.cfg.Batch, w.cfg.Visibility)
	if err != nil {
		return 0, err
	}
	for _, m := range msgs {
		logger := w.log.WithFields(log.Fields{"messageId": m.ID, "dequeueCount": m.DequeueCount})
		ev, err := changefeed.Decode([]byte(m.Text))
		if err != nil {
			logger.WithError(err).Warn("dropping undecodable notification event")
			w.delete(ctx, logger, m)
			continue
		}
		created, err := w.proc.Handle(ctx, ev)
		if err != nil {
			if w.cfg.MaxDequeues > 0 && m.DequeueCount >= w.cfg.MaxDequeues {
				logger.WithError(err).Error("dropping notification event after repeated failures")
				w.delete(ctx, logger, m)
				continue
			}
			logger.WithError(err).Warn("notification event failed, leaving for redelivery")
			continue
		}
		logger.WithFields(log.Fields{"boardId": ev.BoardID, "table": ev.Table, "created": created}).Debug("notification event processed")
		w.delete(ctx, logger, m)
	}
	return len(msgs), nil
}

func (w *Worker) delete(ctx context.Context, logger *log.Entry, m changefeed.Message) {
	if err := w.queue.Delete(ctx, m); err != nil {
		logger.WithError(err).Error("delete notification event")
	}
}
