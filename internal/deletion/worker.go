package deletion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"warden/internal/platform/kv"
	"warden/internal/platform/logger"
	"warden/pkg/platform/sentinel"
)

const DefaultPollInterval = 30 * time.Second

// Worker drains the deletion queue on an interval. It checkpoints the id of the
// last consumed entry so each tick resumes where the previous one stopped. A
// crash between processing and checkpointing re-processes those entries.
type Worker struct {
	queue     *Queue
	store     kv.Store
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

type WorkerOption func(*Worker)

func WithPollInterval(interval time.Duration) WorkerOption {
	return func(w *Worker) {
		if interval > 0 {
			w.interval = interval
		}
	}
}

func WithBatchSize(n int) WorkerOption {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) {
		w.logger = logger
	}
}

func NewWorker(queue *Queue, store kv.Store, opts ...WorkerOption) *Worker {
	w := &Worker{
		queue:     queue,
		store:     store,
		interval:  DefaultPollInterval,
		batchSize: DefaultBatchSize,
		logger:    logger.Discard(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run ticks until ctx is cancelled. Tick failures are logged and retried on
// the next tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			n, err := w.Tick(ctx)
			if err != nil {
				w.logger.ErrorContext(ctx, "deletion queue tick failed",
					"processed", n,
					"error", err,
				)
				continue
			}
			if n > 0 {
				w.logger.InfoContext(ctx, "deletion requests processed", "processed", n)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Tick processes one batch after the checkpoint and advances the checkpoint
// past every entry it consumed, including on partial failure.
func (w *Worker) Tick(ctx context.Context) (int, error) {
	offset, err := w.store.Get(ctx, kv.DeleteQueueOffsetKey)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return 0, fmt.Errorf("load deletion queue offset: %w", err)
	}

	batch, procErr := w.queue.ProcessAfter(ctx, offset, w.batchSize)
	if batch.LastID != "" {
		if err := w.store.Set(ctx, kv.DeleteQueueOffsetKey, batch.LastID, 0); err != nil {
			return len(batch.Processed), errors.Join(procErr, fmt.Errorf("save deletion queue offset: %w", err))
		}
	}
	return len(batch.Processed), procErr
}
