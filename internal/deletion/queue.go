// Package deletion queues account deletion requests on a durable log and erases
// the user's privacy data and role assignments when a request is processed.
//
// Delivery is at least once. Processing is idempotent (erasing data that is
// already gone is a no-op) but every pass over an entry appends another
// delete_request_processed audit event.
package deletion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"warden/internal/audit"
	"warden/internal/platform/kv"
	"warden/internal/platform/logger"
	"warden/internal/platform/metrics"
	"warden/pkg/platform/sentinel"
	"warden/pkg/requestcontext"
)

const DefaultBatchSize = 10

const (
	fieldUserID      = "user_id"
	fieldReason      = "reason"
	fieldRequestedAt = "requested_at"
)

// Request is one queued deletion request. ID is the log-assigned entry id.
type Request struct {
	ID          string
	UserID      string
	Reason      string
	RequestedAt time.Time
}

// Batch is the outcome of one pass over the queue.
type Batch struct {
	Processed []Request
	Skipped   int
	// LastID is the id of the last entry consumed (processed or skipped)
	// before the pass ended or failed; empty when nothing was consumed.
	LastID string
}

// PrivacyEraser erases preferences and the consent ledger; *privacy.Store satisfies it.
type PrivacyEraser interface {
	DeleteUserData(ctx context.Context, userID string) error
}

// RoleEraser drops every role assignment of a user; *access.Service satisfies it.
type RoleEraser interface {
	ClearUserRoles(ctx context.Context, userID string) error
}

type Queue struct {
	store   kv.Store
	privacy PrivacyEraser
	roles   RoleEraser
	auditor audit.Recorder
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Queue)

func WithLogger(logger *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = logger
	}
}

func WithAuditor(auditor audit.Recorder) Option {
	return func(q *Queue) {
		q.auditor = auditor
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(q *Queue) {
		q.metrics = m
	}
}

func New(store kv.Store, privacy PrivacyEraser, roles RoleEraser, opts ...Option) (*Queue, error) {
	if store == nil {
		return nil, errors.New("queue store is required")
	}
	if privacy == nil {
		return nil, errors.New("privacy eraser is required")
	}
	if roles == nil {
		return nil, errors.New("role eraser is required")
	}
	q := &Queue{
		store:   store,
		privacy: privacy,
		roles:   roles,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Enqueue appends a deletion request for userID and returns its entry id.
func (q *Queue) Enqueue(ctx context.Context, userID, reason string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id is required: %w", sentinel.ErrInvalidInput)
	}
	requestedAt := requestcontext.Now(ctx)
	fields := map[string]string{
		fieldUserID:      userID,
		fieldReason:      reason,
		fieldRequestedAt: requestedAt.Format(time.RFC3339Nano),
	}
	id, err := q.store.LogAppend(ctx, kv.DeleteQueueKey, fields)
	if err != nil {
		return "", fmt.Errorf("enqueue deletion request: %w", err)
	}
	if q.metrics != nil {
		q.metrics.IncrementDeletionEnqueued()
	}

	audit.Emit(ctx, q.logger, q.auditor, audit.Event{
		UserID: userID,
		Action: audit.ActionDeleteRequestEnqueued,
		Result: audit.ResultSuccess,
		Metadata: audit.Metadata(map[string]string{
			"entry_id":       id,
			fieldUserID:      userID,
			fieldReason:      reason,
			fieldRequestedAt: fields[fieldRequestedAt],
		}),
	})
	return id, nil
}

// ProcessBatch processes up to count of the oldest queued requests. The queue
// keeps no consumer offset, so repeated calls see the same entries again.
// On a store failure it returns the requests processed so far with the error.
func (q *Queue) ProcessBatch(ctx context.Context, count int) ([]Request, error) {
	batch, err := q.ProcessAfter(ctx, "", count)
	return batch.Processed, err
}

// ProcessAfter processes up to count requests queued strictly after the entry
// afterID ("" starts at the oldest entry).
func (q *Queue) ProcessAfter(ctx context.Context, afterID string, count int) (Batch, error) {
	if count <= 0 {
		count = DefaultBatchSize
	}
	start := time.Now()
	defer func() {
		if q.metrics != nil {
			q.metrics.ObserveDeletionBatch(time.Since(start).Seconds())
		}
	}()

	entries, err := q.store.LogRange(ctx, kv.DeleteQueueKey, afterID, int64(count))
	if err != nil {
		return Batch{}, fmt.Errorf("read deletion queue: %w", err)
	}

	var batch Batch
	for _, entry := range entries {
		req := q.toRequest(ctx, entry)
		if req.UserID == "" {
			q.logger.WarnContext(ctx, "skipping deletion request without user id",
				"entry_id", entry.ID,
			)
			batch.Skipped++
			batch.LastID = entry.ID
			continue
		}
		if err := q.erase(ctx, req.UserID); err != nil {
			q.recordProcessed(len(batch.Processed))
			return batch, fmt.Errorf("process deletion request %s: %w", entry.ID, err)
		}

		audit.Emit(ctx, q.logger, q.auditor, audit.Event{
			UserID: req.UserID,
			Action: audit.ActionDeleteRequestProcessed,
			Result: audit.ResultSuccess,
			Metadata: audit.Metadata(map[string]string{
				"entry_id":  entry.ID,
				fieldReason: req.Reason,
			}),
		})
		batch.Processed = append(batch.Processed, req)
		batch.LastID = entry.ID
	}
	q.recordProcessed(len(batch.Processed))
	return batch, nil
}

func (q *Queue) erase(ctx context.Context, userID string) error {
	if err := q.privacy.DeleteUserData(ctx, userID); err != nil {
		return err
	}
	return q.roles.ClearUserRoles(ctx, userID)
}

func (q *Queue) recordProcessed(n int) {
	if q.metrics != nil && n > 0 {
		q.metrics.AddDeletionProcessed(n)
	}
}

func (q *Queue) toRequest(ctx context.Context, entry kv.LogEntry) Request {
	req := Request{
		ID:     entry.ID,
		UserID: entry.Fields[fieldUserID],
		Reason: entry.Fields[fieldReason],
	}
	if raw := entry.Fields[fieldRequestedAt]; raw != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			q.logger.WarnContext(ctx, "deletion request has unreadable timestamp",
				"entry_id", entry.ID,
				"requested_at", raw,
			)
		}
		req.RequestedAt = ts
	}
	return req
}
