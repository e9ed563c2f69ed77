package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"warden/internal/platform/kv"
	"warden/internal/platform/logger"
	"warden/internal/platform/metrics"
	"warden/pkg/platform/sentinel"
	"warden/pkg/requestcontext"
)

const defaultReadCount = 10

// Stream field names. Shared with every other writer of the audit logs.
const (
	fieldUserID    = "user_id"
	fieldAction    = "action"
	fieldResult    = "result"
	fieldTimestamp = "timestamp"
	fieldMetadata  = "metadata"
)

// Trail is the append-only audit log. Each event lands in the global log and in
// the acting user's log; the two appends are independent and never rolled back.
type Trail struct {
	store   kv.Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures a Trail.
type Option func(*Trail)

func WithLogger(logger *slog.Logger) Option {
	return func(t *Trail) {
		t.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Trail) {
		t.metrics = m
	}
}

func NewTrail(store kv.Store, opts ...Option) *Trail {
	t := &Trail{
		store:  store,
		logger: logger.Discard(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Record appends event to the global and per-user logs. Both appends are
// attempted; if either fails the joined error is returned and whatever was
// written stays written.
func (t *Trail) Record(ctx context.Context, event Event) error {
	if event.UserID == "" {
		event.UserID = ActorUnknown
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	fields := encode(event)

	var errs []error
	if _, err := t.store.LogAppend(ctx, kv.AuditEventsKey, fields); err != nil {
		errs = append(errs, fmt.Errorf("append global audit log: %w", err))
	}
	if _, err := t.store.LogAppend(ctx, kv.AuditByUserKey(event.UserID), fields); err != nil {
		errs = append(errs, fmt.Errorf("append user audit log: %w", err))
	}
	if len(errs) == 0 {
		return nil
	}

	if t.metrics != nil {
		for range errs {
			t.metrics.IncrementAuditWriteFailures()
		}
	}
	if len(errs) == 1 {
		t.logger.WarnContext(ctx, "audit event written to one log only",
			"action", string(event.Action),
			"user_id", event.UserID,
			"error", errs[0],
		)
	}
	return errors.Join(errs...)
}

// ReadLast returns up to n of the most recent global events, newest first.
// n <= 0 reads the default of 10.
func (t *Trail) ReadLast(ctx context.Context, n int) ([]Event, error) {
	return t.read(ctx, kv.AuditEventsKey, n)
}

// ReadLastForUser returns up to n of the most recent events for userID, newest first.
func (t *Trail) ReadLastForUser(ctx context.Context, userID string, n int) ([]Event, error) {
	return t.read(ctx, kv.AuditByUserKey(userID), n)
}

func (t *Trail) read(ctx context.Context, key string, n int) ([]Event, error) {
	if n <= 0 {
		n = defaultReadCount
	}
	entries, err := t.store.LogRevRange(ctx, key, int64(n))
	if err != nil {
		return nil, fmt.Errorf("read audit log: %w", err)
	}
	events := make([]Event, 0, len(entries))
	for _, entry := range entries {
		event, err := decode(entry)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, nil
}

func encode(event Event) map[string]string {
	metadata := event.Metadata
	if len(metadata) == 0 {
		metadata = []byte("{}")
	}
	return map[string]string{
		fieldUserID:    event.UserID,
		fieldAction:    string(event.Action),
		fieldResult:    string(event.Result),
		fieldTimestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		fieldMetadata:  string(metadata),
	}
}

func decode(entry kv.LogEntry) (Event, error) {
	ts, err := time.Parse(time.RFC3339Nano, entry.Fields[fieldTimestamp])
	if err != nil {
		return Event{}, fmt.Errorf("audit entry %s timestamp: %w", entry.ID, sentinel.ErrMalformed)
	}
	return Event{
		ID:        entry.ID,
		UserID:    entry.Fields[fieldUserID],
		Action:    Action(entry.Fields[fieldAction]),
		Result:    Result(entry.Fields[fieldResult]),
		Timestamp: ts,
		Metadata:  []byte(entry.Fields[fieldMetadata]),
	}, nil
}
