package audit

import (
	"context"
	"log/slog"

	"warden/pkg/requestcontext"
)

// Recorder persists audit events. *Trail is the production implementation.
type Recorder interface {
	Record(ctx context.Context, event Event) error
}

// Emit logs event to the structured logger and records it. A failed audit write
// is logged and swallowed: the primary effect the caller already performed
// stands, and the caller never sees the error.
func Emit(ctx context.Context, logger *slog.Logger, recorder Recorder, event Event) {
	requestID := requestcontext.RequestID(ctx)

	if logger != nil {
		args := []any{
			"event", string(event.Action),
			"log_type", "audit",
			"user_id", event.UserID,
			"result", string(event.Result),
		}
		if requestID != "" {
			args = append(args, "request_id", requestID)
		}
		logger.InfoContext(ctx, string(event.Action), args...)
	}

	if recorder == nil {
		return
	}
	if err := recorder.Record(ctx, event); err != nil && logger != nil {
		logger.ErrorContext(ctx, "audit write failed",
			"action", string(event.Action),
			"user_id", event.UserID,
			"error", err,
		)
	}
}
