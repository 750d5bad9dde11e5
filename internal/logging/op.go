package logging

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Op represents a logical client operation (a screen action, roughly) whose
// duration and outcome we want on the log stream.
type Op struct {
	name   string
	logger *slog.Logger
	start  time.Time
}

// StartOp derives an operation-scoped logger from the provided context,
// tagging every record with the operation name and a fresh id. It returns the
// derived context and the operation handle.
func StartOp(ctx context.Context, name string) (context.Context, *Op) {
	if ctx == nil {
		ctx = context.Background()
	}

	logger := FromContext(ctx)

	opID := RequestIDFromContext(ctx)
	if opID == "" {
		opID = uuid.NewString()
		ctx = WithRequestID(ctx, opID)
	}

	logger = logger.With(
		slog.String("op", name),
		slog.String("op_id", opID),
	)
	ctx = WithLogger(ctx, logger)

	return ctx, &Op{name: name, logger: logger, start: time.Now()}
}

// End finalizes the operation and emits a completion log entry. A non-nil err
// marks the operation failed.
func (o *Op) End(err error) {
	if o == nil {
		return
	}
	if err != nil {
		o.logger.Warn("operation failed", slog.Duration("duration", time.Since(o.start)), "error", err)
		return
	}
	o.logger.Info("operation completed", slog.Duration("duration", time.Since(o.start)))
}
