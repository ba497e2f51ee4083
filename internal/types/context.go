package types

import "context"

// Private key types keep callers from colliding with plain string keys.
type (
	requestIDCtxKey struct{}
	loggerCtxKey    struct{}
)

// WithRequestID tags ctx with the id that follows one event through the
// relay: the X-Request-ID of an HTTP call or the SQS message id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDCtxKey{}, id)
}

// GetRequestID returns the id set by WithRequestID, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDCtxKey{}).(string)
	return id
}

// WithLogger attaches a Logger already scoped to the current event.
func WithLogger(ctx context.Context, logger Logger) context.Context {
	return context.WithValue(ctx, loggerCtxKey{}, logger)
}

// LoggerFromContext returns the scoped Logger, or nil.
func LoggerFromContext(ctx context.Context) Logger {
	l, _ := ctx.Value(loggerCtxKey{}).(Logger)
	return l
}

// LoggerOr returns the scoped Logger, falling back to base.
func LoggerOr(ctx context.Context, base Logger) Logger {
	if l := LoggerFromContext(ctx); l != nil {
		return l
	}
	return base
}
