package logger

import (
	"context"

	"go.uber.org/zap"
)

// requestIDField is the log key that ties gateway exchanges, audit rows and
// access log lines to the inbound X-Request-ID.
const requestIDField = "request_id"

type requestIDKey struct{}

// WithRequestID stores the correlation id for everything done on behalf of
// one inbound request, including the outbound BestPay calls it triggers.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the correlation id, or "" outside a request.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// FromCtx is the logger handlers and the gateway client should use. Outside a
// request it is the plain global logger.
func FromCtx(ctx context.Context) *zap.Logger {
	if id := RequestIDFrom(ctx); id != "" {
		return L().With(zap.String(requestIDField, id))
	}
	return L()
}
