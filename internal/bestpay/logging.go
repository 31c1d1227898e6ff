package bestpay

import (
	"context"
	"net/http"
	"time"

	"bestpay-client/internal/logger"

	"go.uber.org/zap"
)

const redactedValue = "******"

// sensitiveFields are outbound keys masked before they reach a log line or audit row.
var sensitiveFields = map[string]struct{}{
	"merchantPwd": {},
}

// Redact returns a copy of fields with credentials masked.
func Redact(fields map[string]string) map[string]string {
	out := make(map[string]string, len(fields))
	for k, v := range fields {
		if _, ok := sensitiveFields[k]; ok && v != "" {
			out[k] = redactedValue
			continue
		}
		out[k] = v
	}
	return out
}

type opKey struct{}

func withOperation(ctx context.Context, op Operation) context.Context {
	return context.WithValue(ctx, opKey{}, op)
}

// OperationFrom returns the operation a transport call belongs to, if any.
func OperationFrom(ctx context.Context) Operation {
	op, _ := ctx.Value(opKey{}).(Operation)
	return op
}

// LoggingTransport traces every call of the wrapped transport. The shared key is
// never part of the outbound fields, and credentials in them are masked.
type LoggingTransport struct {
	next Transport
	log  *zap.Logger
}

// NewLoggingTransport wraps next. A nil log means the request-scoped global logger.
func NewLoggingTransport(next Transport, log *zap.Logger) *LoggingTransport {
	return &LoggingTransport{next: next, log: log}
}

func (t *LoggingTransport) Get(ctx context.Context, url string, fields map[string]string) (string, error) {
	return t.trace(ctx, http.MethodGet, url, fields, t.next.Get)
}

func (t *LoggingTransport) Post(ctx context.Context, url string, fields map[string]string) (string, error) {
	return t.trace(ctx, http.MethodPost, url, fields, t.next.Post)
}

type transportCall func(ctx context.Context, url string, fields map[string]string) (string, error)

func (t *LoggingTransport) trace(ctx context.Context, method, url string, fields map[string]string, call transportCall) (string, error) {
	log := t.logger(ctx).With(
		zap.String("operation", string(OperationFrom(ctx))),
		zap.String("method", method),
		zap.String("url", url),
	)
	log.Info("bestpay request", zap.Any("fields", Redact(fields)))

	start := time.Now()
	body, err := call(ctx, url, fields)
	if err != nil {
		log.Error("bestpay transport failed",
			zap.Duration("latency", time.Since(start)),
			zap.Error(err),
		)
		return "", err
	}

	log.Info("bestpay response",
		zap.String("response", body),
		zap.Duration("latency", time.Since(start)),
	)
	return body, nil
}

func (t *LoggingTransport) logger(ctx context.Context) *zap.Logger {
	if t.log == nil {
		return logger.FromCtx(ctx)
	}
	if id := logger.RequestIDFrom(ctx); id != "" {
		return t.log.With(zap.String("request_id", id))
	}
	return t.log
}
