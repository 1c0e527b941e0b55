package ctxmanage

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"
)

type ctxKey string

const TraceIdKey ctxKey = "1"

// GetTraceIdOfRequest returns the trace id stored by middleware.Logger.
func GetTraceIdOfRequest(c *gin.Context) string {
	return TraceIdFromContext(c.Request.Context())
}

// TraceIdFromContext returns the trace id of ctx, or "Unknown" for work
// that did not start from a request (CLI commands, background jobs).
func TraceIdFromContext(ctx context.Context) string {
	traceId, ok := ctx.Value(TraceIdKey).(string)
	if !ok {
		slog.Debug("trace id not present in the context")
		traceId = "Unknown"
	}
	return traceId
}

func WithTraceId(ctx context.Context, traceId string) context.Context {
	return context.WithValue(ctx, TraceIdKey, traceId)
}
