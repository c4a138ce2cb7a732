package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/raphaelgruber/timepivot/internal/metrics"
)

// maxParamsLogLen caps logged request parameters so a large zoom or
// import payload cannot flood the log.
const maxParamsLogLen = 200

// slowRequestThreshold marks requests worth a WARN. Engine operations are
// in-memory lookups, so anything slower usually means the store or the
// upstream provider is dragging.
const slowRequestThreshold = 100 * time.Millisecond

// ObservabilityMiddleware logs every request with its duration and feeds
// the same timings into the engine's metrics collector, keyed as
// "mcp:<method>" next to the engine's own operation entries.
func ObservabilityMiddleware(logger *slog.Logger, collector *metrics.Collector) mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			start := time.Now()

			result, err := next(ctx, method, req)

			duration := time.Since(start)
			op := "mcp:" + method
			collector.RecordTiming(op, duration)
			if err != nil {
				collector.RecordError(op)
			}

			attrs := []any{
				"method", method,
				"duration_ms", duration.Milliseconds(),
			}
			if params := formatParams(req); params != "" {
				attrs = append(attrs, "params", truncate(params, maxParamsLogLen))
			}

			switch {
			case err != nil:
				attrs = append(attrs, "error", err.Error())
				logger.Error("request failed", attrs...)
			case duration > slowRequestThreshold:
				logger.Warn("slow request", attrs...)
			default:
				logger.Debug("request completed", attrs...)
			}

			return result, err
		}
	}
}

// formatParams renders request parameters for logging.
func formatParams(req mcp.Request) string {
	if req == nil {
		return ""
	}
	params := req.GetParams()
	if params == nil {
		return ""
	}
	return fmt.Sprintf("%+v", params)
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen < 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
