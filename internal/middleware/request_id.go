package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/monocle-dev/pms/internal/types"
)

const RequestIDHeader = "X-Request-ID"

// RequestID reads X-Request-ID if provided, otherwise generates one, and echoes
// it in the response.
func RequestID() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		rid := ctx.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = uuid.NewString()
		}

		ctx.Set(types.ContextRequestIDKey, rid)
		ctx.Header(RequestIDHeader, rid)
		ctx.Next()
	}
}

// RequestLogger logs one line per request once the handler chain is done.
func RequestLogger() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()

		ctx.Next()

		slog.InfoContext(ctx.Request.Context(), "request",
			"method", ctx.Request.Method,
			"path", ctx.FullPath(),
			"status", ctx.Writer.Status(),
			"duration", time.Since(start),
			"request_id", ctx.GetString(types.ContextRequestIDKey),
		)
	}
}
