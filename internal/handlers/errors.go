package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/monocle-dev/pms/internal/services"
	"github.com/monocle-dev/pms/internal/types"
	"github.com/monocle-dev/pms/internal/utils"
)

// respondError maps a service error to its HTTP shape. Validation and conflict
// errors are keyed by field; forbidden and not-found errors carry a detail.
func respondError(ctx *gin.Context, err error) {
	se, ok := services.AsError(err)

	if !ok {
		slog.ErrorContext(ctx.Request.Context(), "request failed",
			"path", ctx.FullPath(),
			"request_id", ctx.GetString(types.ContextRequestIDKey),
			"err", err,
		)
		ctx.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
		return
	}

	switch se.Kind {
	case services.KindValidation:
		ctx.JSON(http.StatusBadRequest, gin.H{se.Field: []string{se.Message}})
	case services.KindConflict:
		ctx.JSON(http.StatusConflict, gin.H{se.Field: []string{se.Message}})
	case services.KindForbidden:
		ctx.JSON(http.StatusForbidden, gin.H{"detail": se.Message})
	case services.KindNotFound:
		ctx.JSON(http.StatusNotFound, gin.H{"detail": se.Message})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"detail": "Internal server error"})
	}
}

func badRequest(ctx *gin.Context, field, message string) {
	if field == "" {
		field = services.NonFieldErrors
	}
	ctx.JSON(http.StatusBadRequest, gin.H{field: []string{message}})
}

func invalidBody(ctx *gin.Context, err error) {
	slog.DebugContext(ctx.Request.Context(), "failed to bind JSON", "err", err)
	badRequest(ctx, "", "Invalid request")
}

// currentUserID answers 401 itself when the context carries no user.
func currentUserID(ctx *gin.Context) (uuid.UUID, bool) {
	id, err := utils.GetCurrentUserID(ctx)

	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"detail": "User not authenticated"})
		return id, false
	}

	return id, true
}

// pathID parses a UUID path parameter. A missing value answers 400, a
// malformed one 404.
func pathID(ctx *gin.Context, name string) (uuid.UUID, bool) {
	parsed, err := utils.GetUUIDParam(ctx, name)

	switch {
	case errors.Is(err, utils.ErrMissingParam):
		badRequest(ctx, name, "This field is required.")
		return parsed, false
	case err != nil:
		ctx.JSON(http.StatusNotFound, gin.H{"detail": "Not found."})
		return parsed, false
	}

	return parsed, true
}
