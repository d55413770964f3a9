package utils

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var (
	ErrMissingParam = errors.New("missing identifier")
	ErrInvalidParam = errors.New("invalid identifier")
)

// GetUUIDParam parses the named path parameter as a UUID.
func GetUUIDParam(ctx *gin.Context, name string) (uuid.UUID, error) {
	return parseUUID(ctx.Param(name))
}

// GetUUIDQuery parses the named query parameter as a UUID.
func GetUUIDQuery(ctx *gin.Context, name string) (uuid.UUID, error) {
	return parseUUID(ctx.Query(name))
}

func parseUUID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)

	if raw == "" {
		return uuid.Nil, ErrMissingParam
	}

	id, err := uuid.Parse(raw)

	if err != nil {
		return uuid.Nil, ErrInvalidParam
	}

	return id, nil
}
