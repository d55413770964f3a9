package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/monocle-dev/pms/internal/middleware"
	"github.com/monocle-dev/pms/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(target string) *gin.Context {
	gin.SetMode(gin.TestMode)
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	ctx.Request = httptest.NewRequest("GET", target, nil)
	return ctx
}

func TestGetUUIDParam(t *testing.T) {
	id := uuid.New()

	ctx := testContext("/")
	ctx.Params = gin.Params{{Key: "project_id", Value: id.String()}, {Key: "bad", Value: "42"}}

	got, err := GetUUIDParam(ctx, "project_id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = GetUUIDParam(ctx, "bad")
	assert.ErrorIs(t, err, ErrInvalidParam)

	_, err = GetUUIDParam(ctx, "missing")
	assert.ErrorIs(t, err, ErrMissingParam)
}

func TestGetUUIDQuery(t *testing.T) {
	id := uuid.New()

	got, err := GetUUIDQuery(testContext("/stats?project_id="+id.String()), "project_id")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = GetUUIDQuery(testContext("/stats"), "project_id")
	assert.ErrorIs(t, err, ErrMissingParam)
}

func TestGetCurrentUser(t *testing.T) {
	ctx := testContext("/")

	_, err := GetCurrentUserID(ctx)
	assert.Error(t, err)

	ctx.Set(types.ContextUserKey, "not a user")
	_, err = GetCurrentUser(ctx)
	assert.Error(t, err)

	id := uuid.New()
	ctx.Set(types.ContextUserKey, middleware.AuthenticatedUser{ID: id, Username: "alice"})
	got, err := GetCurrentUserID(ctx)
	require.NoError(t, err)
	assert.Equal(t, id, got)
}
