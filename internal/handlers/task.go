package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/monocle-dev/pms/internal/services"
	"github.com/monocle-dev/pms/internal/types"
)

type CreateTaskRequest struct {
	PhaseID     uuid.UUID `json:"phase_id"`
	Name        string    `json:"task_name"`
	Description string    `json:"description"`
	Deadline    string    `json:"deadline"`
}

type UpdateTaskStatusRequest struct {
	Status string `json:"status"`
}

// taskID reads the compact task identifier from the path.
func taskID(ctx *gin.Context) (string, bool) {
	id := strings.TrimSpace(ctx.Param("task_id"))

	if id == "" {
		badRequest(ctx, "task_id", "This field is required.")
		return "", false
	}

	return id, true
}

func CreateTask(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var body CreateTaskRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	deadline, err := services.ParseDate("deadline", body.Deadline)

	if err != nil {
		respondError(ctx, err)
		return
	}

	task, err := workflow().CreateTask(ctx.Request.Context(), userID, services.CreateTaskInput{
		PhaseID:     body.PhaseID,
		Name:        body.Name,
		Description: body.Description,
		Deadline:    deadline,
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	BroadCastRefresh(task.ProjectID.String())

	ctx.JSON(http.StatusCreated, task)
}

func GetTask(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	id, ok := taskID(ctx)
	if !ok {
		return
	}

	detail, err := workflow().GetTaskDetail(ctx.Request.Context(), userID, id)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"task":      detail.Task,
		"assignees": types.NewUserSummaries(detail.Assignees),
		"role":      detail.Role,
	})
}

func UpdateTaskStatus(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	id, ok := taskID(ctx)
	if !ok {
		return
	}

	var body UpdateTaskStatusRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	task, err := workflow().UpdateTaskStatus(ctx.Request.Context(), userID, id, body.Status)

	if err != nil {
		respondError(ctx, err)
		return
	}

	BroadCastRefresh(task.ProjectID.String())

	ctx.JSON(http.StatusOK, task)
}

func AssignTask(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	id, ok := taskID(ctx)
	if !ok {
		return
	}

	var body UsernamesRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	task, created, err := workflow().AssignTask(ctx.Request.Context(), userID, id, body.Usernames)

	if err != nil {
		respondError(ctx, err)
		return
	}

	if created > 0 {
		BroadCastRefresh(task.ProjectID.String())
	}

	ctx.JSON(http.StatusOK, gin.H{"assigned": created})
}

func UnassignTask(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	id, ok := taskID(ctx)
	if !ok {
		return
	}

	task, err := workflow().UnassignTask(ctx.Request.Context(), userID, id, ctx.Param("username"))

	if err != nil {
		respondError(ctx, err)
		return
	}

	BroadCastRefresh(task.ProjectID.String())

	ctx.JSON(http.StatusOK, gin.H{"message": "Assignee removed"})
}

func ListTaskAssignees(ctx *gin.Context) {
	id, ok := taskID(ctx)
	if !ok {
		return
	}

	users, err := workflow().ListTaskAssignees(ctx.Request.Context(), id)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.NewUserSummaries(users))
}

func ListTaskNonAssignees(ctx *gin.Context) {
	id, ok := taskID(ctx)
	if !ok {
		return
	}

	users, err := workflow().ListNonAssignees(ctx.Request.Context(), id)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.NewUserSummaries(users))
}
