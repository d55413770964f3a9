package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/pms/db"
	"github.com/monocle-dev/pms/internal/services"
)

type RenamePhaseRequest struct {
	Name string `json:"phase_name"`
}

func workflow() *services.WorkflowService {
	return services.NewWorkflowService(db.DB)
}

func GetPhase(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	phaseID, ok := pathID(ctx, "phase_id")
	if !ok {
		return
	}

	detail, err := workflow().GetPhaseDetail(ctx.Request.Context(), userID, phaseID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, detail)
}

func RenamePhase(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	phaseID, ok := pathID(ctx, "phase_id")
	if !ok {
		return
	}

	var body RenamePhaseRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	phase, err := workflow().RenamePhase(ctx.Request.Context(), userID, phaseID, body.Name)

	if err != nil {
		respondError(ctx, err)
		return
	}

	BroadCastRefresh(phase.ProjectID.String())

	ctx.JSON(http.StatusOK, phase)
}

func DeletePhase(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	phaseID, ok := pathID(ctx, "phase_id")
	if !ok {
		return
	}

	phase, err := workflow().DeletePhase(ctx.Request.Context(), userID, phaseID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	BroadCastRefresh(phase.ProjectID.String())

	ctx.JSON(http.StatusOK, gin.H{"message": "Phase deleted"})
}
