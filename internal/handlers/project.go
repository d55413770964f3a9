package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/monocle-dev/pms/db"
	"github.com/monocle-dev/pms/internal/models"
	"github.com/monocle-dev/pms/internal/services"
	"github.com/monocle-dev/pms/internal/types"
	"github.com/monocle-dev/pms/internal/utils"
)

type CreateProjectRequest struct {
	OrganizationID uuid.UUID  `json:"organization_id"`
	Name           string     `json:"project_name"`
	Description    string     `json:"description"`
	Deadline       string     `json:"deadline"`
	TemplateID     *uuid.UUID `json:"template_id"`
}

type CreatePhaseRequest struct {
	Name string `json:"phase_name"`
}

func projects() *services.ProjectService {
	return services.NewProjectService(db.DB)
}

func CreateProject(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var body CreateProjectRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	deadline, err := services.ParseDate("deadline", body.Deadline)

	if err != nil {
		respondError(ctx, err)
		return
	}

	project, err := projects().Create(ctx.Request.Context(), userID, services.CreateProjectInput{
		OrganizationID: body.OrganizationID,
		Name:           body.Name,
		Description:    body.Description,
		Deadline:       deadline,
		TemplateID:     body.TemplateID,
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"project": project,
		"membership": gin.H{
			"user_id":    userID,
			"project_id": project.ID,
			"role":       models.ProjectRoleManager,
		},
	})
}

func ListProjects(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	list, err := projects().ListForUser(ctx.Request.Context(), userID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, list)
}

// GetProjectStats reads the project from ?project_id=.
func GetProjectStats(ctx *gin.Context) {
	projectID, err := utils.GetUUIDQuery(ctx, "project_id")

	switch {
	case errors.Is(err, utils.ErrMissingParam):
		badRequest(ctx, "project_id", "This field is required.")
		return
	case err != nil:
		ctx.JSON(http.StatusNotFound, gin.H{"detail": "Project not found."})
		return
	}

	stats, err := projects().Stats(ctx.Request.Context(), projectID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, stats)
}

func ListProjectMembers(ctx *gin.Context) {
	projectID, ok := pathID(ctx, "project_id")
	if !ok {
		return
	}

	members, err := projects().ListMembers(ctx.Request.Context(), projectID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	out := make([]gin.H, len(members))
	for i, m := range members {
		out[i] = gin.H{"id": m.ID, "username": m.Username, "role": m.Role}
	}

	ctx.JSON(http.StatusOK, out)
}

func ListProjectNonMembers(ctx *gin.Context) {
	projectID, ok := pathID(ctx, "project_id")
	if !ok {
		return
	}

	users, err := projects().ListNonMembers(ctx.Request.Context(), projectID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.NewUserSummaries(users))
}

func AddProjectMembers(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	projectID, ok := pathID(ctx, "project_id")
	if !ok {
		return
	}

	var body UsernamesRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	added, err := projects().AddMembers(ctx.Request.Context(), projectID, userID, body.Usernames)

	if err != nil {
		respondError(ctx, err)
		return
	}

	BroadCastRefresh(projectID.String())

	ctx.JSON(http.StatusCreated, gin.H{"added": added})
}

func ListProjectPhases(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	projectID, ok := pathID(ctx, "project_id")
	if !ok {
		return
	}

	view, err := projects().ListPhases(ctx.Request.Context(), projectID, userID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

func ListProjectTasks(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	projectID, ok := pathID(ctx, "project_id")
	if !ok {
		return
	}

	view, err := projects().ListTasks(ctx.Request.Context(), projectID, userID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, view)
}

func CreatePhase(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	projectID, ok := pathID(ctx, "project_id")
	if !ok {
		return
	}

	var body CreatePhaseRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	phase, err := workflow().CreatePhase(ctx.Request.Context(), userID, projectID, body.Name)

	if err != nil {
		respondError(ctx, err)
		return
	}

	BroadCastRefresh(projectID.String())

	ctx.JSON(http.StatusCreated, phase)
}
