package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/monocle-dev/pms/db"
	"github.com/monocle-dev/pms/internal/services"
)

type CreateIndustryRequest struct {
	Name string `json:"industry_name"`
}

type CreateTemplateRequest struct {
	IndustryID uuid.UUID `json:"industry_id"`
	Name       string    `json:"template_name"`
	Phases     []string  `json:"phases"`
}

func templates() *services.TemplateService {
	return services.NewTemplateService(db.DB)
}

func ListIndustries(ctx *gin.Context) {
	industries, err := templates().ListIndustries(ctx.Request.Context())

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, industries)
}

func CreateIndustry(ctx *gin.Context) {
	var body CreateIndustryRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	industry, err := templates().CreateIndustry(ctx.Request.Context(), body.Name)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, industry)
}

func DeleteIndustry(ctx *gin.Context) {
	industryID, ok := pathID(ctx, "industry_id")
	if !ok {
		return
	}

	if err := templates().DeleteIndustry(ctx.Request.Context(), industryID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Industry deleted"})
}

func CreateTemplate(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var body CreateTemplateRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	template, err := templates().CreateTemplate(ctx.Request.Context(), userID, services.CreateTemplateInput{
		IndustryID: body.IndustryID,
		Name:       body.Name,
		PhaseNames: body.Phases,
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, template)
}

func SearchTemplates(ctx *gin.Context) {
	found, err := templates().SearchTemplates(ctx.Request.Context(), ctx.Query("q"))

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, found)
}

func GetTemplate(ctx *gin.Context) {
	templateID, ok := pathID(ctx, "template_id")
	if !ok {
		return
	}

	template, err := templates().GetTemplate(ctx.Request.Context(), templateID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, template)
}

func DeleteTemplate(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	templateID, ok := pathID(ctx, "template_id")
	if !ok {
		return
	}

	if err := templates().DeleteTemplate(ctx.Request.Context(), templateID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Template deleted"})
}
