package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/pms/db"
	"github.com/monocle-dev/pms/internal/services"
	"github.com/monocle-dev/pms/internal/types"
)

type CreateOrganizationRequest struct {
	Name            string `json:"organization_name"`
	Password        string `json:"organization_password"`
	PasswordConfirm string `json:"confirm_organization_password"`
}

type AuthenticateOrganizationRequest struct {
	Name     string `json:"organization_name"`
	Password string `json:"organization_password"`
}

type SearchOrganizationRequest struct {
	Name string `json:"organization_name"`
}

type UsernamesRequest struct {
	Usernames []string `json:"usernames"`
}

type RevokeAdminRequest struct {
	AdminUsername string `json:"admin_username"`
}

func organizations() *services.OrganizationService {
	return services.NewOrganizationService(db.DB)
}

func CreateOrganization(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var body CreateOrganizationRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	org, err := organizations().Create(ctx.Request.Context(), userID, services.CreateOrganizationInput{
		Name:            body.Name,
		Password:        body.Password,
		PasswordConfirm: body.PasswordConfirm,
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, org)
}

func ListOrganizations(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	orgs, err := organizations().ListForUser(ctx.Request.Context(), userID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, orgs)
}

// SearchOrganizations is the list-style search: ?q= empty yields [].
func SearchOrganizations(ctx *gin.Context) {
	orgs, err := organizations().Search(ctx.Request.Context(), ctx.Query("q"))

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, orgs)
}

// SearchOrganizationsStrict is the explicit-query search: an empty name is a 400.
func SearchOrganizationsStrict(ctx *gin.Context) {
	var body SearchOrganizationRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	orgs, err := organizations().SearchStrict(ctx.Request.Context(), body.Name)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, orgs)
}

func AuthenticateOrganization(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var body AuthenticateOrganizationRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	membership, err := organizations().Authenticate(ctx.Request.Context(), userID, body.Name, body.Password)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, membership)
}

func GetOrganization(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	detail, err := organizations().GetDetail(ctx.Request.Context(), ctx.Param("slug"), userID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, detail)
}

func ListOrganizationAdmins(ctx *gin.Context) {
	orgID, ok := pathID(ctx, "organization_id")
	if !ok {
		return
	}

	users, err := organizations().ListAdmins(ctx.Request.Context(), orgID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.NewUserSummaries(users))
}

func ListOrganizationNonAdmins(ctx *gin.Context) {
	orgID, ok := pathID(ctx, "organization_id")
	if !ok {
		return
	}

	users, err := organizations().ListNonAdmins(ctx.Request.Context(), orgID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, types.NewUserSummaries(users))
}

func PromoteOrganizationAdmins(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	orgID, ok := pathID(ctx, "organization_id")
	if !ok {
		return
	}

	var body UsernamesRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	promoted, err := organizations().PromoteToAdmin(ctx.Request.Context(), orgID, userID, body.Usernames)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"promoted": promoted})
}

func RevokeOrganizationAdmin(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	orgID, ok := pathID(ctx, "organization_id")
	if !ok {
		return
	}

	var body RevokeAdminRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	if err := organizations().RevokeAdmin(ctx.Request.Context(), orgID, userID, body.AdminUsername); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Administrator rights revoked"})
}

func ExitOrganization(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	orgID, ok := pathID(ctx, "organization_id")
	if !ok {
		return
	}

	if err := organizations().Exit(ctx.Request.Context(), orgID, userID); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "You have left the organization"})
}
