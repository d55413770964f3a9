package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/pms/db"
	"github.com/monocle-dev/pms/internal/auth"
	"github.com/monocle-dev/pms/internal/models"
	"github.com/monocle-dev/pms/internal/services"
	"github.com/monocle-dev/pms/internal/types"
)

type CreateUserRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginUserRequest accepts the username or the email in any of the three fields.
type LoginUserRequest struct {
	Login    string `json:"login"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UpdateUserRequest struct {
	Username string `json:"username"`
}

type DeleteUserRequest struct {
	Password string `json:"password"`
}

// CookieDomain scopes the session cookie; empty means the request host.
var CookieDomain string

func setTokenCookie(ctx *gin.Context, token string, maxAge int) {
	http.SetCookie(ctx.Writer, &http.Cookie{
		Name:     types.TokenCookieName,
		Value:    token,
		Path:     "/",
		Domain:   CookieDomain,
		MaxAge:   maxAge,
		Secure:   true,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

func issueToken(ctx *gin.Context, status int, user *models.User) {
	token, err := auth.GenerateJWT(user.ID, user.Username)

	if err != nil {
		respondError(ctx, err)
		return
	}

	setTokenCookie(ctx, token, int(auth.TokenTTL().Seconds()))

	ctx.JSON(status, gin.H{
		"user":  types.NewUserResponse(user),
		"token": token,
	})
}

func CreateUser(ctx *gin.Context) {
	var body CreateUserRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	user, err := services.NewUserService(db.DB).Register(ctx.Request.Context(), services.RegisterInput{
		Username: body.Username,
		Email:    body.Email,
		Password: body.Password,
	})

	if err != nil {
		respondError(ctx, err)
		return
	}

	issueToken(ctx, http.StatusCreated, user)
}

func LoginUser(ctx *gin.Context) {
	var body LoginUserRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	login := body.Login
	for _, candidate := range []string{body.Username, body.Email} {
		if strings.TrimSpace(login) == "" {
			login = candidate
		}
	}

	user, err := services.NewUserService(db.DB).Authenticate(ctx.Request.Context(), login, body.Password)

	if err != nil {
		respondError(ctx, err)
		return
	}

	issueToken(ctx, http.StatusOK, user)
}

func Me(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	user, err := services.NewUserService(db.DB).Get(ctx.Request.Context(), userID)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"user": types.NewUserResponse(user)})
}

func LogoutUser(ctx *gin.Context) {
	setTokenCookie(ctx, "", -1)

	ctx.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}

func UpdateUser(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var body UpdateUserRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		invalidBody(ctx, err)
		return
	}

	user, err := services.NewUserService(db.DB).UpdateUsername(ctx.Request.Context(), userID, body.Username)

	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User updated successfully",
		"user":    types.NewUserResponse(user),
	})
}

func DeleteUser(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var body DeleteUserRequest

	if err := ctx.ShouldBindJSON(&body); err != nil {
		badRequest(ctx, "password", "Password is required for account deletion")
		return
	}

	if err := services.NewUserService(db.DB).DeleteAccount(ctx.Request.Context(), userID, body.Password); err != nil {
		respondError(ctx, err)
		return
	}

	setTokenCookie(ctx, "", -1)

	ctx.JSON(http.StatusOK, gin.H{"message": "Account deleted successfully"})
}
