package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/monocle-dev/pms/internal/handlers"
	"github.com/monocle-dev/pms/internal/middleware"
	"github.com/monocle-dev/pms/internal/types"
)

func NewRouter() *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger())

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	requireAuth := middleware.AuthMiddleware()

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws/:project_id", requireAuth, handlers.WebSocket)

		auth := api.Group("/auth")
		{
			auth.POST("/register", handlers.CreateUser)
			auth.POST("/login", handlers.LoginUser)
			auth.POST("/logout", handlers.LogoutUser)
			auth.GET("/me", requireAuth, handlers.Me)
			auth.PATCH("/me", requireAuth, handlers.UpdateUser)
			auth.DELETE("/me", requireAuth, handlers.DeleteUser)
		}

		organizations := api.Group("/organizations", requireAuth)
		{
			organizations.POST("", handlers.CreateOrganization)
			organizations.GET("", handlers.ListOrganizations)
			organizations.GET("/search", handlers.SearchOrganizations)
			organizations.POST("/search", handlers.SearchOrganizationsStrict)
			organizations.POST("/auth", handlers.AuthenticateOrganization)
			organizations.GET("/slug/:slug", handlers.GetOrganization)

			organizations.GET("/:organization_id/admins", handlers.ListOrganizationAdmins)
			organizations.POST("/:organization_id/admins", handlers.PromoteOrganizationAdmins)
			organizations.PUT("/:organization_id/admins/revoke", handlers.RevokeOrganizationAdmin)
			organizations.GET("/:organization_id/non-admins", handlers.ListOrganizationNonAdmins)
			organizations.DELETE("/:organization_id/membership", handlers.ExitOrganization)
		}

		industries := api.Group("/industries", requireAuth)
		{
			industries.GET("", handlers.ListIndustries)
			industries.POST("", handlers.CreateIndustry)
			industries.DELETE("/:industry_id", handlers.DeleteIndustry)
		}

		templates := api.Group("/templates", requireAuth)
		{
			templates.POST("", handlers.CreateTemplate)
			templates.GET("/search", handlers.SearchTemplates)
			templates.GET("/:template_id", handlers.GetTemplate)
			templates.DELETE("/:template_id", handlers.DeleteTemplate)
		}

		projects := api.Group("/projects", requireAuth)
		{
			projects.POST("", handlers.CreateProject)
			projects.GET("", handlers.ListProjects)
			projects.GET("/stats", handlers.GetProjectStats)

			projects.GET("/:project_id/members", handlers.ListProjectMembers)
			projects.POST("/:project_id/members", handlers.AddProjectMembers)
			projects.GET("/:project_id/non-members", handlers.ListProjectNonMembers)
			projects.GET("/:project_id/phases", handlers.ListProjectPhases)
			projects.POST("/:project_id/phases", handlers.CreatePhase)
			projects.GET("/:project_id/tasks", handlers.ListProjectTasks)
		}

		phases := api.Group("/phases", requireAuth)
		{
			phases.GET("/:phase_id", handlers.GetPhase)
			phases.PUT("/:phase_id", handlers.RenamePhase)
			phases.DELETE("/:phase_id", handlers.DeletePhase)
		}

		tasks := api.Group("/tasks", requireAuth)
		{
			tasks.POST("", handlers.CreateTask)
			tasks.GET("/:task_id", handlers.GetTask)
			tasks.PUT("/:task_id/status", handlers.UpdateTaskStatus)
			tasks.GET("/:task_id/assignees", handlers.ListTaskAssignees)
			tasks.POST("/:task_id/assignees", handlers.AssignTask)
			tasks.DELETE("/:task_id/assignees/:username", handlers.UnassignTask)
			tasks.GET("/:task_id/non-assignees", handlers.ListTaskNonAssignees)
		}
	}

	return r
}
