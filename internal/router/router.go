package router

import (
	"blogspace/internal/handlers"
	"blogspace/internal/middleware"
	"blogspace/internal/models"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the whole API surface onto the engine.
func RegisterRoutes(r *gin.Engine) {
	authHandler := handlers.NewAuthHandler()
	postHandler := handlers.NewPostHandler()
	adminHandler := handlers.NewAdminHandler()

	api := r.Group("/api")

	auth := api.Group("/auth")
	{
		auth.POST("/register", authHandler.Register)
		auth.POST("/login", authHandler.Login)

		authed := auth.Group("", middleware.AuthRequired())
		{
			authed.GET("/me", authHandler.Me)
			authed.PUT("/profile", authHandler.UpdateProfile)
			authed.POST("/save/:pid", authHandler.ToggleSave)
			authed.GET("/saved-posts", authHandler.SavedPosts)
			authed.GET("/activity", authHandler.Activity)
		}
	}

	posts := api.Group("/posts")
	{
		posts.GET("", middleware.LoadUser(), postHandler.List)
		posts.GET("/user/:id", postHandler.ListByUser)
		posts.GET("/:pid", middleware.LoadUser(), postHandler.Detail)

		authed := posts.Group("", middleware.AuthRequired())
		{
			authed.POST("", postHandler.Create)
			authed.PUT("/:pid", postHandler.Update)
			authed.DELETE("/:pid", postHandler.Delete)
			authed.POST("/:pid/like", postHandler.ToggleLike)
			authed.POST("/:pid/comments", postHandler.CreateComment)
			authed.DELETE("/:pid/comments/:cid", postHandler.DeleteComment)
		}
	}

	admin := api.Group("/admin")
	{
		admin.POST("/login", adminHandler.Login)

		authed := admin.Group("", middleware.AdminRequired())
		{
			authed.GET("/me", adminHandler.Me)

			admins := authed.Group("", middleware.RequirePermission(models.CapManageAdmins))
			{
				admins.POST("/create", adminHandler.CreateAdmin)
				admins.GET("/all", adminHandler.ListAdmins)
				admins.PUT("/:id", adminHandler.UpdateAdmin)
				admins.DELETE("/:id", adminHandler.DeleteAdmin)
			}

			users := authed.Group("/users", middleware.RequirePermission(models.CapManageUsers))
			{
				users.GET("", adminHandler.ListUsers)
				users.GET("/:id", adminHandler.GetUser)
				users.PUT("/:id/restrict", adminHandler.ToggleUserRestriction)
				users.DELETE("/:id", adminHandler.DeleteUser)
			}

			moderation := authed.Group("", middleware.RequirePermission(models.CapManagePosts))
			{
				moderation.GET("/posts", adminHandler.ListPosts)
				moderation.PUT("/posts/:pid/restrict", adminHandler.TogglePostRestriction)
				moderation.DELETE("/posts/:pid", adminHandler.DeletePost)
				moderation.DELETE("/posts/:pid/comments/:cid", adminHandler.DeleteComment)
			}

			authed.GET("/analytics/dashboard",
				middleware.RequirePermission(models.CapViewAnalytics),
				adminHandler.Dashboard)
		}
	}
}
