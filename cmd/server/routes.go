package main

import (
	"github.com/gin-gonic/gin"
	"github.com/meshflow/meshflow/backend/internal/config"
	"github.com/meshflow/meshflow/backend/internal/middleware"
	"github.com/meshflow/meshflow/backend/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS(cfg.Server.CORSOrigins))

	// Rate limiter for credential routes
	authLimiter := middleware.NewCredentialLimiter(cfg.Auth)

	api := r.Group("/api")
	{
		api.GET("/health", svc.healthHandler.CheckHealth)

		// Auth routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", authLimiter.Middleware(), svc.authHandler.Register)
			auth.POST("/login", authLimiter.Middleware(), svc.authHandler.Login)
			auth.POST("/logout", svc.authHandler.Logout)
		}

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(svc.sessions))
		{
			// Account
			protected.GET("/user/profile", svc.userHandler.GetProfile)
			protected.PATCH("/user/profile", svc.userHandler.UpdateProfile)
			protected.DELETE("/user/account", svc.userHandler.DeleteAccount)
			protected.POST("/user/password", authLimiter.Middleware(), svc.userHandler.ChangePassword)

			// Workspaces
			protected.GET("/workspaces", svc.workspaceHandler.List)
			protected.POST("/workspaces", svc.workspaceHandler.Create)
			protected.GET("/workspaces/:id", svc.workspaceHandler.Get)
			protected.PATCH("/workspaces/:id", svc.workspaceHandler.Update)
			protected.DELETE("/workspaces/:id", svc.workspaceHandler.Delete)

			// Members
			protected.GET("/workspaces/:id/members", svc.memberHandler.List)
			protected.POST("/workspaces/:id/members", svc.memberHandler.Add)
			protected.PATCH("/workspaces/:id/members/:userId", svc.memberHandler.ChangeRole)
			protected.DELETE("/workspaces/:id/members/:userId", svc.memberHandler.Remove)

			// Canvas
			protected.GET("/workspaces/:id/nodes", svc.canvasHandler.ListNodes)
			protected.POST("/workspaces/:id/nodes", svc.canvasHandler.CreateNode)
			protected.PATCH("/workspaces/:id/nodes/:nodeId", svc.canvasHandler.UpdateNode)
			protected.DELETE("/workspaces/:id/nodes/:nodeId", svc.canvasHandler.DeleteNode)
			protected.GET("/workspaces/:id/edges", svc.canvasHandler.ListEdges)
			protected.POST("/workspaces/:id/edges", svc.canvasHandler.CreateEdge)
			protected.DELETE("/workspaces/:id/edges/:edgeId", svc.canvasHandler.DeleteEdge)
			protected.POST("/workspaces/:id/autolink", svc.canvasHandler.AutoLink)

			// Activity
			protected.GET("/workspaces/:id/activity", svc.activityHandler.List)
		}
	}
}
