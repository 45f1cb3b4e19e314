package app

import (
	"exam_platform_backend/internal/middleware"
	"exam_platform_backend/internal/model"
	"exam_platform_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(), middleware.ActivityMiddleware(repos.student))
	{
		authGroup.GET("/profile", c.auth.Profile)

		// 试卷与作答
		authGroup.GET("/tests", c.test.List)
		authGroup.GET("/tests/:id", c.test.Get)
		authGroup.POST("/tests/:id/attempts", c.attempt.Start)
		authGroup.POST("/attempts/:id/submit", c.attempt.Submit)
		authGroup.GET("/attempts/:id", c.attempt.Detail)

		// 分析
		authGroup.GET("/tests/:id/leaderboard", c.analytics.Leaderboard)
		authGroup.GET("/tests/:id/progress", c.analytics.TestProgress)
		authGroup.GET("/progress/overview", c.analytics.Overview)
	}

	// 3. 管理员路由
	adminGroup := router.Group("/api/admin")
	adminGroup.Use(middleware.AuthMiddleware(), middleware.RoleMiddleware(model.RoleAdmin))
	{
		adminGroup.POST("/tests", c.test.Create)
		adminGroup.PUT("/tests/:id", c.test.Update)
		adminGroup.DELETE("/tests/:id", c.test.Delete)
		adminGroup.POST("/tests/:id/publish", c.test.Publish)
		adminGroup.GET("/tests/:id/attempts", c.test.ListAttempts)
		adminGroup.GET("/tests/:id/report", c.analytics.SubjectReport)
	}
}
