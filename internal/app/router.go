package app

import (
	"coursehub_backend/docs"
	"coursehub_backend/internal/config"
	"coursehub_backend/internal/middleware"
	"coursehub_backend/internal/model"
	"coursehub_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

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
	authGroup.Use(middleware.AuthMiddleware(&cfg.JWT))
	{
		a.registerLearnerRoutes(authGroup, c)

		instructor := authGroup.Group("/instructor")
		instructor.Use(middleware.RoleMiddleware(model.RoleInstructor))
		{
			instructor.POST("/submissions/:id/grade", c.assignment.Grade)
		}

		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerLearnerRoutes(r *gin.RouterGroup, c *controllers) {
	r.POST("/courses/:id/enroll", c.learning.Enroll)
	r.GET("/courses/:id/outline", c.learning.Outline)

	r.GET("/lessons/:id", c.learning.GetLesson)
	r.POST("/lessons/:id/complete", c.learning.CompleteLesson)

	r.GET("/quizzes/:id", c.quiz.GetQuiz)
	r.POST("/quizzes/:id/submit", c.quiz.Submit)
	r.GET("/quizzes/:id/submission", c.quiz.GetSubmission)

	r.POST("/assignments/:id/submit", c.assignment.Submit)
	r.POST("/assignments/:id/upload", c.assignment.Upload)

	r.POST("/blogs", c.blog.Create)
	r.PUT("/blogs/:id", c.blog.Update)
	r.GET("/blogs/allowance", c.blog.Allowance)

	r.GET("/points", c.points.Balance)
	r.GET("/points/history", c.points.History)
}

func (a *App) registerAdminRoutes(r *gin.RouterGroup, c *controllers) {
	admin := r.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.RoleAdmin))
	{
		admin.POST("/blogs/:id/review", c.blog.Review)
		admin.POST("/blogs/:id/publish", c.blog.Publish)

		admin.POST("/early-unlocks", c.admin.GrantEarlyUnlock)
		admin.PUT("/enrollments/:id/status", c.admin.SetEnrollmentStatus)
		admin.PUT("/lessons/:id/status", c.admin.SetLessonStatus)
		admin.PUT("/chapters/:id/status", c.admin.SetChapterStatus)

		admin.POST("/users/:id/points", c.points.Adjust)
		admin.GET("/users/:id/points/reconcile", c.points.Reconcile)
	}
}
