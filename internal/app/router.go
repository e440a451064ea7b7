package app

import (
	"interview_assistant_backend/docs"
	"interview_assistant_backend/internal/config"
	"interview_assistant_backend/internal/middleware"
	"interview_assistant_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(&cfg.JWT))
	{
		a.registerInterviewRoutes(authGroup, c)
		a.registerProctorRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/register", c.auth.Register)
		public.POST("/auth/login", c.auth.Login)
		public.GET("/topics", c.question.GetTopics)
	}
}

func (a *App) registerInterviewRoutes(group *gin.RouterGroup, c *controllers) {
	group.GET("/profile", c.user.GetProfile)
	group.GET("/questions/:topic", c.question.GetQuestions)

	group.POST("/attempts", c.attempt.CreateAttempt)
	group.GET("/attempts", c.attempt.ListAttempts)
	group.GET("/analytics", c.analytics.GetAnalytics)

	interview := group.Group("/interview")
	{
		interview.POST("/questions", c.interview.GenerateQuestions)
		interview.POST("/analyze", c.interview.AnalyzeAnswer)
		interview.POST("/complete", c.interview.Complete)
	}

	group.POST("/speech/transcribe", c.speech.Transcribe)
}

func (a *App) registerProctorRoutes(group *gin.RouterGroup, c *controllers) {
	proctor := group.Group("/proctor")
	{
		proctor.GET("/ws", c.proctor.HandleWS)
		proctor.POST("/classify", c.proctor.Classify)
		proctor.POST("/detect", c.proctor.Detect)
		proctor.POST("/verify", c.proctor.Verify)
		proctor.POST("/enroll", c.proctor.Enroll)
		proctor.POST("/verify-live", c.proctor.VerifyLive)
	}
}
