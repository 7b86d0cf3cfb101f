package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/config"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/handler"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/middleware"
	"github.com/kkmanuu/online-academicaxis-management-system/internal/response"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Exam    *handler.ExamHandler
	Attempt *handler.AttemptHandler
	WS      *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(handlers *Handlers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// If AllowedOrigins is set in config, restrict to that list; otherwise
	// allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// REST surface (JWT in Authorization header).
	api := router.Group("/api/v1")
	api.Use(middleware.RequireJWT(cfg.JWTSecret))
	{
		api.GET("/exams/:exam_id", handlers.Exam.GetExam)
		api.GET("/exams/:exam_id/roster", handlers.Exam.GetRoster)

		api.GET("/exams/:exam_id/attempt", handlers.Attempt.GetState)
		api.POST("/exams/:exam_id/attempt/start", handlers.Attempt.Start)
		api.POST("/exams/:exam_id/attempt/answers", handlers.Attempt.RecordAnswer)
		api.POST("/exams/:exam_id/attempt/submit", handlers.Attempt.Submit)
	}

	// WebSocket surface (JWT in ?token= since browsers cannot set headers
	// on upgrade requests).
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(cfg.JWTSecret))
	{
		ws.GET("/exams/:exam_id", handlers.WS.ExamSession)
	}

	return router
}
