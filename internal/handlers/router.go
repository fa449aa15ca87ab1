package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/SAP-F-2025/ielts-exam-service/internal/services"
	"github.com/SAP-F-2025/ielts-exam-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type HandlerManager struct {
	testHandler    *TestHandler
	sessionHandler *SessionHandler
	gradingHandler *GradingHandler
	logger         utils.Logger
}

func NewHandlerManager(serviceManager services.ServiceManager, logger utils.Logger) *HandlerManager {
	return &HandlerManager{
		testHandler:    NewTestHandler(serviceManager.Test, serviceManager.Export, logger),
		sessionHandler: NewSessionHandler(serviceManager.Session, logger),
		gradingHandler: NewGradingHandler(serviceManager.Grading, logger),
		logger:         logger,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.Use(RequestID(), utils.LoggerMiddleware(hm.logger, requestIDKey, userIDKey, userRoleKey), gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "ielts-exam-service",
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1", Identity())
	{
		tests := v1.Group("/tests")
		{
			tests.POST("", hm.testHandler.CreateTest)
			tests.GET("", hm.testHandler.ListTests)
			tests.GET("/:id", hm.testHandler.GetTest)
			tests.DELETE("/:id", hm.testHandler.DeleteTest)
			tests.GET("/:id/candidate", hm.testHandler.GetCandidateTest)
			tests.GET("/:id/schema", hm.testHandler.GetSchema)
			tests.PUT("/:id/status", hm.testHandler.UpdateTestStatus)
			tests.GET("/:id/results/export", hm.testHandler.ExportResults)
		}

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.StartSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.PUT("/:id/answers/:module", hm.sessionHandler.SaveAnswers)
			sessions.POST("/:id/submit", hm.sessionHandler.SubmitSession)
		}

		grading := v1.Group("/grading", RequireRole(models.RoleTeacher, models.RoleAdmin))
		{
			grading.POST("/sessions/:id/modules/:module", hm.gradingHandler.GradeModule)
			grading.POST("/sessions/:id/regrade", hm.gradingHandler.RegradeSession)

			// Band utilities
			grading.POST("/calculate-band", hm.gradingHandler.CalculateBand)
			grading.POST("/calculate-overall", hm.gradingHandler.CalculateOverall)
		}
	}
}
