package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/practice-engine/internal/config"
	"github.com/SAP-F-2025/practice-engine/internal/repositories"
	"github.com/SAP-F-2025/practice-engine/internal/services"
	"github.com/SAP-F-2025/practice-engine/internal/utils"
	"github.com/SAP-F-2025/practice-engine/internal/validator"
)

type HandlerManager struct {
	practiceHandler *PracticeHandler
	testHandler     *TestHandler
	authMiddleware  *CasdoorAuthMiddleware
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
	casdoorConfig config.CasdoorConfig,
	userRepo repositories.UserRepository,
) *HandlerManager {
	authMiddleware := NewCasdoorAuthMiddleware(casdoorConfig, userRepo)

	return &HandlerManager{
		practiceHandler: NewPracticeHandler(serviceManager.Practice(), serviceManager.Progression(), validator, logger),
		testHandler:     NewTestHandler(serviceManager.Test(), validator, logger),
		authMiddleware:  authMiddleware,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	// API v1 routes with authentication
	v1 := router.Group("/api/v1")
	v1.Use(hm.authMiddleware.AuthMiddleware())
	{
		// Topic progression routes
		topics := v1.Group("/topics")
		{
			topics.GET("/:topic_id/levels", hm.practiceHandler.GetLevels)
			topics.GET("/:topic_id/levels/:level/sets", hm.practiceHandler.GetSetsByLevel)
		}

		// Practice set routes. Sequential access is enforced inside the
		// services, not by a role gate: non-learner roles preview freely.
		sets := v1.Group("/sets")
		{
			sets.GET("/:set_id/questions", hm.practiceHandler.GetSetQuestions)
			sets.POST("/:set_id/attempts", hm.practiceHandler.SubmitAttempt)
			sets.GET("/:set_id/attempts", hm.practiceHandler.GetHistory)
		}

		// Test routes
		tests := v1.Group("/tests")
		{
			tests.GET("/:test_id/questions", hm.testHandler.GetTestQuestions)
			tests.POST("/:test_id/attempts", hm.testHandler.SubmitTest)
			tests.GET("/:test_id/attempts", hm.testHandler.GetTestAttempts)
		}

		// Student routes
		students := v1.Group("/students")
		{
			students.GET("/me/score", hm.practiceHandler.GetMyScore)
		}
	}
}

// HealthCheck endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"service":   "practice-engine",
	})
}
