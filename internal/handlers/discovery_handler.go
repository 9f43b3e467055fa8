package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"feedcast-pipeline/internal/models"
	"feedcast-pipeline/internal/pkg/logger"

	"github.com/gin-gonic/gin"
)

// DiscoveryRunner is the slice of the discovery service the HTTP layer needs.
type DiscoveryRunner interface {
	ExecuteDiscovery(ctx context.Context, req *models.DiscoveryRequest) (*models.DiscoveryResult, error)
	GetActiveRunsCount() int
	GetStats() map[string]interface{}
}

type DiscoveryHandler struct {
	discovery DiscoveryRunner
	logger    *logger.Logger
	startTime time.Time
}

func NewDiscoveryHandler(discovery DiscoveryRunner, log *logger.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		discovery: discovery,
		logger:    log,
		startTime: time.Now(),
	}
}

func (handler *DiscoveryHandler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", handler.HealthCheck)
	router.GET("/stats", handler.GetStats)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/discovery", handler.ExecuteDiscovery)
	}
}

func (handler *DiscoveryHandler) ExecuteDiscovery(c *gin.Context) {
	var req models.DiscoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.NewErrorResponse("invalid request body",
			models.NewValidationError("INVALID_BODY", err.Error())))
		return
	}

	result, err := handler.discovery.ExecuteDiscovery(c.Request.Context(), &req)
	if err != nil {
		status, appErr := classifyError(err)
		if models.IsNoEventsFound(err) {
			// The empty run is a legitimate outcome, not a server fault.
			c.JSON(status, models.APIResponse{
				Success:   false,
				Message:   "no events found for the requested interests",
				Data:      result,
				Error:     appErr,
				Timestamp: time.Now(),
			})
			return
		}
		handler.logger.WithError(err).Error("Discovery run failed",
			"user_id", req.UserID)
		c.JSON(status, models.NewErrorResponse("discovery run failed", appErr))
		return
	}

	c.JSON(http.StatusOK, models.NewSuccessResponse("discovery completed", result))
}

func (handler *DiscoveryHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":         "healthy",
		"service":        "feedcast-pipeline",
		"uptime_seconds": time.Since(handler.startTime).Seconds(),
		"active_runs":    handler.discovery.GetActiveRunsCount(),
	})
}

func (handler *DiscoveryHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, models.NewSuccessResponse("service statistics", handler.discovery.GetStats()))
}

func classifyError(err error) (int, *models.AppError) {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		appErr = models.NewInternalError("UNEXPECTED", err.Error())
	}

	switch appErr.Type {
	case models.ErrorTypeValidation:
		return http.StatusBadRequest, appErr
	case models.ErrorTypeNotFound:
		return http.StatusNotFound, appErr
	case models.ErrorTypeTimeout:
		return http.StatusGatewayTimeout, appErr
	case models.ErrorTypeExternal:
		return http.StatusBadGateway, appErr
	default:
		return http.StatusInternalServerError, appErr
	}
}
