package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safeshipper/hazard-assessment-service/internal/middleware"
	"github.com/safeshipper/hazard-assessment-service/internal/repositories"
	"github.com/safeshipper/hazard-assessment-service/internal/services"
	"github.com/safeshipper/hazard-assessment-service/internal/utils"
)

type HandlerManager struct {
	templateHandler   *TemplateHandler
	assessmentHandler *AssessmentHandler
	flowHandler       *FlowHandler

	auth *middleware.AuthMiddleware
	repo repositories.Repository
}

func NewHandlerManager(
	templateService services.TemplateService,
	assessmentService services.AssessmentService,
	flowService services.FlowService,
	exportService services.ExportService,
	auth *middleware.AuthMiddleware,
	repo repositories.Repository,
	validator *utils.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		templateHandler:   NewTemplateHandler(templateService, validator, logger),
		assessmentHandler: NewAssessmentHandler(assessmentService, exportService, validator, logger),
		flowHandler:       NewFlowHandler(flowService, validator, logger),
		auth:              auth,
		repo:              repo,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	// Health check endpoint
	router.GET("/health", hm.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(hm.auth.Authenticate())
	{
		// Template routes, management only
		templates := v1.Group("/templates")
		templates.Use(hm.auth.RequireManagement())
		{
			templates.POST("", hm.templateHandler.CreateTemplate)
			templates.GET("", hm.templateHandler.ListTemplates)
			templates.GET("/:id", hm.templateHandler.GetTemplate)
			templates.PUT("/:id", hm.templateHandler.UpdateTemplate)
			templates.DELETE("/:id", hm.templateHandler.DeleteTemplate)
			templates.POST("/:id/clone", hm.templateHandler.CloneTemplate)
			templates.GET("/:id/stats", hm.templateHandler.GetTemplateStats)
			templates.POST("/assignments", hm.templateHandler.CreateAssignment)
		}

		// Assessment routes
		assessments := v1.Group("/assessments")
		{
			assessments.GET("", hm.assessmentHandler.ListAssessments)
			assessments.GET("/analytics", hm.assessmentHandler.GetAnalytics)
			assessments.GET("/export", hm.assessmentHandler.ExportSummary)
			assessments.GET("/mine", hm.auth.RequireCompletionCapability(), hm.assessmentHandler.GetMyAssessments)
			assessments.GET("/shipment/:shipment_id", hm.assessmentHandler.GetAssessmentsByShipment)
			assessments.GET("/:id", hm.assessmentHandler.GetAssessment)
			assessments.GET("/:id/details", hm.assessmentHandler.GetAssessmentWithDetails)
			assessments.GET("/:id/security-events", hm.assessmentHandler.GetSecurityEvents)
			assessments.GET("/:id/export", hm.assessmentHandler.ExportAssessment)

			// Starting and overrides require the completion capability
			assessments.POST("", hm.auth.RequireCompletionCapability(), hm.assessmentHandler.StartAssessment)
			assessments.POST("/:id/override", hm.auth.RequireCompletionCapability(), hm.assessmentHandler.RequestOverride)

			// Review is a manager capability
			assessments.POST("/:id/override/review", hm.auth.RequireOverrideReview(), hm.assessmentHandler.ReviewOverride)
			assessments.GET("/overrides/pending", hm.auth.RequireOverrideReview(), hm.assessmentHandler.GetPendingOverrides)

			// Completion flow routes
			flow := assessments.Group("/:id/flow")
			flow.Use(hm.auth.RequireCompletionCapability())
			{
				flow.POST("", hm.flowHandler.StartFlow)
				flow.GET("", hm.flowHandler.GetFlowStatus)
				flow.DELETE("", hm.flowHandler.Cancel)
				flow.PUT("/answer", hm.flowHandler.SetAnswer)
				flow.PUT("/comment", hm.flowHandler.SetComment)
				flow.PUT("/evidence", hm.flowHandler.AttachEvidence)
				flow.PUT("/override", hm.flowHandler.RequestOverride)
				flow.POST("/advance", hm.flowHandler.Advance)
				flow.POST("/retreat", hm.flowHandler.Retreat)
				flow.POST("/complete", hm.flowHandler.Complete)
				flow.POST("/interaction", hm.flowHandler.RecordInteraction)
				flow.POST("/security-event", hm.flowHandler.ReportSecurityEvent)
			}
		}
	}
}

// HealthCheck reports service and database health
func (hm *HandlerManager) HealthCheck(c *gin.Context) {
	if err := hm.repo.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "hazard-assessment-service",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "hazard-assessment-service",
	})
}
