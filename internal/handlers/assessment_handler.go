package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/safeshipper/hazard-assessment-service/internal/middleware"
	"github.com/safeshipper/hazard-assessment-service/internal/models"
	"github.com/safeshipper/hazard-assessment-service/internal/repositories"
	"github.com/safeshipper/hazard-assessment-service/internal/services"
	"github.com/safeshipper/hazard-assessment-service/internal/utils"
)

type AssessmentHandler struct {
	BaseHandler
	assessmentService services.AssessmentService
	exportService     services.ExportService
	validator         *utils.Validator
}

func NewAssessmentHandler(
	assessmentService services.AssessmentService,
	exportService services.ExportService,
	validator *utils.Validator,
	logger utils.Logger,
) *AssessmentHandler {
	return &AssessmentHandler{
		BaseHandler:       NewBaseHandler(logger),
		assessmentService: assessmentService,
		exportService:     exportService,
		validator:         validator,
	}
}

// StartAssessment starts a new hazard assessment for a shipment
// @Summary Start assessment
// @Tags assessments
// @Accept json
// @Produce json
// @Param assessment body services.StartAssessmentRequest true "Assessment data"
// @Success 201 {object} models.HazardAssessment
// @Failure 400 {object} ErrorResponse
// @Router /assessments [post]
func (h *AssessmentHandler) StartAssessment(c *gin.Context) {
	var req services.StartAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}
	if req.CompanyID == "" {
		req.CompanyID = middleware.CurrentCompanyID(c)
	}

	assessment, err := h.assessmentService.Start(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assessment)
}

// GetAssessment retrieves an assessment by ID
// @Summary Get assessment
// @Tags assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} models.HazardAssessment
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id} [get]
func (h *AssessmentHandler) GetAssessment(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Getting assessment", "assessment_id", id)

	assessment, err := h.assessmentService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// GetAssessmentWithDetails retrieves an assessment with template, answers and
// security events preloaded
// @Summary Get assessment with details
// @Tags assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} models.HazardAssessment
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id}/details [get]
func (h *AssessmentHandler) GetAssessmentWithDetails(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Getting assessment with details", "assessment_id", id)

	assessment, err := h.assessmentService.GetByIDWithDetails(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// ListAssessments lists assessments matching the query filters
// @Summary List assessments
// @Tags assessments
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /assessments [get]
func (h *AssessmentHandler) ListAssessments(c *gin.Context) {
	filters := h.parseFilters(c)

	assessments, total, err := h.assessmentService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assessments": assessments,
		"total":       total,
		"limit":       filters.Limit,
		"offset":      filters.Offset,
	})
}

// GetMyAssessments lists the caller's in-progress assessments for resuming
// @Summary Get my in-progress assessments
// @Tags assessments
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /assessments/mine [get]
func (h *AssessmentHandler) GetMyAssessments(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	assessments, err := h.assessmentService.GetInProgressForUser(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assessments": assessments})
}

// GetAssessmentsByShipment lists all assessments recorded against a shipment
// @Summary Get assessments by shipment
// @Tags assessments
// @Produce json
// @Param shipment_id path string true "Shipment ID"
// @Success 200 {object} SuccessResponse
// @Router /assessments/shipment/{shipment_id} [get]
func (h *AssessmentHandler) GetAssessmentsByShipment(c *gin.Context) {
	shipmentID := c.Param("shipment_id")

	assessments, err := h.assessmentService.GetByShipment(c.Request.Context(), shipmentID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assessments": assessments})
}

// RequestOverrideBody carries the escalation reason.
type RequestOverrideBody struct {
	Reason string `json:"reason" binding:"required"`
}

// RequestOverride escalates a failed assessment to a manager
// @Summary Request override
// @Tags assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param override body RequestOverrideBody true "Override reason"
// @Success 200 {object} models.HazardAssessment
// @Failure 409 {object} ErrorResponse
// @Router /assessments/{id}/override [post]
func (h *AssessmentHandler) RequestOverride(c *gin.Context) {
	var body RequestOverrideBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	assessment, err := h.assessmentService.RequestOverride(c.Request.Context(), c.Param("id"), body.Reason, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// ReviewOverride approves or denies a pending override request
// @Summary Review override
// @Tags assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param review body services.ReviewOverrideRequest true "Review decision"
// @Success 200 {object} models.HazardAssessment
// @Failure 409 {object} ErrorResponse
// @Router /assessments/{id}/override/review [post]
func (h *AssessmentHandler) ReviewOverride(c *gin.Context) {
	var req services.ReviewOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	reviewerID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	assessment, err := h.assessmentService.ReviewOverride(c.Request.Context(), c.Param("id"), &req, reviewerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assessment)
}

// GetPendingOverrides lists override requests awaiting review for the
// caller's company
// @Summary Get pending overrides
// @Tags assessments
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /assessments/overrides/pending [get]
func (h *AssessmentHandler) GetPendingOverrides(c *gin.Context) {
	companyID := middleware.CurrentCompanyID(c)
	limit := parseIntQuery(c, "limit", 50)
	offset := parseIntQuery(c, "offset", 0)

	assessments, total, err := h.assessmentService.GetPendingOverrides(c.Request.Context(), companyID, limit, offset)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assessments": assessments,
		"total":       total,
		"limit":       limit,
		"offset":      offset,
	})
}

// GetSecurityEvents returns the telemetry log recorded during an assessment
// @Summary Get security events
// @Tags assessments
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} SuccessResponse
// @Router /assessments/{id}/security-events [get]
func (h *AssessmentHandler) GetSecurityEvents(c *gin.Context) {
	events, err := h.assessmentService.GetSecurityEvents(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"security_events": events})
}

// GetAnalytics aggregates completion statistics for the caller's company
// @Summary Get completion analytics
// @Tags assessments
// @Produce json
// @Success 200 {object} repositories.CompletionStats
// @Router /assessments/analytics [get]
func (h *AssessmentHandler) GetAnalytics(c *gin.Context) {
	companyID := middleware.CurrentCompanyID(c)
	filters := h.parseFilters(c)

	stats, err := h.assessmentService.GetAnalytics(c.Request.Context(), companyID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// ExportAssessment streams the assessment's compliance report as an Excel file
// @Summary Export assessment report
// @Tags assessments
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Assessment ID"
// @Success 200 {file} binary
// @Router /assessments/{id}/export [get]
func (h *AssessmentHandler) ExportAssessment(c *gin.Context) {
	id := c.Param("id")
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	data, err := h.exportService.ExportAssessmentReport(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	filename := fmt.Sprintf("assessment_%s.xlsx", id)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ExportSummary streams the company-wide completion summary as an Excel file
// @Summary Export completion summary
// @Tags assessments
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Router /assessments/export [get]
func (h *AssessmentHandler) ExportSummary(c *gin.Context) {
	companyID := middleware.CurrentCompanyID(c)
	filters := h.parseFilters(c)

	data, err := h.exportService.ExportCompletionSummary(c.Request.Context(), companyID, filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="completion_summary.xlsx"`)
	c.Data(http.StatusOK,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *AssessmentHandler) parseFilters(c *gin.Context) repositories.AssessmentFilters {
	filters := repositories.AssessmentFilters{
		Limit:     parseIntQuery(c, "limit", 50),
		Offset:    parseIntQuery(c, "offset", 0),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if status := c.Query("status"); status != "" {
		s := models.AssessmentStatus(status)
		filters.Status = &s
	}
	if shipmentID := c.Query("shipment_id"); shipmentID != "" {
		filters.ShipmentID = &shipmentID
	}
	if templateID := c.Query("template_id"); templateID != "" {
		filters.TemplateID = &templateID
	}
	if completedBy := c.Query("completed_by"); completedBy != "" {
		filters.CompletedBy = &completedBy
	}
	if from := c.Query("date_from"); from != "" {
		if parsed, err := time.Parse(time.RFC3339, from); err == nil {
			filters.DateFrom = &parsed
		}
	}
	if to := c.Query("date_to"); to != "" {
		if parsed, err := time.Parse(time.RFC3339, to); err == nil {
			filters.DateTo = &parsed
		}
	}
	return filters
}
