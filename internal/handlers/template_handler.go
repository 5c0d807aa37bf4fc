package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/safeshipper/hazard-assessment-service/internal/middleware"
	"github.com/safeshipper/hazard-assessment-service/internal/repositories"
	"github.com/safeshipper/hazard-assessment-service/internal/services"
	"github.com/safeshipper/hazard-assessment-service/internal/utils"
)

type TemplateHandler struct {
	BaseHandler
	templateService services.TemplateService
	validator       *utils.Validator
}

func NewTemplateHandler(
	templateService services.TemplateService,
	validator *utils.Validator,
	logger utils.Logger,
) *TemplateHandler {
	return &TemplateHandler{
		BaseHandler:     NewBaseHandler(logger),
		templateService: templateService,
		validator:       validator,
	}
}

// CreateTemplate creates a new checklist template
// @Summary Create template
// @Tags templates
// @Accept json
// @Produce json
// @Param template body services.CreateTemplateRequest true "Template data"
// @Success 201 {object} models.AssessmentTemplate
// @Failure 400 {object} ErrorResponse
// @Router /templates [post]
func (h *TemplateHandler) CreateTemplate(c *gin.Context) {
	var req services.CreateTemplateRequest
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

	template, err := h.templateService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, template)
}

// GetTemplate retrieves a template with its sections and questions
// @Summary Get template
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} models.AssessmentTemplate
// @Failure 404 {object} ErrorResponse
// @Router /templates/{id} [get]
func (h *TemplateHandler) GetTemplate(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Getting template", "template_id", id)

	template, err := h.templateService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, template)
}

// ListTemplates lists templates for the caller's company
// @Summary List templates
// @Tags templates
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /templates [get]
func (h *TemplateHandler) ListTemplates(c *gin.Context) {
	filters := repositories.TemplateFilters{
		Limit:     parseIntQuery(c, "limit", 50),
		Offset:    parseIntQuery(c, "offset", 0),
		SortBy:    c.Query("sort_by"),
		SortOrder: c.Query("sort_order"),
	}
	if companyID := middleware.CurrentCompanyID(c); companyID != "" {
		filters.CompanyID = &companyID
	}
	if active := c.Query("is_active"); active != "" {
		parsed, err := strconv.ParseBool(active)
		if err == nil {
			filters.IsActive = &parsed
		}
	}

	templates, total, err := h.templateService.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"templates": templates,
		"total":     total,
		"limit":     filters.Limit,
		"offset":    filters.Offset,
	})
}

// UpdateTemplate updates a template's metadata
// @Summary Update template
// @Tags templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param template body services.UpdateTemplateRequest true "Template data"
// @Success 200 {object} models.AssessmentTemplate
// @Router /templates/{id} [put]
func (h *TemplateHandler) UpdateTemplate(c *gin.Context) {
	var req services.UpdateTemplateRequest
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

	template, err := h.templateService.Update(c.Request.Context(), c.Param("id"), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, template)
}

// DeleteTemplate removes an unused template
// @Summary Delete template
// @Tags templates
// @Param id path string true "Template ID"
// @Success 200 {object} SuccessResponse
// @Failure 409 {object} ErrorResponse
// @Router /templates/{id} [delete]
func (h *TemplateHandler) DeleteTemplate(c *gin.Context) {
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	if err := h.templateService.Delete(c.Request.Context(), c.Param("id"), userID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Template deleted", nil)
}

// CloneTemplate deep-copies a template under a new name
// @Summary Clone template
// @Tags templates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param clone body services.CloneTemplateRequest true "Clone data"
// @Success 201 {object} models.AssessmentTemplate
// @Router /templates/{id}/clone [post]
func (h *TemplateHandler) CloneTemplate(c *gin.Context) {
	var req services.CloneTemplateRequest
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

	clone, err := h.templateService.Clone(c.Request.Context(), c.Param("id"), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, clone)
}

// GetTemplateStats returns usage statistics for a template
// @Summary Get template statistics
// @Tags templates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} repositories.TemplateStats
// @Router /templates/{id}/stats [get]
func (h *TemplateHandler) GetTemplateStats(c *gin.Context) {
	stats, err := h.templateService.GetStats(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// CreateAssignment creates an assignment rule binding a template to a trigger
// @Summary Create assignment rule
// @Tags templates
// @Accept json
// @Produce json
// @Param assignment body services.CreateAssignmentRequest true "Assignment data"
// @Success 201 {object} models.AssessmentAssignment
// @Router /templates/assignments [post]
func (h *TemplateHandler) CreateAssignment(c *gin.Context) {
	var req services.CreateAssignmentRequest
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

	assignment, err := h.templateService.CreateAssignment(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	value := c.Query(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
