package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/safeshipper/hazard-assessment-service/internal/flow"
	"github.com/safeshipper/hazard-assessment-service/internal/services"
	"github.com/safeshipper/hazard-assessment-service/internal/utils"
)

// FlowHandler exposes the question-by-question completion flow to the mobile
// client. Every route is keyed by the assessment id; the live controller is
// held server-side so a reconnecting device resumes where it left off.
type FlowHandler struct {
	BaseHandler
	flowService services.FlowService
	validator   *utils.Validator
}

func NewFlowHandler(
	flowService services.FlowService,
	validator *utils.Validator,
	logger utils.Logger,
) *FlowHandler {
	return &FlowHandler{
		BaseHandler: NewBaseHandler(logger),
		flowService: flowService,
		validator:   validator,
	}
}

// StartFlow builds or resumes the live flow for an in-progress assessment
// @Summary Start or resume completion flow
// @Tags flow
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} services.FlowStatus
// @Failure 409 {object} ErrorResponse
// @Router /assessments/{id}/flow [post]
func (h *FlowHandler) StartFlow(c *gin.Context) {
	id := c.Param("id")
	userID, ok := h.requireUserID(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Starting completion flow", "assessment_id", id)

	status, err := h.flowService.StartFlow(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// GetFlowStatus returns the current question, draft and progress
// @Summary Get flow status
// @Tags flow
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} services.FlowStatus
// @Failure 404 {object} ErrorResponse
// @Router /assessments/{id}/flow [get]
func (h *FlowHandler) GetFlowStatus(c *gin.Context) {
	status, err := h.flowService.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// SetAnswerBody carries the selected answer value.
type SetAnswerBody struct {
	Value string `json:"value" binding:"required"`
}

// SetAnswer records the answer value for the current question
// @Summary Set answer
// @Tags flow
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param answer body SetAnswerBody true "Answer value"
// @Success 200 {object} services.FlowStatus
// @Failure 422 {object} ErrorResponse
// @Router /assessments/{id}/flow/answer [put]
func (h *FlowHandler) SetAnswer(c *gin.Context) {
	var body SetAnswerBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	status, err := h.flowService.SetAnswer(c.Request.Context(), c.Param("id"), body.Value)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// SetCommentBody carries the free-text comment for the current question.
type SetCommentBody struct {
	Text string `json:"text"`
}

// SetComment records a comment on the current question's draft
// @Summary Set comment
// @Tags flow
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param comment body SetCommentBody true "Comment text"
// @Success 200 {object} services.FlowStatus
// @Router /assessments/{id}/flow/comment [put]
func (h *FlowHandler) SetComment(c *gin.Context) {
	var body SetCommentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	status, err := h.flowService.SetComment(c.Request.Context(), c.Param("id"), body.Text)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// AttachEvidence attaches photo evidence to the current question's draft
// @Summary Attach evidence
// @Tags flow
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param evidence body services.AttachEvidenceRequest true "Evidence data"
// @Success 200 {object} services.FlowStatus
// @Failure 422 {object} ErrorResponse
// @Router /assessments/{id}/flow/evidence [put]
func (h *FlowHandler) AttachEvidence(c *gin.Context) {
	var req services.AttachEvidenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	status, err := h.flowService.AttachEvidence(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// OverrideBody carries the per-question override justification.
type OverrideBody struct {
	Reason string `json:"reason" binding:"required"`
}

// RequestOverride marks the current failure answer as overridden
// @Summary Request question override
// @Tags flow
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param override body OverrideBody true "Override reason"
// @Success 200 {object} services.FlowStatus
// @Failure 422 {object} ErrorResponse
// @Router /assessments/{id}/flow/override [put]
func (h *FlowHandler) RequestOverride(c *gin.Context) {
	var body OverrideBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	status, err := h.flowService.RequestOverride(c.Request.Context(), c.Param("id"), body.Reason)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Advance validates and persists the current draft, then moves forward. On the
// last question it finalizes the assessment.
// @Summary Advance flow
// @Tags flow
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} services.FlowStatus
// @Failure 422 {object} ErrorResponse
// @Router /assessments/{id}/flow/advance [post]
func (h *FlowHandler) Advance(c *gin.Context) {
	status, err := h.flowService.Advance(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Complete retries finalization after a failed completion attempt
// @Summary Complete flow
// @Tags flow
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} services.FlowStatus
// @Failure 503 {object} ErrorResponse
// @Router /assessments/{id}/flow/complete [post]
func (h *FlowHandler) Complete(c *gin.Context) {
	status, err := h.flowService.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Retreat moves back one question without validation
// @Summary Retreat flow
// @Tags flow
// @Produce json
// @Param id path string true "Assessment ID"
// @Success 200 {object} services.FlowStatus
// @Failure 409 {object} ErrorResponse
// @Router /assessments/{id}/flow/retreat [post]
func (h *FlowHandler) Retreat(c *gin.Context) {
	status, err := h.flowService.Retreat(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// Cancel tears down the live flow, keeping persisted answers for a later resume
// @Summary Cancel flow
// @Tags flow
// @Param id path string true "Assessment ID"
// @Success 200 {object} SuccessResponse
// @Router /assessments/{id}/flow [delete]
func (h *FlowHandler) Cancel(c *gin.Context) {
	if err := h.flowService.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Flow cancelled", nil)
}

// InteractionBody carries one device interaction sample.
type InteractionBody struct {
	Kind flow.InteractionKind `json:"kind" binding:"required"`
}

// RecordInteraction feeds touch and keystroke counts into the anomaly monitor
// @Summary Record interaction
// @Tags flow
// @Accept json
// @Param id path string true "Assessment ID"
// @Param interaction body InteractionBody true "Interaction sample"
// @Success 204
// @Router /assessments/{id}/flow/interaction [post]
func (h *FlowHandler) RecordInteraction(c *gin.Context) {
	var body InteractionBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	if err := h.flowService.RecordInteraction(c.Request.Context(), c.Param("id"), body.Kind); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ReportSecurityEvent records a host-environment signal such as an app switch
// or screenshot. Violations are logged and published, never blocking.
// @Summary Report security event
// @Tags flow
// @Accept json
// @Param id path string true "Assessment ID"
// @Param event body services.ReportSecurityEventRequest true "Security event"
// @Success 204
// @Router /assessments/{id}/flow/security-event [post]
func (h *FlowHandler) ReportSecurityEvent(c *gin.Context) {
	var req services.ReportSecurityEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	if err := h.flowService.ReportSecurityEvent(c.Request.Context(), c.Param("id"), &req); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
