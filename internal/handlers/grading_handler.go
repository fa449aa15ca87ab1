package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/ielts-exam-service/internal/services"
	"github.com/SAP-F-2025/ielts-exam-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type GradingHandler struct {
	BaseHandler
	gradingService services.GradingService
}

func NewGradingHandler(gradingService services.GradingService, logger utils.Logger) *GradingHandler {
	return &GradingHandler{
		BaseHandler:    NewBaseHandler(logger),
		gradingService: gradingService,
	}
}

// GradeModule records an examiner band for writing or speaking
// @Summary Grade module
// @Tags grading
// @Accept json
// @Produce json
// @Param id path uint true "Session ID"
// @Param module path string true "writing or speaking"
// @Param grade body services.GradeModuleRequest true "Band"
// @Success 200 {object} services.GradeResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /grading/sessions/{id}/modules/{module} [post]
func (h *GradingHandler) GradeModule(c *gin.Context) {
	id, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}
	module, ok := ParseModuleParam(c, "module")
	if !ok {
		return
	}

	var req services.GradeModuleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	req.Module = module

	h.LogRequest(c, "Grading module", "session_id", id, "module", module)

	resp, err := h.gradingService.GradeModule(c.Request.Context(), id, &req, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// RegradeSession scores reading and listening again against the current keys
// @Summary Regrade session
// @Tags grading
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} services.GradeResponse
// @Router /grading/sessions/{id}/regrade [post]
func (h *GradingHandler) RegradeSession(c *gin.Context) {
	id, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Regrading session", "session_id", id)

	resp, err := h.gradingService.Regrade(c.Request.Context(), id, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CalculateBand converts a raw correct count into a band
// @Router /grading/calculate-band [post]
func (h *GradingHandler) CalculateBand(c *gin.Context) {
	var req services.CalculateBandRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.gradingService.CalculateBand(&req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// CalculateOverall derives the overall band from module bands
// @Router /grading/calculate-overall [post]
func (h *GradingHandler) CalculateOverall(c *gin.Context) {
	var req services.CalculateOverallRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.gradingService.CalculateOverall(&req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
