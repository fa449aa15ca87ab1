package handlers

import (
	"fmt"
	"net/http"

	"github.com/SAP-F-2025/ielts-exam-service/internal/services"
	"github.com/SAP-F-2025/ielts-exam-service/internal/utils"
	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type TestHandler struct {
	BaseHandler
	testService   services.TestService
	exportService services.ExportService
}

func NewTestHandler(testService services.TestService, exportService services.ExportService, logger utils.Logger) *TestHandler {
	return &TestHandler{
		BaseHandler:   NewBaseHandler(logger),
		testService:   testService,
		exportService: exportService,
	}
}

// CreateTest creates a new IELTS test
// @Summary Create test
// @Description Stores reading and listening papers with their answer keys. Authoring defects are reported, not rejected.
// @Tags tests
// @Accept json
// @Produce json
// @Param test body services.CreateTestRequest true "Test data"
// @Success 201 {object} SuccessResponse{data=services.TestResponse}
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Router /tests [post]
func (h *TestHandler) CreateTest(c *gin.Context) {
	h.LogRequest(c, "Creating test")

	var req services.CreateTestRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.testService.Create(c.Request.Context(), &req, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusCreated, "Test created", resp)
}

// ListTests pages through tests
// @Summary List tests
// @Description Students only see published tests.
// @Tags tests
// @Produce json
// @Param status query string false "draft, published or archived"
// @Param limit query int false "Page size (max 100)"
// @Param offset query int false "Offset"
// @Param sort_by query string false "created_at or title"
// @Param sort_order query string false "asc or desc"
// @Success 200 {object} services.TestListResponse
// @Failure 400 {object} ErrorResponse
// @Router /tests [get]
func (h *TestHandler) ListTests(c *gin.Context) {
	var req services.ListTestsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid query parameters", nil, err.Error())
		return
	}

	resp, err := h.testService.List(c.Request.Context(), &req, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetTest returns a test with its answer keys
// @Summary Get test
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} models.Test
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /tests/{id} [get]
func (h *TestHandler) GetTest(c *gin.Context) {
	id, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	test, err := h.testService.Get(c.Request.Context(), id, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, test)
}

// GetCandidateTest returns the papers of a test without answer keys
// @Summary Get test for a candidate
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Success 200 {object} models.CandidateTest
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /tests/{id}/candidate [get]
func (h *TestHandler) GetCandidateTest(c *gin.Context) {
	id, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	view, err := h.testService.GetCandidateView(c.Request.Context(), id, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetSchema returns the question id to type map of a module
// @Summary Get question schema
// @Tags tests
// @Produce json
// @Param id path uint true "Test ID"
// @Param module query string true "reading or listening"
// @Success 200 {object} services.SchemaResponse
// @Failure 400 {object} ErrorResponse
// @Router /tests/{id}/schema [get]
func (h *TestHandler) GetSchema(c *gin.Context) {
	id, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}
	module, ok := ParseModuleParam(c, "module")
	if !ok {
		return
	}

	schema, err := h.testService.GetSchema(c.Request.Context(), id, module, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, schema)
}

// UpdateTestStatus publishes, archives or returns a test to draft
// @Summary Update test status
// @Tags tests
// @Accept json
// @Produce json
// @Param id path uint true "Test ID"
// @Param status body services.UpdateTestStatusRequest true "New status"
// @Success 200 {object} SuccessResponse{data=models.Test}
// @Router /tests/{id}/status [put]
func (h *TestHandler) UpdateTestStatus(c *gin.Context) {
	id, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	var req services.UpdateTestStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Updating test status", "test_id", id, "status", req.Status)

	test, err := h.testService.UpdateStatus(c.Request.Context(), id, req.Status, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	h.RespondWithSuccess(c, http.StatusOK, "Test status updated", test)
}

// DeleteTest removes a test that has never been sat
// @Summary Delete test
// @Tags tests
// @Param id path uint true "Test ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Failure 422 {object} ErrorResponse
// @Router /tests/{id} [delete]
func (h *TestHandler) DeleteTest(c *gin.Context) {
	id, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting test", "test_id", id)

	if err := h.testService.Delete(c.Request.Context(), id, h.actor(c)); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ExportResults downloads every session of a test as an xlsx workbook
// @Summary Export test results
// @Tags tests
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path uint true "Test ID"
// @Router /tests/{id}/results/export [get]
func (h *TestHandler) ExportResults(c *gin.Context) {
	id, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Exporting test results", "test_id", id)

	data, err := h.exportService.ExportTestResults(c.Request.Context(), id, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="test-%d-results.xlsx"`, id))
	c.Data(http.StatusOK, xlsxContentType, data)
}
