package handlers

import (
	"net/http"

	"github.com/SAP-F-2025/ielts-exam-service/internal/services"
	"github.com/SAP-F-2025/ielts-exam-service/internal/utils"
	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
}

func NewSessionHandler(sessionService services.SessionService, logger utils.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
	}
}

// StartSession opens or resumes the caller's session for a test
// @Summary Start session
// @Tags sessions
// @Accept json
// @Produce json
// @Param session body services.StartSessionRequest true "Test to sit"
// @Success 201 {object} services.SessionResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	var req services.StartSessionRequest
	if !h.bindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Starting session", "test_id", req.TestID)

	resp, err := h.sessionService.Start(c.Request.Context(), &req, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetSession returns a session with its answers and scores
// @Summary Get session
// @Tags sessions
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.sessionService.Get(c.Request.Context(), id, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// SaveAnswers autosaves the answers of one module
// @Summary Save progress
// @Description Merges the submitted answers into the module. Shape mismatches come back as warnings.
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path uint true "Session ID"
// @Param module path string true "reading, listening or writing"
// @Param answers body services.SaveProgressRequest true "Answers"
// @Success 200 {object} services.SaveProgressResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/answers/{module} [put]
func (h *SessionHandler) SaveAnswers(c *gin.Context) {
	id, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}
	module, ok := ParseModuleParam(c, "module")
	if !ok {
		return
	}

	var req services.SaveProgressRequest
	if !h.bindJSON(c, &req) {
		return
	}

	resp, err := h.sessionService.SaveProgress(c.Request.Context(), id, module, req.Answers, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if len(resp.Warnings) > 0 {
		h.LogWarn(c, "Answers saved with warnings", "session_id", id, "module", module, "warnings", len(resp.Warnings))
	}

	c.JSON(http.StatusOK, resp)
}

// SubmitSession closes the session and scores reading and listening
// @Summary Submit session
// @Tags sessions
// @Produce json
// @Param id path uint true "Session ID"
// @Success 200 {object} services.SessionResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/submit [post]
func (h *SessionHandler) SubmitSession(c *gin.Context) {
	id, ok := ParseUintParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Submitting session", "session_id", id)

	resp, err := h.sessionService.Submit(c.Request.Context(), id, h.actor(c))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
