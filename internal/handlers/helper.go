package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/SAP-F-2025/ielts-exam-service/internal/models"
	"github.com/gin-gonic/gin"
)

// ParseUintParam reads a numeric path parameter. It answers 400 and returns
// false when the value is missing or not a positive integer.
func ParseUintParam(c *gin.Context, param string) (uint, bool) {
	idStr := strings.TrimSpace(c.Param(param))
	if idStr == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID cannot be empty",
		})
		return 0, false
	}

	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: "ID must be a positive integer",
		})
		return 0, false
	}
	return uint(id), true
}

// ParseModuleParam reads a module name from the path or, failing that, the
// query string.
func ParseModuleParam(c *gin.Context, param string) (models.Module, bool) {
	raw := c.Param(param)
	if raw == "" {
		raw = c.Query(param)
	}
	module, err := models.ParseModule(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid " + param,
			Details: err.Error(),
		})
		return "", false
	}
	return module, true
}
