package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mediaforge/server/internal/domain/generation"
)

// respondResult sends a flattened generation result. Expected failures
// (validation, provider errors, timeouts) still return HTTP 200 with
// success=false so callers key off the body, not the status line.
func respondResult(c *gin.Context, result *generation.ToolResult) {
	c.JSON(http.StatusOK, result)
}

// respondBindError reports a malformed request body.
func respondBindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   "invalid request body: " + err.Error(),
	})
}
