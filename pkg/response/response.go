// Package response writes the JSON envelope shared by every endpoint:
// {"success": bool, "data": ..., "error": "..."}.
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Body is the response envelope. Check-in results set both Data and Error
// when the scan failed, so scanners can show the attendee alongside the message.
type Body struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Body{Success: true, Data: data})
}

func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Body{Success: true, Data: data})
}

func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Fail writes an error envelope with the given status.
func Fail(c *gin.Context, status int, msg string) {
	c.JSON(status, Body{Error: msg})
}

// Abort writes an error envelope and stops the handler chain. Middleware uses it.
func Abort(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Body{Error: msg})
}

func BadRequest(c *gin.Context, msg string)   { Fail(c, http.StatusBadRequest, msg) }
func Unauthorized(c *gin.Context, msg string) { Fail(c, http.StatusUnauthorized, msg) }
func Forbidden(c *gin.Context, msg string)    { Fail(c, http.StatusForbidden, msg) }
func NotFound(c *gin.Context, msg string)     { Fail(c, http.StatusNotFound, msg) }
func Conflict(c *gin.Context, msg string)     { Fail(c, http.StatusConflict, msg) }

// UnprocessableEntity is for well-formed requests whose content cannot be
// used, such as an uploaded image without a readable QR code.
func UnprocessableEntity(c *gin.Context, msg string) { Fail(c, http.StatusUnprocessableEntity, msg) }

// ServiceUnavailable marks a retryable failure.
func ServiceUnavailable(c *gin.Context, msg string) { Fail(c, http.StatusServiceUnavailable, msg) }

func Internal(c *gin.Context, msg string) { Fail(c, http.StatusInternalServerError, msg) }
