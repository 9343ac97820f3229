package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/codevia/codevia/internal/domain/shared"
	"github.com/codevia/codevia/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      interface{}   `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp  time.Time `json:"timestamp"`
	Version    string    `json:"version,omitempty"`
	TotalCount int       `json:"total_count,omitempty"`
}

// writeJSON writes a JSON response.
func writeJSON(c *gin.Context, status int, data interface{}) {
	writeJSONWithMeta(c, status, data, nil)
}

// writeJSONWithMeta writes a JSON response with custom metadata.
func writeJSONWithMeta(c *gin.Context, status int, data interface{}, meta *ResponseMeta) {
	if meta == nil {
		meta = &ResponseMeta{}
	}
	meta.Timestamp = time.Now().UTC()
	meta.Version = "v1"

	c.JSON(status, JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      meta,
		RequestID: c.GetString(contextKeyRequestID),
	})
}

// writeJSONError writes an error JSON response.
func writeJSONError(c *gin.Context, status int, code, message string) {
	c.JSON(status, JSONResponse{
		Success: false,
		Error: &APIError{
			Code:    code,
			Message: message,
		},
		Meta:      &ResponseMeta{Timestamp: time.Now().UTC()},
		RequestID: c.GetString(contextKeyRequestID),
	})
}

// writeError maps an application error to a status code and writes it.
func (s *Server) writeError(c *gin.Context, err error) {
	status, code := classifyError(err)

	message := "An unexpected error occurred"
	if status != http.StatusInternalServerError {
		message = err.Error()
		var de *shared.DomainError
		if errors.As(err, &de) {
			message = de.Message
		}
	} else {
		s.logger.Error("request failed",
			logger.Err(err),
			logger.String("path", c.Request.URL.Path),
			logger.String("request_id", c.GetString(contextKeyRequestID)),
		)
	}

	writeJSONError(c, status, code, message)
}

// classifyError returns the HTTP status and error code for err.
func classifyError(err error) (int, string) {
	switch {
	case shared.IsAuthentication(err):
		return http.StatusUnauthorized, "authentication_failed"
	case shared.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case shared.IsAlreadyExists(err):
		return http.StatusConflict, "already_exists"
	case shared.IsAlreadyUnlocked(err):
		return http.StatusUnprocessableEntity, "already_unlocked"
	case shared.IsInsufficientXP(err):
		return http.StatusUnprocessableEntity, "insufficient_xp"
	case shared.IsValidation(err):
		return http.StatusBadRequest, "validation_error"
	default:
		return http.StatusInternalServerError, "internal_server_error"
	}
}
