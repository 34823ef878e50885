package utils

import (
	"errors"
	"net/http"

	"pdf-qa-platform/models"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error     string      `json:"error"`
	ErrorCode string      `json:"error_code"`
	Details   interface{} `json:"details,omitempty"`
}

// RespondWithError sends a standardized error response
func RespondWithError(c *gin.Context, statusCode int, errorCode, message string, details interface{}) {
	c.JSON(statusCode, ErrorResponse{
		Error:     message,
		ErrorCode: errorCode,
		Details:   details,
	})
}

// RespondWithBadRequest sends a 400 Bad Request error
func RespondWithBadRequest(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusBadRequest, "bad_request", message, details)
}

// RespondWithForbidden sends a 403 Forbidden error
func RespondWithForbidden(c *gin.Context, message string) {
	RespondWithError(c, http.StatusForbidden, "forbidden", message, nil)
}

// RespondWithNotFound sends a 404 Not Found error
func RespondWithNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "not_found", message, nil)
}

// RespondWithTooLarge sends a 413 Request Entity Too Large error
func RespondWithTooLarge(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusRequestEntityTooLarge, "request_too_large", message, details)
}

// RespondWithUnavailable sends a 503 Service Unavailable error
func RespondWithUnavailable(c *gin.Context, message string) {
	RespondWithError(c, http.StatusServiceUnavailable, "service_unavailable", message, nil)
}

// RespondWithInternalError sends a 500 Internal Server Error
func RespondWithInternalError(c *gin.Context, message string, details interface{}) {
	RespondWithError(c, http.StatusInternalServerError, "internal_error", message, details)
}

// RespondWithServiceError maps a failure from the service layer onto a
// response. Validation problems become 400 with the field in details;
// everything else is a 500 carrying the cause string.
func RespondWithServiceError(c *gin.Context, message string, err error) {
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		RespondWithBadRequest(c, ve.Message, gin.H{"field": ve.Field})
		return
	}

	code := "internal_error"
	var ue *models.UpstreamError
	if errors.As(err, &ue) {
		code = "upstream_error"
	}
	var ie *models.IngestionError
	if errors.As(err, &ie) {
		code = "ingestion_failed"
	}
	RespondWithError(c, http.StatusInternalServerError, code, message, err.Error())
}
