package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voltfox-backend/internal/mw"
	"voltfox-backend/internal/store"
)

// Common error codes
const (
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodePayloadTooLarge    = "PAYLOAD_TOO_LARGE"
	ErrCodeInternalError      = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeBadGateway         = "BAD_GATEWAY"
)

// ErrorBody is the payload of every error response.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// respondError aborts the request with an error response.
func respondError(c *gin.Context, statusCode int, code, message string, details any) {
	c.AbortWithStatusJSON(statusCode, ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}

func invalidInput(c *gin.Context, message string, details any) {
	respondError(c, http.StatusBadRequest, ErrCodeInvalidInput, message, details)
}

// storeError maps a store failure to a response. Missing records and records
// owned by somebody else both read as not found.
func (h *Handler) storeError(c *gin.Context, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		respondError(c, http.StatusNotFound, ErrCodeNotFound, what+" not found", nil)
		return
	}
	h.internalError(c, err)
}

func (h *Handler) internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	h.log.Error("request failed",
		zap.String("request_id", mw.GetRequestID(c)),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "internal server error", nil)
}
