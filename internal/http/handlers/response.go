package handlers

// Response helpers shared by every endpoint. Errors always use the
// ErrorResponse envelope; fail() logs server-side errors with the
// request-scoped logger, and serviceError() maps service sentinels onto
// status codes so handlers never switch on errors themselves.

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jubileesolutions/overlay-backend/internal/embedding"
	"github.com/jubileesolutions/overlay-backend/internal/http/middleware"
	"github.com/jubileesolutions/overlay-backend/internal/services"
	"github.com/jubileesolutions/overlay-backend/internal/vectorindex"
)

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"entry not found"`
}

// fail aborts the request with a structured error. Server errors (>=500)
// are logged with the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	resp := ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	}

	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}

	c.AbortWithStatusJSON(status, resp)
}

// Fail is the exported variant of fail() for the router's fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// serviceError translates an error returned by a service into a response.
// Unknown errors become a 500 whose detail stays in the logs.
func serviceError(c *gin.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.Is(err, services.ErrInvalidTransition):
		fail(c, http.StatusConflict, ErrCodeInvalidTransition, err.Error())
	case errors.Is(err, services.ErrAlreadySuperseded):
		fail(c, http.StatusConflict, ErrCodeSuperseded, err.Error())
	case errors.As(err, &ve), errors.Is(err, services.ErrValidation):
		fail(c, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, services.ErrNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "entry not found")
	case errors.Is(err, services.ErrForbidden):
		fail(c, http.StatusForbidden, ErrCodeForbidden, err.Error())
	case errors.Is(err, embedding.ErrProvider):
		middleware.LoggerFrom(c).Warn().Err(err).Msg("embedding provider failed")
		fail(c, http.StatusBadGateway, ErrCodeEmbeddingFailed, "embedding provider unavailable")
	case errors.Is(err, vectorindex.ErrIndexWrite):
		middleware.LoggerFrom(c).Warn().Err(err).Msg("vector index write failed")
		fail(c, http.StatusServiceUnavailable, ErrCodeIndexUnavailable, "vector index unavailable")
	case errors.Is(err, context.DeadlineExceeded):
		fail(c, http.StatusGatewayTimeout, ErrCodeInternal, "request timed out")
	default:
		middleware.LoggerFrom(c).Error().Err(err).Msg("unhandled service error")
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "internal error")
	}
}

// ok writes a success JSON response.
func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// noContent writes an HTTP 204 No Content response.
func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}
