// Package handlers provides HTTP handler implementations for the public API.
//
// This file holds the response helpers. Failures use one of two bodies:
// request-validation errors on the summary routes return the compact
// {"error": "..."} body, everything else the ErrorResponse envelope with a
// stable code from errors.go. Server-side failures are logged with the
// underlying error while the client only sees a fixed message, so storage
// details never reach the response.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-summary-backend/internal/http/middleware"
)

// ErrorResponse is the error envelope for non-validation failures.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// serverMessages are the client-facing messages for 5xx codes.
var serverMessages = map[string]string{
	ErrCodeSummarizeFailed: "summary could not be saved",
	ErrCodeListFailed:      "history could not be loaded",
	ErrCodeDeleteFailed:    "record could not be deleted",
}

// fail aborts with an ErrorResponse. 5xx responses are logged at error level
// through the request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail, used by the router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// serverError logs err and answers 500 with the fixed message for code.
func serverError(c *gin.Context, code string, err error) {
	msg, found := serverMessages[code]
	if !found {
		msg = "internal error"
	}
	middleware.LoggerFrom(c).Error().
		Err(err).
		Str("code", code).
		Msg("request failed")
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
		RequestID: middleware.RequestIDFrom(c),
		Code:      code,
		Message:   msg,
	})
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

// badRequest writes the compact validation body.
func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, SummaryErrorResponse{Error: msg})
}
