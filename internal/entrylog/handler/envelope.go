// Package handler exposes the entry log read API over HTTP. Every
// response uses a uniform envelope with a typed error code on failure.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"spyglass/collector/internal/apperr"
)

// Envelope is the uniform response body for every API operation.
type Envelope struct {
	Success bool       `json:"success"`
	Data    any        `json:"data"`
	Error   *ErrorBody `json:"error"`
	Meta    Meta       `json:"meta"`
}

// ErrorBody carries the typed failure for success=false responses.
type ErrorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
	Details string      `json:"details,omitempty"`
}

// Meta is attached to every response.
type Meta struct {
	Timestamp  time.Time   `json:"timestamp"`
	DurationMs int64       `json:"durationMs"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Pagination is included on cursor reads.
type Pagination struct {
	NewestSequence int64 `json:"newestSequence"`
	OldestSequence int64 `json:"oldestSequence"`
	HasMore        bool  `json:"hasMore"`
	Limit          int   `json:"limit"`
}

func newMeta(start time.Time) Meta {
	return Meta{Timestamp: time.Now().UTC(), DurationMs: time.Since(start).Milliseconds()}
}

func respondOK(c *gin.Context, start time.Time, data any) {
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Meta: newMeta(start)})
}

func respondPage(c *gin.Context, start time.Time, data any, p *Pagination) {
	meta := newMeta(start)
	meta.Pagination = p
	c.JSON(http.StatusOK, Envelope{Success: true, Data: data, Meta: meta})
}

// respondErr maps the taxonomy code to an HTTP status and writes the
// failure envelope. The details field carries err.Error() outside
// production.
func respondErr(c *gin.Context, start time.Time, err error, includeDetails bool) {
	code := apperr.CodeOf(err)
	body := &ErrorBody{Code: code, Message: apperr.MessageOf(err)}
	if includeDetails {
		body.Details = err.Error()
	}
	c.JSON(httpStatus(code), Envelope{Success: false, Error: body, Meta: newMeta(start)})
}

func httpStatus(code apperr.Code) int {
	switch code {
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeValidation:
		return http.StatusBadRequest
	case apperr.CodeInvalidOperation:
		return http.StatusConflict
	case apperr.CodeRateLimited:
		return http.StatusTooManyRequests
	case apperr.CodeStorageTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
