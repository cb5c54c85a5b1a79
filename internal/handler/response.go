package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"kostaxi/internal/repository"
	"kostaxi/internal/service"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error         string            `json:"error"`
	Details       map[string]string `json:"details,omitempty"`
	AllowedStatus []string          `json:"allowed_status,omitempty"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	resp := ErrorResponse{Error: err.Error()}

	var verr *service.ValidationError
	if errors.As(err, &verr) {
		resp.Error = verr.Message
		resp.Details = verr.Details
	}
	var serr *service.StatusError
	if errors.As(err, &serr) {
		resp.AllowedStatus = serr.Allowed
	}

	c.JSON(code, resp)
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	var verr *service.ValidationError

	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation and state machine errors - Bad Request
	case errors.As(err, &verr),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrDriverIDRequired),
		errors.Is(err, service.ErrDriverExists),
		errors.Is(err, service.ErrWebhookNotConfigured),
		errors.Is(err, service.ErrInvalidWebhook):
		return http.StatusBadRequest

	// Authentication errors
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidToken),
		errors.Is(err, service.ErrExpiredToken):
		return http.StatusUnauthorized

	// Upstream provider errors
	case errors.Is(err, service.ErrGatewayUnavailable):
		return http.StatusBadGateway

	// Service unavailable
	case errors.Is(err, service.ErrLocationsUnavailable):
		return http.StatusServiceUnavailable

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}

// pathID parses a positive integer path parameter. It reports false after
// answering 404 for anything else.
func pathID(c *gin.Context, name string, notFound error) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, notFound)
		return 0, false
	}
	return id, true
}
