// errors.go - Structured error handling for API responses
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/anugulalokeshreddy-code/deepfake/internal/client"
	"github.com/anugulalokeshreddy-code/deepfake/internal/dashboard"
	"github.com/anugulalokeshreddy-code/deepfake/internal/upload"
	"github.com/labstack/echo/v4"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 error carrying a user-facing validation message
func NewValidationError(message string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: message,
	}
}

// NewNotFoundError creates a 404 Not Found error
func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

// NewConflictError creates a 409 Conflict error
func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

// NewInternalError creates a 500 Internal Server Error
func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewBadGatewayError creates a 502 error for a backend that could not be reached
func NewBadGatewayError(message string) *APIError {
	return &APIError{
		Status:  http.StatusBadGateway,
		Code:    "BACKEND_UNREACHABLE",
		Message: message,
	}
}

// FromError maps dashboard, upload and client errors onto APIError.
// The message is always the text the status region shows.
func FromError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}

	switch {
	case errors.Is(err, upload.ErrInProgress), errors.Is(err, dashboard.ErrSessionEnded):
		return NewConflictError(err.Error())
	case errors.Is(err, upload.ErrNoFile):
		return NewValidationError(err.Error())
	case errors.Is(err, dashboard.ErrUnknownTab):
		return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: err.Error()}
	}

	var ce *client.Error
	if errors.As(err, &ce) {
		switch ce.Kind {
		case client.KindValidation:
			return NewValidationError(ce.Message)
		case client.KindApplication:
			status := ce.Status
			if status < 400 {
				status = http.StatusBadGateway
			}
			return &APIError{Status: status, Code: "BACKEND_ERROR", Message: ce.Message, Details: ce.Details}
		default:
			if errors.Is(err, context.Canceled) {
				return &APIError{Status: http.StatusConflict, Code: "CANCELED", Message: ce.Message}
			}
			if errors.Is(err, context.DeadlineExceeded) {
				return &APIError{Status: http.StatusGatewayTimeout, Code: "BACKEND_TIMEOUT", Message: ce.Message}
			}
			return NewBadGatewayError(ce.Message)
		}
	}

	return NewInternalError("An unexpected error occurred", err)
}

// NewErrorHandler returns the echo HTTPErrorHandler. When showDetails is
// false, details of unexpected errors are withheld.
// Usage: e.HTTPErrorHandler = api.NewErrorHandler(debug)
func NewErrorHandler(showDetails bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var apiErr *APIError
		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			apiErr = &APIError{
				Status:  he.Code,
				Code:    "HTTP_ERROR",
				Message: fmt.Sprintf("%v", he.Message),
			}
		default:
			apiErr = FromError(err)
		}

		if apiErr.Status >= http.StatusInternalServerError {
			c.Logger().Errorf("[API] %s %s: %v", c.Request().Method, c.Request().URL.Path, err)
			if !showDetails && apiErr.Code == "INTERNAL_ERROR" {
				apiErr = &APIError{Status: apiErr.Status, Code: apiErr.Code, Message: apiErr.Message}
			}
		}

		if c.Request().Method == http.MethodHead {
			c.NoContent(apiErr.Status)
			return
		}
		c.JSON(apiErr.Status, apiErr)
	}
}
