package errors

import (
	"fmt"
	"net/http"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewAPIError(code, message string, status int, details ...string) *APIError {
	err := &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

var (
	ErrInvalidInput = NewAPIError("INVALID_INPUT", "Invalid request data", http.StatusBadRequest)
	ErrInvalidID    = NewAPIError("INVALID_ID", "Invalid identifier", http.StatusBadRequest)
	ErrNotFound     = NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrInternal     = NewAPIError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
)

// InvalidInput is ErrInvalidInput with details about the offending input.
func InvalidInput(details string) *APIError {
	return NewAPIError(ErrInvalidInput.Code, ErrInvalidInput.Message, ErrInvalidInput.Status, details)
}
