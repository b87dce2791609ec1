package dto

import (
	"net/http"

	"github.com/erp/servicedesk/internal/domain/shared"
)

// Error codes returned in the response body. Domain codes pass through
// unchanged; the rest only exist at the HTTP edge.
const (
	ErrCodeNotFound            = shared.CodeNotFound
	ErrCodeInvalidTransition   = shared.CodeInvalidTransition
	ErrCodePermissionDenied    = shared.CodePermissionDenied
	ErrCodeWipLimitExceeded    = shared.CodeWipLimitExceeded
	ErrCodeConstraintViolation = shared.CodeConstraintViolation
	ErrCodeInvalidInput        = shared.CodeInvalidInput
	ErrCodeUnauthorized        = shared.CodeUnauthorized

	ErrCodeTokenExpired    = "TOKEN_EXPIRED"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeInvalidInput:        http.StatusBadRequest,
	ErrCodeUnauthorized:        http.StatusUnauthorized,
	ErrCodeTokenExpired:        http.StatusUnauthorized,
	ErrCodePermissionDenied:    http.StatusForbidden,
	ErrCodeWipLimitExceeded:    http.StatusConflict,
	ErrCodeConstraintViolation: http.StatusConflict,
	ErrCodeInvalidTransition:   http.StatusUnprocessableEntity,
	ErrCodeRequestTooLarge:     http.StatusRequestEntityTooLarge,
	ErrCodeInternal:            http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
