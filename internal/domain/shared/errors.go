package shared

import "errors"

// Error codes shared by every layer. HTTP and any other transport map on these,
// never on messages.
const (
	CodeNotFound            = "NOT_FOUND"
	CodeInvalidTransition   = "INVALID_TRANSITION"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeWipLimitExceeded    = "WIP_LIMIT_EXCEEDED"
	CodeConstraintViolation = "CONSTRAINT_VIOLATION"
	CodeInvalidInput        = "INVALID_INPUT"
	CodeUnauthorized        = "UNAUTHORIZED"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target carries the same code, so errors.Is works against the
// sentinel values below even when the message was customised.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidTransition   = NewDomainError(CodeInvalidTransition, "Status transition not allowed from current state")
	ErrPermissionDenied    = NewDomainError(CodePermissionDenied, "Missing capability for this action")
	ErrWipLimitExceeded    = NewDomainError(CodeWipLimitExceeded, "Destination column is at its WIP limit")
	ErrConstraintViolation = NewDomainError(CodeConstraintViolation, "Data integrity constraint violated")
	ErrInvalidInput        = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrUnauthorized        = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
)

// AsDomainError extracts a *DomainError from an error chain
func AsDomainError(err error) (*DomainError, bool) {
	var de *DomainError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// IsCode reports whether err carries a DomainError with the given code
func IsCode(err error, code string) bool {
	de, ok := AsDomainError(err)
	return ok && de.Code == code
}
