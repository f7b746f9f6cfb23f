package shared

import "fmt"

// DomainError represents a business rule violation raised by the domain layer.
// The Code is a stable, machine-readable identifier that the interface layer
// maps to an HTTP status; Message is safe to show to API consumers.
type DomainError struct {
	Code    string
	Message string
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// NewDomainErrorf creates a new domain error with a formatted message
func NewDomainErrorf(code, format string, args ...interface{}) *DomainError {
	return &DomainError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Common domain errors shared across aggregates
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = NewDomainError("NOT_FOUND", "Resource not found")

	// ErrForbidden indicates the caller does not own the resource
	ErrForbidden = NewDomainError("FORBIDDEN", "Access to this resource is denied")

	// ErrUnauthorized indicates missing or invalid credentials
	ErrUnauthorized = NewDomainError("UNAUTHORIZED", "Authentication required")

	// ErrDuplicate indicates a uniqueness constraint was violated
	ErrDuplicate = NewDomainError("DUPLICATE", "Resource already exists")

	// ErrConcurrencyConflict indicates the aggregate was modified concurrently
	ErrConcurrencyConflict = NewDomainError("CONCURRENT_MODIFICATION", "Resource was modified by another request, please retry")

	// ErrStorage indicates an unexpected persistence failure
	ErrStorage = NewDomainError("STORAGE_ERROR", "Storage operation failed")
)

// IsDomainError reports whether err is a *DomainError with the given code
func IsDomainError(err error, code string) bool {
	de, ok := err.(*DomainError)
	return ok && de.Code == code
}
