package dto

import "net/http"

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	// ErrCodeUnknown is used when the error type is unknown
	ErrCodeUnknown = "ERR_UNKNOWN"
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "ERR_INTERNAL"
	// ErrCodeStorage is used when a persistence operation fails
	ErrCodeStorage = "ERR_STORAGE"
)

// Validation error codes
const (
	// ErrCodeValidation is the base code for request validation errors
	ErrCodeValidation = "ERR_VALIDATION"
	// ErrCodeValidationRequired is used when a required field is missing
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	// ErrCodeValidationFormat is used when a field has invalid format
	ErrCodeValidationFormat = "ERR_VALIDATION_FORMAT"
	// ErrCodeValidationRange is used when a value is out of range
	ErrCodeValidationRange = "ERR_VALIDATION_RANGE"
)

// Authentication error codes
const (
	// ErrCodeUnauthorized is used when authentication is required but missing/invalid
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the caller does not own the resource
	ErrCodeForbidden = "ERR_FORBIDDEN"
	// ErrCodeInvalidCredentials is used when username/password do not match
	ErrCodeInvalidCredentials = "ERR_INVALID_CREDENTIALS"
	// ErrCodeAccountLocked is used when the account is locked out
	ErrCodeAccountLocked = "ERR_ACCOUNT_LOCKED"
	// ErrCodeAccountDeactivated is used when the account is deactivated
	ErrCodeAccountDeactivated = "ERR_ACCOUNT_DEACTIVATED"
	// ErrCodeTokenExpired is used when the auth token has expired
	ErrCodeTokenExpired = "ERR_TOKEN_EXPIRED"
	// ErrCodeTokenInvalid is used when the auth token is invalid
	ErrCodeTokenInvalid = "ERR_TOKEN_INVALID"
	// ErrCodeTokenRevoked is used when the token has been blacklisted
	ErrCodeTokenRevoked = "ERR_TOKEN_REVOKED"
	// ErrCodeTokenMaxRefresh is used when the refresh chain is exhausted
	ErrCodeTokenMaxRefresh = "ERR_TOKEN_MAX_REFRESH"
)

// Resource error codes
const (
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "ERR_NOT_FOUND"
	// ErrCodeAlreadyExists is used when trying to create a duplicate resource
	ErrCodeAlreadyExists = "ERR_ALREADY_EXISTS"
	// ErrCodeConflict is used for general resource conflicts
	ErrCodeConflict = "ERR_CONFLICT"
	// ErrCodeConcurrencyConflict is used when optimistic locking fails
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	// ErrCodeInvalidState is used when an operation is invalid for current state
	ErrCodeInvalidState = "ERR_INVALID_STATE"
	// ErrCodeBusinessRule is used for generic business rule violations
	ErrCodeBusinessRule = "ERR_BUSINESS_RULE"
	// ErrCodeCustomerInUse is used when deleting a customer that still has invoices
	ErrCodeCustomerInUse = "ERR_CUSTOMER_IN_USE"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "ERR_BAD_REQUEST"
	// ErrCodeInvalidInput is used for invalid input data
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	// ErrCodeInvalidJSON is used when JSON parsing fails
	ErrCodeInvalidJSON = "ERR_INVALID_JSON"
)

// Rate limiting error codes
const (
	// ErrCodeRateLimited is used when rate limit is exceeded
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,
	ErrCodeStorage:  http.StatusInternalServerError,

	// Validation errors -> 400 Bad Request
	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,

	// Auth errors
	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeForbidden:          http.StatusForbidden,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,
	ErrCodeAccountLocked:      http.StatusForbidden,
	ErrCodeAccountDeactivated: http.StatusForbidden,
	ErrCodeTokenExpired:       http.StatusUnauthorized,
	ErrCodeTokenInvalid:       http.StatusUnauthorized,
	ErrCodeTokenRevoked:       http.StatusUnauthorized,
	ErrCodeTokenMaxRefresh:    http.StatusUnauthorized,

	// Resource errors
	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInvalidState:  http.StatusUnprocessableEntity,
	ErrCodeBusinessRule:  http.StatusUnprocessableEntity,
	ErrCodeCustomerInUse: http.StatusUnprocessableEntity,

	// Input errors -> 400 Bad Request
	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeInvalidJSON:  http.StatusBadRequest,

	// Rate limiting -> 429 Too Many Requests
	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes.
// Domain constructors raise short codes (NOT_FOUND, INVALID_QUANTITY);
// the API surface exposes the standardized ERR_* namespace.
var DomainErrorCodeMapping = map[string]string{
	"NOT_FOUND":               ErrCodeNotFound,
	"FORBIDDEN":               ErrCodeForbidden,
	"UNAUTHORIZED":            ErrCodeUnauthorized,
	"DUPLICATE":               ErrCodeAlreadyExists,
	"USERNAME_TAKEN":          ErrCodeAlreadyExists,
	"CONCURRENT_MODIFICATION": ErrCodeConcurrencyConflict,
	"STORAGE_ERROR":           ErrCodeStorage,
	"VALIDATION_ERROR":        ErrCodeValidation,
	"INVALID_CREDENTIALS":     ErrCodeInvalidCredentials,
	"ACCOUNT_LOCKED":          ErrCodeAccountLocked,
	"ACCOUNT_DEACTIVATED":     ErrCodeAccountDeactivated,
	"CUSTOMER_NOT_FOUND":      ErrCodeNotFound,
	"CUSTOMER_IN_USE":         ErrCodeCustomerInUse,
	"TOKEN_EXPIRED":           ErrCodeTokenExpired,
	"INVALID_TOKEN":           ErrCodeTokenInvalid,
	"TOKEN_REVOKED":           ErrCodeTokenRevoked,
	"MAX_REFRESH_EXCEEDED":    ErrCodeTokenMaxRefresh,

	// Aggregate validation failures -> business rule violations
	"INVALID_OWNER":          ErrCodeBusinessRule,
	"INVALID_CUSTOMER":       ErrCodeBusinessRule,
	"INVALID_CUSTOMER_NAME":  ErrCodeBusinessRule,
	"INVALID_EMAIL":          ErrCodeBusinessRule,
	"INVALID_PHONE":          ErrCodeBusinessRule,
	"INVALID_DUE_DATE":       ErrCodeBusinessRule,
	"INVALID_INVOICE_NUMBER": ErrCodeBusinessRule,
	"INVALID_ITEMS":          ErrCodeBusinessRule,
	"INVALID_ITEM_NAME":      ErrCodeBusinessRule,
	"INVALID_QUANTITY":       ErrCodeBusinessRule,
	"INVALID_PRICE":          ErrCodeBusinessRule,
	"INVALID_USERNAME":       ErrCodeBusinessRule,
	"INVALID_PASSWORD":       ErrCodeBusinessRule,
	"PASSWORD_HASH_FAILED":   ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to the standardized format
// If the code is already in the new format or unknown, returns it as-is
func NormalizeErrorCode(code string) string {
	if newCode, ok := DomainErrorCodeMapping[code]; ok {
		return newCode
	}
	return code
}
