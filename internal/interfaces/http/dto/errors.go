package dto

import (
	"net/http"

	"github.com/erp/productsync/internal/domain/shared"
)

// Error codes carried in the "code" field of the error envelope.
// Domain codes pass through unchanged; the rest originate in the transport layer.
const (
	ErrCodeValidation       = shared.CodeValidation
	ErrCodeNotFound         = shared.CodeNotFound
	ErrCodeRemoteSync       = shared.CodeRemoteSync
	ErrCodeImportFailed     = shared.CodeImportFailed
	ErrCodeImportIncomplete = shared.CodeImportIncomplete
	ErrCodeInvalidState     = shared.CodeInvalidState
	ErrCodeConflict         = shared.CodeConflict
	ErrCodeUnauthorized     = shared.CodeUnauthorized
)

// Transport error codes
const (
	// ErrCodeInternal is used for unexpected server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeForbidden is used when the caller is authenticated but not an admin
	ErrCodeForbidden = "FORBIDDEN"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	// ErrCodeRateLimited is used when a client exceeds its request rate
	ErrCodeRateLimited = "RATE_LIMITED"
	// ErrCodeRouteNotFound is used for unknown routes
	ErrCodeRouteNotFound = "ROUTE_NOT_FOUND"
	// ErrCodeMethodNotAllowed is used for known routes with an unsupported method
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	// ErrCodeUnavailable is used when a dependency such as the database is down
	ErrCodeUnavailable = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// Domain errors
	ErrCodeValidation:       http.StatusBadRequest,
	ErrCodeNotFound:         http.StatusNotFound,
	ErrCodeRemoteSync:       http.StatusBadGateway,
	ErrCodeImportFailed:     http.StatusInternalServerError,
	ErrCodeImportIncomplete: http.StatusUnprocessableEntity,
	ErrCodeInvalidState:     http.StatusUnprocessableEntity,
	ErrCodeConflict:         http.StatusConflict,
	ErrCodeUnauthorized:     http.StatusUnauthorized,

	// Transport errors
	ErrCodeInternal:         http.StatusInternalServerError,
	ErrCodeForbidden:        http.StatusForbidden,
	ErrCodeRequestTooLarge:  http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:      http.StatusTooManyRequests,
	ErrCodeRouteNotFound:    http.StatusNotFound,
	ErrCodeMethodNotAllowed: http.StatusMethodNotAllowed,
	ErrCodeUnavailable:      http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// ErrorCodeAliases maps codes that older clients and adapters emit to the canonical code
var ErrorCodeAliases = map[string]string{
	"INVALID_INPUT":  ErrCodeValidation,
	"BAD_REQUEST":    ErrCodeValidation,
	"INVALID_JSON":   ErrCodeValidation,
	"ALREADY_EXISTS": ErrCodeConflict,
	"LOCKED":         ErrCodeConflict,
	"BAD_GATEWAY":    ErrCodeRemoteSync,
}

// NormalizeErrorCode converts an alias to its canonical code.
// An empty code becomes INTERNAL_ERROR; unknown codes are returned as-is.
func NormalizeErrorCode(code string) string {
	if code == "" {
		return ErrCodeInternal
	}
	if canonical, ok := ErrorCodeAliases[code]; ok {
		return canonical
	}
	return code
}
