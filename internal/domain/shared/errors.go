package shared

import (
	"errors"
	"fmt"
)

// Error codes shared by the domain and the HTTP layer
const (
	CodeValidation       = "VALIDATION_ERROR"
	CodeNotFound         = "NOT_FOUND"
	CodeRemoteSync       = "REMOTE_SYNC_FAILED"
	CodeImportFailed     = "IMPORT_FAILED"
	CodeImportIncomplete = "IMPORT_INCOMPLETE"
	CodeInvalidState     = "INVALID_STATE"
	CodeConflict         = "CONFLICT"
	CodeUnauthorized     = "UNAUTHORIZED"
)

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	// Details carries optional structured context (e.g. failed import items)
	Details any `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap exposes the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is matches domain errors by code so that sentinels compare equal to
// errors created with the same code and a different message.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WrapDomainError creates a domain error that keeps err as its cause
func WrapDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		cause:   err,
	}
}

// WithDetails returns a copy of the error carrying details
func (e *DomainError) WithDetails(details any) *DomainError {
	cp := *e
	cp.Details = details
	return &cp
}

// Common domain errors
var (
	ErrNotFound         = NewDomainError(CodeNotFound, "Resource not found")
	ErrInvalidInput     = NewDomainError(CodeValidation, "Invalid input provided")
	ErrInvalidState     = NewDomainError(CodeInvalidState, "Operation not allowed in current state")
	ErrConflict         = NewDomainError(CodeConflict, "Resource is being modified by another request")
	ErrUnauthorized     = NewDomainError(CodeUnauthorized, "Not authorized to perform this action")
	ErrRemoteSync       = NewDomainError(CodeRemoteSync, "Remote ERP synchronization failed")
	ErrImportFailed     = NewDomainError(CodeImportFailed, "Import from ERP failed")
	ErrImportIncomplete = NewDomainError(CodeImportIncomplete, "Import from ERP returned fewer products than expected")
)

// NewValidationError creates a validation error with a specific message
func NewValidationError(message string) *DomainError {
	return NewDomainError(CodeValidation, message)
}

// NewNotFoundError creates a not found error for the named resource
func NewNotFoundError(resource, id string) *DomainError {
	return NewDomainError(CodeNotFound, fmt.Sprintf("%s %s not found", resource, id))
}

// NewRemoteSyncError wraps an ERP failure for the given operation
func NewRemoteSyncError(operation string, err error) *DomainError {
	return WrapDomainError(CodeRemoteSync, fmt.Sprintf("ERP %s failed", operation), err)
}
