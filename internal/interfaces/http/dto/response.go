package dto

import "time"

// ErrorResponse is the error envelope of every failed request
type ErrorResponse struct {
	Success bool       `json:"success"`
	Error   *ErrorInfo `json:"error"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code      string `json:"code" example:"VALIDATION_ERROR"`
	Message   string `json:"message" example:"Request validation failed"`
	RequestID string `json:"request_id,omitempty" example:"3f1c8a0e9b7d4c2a"`
	Details   any    `json:"details,omitempty" swaggertype:"object"`
}

// ValidationDetail describes one invalid request field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Error: &ErrorInfo{
			Code:    NormalizeErrorCode(code),
			Message: message,
		},
	}
}

// NewErrorResponseWithRequestID creates an error response tagged with the request ID
func NewErrorResponseWithRequestID(code, message, requestID string) ErrorResponse {
	resp := NewErrorResponse(code, message)
	resp.Error.RequestID = requestID
	return resp
}

// NewValidationErrorResponse creates a VALIDATION_ERROR response listing the invalid fields
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) ErrorResponse {
	resp := NewErrorResponseWithRequestID(ErrCodeValidation, message, requestID)
	if len(details) > 0 {
		resp.Error.Details = details
	}
	return resp
}

// WithDetails attaches details to the error
func (r ErrorResponse) WithDetails(details any) ErrorResponse {
	if r.Error != nil {
		r.Error.Details = details
	}
	return r
}

// ImportQuery binds the query of an import run
type ImportQuery struct {
	ExpectAtLeast int `form:"expect_at_least" binding:"min=0"`
}

// HealthResponse reports service and database health
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Database  string    `json:"database" example:"up"`
	Version   string    `json:"version,omitempty" example:"1.0.0"`
	Timestamp time.Time `json:"timestamp"`
}
