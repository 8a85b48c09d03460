package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	// Client errors (4xx)
	ErrBadRequest       = "BAD_REQUEST"
	ErrUnauthorized     = "UNAUTHORIZED"
	ErrForbidden        = "FORBIDDEN"
	ErrNotFound         = "NOT_FOUND"
	ErrConflict         = "CONFLICT"
	ErrTooManyRequests  = "TOO_MANY_REQUESTS"
	ErrValidation       = "VALIDATION_ERROR"
	ErrPayloadTooLarge  = "PAYLOAD_TOO_LARGE"
	ErrRunInProgress    = "RUN_IN_PROGRESS"
	ErrResourceNotFound = "RESOURCE_NOT_FOUND"

	// Server errors (5xx)
	ErrInternal           = "INTERNAL_SERVER_ERROR"
	ErrServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrTimeout            = "TIMEOUT"

	// Analysis pipeline errors
	ErrParse                 = "PARSE_ERROR"
	ErrEmptyDataset          = "EMPTY_DATASET"
	ErrComputationDegenerate = "COMPUTATION_DEGENERATE"
	ErrDelegationFailure     = "DELEGATION_FAILURE"
	ErrPersistenceFailure    = "PERSISTENCE_FAILURE"
)

// APIError represents a structured API error
type APIError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	StatusCode int                    `json:"-"`
	Cause      error                  `json:"-"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause
func (e *APIError) Unwrap() error {
	return e.Cause
}

// WithDetails returns a copy of the error with an extra detail entry
func (e *APIError) WithDetails(key string, value interface{}) *APIError {
	details := make(map[string]interface{}, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value

	cp := *e
	cp.Details = details
	return &cp
}

// NewAPIError creates a new API error
func NewAPIError(code, message string, details map[string]interface{}) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		Details:    details,
		StatusCode: GetHTTPStatusCodeFromErrorCode(code),
	}
}

// NewAPIErrorWithCause creates a new API error with a cause
func NewAPIErrorWithCause(code, message string, cause error, details map[string]interface{}) *APIError {
	return &APIError{
		Code:       code,
		Message:    message,
		Details:    details,
		Cause:      cause,
		StatusCode: GetHTTPStatusCodeFromErrorCode(code),
	}
}

// GetHTTPStatusCode returns the appropriate HTTP status code for an error
func GetHTTPStatusCode(err error) int {
	if apiErr, ok := AsAPIError(err); ok {
		return GetHTTPStatusCodeFromErrorCode(apiErr.Code)
	}
	return http.StatusInternalServerError
}

// GetHTTPStatusCodeFromErrorCode maps error codes to HTTP status codes
func GetHTTPStatusCodeFromErrorCode(code string) int {
	switch code {
	case ErrBadRequest, ErrValidation:
		return http.StatusBadRequest
	case ErrUnauthorized:
		return http.StatusUnauthorized
	case ErrForbidden:
		return http.StatusForbidden
	case ErrNotFound, ErrResourceNotFound:
		return http.StatusNotFound
	case ErrConflict, ErrRunInProgress:
		return http.StatusConflict
	case ErrPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrParse, ErrEmptyDataset, ErrComputationDegenerate:
		return http.StatusUnprocessableEntity
	case ErrTooManyRequests:
		return http.StatusTooManyRequests
	case ErrDelegationFailure:
		return http.StatusBadGateway
	case ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	case ErrTimeout:
		return http.StatusGatewayTimeout
	case ErrInternal, ErrPersistenceFailure:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ValidationError represents validation errors
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

// NewValidationError creates a validation error with field details
func NewValidationError(message string, validationErrors []ValidationError) *APIError {
	details := map[string]interface{}{
		"validation_errors": validationErrors,
	}
	return NewAPIError(ErrValidation, message, details)
}

// Predefined error constructors for common cases

// BadRequest creates a bad request error
func BadRequest(message string) *APIError {
	return NewAPIError(ErrBadRequest, message, nil)
}

// Unauthorized creates an unauthorized error
func Unauthorized(message string) *APIError {
	return NewAPIError(ErrUnauthorized, message, nil)
}

// Forbidden creates a forbidden error
func Forbidden(message string) *APIError {
	return NewAPIError(ErrForbidden, message, nil)
}

// NotFound creates a not found error
func NotFound(message string) *APIError {
	return NewAPIError(ErrNotFound, message, nil)
}

// NotFoundWithDetails creates a not found error with details
func NotFoundWithDetails(message string, details map[string]interface{}) *APIError {
	return NewAPIError(ErrNotFound, message, details)
}

// Conflict creates a conflict error
func Conflict(message string) *APIError {
	return NewAPIError(ErrConflict, message, nil)
}

// RunInProgress reports that a run for the same dataset and kind is already executing
func RunInProgress(datasetID, kind string) *APIError {
	return NewAPIError(ErrRunInProgress, "Run already in progress", map[string]interface{}{
		"dataset_id": datasetID,
		"run_kind":   kind,
	})
}

// PayloadTooLarge creates a payload too large error
func PayloadTooLarge(message string) *APIError {
	return NewAPIError(ErrPayloadTooLarge, message, nil)
}

// Internal creates an internal server error
func Internal(message string) *APIError {
	return NewAPIError(ErrInternal, message, nil)
}

// InternalWithCause creates an internal server error with cause
func InternalWithCause(message string, cause error) *APIError {
	return NewAPIErrorWithCause(ErrInternal, message, cause, nil)
}

// ServiceUnavailable creates a service unavailable error
func ServiceUnavailable(message string) *APIError {
	return NewAPIError(ErrServiceUnavailable, message, nil)
}

// TooManyRequests creates a too many requests error
func TooManyRequests(message string) *APIError {
	return NewAPIError(ErrTooManyRequests, message, nil)
}

// Validation creates a validation error
func Validation(message string, cause error) *APIError {
	return NewAPIErrorWithCause(ErrValidation, message, cause, nil)
}

// Analysis pipeline constructors

// Parse creates a parse error for unreadable tabular input
func Parse(message string, cause error) *APIError {
	return NewAPIErrorWithCause(ErrParse, message, cause, nil)
}

// EmptyDataset creates an empty dataset condition
func EmptyDataset(message string) *APIError {
	return NewAPIError(ErrEmptyDataset, message, nil)
}

// ComputationDegenerate creates a degenerate computation error
func ComputationDegenerate(message string, details map[string]interface{}) *APIError {
	return NewAPIError(ErrComputationDegenerate, message, details)
}

// DelegationFailure creates an error for a failed external classifier call
func DelegationFailure(message string, cause error) *APIError {
	return NewAPIErrorWithCause(ErrDelegationFailure, message, cause, nil)
}

// PersistenceFailure creates an error for a failed collaborator write
func PersistenceFailure(message string, cause error) *APIError {
	return NewAPIErrorWithCause(ErrPersistenceFailure, message, cause, nil)
}

// IsAPIError checks if an error is an APIError
func IsAPIError(err error) bool {
	_, ok := AsAPIError(err)
	return ok
}

// AsAPIError converts an error to APIError if possible
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// CodeOf returns the error code of err, or ErrInternal for foreign errors
func CodeOf(err error) string {
	if apiErr, ok := AsAPIError(err); ok {
		return apiErr.Code
	}
	return ErrInternal
}

func hasCode(err error, codes ...string) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	for _, code := range codes {
		if apiErr.Code == code {
			return true
		}
	}
	return false
}

// Error type checking functions
func IsNotFound(err error) bool {
	return hasCode(err, ErrNotFound, ErrResourceNotFound)
}

func IsUnauthorized(err error) bool {
	return hasCode(err, ErrUnauthorized)
}

func IsValidation(err error) bool {
	return hasCode(err, ErrValidation, ErrBadRequest)
}

func IsConflict(err error) bool {
	return hasCode(err, ErrConflict, ErrRunInProgress)
}

func IsParse(err error) bool {
	return hasCode(err, ErrParse)
}

func IsEmptyDataset(err error) bool {
	return hasCode(err, ErrEmptyDataset)
}

func IsComputationDegenerate(err error) bool {
	return hasCode(err, ErrComputationDegenerate)
}

func IsDelegationFailure(err error) bool {
	return hasCode(err, ErrDelegationFailure)
}

func IsPersistenceFailure(err error) bool {
	return hasCode(err, ErrPersistenceFailure)
}
