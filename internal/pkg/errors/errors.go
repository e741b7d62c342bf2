// Package errors provides custom error types and error handling utilities.
package errors

import (
	"fmt"
)

// Error codes.
const (
	// Caller errors.
	CodeValidation      = "VALIDATION_ERROR"
	CodeNotFound        = "NOT_FOUND"
	CodeAlreadyExists   = "ALREADY_EXISTS"
	CodeInvalidFormat   = "INVALID_FORMAT"
	CodeEmptyAnalysis   = "EMPTY_ANALYSIS"
	CodeDatasetMismatch = "DATASET_MISMATCH"

	// Processing errors.
	CodeInternal = "INTERNAL_ERROR"
	CodeParse    = "PARSE_ERROR"
	CodeClosed   = "LOG_CLOSED"
)

// AppError represents an application error with code and details.
type AppError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
	Err     error             `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error.
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with an AppError.
func Wrap(code, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// WithDetails adds details to the error.
func (e *AppError) WithDetails(details map[string]string) *AppError {
	e.Details = details
	return e
}

// WithDetail adds a single detail to the error.
func (e *AppError) WithDetail(key, value string) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// Convenience constructors.

// ValidationError creates a validation error.
func ValidationError(message string) *AppError {
	return New(CodeValidation, message)
}

// NotFoundError creates a not found error.
func NotFoundError(resource string) *AppError {
	return New(CodeNotFound, fmt.Sprintf("%s not found", resource))
}

// AlreadyExistsError creates an already exists error.
func AlreadyExistsError(resource string) *AppError {
	return New(CodeAlreadyExists, fmt.Sprintf("%s already exists", resource))
}

// InvalidFormatError creates an error for an unknown result or axis format.
func InvalidFormatError(format string) *AppError {
	return New(CodeInvalidFormat, fmt.Sprintf("unknown format %q", format))
}

// EmptyAnalysisError creates an error for operations on an analysis
// holding no runs.
func EmptyAnalysisError() *AppError {
	return New(CodeEmptyAnalysis, "analysis contains no runs")
}

// DatasetMismatchError creates an error for runs recorded over
// different datasets.
func DatasetMismatchError(runKey string) *AppError {
	return New(CodeDatasetMismatch,
		fmt.Sprintf("run %s was recorded over a different dataset", runKey))
}

// InternalError creates an internal error.
func InternalError(message string, err error) *AppError {
	return Wrap(CodeInternal, message, err)
}

// ParseError creates a run log parse error.
func ParseError(message string, err error) *AppError {
	return Wrap(CodeParse, message, err)
}

// IsNotFound checks if error is a not found error.
func IsNotFound(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == CodeNotFound
	}
	return false
}

// IsValidation checks if error is a validation error.
func IsValidation(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == CodeValidation
	}
	return false
}

// IsEmptyAnalysis checks if error signals an analysis without runs.
func IsEmptyAnalysis(err error) bool {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code == CodeEmptyAnalysis
	}
	return false
}
