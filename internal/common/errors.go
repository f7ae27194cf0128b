package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error taxonomy. Only ErrInvalidInput is allowed to cross the extraction
// boundary; everything else is absorbed and logged close to where it happens.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrPattern      = errors.New("pattern scan failed")
	ErrRefinement   = errors.New("refinement unavailable")
	ErrRange        = errors.New("value out of range")
	ErrNotFound     = errors.New("resource not found")
	ErrDatabase     = errors.New("database error")
	ErrValidation   = errors.New("validation failed")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewInputError builds the fatal error returned for structurally invalid OCR
// input. errors.Is(err, ErrInvalidInput) holds for the result.
func NewInputError(message string) *AppError {
	return NewAppError("INPUT_ERROR", message, ErrInvalidInput)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
