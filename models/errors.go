package models

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a domain failure for callers and the HTTP layer.
type ErrorCode string

const (
	ErrCodeNotFound          ErrorCode = "notFound"
	ErrCodeConflict          ErrorCode = "conflict"
	ErrCodeInvalidTransition ErrorCode = "invalidTransition"
	ErrCodePermissionDenied  ErrorCode = "permissionDenied"
	ErrCodeGateway           ErrorCode = "gatewayError"
	ErrCodeValidation        ErrorCode = "validationError"
)

// DomainError carries a stable code plus a user-renderable message.
type DomainError struct {
	Code    ErrorCode
	Message string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewNotFound(msg string) error {
	return &DomainError{Code: ErrCodeNotFound, Message: msg}
}

func NewConflict(msg string) error {
	return &DomainError{Code: ErrCodeConflict, Message: msg}
}

func NewInvalidTransition(msg string) error {
	return &DomainError{Code: ErrCodeInvalidTransition, Message: msg}
}

func NewPermissionDenied(msg string) error {
	return &DomainError{Code: ErrCodePermissionDenied, Message: msg}
}

func NewGatewayError(msg string) error {
	return &DomainError{Code: ErrCodeGateway, Message: msg}
}

func NewValidationError(msg string) error {
	return &DomainError{Code: ErrCodeValidation, Message: msg}
}

// CodeOf extracts the error code, or "" for non-domain errors.
func CodeOf(err error) ErrorCode {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}
