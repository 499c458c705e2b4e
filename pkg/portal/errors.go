package portal

import (
	"errors"
	"fmt"
)

// Error classes understood by the HTTP boundary.
var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrProfileNotFound      = errors.New("profile not found")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("not found")
	ErrValidation           = errors.New("validation error")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrUpstream             = errors.New("upstream error")
	ErrInvalidServiceConfig = errors.New("invalid service config")
)

// Specific failures, each wrapping one of the classes above.
var (
	ErrAdminRequired      = fmt.Errorf("%w: admin role required", ErrForbidden)
	ErrSuperAdminRequired = fmt.Errorf("%w: super admin role required", ErrForbidden)
	ErrMainAdminProtected = fmt.Errorf("%w: main admin role is immutable", ErrForbidden)
	ErrOrderNotOwned      = fmt.Errorf("%w: order belongs to another user", ErrForbidden)

	ErrOrderNotFound    = fmt.Errorf("%w: order", ErrNotFound)
	ErrDocumentNotFound = fmt.Errorf("%w: document", ErrNotFound)
	ErrPaymentNotFound  = fmt.Errorf("%w: payment", ErrNotFound)

	ErrMissingOrderFields = fmt.Errorf("%w: type and price are required", ErrValidation)
	ErrInvalidPrice       = fmt.Errorf("%w: price must be greater than zero", ErrValidation)
	ErrUnknownOrderType   = fmt.Errorf("%w: unknown order type", ErrValidation)
	ErrUnknownStatus      = fmt.Errorf("%w: unknown order status", ErrValidation)
	ErrUnknownRole        = fmt.Errorf("%w: unknown role", ErrValidation)
	ErrEmptyFile          = fmt.Errorf("%w: empty file", ErrValidation)
	ErrFileTooLarge       = fmt.Errorf("%w: file too large", ErrValidation)
	ErrInvalidDocument    = fmt.Errorf("%w: invalid document type", ErrValidation)
	ErrInvalidAmount      = fmt.Errorf("%w: amount must be greater than zero", ErrValidation)
	ErrStatusConflict     = fmt.Errorf("%w: order status changed concurrently", ErrInvalidTransition)
	ErrStorageFailure     = fmt.Errorf("%w: object storage", ErrUpstream)
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}

// ValidationError lists the offending fields of a rejected request.
type ValidationError struct {
	Fields []string
}

func (validationError ValidationError) Error() string {
	return fmt.Sprintf("validation error: %v", validationError.Fields)
}

// Is reports ErrValidation so callers can match on the class.
func (validationError ValidationError) Is(target error) bool {
	return target == ErrValidation
}
