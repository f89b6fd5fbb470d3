package errors

import (
	stderrors "errors"
	"fmt"
)

// InvariantError represents a violated programming invariant, such as a
// subscription being both reserve and individual. The billing scheduler treats
// these as fatal for the run.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Message)
}

// NewInvariant creates a new invariant violation error
func NewInvariant(format string, args ...interface{}) *InvariantError {
	return &InvariantError{Message: fmt.Sprintf(format, args...)}
}

// IsInvariant reports whether err is an InvariantError
func IsInvariant(err error) bool {
	var target *InvariantError
	return stderrors.As(err, &target)
}

// InvalidArgumentError represents a caller usage error
type InvalidArgumentError struct {
	Field   string
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument '%s': %s", e.Field, e.Message)
}

// NewInvalidArgument creates a new invalid argument error
func NewInvalidArgument(field, message string) *InvalidArgumentError {
	return &InvalidArgumentError{Field: field, Message: message}
}

// IsInvalidArgument reports whether err is an InvalidArgumentError
func IsInvalidArgument(err error) bool {
	var target *InvalidArgumentError
	return stderrors.As(err, &target)
}

// NotFoundError represents a missing entity. The caller decides the
// user-facing message.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// NewNotFound creates a new not found error
func NewNotFound(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

// IsNotFound reports whether err is a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return stderrors.As(err, &target)
}

// NoRateError indicates that no exchange rate is cached for a currency.
// It blocks a single price computation, never a whole run.
type NoRateError struct {
	Currency string
}

func (e *NoRateError) Error() string {
	return fmt.Sprintf("no exchange rate cached for currency %s", e.Currency)
}

// NewNoRate creates a new missing rate error
func NewNoRate(currency string) *NoRateError {
	return &NoRateError{Currency: currency}
}

// IsNoRate reports whether err is a NoRateError
func IsNoRate(err error) bool {
	var target *NoRateError
	return stderrors.As(err, &target)
}
