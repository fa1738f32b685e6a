package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents the type of an error
type ErrorType uint

const (
	// ErrorTypeUnknown represents an unknown error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeInvalidArgument represents an invalid argument error
	ErrorTypeInvalidArgument
	// ErrorTypeNotFound represents a not found error
	ErrorTypeNotFound
	// ErrorTypeInternal represents an internal error
	ErrorTypeInternal
	// ErrorTypeInvalidMarketParameter is returned for a nonpositive spot,
	// strike, volatility or time to expiry
	ErrorTypeInvalidMarketParameter
	// ErrorTypeUnsupportedExerciseStyle is returned when no valuation model
	// is registered for a class/exercise-style pair
	ErrorTypeUnsupportedExerciseStyle
	// ErrorTypeExpiredContract is returned for pre-expiry valuation of a
	// contract that has already expired
	ErrorTypeExpiredContract
	// ErrorTypeInvalidStrategyConfiguration is returned by strategy builders
	// when a structural precondition does not hold
	ErrorTypeInvalidStrategyConfiguration
)

var typeNames = map[ErrorType]string{
	ErrorTypeUnknown:                      "unknown",
	ErrorTypeInvalidArgument:              "invalid_argument",
	ErrorTypeNotFound:                     "not_found",
	ErrorTypeInternal:                     "internal",
	ErrorTypeInvalidMarketParameter:       "invalid_market_parameter",
	ErrorTypeUnsupportedExerciseStyle:     "unsupported_exercise_style",
	ErrorTypeExpiredContract:              "expired_contract",
	ErrorTypeInvalidStrategyConfiguration: "invalid_strategy_configuration",
}

// String returns the snake_case name of the error type
func (t ErrorType) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("error_type(%d)", uint(t))
}

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error returns the error message
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new error with the given message
func New(message string) error {
	return &AppError{
		Type:    ErrorTypeUnknown,
		Message: message,
	}
}

// Newf creates a new error with the given format and arguments
func Newf(format string, args ...interface{}) error {
	return &AppError{
		Type:    ErrorTypeUnknown,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a message, keeping the type of the wrapped error
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return &AppError{
		Type:    TypeOf(err),
		Message: message,
		Err:     err,
	}
}

// Wrapf wraps an error with a formatted message
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// TypeOf returns the type of the first AppError in err's chain
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err's chain carries the given error type
func IsType(err error, errType ErrorType) bool {
	return err != nil && TypeOf(err) == errType
}

// Is reports whether err or any of the errors in its chain is target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func newf(errType ErrorType, format string, args ...interface{}) error {
	return &AppError{
		Type:    errType,
		Message: fmt.Sprintf(format, args...),
	}
}

// InvalidArgument creates a new InvalidArgument error
func InvalidArgument(format string, args ...interface{}) error {
	return newf(ErrorTypeInvalidArgument, format, args...)
}

// NotFound creates a new NotFound error
func NotFound(format string, args ...interface{}) error {
	return newf(ErrorTypeNotFound, format, args...)
}

// Internal creates a new Internal error
func Internal(format string, args ...interface{}) error {
	return newf(ErrorTypeInternal, format, args...)
}

// InvalidMarketParameter creates a new InvalidMarketParameter error
func InvalidMarketParameter(format string, args ...interface{}) error {
	return newf(ErrorTypeInvalidMarketParameter, format, args...)
}

// UnsupportedExerciseStyle creates a new UnsupportedExerciseStyle error
func UnsupportedExerciseStyle(format string, args ...interface{}) error {
	return newf(ErrorTypeUnsupportedExerciseStyle, format, args...)
}

// ExpiredContract creates a new ExpiredContract error
func ExpiredContract(format string, args ...interface{}) error {
	return newf(ErrorTypeExpiredContract, format, args...)
}

// InvalidStrategyConfiguration creates a new InvalidStrategyConfiguration error
func InvalidStrategyConfiguration(format string, args ...interface{}) error {
	return newf(ErrorTypeInvalidStrategyConfiguration, format, args...)
}
