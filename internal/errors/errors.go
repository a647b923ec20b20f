package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// Base error types
var (
	ErrNotFound         = errors.New("not found")
	ErrTimeout          = errors.New("timeout")
	ErrInvalidInput     = errors.New("invalid input")
	ErrConnectionFailed = errors.New("connection failed")
	ErrInvalidResponse  = errors.New("invalid upstream response")
	ErrInternalError    = errors.New("internal error")
)

// ErrorType represents the category of error
type ErrorType string

const (
	ErrorTypeConnection ErrorType = "connection"
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeNotFound   ErrorType = "not_found"
	ErrorTypeInternal   ErrorType = "internal"
	ErrorTypeAPI        ErrorType = "api"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeDecode     ErrorType = "decode"
)

// GatewayError is a structured error for ACS gateway and provisioning operations
type GatewayError struct {
	Type       ErrorType
	Op         string // Operation that failed (e.g., "submit_task", "query_device")
	DeviceID   string // Device the operation targeted, if any
	Err        error  // Underlying error
	StatusCode int    // Upstream HTTP status code if applicable
	Timestamp  time.Time
}

func (e *GatewayError) Error() string {
	if e.DeviceID != "" {
		return fmt.Sprintf("%s failed for %s: %v", e.Op, e.DeviceID, e.Err)
	}
	if e.Op != "" {
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	}
	return e.Err.Error()
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is interface
func (e *GatewayError) Is(target error) bool {
	if target == nil {
		return false
	}

	switch target {
	case ErrNotFound:
		return e.Type == ErrorTypeNotFound
	case ErrTimeout:
		return e.Type == ErrorTypeTimeout
	case ErrConnectionFailed:
		return e.Type == ErrorTypeConnection
	case ErrInvalidInput:
		return e.Type == ErrorTypeValidation
	case ErrInvalidResponse:
		return e.Type == ErrorTypeDecode
	}

	return errors.Is(e.Err, target)
}

// NewGatewayError creates a new GatewayError
func NewGatewayError(errorType ErrorType, op, deviceID string, err error) *GatewayError {
	return &GatewayError{
		Type:      errorType,
		Op:        op,
		DeviceID:  deviceID,
		Err:       err,
		Timestamp: time.Now(),
	}
}

// WithStatusCode adds the upstream HTTP status code to the error
func (e *GatewayError) WithStatusCode(code int) *GatewayError {
	e.StatusCode = code
	return e
}

// Helper functions

// NewValidationError reports malformed or missing caller input.
func NewValidationError(message string) error {
	return NewGatewayError(ErrorTypeValidation, "", "", errors.New(message))
}

// Validationf is NewValidationError with formatting.
func Validationf(format string, args ...any) error {
	return NewValidationError(fmt.Sprintf(format, args...))
}

// WrapTransportError classifies a failed outbound call as a timeout or a connection error.
func WrapTransportError(op, deviceID string, err error) error {
	if IsTimeoutCause(err) {
		return NewGatewayError(ErrorTypeTimeout, op, deviceID, err)
	}
	return NewGatewayError(ErrorTypeConnection, op, deviceID, err)
}

// WrapAPIError wraps a non-success upstream response with context
func WrapAPIError(op, deviceID string, err error, statusCode int) error {
	return NewGatewayError(ErrorTypeAPI, op, deviceID, err).WithStatusCode(statusCode)
}

// WrapDecodeError wraps an unparseable upstream body
func WrapDecodeError(op, deviceID string, err error) error {
	return NewGatewayError(ErrorTypeDecode, op, deviceID, fmt.Errorf("%w: %v", ErrInvalidResponse, err))
}

// IsTimeoutCause reports whether err came from an elapsed deadline.
func IsTimeoutCause(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsValidation checks if an error was caused by caller input
func IsValidation(err error) bool {
	return TypeOf(err) == ErrorTypeValidation
}

// IsTimeout checks if an error is an upstream timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// TypeOf returns the category of err, or ErrorTypeInternal when it carries none.
func TypeOf(err error) ErrorType {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Type
	}
	if errors.Is(err, ErrNotFound) {
		return ErrorTypeNotFound
	}
	if errors.Is(err, ErrInvalidInput) {
		return ErrorTypeValidation
	}
	return ErrorTypeInternal
}

// HTTPStatus maps an error onto the status code reported to inbound callers.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}
	switch TypeOf(err) {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeConnection, ErrorTypeDecode:
		return http.StatusBadGateway
	case ErrorTypeAPI:
		var gwErr *GatewayError
		if errors.As(err, &gwErr) && gwErr.StatusCode >= 400 {
			return gwErr.StatusCode
		}
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Code returns a short machine-readable code for err.
func Code(err error) string {
	switch TypeOf(err) {
	case ErrorTypeValidation:
		return "validation_error"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeTimeout:
		return "upstream_timeout"
	case ErrorTypeConnection:
		return "upstream_unreachable"
	case ErrorTypeDecode:
		return "upstream_invalid_response"
	case ErrorTypeAPI:
		return "upstream_rejected"
	default:
		return "internal_error"
	}
}

// Message returns the caller-facing message for err. Validation errors expose their
// own text; transport failures share one generic message.
func Message(err error) string {
	var gwErr *GatewayError
	switch TypeOf(err) {
	case ErrorTypeValidation:
		if errors.As(err, &gwErr) && gwErr.Err != nil {
			return gwErr.Err.Error()
		}
		return err.Error()
	case ErrorTypeNotFound:
		if errors.As(err, &gwErr) && gwErr.Err != nil && gwErr.Err != ErrNotFound {
			return gwErr.Err.Error()
		}
		return "Device not found"
	case ErrorTypeTimeout, ErrorTypeConnection, ErrorTypeDecode, ErrorTypeAPI:
		return "Upstream request failed"
	default:
		return "Internal server error"
	}
}
