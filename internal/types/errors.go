package types

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Error code constants. Handlers MUST use these instead of hardcoded strings.
const (
	// Validation (400)
	ErrCodeValidationInvalidJSON      ErrorCode = "validation_invalid_json"
	ErrCodeValidationMissingField     ErrorCode = "validation_missing_required_field"
	ErrCodeValidationInvalidFieldType ErrorCode = "validation_invalid_field_type"
	ErrCodeValidationEmptyField       ErrorCode = "validation_empty_field"
	ErrCodeValidationInvalidEventType ErrorCode = "validation_invalid_event_type"
	ErrCodeValidationInvalidSide      ErrorCode = "validation_invalid_side"
	ErrCodeValidationInvalidVolume    ErrorCode = "validation_invalid_volume"
	ErrCodeValidationInvalidPrice     ErrorCode = "validation_invalid_price"

	// Auth (401)
	ErrCodeAuthTokenMissing ErrorCode = "auth_token_missing"
	ErrCodeAuthTokenInvalid ErrorCode = "auth_token_invalid"

	// Routing
	ErrCodeNotFoundRoute    ErrorCode = "not_found_route"
	ErrCodeMethodNotAllowed ErrorCode = "method_not_allowed"

	// Limits
	ErrCodeRateLimit           ErrorCode = "rate_limit_exceeded"
	ErrCodePayloadTooLarge     ErrorCode = "payload_too_large"
	ErrCodeUnsupportedEncoding ErrorCode = "unsupported_content_encoding"

	// Delivery / internal (500)
	ErrCodeDeliveryExhausted  ErrorCode = "delivery_retries_exhausted"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"
)

// HTTPStatus maps an ErrorCode to its HTTP status code.
// Returns 500 for unrecognized codes.
func (c ErrorCode) HTTPStatus() int {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "validation_"):
		return http.StatusBadRequest
	case strings.HasPrefix(s, "auth_"):
		return http.StatusUnauthorized
	case strings.HasPrefix(s, "not_found_"):
		return http.StatusNotFound
	case c == ErrCodeMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case c == ErrCodeRateLimit:
		return http.StatusTooManyRequests
	case c == ErrCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case c == ErrCodeUnsupportedEncoding:
		return http.StatusUnsupportedMediaType
	default:
		// delivery_* is deliberately a 500: the terminal treats it as "resend later".
		return http.StatusInternalServerError
	}
}

// AppError is the standard application error type. Details carries
// machine-checkable context (missing field names, accepted enum values) that
// the HTTP layer renders next to the message.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the HTTP status code corresponding to this error's code.
func (e *AppError) HTTPStatus() int {
	return e.Code.HTTPStatus()
}

// IsValidation reports whether the error was produced by input validation.
// Validation failures are permanent for the given input.
func (e *AppError) IsValidation() bool {
	return strings.HasPrefix(string(e.Code), "validation_")
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError carrying structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// WithDetails returns a copy of the error with extra details merged in.
// The receiver is not modified; keys in extra overwrite existing keys.
func (e *AppError) WithDetails(extra map[string]any) *AppError {
	merged := make(map[string]any, len(e.Details)+len(extra))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return &AppError{
		Code:    e.Code,
		Message: e.Message,
		Err:     e.Err,
		Details: merged,
	}
}

// AsValidationError returns the AppError in err's chain if it is a validation
// failure.
func AsValidationError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.IsValidation() {
		return appErr, true
	}
	return nil, false
}
