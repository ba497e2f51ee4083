package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorImplementsError(t *testing.T) {
	var _ error = (*AppError)(nil)
}

// TestAppErrorErrorFormat verifies the "code: message" format.
func TestAppErrorErrorFormat(t *testing.T) {
	appErr := &AppError{
		Code:    ErrCodeValidationInvalidVolume,
		Message: "Volume must be greater than 0",
	}

	expected := "validation_invalid_volume: Volume must be greater than 0"
	if appErr.Error() != expected {
		t.Errorf("Error() = %q, want %q", appErr.Error(), expected)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("unexpected end of JSON input")
	appErr := NewAppError(ErrCodeValidationInvalidJSON, "Request body must be a JSON object", underlying)

	if appErr.Unwrap() != underlying {
		t.Errorf("Unwrap() returned unexpected error: got %v, want %v", appErr.Unwrap(), underlying)
	}
	if !errors.Is(appErr, underlying) {
		t.Error("errors.Is should find the underlying error")
	}
}

func TestAppErrorUnwrapNil(t *testing.T) {
	appErr := NewAppError(ErrCodeNotFoundRoute, "Route not found", nil)
	if appErr.Unwrap() != nil {
		t.Errorf("Unwrap() should return nil when Err is nil, got %v", appErr.Unwrap())
	}
}

func TestAppErrorErrorsAs(t *testing.T) {
	appErr := NewAppError(ErrCodeAuthTokenInvalid, "Invalid token", nil)
	wrapped := fmt.Errorf("auth middleware: %w", appErr)

	var target *AppError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should extract *AppError from the chain")
	}
	if target.Code != ErrCodeAuthTokenInvalid {
		t.Errorf("Code = %q, want %q", target.Code, ErrCodeAuthTokenInvalid)
	}
}

func TestAppErrorWithDetails(t *testing.T) {
	original := NewAppErrorWithDetails(
		ErrCodeValidationMissingField,
		"Missing required fields",
		nil,
		map[string]any{"fields": []string{"symbol"}},
	)

	enhanced := original.WithDetails(map[string]any{"hint": "see API docs"})

	if _, ok := original.Details["hint"]; ok {
		t.Error("WithDetails should not mutate the original error")
	}
	if _, ok := enhanced.Details["fields"]; !ok {
		t.Error("enhanced should retain original details")
	}
	if enhanced.Details["hint"] != "see API docs" {
		t.Errorf("hint = %v", enhanced.Details["hint"])
	}
	if enhanced.Code != original.Code || enhanced.Message != original.Message {
		t.Error("Code and Message should carry over")
	}
}

func TestAppErrorWithDetailsNilOriginal(t *testing.T) {
	enhanced := NewAppError(ErrCodeValidationInvalidSide, "Invalid side", nil).
		WithDetails(map[string]any{"validSides": AllTradeSides()})

	if enhanced.Details["validSides"] == nil {
		t.Error("WithDetails on nil details should populate the map")
	}
}

func TestErrorCodeHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{ErrCodeValidationInvalidJSON, http.StatusBadRequest},
		{ErrCodeValidationMissingField, http.StatusBadRequest},
		{ErrCodeValidationInvalidFieldType, http.StatusBadRequest},
		{ErrCodeValidationEmptyField, http.StatusBadRequest},
		{ErrCodeValidationInvalidEventType, http.StatusBadRequest},
		{ErrCodeValidationInvalidSide, http.StatusBadRequest},
		{ErrCodeValidationInvalidVolume, http.StatusBadRequest},
		{ErrCodeValidationInvalidPrice, http.StatusBadRequest},
		{ErrCodeAuthTokenMissing, http.StatusUnauthorized},
		{ErrCodeAuthTokenInvalid, http.StatusUnauthorized},
		{ErrCodeNotFoundRoute, http.StatusNotFound},
		{ErrCodeMethodNotAllowed, http.StatusMethodNotAllowed},
		{ErrCodeRateLimit, http.StatusTooManyRequests},
		{ErrCodePayloadTooLarge, http.StatusRequestEntityTooLarge},
		{ErrCodeUnsupportedEncoding, http.StatusUnsupportedMediaType},
		{ErrCodeDeliveryExhausted, http.StatusInternalServerError},
		{ErrCodeInternalUnexpected, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}

func TestErrorCodeHTTPStatusUnknown(t *testing.T) {
	if got := ErrorCode("something_new").HTTPStatus(); got != http.StatusInternalServerError {
		t.Errorf("unknown code HTTPStatus() = %d, want 500", got)
	}
}

func TestAsValidationError(t *testing.T) {
	valErr := NewAppError(ErrCodeValidationInvalidPrice, "Price must be greater than 0", nil)
	if got, ok := AsValidationError(fmt.Errorf("relay: %w", valErr)); !ok || got != valErr {
		t.Errorf("AsValidationError should unwrap validation errors, got %v %v", got, ok)
	}

	if _, ok := AsValidationError(NewAppError(ErrCodeDeliveryExhausted, "x", nil)); ok {
		t.Error("delivery errors are not validation errors")
	}
	if _, ok := AsValidationError(errors.New("plain")); ok {
		t.Error("plain errors are not validation errors")
	}
}
