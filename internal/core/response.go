package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"tradenotify/internal/types"
)

// defaultMaxBodyBytes applies when the config does not set MaxBodyBytes.
const defaultMaxBodyBytes = 1 << 20 // 1 MB

// ErrorResponse is the error body written for every non-2xx response the
// chassis produces. Details from the AppError are flattened next to the
// message so clients can read "fields" or "validTypes" directly.
type ErrorResponse map[string]any

// JSON writes a JSON response with the given status code and data.
// If marshalling fails, it falls back to a 500 error response.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(ErrorResponse{
			"error":      "failed to marshal response",
			"code":       string(types.ErrCodeInternalUnexpected),
			"request_id": types.GetRequestID(r.Context()),
		})
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// Error writes an error response. A *types.AppError anywhere in the chain
// selects the status and code; anything else becomes an opaque 500.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		JSON(w, r, appErr.HTTPStatus(), newErrorResponse(r, appErr.Code, appErr.Message, appErr.Details))
		return
	}

	JSON(w, r, http.StatusInternalServerError,
		newErrorResponse(r, types.ErrCodeInternalUnexpected, "Internal server error", nil))
}

func newErrorResponse(r *http.Request, code types.ErrorCode, message string, details map[string]any) ErrorResponse {
	resp := make(ErrorResponse, len(details)+3)
	for k, v := range details {
		resp[k] = v
	}
	resp["error"] = message
	resp["code"] = string(code)
	if reqID := types.GetRequestID(r.Context()); reqID != "" {
		resp["request_id"] = reqID
	}
	return resp
}

// ReadBody reads the (already decompressed and size-limited) request body.
// An oversized body maps to payload_too_large; an empty one to
// validation_invalid_json.
func ReadBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, types.NewAppError(types.ErrCodePayloadTooLarge,
				fmt.Sprintf("Request body must not exceed %d bytes", maxBytesErr.Limit), err)
		}
		var appErr *types.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, types.NewAppError(types.ErrCodeValidationInvalidJSON, "Failed to read request body", err)
	}
	if len(body) == 0 {
		return nil, types.NewAppError(types.ErrCodeValidationInvalidJSON, "Request body must not be empty", nil)
	}
	return body, nil
}
