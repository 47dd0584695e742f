package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotAuthenticated is returned when no session could be restored.
var ErrNotAuthenticated = errors.New("client: not authenticated")

// ErrUploadState is returned when an upload step is called out of order or twice.
var ErrUploadState = errors.New("client: invalid upload transition")

// FieldError is one per-field validation message reported by the API.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIError is a non-2xx response that has no more specific type.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Details    []FieldError
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error (%d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error (%d %s): %s", e.StatusCode, e.Code, e.Message)
}

// ValidationError reports bad input. Details carries the per-field messages.
type ValidationError struct{ APIError }

func (e *ValidationError) Unwrap() error { return &e.APIError }

// Field returns the message reported for field, if any.
func (e *ValidationError) Field(field string) (string, bool) {
	for _, d := range e.Details {
		if d.Field == field {
			return d.Message, true
		}
	}
	return "", false
}

// AuthError means the credential was rejected and could not be refreshed.
// The caller has to log in again.
type AuthError struct {
	APIError
	Err error
}

func (e *AuthError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return &e.APIError
}

// InvalidStateError is a transition attempted from a disallowed state, such as deciding an
// already decided talent.
type InvalidStateError struct{ APIError }

func (e *InvalidStateError) Unwrap() error { return &e.APIError }

// NotFoundError means the resource does not exist or is not visible to the caller.
type NotFoundError struct{ APIError }

func (e *NotFoundError) Unwrap() error { return &e.APIError }

// NetworkError is a transport failure; no HTTP response was received.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *NetworkError) Unwrap() error { return e.Err }

// TransferError is a failed direct write to the presigned URL. StatusCode is zero when the
// storage endpoint was never reached.
type TransferError struct {
	StatusCode int
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload transfer failed: storage responded %d", e.StatusCode)
	}
	return fmt.Sprintf("upload transfer failed: %v", e.Err)
}

func (e *TransferError) Unwrap() error { return e.Err }

type errorBody struct {
	Error *struct {
		Code    string       `json:"code"`
		Message string       `json:"message"`
		Details []FieldError `json:"details"`
	} `json:"error"`
}

// decodeError maps an error envelope and status code onto the typed errors.
func decodeError(status int, body []byte) error {
	base := APIError{StatusCode: status, Message: http.StatusText(status)}
	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil {
		base.Code = parsed.Error.Code
		if parsed.Error.Message != "" {
			base.Message = parsed.Error.Message
		}
		base.Details = parsed.Error.Details
	} else if text := strings.TrimSpace(string(body)); text != "" && len(text) < 256 {
		base.Message = text
	}

	switch {
	case base.Code == "VALIDATION_ERROR" || status == http.StatusUnprocessableEntity:
		return &ValidationError{base}
	case status == http.StatusUnauthorized:
		return &AuthError{APIError: base}
	case base.Code == "INVALID_STATE":
		return &InvalidStateError{base}
	case status == http.StatusNotFound:
		return &NotFoundError{base}
	default:
		return &base
	}
}
