// internal/domain/errors.go
package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrUnauthorized is matched by errors returned for HTTP 401 responses.
// Callers can check for it using errors.Is after the session was reset.
var ErrUnauthorized = errors.New("unauthorized")

// StatusEntityError is the status code the API uses for field validation failures.
const StatusEntityError = http.StatusUnprocessableEntity

const (
	defaultHTTPErrorMessage   = "Http error"
	defaultEntityErrorMessage = "Entity error"
)

// HTTPError is a non-2xx response that is not otherwise specialized.
// Payload holds the decoded response body; it normally carries a "message" key.
type HTTPError struct {
	Status  int
	Payload map[string]any
	Message string
}

// NewHTTPError builds an HTTPError. An empty message falls back to "Http error".
func NewHTTPError(status int, payload map[string]any, message string) *HTTPError {
	if message == "" {
		message = defaultHTTPErrorMessage
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return &HTTPError{Status: status, Payload: payload, Message: message}
}

func (e *HTTPError) Error() string {
	if msg := e.PayloadMessage(); msg != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Message, e.Status, msg)
	}
	return fmt.Sprintf("%s: status %d", e.Message, e.Status)
}

// PayloadMessage returns the "message" field of the payload, or "" when absent.
func (e *HTTPError) PayloadMessage() string {
	msg, _ := e.Payload["message"].(string)
	return msg
}

// Unwrap exposes ErrUnauthorized for 401 responses.
func (e *HTTPError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

// FieldError is a single field-level violation reported by a 422 response.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// EntityErrorPayload is the body shape of a 422 response.
type EntityErrorPayload struct {
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors"`
}

// EntityError is a validation failure tied to submitted fields.
// It specializes HTTPError: errors.As(err, &httpErr) finds the generic view.
type EntityError struct {
	Payload EntityErrorPayload
	base    *HTTPError
}

// NewEntityError decodes a 422 body into an EntityError. The body is trusted to
// match EntityErrorPayload; unknown keys stay available through HTTPError.Payload.
func NewEntityError(body json.RawMessage) (*EntityError, error) {
	var payload EntityErrorPayload
	var raw map[string]any
	if len(body) > 0 && string(body) != "null" {
		if err := json.Unmarshal(body, &payload); err != nil {
			return nil, fmt.Errorf("decoding entity error payload: %w", err)
		}
		if err := json.Unmarshal(body, &raw); err != nil {
			return nil, fmt.Errorf("decoding entity error payload: %w", err)
		}
	}
	return &EntityError{
		Payload: payload,
		base:    NewHTTPError(StatusEntityError, raw, defaultEntityErrorMessage),
	}, nil
}

// Status is always 422.
func (e *EntityError) Status() int {
	return StatusEntityError
}

func (e *EntityError) Error() string {
	if e.Payload.Message != "" {
		return fmt.Sprintf("%s: %s (%d field errors)", defaultEntityErrorMessage, e.Payload.Message, len(e.Payload.Errors))
	}
	return fmt.Sprintf("%s: %d field errors", defaultEntityErrorMessage, len(e.Payload.Errors))
}

func (e *EntityError) Unwrap() error {
	return e.base
}

// FieldMessage returns the first violation message for field, or "".
func (e *EntityError) FieldMessage(field string) string {
	for _, fe := range e.Payload.Errors {
		if fe.Field == field {
			return fe.Message
		}
	}
	return ""
}
