package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// ErrMissingJobID indicates an upload response that did not carry a job id.
var ErrMissingJobID = errors.New("upload response has no job_id")

// APIError represents a non-2xx backend response.
type APIError struct {
	StatusCode int
	Detail     string
	Raw        []byte
	RequestID  string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		if e.RequestID != "" {
			return fmt.Sprintf("api error: status=%d request_id=%s detail=%s", e.StatusCode, e.RequestID, e.Detail)
		}
		return fmt.Sprintf("api error: status=%d detail=%s", e.StatusCode, e.Detail)
	}
	if e.RequestID != "" {
		return fmt.Sprintf("api error: status=%d request_id=%s", e.StatusCode, e.RequestID)
	}
	return fmt.Sprintf("api error: status=%d", e.StatusCode)
}

// BadRequestError covers rejected input (400, 413, 415, 422).
type BadRequestError struct{ *APIError }

func (e *BadRequestError) Error() string { return fmt.Sprintf("bad request: %s", e.APIError.Error()) }

func (e *BadRequestError) Unwrap() error { return e.APIError }

// NotFoundError indicates an unknown job id or route.
type NotFoundError struct{ *APIError }

func (e *NotFoundError) Error() string { return fmt.Sprintf("not found: %s", e.APIError.Error()) }

func (e *NotFoundError) Unwrap() error { return e.APIError }

// ServerError indicates 5xx errors from the backend.
type ServerError struct{ *APIError }

func (e *ServerError) Error() string { return fmt.Sprintf("server error: %s", e.APIError.Error()) }

func (e *ServerError) Unwrap() error { return e.APIError }

// UnreachableError indicates the backend could not be reached at all.
type UnreachableError struct {
	Host string
	Err  error
}

func (e *UnreachableError) Error() string {
	if e == nil {
		return "unreachable"
	}
	if e.Host != "" {
		return fmt.Sprintf("backend unreachable at %s: %v", e.Host, e.Err)
	}
	return fmt.Sprintf("backend unreachable: %v", e.Err)
}

func (e *UnreachableError) Unwrap() error { return e.Err }

// classifyAPIError maps a generic APIError to a typed error.
func classifyAPIError(apiErr *APIError) error {
	sc := apiErr.StatusCode
	switch {
	case sc == http.StatusBadRequest, sc == http.StatusRequestEntityTooLarge,
		sc == http.StatusUnsupportedMediaType, sc == http.StatusUnprocessableEntity:
		return &BadRequestError{APIError: apiErr}
	case sc == http.StatusNotFound:
		return &NotFoundError{APIError: apiErr}
	case sc >= 500 && sc <= 599:
		return &ServerError{APIError: apiErr}
	}
	return apiErr
}

// parseDetail extracts the server-supplied message from an error body.
// FastAPI sends {"detail": "..."} or a validation list {"detail": [{"msg": ...}]}.
func parseDetail(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	d := gjson.GetBytes(body, "detail")
	switch {
	case d.Type == gjson.String:
		return d.String()
	case d.IsArray():
		if m := d.Get("0.msg"); m.Exists() {
			return m.String()
		}
	case d.IsObject():
		if m := d.Get("message"); m.Type == gjson.String {
			return m.String()
		}
	}
	for _, path := range []string{"message", "error.message", "error"} {
		if m := gjson.GetBytes(body, path); m.Type == gjson.String {
			return m.String()
		}
	}
	return ""
}

// Detail returns the server-supplied detail carried by err, if any.
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}
