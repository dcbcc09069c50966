// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrUnauthorized matches an APIError with status 401 through errors.Is.
	ErrUnauthorized = errors.New("not authenticated")
	// ErrNotFound matches an APIError with status 404 through errors.Is.
	ErrNotFound = errors.New("not found")

	errInvalidJSON = errors.New("backend answered with invalid JSON")
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	StatusCode int

	// Detail is the backend's explanation, or the status text when it gave none.
	Detail string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %s (status code: %d)", e.Detail, e.StatusCode)
}

// Is lets callers match on the status class without a type assertion.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	default:
		return false
	}
}

// newAPIError reads the detail field of an error body.
//
// detail is a string for explicit errors and a list of {loc, msg, type}
// objects for request validation failures.
func newAPIError(statusCode int, body []byte) *APIError {
	detail := ""

	if gjson.ValidBytes(body) {
		field := gjson.GetBytes(body, "detail")

		switch {
		case field.IsArray():
			msgs := make([]string, 0, len(field.Array()))
			for _, item := range field.Array() {
				if msg := item.Get("msg").String(); msg != "" {
					msgs = append(msgs, msg)
				}
			}

			detail = strings.Join(msgs, "; ")
		case field.Type == gjson.String:
			detail = field.String()
		}
	}

	if detail == "" {
		detail = http.StatusText(statusCode)
	}

	if detail == "" {
		detail = "unknown backend error"
	}

	return &APIError{StatusCode: statusCode, Detail: detail}
}
