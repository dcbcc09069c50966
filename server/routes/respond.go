// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"codeberg.org/presetfe/presetfe/server/request_context"
	"codeberg.org/presetfe/presetfe/server/utils"
)

const maxBodyBytes = 1 << 20

var errMissingPathID = errors.New("missing id")

// StatusError is a handler failure with a status code the client should see.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s (status code: %d)", e.Message, e.StatusCode)
}

func NewStatusError(statusCode int, message string) error {
	return &StatusError{StatusCode: statusCode, Message: message}
}

// ErrorBody is the JSON document sent for failed requests.
type ErrorBody struct {
	Error      string `json:"error"`
	StatusCode int    `json:"status"`
	RequestID  string `json:"requestId,omitempty"`
}

// WriteJSON encodes data with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	return json.NewEncoder(w).Encode(data)
}

// ErrorPage writes the JSON error document for the request's error and status code.
func ErrorPage(w http.ResponseWriter, r *http.Request, message string) {
	w.Header().Set("Cache-Control", "no-store")

	rc := request_context.FromRequest(r)

	_ = WriteJSON(w, rc.StatusCode, ErrorBody{
		Error:      message,
		StatusCode: rc.StatusCode,
		RequestID:  rc.RequestID,
	})
}

// readJSON decodes a size-limited request body into out.
func readJSON(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(out); err != nil {
		return NewStatusError(http.StatusBadRequest, "invalid JSON body: "+err.Error())
	}

	return nil
}

// pathID reads a positive integer path variable.
func pathID(r *http.Request, name string) (int, error) {
	raw := utils.GetPathVar(r, name)
	if raw == "" {
		return 0, NewStatusError(http.StatusBadRequest, errMissingPathID.Error())
	}

	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, NewStatusError(http.StatusBadRequest, fmt.Sprintf("invalid id %q", raw))
	}

	return id, nil
}
