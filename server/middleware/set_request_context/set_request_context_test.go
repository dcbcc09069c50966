// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package set_request_context

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"codeberg.org/presetfe/presetfe/server/middleware"
	"codeberg.org/presetfe/presetfe/server/request_context"
)

func TestWithRequestContext_AttachesContext(t *testing.T) {
	t.Parallel()

	var rc *request_context.RequestContext

	handler := middleware.Wrap(WithRequestContext, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rc = request_context.FromRequest(r)

		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/results", nil))

	assert.Equal(t, http.StatusOK, rr.Code)

	if assert.NotNil(t, rc) {
		assert.NotEmpty(t, rc.RequestID)
		assert.Equal(t, http.StatusOK, rc.StatusCode)
		assert.NoError(t, rc.RequestError)
	}
}

func TestWithRequestContext_GeneratesUniqueRequestIDs(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)

	handler := middleware.Wrap(WithRequestContext, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[request_context.FromRequest(r).RequestID] = true
	}))

	for range 3 {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	assert.Len(t, seen, 3)
}

func TestFromContext_Detached(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "/", nil)

	rc := request_context.FromRequest(r)
	assert.NotNil(t, rc)
	assert.Empty(t, rc.RequestID)
}
