// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/presetfe/presetfe/core/backend"
	"codeberg.org/presetfe/presetfe/core/cookie"
	"codeberg.org/presetfe/presetfe/server/request_context"
	"codeberg.org/presetfe/presetfe/server/routes"
)

// createTestRequest creates a test HTTP request with request context.
func createTestRequest(t *testing.T, method, target string) *http.Request {
	t.Helper()

	req := httptest.NewRequest(method, target, nil)

	return req.WithContext(request_context.WithRequestContext(req.Context()))
}

func decodeErrorBody(t *testing.T, rr *httptest.ResponseRecorder) routes.ErrorBody {
	t.Helper()

	var body routes.ErrorBody
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))

	return body
}

func cookieNamed(rr *httptest.ResponseRecorder, name cookie.CookieName) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == string(name) {
			return c
		}
	}

	return nil
}

func TestCatchError_Success(t *testing.T) {
	t.Parallel()

	handler := CatchError(func(w http.ResponseWriter, _ *http.Request) error {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"status":"success"}`)

		return nil
	})

	req := createTestRequest(t, http.MethodGet, "/results")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, `{"status":"success"}`, rr.Body.String())
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	ctx := request_context.FromRequest(req)
	assert.NoError(t, ctx.RequestError)
	assert.Equal(t, http.StatusCreated, ctx.StatusCode)
}

func TestCatchError_KeepsOuterCookies(t *testing.T) {
	t.Parallel()

	handler := CatchError(func(w http.ResponseWriter, _ *http.Request) error {
		http.SetCookie(w, &http.Cookie{Name: "inner", Value: "1"})

		return nil
	})

	req := createTestRequest(t, http.MethodGet, "/")
	rr := httptest.NewRecorder()
	http.SetCookie(rr, &http.Cookie{Name: "outer", Value: "1"})

	handler.ServeHTTP(rr, req)

	assert.Len(t, rr.Result().Cookies(), 2)
}

func TestCatchError_HandlerError(t *testing.T) {
	t.Parallel()

	testError := errors.New("test handler error")
	handler := CatchError(func(_ http.ResponseWriter, _ *http.Request) error {
		return testError
	})

	req := createTestRequest(t, http.MethodGet, "/tests")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	body := decodeErrorBody(t, rr)
	assert.Equal(t, http.StatusInternalServerError, body.StatusCode)
	assert.Equal(t, "Internal Server Error", body.Error)
	assert.NotEmpty(t, body.RequestID)

	ctx := request_context.FromRequest(req)
	assert.ErrorIs(t, ctx.RequestError, testError)
}

func TestCatchError_HandlerWroteErrorStatus(t *testing.T) {
	t.Parallel()

	handler := CatchError(func(w http.ResponseWriter, _ *http.Request) error {
		w.WriteHeader(http.StatusConflict)

		return errors.New("conflict")
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, createTestRequest(t, http.MethodPost, "/results"))

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestCatchError_APIErrorKeepsStatus(t *testing.T) {
	t.Parallel()

	handler := CatchError(func(_ http.ResponseWriter, _ *http.Request) error {
		return fmt.Errorf("test config fetch failed: %w",
			&backend.APIError{StatusCode: http.StatusNotFound, Detail: "Test config not found"})
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, createTestRequest(t, http.MethodGet, "/tests/9"))

	assert.Equal(t, http.StatusNotFound, rr.Code)

	body := decodeErrorBody(t, rr)
	assert.Equal(t, "Test config not found", body.Error)
	assert.Equal(t, http.StatusNotFound, body.StatusCode)
}

func TestCatchError_StatusError(t *testing.T) {
	t.Parallel()

	handler := CatchError(func(_ http.ResponseWriter, _ *http.Request) error {
		return routes.NewStatusError(http.StatusUnauthorized, "incorrect email or password")
	})

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, createTestRequest(t, http.MethodPost, "/login"))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "incorrect email or password", decodeErrorBody(t, rr).Error)
}

func TestCatchError_Unauthorized(t *testing.T) {
	t.Parallel()

	handler := CatchError(func(w http.ResponseWriter, r *http.Request) error {
		_, _ = io.WriteString(w, "partial output is discarded")

		return routes.NewUnauthorizedError(r.URL.RequestURI())
	})

	t.Run("plain request", func(t *testing.T) {
		t.Parallel()

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, createTestRequest(t, http.MethodGet, "/tests/1"))

		assert.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, "/login", rr.Header().Get("Location"))
		assert.NotContains(t, rr.Body.String(), "partial output")

		token := cookieNamed(rr, cookie.TokenCookie)
		require.NotNil(t, token)
		assert.Empty(t, token.Value)

		returnPath := cookieNamed(rr, cookie.ReturnPathCookie)
		require.NotNil(t, returnPath)
		assert.Equal(t, "%2Ftests%2F1", returnPath.Value)
	})

	t.Run("htmx request", func(t *testing.T) {
		t.Parallel()

		req := createTestRequest(t, http.MethodPost, "/results")
		req.Header.Set("HX-Request", "true")

		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "/login", rr.Header().Get("HX-Redirect"))
		assert.Nil(t, cookieNamed(rr, cookie.ReturnPathCookie), "only GET requests are remembered")
	})
}
