// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package utils_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"codeberg.org/presetfe/presetfe/server/utils"
)

func TestParseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		urlStr   string
		wantErr  bool
		expected string
	}{
		{"Valid URL", "http://localhost:8000", false, "http://localhost:8000"},
		{"Valid URL with path", "https://example.com/api", false, "https://example.com/api"},
		{"Missing scheme", "example.com", true, ""},
		{"Missing host", "https://", true, ""},
		{"Trailing slash", "http://127.0.0.1:8000/", false, "http://127.0.0.1:8000"},
		{"Empty URL", "", true, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := utils.ParseURL(tt.urlStr, "Backend")
			if tt.wantErr {
				assert.Error(t, err)

				return
			}

			if assert.NoError(t, err) {
				assert.Equal(t, tt.expected, got.String())
			}
		})
	}
}

func TestSanitizeReturnPath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"/tests?page=2":       "/tests?page=2",
		"  /items ":           "/items",
		"":                    "",
		"items":               "",
		"//example.com":       "",
		"/\\example.com":      "",
		"https://example.com": "",
		"/\t/evil.example":    "",
		"/\n/evil.example":    "",
		"/\r/evil.example":    "",
		"/tests\x00":          "",
	}

	for in, want := range tests {
		assert.Equal(t, want, utils.SanitizeReturnPath(in), in)
	}
}

func TestSameOriginReferer(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodGet, "http://front.test/tests", nil)
	r.Header.Set("Referer", "http://front.test/items?x=1")
	assert.Equal(t, "/items?x=1", utils.SameOriginReferer(r))

	r.Header.Set("Referer", "http://other.test/items")
	assert.Empty(t, utils.SameOriginReferer(r))
}

func TestRedirectBack(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest(http.MethodPost, "http://front.test/settings/theme", nil)
	w := httptest.NewRecorder()

	utils.RedirectBack(w, r, "https://evil.test/", "/")

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	w = httptest.NewRecorder()

	utils.RedirectBack(w, r, "/\t/evil.example", "/")

	assert.Equal(t, "/", w.Header().Get("Location"))
}
