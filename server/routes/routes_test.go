// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package routes

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/presetfe/presetfe/core/backend"
	"codeberg.org/presetfe/presetfe/core/cookie"
	"codeberg.org/presetfe/presetfe/core/requests"
	"codeberg.org/presetfe/presetfe/core/storage"
	"codeberg.org/presetfe/presetfe/core/theme"
)

const goodToken = "good-token"

type fakeBackend struct {
	logouts atomic.Int32
	posted  atomic.Value // backend.NewTestConfigResult
}

func (f *fakeBackend) handler() http.Handler {
	authorized := func(w http.ResponseWriter, r *http.Request) bool {
		if r.Header.Get("Authorization") != "Bearer "+goodToken {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Could not validate credentials"}`)

			return false
		}

		return true
	}

	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/users/login", func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("username") != "ada@example.com" || r.FormValue("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Incorrect email or password"}`)

			return
		}

		_, _ = io.WriteString(w, `{"access_token":"`+goodToken+`","token_type":"bearer"}`)
	})

	mux.HandleFunc("POST /api/users/logout", func(w http.ResponseWriter, r *http.Request) {
		f.logouts.Add(1)

		if authorized(w, r) {
			_, _ = io.WriteString(w, `{}`)
		}
	})

	mux.HandleFunc("POST /api/users/register", func(w http.ResponseWriter, r *http.Request) {
		var registration backend.Registration
		if err := json.NewDecoder(r.Body).Decode(&registration); err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)

			return
		}

		if registration.Username == "ada" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"detail":"User already exists"}`)

			return
		}

		_, _ = io.WriteString(w, `{"id":8,"created":"2025-01-02T03:04:05","username":"`+registration.Username+`","email":"`+registration.Email+`"}`)
	})

	mux.HandleFunc("GET /api/users/exists/{username}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"exists":`+strconv.FormatBool(r.PathValue("username") == "ada")+`}`)
	})

	mux.HandleFunc("GET /api/users/me", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			_, _ = io.WriteString(w, `{"id":7,"created":"2025-01-02T03:04:05","username":"ada","email":"ada@example.com"}`)
		}
	})

	mux.HandleFunc("GET /api/test_configs/{$}", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			_, _ = io.WriteString(w, `[{"id":1,"created":"2025-01-02T03:04:05","user_id":null,"name":"Warm-up","item_configs":[]}]`)
		}
	})

	mux.HandleFunc("GET /api/test_configs/{id}", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}

		if r.PathValue("id") != "1" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"detail":"Test config not found"}`)

			return
		}

		_, _ = io.WriteString(w, `{"id":1,"created":"2025-01-02T03:04:05","user_id":null,"name":"Warm-up","item_configs":[]}`)
	})

	mux.HandleFunc("GET /api/test_config_results/test_config/{id}", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			_, _ = io.WriteString(w, `[]`)
		}
	})

	mux.HandleFunc("GET /api/item_configs/{$}", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			_, _ = io.WriteString(w, `[{"id":3,"created":"2025-01-02T03:04:05","triangle_size":40,"triangle_color":"red","circle_size":20,"circle_color":"blue","time_visible_ms":500,"orientation":"left"}]`)
		}
	})

	mux.HandleFunc("GET /api/test_config_results/user", func(w http.ResponseWriter, r *http.Request) {
		if authorized(w, r) {
			_, _ = io.WriteString(w, `[]`)
		}
	})

	mux.HandleFunc("POST /api/test_config_results/", func(w http.ResponseWriter, r *http.Request) {
		if !authorized(w, r) {
			return
		}

		var result backend.NewTestConfigResult
		if err := json.NewDecoder(r.Body).Decode(&result); err != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)

			return
		}

		f.posted.Store(result)

		_, _ = io.WriteString(w, `{"id":11,"created":"2025-01-02T03:04:05","user_id":7,"test_config_id":1,"time":"2025-01-02T03:04:05","correct_answers":3,"wrong_answers":1,"item_config_results":[]}`)
	})

	return mux
}

func newHandlers(t *testing.T) (*Handlers, *fakeBackend) {
	t.Helper()

	fake := &fakeBackend{}

	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	api, err := requests.New(srv.URL, requests.WithInterceptors(backend.Interceptors()...))
	require.NoError(t, err)

	return New(backend.New(api)), fake
}

func withToken(r *http.Request, token string) *http.Request {
	r.AddCookie(&http.Cookie{Name: string(cookie.TokenCookie), Value: token})

	return r.WithContext(backend.WithToken(r.Context(), token))
}

func TestLoginPage(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/login?returnPath=/tests/1", nil)
	rr := httptest.NewRecorder()

	require.NoError(t, LoginPage(rr, req))

	var form LoginForm
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&form))

	assert.Equal(t, "/login", form.Action)
	assert.Equal(t, "/tests/1", form.ReturnPath)
	assert.Contains(t, form.Fields, "username")
	assert.False(t, form.LoggedIn)
	assert.Equal(t, "no-store", rr.Header().Get("Cache-Control"))
}

func TestLogin(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t)

	tests := []struct {
		name         string
		form         url.Values
		returnCookie string
		wantErr      int
		wantLocation string
	}{
		{
			name:         "success goes home",
			form:         url.Values{"username": {"ada@example.com"}, "password": {"secret"}},
			wantLocation: "/",
		},
		{
			name:         "success honours returnPath",
			form:         url.Values{"username": {"ada@example.com"}, "password": {"secret"}, "returnPath": {"/results"}},
			wantLocation: "/results",
		},
		{
			name:         "returnPath cookie as fallback",
			form:         url.Values{"username": {"ada@example.com"}, "password": {"secret"}},
			returnCookie: "/tests/1",
			wantLocation: "/tests/1",
		},
		{
			name:         "offsite returnPath is ignored",
			form:         url.Values{"username": {"ada@example.com"}, "password": {"secret"}, "returnPath": {"//evil.example"}},
			wantLocation: "/",
		},
		{
			name:         "returnPath with a tab is ignored",
			form:         url.Values{"username": {"ada@example.com"}, "password": {"secret"}, "returnPath": {"/\t/evil.example"}},
			wantLocation: "/",
		},
		{
			name:    "wrong password",
			form:    url.Values{"username": {"ada@example.com"}, "password": {"nope"}},
			wantErr: http.StatusUnauthorized,
		},
		{
			name:    "missing fields",
			form:    url.Values{"username": {"ada@example.com"}},
			wantErr: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(tt.form.Encode()))
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

			if tt.returnCookie != "" {
				req.AddCookie(&http.Cookie{Name: string(cookie.ReturnPathCookie), Value: tt.returnCookie})
			}

			rr := httptest.NewRecorder()
			err := h.Login(rr, req)

			if tt.wantErr != 0 {
				var statusErr *StatusError
				require.ErrorAs(t, err, &statusErr)
				assert.Equal(t, tt.wantErr, statusErr.StatusCode)
				assert.Empty(t, rr.Result().Cookies())

				return
			}

			require.NoError(t, err)
			assert.Equal(t, http.StatusSeeOther, rr.Code)
			assert.Equal(t, tt.wantLocation, rr.Header().Get("Location"))

			var token string

			for _, c := range rr.Result().Cookies() {
				if c.Name == string(cookie.TokenCookie) {
					token = c.Value
				}
			}

			assert.Equal(t, goodToken, token)
		})
	}
}

func TestLogout(t *testing.T) {
	t.Parallel()

	h, fake := newHandlers(t)

	req := withToken(httptest.NewRequest(http.MethodPost, "/logout", nil), goodToken)
	rr := httptest.NewRecorder()

	require.NoError(t, h.Logout(rr, req))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))
	assert.Equal(t, int32(1), fake.logouts.Load())

	cleared := false

	for _, c := range rr.Result().Cookies() {
		if c.Name == string(cookie.TokenCookie) && c.Value == "" && c.Expires.Before(time.Now()) {
			cleared = true
		}
	}

	assert.True(t, cleared, "token cookie should be cleared")
}

func TestLogout_BackendFailureStillClears(t *testing.T) {
	t.Parallel()

	h, fake := newHandlers(t)

	req := withToken(httptest.NewRequest(http.MethodPost, "/logout", nil), "stale")
	rr := httptest.NewRecorder()

	require.NoError(t, h.Logout(rr, req))

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, int32(1), fake.logouts.Load())
}

func TestDashboard(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t)

	st := theme.New(storage.NewMemory(map[string]string{storage.DarkModeKey: "true"}))
	st.Initialize()

	req := withToken(httptest.NewRequest(http.MethodGet, "/", nil), goodToken)
	req = req.WithContext(theme.WithStore(req.Context(), st))
	rr := httptest.NewRecorder()

	require.NoError(t, h.Dashboard(rr, req))

	var data dashboardData
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&data))

	assert.Equal(t, "ada", data.User.Username)
	require.Len(t, data.Tests, 1)
	assert.Equal(t, "Warm-up", data.Tests[0].Name)
	assert.True(t, data.DarkMode)
	assert.Len(t, rr.Header().Values("Server-Timing"), 2)
}

func TestProtectedRoutesRejectStaleToken(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t)

	handlers := map[string]func(http.ResponseWriter, *http.Request) error{
		"/":        h.Dashboard,
		"/tests":   h.Tests,
		"/items":   h.Items,
		"/results": h.Results,
	}

	for path, handler := range handlers {
		t.Run(path, func(t *testing.T) {
			t.Parallel()

			req := withToken(httptest.NewRequest(http.MethodGet, path+"?page=2", nil), "stale")

			err := handler(httptest.NewRecorder(), req)

			var unauthErr *UnauthorizedError
			require.ErrorAs(t, err, &unauthErr)
			assert.Equal(t, path+"?page=2", unauthErr.LoginReturnPath)
		})
	}
}

func TestTest(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t)

	t.Run("found", func(t *testing.T) {
		t.Parallel()

		req := withToken(httptest.NewRequest(http.MethodGet, "/tests/1", nil), goodToken)
		req.SetPathValue("id", "1")

		rr := httptest.NewRecorder()
		require.NoError(t, h.Test(rr, req))

		var data testData
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&data))

		assert.Equal(t, 1, data.Test.ID)
		assert.NotNil(t, data.Results)
	})

	t.Run("not found keeps backend status", func(t *testing.T) {
		t.Parallel()

		req := withToken(httptest.NewRequest(http.MethodGet, "/tests/9", nil), goodToken)
		req.SetPathValue("id", "9")

		err := h.Test(httptest.NewRecorder(), req)

		var apiErr *backend.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
		assert.Equal(t, "Test config not found", apiErr.Detail)
	})

	t.Run("invalid id", func(t *testing.T) {
		t.Parallel()

		req := withToken(httptest.NewRequest(http.MethodGet, "/tests/abc", nil), goodToken)
		req.SetPathValue("id", "abc")

		err := h.Test(httptest.NewRecorder(), req)

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	})
}

func TestItems(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t)

	req := withToken(httptest.NewRequest(http.MethodGet, "/items", nil), goodToken)
	rr := httptest.NewRecorder()

	require.NoError(t, h.Items(rr, req))

	var items []backend.ItemConfig
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, "left", items[0].Orientation)
}

func TestCreateResult(t *testing.T) {
	t.Parallel()

	h, fake := newHandlers(t)

	body := `{"test_config_id":1,"correct_answers":3,"wrong_answers":1,"item_config_result_ids":[4,5]}`

	req := withToken(httptest.NewRequest(http.MethodPost, "/results", strings.NewReader(body)), goodToken)
	req.Header.Set("Content-Type", "application/json")

	rr := httptest.NewRecorder()
	require.NoError(t, h.CreateResult(rr, req))

	assert.Equal(t, http.StatusCreated, rr.Code)

	posted, ok := fake.posted.Load().(backend.NewTestConfigResult)
	require.True(t, ok)
	assert.Equal(t, []int{4, 5}, posted.ItemConfigResultIDs)
	assert.False(t, posted.Time.IsZero(), "missing time should default to now")
}

func TestCreateResult_Validation(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t)

	for _, body := range []string{
		`not json`,
		`{"test_config_id":0}`,
		`{"test_config_id":1,"correct_answers":-1}`,
		`{"test_config_id":1,"unexpected":true}`,
	} {
		req := withToken(httptest.NewRequest(http.MethodPost, "/results", strings.NewReader(body)), goodToken)

		err := h.CreateResult(httptest.NewRecorder(), req)

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr, body)
		assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode, body)
	}
}

func TestToggleTheme(t *testing.T) {
	t.Parallel()

	mem := storage.NewMemory(nil)
	st := theme.New(mem)

	newRequest := func(body string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/settings/theme", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		return req.WithContext(theme.WithStore(context.Background(), st))
	}

	rr := httptest.NewRecorder()
	require.NoError(t, ToggleTheme(rr, newRequest("")))
	assert.JSONEq(t, `{"darkMode":true}`, rr.Body.String())

	value, _ := mem.GetItem(storage.DarkModeKey)
	assert.Equal(t, "true", value)

	rr = httptest.NewRecorder()
	require.NoError(t, ToggleTheme(rr, newRequest("returnPath=%2Fresults")))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/results", rr.Header().Get("Location"))
	assert.False(t, st.IsDark())

	rr = httptest.NewRecorder()
	require.NoError(t, ToggleTheme(rr, newRequest("returnPath=https%3A%2F%2Fevil.test%2F")))
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
	assert.True(t, st.IsDark())

	rr = httptest.NewRecorder()
	require.NoError(t, ToggleTheme(rr, newRequest("")))
	assert.JSONEq(t, `{"darkMode":false}`, rr.Body.String())

	rr = httptest.NewRecorder()
	require.NoError(t, ThemeSettings(rr, newRequest("")))
	assert.JSONEq(t, `{"darkMode":false}`, rr.Body.String())
}

func TestToggleTheme_StorageFailure(t *testing.T) {
	t.Parallel()

	st := theme.New(failingStorage{})

	req := httptest.NewRequest(http.MethodPost, "/settings/theme", nil)
	req = req.WithContext(theme.WithStore(req.Context(), st))

	err := ToggleTheme(httptest.NewRecorder(), req)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errStorageFull))
}

var errStorageFull = errors.New("storage full")

type failingStorage struct{}

func (failingStorage) GetItem(string) (string, bool) { return "", false }
func (failingStorage) SetItem(string, string) error  { return errStorageFull }
func (failingStorage) RemoveItem(string) error       { return errStorageFull }

func TestRegister(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t)

	post := func(form url.Values) (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodPost, "/register", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		rr := httptest.NewRecorder()

		return rr, h.Register(rr, req)
	}

	rr, err := post(url.Values{"username": {"grace"}, "email": {"grace@example.com"}, "password": {"hopper"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, rr.Code)

	var user backend.User
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &user))
	assert.Equal(t, "grace", user.Username)
	assert.Empty(t, rr.Result().Cookies(), "registering must not log in")

	_, err = post(url.Values{"username": {"ada"}, "email": {"ada@example.com"}, "password": {"x"}})

	var apiErr *backend.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "User already exists", apiErr.Detail)

	for _, form := range []url.Values{
		{"username": {"grace"}, "password": {"hopper"}},
		{"username": {"grace"}, "email": {"not-an-address"}, "password": {"hopper"}},
	} {
		_, err := post(form)

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr, form.Encode())
		assert.Equal(t, http.StatusBadRequest, statusErr.StatusCode)
	}
}

func TestUserExists(t *testing.T) {
	t.Parallel()

	h, _ := newHandlers(t)

	for name, want := range map[string]string{"ada": `{"exists":true}`, "grace": `{"exists":false}`} {
		req := httptest.NewRequest(http.MethodGet, "/users/exists/"+name, nil)
		req.SetPathValue("username", name)

		rr := httptest.NewRecorder()
		require.NoError(t, h.UserExists(rr, req))
		assert.JSONEq(t, want, rr.Body.String())
	}
}
