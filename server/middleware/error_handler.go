// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/rs/zerolog/log"

	"codeberg.org/presetfe/presetfe/config"
	"codeberg.org/presetfe/presetfe/core/audit"
	"codeberg.org/presetfe/presetfe/core/backend"
	"codeberg.org/presetfe/presetfe/core/cookie"
	"codeberg.org/presetfe/presetfe/core/untrusted"
	"codeberg.org/presetfe/presetfe/server/guard"
	"codeberg.org/presetfe/presetfe/server/request_context"
	"codeberg.org/presetfe/presetfe/server/routes"
	"codeberg.org/presetfe/presetfe/server/utils"
)

// CatchError wraps HTTP handlers that return an error, providing centralized
// error handling, response buffering, and request logging.
//
// The handler writes into a recorder. After it returns, the final response is chosen:
//   - no error: the recorded response is sent as is.
//   - *routes.UnauthorizedError: the backend rejected the session token. The
//     token cookie is cleared and the client is sent to the login page, with
//     the current path remembered for GET requests.
//   - *routes.StatusError and *backend.APIError: a JSON error document with
//     the error's status code.
//   - anything else: the recorded response when the handler already wrote an
//     error status, otherwise a 500 JSON error document.
//
// Finally the exchange is logged via the audit package.
func CatchError(handler func(w http.ResponseWriter, r *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := request_context.FromRequest(r)

		span := audit.Span{
			Destination: audit.ToUser,
			RequestID:   ctx.RequestID,
			Method:      r.Method,
			URL:         r.URL.String(),
		}

		_ = span.Begin(r.Context())
		defer span.End()

		recorder := httptest.NewRecorder()

		err := handler(recorder, r)

		ctx.RequestError = err

		var (
			unauthErr *routes.UnauthorizedError
			statusErr *routes.StatusError
			apiErr    *backend.APIError
		)

		switch {
		case err == nil:
			writeRecorded(w, recorder, ctx)

		case errors.As(err, &unauthErr):
			untrusted.ClearCookie(w, r, cookie.TokenCookie)

			if r.Method == http.MethodGet {
				untrusted.SetCookie(w, r, cookie.ReturnPathCookie, utils.SanitizeReturnPath(unauthErr.LoginReturnPath))
			}

			ctx.StatusCode = utils.RedirectTo(w, r, guard.LoginPath)

		case errors.As(err, &statusErr):
			ctx.StatusCode = statusErr.StatusCode
			routes.ErrorPage(w, r, statusErr.Message)

		case errors.As(err, &apiErr):
			ctx.StatusCode = apiErr.StatusCode
			routes.ErrorPage(w, r, apiErr.Detail)

		case recorder.Code >= http.StatusBadRequest:
			writeRecorded(w, recorder, ctx)

		default:
			ctx.StatusCode = http.StatusInternalServerError
			routes.ErrorPage(w, r, http.StatusText(http.StatusInternalServerError))
		}

		span.StatusCode = ctx.StatusCode
		span.Error = ctx.RequestError

		if !config.Global.ShouldSkipServerLogging(r.URL.Path) {
			span.Log()
		}
	}
}

// writeRecorded copies a recorded response to w.
//
// Set-Cookie values are appended so that cookies written to w by outer
// middleware survive.
func writeRecorded(w http.ResponseWriter, recorder *httptest.ResponseRecorder, ctx *request_context.RequestContext) {
	if recorder.Code == 0 {
		recorder.Code = http.StatusOK
	}

	ctx.StatusCode = recorder.Code

	headers := w.Header()

	for key, values := range recorder.Header() {
		if key == "Set-Cookie" {
			headers[key] = append(headers[key], values...)

			continue
		}

		headers[key] = values
	}

	w.WriteHeader(recorder.Code)

	if _, err := recorder.Body.WriteTo(w); err != nil {
		log.Err(err).Msg("Failed to write response body")
	}
}
