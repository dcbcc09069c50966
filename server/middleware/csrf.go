// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

package middleware

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"codeberg.org/presetfe/presetfe/core/authenticated"
	"codeberg.org/presetfe/presetfe/core/cookie"
	"codeberg.org/presetfe/presetfe/core/untrusted"
	"codeberg.org/presetfe/presetfe/server/request_context"
	"codeberg.org/presetfe/presetfe/server/routes"
)

const (
	// CSRFFormField is the form field carrying the token.
	CSRFFormField = "csrf"
	// CSRFHeader carries the token for requests without a form body.
	CSRFHeader = "X-CSRF-Token"

	csrfSubject = "csrf"
)

var (
	errCSRFMissing  = errors.New("missing CSRF token")
	errCSRFMismatch = errors.New("CSRF token belongs to another visitor")
)

// CSRF returns a middleware protecting unsafe methods with signed tokens.
//
// Every visitor gets a random nonce in the csrf cookie. The token for the
// current request is a paseto signed over that nonce, exposed through
// request_context.CSRFToken; POST, PUT, PATCH and DELETE requests must send it
// back in the csrf form field or the X-CSRF-Token header.
func CSRF(signer *authenticated.Signer, ttl time.Duration) Middleware {
	return func(w http.ResponseWriter, r *http.Request, next http.Handler) {
		nonce := untrusted.GetCookie(r, cookie.CSRFCookie)
		if nonce == "" {
			nonce = uuid.NewString()
			untrusted.SetCookie(w, r, cookie.CSRFCookie, nonce)
		}

		rc := request_context.FromRequest(r)

		token, err := signer.Sign(csrfSubject, nonce, ttl)
		if err != nil {
			log.Error().Err(err).Str("request_id", rc.RequestID).Msg("Failed to sign CSRF token")
		} else {
			rc.CSRFToken = token
		}

		if isSafeMethod(r.Method) {
			next.ServeHTTP(w, r)

			return
		}

		if err := verifyCSRF(signer, r, nonce); err != nil {
			log.Warn().
				Err(err).
				Str("request_id", rc.RequestID).
				Str("path", r.URL.Path).
				Msg("Rejected request without a valid CSRF token")

			rc.StatusCode = http.StatusForbidden
			rc.RequestError = err
			routes.ErrorPage(w, r, "invalid or missing CSRF token")

			return
		}

		next.ServeHTTP(w, r)
	}
}

func verifyCSRF(signer *authenticated.Signer, r *http.Request, nonce string) error {
	presented := r.Header.Get(CSRFHeader)
	if presented == "" {
		presented = r.PostFormValue(CSRFFormField)
	}

	if presented == "" {
		return errCSRFMissing
	}

	binding, err := signer.Verify(csrfSubject, presented)
	if err != nil {
		return err
	}

	if binding != nonce {
		return errCSRFMismatch
	}

	return nil
}

func isSafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return true
	default:
		return false
	}
}
