// Copyright 2025, the presetfe contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package authenticated signs and verifies short-lived v4.public paseto tokens
bound to a purpose (the token subject).
*/
package authenticated

import (
	"errors"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/google/uuid"
)

// Implicit is the domain separation assertion mixed into every signature.
// Changing it invalidates all previously issued tokens.
const Implicit = "presetfe signed token"

var errSignerNotInitialized = errors.New("signer has no secret key")

// NewSecretKeyHex generates a fresh v4.public secret key and returns its hex form.
func NewSecretKeyHex() string {
	return paseto.NewV4AsymmetricSecretKey().ExportHex()
}

// Signer holds a v4.public secret key.
//
// The zero value is not usable; call LoadSecretKeyFromHex or use NewSigner.
type Signer struct {
	secretKey paseto.V4AsymmetricSecretKey
	loaded    bool
}

// NewSigner returns a Signer with a freshly generated key.
func NewSigner() Signer {
	return Signer{secretKey: paseto.NewV4AsymmetricSecretKey(), loaded: true}
}

// LoadSecretKeyFromHex replaces the signing key.
func (s *Signer) LoadSecretKeyFromHex(hex string) error {
	key, err := paseto.NewV4AsymmetricSecretKeyFromHex(hex)
	if err != nil {
		return err
	}

	s.secretKey = key
	s.loaded = true

	return nil
}

// Ready reports whether a key has been loaded.
func (s *Signer) Ready() bool {
	return s.loaded
}

// Sign issues a token for subject that expires after ttl.
//
// binding is stored as a claim and must be presented again to Verify.
func (s *Signer) Sign(subject, binding string, ttl time.Duration) (string, error) {
	if !s.loaded {
		return "", errSignerNotInitialized
	}

	now := time.Now()

	token := paseto.NewToken()
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(now.Add(ttl))
	token.SetSubject(subject)
	token.SetJti(uuid.NewString())
	token.SetString("binding", binding)

	return token.V4Sign(s.secretKey, []byte(Implicit)), nil
}

// Verify checks the signature, expiry and subject of signed and returns its binding claim.
func (s *Signer) Verify(subject, signed string) (string, error) {
	if !s.loaded {
		return "", errSignerNotInitialized
	}

	parser := paseto.MakeParser([]paseto.Rule{
		paseto.NotExpired(),
		paseto.ValidAt(time.Now()),
		paseto.Subject(subject),
	})

	token, err := parser.ParseV4Public(s.secretKey.Public(), signed, []byte(Implicit))
	if err != nil {
		return "", fmt.Errorf("invalid %s token: %w", subject, err)
	}

	binding, err := token.GetString("binding")
	if err != nil {
		return "", fmt.Errorf("invalid %s token: %w", subject, err)
	}

	return binding, nil
}
