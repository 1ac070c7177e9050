// Copyright 2025 The Previewd Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package webhook

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"strings"
)

// SignatureHeader carries the hex-encoded HMAC-SHA512 of the request body
const SignatureHeader = "X-TFE-Notification-Signature"

var (
	// ErrMissingSignature is returned when a secret is configured but the
	// request carries no signature
	ErrMissingSignature = errors.New("missing signature")
	// ErrMalformedSignature is returned when the signature is not hex
	ErrMalformedSignature = errors.New("malformed signature")
	// ErrSignatureMismatch is returned when the signature does not match the body
	ErrSignatureMismatch = errors.New("invalid signature")
)

// AuthenticationError reports a request that failed signature verification
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return "Unauthorized: " + e.Err.Error()
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// VerifySignature checks the HMAC-SHA512 signature of a notification body.
//
// An empty secret disables verification and every request is accepted.
// Otherwise the signature must be the hex-encoded HMAC-SHA512 of the exact
// body bytes keyed with secret.
func VerifySignature(body []byte, signature string, secret string) error {
	if secret == "" {
		return nil
	}

	signature = strings.TrimSpace(signature)
	if signature == "" {
		return &AuthenticationError{Err: ErrMissingSignature}
	}

	received, err := hex.DecodeString(signature)
	if err != nil {
		return &AuthenticationError{Err: ErrMalformedSignature}
	}

	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)

	// Constant-time comparison
	if !hmac.Equal(received, mac.Sum(nil)) {
		return &AuthenticationError{Err: ErrSignatureMismatch}
	}
	return nil
}

// Sign returns the signature the notification service would send for body
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
