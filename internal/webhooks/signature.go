// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"

	"github.com/tomtom215/taskgraph/internal/logging"
)

// SignatureSpec locates a provider's HMAC signature.
type SignatureSpec struct {
	// Header holding the hex digest.
	Header string

	// Prefix preceding the digest, e.g. "sha256=".
	Prefix string

	// PrefixOptional accepts a bare digest as well as Prefix+digest.
	PrefixOptional bool
}

// ClickUpSignature is X-Signature with an optional sha256= prefix.
var ClickUpSignature = SignatureSpec{Header: "X-Signature", Prefix: "sha256=", PrefixOptional: true}

// ComputeSignature returns the hex HMAC-SHA256 of body under secret.
func ComputeSignature(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// ValidateSignature verifies the HMAC-SHA256 of rawBody against the header
// described by spec. rawBody must be the exact bytes received.
//
// An empty secret skips verification and logs a warning. A missing header,
// malformed prefix, non-hex digest or mismatch returns false.
func ValidateSignature(rawBody []byte, headers http.Header, secret string, spec SignatureSpec) bool {
	if secret == "" {
		logging.Warn().Str("header", spec.Header).Msg("Webhook secret not configured, skipping signature validation")
		return true
	}

	provided := strings.TrimSpace(headers.Get(spec.Header))
	if provided == "" {
		return false
	}

	if spec.Prefix != "" {
		switch {
		case strings.HasPrefix(provided, spec.Prefix):
			provided = provided[len(spec.Prefix):]
		case !spec.PrefixOptional:
			return false
		}
	}

	got, decodeErr := hex.DecodeString(provided)
	if decodeErr != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(rawBody)
	return hmac.Equal(got, mac.Sum(nil))
}
