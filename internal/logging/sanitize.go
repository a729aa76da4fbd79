// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package logging

import (
	"strconv"
	"strings"
	"unicode"
)

const maxLoggedValueLen = 200

var sensitiveKeys = map[string]bool{
	"api_token":      true,
	"authorization":  true,
	"jwt_secret":     true,
	"password":       true,
	"secret":         true,
	"token":          true,
	"webhook_secret": true,
	"x-signature":    true,
}

// SanitizeToken masks a secret, keeping the first and last four characters
// of long values.
//
//	SanitizeToken("pk_12345678_ABCDEFGH") // "pk_1...EFGH"
func SanitizeToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= 12 {
		return "***"
	}
	return token[:4] + "..." + token[len(token)-4:]
}

// SanitizeValue prepares a request-derived value for logging. Values under a
// sensitive key are masked; control characters are escaped so a crafted
// provider name or event type cannot forge log lines; long values are
// truncated.
func SanitizeValue(key, value string) string {
	if sensitiveKeys[strings.ToLower(key)] {
		return SanitizeToken(value)
	}

	if strings.IndexFunc(value, unicode.IsControl) >= 0 {
		quoted := strconv.Quote(value)
		value = quoted[1 : len(quoted)-1]
	}

	if len(value) > maxLoggedValueLen {
		return value[:maxLoggedValueLen] + "..."
	}
	return value
}
