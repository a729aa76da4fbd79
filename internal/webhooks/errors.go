// Taskgraph - Task Tracker Graph Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/taskgraph

package webhooks

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// WebhookError carries the provider and event a failure belongs to.
type WebhookError struct {
	Message  string
	Provider string
	EventID  string
	Err      error
}

func (e *WebhookError) Error() string {
	parts := []string{e.Message}
	if e.Provider != "" {
		parts = append(parts, "Provider: "+e.Provider)
	}
	if e.EventID != "" {
		parts = append(parts, "Event ID: "+e.EventID)
	}
	return strings.Join(parts, " | ")
}

func (e *WebhookError) Unwrap() error {
	return e.Err
}

// SignatureError means the request could not be authenticated.
type SignatureError struct{ WebhookError }

// ValidationError means the payload is malformed or lacks identity fields.
type ValidationError struct{ WebhookError }

// ProcessingError wraps a failure during re-fetch or graph mutation.
type ProcessingError struct{ WebhookError }

// ProviderNotFoundError means no provider is registered under the name.
type ProviderNotFoundError struct{ WebhookError }

// ProviderDisabledError means the provider is registered but switched off.
type ProviderDisabledError struct{ WebhookError }

// PayloadTooLargeError means the body exceeded the configured ceiling.
type PayloadTooLargeError struct {
	WebhookError
	Limit int64
}

// UnsupportedEventTypeError is returned by providers that refuse an event
// outright instead of mapping it to KindOther.
type UnsupportedEventTypeError struct {
	WebhookError
	EventType string
}

// NewSignatureError builds a SignatureError.
func NewSignatureError(msg, provider string, cause error) *SignatureError {
	return &SignatureError{WebhookError{Message: msg, Provider: provider, Err: cause}}
}

// NewValidationError builds a ValidationError.
func NewValidationError(msg, provider, eventID string) *ValidationError {
	return &ValidationError{WebhookError{Message: msg, Provider: provider, EventID: eventID}}
}

// NewProcessingError builds a ProcessingError around cause.
func NewProcessingError(msg, provider, eventID string, cause error) *ProcessingError {
	return &ProcessingError{WebhookError{Message: msg, Provider: provider, EventID: eventID, Err: cause}}
}

// NewProviderNotFoundError builds a ProviderNotFoundError.
func NewProviderNotFoundError(provider string) *ProviderNotFoundError {
	return &ProviderNotFoundError{WebhookError{
		Message:  fmt.Sprintf("Unknown webhook provider: %s", provider),
		Provider: provider,
	}}
}

// NewProviderDisabledError builds a ProviderDisabledError.
func NewProviderDisabledError(provider string) *ProviderDisabledError {
	return &ProviderDisabledError{WebhookError{
		Message:  fmt.Sprintf("Webhook provider '%s' is disabled", provider),
		Provider: provider,
	}}
}

// NewPayloadTooLargeError builds a PayloadTooLargeError.
func NewPayloadTooLargeError(provider string, limit int64) *PayloadTooLargeError {
	return &PayloadTooLargeError{
		WebhookError: WebhookError{
			Message:  fmt.Sprintf("Payload exceeds maximum size of %d bytes", limit),
			Provider: provider,
		},
		Limit: limit,
	}
}

// NewUnsupportedEventTypeError builds an UnsupportedEventTypeError.
func NewUnsupportedEventTypeError(provider, eventType string) *UnsupportedEventTypeError {
	return &UnsupportedEventTypeError{
		WebhookError: WebhookError{
			Message:  fmt.Sprintf("Unsupported event type: %s", eventType),
			Provider: provider,
		},
		EventType: eventType,
	}
}

// HTTPStatus maps an acceptance error to its response status.
func HTTPStatus(err error) int {
	var (
		sigErr      *SignatureError
		valErr      *ValidationError
		notFound    *ProviderNotFoundError
		disabled    *ProviderDisabledError
		tooLarge    *PayloadTooLargeError
		unsupported *UnsupportedEventTypeError
	)
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &disabled):
		return http.StatusForbidden
	case errors.As(err, &sigErr):
		return http.StatusUnauthorized
	case errors.As(err, &valErr), errors.As(err, &unsupported):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// RejectReason returns the short metric label for an acceptance error.
func RejectReason(err error) string {
	switch HTTPStatus(err) {
	case http.StatusRequestEntityTooLarge:
		return "too_large"
	case http.StatusNotFound:
		return "unknown_provider"
	case http.StatusForbidden:
		return "disabled"
	case http.StatusUnauthorized:
		return "signature"
	case http.StatusBadRequest:
		return "invalid_payload"
	default:
		return "internal"
	}
}
