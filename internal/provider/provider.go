// Package provider defines the narrow contract between the send pipeline
// and the LLM vendors backing it. The pipeline only distinguishes
// success, rate limiting, auth failure, and everything else; vendor wire
// formats live in the subpackages.
package provider

import (
	"context"
	"fmt"
	"net/http"
)

// Message is a single turn passed to a provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Adapter sends a conversation turn to an LLM provider and returns the
// assistant's reply text.
type Adapter interface {
	Send(ctx context.Context, model string, messages []Message) (string, error)
}

// Kind classifies provider failures for the send pipeline.
type Kind string

const (
	// NetworkFailure: the request never produced an HTTP response.
	NetworkFailure Kind = "network_failure"
	// AuthFailure: 401 or 403.
	AuthFailure Kind = "auth_failure"
	// RateLimited: 429; transient, the user can retry by resending.
	RateLimited Kind = "rate_limited"
	// ProviderError: any other non-2xx response.
	ProviderError Kind = "provider_error"
)

// Error is a classified provider failure.
type Error struct {
	Kind       Kind
	HTTPStatus int
	Message    string
}

func (e *Error) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("provider: %s (status %d): %s", e.Kind, e.HTTPStatus, e.Message)
	}
	return fmt.Sprintf("provider: %s: %s", e.Kind, e.Message)
}

// Classify builds an Error from an HTTP status code and message body.
func Classify(status int, message string) *Error {
	kind := ProviderError
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = AuthFailure
	case status == http.StatusTooManyRequests:
		kind = RateLimited
	}
	return &Error{Kind: kind, HTTPStatus: status, Message: message}
}

// NetworkError wraps a transport-level failure that produced no response.
func NetworkError(err error) *Error {
	return &Error{Kind: NetworkFailure, Message: err.Error()}
}
