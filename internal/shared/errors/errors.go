// Package errors defines the normalized error taxonomy shared by all
// provider adapters. Vendor HTTP statuses and payload shapes are mapped
// here into a small set of kinds so callers never see vendor quirks.
package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a normalized generation error.
type Kind string

const (
	// KindValidation is a caller input error detected before any network call.
	KindValidation Kind = "validation"
	// KindResolution is an unknown provider/model/credential/operation error,
	// also detected before any network call.
	KindResolution Kind = "resolution"
	// KindCredentials covers invalid or expired credentials (401/403).
	KindCredentials Kind = "invalid_credentials"
	// KindQuota covers quota exhaustion and insufficient balance (402).
	KindQuota Kind = "insufficient_quota"
	// KindRateLimited covers vendor rate limiting (429).
	KindRateLimited Kind = "rate_limited"
	// KindSafety covers content-safety rejections.
	KindSafety Kind = "content_blocked"
	// KindBadRequest covers other 400 responses.
	KindBadRequest Kind = "bad_request"
	// KindAPI covers any other non-2xx vendor response.
	KindAPI Kind = "api_error"
	// KindNetwork covers transport and parse failures.
	KindNetwork Kind = "network_error"
	// KindDownload covers artifact materialization failures.
	KindDownload Kind = "download_failed"
)

// Error is a normalized generation error.
type Error struct {
	Kind     Kind
	Provider string
	Message  string
	Status   int // vendor HTTP status, 0 when no call was made
	Err      error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may reasonably retry as-is.
func (e *Error) Retryable() bool {
	return e.Kind == KindRateLimited || e.Kind == KindNetwork
}

// Validation creates a caller input error.
func Validation(format string, args ...any) *Error {
	return &Error{
		Kind:    KindValidation,
		Message: fmt.Sprintf(format, args...),
	}
}

// Resolution creates a provider/model/credential resolution error.
func Resolution(format string, args ...any) *Error {
	return &Error{
		Kind:    KindResolution,
		Message: fmt.Sprintf(format, args...),
	}
}

// Network creates a transport or parse error.
func Network(provider string, err error) *Error {
	return &Error{
		Kind:     KindNetwork,
		Provider: provider,
		Message:  fmt.Sprintf("%s request failed", provider),
		Err:      err,
	}
}

// Download creates an artifact download error.
func Download(provider string, err error) *Error {
	return &Error{
		Kind:     KindDownload,
		Provider: provider,
		Message:  fmt.Sprintf("failed to download artifact from %s", provider),
		Err:      err,
	}
}

// safetyMarkers are substrings vendors include in content-policy rejections.
var safetyMarkers = []string{
	"safety",
	"content_policy",
	"content policy",
	"prohibited_content",
	"blocked",
	"moderation",
}

// FromHTTP maps a vendor HTTP status and response body into a normalized
// error. The body is scanned for vendor-specific safety markers to separate
// content-safety rejections from generic bad requests.
func FromHTTP(provider string, status int, body []byte) *Error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 512 {
		msg = msg[:512]
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return &Error{
			Kind:     KindCredentials,
			Provider: provider,
			Status:   status,
			Message:  fmt.Sprintf("%s rejected the configured credentials (status %d): %s", provider, status, msg),
		}
	case status == http.StatusPaymentRequired:
		return &Error{
			Kind:     KindQuota,
			Provider: provider,
			Status:   status,
			Message:  fmt.Sprintf("%s reports insufficient quota or balance: %s", provider, msg),
		}
	case status == http.StatusTooManyRequests:
		return &Error{
			Kind:     KindRateLimited,
			Provider: provider,
			Status:   status,
			Message:  fmt.Sprintf("%s is rate limiting requests, retry later: %s", provider, msg),
		}
	case status == http.StatusBadRequest:
		lower := strings.ToLower(msg)
		for _, marker := range safetyMarkers {
			if strings.Contains(lower, marker) {
				return &Error{
					Kind:     KindSafety,
					Provider: provider,
					Status:   status,
					Message:  fmt.Sprintf("%s blocked the request for content-safety reasons: %s", provider, msg),
				}
			}
		}
		return &Error{
			Kind:     KindBadRequest,
			Provider: provider,
			Status:   status,
			Message:  fmt.Sprintf("%s rejected the request: %s", provider, msg),
		}
	default:
		return &Error{
			Kind:     KindAPI,
			Provider: provider,
			Status:   status,
			Message:  fmt.Sprintf("%s returned unexpected status %d: %s", provider, status, msg),
		}
	}
}
