package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromHTTP(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   Kind
	}{
		{"Unauthorized maps to credentials", 401, `{"error":"invalid api key"}`, KindCredentials},
		{"Forbidden maps to credentials", 403, "forbidden", KindCredentials},
		{"Payment required maps to quota", 402, "balance exhausted", KindQuota},
		{"Too many requests maps to rate limited", 429, "slow down", KindRateLimited},
		{"Bad request with safety marker maps to safety", 400, `{"error":{"code":"content_policy_violation"}}`, KindSafety},
		{"Bad request with moderation marker maps to safety", 400, "request was blocked by moderation", KindSafety},
		{"Plain bad request maps to bad request", 400, "size must be 1024x1024", KindBadRequest},
		{"Server error maps to api error", 500, "internal error", KindAPI},
		{"Unknown status maps to api error", 418, "teapot", KindAPI},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := FromHTTP("openai", tt.status, []byte(tt.body))
			assert.Equal(t, tt.kind, err.Kind)
			assert.Equal(t, "openai", err.Provider)
			assert.Equal(t, tt.status, err.Status)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestFromHTTP_TruncatesLongBodies(t *testing.T) {
	body := make([]byte, 4096)
	for i := range body {
		body[i] = 'x'
	}
	err := FromHTTP("gemini", 500, body)
	assert.Less(t, len(err.Message), 1024)
}

func TestError_Error(t *testing.T) {
	t.Run("Without wrapped error", func(t *testing.T) {
		err := &Error{Kind: KindAPI, Message: "something broke"}
		assert.Equal(t, "something broke", err.Error())
	})

	t.Run("With wrapped error", func(t *testing.T) {
		inner := errors.New("connection refused")
		err := Network("kling", inner)
		assert.Contains(t, err.Error(), "kling request failed")
		assert.Contains(t, err.Error(), "connection refused")
	})
}

func TestError_Unwrap(t *testing.T) {
	inner := errors.New("dial tcp: timeout")
	err := Download("meshy", fmt.Errorf("fetch: %w", inner))
	assert.True(t, errors.Is(err, inner))
}

func TestError_Retryable(t *testing.T) {
	assert.True(t, (&Error{Kind: KindRateLimited}).Retryable())
	assert.True(t, (&Error{Kind: KindNetwork}).Retryable())
	assert.False(t, (&Error{Kind: KindCredentials}).Retryable())
	assert.False(t, (&Error{Kind: KindValidation}).Retryable())
	assert.False(t, (&Error{Kind: KindSafety}).Retryable())
}

func TestConstructors(t *testing.T) {
	t.Run("Validation", func(t *testing.T) {
		err := Validation("prompt cannot be empty for %s", "generation")
		assert.Equal(t, KindValidation, err.Kind)
		assert.Equal(t, "prompt cannot be empty for generation", err.Message)
		assert.Zero(t, err.Status)
	})

	t.Run("Resolution", func(t *testing.T) {
		err := Resolution("provider %q not found", "nope")
		assert.Equal(t, KindResolution, err.Kind)
		assert.Contains(t, err.Message, `"nope"`)
	})
}
