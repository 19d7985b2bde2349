package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	err := New(ErrorTypeNotFound, 404, "resource not found")
	assert.Equal(t, "not_found error (code 404): resource not found", err.Error())

	err = New(ErrorTypeNetwork, 0, "dial tcp: %s", "connection refused")
	assert.Equal(t, "network error: dial tcp: connection refused", err.Error())
}

func TestTypeForStatus(t *testing.T) {
	tests := []struct {
		code int
		want ErrorType
	}{
		{401, ErrorTypeAuth},
		{403, ErrorTypeAuth},
		{404, ErrorTypeNotFound},
		{410, ErrorTypeNotFound},
		{429, ErrorTypeRateLimit},
		{500, ErrorTypeServerError},
		{503, ErrorTypeServerError},
		{400, ErrorTypeHTTPStatus},
		{302, ErrorTypeHTTPStatus},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, TypeForStatus(tt.code))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrorTypeNetwork))
	assert.True(t, IsRetryable(ErrorTypeTimeout))
	assert.True(t, IsRetryable(ErrorTypeServerError))
	assert.False(t, IsRetryable(ErrorTypeInvalidURL))
	assert.False(t, IsRetryable(ErrorTypeNotFound))
	assert.False(t, IsRetryable(ErrorTypeUnknown))

	assert.True(t, IsRetryableStatusCode(0))
	assert.True(t, IsRetryableStatusCode(502))
	assert.False(t, IsRetryableStatusCode(404))
}

func TestTypeOfAndIsPermanent(t *testing.T) {
	invalid := New(ErrorTypeInvalidURL, 0, "missing scheme")
	wrapped := fmt.Errorf("page 2: %w", invalid)

	assert.Equal(t, ErrorTypeInvalidURL, TypeOf(wrapped))
	assert.True(t, IsPermanent(wrapped))

	assert.False(t, IsPermanent(New(ErrorTypeTimeout, 0, "deadline exceeded")))
	assert.False(t, IsPermanent(nil))
	assert.Equal(t, ErrorTypeUnknown, TypeOf(fmt.Errorf("plain")))
}
