package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryMiddlewareCreation_SucceedsAfterFailures(t *testing.T) {
	attempts := 0
	got, err := retryMiddlewareCreation(5, time.Millisecond, func() (int, error) {
		attempts++
		if attempts < 3 {
			return 0, errors.New("broker not ready")
		}
		return 42, nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, attempts)
}

func TestRetryMiddlewareCreation_GivesUp(t *testing.T) {
	attempts := 0
	_, err := retryMiddlewareCreation(3, time.Millisecond, func() (string, error) {
		attempts++
		return "", errors.New("broker down")
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 retries")
	assert.Equal(t, 3, attempts)
}

func TestMessageMiddlewareError_String(t *testing.T) {
	assert.Equal(t, "success", MessageMiddlewareSuccess.String())
	assert.Equal(t, "disconnected", MessageMiddlewareDisconnectedError.String())
	assert.Equal(t, "unknown middleware error", MessageMiddlewareError(99).String())
}
