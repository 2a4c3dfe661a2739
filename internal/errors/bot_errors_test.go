package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCategorizeError(t *testing.T) {
	tests := []struct {
		msg      string
		category ErrorCategory
	}{
		{"context deadline exceeded", ErrorCategoryTimeout},
		{"dial tcp: connection refused", ErrorCategoryNetwork},
		{"Bybit API error 10003: invalid api key", ErrorCategoryCredentials},
		{"429 too many requests", ErrorCategoryRateLimit},
		{"something odd", ErrorCategoryTemporary},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := CategorizeError(stderrors.New(tt.msg), "signal_bot", "fetch_candles")
			assert.Equal(t, tt.category, err.Category)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}

	assert.Nil(t, CategorizeError(nil, "c", "o"))

	cfgErr := NewConfigurationError("config", "validate", "bad risk")
	assert.Same(t, cfgErr, CategorizeError(fmt.Errorf("load: %w", cfgErr), "c", "o"))
}

func TestInsufficientDataError(t *testing.T) {
	err := NewInsufficientDataError("strategy", "evaluate", 10, 60)
	assert.True(t, stderrors.Is(err, ErrInsufficientData))
	assert.Equal(t, 10, err.Context["have"])
	assert.Equal(t, 60, err.Context["need"])
}

func TestIsConfigurationError(t *testing.T) {
	assert.True(t, IsConfigurationError(fmt.Errorf("wrapped: %w", NewConfigurationError("c", "o", "m"))))
	assert.False(t, IsConfigurationError(NewValidationError("c", "o", "m")))
	assert.False(t, IsConfigurationError(stderrors.New("plain")))
}
