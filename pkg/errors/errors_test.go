package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AppError
		expected string
	}{
		{
			name:     "without underlying error",
			err:      New(CodeMaxParallelismTooLow, "restored max parallelism 4 < new parallelism 8"),
			expected: "[MAX_PARALLELISM_TOO_LOW] restored max parallelism 4 < new parallelism 8",
		},
		{
			name:     "with underlying error",
			err:      Wrap(CodeStorageError, "read metadata failed", errors.New("connection reset")),
			expected: "[STORAGE_ERROR] read metadata failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	underlying := errors.New("underlying error")
	err := Wrap(CodeLedgerError, "ledger write failed", underlying)

	unwrapped := err.Unwrap()
	assert.Equal(t, underlying, unwrapped)
}

func TestAppError_Is(t *testing.T) {
	err1 := New(CodeUnmappedState, "OP9 unmapped")
	err2 := New(CodeUnmappedState, "OP4 unmapped")
	err3 := New(CodeChainLengthMismatch, "chain length mismatch")

	assert.True(t, errors.Is(err1, err2))
	assert.False(t, errors.Is(err1, err3))
}

func TestNewf(t *testing.T) {
	err := Newf(CodeUnmappedState, "operator %s is unmapped", "OP9")
	assert.Equal(t, "[UNMAPPED_STATE] operator OP9 is unmapped", err.Error())
}

func TestIsInvalidParallelism(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "sentinel", err: ErrInvalidParallelism, expected: true},
		{name: "wrapped", err: Wrap(CodeInvalidParallelism, "P_new > M", errors.New("8 > 4")), expected: true},
		{name: "other code", err: ErrMaxParallelismTooLow, expected: false},
		{name: "nil error", err: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsInvalidParallelism(tt.err))
		})
	}
}

func TestIsMaxParallelismTooLow(t *testing.T) {
	assert.True(t, IsMaxParallelismTooLow(ErrMaxParallelismTooLow))
	assert.False(t, IsMaxParallelismTooLow(ErrInvalidParallelism))
}

func TestIsMaxParallelismMismatch(t *testing.T) {
	assert.True(t, IsMaxParallelismMismatch(ErrMaxParallelismMismatch))
	assert.False(t, IsMaxParallelismMismatch(ErrInvalidParallelism))
}

func TestIsUnmappedState(t *testing.T) {
	assert.True(t, IsUnmappedState(ErrUnmappedState))
	assert.False(t, IsUnmappedState(ErrInvalidParallelism))
}

func TestIsKeyedStateOnNonHeadOperator(t *testing.T) {
	assert.True(t, IsKeyedStateOnNonHeadOperator(ErrKeyedStateOnNonHeadOperator))
	assert.False(t, IsKeyedStateOnNonHeadOperator(ErrInvalidParallelism))
}

func TestIsChainLengthMismatch(t *testing.T) {
	assert.True(t, IsChainLengthMismatch(ErrChainLengthMismatch))
	assert.False(t, IsChainLengthMismatch(ErrInvalidParallelism))
}

func TestIsHandleIntersectCorrupt(t *testing.T) {
	assert.True(t, IsHandleIntersectCorrupt(ErrHandleIntersectCorrupt))
	assert.False(t, IsHandleIntersectCorrupt(ErrInvalidParallelism))
}

func TestIsInternalInvariant(t *testing.T) {
	assert.True(t, IsInternalInvariant(ErrInternalInvariant))
	assert.False(t, IsInternalInvariant(ErrInvalidParallelism))
}

func TestGetErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "app error",
			err:      New(CodeUnmappedState, "OP9 unmapped"),
			expected: CodeUnmappedState,
		},
		{
			name:     "wrapped app error",
			err:      Wrap(CodeStorageError, "read failed", errors.New("inner")),
			expected: CodeStorageError,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: CodeUnknown,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: CodeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorCode(tt.err))
		})
	}
}

func TestGetErrorMessage(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "app error",
			err:      New(CodeMaxParallelismTooLow, "restored max parallelism too low"),
			expected: "restored max parallelism too low",
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: "standard error",
		},
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetErrorMessage(tt.err))
		})
	}
}
