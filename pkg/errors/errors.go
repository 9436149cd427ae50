// Package errors defines the typed error kinds used across the
// reassignment core and its surrounding service.
package errors

import (
	"errors"
	"fmt"
)

// Error codes. The first block is the reassignment core's closed error-kind
// taxonomy: every failure the core itself can raise is one of these, and
// every one of them is fatal to the single reassignment invocation that
// raised it. The second block covers the ambient service layers around the
// core (config loading, persistence, transport) that are not part of the
// core's own contract.
const (
	CodeInvalidParallelism        = "INVALID_PARALLELISM"
	CodeMaxParallelismTooLow      = "MAX_PARALLELISM_TOO_LOW"
	CodeMaxParallelismMismatch    = "MAX_PARALLELISM_MISMATCH"
	CodeUnmappedState             = "UNMAPPED_STATE"
	CodeKeyedStateOnNonHeadOperator = "KEYED_STATE_ON_NON_HEAD_OPERATOR"
	CodeChainLengthMismatch       = "CHAIN_LENGTH_MISMATCH"
	CodeHandleIntersectCorrupt    = "HANDLE_INTERSECT_CORRUPT"
	CodeInternalInvariant         = "INTERNAL_INVARIANT"

	CodeUnknown       = "UNKNOWN_ERROR"
	CodeStorageError  = "STORAGE_ERROR"
	CodeNotFound      = "NOT_FOUND"
	CodeConfigError   = "CONFIG_ERROR"
	CodeLedgerError   = "LEDGER_ERROR"
	CodeRPCError      = "RPC_ERROR"
)

// AppError represents a typed application error with a stable code, a
// human-readable message, and an optional wrapped cause.
type AppError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is checks whether target is an AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new AppError with no wrapped cause.
func New(code string, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates a new AppError with a formatted message, for the call sites
// that need to name the first violating operator or vertex per §7.
func Newf(code string, format string, args ...interface{}) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with an AppError.
func Wrap(code string, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

// Sentinel instances, one per error kind, for use with errors.Is.
var (
	ErrInvalidParallelism          = New(CodeInvalidParallelism, "invalid parallelism")
	ErrMaxParallelismTooLow        = New(CodeMaxParallelismTooLow, "restored max parallelism is lower than new parallelism")
	ErrMaxParallelismMismatch      = New(CodeMaxParallelismMismatch, "user-fixed max parallelism differs from restored value")
	ErrUnmappedState               = New(CodeUnmappedState, "prior state has no matching operator in new topology")
	ErrKeyedStateOnNonHeadOperator = New(CodeKeyedStateOnNonHeadOperator, "keyed state present on a non-head operator")
	ErrChainLengthMismatch         = New(CodeChainLengthMismatch, "prior-state chain length differs from new topology chain length")
	ErrHandleIntersectCorrupt      = New(CodeHandleIntersectCorrupt, "intersect produced a range outside its input")
	ErrInternalInvariant           = New(CodeInternalInvariant, "internal invariant violated")

	ErrStorageError = New(CodeStorageError, "storage error")
	ErrNotFound     = New(CodeNotFound, "resource not found")
	ErrConfigError  = New(CodeConfigError, "configuration error")
	ErrLedgerError  = New(CodeLedgerError, "ledger error")
	ErrRPCError     = New(CodeRPCError, "rpc error")
)

// IsInvalidParallelism reports whether err is (or wraps) InvalidParallelism.
func IsInvalidParallelism(err error) bool { return errors.Is(err, ErrInvalidParallelism) }

// IsMaxParallelismTooLow reports whether err is (or wraps) MaxParallelismTooLow.
func IsMaxParallelismTooLow(err error) bool { return errors.Is(err, ErrMaxParallelismTooLow) }

// IsMaxParallelismMismatch reports whether err is (or wraps) MaxParallelismMismatch.
func IsMaxParallelismMismatch(err error) bool { return errors.Is(err, ErrMaxParallelismMismatch) }

// IsUnmappedState reports whether err is (or wraps) UnmappedState.
func IsUnmappedState(err error) bool { return errors.Is(err, ErrUnmappedState) }

// IsKeyedStateOnNonHeadOperator reports whether err is (or wraps)
// KeyedStateOnNonHeadOperator.
func IsKeyedStateOnNonHeadOperator(err error) bool {
	return errors.Is(err, ErrKeyedStateOnNonHeadOperator)
}

// IsChainLengthMismatch reports whether err is (or wraps) ChainLengthMismatch.
func IsChainLengthMismatch(err error) bool { return errors.Is(err, ErrChainLengthMismatch) }

// IsHandleIntersectCorrupt reports whether err is (or wraps) HandleIntersectCorrupt.
func IsHandleIntersectCorrupt(err error) bool { return errors.Is(err, ErrHandleIntersectCorrupt) }

// IsInternalInvariant reports whether err is (or wraps) InternalInvariant.
func IsInternalInvariant(err error) bool { return errors.Is(err, ErrInternalInvariant) }

// IsStorageError reports whether err is (or wraps) StorageError.
func IsStorageError(err error) bool { return errors.Is(err, ErrStorageError) }

// IsNotFound reports whether err is (or wraps) NotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// GetErrorCode extracts the error code from err, or CodeUnknown if err is
// not an *AppError.
func GetErrorCode(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeUnknown
}

// GetErrorMessage extracts the human-readable message from err.
func GetErrorMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
