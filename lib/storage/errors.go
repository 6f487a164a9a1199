package storage

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is the error type used across the storage core. It wraps an error
// code (of type ErrCode), a message and optionally an underlying cause.
type Error struct {
	Code ErrCode // The error code
	Msg  string  // The error message
	Err  error   // Optional underlying cause
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("StorageError (code %s): %s: %v", e.Code, e.Msg, e.Err)
	}
	return fmt.Sprintf("StorageError (code %s): %s", e.Code, e.Msg)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// WrapError creates a new Error with the given code and message wrapping
// an underlying cause.
func WrapError(code ErrCode, msg string, err error) *Error {
	return &Error{Code: code, Msg: msg, Err: err}
}

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

type ErrCode uint64

const (
	ErrCodeStorage             ErrCode = iota // 0: Generic operation failure.
	ErrCodeAdapterNotAvailable                // 1: Backend missing or unusable on this platform.
	ErrCodeEncryption                         // 2: Missing password or decryption failure.
	ErrCodeNotSupported                       // 3: Adapter lacks an optional capability.
	ErrCodeSerialization                      // 4: Envelope or value could not be (de)serialized.
	ErrCodeKeyNotFound                        // 5: Key does not exist in the selected backend.
)

func (c ErrCode) String() string {
	switch c {
	case ErrCodeStorage:
		return "Storage"
	case ErrCodeAdapterNotAvailable:
		return "AdapterNotAvailable"
	case ErrCodeEncryption:
		return "Encryption"
	case ErrCodeNotSupported:
		return "NotSupported"
	case ErrCodeSerialization:
		return "Serialization"
	case ErrCodeKeyNotFound:
		return "KeyNotFound"
	default:
		return "Unknown"
	}
}

// --------------------------------------------------------------------------
// Error Classification Helpers
// --------------------------------------------------------------------------

// codeOf extracts the ErrCode from an error chain, returning ok=false for
// errors that did not originate from this package.
func codeOf(err error) (ErrCode, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return 0, false
}

// IsNotAvailable reports whether err means the adapter cannot be used on
// this platform. Selection retries across the adapter chain on this error.
func IsNotAvailable(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeAdapterNotAvailable
}

// IsEncryption reports whether err is an encryption failure.
func IsEncryption(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeEncryption
}

// IsNotSupported reports whether err means an optional capability was
// invoked on an adapter that does not provide it.
func IsNotSupported(err error) bool {
	code, ok := codeOf(err)
	return ok && code == ErrCodeNotSupported
}

// NewNotAvailable creates the canonical error for an adapter that cannot
// run on the current platform.
func NewNotAvailable(name Type, reason string) *Error {
	return NewError(ErrCodeAdapterNotAvailable, fmt.Sprintf("adapter %q not available: %s", name, reason))
}

// NewNotSupported creates the canonical error for an optional operation an
// adapter does not provide.
func NewNotSupported(name Type, op string) *Error {
	return NewError(ErrCodeNotSupported, fmt.Sprintf("adapter %q does not support %s", name, op))
}
