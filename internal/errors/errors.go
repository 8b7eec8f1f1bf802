// Package errors defines custom error types for the cryptex-core encryption
// and storage system. These errors provide detailed information for debugging
// while maintaining security by not leaking sensitive information in error
// messages.
//
// Every failure surfaced by the core wraps one of the sentinel errors below,
// so callers can classify failures with errors.Is regardless of the wrapping
// depth. Retry policy is the caller's decision everywhere except
// ErrEavesdropping, which is explicitly designed to be retried with a fresh
// simulated channel.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for input validation. The specific sentinels wrap
// ErrValidation so callers can match either the exact condition or the
// whole category.
var (
	// ErrValidation indicates malformed or out-of-range caller input
	ErrValidation = errors.New("cryptex: invalid input")

	// ErrInputTooLarge indicates input exceeds the configured size cap
	ErrInputTooLarge = fmt.Errorf("input exceeds maximum size: %w", ErrValidation)

	// ErrUnknownAlgorithm indicates an identifier outside the closed set
	ErrUnknownAlgorithm = fmt.Errorf("unknown algorithm: %w", ErrValidation)

	// ErrInvalidKeySize indicates that a key has an incorrect size
	ErrInvalidKeySize = fmt.Errorf("invalid key size: %w", ErrValidation)
)

// Sentinel errors for cryptographic operations
var (
	// ErrCryptoBackend indicates a primitive failed; no fallback is attempted
	ErrCryptoBackend = errors.New("crypto: backend failure")

	// ErrAuthentication indicates AEAD tag verification failed.
	// This signals tampering or a wrong key and is never retryable.
	ErrAuthentication = errors.New("aead: authentication failed")

	// ErrDecryption indicates a sealed blob is structurally malformed
	ErrDecryption = errors.New("aead: malformed ciphertext")

	// ErrEavesdropping indicates the simulated QKD channel error rate
	// exceeded the configured threshold. Retryable with a fresh channel.
	ErrEavesdropping = errors.New("qkd: eavesdropping detected")

	// ErrInsufficientKey indicates sifting left too few bits for the
	// requested key length after leakage removal.
	ErrInsufficientKey = errors.New("qkd: insufficient sifted key material")
)

// Sentinel errors for storage operations
var (
	// ErrNotFound indicates a missing session or entry, including
	// sessions that have passed their TTL.
	ErrNotFound = errors.New("store: not found")

	// ErrDuplicate indicates a registry uniqueness violation
	ErrDuplicate = errors.New("store: duplicate key")

	// ErrStore indicates a backend I/O or transaction failure
	ErrStore = errors.New("store: backend failure")

	// ErrTimeout indicates a storage operation exceeded its deadline
	ErrTimeout = errors.New("store: operation timed out")

	// ErrClosed indicates the store handle has been closed
	ErrClosed = errors.New("store: closed")
)

// CryptoError wraps a cryptographic error with the failing operation
type CryptoError struct {
	Op  string // Operation that failed
	Err error  // Underlying error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// NewCryptoError creates a new CryptoError
func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// StoreError wraps a storage error with the failing operation and,
// when relevant, the key involved. The key is an identifier, never
// record contents.
type StoreError struct {
	Op  string // Operation that failed
	Key string // Affected key, empty when not applicable
	Err error  // Underlying error
}

func (e *StoreError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError
func NewStoreError(op, key string, err error) *StoreError {
	return &StoreError{Op: op, Key: key, Err: err}
}

// EavesdropError reports a QKD abort with the measured channel statistics.
// It unwraps to ErrEavesdropping.
type EavesdropError struct {
	ErrorRate float64 // Estimated channel error rate
	Threshold float64 // Configured abort threshold
}

func (e *EavesdropError) Error() string {
	return fmt.Sprintf("qkd: eavesdropping detected: error rate %.4f exceeds threshold %.4f",
		e.ErrorRate, e.Threshold)
}

func (e *EavesdropError) Unwrap() error {
	return ErrEavesdropping
}

// Is reports whether any error in err's chain matches target.
// This is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
// This is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
