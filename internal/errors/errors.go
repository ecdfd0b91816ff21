// Package errors defines the error taxonomy for the CryptexQ core. Errors are
// grouped by subsystem and carry enough information for callers to branch on
// without leaking key material in their messages.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for KEM and signature providers
var (
	// ErrUnsupportedAlgorithm indicates an algorithm outside the closed set.
	// It is returned before any cryptographic call is made.
	ErrUnsupportedAlgorithm = errors.New("kem: unsupported algorithm")

	// ErrInvalidPublicKey indicates a public key of the wrong size or encoding
	ErrInvalidPublicKey = errors.New("kem: invalid public key")

	// ErrInvalidSecretKey indicates a secret key of the wrong size or encoding
	ErrInvalidSecretKey = errors.New("kem: invalid secret key")

	// ErrInvalidCiphertext indicates a malformed KEM ciphertext
	ErrInvalidCiphertext = errors.New("kem: invalid ciphertext")

	// ErrProviderFailure indicates an unexpected provider error. Session
	// establishment downgrades it to simulated output; the downgrade is logged
	// at warning level because it silently weakens confidentiality.
	ErrProviderFailure = errors.New("provider: operation failed")

	// ErrSignatureInvalid indicates a signature that did not verify. During a
	// handshake this aborts before encapsulation.
	ErrSignatureInvalid = errors.New("sign: verification failed")
)

// Sentinel errors for the message integrity guard (receive path only)
var (
	// ErrIntegrityMissing indicates the envelope carries no integrity field.
	// Such envelopes are treated as legacy/untrusted, never as tampered.
	ErrIntegrityMissing = errors.New("integrity: missing integrity field")

	// ErrIntegrityUnsupported indicates an unrecognized tag algorithm
	ErrIntegrityUnsupported = errors.New("integrity: unsupported tag algorithm")

	// ErrIntegrityMissingTimestamp indicates the envelope has a tag but no
	// timestamp, so the tag cannot be recomputed
	ErrIntegrityMissingTimestamp = errors.New("integrity: missing timestamp")

	// ErrIntegrityMismatch indicates the recomputed tag differs from the
	// received one under constant-time comparison
	ErrIntegrityMismatch = errors.New("integrity: tag mismatch")

	// ErrIntegrityReplay indicates a verbatim replay of a previously verified
	// envelope, detected by the bounded recently-seen-tag ledger
	ErrIntegrityReplay = errors.New("integrity: replayed envelope")
)

// Sentinel errors for presence and session establishment
var (
	// ErrNotFound indicates the identity has no presence entry
	ErrNotFound = errors.New("presence: identity not registered")

	// ErrPeerUnavailable indicates one of the two identities of a session
	// request is not registered. The request terminates; there is no retry.
	ErrPeerUnavailable = errors.New("session: peer not online")

	// ErrValidation indicates a required event field is missing or malformed.
	// The event is rejected with no state change.
	ErrValidation = errors.New("session: missing required field")
)

// CryptoError wraps a cryptographic failure with the operation that produced it.
type CryptoError struct {
	Op  string // Operation that failed, e.g. "kem.Encapsulate"
	Err error  // Underlying error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error {
	return e.Err
}

// NewCryptoError creates a new CryptoError.
func NewCryptoError(op string, err error) *CryptoError {
	return &CryptoError{Op: op, Err: err}
}

// SessionError wraps a session-establishment failure with the protocol phase
// in which it occurred.
type SessionError struct {
	Phase string // e.g. "lookup", "authenticate", "encapsulate", "deliver"
	Err   error
}

func (e *SessionError) Error() string {
	return fmt.Sprintf("session %s: %v", e.Phase, e.Err)
}

func (e *SessionError) Unwrap() error {
	return e.Err
}

// NewSessionError creates a new SessionError.
func NewSessionError(phase string, err error) *SessionError {
	return &SessionError{Phase: phase, Err: err}
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
