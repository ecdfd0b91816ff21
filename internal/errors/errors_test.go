package errors

import (
	"errors"
	"strings"
	"testing"
)

// TestCryptoError tests CryptoError type.
func TestCryptoError(t *testing.T) {
	baseErr := errors.New("base error")
	cerr := NewCryptoError("kem.Encapsulate", baseErr)

	errStr := cerr.Error()
	if !strings.Contains(errStr, "kem.Encapsulate") {
		t.Errorf("Error string should contain operation: %q", errStr)
	}
	if !strings.Contains(errStr, "base error") {
		t.Errorf("Error string should contain base error: %q", errStr)
	}

	if unwrapped := cerr.Unwrap(); unwrapped != baseErr {
		t.Errorf("Unwrap() returned %v, want %v", unwrapped, baseErr)
	}

	if cerr.Op != "kem.Encapsulate" {
		t.Errorf("Op = %q, want %q", cerr.Op, "kem.Encapsulate")
	}
	if cerr.Err != baseErr {
		t.Errorf("Err = %v, want %v", cerr.Err, baseErr)
	}
}

// TestSessionError tests SessionError type.
func TestSessionError(t *testing.T) {
	baseErr := errors.New("peer gone")
	serr := NewSessionError("lookup", baseErr)

	errStr := serr.Error()
	if !strings.Contains(errStr, "lookup") {
		t.Errorf("Error string should contain phase: %q", errStr)
	}
	if !strings.Contains(errStr, "peer gone") {
		t.Errorf("Error string should contain base error: %q", errStr)
	}

	if unwrapped := serr.Unwrap(); unwrapped != baseErr {
		t.Errorf("Unwrap() returned %v, want %v", unwrapped, baseErr)
	}

	if serr.Phase != "lookup" {
		t.Errorf("Phase = %q, want %q", serr.Phase, "lookup")
	}
}

// TestIsFunction tests the Is helper function.
func TestIsFunction(t *testing.T) {
	if !Is(ErrUnsupportedAlgorithm, ErrUnsupportedAlgorithm) {
		t.Error("Is() should return true for matching sentinel error")
	}

	wrapped := NewCryptoError("operation", ErrInvalidCiphertext)
	if !Is(wrapped, ErrInvalidCiphertext) {
		t.Error("Is() should return true for wrapped sentinel error")
	}

	nested := NewSessionError("lookup", NewCryptoError("kem.Decapsulate", ErrInvalidSecretKey))
	if !Is(nested, ErrInvalidSecretKey) {
		t.Error("Is() should unwrap through nested wrappers")
	}

	if Is(ErrIntegrityMismatch, ErrIntegrityReplay) {
		t.Error("Is() should return false for distinct sentinels")
	}
}

// TestAsFunction tests the As helper function.
func TestAsFunction(t *testing.T) {
	wrapped := NewSessionError("authenticate", NewCryptoError("sign.Verify", ErrSignatureInvalid))

	var cerr *CryptoError
	if !As(wrapped, &cerr) {
		t.Fatal("As() should find the nested CryptoError")
	}
	if cerr.Op != "sign.Verify" {
		t.Errorf("Op = %q, want %q", cerr.Op, "sign.Verify")
	}

	var serr *SessionError
	if !As(wrapped, &serr) {
		t.Fatal("As() should find the SessionError")
	}
	if serr.Phase != "authenticate" {
		t.Errorf("Phase = %q, want %q", serr.Phase, "authenticate")
	}
}

// TestSentinelMessagesAreDistinct guards against copy-paste duplicates.
func TestSentinelMessagesAreDistinct(t *testing.T) {
	sentinels := []error{
		ErrUnsupportedAlgorithm,
		ErrInvalidPublicKey,
		ErrInvalidSecretKey,
		ErrInvalidCiphertext,
		ErrProviderFailure,
		ErrSignatureInvalid,
		ErrIntegrityMissing,
		ErrIntegrityUnsupported,
		ErrIntegrityMissingTimestamp,
		ErrIntegrityMismatch,
		ErrIntegrityReplay,
		ErrNotFound,
		ErrPeerUnavailable,
		ErrValidation,
	}
	seen := make(map[string]bool, len(sentinels))
	for _, err := range sentinels {
		msg := err.Error()
		if seen[msg] {
			t.Errorf("duplicate sentinel message %q", msg)
		}
		seen[msg] = true
	}
}
