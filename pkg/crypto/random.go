// Package crypto provides small cryptographic helpers shared across the
// CryptexQ core: secure randomness, constant-time comparison, zeroization, and
// the hybrid key combiner.
//
// All random number generation uses crypto/rand, which sources entropy from
// the operating system's CSPRNG.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"io"

	qerrors "github.com/cryptexq/cryptexq-go/internal/errors"
)

// SecureRandom fills b with cryptographically secure random bytes. A non-nil
// error means the system CSPRNG failed, which should be treated as fatal.
func SecureRandom(b []byte) error {
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return qerrors.NewCryptoError("crypto.SecureRandom", err)
	}
	return nil
}

// SecureRandomBytes returns n cryptographically secure random bytes.
func SecureRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if err := SecureRandom(b); err != nil {
		return nil, err
	}
	return b, nil
}

// MustSecureRandomBytes returns n cryptographically secure random bytes and
// panics if the system CSPRNG fails.
func MustSecureRandomBytes(n int) []byte {
	b := make([]byte, n)
	if err := SecureRandom(b); err != nil {
		panic("crypto: failed to read from CSPRNG: " + err.Error())
	}
	return b
}

// ConstantTimeCompare reports whether a and b are equal without leaking the
// position of a difference through timing.
func ConstantTimeCompare(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

// Zeroize overwrites b with zeros. The Go runtime may already have copied the
// data, so this is best-effort hygiene rather than a guarantee.
func Zeroize(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
