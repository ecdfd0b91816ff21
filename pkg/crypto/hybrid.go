// hybrid.go implements the hybrid key combiner used when a session key must
// bind two independently derived secrets (for example a QKD key and a KEM
// shared secret).
//
// Construction:
//
//	K = SHA-256(secretA) XOR SHA-256(secretB)
//
// If SHA-256 behaves as an independent random oracle on each input, compromise
// of either single secret alone does not reveal K. This is a defense-in-depth
// combiner, not a vetted KDF: it performs no domain separation and no context
// binding, and it must not be substituted for HKDF in protocols that need one.
package crypto

import (
	"crypto/sha256"

	qerrors "github.com/cryptexq/cryptexq-go/internal/errors"
)

// HybridKeySize is the size of the combined key in bytes.
const HybridKeySize = sha256.Size

// DeriveHybridKey combines two independent secrets into one 32-byte key by
// hashing each input with SHA-256 and XORing the digests byte by byte.
// Both inputs must be non-empty.
func DeriveHybridKey(secretA, secretB []byte) ([]byte, error) {
	if len(secretA) == 0 || len(secretB) == 0 {
		return nil, qerrors.NewCryptoError("crypto.DeriveHybridKey", qerrors.ErrValidation)
	}

	ha := sha256.Sum256(secretA)
	hb := sha256.Sum256(secretB)

	key := make([]byte, HybridKeySize)
	for i := range key {
		key[i] = ha[i] ^ hb[i]
	}
	return key, nil
}
