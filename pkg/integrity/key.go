// key.go derives the process-wide integrity key from configuration.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/cryptexq/cryptexq-go/internal/constants"
	qerrors "github.com/cryptexq/cryptexq-go/internal/errors"
)

// KeyFromPassphrase expands a configured passphrase into the 32-byte HMAC key
// using HKDF-SHA256 with a fixed domain-separation info string. The same
// passphrase always yields the same key, so multiple processes sharing a
// passphrase verify each other's tags.
func KeyFromPassphrase(passphrase string) []byte {
	r := hkdf.New(sha256.New, []byte(passphrase), nil, []byte(constants.DomainSeparatorIntegrityKey))
	key := make([]byte, constants.HMACKeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		// HKDF cannot fail for a 32-byte read; treat it like CSPRNG loss.
		panic("integrity: hkdf expand failed: " + err.Error())
	}
	return key
}

// KeyFromHex decodes a hex-encoded 32-byte key from configuration.
func KeyFromHex(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil || len(key) != constants.HMACKeySize {
		return nil, qerrors.NewCryptoError("integrity.KeyFromHex", qerrors.ErrInvalidSecretKey)
	}
	return key, nil
}
