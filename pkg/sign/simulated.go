// simulated.go implements the forgeable simulated signature backend.
//
// SECURITY: sig = SHA-256(message || label) where label is a public constant.
// Anyone can forge these signatures; the backend exists only to keep the
// handshake shape intact when Dilithium is unavailable, and its use must be
// logged at startup.
package sign

import (
	"crypto/sha256"

	"github.com/cryptexq/cryptexq-go/internal/constants"
	"github.com/cryptexq/cryptexq-go/pkg/crypto"
)

// Simulated key sizes mirror Dilithium2's nominal sizes so that registry
// entries look identical in both modes.
type simulatedSigner struct{}

func (s *simulatedSigner) Mode() Mode { return ModeSimulated }

func (s *simulatedSigner) GenerateKeyPair() (*KeyPair, error) {
	pk, err := crypto.SecureRandomBytes(constants.Dilithium2PublicKeySize)
	if err != nil {
		return nil, err
	}
	sk, err := crypto.SecureRandomBytes(constants.Dilithium2SecretKeySize)
	if err != nil {
		return nil, err
	}
	return &KeyPair{PublicKey: pk, SecretKey: sk}, nil
}

func simulatedSignature(message []byte) []byte {
	h := sha256.New()
	h.Write(message)
	h.Write([]byte(constants.SimulatedSignSecretLabel))
	return h.Sum(nil)
}

func (s *simulatedSigner) Sign(_, message []byte) ([]byte, error) {
	return simulatedSignature(message), nil
}

func (s *simulatedSigner) Verify(_, message, signature []byte) bool {
	return crypto.ConstantTimeCompare(simulatedSignature(message), signature)
}
