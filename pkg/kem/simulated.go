// simulated.go implements the deterministic simulated KEM backend.
//
// SECURITY: this backend is a stand-in for environments where the real
// implementation is unavailable. Keys and ciphertexts are pseudorandom bytes
// of the real algorithm's nominal sizes; the shared secret is always a fixed
// value derived by hashing a public constant label. Agreement between the two
// endpoints is therefore guaranteed by construction, and confidentiality is
// nil. A provider running this backend must be reported through Mode and
// logged at startup.
package kem

import (
	"crypto/sha256"

	"github.com/cryptexq/cryptexq-go/internal/constants"
	qerrors "github.com/cryptexq/cryptexq-go/internal/errors"
	"github.com/cryptexq/cryptexq-go/pkg/crypto"
)

func simulatedLabel(alg Algorithm) string {
	if alg == Frodo640 {
		return constants.SimulatedFrodoSecretLabel
	}
	return constants.SimulatedKyberSecretLabel
}

// SimulatedSecret returns the fixed shared secret the simulated backend
// yields for the algorithm: SHA-256 of its label, truncated to the
// algorithm's shared-secret size. Exported so tests can assert the
// agreement convention directly.
func SimulatedSecret(alg Algorithm) ([]byte, error) {
	s, err := AlgorithmSizes(alg)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256([]byte(simulatedLabel(alg)))
	out := make([]byte, s.SharedSecret)
	copy(out, sum[:])
	return out, nil
}

type simulatedProvider struct{}

func (p *simulatedProvider) Mode() Mode { return ModeSimulated }

func (p *simulatedProvider) GenerateKeyPair(alg Algorithm) (*KeyPair, error) {
	s, err := AlgorithmSizes(alg)
	if err != nil {
		return nil, err
	}

	pk, err := crypto.SecureRandomBytes(s.PublicKey)
	if err != nil {
		return nil, err
	}
	sk, err := crypto.SecureRandomBytes(s.SecretKey)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Algorithm: alg, PublicKey: pk, SecretKey: sk}, nil
}

func (p *simulatedProvider) Encapsulate(publicKey []byte, alg Algorithm) ([]byte, []byte, error) {
	s, err := AlgorithmSizes(alg)
	if err != nil {
		return nil, nil, err
	}
	if len(publicKey) != s.PublicKey {
		return nil, nil, qerrors.ErrInvalidPublicKey
	}

	ct, err := crypto.SecureRandomBytes(s.Ciphertext)
	if err != nil {
		return nil, nil, err
	}
	ss, err := SimulatedSecret(alg)
	if err != nil {
		return nil, nil, err
	}
	return ct, ss, nil
}

func (p *simulatedProvider) Decapsulate(secretKey, ciphertext []byte, alg Algorithm) ([]byte, error) {
	s, err := AlgorithmSizes(alg)
	if err != nil {
		return nil, err
	}
	if len(secretKey) != s.SecretKey {
		return nil, qerrors.ErrInvalidSecretKey
	}
	if len(ciphertext) != s.Ciphertext {
		return nil, qerrors.ErrInvalidCiphertext
	}
	return SimulatedSecret(alg)
}
