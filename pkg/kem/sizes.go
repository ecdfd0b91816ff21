// sizes.go exposes the nominal byte sizes of each supported algorithm. Both
// the simulated backend and the session-level availability fallback shape
// their output with these values.
package kem

import (
	"github.com/cryptexq/cryptexq-go/internal/constants"
	qerrors "github.com/cryptexq/cryptexq-go/internal/errors"
)

// Sizes holds the nominal sizes, in bytes, of an algorithm's artifacts.
type Sizes struct {
	PublicKey    int
	SecretKey    int
	Ciphertext   int
	SharedSecret int
}

// AlgorithmSizes returns the nominal sizes for a supported algorithm.
func AlgorithmSizes(alg Algorithm) (Sizes, error) {
	switch alg {
	case Kyber512:
		return Sizes{
			PublicKey:    constants.Kyber512PublicKeySize,
			SecretKey:    constants.Kyber512SecretKeySize,
			Ciphertext:   constants.Kyber512CiphertextSize,
			SharedSecret: constants.Kyber512SharedSecretSize,
		}, nil
	case Frodo640:
		return Sizes{
			PublicKey:    constants.Frodo640PublicKeySize,
			SecretKey:    constants.Frodo640SecretKeySize,
			Ciphertext:   constants.Frodo640CiphertextSize,
			SharedSecret: constants.Frodo640SharedSecretSize,
		}, nil
	default:
		return Sizes{}, qerrors.ErrUnsupportedAlgorithm
	}
}
