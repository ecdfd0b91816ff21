// Package kem provides a uniform key-encapsulation contract over the
// post-quantum KEMs supported by the CryptexQ core.
//
// Two backends implement the contract: a real one backed by CIRCL and a
// simulated one that produces correctly sized pseudorandom bytes with a fixed
// label-derived shared secret. The backend is selected exactly once at
// startup (NewProvider / Detect); call sites never branch on the mode, which
// centralizes the real/simulated boundary for audit.
//
// The simulated backend guarantees agreement (every decapsulation yields the
// same fixed secret as every encapsulation) but provides no security, and
// Provider.Mode must be logged wherever a provider is constructed.
package kem

// Algorithm identifies a supported KEM. The set is closed: any other value
// fails with ErrUnsupportedAlgorithm before any cryptographic call.
type Algorithm string

// Supported KEM algorithms.
const (
	// Kyber512 is CRYSTALS-Kyber at the 512 parameter set (NIST level 1).
	Kyber512 Algorithm = "kyber"

	// Frodo640 is FrodoKEM-640-SHAKE, an unstructured-lattice alternative.
	Frodo640 Algorithm = "frodo"
)

// Supported reports whether the algorithm is in the closed supported set.
func (a Algorithm) Supported() bool {
	return a == Kyber512 || a == Frodo640
}

// String returns the wire identifier of the algorithm.
func (a Algorithm) String() string { return string(a) }

// Mode identifies which backend a Provider runs.
type Mode int

const (
	// ModeReal uses the CIRCL implementations.
	ModeReal Mode = iota

	// ModeSimulated substitutes pseudorandom bytes and a fixed shared secret.
	ModeSimulated
)

// String returns a human-readable mode name for logging.
func (m Mode) String() string {
	switch m {
	case ModeReal:
		return "real"
	case ModeSimulated:
		return "simulated"
	default:
		return "unknown"
	}
}

// KeyPair holds an algorithm-tagged KEM key pair. The public key is shareable;
// the secret key must never cross to another identity.
type KeyPair struct {
	Algorithm Algorithm
	PublicKey []byte
	SecretKey []byte
}

// Provider is the uniform encapsulate/decapsulate contract.
type Provider interface {
	// GenerateKeyPair generates a fresh key pair for the algorithm.
	GenerateKeyPair(alg Algorithm) (*KeyPair, error)

	// Encapsulate produces a ciphertext for the holder of secretKey and the
	// shared secret it encapsulates.
	Encapsulate(publicKey []byte, alg Algorithm) (ciphertext, sharedSecret []byte, err error)

	// Decapsulate recovers the shared secret from a ciphertext.
	Decapsulate(secretKey, ciphertext []byte, alg Algorithm) ([]byte, error)

	// Mode reports which backend this provider runs.
	Mode() Mode
}

// NewProvider returns the provider for the given mode. The choice is made once
// at startup; all call sites share the returned value.
func NewProvider(mode Mode) Provider {
	if mode == ModeSimulated {
		return &simulatedProvider{}
	}
	return &circlProvider{}
}
