// Package sign provides a uniform sign/verify contract used to authenticate
// KEM public keys before they are distributed, preventing key substitution by
// a man in the middle.
//
// The real backend is Dilithium2 via CIRCL. The simulated backend computes
// sig = SHA-256(message || fixed label); it is intentionally forgeable by
// anyone who reads this source and exists only so the handshake can proceed
// where the real implementation is unavailable. Verification failure always
// aborts a handshake before encapsulation; encapsulating against an
// unauthenticated key is a protocol violation.
package sign

// Mode identifies which backend a Provider runs.
type Mode int

const (
	// ModeReal uses CIRCL's Dilithium2.
	ModeReal Mode = iota

	// ModeSimulated uses the forgeable hash construction.
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

// KeyPair holds a signature key pair.
type KeyPair struct {
	PublicKey []byte
	SecretKey []byte
}

// Provider is the uniform sign/verify contract.
type Provider interface {
	// GenerateKeyPair generates a fresh signing key pair.
	GenerateKeyPair() (*KeyPair, error)

	// Sign signs message with the secret key.
	Sign(secretKey, message []byte) ([]byte, error)

	// Verify reports whether signature is valid for message under publicKey.
	// It never returns an error; any malformed input verifies false.
	Verify(publicKey, message, signature []byte) bool

	// Mode reports which backend this provider runs.
	Mode() Mode
}

// NewProvider returns the provider for the given mode. As with the KEM
// provider, the choice is made once at startup.
func NewProvider(mode Mode) Provider {
	if mode == ModeSimulated {
		return &simulatedSigner{}
	}
	return &dilithiumSigner{}
}
