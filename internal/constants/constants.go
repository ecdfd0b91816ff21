// Package constants defines security parameters and protocol constants for the
// CryptexQ key-establishment core.
//
// The KEM and signature sizes below are the nominal sizes of the real CIRCL
// implementations; the simulated backends produce byte strings of exactly these
// sizes so that callers cannot distinguish the modes structurally.
package constants

// Kyber512 parameters (CRYSTALS-Kyber, NIST round-3 parameter set)
const (
	// Kyber512PublicKeySize is the size of a Kyber512 encapsulation key in bytes
	Kyber512PublicKeySize = 800

	// Kyber512SecretKeySize is the size of a Kyber512 decapsulation key in bytes
	Kyber512SecretKeySize = 1632

	// Kyber512CiphertextSize is the size of a Kyber512 ciphertext in bytes
	Kyber512CiphertextSize = 768

	// Kyber512SharedSecretSize is the size of the Kyber512 shared secret in bytes
	Kyber512SharedSecretSize = 32
)

// FrodoKEM-640-SHAKE parameters
const (
	// Frodo640PublicKeySize is the size of a FrodoKEM-640-SHAKE public key in bytes
	Frodo640PublicKeySize = 9616

	// Frodo640SecretKeySize is the size of a FrodoKEM-640-SHAKE secret key in bytes
	Frodo640SecretKeySize = 19888

	// Frodo640CiphertextSize is the size of a FrodoKEM-640-SHAKE ciphertext in bytes
	Frodo640CiphertextSize = 9720

	// Frodo640SharedSecretSize is the size of the FrodoKEM-640-SHAKE shared secret in bytes
	Frodo640SharedSecretSize = 16
)

// Dilithium2 signature parameters
const (
	// Dilithium2PublicKeySize is the size of a Dilithium2 public key in bytes
	Dilithium2PublicKeySize = 1312

	// Dilithium2SecretKeySize is the size of a Dilithium2 secret key in bytes
	Dilithium2SecretKeySize = 2528

	// Dilithium2SignatureSize is the size of a Dilithium2 signature in bytes
	Dilithium2SignatureSize = 2420
)

// Simulated-mode labels. The simulated shared secret for an algorithm is
// SHA-256 of its label, truncated to the algorithm's shared-secret size, so
// every simulated decapsulation agrees with every simulated encapsulation.
// These values are public by construction and provide no security.
const (
	// SimulatedKyberSecretLabel derives the fixed simulated Kyber512 secret
	SimulatedKyberSecretLabel = "simulated_kyber_shared_secret"

	// SimulatedFrodoSecretLabel derives the fixed simulated FrodoKEM secret
	SimulatedFrodoSecretLabel = "simulated_frodo_shared_secret"

	// SimulatedSignSecretLabel derives the fixed simulated signing secret
	SimulatedSignSecretLabel = "simulated_dilithium_secret"
)

// Simulated quantum channel parameters
const (
	// QKDDefaultRawBits is the default number of raw BB84 positions generated
	// per establishment. Sifting retains roughly half, which comfortably
	// exceeds the 256 bits of entropy targeted by the derived key.
	QKDDefaultRawBits = 512

	// QKDDefaultErrorRate is the default channel noise: the probability that a
	// receiver bit measured in a matching basis is flipped.
	QKDDefaultErrorRate = 0.10
)

// Session key parameters
const (
	// SessionKeySize is the size of derived session key material in bytes
	// (AES-256 sized, though this core never performs bulk encryption).
	SessionKeySize = 32

	// HMACKeySize is the size of the process-wide integrity key in bytes.
	HMACKeySize = 32
)

// Key derivation domain separators
const (
	// DomainSeparatorIntegrityKey is the HKDF info string used when the
	// integrity key is derived from a configured passphrase.
	DomainSeparatorIntegrityKey = "cryptexq-v1-integrity-key"
)

// IntegrityTagType is the only supported integrity tag algorithm identifier.
const IntegrityTagType = "HMAC_SHA256"

// Inbound event names consumed from the transport layer.
const (
	EventRegister         = "register"
	EventRequestSession   = "request_start_session"
	EventStartQKDSession  = "start_qkd_session"
	EventSessionAck       = "session_ack"
	EventEncryptedMessage = "send_encrypted_message"
)

// Outbound event names emitted to the transport layer.
const (
	EventRegistered          = "registered"
	EventOnlineUsers         = "online_users"
	EventKyberSharedInit     = "kyber_shared_for_initiator"
	EventKyberReadyPeer      = "kyber_ready_peer"
	EventQKDSharedKey        = "qkd_shared_key"
	EventSessionInitiated    = "session_initiated"
	EventSessionEstablished  = "session_established"
	EventNewEncryptedMessage = "new_encrypted_message"
	EventMessageDelivered    = "message_delivered"
	EventError               = "error"
)
