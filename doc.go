// Package cryptexq provides the key-establishment and message-integrity core of
// the CryptexQ secure messaging service.
//
// The core establishes a per-pair 32-byte symmetric key between two online
// identities using one of two interchangeable strategies:
//
//   - Hybrid PQC mode: a post-quantum KEM (Kyber512 or FrodoKEM-640-SHAKE via
//     CIRCL) encapsulates a shared secret against the peer's registered public
//     key, authenticated by a Dilithium2 signature over that key.
//   - QKD mode: a classically simulated BB84 channel produces sifted bits that
//     both parties hash into the same 32-byte key.
//
// Every message relayed afterwards carries an HMAC-SHA256 integrity tag bound
// to its content, timestamp, and sender.
//
// # Quick Start
//
// Run the server:
//
//	cfg, _ := config.Load("cryptexq.yaml")
//	svc, _ := session.NewService(cfg, session.WithLogger(logger))
//	hub := transport.NewHub(svc, transport.WithHubLogger(logger))
//	hub.ListenAndServe(ctx, cfg.ListenAddr)
//
// For low-level key encapsulation:
//
//	provider := kem.NewProvider(kem.ModeReal)
//	kp, _ := provider.GenerateKeyPair(kem.Kyber512)
//	ct, ss, _ := provider.Encapsulate(kp.PublicKey, kem.Kyber512)
//	peer, _ := provider.Decapsulate(kp.SecretKey, ct, kem.Kyber512)
//
// # Package Structure
//
//   - pkg/kem: KEM provider with real (CIRCL) and simulated backends
//   - pkg/sign: Dilithium2 signature provider with simulated backend
//   - pkg/qkd: simulated BB84 quantum channel and key derivation
//   - pkg/crypto: random helpers and the hybrid hash-then-XOR combiner
//   - pkg/integrity: HMAC-SHA256 message integrity guard
//   - pkg/presence: online-identity registry (identity -> address + key material)
//   - pkg/session: establishment state machine and event service
//   - pkg/transport: WebSocket event hub
//   - pkg/metrics: structured logging, Prometheus collectors, tracing
//   - internal/constants: algorithm sizes and protocol constants
//   - internal/errors: error taxonomy
//   - internal/config: YAML configuration
//
// # Security Properties and Limitations
//
// The simulated backends exist for availability, not security: simulated KEM
// decapsulation returns a fixed label-derived secret, and simulated signatures
// are forgeable by construction. Both are reported through Provider.Mode and
// logged at startup. Message integrity verification is real (HMAC-SHA256 with
// constant-time comparison and an optional replay ledger), but the relayed
// ciphertext itself is treated as opaque bytes by this core.
package cryptexq
