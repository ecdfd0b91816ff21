// Package session orchestrates key establishment between registered
// identities and guards the encrypted-message relay.
//
// The Service owns no transport: it consumes decoded events plus the
// transport address they arrived on, and answers through an injected
// Emitter. That keeps every handler testable against an in-memory emitter
// and lets the WebSocket hub stay a thin adapter.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/cryptexq/cryptexq-go/internal/config"
	"github.com/cryptexq/cryptexq-go/internal/constants"
	qerrors "github.com/cryptexq/cryptexq-go/internal/errors"
	"github.com/cryptexq/cryptexq-go/pkg/crypto"
	"github.com/cryptexq/cryptexq-go/pkg/integrity"
	"github.com/cryptexq/cryptexq-go/pkg/kem"
	"github.com/cryptexq/cryptexq-go/pkg/metrics"
	"github.com/cryptexq/cryptexq-go/pkg/presence"
	"github.com/cryptexq/cryptexq-go/pkg/qkd"
	"github.com/cryptexq/cryptexq-go/pkg/sign"
)

// Service wires the registry, providers, quantum channel, integrity guard,
// and state machine behind the event surface consumed by the transport.
type Service struct {
	registry     *presence.Registry
	kemProvider  kem.Provider
	signProvider sign.Provider
	algorithm    kem.Algorithm
	guard        *integrity.Guard
	channel      *qkd.Channel
	machine      *machine

	log        *metrics.Logger
	tracer     metrics.Tracer
	collectors *metrics.Collectors
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger.
func WithLogger(log *metrics.Logger) ServiceOption {
	return func(s *Service) { s.log = log }
}

// WithTracer sets the tracer used around establishment operations.
func WithTracer(t metrics.Tracer) ServiceOption {
	return func(s *Service) { s.tracer = t }
}

// WithCollectors sets the Prometheus collectors.
func WithCollectors(c *metrics.Collectors) ServiceOption {
	return func(s *Service) { s.collectors = c }
}

// WithGuard overrides the integrity guard, mainly so tests can inject a
// fixed clock or secret.
func WithGuard(g *integrity.Guard) ServiceOption {
	return func(s *Service) { s.guard = g }
}

// WithChannel overrides the simulated quantum channel, mainly so tests can
// inject a deterministic randomness source.
func WithChannel(c *qkd.Channel) ServiceOption {
	return func(s *Service) { s.channel = c }
}

// NewService builds a Service from configuration. Provider backends are
// selected here, exactly once: the capability probe decides between real and
// simulated unless the configuration forces simulation. The resulting modes
// are logged because a simulated backend silently weakens confidentiality.
func NewService(cfg config.Config, opts ...ServiceOption) (*Service, error) {
	alg := kem.Algorithm(cfg.KEM.Algorithm)
	if !alg.Supported() {
		return nil, qerrors.ErrUnsupportedAlgorithm
	}

	kemMode, signMode := kem.ModeSimulated, sign.ModeSimulated
	if !cfg.KEM.ForceSimulated {
		kemMode = kem.Detect()
		signMode = sign.Detect()
	}

	s := &Service{
		kemProvider:  kem.NewProvider(kemMode),
		signProvider: sign.NewProvider(signMode),
		algorithm:    alg,
		machine:      newMachine(),
		log:          metrics.NewLogger(),
		tracer:       metrics.NoopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registry = presence.NewRegistry(s.kemProvider, s.signProvider, alg)

	if s.guard == nil {
		var secret []byte
		switch {
		case cfg.Integrity.SecretHex != "":
			var err error
			secret, err = integrity.KeyFromHex(cfg.Integrity.SecretHex)
			if err != nil {
				return nil, err
			}
		case cfg.Integrity.Passphrase != "":
			secret = integrity.KeyFromPassphrase(cfg.Integrity.Passphrase)
		}
		var gopts []integrity.Option
		if cfg.Integrity.ReplayLedgerSize > 0 {
			gopts = append(gopts, integrity.WithReplayLedger(cfg.Integrity.ReplayLedgerSize))
		}
		guard, err := integrity.NewGuard(secret, gopts...)
		if err != nil {
			return nil, err
		}
		s.guard = guard
	}

	if s.channel == nil {
		s.channel = qkd.NewChannel(qkd.Config{
			RawBits:   cfg.QKD.RawBits,
			ErrorRate: cfg.QKD.ErrorRate,
		})
	}

	s.log.Info("providers selected", metrics.Fields{
		"kem_algorithm": alg.String(),
		"kem_mode":      s.kemProvider.Mode().String(),
		"sign_mode":     s.signProvider.Mode().String(),
	})
	if s.kemProvider.Mode() == kem.ModeSimulated {
		s.log.Warn("KEM provider running in simulated mode; shared secrets are not confidential")
	}
	if s.signProvider.Mode() == sign.ModeSimulated {
		s.log.Warn("signature provider running in simulated mode; signatures are forgeable")
	}

	return s, nil
}

// Registry exposes the presence registry, for embedding servers and tests.
func (s *Service) Registry() *presence.Registry { return s.registry }

// PairState reports the establishment state of an identity pair.
func (s *Service) PairState(a, b string) State { return s.machine.stateOf(a, b) }

// Dispatch decodes a raw event payload and routes it to its handler. Unknown
// events answer with an error event rather than failing the connection.
func (s *Service) Dispatch(ctx context.Context, e Emitter, addr, event string, raw json.RawMessage) {
	switch event {
	case constants.EventRegister:
		var p RegisterPayload
		if !s.decode(e, addr, raw, &p) {
			return
		}
		s.HandleRegister(e, addr, p)
	case constants.EventRequestSession:
		var p StartSessionPayload
		if !s.decode(e, addr, raw, &p) {
			return
		}
		s.HandleRequestSession(ctx, e, addr, p)
	case constants.EventStartQKDSession:
		var p StartSessionPayload
		if !s.decode(e, addr, raw, &p) {
			return
		}
		s.HandleStartQKDSession(ctx, e, addr, p)
	case constants.EventSessionAck:
		var p StartSessionPayload
		if !s.decode(e, addr, raw, &p) {
			return
		}
		s.HandleSessionAck(e, addr, p)
	case constants.EventEncryptedMessage:
		var env integrity.Envelope
		if !s.decode(e, addr, raw, &env) {
			return
		}
		s.HandleEncryptedMessage(e, addr, &env)
	default:
		s.emitError(e, addr, "unknown event", event)
	}
}

func (s *Service) decode(e Emitter, addr string, raw json.RawMessage, into interface{}) bool {
	if err := json.Unmarshal(raw, into); err != nil {
		s.emitError(e, addr, "malformed payload", err.Error())
		return false
	}
	return true
}

func (s *Service) emitError(e Emitter, addr, msg, reason string) {
	_ = e.Emit(constants.EventError, ErrorPayload{Error: msg, Reason: reason}, addr)
}

// HandleRegister creates the presence entry for a connecting identity and
// announces the updated roster.
func (s *Service) HandleRegister(e Emitter, addr string, p RegisterPayload) {
	if p.Username == "" || p.ClassicalPubB64 == "" {
		s.emitError(e, addr, "invalid registration data", "username and classical_pub_b64 required")
		return
	}

	entry, err := s.registry.Register(p.Username, addr, p.ClassicalPubB64)
	if err != nil {
		s.log.Error("registration failed", metrics.Fields{"user": p.Username, "err": err.Error()})
		s.emitError(e, addr, "registration failed", "")
		return
	}

	_ = e.Emit(constants.EventRegistered, RegisteredPayload{
		Username:  p.Username,
		KEMPubB64: base64.StdEncoding.EncodeToString(entry.KEMKeyPair.PublicKey),
	}, addr)
	s.broadcastRoster(e)

	s.log.Info("user registered", metrics.Fields{"user": p.Username, "addr": addr})
}

// HandleDisconnect removes every identity bound to the transport address and
// announces the updated roster.
func (s *Service) HandleDisconnect(e Emitter, addr string) {
	removed := s.registry.UnregisterByTransport(addr)
	for _, identity := range removed {
		s.machine.dropIdentity(identity)
		s.log.Info("user disconnected", metrics.Fields{"user": identity})
	}
	s.broadcastRoster(e)
}

func (s *Service) broadcastRoster(e Emitter) {
	_ = e.Emit(constants.EventOnlineUsers, OnlineUsersPayload{Users: s.registry.ListIdentities()}, Broadcast)
	s.collectors.SetOnlineUsers(s.registry.Len())
}

// lookupPair performs the two registry lookups of an establishment request.
// If either identity is gone the request terminates with ErrPeerUnavailable;
// there is no retry and no partial session.
func (s *Service) lookupPair(from, to string) (*presence.Entry, *presence.Entry, error) {
	initiator, err := s.registry.Lookup(from)
	if err != nil {
		return nil, nil, qerrors.ErrPeerUnavailable
	}
	peer, err := s.registry.Lookup(to)
	if err != nil {
		return nil, nil, qerrors.ErrPeerUnavailable
	}
	return initiator, peer, nil
}

// HandleRequestSession runs the hybrid PQC establishment mode.
func (s *Service) HandleRequestSession(ctx context.Context, e Emitter, addr string, p StartSessionPayload) {
	if p.From == "" || p.To == "" {
		s.emitError(e, addr, "from/to required", "")
		s.collectors.SessionFailed("validation")
		return
	}

	_, end := s.tracer.StartSpan(ctx, "session.establish", map[string]string{
		"mode":      string(ModeHybridPQC),
		"algorithm": s.algorithm.String(),
	})

	initiator, peer, err := s.lookupPair(p.From, p.To)
	if err != nil {
		s.emitError(e, addr, "user(s) not online", "")
		s.collectors.SessionFailed("peer_unavailable")
		end(qerrors.NewSessionError("lookup", err))
		return
	}

	s.machine.begin(p.From, p.To, ModeHybridPQC)

	// The peer's KEM public key must be authenticated before anything is
	// encapsulated against it; a failed signature means substitution and
	// aborts the handshake outright.
	if !s.signProvider.Verify(peer.SigningPublicKey, peer.KEMKeyPair.PublicKey, peer.KEMKeySignature) {
		s.machine.abort(p.From, p.To)
		s.emitError(e, addr, "peer key authentication failed", "")
		s.collectors.SessionFailed("authentication")
		s.log.Warn("aborting handshake: unauthenticated KEM public key", metrics.Fields{
			"initiator": p.From, "peer": p.To,
		})
		end(qerrors.NewSessionError("authenticate", qerrors.ErrSignatureInvalid))
		return
	}

	ciphertext, secretInitiator, secretPeer := s.deriveHybridSecrets(peer)

	// Both identities were present at lookup; delivery is optimistic from
	// here, and the pair stays KeyDistributed until both parties ack.
	_ = e.Emit(constants.EventKyberSharedInit, KyberSharedInitiatorPayload{
		From:       p.To,
		KyberSSB64: base64.StdEncoding.EncodeToString(secretInitiator),
		PeerPubB64: peer.ClassicalPublicKey,
		CipherB64:  base64.StdEncoding.EncodeToString(ciphertext),
	}, initiator.TransportAddr)

	_ = e.Emit(constants.EventKyberReadyPeer, KyberReadyPeerPayload{
		From:            p.From,
		CipherB64:       base64.StdEncoding.EncodeToString(ciphertext),
		InitiatorPubB64: initiator.ClassicalPublicKey,
		KyberSSB64:      base64.StdEncoding.EncodeToString(secretPeer),
	}, peer.TransportAddr)

	_ = e.Emit(constants.EventSessionInitiated, SessionInitiatedPayload{OK: true}, addr)

	s.machine.distributed(p.From, p.To)
	s.collectors.SessionEstablished(string(ModeHybridPQC))
	s.log.Info("hybrid PQC session keys distributed", metrics.Fields{
		"initiator": p.From, "peer": p.To, "algorithm": s.algorithm.String(),
	})
	end(nil)

	crypto.Zeroize(secretInitiator)
	crypto.Zeroize(secretPeer)
}

// deriveHybridSecrets encapsulates against the peer's KEM public key and
// decapsulates with its secret key. By KEM correctness (real mode) or the
// fixed-secret convention (simulated mode) the two secrets agree.
//
// A provider failure does not abort the request: the policy, decided here
// and not inside the providers, is to downgrade to a fully simulated
// ciphertext/secret pair so the session can still form. The downgrade is
// logged at warning level because it silently costs confidentiality.
func (s *Service) deriveHybridSecrets(peer *presence.Entry) (ciphertext, secretInitiator, secretPeer []byte) {
	ciphertext, secretInitiator, err := s.kemProvider.Encapsulate(peer.KEMKeyPair.PublicKey, s.algorithm)
	if err == nil {
		secretPeer, err = s.kemProvider.Decapsulate(peer.KEMKeyPair.SecretKey, ciphertext, s.algorithm)
		if err == nil {
			return ciphertext, secretInitiator, secretPeer
		}
	}

	s.log.Warn("KEM provider failed, falling back to simulated key material", metrics.Fields{
		"algorithm": s.algorithm.String(), "err": err.Error(),
	})
	s.collectors.ProviderFallback()

	sizes, szErr := kem.AlgorithmSizes(s.algorithm)
	if szErr != nil {
		// Unreachable: the algorithm was validated at construction.
		sizes = kem.Sizes{Ciphertext: 96, SharedSecret: constants.SessionKeySize}
	}
	ciphertext = crypto.MustSecureRandomBytes(sizes.Ciphertext)
	secretInitiator = crypto.MustSecureRandomBytes(sizes.SharedSecret)
	secretPeer = append([]byte(nil), secretInitiator...)
	return ciphertext, secretInitiator, secretPeer
}

// HandleStartQKDSession runs the simulated QKD establishment mode. The
// channel already guarantees agreement, so one identical key is delivered to
// both parties; no hybrid combination with a KEM secret occurs in this mode.
func (s *Service) HandleStartQKDSession(ctx context.Context, e Emitter, addr string, p StartSessionPayload) {
	if p.From == "" || p.To == "" {
		s.emitError(e, addr, "from/to required", "")
		s.collectors.SessionFailed("validation")
		return
	}

	_, end := s.tracer.StartSpan(ctx, "session.establish", map[string]string{
		"mode": string(ModeQKD),
	})

	initiator, peer, err := s.lookupPair(p.From, p.To)
	if err != nil {
		s.emitError(e, addr, "user(s) not online", "")
		s.collectors.SessionFailed("peer_unavailable")
		end(qerrors.NewSessionError("lookup", err))
		return
	}

	s.machine.begin(p.From, p.To, ModeQKD)

	key, exchange := s.channel.EstablishKey()
	sharedB64 := base64.StdEncoding.EncodeToString(key)

	_ = e.Emit(constants.EventQKDSharedKey, QKDSharedKeyPayload{
		Peer: p.To, SharedB64: sharedB64,
	}, initiator.TransportAddr)
	_ = e.Emit(constants.EventQKDSharedKey, QKDSharedKeyPayload{
		Peer: p.From, SharedB64: sharedB64,
	}, peer.TransportAddr)

	s.machine.distributed(p.From, p.To)
	s.collectors.SessionEstablished(string(ModeQKD))
	s.log.Info("QKD session key distributed", metrics.Fields{
		"initiator":    p.From,
		"peer":         p.To,
		"sifted_bits":  len(exchange.SiftedBits),
		"observed_err": exchange.ObservedErrorRate,
	})
	end(nil)

	crypto.Zeroize(key)
}

// HandleSessionAck records one party's acknowledgment of a distributed key.
// The acknowledging identity must be registered on the connection the ack
// arrived on, which stops a third party from completing someone else's
// handshake.
func (s *Service) HandleSessionAck(e Emitter, addr string, p StartSessionPayload) {
	if p.From == "" || p.To == "" {
		s.emitError(e, addr, "from/to required", "")
		return
	}
	entry, err := s.registry.Lookup(p.From)
	if err != nil || entry.TransportAddr != addr {
		s.emitError(e, addr, "ack rejected", "sender not registered on this connection")
		return
	}

	established, mode := s.machine.ack(p.From, p.To)
	if !established {
		return
	}

	peer, err := s.registry.Lookup(p.To)
	if err != nil {
		return
	}
	_ = e.Emit(constants.EventSessionEstablished, SessionEstablishedPayload{
		With: p.To, Mode: string(mode),
	}, entry.TransportAddr)
	_ = e.Emit(constants.EventSessionEstablished, SessionEstablishedPayload{
		With: p.From, Mode: string(mode),
	}, peer.TransportAddr)

	s.log.Info("session established", metrics.Fields{
		"a": p.From, "b": p.To, "mode": string(mode),
	})
}

// HandleEncryptedMessage relays an opaque encrypted envelope.
//
// Receive path is strict: an envelope that arrives with an integrity field
// must verify, or the message is rejected and the sender notified. Send path
// is best-effort: the relay re-seals unconditionally so the recipient always
// receives a freshly tagged envelope, and sealing cannot block forwarding.
func (s *Service) HandleEncryptedMessage(e Emitter, addr string, env *integrity.Envelope) {
	if env.To == "" {
		s.emitError(e, addr, "recipient not available", "")
		return
	}
	recipient, err := s.registry.Lookup(env.To)
	if err != nil {
		s.emitError(e, addr, "recipient not available", "")
		return
	}

	if env.Integrity != nil {
		if err := s.guard.Open(env); err != nil {
			kind := integrityFailureKind(err)
			s.collectors.IntegrityFailed(kind)
			s.log.Warn("integrity violation: message rejected", metrics.Fields{
				"from": env.From, "to": env.To, "kind": kind,
			})
			s.emitError(e, addr, "MESSAGE_INTEGRITY_FAILED", err.Error())
			return
		}
	}

	sealed := s.guard.Seal(env)

	_ = e.Emit(constants.EventNewEncryptedMessage, sealed, recipient.TransportAddr)
	// Echo the sealed copy to the sender so its client can show the tag.
	_ = e.Emit(constants.EventNewEncryptedMessage, sealed, addr)
	_ = e.Emit(constants.EventMessageDelivered, MessageDeliveredPayload{To: env.To, OK: true}, addr)

	s.collectors.MessageRelayed()
	s.log.Info("message relayed", metrics.Fields{"from": env.From, "to": env.To})
}

func integrityFailureKind(err error) string {
	switch {
	case errors.Is(err, qerrors.ErrIntegrityMissing):
		return "missing"
	case errors.Is(err, qerrors.ErrIntegrityUnsupported):
		return "unsupported"
	case errors.Is(err, qerrors.ErrIntegrityMissingTimestamp):
		return "missing_timestamp"
	case errors.Is(err, qerrors.ErrIntegrityReplay):
		return "replay"
	default:
		return "mismatch"
	}
}
