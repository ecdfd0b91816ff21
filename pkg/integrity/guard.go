// Package integrity implements the keyed message integrity guard.
//
// Every relayed envelope is tagged with HMAC-SHA256 over
//
//	content "|" timestamp "|" sender
//
// where content is the primary opaque payload field (content_b64) when
// present, else the plaintext fallback field. The tag binds exactly the
// timestamp a verifier will see because Seal assigns the timestamp before
// tagging.
//
// The send path is best-effort: a sealing problem must never block
// forwarding. The receive path is strict: any Open failure blocks the
// message. Availability on send, integrity on receive.
package integrity

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"

	"github.com/cryptexq/cryptexq-go/internal/constants"
	qerrors "github.com/cryptexq/cryptexq-go/internal/errors"
	"github.com/cryptexq/cryptexq-go/pkg/crypto"
)

// Tag is the integrity field attached to an envelope.
type Tag struct {
	// Type identifies the tag algorithm; only "HMAC_SHA256" is supported.
	Type string `json:"type"`

	// Value is the hex-encoded HMAC digest.
	Value string `json:"value"`
}

// Envelope is the protocol message envelope crossing the transport boundary.
// Binary fields are base64; the timestamp is a decimal string of milliseconds
// since the Unix epoch.
type Envelope struct {
	From       string `json:"from"`
	To         string `json:"to"`
	ContentB64 string `json:"content_b64,omitempty"`
	Message    string `json:"message,omitempty"`
	IVB64      string `json:"iv_b64,omitempty"`
	Timestamp  string `json:"timestamp,omitempty"`
	Integrity  *Tag   `json:"integrity,omitempty"`
}

// content returns the field the tag binds: the opaque payload when present,
// else the fallback plaintext field.
func (e *Envelope) content() string {
	if e.ContentB64 != "" {
		return e.ContentB64
	}
	return e.Message
}

// Guard seals and opens envelopes with a single process-wide secret.
type Guard struct {
	secret []byte
	now    func() time.Time
	replay *replayLedger
}

// Option configures a Guard.
type Option func(*Guard)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Guard) { g.now = now }
}

// WithReplayLedger enables the bounded recently-seen-tag ledger. A verbatim
// replay of an envelope whose tag was already verified fails Open with
// ErrIntegrityReplay. size bounds memory; oldest entries are evicted first.
func WithReplayLedger(size int) Option {
	return func(g *Guard) { g.replay = newReplayLedger(size) }
}

// NewGuard creates a guard from a 32-byte secret. A nil secret generates a
// fresh one kept for the process lifetime.
func NewGuard(secret []byte, opts ...Option) (*Guard, error) {
	if secret == nil {
		secret = crypto.MustSecureRandomBytes(constants.HMACKeySize)
	}
	if len(secret) != constants.HMACKeySize {
		return nil, qerrors.NewCryptoError("integrity.NewGuard", qerrors.ErrInvalidSecretKey)
	}
	g := &Guard{secret: secret, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// computeTag returns the raw HMAC over content|timestamp|sender.
func (g *Guard) computeTag(content, timestamp, sender string) []byte {
	mac := hmac.New(sha256.New, g.secret)
	mac.Write([]byte(content))
	mac.Write([]byte("|"))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("|"))
	mac.Write([]byte(sender))
	return mac.Sum(nil)
}

// Seal adds or refreshes the envelope's integrity tag in place and returns
// the envelope. A missing timestamp is assigned first so the tag binds the
// exact timestamp a verifier will recompute over. Seal cannot fail.
func (g *Guard) Seal(env *Envelope) *Envelope {
	if env.Timestamp == "" {
		env.Timestamp = strconv.FormatInt(g.now().UnixMilli(), 10)
	}
	env.Integrity = &Tag{
		Type:  constants.IntegrityTagType,
		Value: hex.EncodeToString(g.computeTag(env.content(), env.Timestamp, env.From)),
	}
	return env
}

// Open verifies the envelope's integrity tag. The received tag is never
// trusted: it is always recomputed and compared in constant time.
//
// Failure modes:
//   - ErrIntegrityMissing: no integrity field (legacy/untrusted sender)
//   - ErrIntegrityUnsupported: unrecognized tag algorithm
//   - ErrIntegrityMissingTimestamp: tag present but no timestamp to bind
//   - ErrIntegrityMismatch: recomputed tag differs
//   - ErrIntegrityReplay: tag already verified (ledger enabled)
func (g *Guard) Open(env *Envelope) error {
	if env.Integrity == nil || env.Integrity.Value == "" {
		return qerrors.ErrIntegrityMissing
	}
	if env.Integrity.Type != constants.IntegrityTagType {
		return qerrors.ErrIntegrityUnsupported
	}
	if env.Timestamp == "" {
		return qerrors.ErrIntegrityMissingTimestamp
	}

	received, err := hex.DecodeString(env.Integrity.Value)
	if err != nil {
		return qerrors.ErrIntegrityMismatch
	}
	expected := g.computeTag(env.content(), env.Timestamp, env.From)
	if !crypto.ConstantTimeCompare(expected, received) {
		return qerrors.ErrIntegrityMismatch
	}

	if g.replay != nil && !g.replay.record(env.Integrity.Value) {
		return qerrors.ErrIntegrityReplay
	}
	return nil
}
