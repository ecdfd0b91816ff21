// Package qkd implements a classically simulated BB84 quantum channel.
//
// The simulation covers the shape of the protocol, not its physics: sender
// bits and bases are drawn at random, the receiver picks independent bases,
// matching bases reproduce the sender bit subject to configurable channel
// noise, and mismatched bases yield a uniformly random measurement. Sifting
// keeps only the positions where the two basis strings agree, which retains
// roughly half of the raw positions.
//
// A trailing parity fix flips the final retained bit when needed to reach
// even parity. It is a simplified stand-in for real error correction and
// privacy amplification; it leaks structure and is acceptable only because
// the whole channel is a simulation.
package qkd

import (
	"crypto/sha256"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/cryptexq/cryptexq-go/internal/constants"
	"github.com/cryptexq/cryptexq-go/pkg/crypto"
)

// KeySize is the size of a derived QKD key in bytes.
const KeySize = constants.SessionKeySize

// Config holds channel parameters.
type Config struct {
	// RawBits is the number of raw BB84 positions per exchange.
	// Defaults to constants.QKDDefaultRawBits.
	RawBits int

	// ErrorRate is the probability that a matching-basis measurement is
	// flipped by channel noise. Defaults to constants.QKDDefaultErrorRate.
	ErrorRate float64
}

func (c Config) withDefaults() Config {
	if c.RawBits <= 0 {
		c.RawBits = constants.QKDDefaultRawBits
	}
	if c.ErrorRate < 0 || c.ErrorRate >= 1 {
		c.ErrorRate = constants.QKDDefaultErrorRate
	}
	return c
}

// Channel simulates a BB84 link between two parties.
type Channel struct {
	cfg Config

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Channel.
type Option func(*Channel)

// WithSource sets the randomness source, letting tests run deterministically.
func WithSource(src rand.Source) Option {
	return func(c *Channel) {
		c.rng = rand.New(src)
	}
}

// NewChannel creates a channel with the given configuration.
func NewChannel(cfg Config, opts ...Option) *Channel {
	c := &Channel{cfg: cfg.withDefaults()}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		var seed [32]byte
		copy(seed[:], crypto.MustSecureRandomBytes(len(seed)))
		c.rng = rand.New(rand.NewChaCha8(seed))
	}
	return c
}

// Exchange records one simulated BB84 run.
type Exchange struct {
	// SiftedBits are the sender's bits at matching-basis positions, after the
	// trailing parity fix. Values are 0 or 1.
	SiftedBits []byte

	// RawBits is the number of raw positions generated.
	RawBits int

	// ObservedErrorRate is the fraction of sifted positions where the
	// receiver's noisy measurement disagreed with the sender's bit.
	ObservedErrorRate float64
}

// GenerateRawBits runs one BB84 exchange over n raw positions and returns the
// sifted bit sequence. n <= 0 uses the configured default. Expected sifted
// length is n/2.
func (c *Channel) GenerateRawBits(n int) []byte {
	return c.Run(n).SiftedBits
}

// Run performs one full simulated exchange, retaining measurement statistics.
func (c *Channel) Run(n int) *Exchange {
	if n <= 0 {
		n = c.cfg.RawBits
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	senderBits := make([]byte, n)
	senderBases := make([]byte, n)
	receiverBases := make([]byte, n)
	receiverBits := make([]byte, n)

	for i := 0; i < n; i++ {
		senderBits[i] = byte(c.rng.IntN(2))
		senderBases[i] = byte(c.rng.IntN(2))
		receiverBases[i] = byte(c.rng.IntN(2))

		if senderBases[i] == receiverBases[i] {
			receiverBits[i] = senderBits[i]
			if c.rng.Float64() < c.cfg.ErrorRate {
				receiverBits[i] ^= 1
			}
		} else {
			receiverBits[i] = byte(c.rng.IntN(2))
		}
	}

	// Sifting: keep sender bits where the bases agreed.
	sifted := make([]byte, 0, n/2+8)
	errs := 0
	for i := 0; i < n; i++ {
		if senderBases[i] != receiverBases[i] {
			continue
		}
		sifted = append(sifted, senderBits[i])
		if receiverBits[i] != senderBits[i] {
			errs++
		}
	}

	// Trailing parity fix: flip the last retained bit for even parity.
	if len(sifted) > 0 {
		parity := byte(0)
		for _, b := range sifted {
			parity ^= b
		}
		if parity != 0 {
			sifted[len(sifted)-1] ^= 1
		}
	}

	ex := &Exchange{SiftedBits: sifted, RawBits: n}
	if len(sifted) > 0 {
		ex.ObservedErrorRate = float64(errs) / float64(len(sifted))
	}
	return ex
}

// DeriveKey renders the bit sequence as a "0"/"1" character string and hashes
// it with SHA-256, yielding exactly KeySize bytes. Identical bit sequences
// always derive identical keys.
func DeriveKey(bits []byte) []byte {
	var b strings.Builder
	b.Grow(len(bits))
	for _, bit := range bits {
		if bit == 0 {
			b.WriteByte('0')
		} else {
			b.WriteByte('1')
		}
	}
	sum := sha256.Sum256([]byte(b.String()))
	return sum[:]
}

// EstablishKey runs one exchange and derives the 32-byte key from it.
func (c *Channel) EstablishKey() ([]byte, *Exchange) {
	ex := c.Run(0)
	return DeriveKey(ex.SiftedBits), ex
}
