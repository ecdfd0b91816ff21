// Package presence implements the registry of online identities.
//
// The registry is the sole source of truth for routing: a presence entry
// exists for an identity exactly while that identity is connected, and a
// lookup is O(1). Entries are immutable once created; re-registration
// replaces the entry (and its key material) wholesale, with no session
// continuity guarantee. Session keys are never stored here.
//
// The registry is an injected value, not package state, so independent
// instances can coexist in tests and in embedded deployments.
package presence

import (
	"sort"
	"sync"
	"time"

	qerrors "github.com/cryptexq/cryptexq-go/internal/errors"
	"github.com/cryptexq/cryptexq-go/pkg/kem"
	"github.com/cryptexq/cryptexq-go/pkg/sign"
)

// Entry binds an online identity to its transport address and key material.
// Treat entries as read-only after Register returns.
type Entry struct {
	// Identity is the unique opaque username.
	Identity string

	// TransportAddr routes events to the identity's connection.
	TransportAddr string

	// ClassicalPublicKey is the client-supplied classical public key,
	// base64-encoded and opaque to this core.
	ClassicalPublicKey string

	// KEMKeyPair is the server-held KEM key pair for this identity.
	KEMKeyPair *kem.KeyPair

	// SigningPublicKey verifies KEMKeySignature.
	SigningPublicKey []byte

	// KEMKeySignature authenticates KEMKeyPair.PublicKey, so a peer can
	// detect substitution before encapsulating against it.
	KEMKeySignature []byte

	// RegisteredAt is when this entry was created.
	RegisteredAt time.Time
}

// Registry is the process-wide presence store. Reads proceed concurrently;
// mutation is serialized.
type Registry struct {
	kemProvider  kem.Provider
	signProvider sign.Provider
	algorithm    kem.Algorithm

	mu         sync.RWMutex
	byIdentity map[string]*Entry
}

// NewRegistry creates a registry that equips every registered identity with a
// keypair for the given KEM algorithm, signed by a fresh signing keypair.
func NewRegistry(kemProvider kem.Provider, signProvider sign.Provider, algorithm kem.Algorithm) *Registry {
	return &Registry{
		kemProvider:  kemProvider,
		signProvider: signProvider,
		algorithm:    algorithm,
		byIdentity:   make(map[string]*Entry),
	}
}

// Register creates (or replaces) the presence entry for identity. Key
// generation is CPU-bound and deliberately happens before the lock is taken,
// so a slow keygen never stalls concurrent lookups.
func (r *Registry) Register(identity, transportAddr, classicalPublicKey string) (*Entry, error) {
	if identity == "" || transportAddr == "" {
		return nil, qerrors.ErrValidation
	}

	kemKP, err := r.kemProvider.GenerateKeyPair(r.algorithm)
	if err != nil {
		return nil, err
	}
	signKP, err := r.signProvider.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	sig, err := r.signProvider.Sign(signKP.SecretKey, kemKP.PublicKey)
	if err != nil {
		return nil, err
	}

	entry := &Entry{
		Identity:           identity,
		TransportAddr:      transportAddr,
		ClassicalPublicKey: classicalPublicKey,
		KEMKeyPair:         kemKP,
		SigningPublicKey:   signKP.PublicKey,
		KEMKeySignature:    sig,
		RegisteredAt:       time.Now(),
	}

	r.mu.Lock()
	r.byIdentity[identity] = entry
	r.mu.Unlock()

	return entry, nil
}

// Lookup returns the entry for identity, or ErrNotFound.
func (r *Registry) Lookup(identity string) (*Entry, error) {
	r.mu.RLock()
	entry, ok := r.byIdentity[identity]
	r.mu.RUnlock()
	if !ok {
		return nil, qerrors.ErrNotFound
	}
	return entry, nil
}

// UnregisterByTransport removes every entry bound to the transport address
// and returns the identities that were removed. Unknown addresses are a
// no-op.
func (r *Registry) UnregisterByTransport(transportAddr string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var removed []string
	for identity, entry := range r.byIdentity {
		if entry.TransportAddr == transportAddr {
			delete(r.byIdentity, identity)
			removed = append(removed, identity)
		}
	}
	return removed
}

// ListIdentities returns all online identities, sorted for stable output.
func (r *Registry) ListIdentities() []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.byIdentity))
	for identity := range r.byIdentity {
		ids = append(ids, identity)
	}
	r.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Len reports the number of online identities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byIdentity)
}
