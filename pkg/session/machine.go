// machine.go implements the per-pair establishment state machine.
//
// Each identity pair moves through
//
//	Idle -> Requested -> KeyDistributed -> Established
//
// Requested is entered only when both identities are present in the registry.
// KeyDistributed is reached when the derived key material has been emitted to
// both transport addresses. The final transition is not implicit: each party
// acknowledges with a session_ack event, and the pair is Established once
// both acknowledgments arrive. Delivery without acknowledgment therefore
// remains visible as KeyDistributed instead of silently pretending success.
package session

import (
	"sync"
	"time"
)

// State is the establishment state of an identity pair.
type State int

const (
	// StateIdle means no establishment is in progress for the pair.
	StateIdle State = iota

	// StateRequested means both identities were found and derivation began.
	StateRequested

	// StateKeyDistributed means key material was emitted to both parties.
	StateKeyDistributed

	// StateEstablished means both parties acknowledged the key.
	StateEstablished
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRequested:
		return "Requested"
	case StateKeyDistributed:
		return "KeyDistributed"
	case StateEstablished:
		return "Established"
	default:
		return "Unknown"
	}
}

// Mode identifies which establishment protocol a pair ran.
type Mode string

// Establishment protocol modes. The two modes are mutually exclusive per
// request.
const (
	ModeHybridPQC Mode = "hybrid_pqc"
	ModeQKD       Mode = "qkd"
)

// pair is the normalized map key for an identity pair. Identities are opaque
// strings, so the key holds them as distinct fields rather than joining them
// with a delimiter an identity could itself contain.
type pair struct {
	a, b string
}

// pairOf normalizes an identity pair so (a,b) and (b,a) share state.
func pairOf(a, b string) pair {
	if a > b {
		a, b = b, a
	}
	return pair{a: a, b: b}
}

func (p pair) involves(identity string) bool {
	return p.a == identity || p.b == identity
}

type pairSession struct {
	mode      Mode
	state     State
	acked     map[string]bool
	updatedAt time.Time
}

// machine owns the pair-state map. All methods are safe for concurrent use.
type machine struct {
	mu    sync.Mutex
	pairs map[pair]*pairSession
}

func newMachine() *machine {
	return &machine{pairs: make(map[pair]*pairSession)}
}

// begin moves the pair to Requested for the given mode, replacing any prior
// state for the pair.
func (m *machine) begin(a, b string, mode Mode) {
	m.mu.Lock()
	m.pairs[pairOf(a, b)] = &pairSession{
		mode:      mode,
		state:     StateRequested,
		acked:     make(map[string]bool, 2),
		updatedAt: time.Now(),
	}
	m.mu.Unlock()
}

// abort returns the pair to Idle after a failed request.
func (m *machine) abort(a, b string) {
	m.mu.Lock()
	delete(m.pairs, pairOf(a, b))
	m.mu.Unlock()
}

// distributed marks the key material as delivered to both parties.
func (m *machine) distributed(a, b string) {
	m.mu.Lock()
	if ps, ok := m.pairs[pairOf(a, b)]; ok && ps.state == StateRequested {
		ps.state = StateKeyDistributed
		ps.updatedAt = time.Now()
	}
	m.mu.Unlock()
}

// ack records one party's acknowledgment. It reports whether the pair just
// became Established and the mode it ran; acks for unknown or undistributed
// pairs are ignored.
func (m *machine) ack(from, to string) (established bool, mode Mode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ps, ok := m.pairs[pairOf(from, to)]
	if !ok || ps.state < StateKeyDistributed {
		return false, ""
	}
	ps.acked[from] = true
	if ps.state == StateKeyDistributed && ps.acked[from] && ps.acked[to] {
		ps.state = StateEstablished
		ps.updatedAt = time.Now()
		return true, ps.mode
	}
	return false, ps.mode
}

// stateOf reports the pair's current state.
func (m *machine) stateOf(a, b string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ps, ok := m.pairs[pairOf(a, b)]; ok {
		return ps.state
	}
	return StateIdle
}

// dropIdentity clears all pair state involving the identity, typically on
// disconnect.
func (m *machine) dropIdentity(identity string) {
	m.mu.Lock()
	for key := range m.pairs {
		if key.involves(identity) {
			delete(m.pairs, key)
		}
	}
	m.mu.Unlock()
}
