// replay.go implements the bounded recently-seen-tag ledger.
//
// The base protocol performs stateless verification, so any past valid
// envelope would re-verify if replayed verbatim. The ledger closes that gap
// for the window it can afford to remember: tags are recorded on successful
// verification and evicted oldest-first once the bound is reached.
package integrity

import "sync"

const defaultLedgerSize = 4096

type replayLedger struct {
	mu    sync.Mutex
	seen  map[string]struct{}
	order []string
	limit int
	head  int
}

func newReplayLedger(size int) *replayLedger {
	if size <= 0 {
		size = defaultLedgerSize
	}
	return &replayLedger{
		seen:  make(map[string]struct{}, size),
		order: make([]string, size),
		limit: size,
	}
}

// record returns false if the tag was already seen; otherwise it records the
// tag, evicting the oldest entry when full, and returns true.
func (l *replayLedger) record(tag string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, dup := l.seen[tag]; dup {
		return false
	}

	if old := l.order[l.head]; old != "" {
		delete(l.seen, old)
	}
	l.order[l.head] = tag
	l.head = (l.head + 1) % l.limit
	l.seen[tag] = struct{}{}
	return true
}
