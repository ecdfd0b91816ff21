package integrity

import (
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/cryptexq/cryptexq-go/internal/constants"
	qerrors "github.com/cryptexq/cryptexq-go/internal/errors"
)

func testGuard(t *testing.T, opts ...Option) *Guard {
	t.Helper()
	secret := make([]byte, constants.HMACKeySize)
	for i := range secret {
		secret[i] = byte(i)
	}
	g, err := NewGuard(secret, opts...)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	return g
}

func TestSealOpenRoundTrip(t *testing.T) {
	g := testGuard(t)

	env := &Envelope{From: "alice", To: "bob", ContentB64: "b3BhcXVl"}
	g.Seal(env)

	if env.Integrity == nil {
		t.Fatal("Seal did not attach a tag")
	}
	if env.Integrity.Type != constants.IntegrityTagType {
		t.Errorf("tag type = %q, want %q", env.Integrity.Type, constants.IntegrityTagType)
	}
	if env.Timestamp == "" {
		t.Fatal("Seal did not assign a timestamp")
	}
	if _, err := strconv.ParseInt(env.Timestamp, 10, 64); err != nil {
		t.Errorf("timestamp %q is not a decimal integer", env.Timestamp)
	}

	if err := g.Open(env); err != nil {
		t.Fatalf("Open after Seal: %v", err)
	}
}

func TestSealAssignsTimestampBeforeTagging(t *testing.T) {
	fixed := time.UnixMilli(1700000000123)
	g := testGuard(t, WithClock(func() time.Time { return fixed }))

	env := &Envelope{From: "alice", To: "bob", Message: "hello"}
	g.Seal(env)

	if env.Timestamp != "1700000000123" {
		t.Fatalf("timestamp = %q, want 1700000000123", env.Timestamp)
	}
	// The tag binds the assigned timestamp, so a verifier sees it verify.
	if err := g.Open(env); err != nil {
		t.Fatalf("Open: %v", err)
	}
}

func TestSealPreservesExistingTimestamp(t *testing.T) {
	g := testGuard(t)

	env := &Envelope{From: "alice", To: "bob", Message: "hi", Timestamp: "42"}
	g.Seal(env)
	if env.Timestamp != "42" {
		t.Errorf("timestamp rewritten to %q", env.Timestamp)
	}
	if err := g.Open(env); err != nil {
		t.Fatalf("Open: %v", err)
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	g := testGuard(t)

	fresh := func() *Envelope {
		env := &Envelope{From: "alice", To: "bob", ContentB64: "cGF5bG9hZA=="}
		return g.Seal(env)
	}

	cases := []struct {
		name   string
		mutate func(*Envelope)
	}{
		{"content", func(e *Envelope) { e.ContentB64 = "dGFtcGVyZWQ=" }},
		{"timestamp", func(e *Envelope) { e.Timestamp = "1" }},
		{"sender", func(e *Envelope) { e.From = "mallory" }},
		{"tag value", func(e *Envelope) { e.Integrity.Value = "00" + e.Integrity.Value[2:] }},
		{"tag not hex", func(e *Envelope) { e.Integrity.Value = "zz" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := fresh()
			tc.mutate(env)
			if err := g.Open(env); !errors.Is(err, qerrors.ErrIntegrityMismatch) {
				t.Errorf("err = %v, want ErrIntegrityMismatch", err)
			}
		})
	}
}

func TestOpenMissingFields(t *testing.T) {
	g := testGuard(t)

	env := &Envelope{From: "alice", To: "bob", Message: "m"}
	if err := g.Open(env); !errors.Is(err, qerrors.ErrIntegrityMissing) {
		t.Errorf("no tag: err = %v, want ErrIntegrityMissing", err)
	}

	env.Integrity = &Tag{Type: "CRC32", Value: "abcd"}
	if err := g.Open(env); !errors.Is(err, qerrors.ErrIntegrityUnsupported) {
		t.Errorf("unknown tag type: err = %v, want ErrIntegrityUnsupported", err)
	}

	sealed := g.Seal(&Envelope{From: "alice", To: "bob", Message: "m"})
	sealed.Timestamp = ""
	if err := g.Open(sealed); !errors.Is(err, qerrors.ErrIntegrityMissingTimestamp) {
		t.Errorf("no timestamp: err = %v, want ErrIntegrityMissingTimestamp", err)
	}
}

func TestOpenPrefersOpaqueContent(t *testing.T) {
	g := testGuard(t)

	env := g.Seal(&Envelope{From: "alice", To: "bob", ContentB64: "b3BhcXVl", Message: "plaintext fallback"})

	// Changing the unused fallback field must not affect the tag.
	env.Message = "rewritten"
	if err := g.Open(env); err != nil {
		t.Fatalf("Open: %v", err)
	}

	// Changing the bound opaque field must.
	env.ContentB64 = "ZGlmZmVyZW50"
	if err := g.Open(env); !errors.Is(err, qerrors.ErrIntegrityMismatch) {
		t.Errorf("err = %v, want ErrIntegrityMismatch", err)
	}
}

func TestOpenDetectsReplay(t *testing.T) {
	g := testGuard(t, WithReplayLedger(8))

	env := g.Seal(&Envelope{From: "alice", To: "bob", Message: "once"})
	if err := g.Open(env); err != nil {
		t.Fatalf("first Open: %v", err)
	}
	if err := g.Open(env); !errors.Is(err, qerrors.ErrIntegrityReplay) {
		t.Errorf("second Open: err = %v, want ErrIntegrityReplay", err)
	}
}

func TestReplayLedgerEvictsOldest(t *testing.T) {
	g := testGuard(t, WithReplayLedger(2), WithClock(func() time.Time { return time.UnixMilli(1) }))

	first := g.Seal(&Envelope{From: "alice", To: "bob", Message: "m1"})
	if err := g.Open(first); err != nil {
		t.Fatalf("Open m1: %v", err)
	}

	// Two more distinct tags push the first one out of the bounded ledger.
	for _, msg := range []string{"m2", "m3"} {
		env := g.Seal(&Envelope{From: "alice", To: "bob", Message: msg})
		if err := g.Open(env); err != nil {
			t.Fatalf("Open %s: %v", msg, err)
		}
	}

	if err := g.Open(first); err != nil {
		t.Errorf("evicted tag still treated as replay: %v", err)
	}
}

func TestNewGuardSecretValidation(t *testing.T) {
	if _, err := NewGuard(make([]byte, 16)); err == nil {
		t.Error("short secret accepted")
	}
	g, err := NewGuard(nil)
	if err != nil {
		t.Fatalf("nil secret: %v", err)
	}
	if err := g.Open(g.Seal(&Envelope{From: "a", To: "b", Message: "m"})); err != nil {
		t.Errorf("generated-secret guard round trip: %v", err)
	}
}

func TestGuardsWithDifferentSecretsDisagree(t *testing.T) {
	g1 := testGuard(t)
	g2, err := NewGuard(nil)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}

	env := g1.Seal(&Envelope{From: "alice", To: "bob", Message: "m"})
	if err := g2.Open(env); !errors.Is(err, qerrors.ErrIntegrityMismatch) {
		t.Errorf("foreign guard verified the tag: %v", err)
	}
}
