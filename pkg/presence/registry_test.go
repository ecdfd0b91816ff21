package presence

import (
	"errors"
	"reflect"
	"testing"

	qerrors "github.com/cryptexq/cryptexq-go/internal/errors"
	"github.com/cryptexq/cryptexq-go/pkg/kem"
	"github.com/cryptexq/cryptexq-go/pkg/sign"
)

func testRegistry() *Registry {
	return NewRegistry(kem.NewProvider(kem.ModeSimulated), sign.NewProvider(sign.ModeSimulated), kem.Kyber512)
}

func TestRegisterAndLookup(t *testing.T) {
	r := testRegistry()

	entry, err := r.Register("alice", "conn-1", "Y2xhc3NpY2Fs")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if entry.Identity != "alice" || entry.TransportAddr != "conn-1" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.KEMKeyPair == nil || len(entry.KEMKeyPair.PublicKey) == 0 {
		t.Fatal("entry missing KEM key material")
	}
	if len(entry.SigningPublicKey) == 0 || len(entry.KEMKeySignature) == 0 {
		t.Fatal("entry missing signing material")
	}

	got, err := r.Lookup("alice")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != entry {
		t.Error("Lookup returned a different entry")
	}
}

func TestRegisterSignsKEMPublicKey(t *testing.T) {
	signProvider := sign.NewProvider(sign.ModeSimulated)
	r := NewRegistry(kem.NewProvider(kem.ModeSimulated), signProvider, kem.Kyber512)

	entry, err := r.Register("alice", "conn-1", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !signProvider.Verify(entry.SigningPublicKey, entry.KEMKeyPair.PublicKey, entry.KEMKeySignature) {
		t.Error("KEM public key signature does not verify")
	}
}

func TestRegisterReplacesEntry(t *testing.T) {
	r := testRegistry()

	first, err := r.Register("alice", "conn-1", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	second, err := r.Register("alice", "conn-2", "")
	if err != nil {
		t.Fatalf("re-Register: %v", err)
	}

	got, err := r.Lookup("alice")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != second || got == first {
		t.Error("re-registration did not replace the entry")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegisterValidation(t *testing.T) {
	r := testRegistry()

	if _, err := r.Register("", "conn-1", ""); !errors.Is(err, qerrors.ErrValidation) {
		t.Errorf("empty identity: err = %v, want ErrValidation", err)
	}
	if _, err := r.Register("alice", "", ""); !errors.Is(err, qerrors.ErrValidation) {
		t.Errorf("empty transport addr: err = %v, want ErrValidation", err)
	}
}

func TestLookupUnknown(t *testing.T) {
	r := testRegistry()
	if _, err := r.Lookup("ghost"); !errors.Is(err, qerrors.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUnregisterByTransport(t *testing.T) {
	r := testRegistry()

	mustRegister(t, r, "alice", "conn-1")
	mustRegister(t, r, "bob", "conn-2")

	removed := r.UnregisterByTransport("conn-1")
	if !reflect.DeepEqual(removed, []string{"alice"}) {
		t.Errorf("removed = %v, want [alice]", removed)
	}
	if _, err := r.Lookup("alice"); !errors.Is(err, qerrors.ErrNotFound) {
		t.Error("alice still present after unregister")
	}
	if _, err := r.Lookup("bob"); err != nil {
		t.Errorf("bob removed by foreign-address unregister: %v", err)
	}

	if got := r.UnregisterByTransport("conn-unknown"); got != nil {
		t.Errorf("unknown address removed %v", got)
	}
}

func TestListIdentitiesSorted(t *testing.T) {
	r := testRegistry()

	for i, name := range []string{"carol", "alice", "bob"} {
		mustRegister(t, r, name, "conn-"+string(rune('1'+i)))
	}

	got := r.ListIdentities()
	want := []string{"alice", "bob", "carol"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListIdentities = %v, want %v", got, want)
	}
}

func mustRegister(t *testing.T, r *Registry, identity, addr string) {
	t.Helper()
	if _, err := r.Register(identity, addr, ""); err != nil {
		t.Fatalf("Register(%s): %v", identity, err)
	}
}
