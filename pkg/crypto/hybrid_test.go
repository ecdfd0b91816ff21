package crypto

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"testing"

	qerrors "github.com/cryptexq/cryptexq-go/internal/errors"
)

func TestDeriveHybridKey(t *testing.T) {
	a := []byte("first independent secret")
	b := []byte("second independent secret")

	k1, err := DeriveHybridKey(a, b)
	if err != nil {
		t.Fatalf("DeriveHybridKey: %v", err)
	}
	if len(k1) != HybridKeySize {
		t.Fatalf("key size = %d, want %d", len(k1), HybridKeySize)
	}

	k2, err := DeriveHybridKey(a, b)
	if err != nil {
		t.Fatalf("DeriveHybridKey: %v", err)
	}
	if !bytes.Equal(k1, k2) {
		t.Error("derivation is not deterministic")
	}

	// XOR of the two digests, verified against a direct computation.
	ha := sha256.Sum256(a)
	hb := sha256.Sum256(b)
	for i := range k1 {
		if k1[i] != ha[i]^hb[i] {
			t.Fatalf("byte %d does not match SHA-256(a) XOR SHA-256(b)", i)
		}
	}
}

func TestDeriveHybridKeyCommutes(t *testing.T) {
	a := []byte("alpha")
	b := []byte("beta")

	kab, err := DeriveHybridKey(a, b)
	if err != nil {
		t.Fatalf("DeriveHybridKey: %v", err)
	}
	kba, err := DeriveHybridKey(b, a)
	if err != nil {
		t.Fatalf("DeriveHybridKey: %v", err)
	}
	if !bytes.Equal(kab, kba) {
		t.Error("XOR combiner should be order-independent")
	}
}

func TestDeriveHybridKeySensitivity(t *testing.T) {
	a := []byte("alpha")
	b := []byte("beta")

	base, err := DeriveHybridKey(a, b)
	if err != nil {
		t.Fatalf("DeriveHybridKey: %v", err)
	}
	changed, err := DeriveHybridKey([]byte("alphb"), b)
	if err != nil {
		t.Fatalf("DeriveHybridKey: %v", err)
	}
	if bytes.Equal(base, changed) {
		t.Error("changing one input did not change the key")
	}
}

func TestDeriveHybridKeyEmptyInput(t *testing.T) {
	if _, err := DeriveHybridKey(nil, []byte("b")); !errors.Is(err, qerrors.ErrValidation) {
		t.Errorf("nil first input: err = %v, want ErrValidation", err)
	}
	if _, err := DeriveHybridKey([]byte("a"), nil); !errors.Is(err, qerrors.ErrValidation) {
		t.Errorf("nil second input: err = %v, want ErrValidation", err)
	}
}

func TestSecureRandomBytes(t *testing.T) {
	a, err := SecureRandomBytes(32)
	if err != nil {
		t.Fatalf("SecureRandomBytes: %v", err)
	}
	b, err := SecureRandomBytes(32)
	if err != nil {
		t.Fatalf("SecureRandomBytes: %v", err)
	}
	if len(a) != 32 || len(b) != 32 {
		t.Fatal("wrong output length")
	}
	if bytes.Equal(a, b) {
		t.Error("two draws returned identical bytes")
	}
}

func TestConstantTimeCompare(t *testing.T) {
	if !ConstantTimeCompare([]byte("abc"), []byte("abc")) {
		t.Error("equal inputs compared unequal")
	}
	if ConstantTimeCompare([]byte("abc"), []byte("abd")) {
		t.Error("unequal inputs compared equal")
	}
	if ConstantTimeCompare([]byte("abc"), []byte("abcd")) {
		t.Error("different lengths compared equal")
	}
}

func TestZeroize(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	Zeroize(b)
	for i, v := range b {
		if v != 0 {
			t.Fatalf("byte %d not cleared", i)
		}
	}
}
