package crypto_test

import (
	"bytes"
	"testing"

	"github.com/routersec/cryptex-core/internal/constants"
	qerrors "github.com/routersec/cryptex-core/internal/errors"
	"github.com/routersec/cryptex-core/pkg/crypto"
)

// --- Random Tests ---

func TestSecureRandom(t *testing.T) {
	buf := make([]byte, 32)
	if err := crypto.SecureRandom(buf); err != nil {
		t.Fatalf("SecureRandom failed: %v", err)
	}

	allZeros := true
	for _, b := range buf {
		if b != 0 {
			allZeros = false
			break
		}
	}
	if allZeros {
		t.Error("SecureRandom returned all zeros")
	}
}

func TestSecureRandomBytes(t *testing.T) {
	sizes := []int{16, 32, 64, 128}
	for _, size := range sizes {
		buf, err := crypto.SecureRandomBytes(size)
		if err != nil {
			t.Fatalf("SecureRandomBytes(%d) failed: %v", size, err)
		}
		if len(buf) != size {
			t.Errorf("SecureRandomBytes(%d) returned %d bytes", size, len(buf))
		}
	}
}

func TestConstantTimeCompare(t *testing.T) {
	a := []byte("hello world")
	b := []byte("hello world")
	c := []byte("hello worle")
	d := []byte("hello")

	if !crypto.ConstantTimeCompare(a, b) {
		t.Error("Equal slices should compare equal")
	}
	if crypto.ConstantTimeCompare(a, c) {
		t.Error("Different slices should not compare equal")
	}
	if crypto.ConstantTimeCompare(a, d) {
		t.Error("Different length slices should not compare equal")
	}
}

func TestZeroize(t *testing.T) {
	buf := []byte{1, 2, 3, 4, 5}
	crypto.Zeroize(buf)

	for i, b := range buf {
		if b != 0 {
			t.Errorf("Zeroize failed at index %d: got %d, want 0", i, b)
		}
	}
}

// --- KDF Tests ---

func TestDeriveKeyDeterminism(t *testing.T) {
	input := []byte("input material")

	first, err := crypto.DeriveKey("test-domain", input, 32)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	second, err := crypto.DeriveKey("test-domain", input, 32)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("DeriveKey is not deterministic")
	}
}

func TestDeriveKeyDomainSeparation(t *testing.T) {
	input := []byte("same input")

	a, err := crypto.DeriveKey("domain-a", input, 32)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	b, err := crypto.DeriveKey("domain-b", input, 32)
	if err != nil {
		t.Fatalf("DeriveKey failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("Different domains should produce different keys")
	}
}

func TestDeriveKeyMultipleFraming(t *testing.T) {
	// Length framing must keep ["ab","c"] and ["a","bc"] apart.
	a, err := crypto.DeriveKeyMultiple("framing", [][]byte{[]byte("ab"), []byte("c")}, 32)
	if err != nil {
		t.Fatalf("DeriveKeyMultiple failed: %v", err)
	}
	b, err := crypto.DeriveKeyMultiple("framing", [][]byte{[]byte("a"), []byte("bc")}, 32)
	if err != nil {
		t.Fatalf("DeriveKeyMultiple failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("Re-split inputs should produce different keys")
	}
}

func TestDeriveKeyOutputLengths(t *testing.T) {
	for _, n := range []int{1, 16, 32, 64, 256} {
		out, err := crypto.DeriveKey("lengths", []byte("x"), n)
		if err != nil {
			t.Fatalf("DeriveKey(%d) failed: %v", n, err)
		}
		if len(out) != n {
			t.Errorf("DeriveKey(%d) returned %d bytes", n, len(out))
		}
	}

	if _, err := crypto.DeriveKey("lengths", []byte("x"), 0); !qerrors.Is(err, qerrors.ErrInvalidKeySize) {
		t.Errorf("zero output length should fail, got %v", err)
	}
	if _, err := crypto.DeriveKey("lengths", []byte("x"), constants.KDFMaxOutput+1); !qerrors.Is(err, qerrors.ErrInvalidKeySize) {
		t.Errorf("oversized output length should fail, got %v", err)
	}
}

func TestDeriveSessionKeyMixing(t *testing.T) {
	qkdSecret := bytes.Repeat([]byte{0x11}, 32)
	kemSecret := bytes.Repeat([]byte{0x22}, constants.MLKEMSharedSecretSize)

	base, err := crypto.DeriveSessionKey(qkdSecret, kemSecret, "session-1", 32)
	if err != nil {
		t.Fatalf("DeriveSessionKey failed: %v", err)
	}
	if len(base) != 32 {
		t.Fatalf("DeriveSessionKey returned %d bytes, want 32", len(base))
	}

	otherQKD := bytes.Repeat([]byte{0x33}, 32)
	changed, err := crypto.DeriveSessionKey(otherQKD, kemSecret, "session-1", 32)
	if err != nil {
		t.Fatalf("DeriveSessionKey failed: %v", err)
	}
	if bytes.Equal(base, changed) {
		t.Error("Changing the QKD secret should change the derived key")
	}

	otherKEM := bytes.Repeat([]byte{0x44}, constants.MLKEMSharedSecretSize)
	changed, err = crypto.DeriveSessionKey(qkdSecret, otherKEM, "session-1", 32)
	if err != nil {
		t.Fatalf("DeriveSessionKey failed: %v", err)
	}
	if bytes.Equal(base, changed) {
		t.Error("Changing the KEM secret should change the derived key")
	}

	changed, err = crypto.DeriveSessionKey(qkdSecret, kemSecret, "session-2", 32)
	if err != nil {
		t.Fatalf("DeriveSessionKey failed: %v", err)
	}
	if bytes.Equal(base, changed) {
		t.Error("Changing the context label should change the derived key")
	}
}

func TestDeriveSessionKeyValidation(t *testing.T) {
	kemSecret := make([]byte, constants.MLKEMSharedSecretSize)

	if _, err := crypto.DeriveSessionKey(nil, kemSecret, "s", 32); !qerrors.Is(err, qerrors.ErrInvalidKeySize) {
		t.Errorf("empty QKD secret should fail, got %v", err)
	}
	if _, err := crypto.DeriveSessionKey([]byte("x"), make([]byte, 16), "s", 32); !qerrors.Is(err, qerrors.ErrInvalidKeySize) {
		t.Errorf("short KEM secret should fail, got %v", err)
	}
}

func TestDeriveAtRestKey(t *testing.T) {
	master := bytes.Repeat([]byte{0xAA}, 32)

	a, err := crypto.DeriveAtRestKey(master, "record-1")
	if err != nil {
		t.Fatalf("DeriveAtRestKey failed: %v", err)
	}
	b, err := crypto.DeriveAtRestKey(master, "record-2")
	if err != nil {
		t.Fatalf("DeriveAtRestKey failed: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("Different records should derive different subkeys")
	}
	if len(a) != constants.AEADKeySize {
		t.Errorf("subkey size: got %d, want %d", len(a), constants.AEADKeySize)
	}

	if _, err := crypto.DeriveAtRestKey(make([]byte, 16), "r"); !qerrors.Is(err, qerrors.ErrInvalidKeySize) {
		t.Errorf("short master key should fail, got %v", err)
	}
}
