package hashing_test

import (
	"encoding/hex"
	"testing"

	qerrors "github.com/routersec/cryptex-core/internal/errors"
	"github.com/routersec/cryptex-core/pkg/hashing"
)

func TestHMACSHA256Vector(t *testing.T) {
	// RFC 4231 test case 2.
	key := []byte("Jefe")
	data := []byte("what do ya want for nothing?")
	want := "5bdcc146bf60754e6a042426089575c75a003f089d2739839dec58b964ec3843"

	tag, err := hashing.HMACSHA256(key, data)
	if err != nil {
		t.Fatalf("HMACSHA256 failed: %v", err)
	}
	if hex.EncodeToString(tag) != want {
		t.Errorf("HMACSHA256 = %s, want %s", hex.EncodeToString(tag), want)
	}
}

func TestHMACVerify(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	data := []byte("authenticated payload")

	for name, compute := range map[string]func([]byte, []byte) ([]byte, error){
		"sha256": hashing.HMACSHA256,
		"sha512": hashing.HMACSHA512,
	} {
		tag, err := compute(key, data)
		if err != nil {
			t.Fatalf("%s: compute failed: %v", name, err)
		}

		verify := hashing.VerifyHMACSHA256
		if name == "sha512" {
			verify = hashing.VerifyHMACSHA512
		}

		ok, err := verify(key, data, tag)
		if err != nil || !ok {
			t.Errorf("%s: valid tag rejected: ok=%v err=%v", name, ok, err)
		}

		tag[0] ^= 0x01
		ok, err = verify(key, data, tag)
		if err != nil {
			t.Fatalf("%s: verify failed: %v", name, err)
		}
		if ok {
			t.Errorf("%s: tampered tag accepted", name)
		}
	}
}

func TestHMACEmptyKey(t *testing.T) {
	if _, err := hashing.HMACSHA256(nil, []byte("x")); !qerrors.Is(err, qerrors.ErrInvalidKeySize) {
		t.Errorf("empty key should fail with invalid-key-size, got %v", err)
	}
}
