package crypto_test

import (
	"testing"

	qerrors "github.com/routersec/cryptex-core/internal/errors"
	"github.com/routersec/cryptex-core/pkg/crypto"
)

func TestSignVerifyAllSchemes(t *testing.T) {
	message := []byte("router firmware manifest v2")

	for _, scheme := range crypto.SignatureSchemes() {
		t.Run(scheme.String(), func(t *testing.T) {
			kp, err := crypto.GenerateSigningKeyPair(scheme)
			if err != nil {
				t.Fatalf("GenerateSigningKeyPair failed: %v", err)
			}

			sig, err := crypto.Sign(scheme, kp.PrivateKey, message)
			if err != nil {
				t.Fatalf("Sign failed: %v", err)
			}

			ok, err := crypto.Verify(scheme, kp.PublicKey, message, sig)
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if !ok {
				t.Error("valid signature rejected")
			}
		})
	}
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	for _, scheme := range crypto.SignatureSchemes() {
		t.Run(scheme.String(), func(t *testing.T) {
			kp, err := crypto.GenerateSigningKeyPair(scheme)
			if err != nil {
				t.Fatalf("GenerateSigningKeyPair failed: %v", err)
			}

			message := []byte("original message")
			sig, err := crypto.Sign(scheme, kp.PrivateKey, message)
			if err != nil {
				t.Fatalf("Sign failed: %v", err)
			}

			ok, err := crypto.Verify(scheme, kp.PublicKey, []byte("altered message"), sig)
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if ok {
				t.Error("tampered message accepted")
			}

			sig[0] ^= 0x01
			ok, err = crypto.Verify(scheme, kp.PublicKey, message, sig)
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if ok {
				t.Error("tampered signature accepted")
			}
		})
	}
}

func TestVerifyWrongSizeSignature(t *testing.T) {
	kp, err := crypto.GenerateSigningKeyPair(crypto.SchemeDilithium3)
	if err != nil {
		t.Fatalf("GenerateSigningKeyPair failed: %v", err)
	}

	ok, err := crypto.Verify(crypto.SchemeDilithium3, kp.PublicKey, []byte("m"), []byte("short"))
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if ok {
		t.Error("truncated signature accepted")
	}
}

func TestUnsupportedScheme(t *testing.T) {
	if _, err := crypto.GenerateSigningKeyPair(crypto.SignatureScheme(99)); !qerrors.Is(err, qerrors.ErrUnknownAlgorithm) {
		t.Errorf("unknown scheme should fail, got %v", err)
	}
	if _, err := crypto.Sign(crypto.SignatureScheme(99), nil, nil); !qerrors.Is(err, qerrors.ErrUnknownAlgorithm) {
		t.Errorf("unknown scheme should fail, got %v", err)
	}
}
