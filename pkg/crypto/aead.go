// aead.go implements Authenticated Encryption with Associated Data (AEAD).
//
// Two AEAD suites are supported:
//   - AES-256-GCM: hardware-accelerated on modern CPUs
//   - ChaCha20-Poly1305: high performance without hardware support
//
// Both use 256-bit keys, 96-bit nonces and 128-bit authentication tags.
//
// CRITICAL: Nonce reuse completely breaks security. Each (key, nonce) pair
// MUST be used at most once. Seal therefore generates a fresh random nonce
// from the CSPRNG on every call and prepends it to the output; with 96-bit
// random nonces the collision probability stays negligible for the per-key
// message counts this system produces. Sealed blobs are persisted and
// reopened across process restarts, so a counter-based scheme whose state
// dies with the process is not usable here.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/routersec/cryptex-core/internal/constants"
	qerrors "github.com/routersec/cryptex-core/internal/errors"
)

// AEAD represents an authenticated encryption cipher bound to one key.
// It is safe for concurrent use; Seal and Open share no mutable state.
type AEAD struct {
	cipher cipher.AEAD
	suite  constants.CipherSuite
}

// NewAEAD creates a new AEAD cipher with the specified suite and a 32-byte key.
func NewAEAD(suite constants.CipherSuite, key []byte) (*AEAD, error) {
	if len(key) != constants.AEADKeySize {
		return nil, qerrors.ErrInvalidKeySize
	}

	var aeadCipher cipher.AEAD

	switch suite {
	case constants.CipherSuiteAES256GCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, qerrors.NewCryptoError("NewAEAD", qerrors.ErrCryptoBackend)
		}
		aeadCipher, err = cipher.NewGCM(block)
		if err != nil {
			return nil, qerrors.NewCryptoError("NewAEAD", qerrors.ErrCryptoBackend)
		}

	case constants.CipherSuiteChaCha20Poly1305:
		var err error
		aeadCipher, err = chacha20poly1305.New(key)
		if err != nil {
			return nil, qerrors.NewCryptoError("NewAEAD", qerrors.ErrCryptoBackend)
		}

	default:
		return nil, qerrors.NewCryptoError("NewAEAD", qerrors.ErrUnknownAlgorithm)
	}

	return &AEAD{
		cipher: aeadCipher,
		suite:  suite,
	}, nil
}

// Seal encrypts and authenticates plaintext, returning
// nonce || ciphertext || tag. A fresh random nonce is generated per call;
// callers never supply nonces.
//
// additionalData is authenticated but not encrypted, and must match on Open.
func (a *AEAD) Seal(plaintext, additionalData []byte) ([]byte, error) {
	out := make([]byte, constants.AEADNonceSize, constants.AEADNonceSize+len(plaintext)+constants.AEADTagSize)
	if err := SecureRandom(out[:constants.AEADNonceSize]); err != nil {
		return nil, qerrors.NewCryptoError("AEAD.Seal", qerrors.ErrCryptoBackend)
	}

	return a.cipher.Seal(out, out[:constants.AEADNonceSize], plaintext, additionalData), nil
}

// Open decrypts and verifies a blob produced by Seal.
//
// A structurally malformed blob (too short to contain nonce and tag) fails
// with ErrDecryption. A well-formed blob whose tag does not verify fails
// with ErrAuthentication: tampering or a wrong key, never retryable.
func (a *AEAD) Open(sealed, additionalData []byte) ([]byte, error) {
	if len(sealed) < constants.MinSealedSize {
		return nil, qerrors.NewCryptoError("AEAD.Open", qerrors.ErrDecryption)
	}

	nonce := sealed[:constants.AEADNonceSize]
	encrypted := sealed[constants.AEADNonceSize:]

	plaintext, err := a.cipher.Open(nil, nonce, encrypted, additionalData)
	if err != nil {
		return nil, qerrors.NewCryptoError("AEAD.Open", qerrors.ErrAuthentication)
	}

	return plaintext, nil
}

// Suite returns the cipher suite identifier.
func (a *AEAD) Suite() constants.CipherSuite {
	return a.suite
}

// Overhead returns the number of bytes Seal adds: nonce plus tag.
func (a *AEAD) Overhead() int {
	return constants.AEADNonceSize + a.cipher.Overhead()
}
