// sign.go exposes the supported digital signature schemes through one
// uniform call shape keyed by a scheme tag.
//
// The scheme set is closed and versioned: Ed25519 for classical signatures
// and Dilithium (modes 2, 3, 5) for post-quantum signatures. Dispatch goes
// through a fixed table; an unknown tag is a validation failure and a backend
// failure is surfaced as-is with no fallback between schemes.
package crypto

import (
	"crypto/ed25519"

	"github.com/cloudflare/circl/sign/dilithium"

	qerrors "github.com/routersec/cryptex-core/internal/errors"
)

// SignatureScheme identifies one of the supported signature algorithms.
type SignatureScheme uint8

const (
	// SchemeEd25519 is classical Ed25519 (RFC 8032)
	SchemeEd25519 SignatureScheme = iota + 1

	// SchemeDilithium2 is Dilithium mode 2 (NIST Category 2)
	SchemeDilithium2

	// SchemeDilithium3 is Dilithium mode 3 (NIST Category 3)
	SchemeDilithium3

	// SchemeDilithium5 is Dilithium mode 5 (NIST Category 5)
	SchemeDilithium5
)

// String returns the scheme name.
func (s SignatureScheme) String() string {
	if b, ok := sigBackends[s]; ok {
		return b.name
	}
	return "Unknown"
}

// IsSupported reports whether the scheme is in the supported set.
func (s SignatureScheme) IsSupported() bool {
	_, ok := sigBackends[s]
	return ok
}

// SignatureSchemes returns the closed set of supported schemes.
func SignatureSchemes() []SignatureScheme {
	return []SignatureScheme{SchemeEd25519, SchemeDilithium2, SchemeDilithium3, SchemeDilithium5}
}

// SigningKeyPair holds the packed keys for one scheme.
type SigningKeyPair struct {
	Scheme     SignatureScheme
	PublicKey  []byte
	PrivateKey []byte
}

type sigBackend struct {
	name     string
	generate func() (pub, priv []byte, err error)
	sign     func(priv, msg []byte) ([]byte, error)
	verify   func(pub, msg, sig []byte) (bool, error)
}

// sigBackends is the fixed dispatch table. The supported set is finite and
// versioned, so no dynamic registration exists.
var sigBackends = map[SignatureScheme]sigBackend{
	SchemeEd25519: {
		name: "Ed25519",
		generate: func() ([]byte, []byte, error) {
			pub, priv, err := ed25519.GenerateKey(Reader)
			if err != nil {
				return nil, nil, qerrors.NewCryptoError("Ed25519.GenerateKey", qerrors.ErrCryptoBackend)
			}
			return pub, priv, nil
		},
		sign: func(priv, msg []byte) ([]byte, error) {
			if len(priv) != ed25519.PrivateKeySize {
				return nil, qerrors.NewCryptoError("Ed25519.Sign", qerrors.ErrInvalidKeySize)
			}
			return ed25519.Sign(ed25519.PrivateKey(priv), msg), nil
		},
		verify: func(pub, msg, sig []byte) (bool, error) {
			if len(pub) != ed25519.PublicKeySize {
				return false, qerrors.NewCryptoError("Ed25519.Verify", qerrors.ErrInvalidKeySize)
			}
			return ed25519.Verify(ed25519.PublicKey(pub), msg, sig), nil
		},
	},
	SchemeDilithium2: dilithiumBackend("Dilithium2", dilithium.Mode2),
	SchemeDilithium3: dilithiumBackend("Dilithium3", dilithium.Mode3),
	SchemeDilithium5: dilithiumBackend("Dilithium5", dilithium.Mode5),
}

func dilithiumBackend(name string, mode dilithium.Mode) sigBackend {
	return sigBackend{
		name: name,
		generate: func() ([]byte, []byte, error) {
			pub, priv, err := mode.GenerateKey(Reader)
			if err != nil {
				return nil, nil, qerrors.NewCryptoError(name+".GenerateKey", qerrors.ErrCryptoBackend)
			}
			return pub.Bytes(), priv.Bytes(), nil
		},
		sign: func(priv, msg []byte) ([]byte, error) {
			if len(priv) != mode.PrivateKeySize() {
				return nil, qerrors.NewCryptoError(name+".Sign", qerrors.ErrInvalidKeySize)
			}
			return mode.Sign(mode.PrivateKeyFromBytes(priv), msg), nil
		},
		verify: func(pub, msg, sig []byte) (bool, error) {
			if len(pub) != mode.PublicKeySize() {
				return false, qerrors.NewCryptoError(name+".Verify", qerrors.ErrInvalidKeySize)
			}
			if len(sig) != mode.SignatureSize() {
				return false, nil
			}
			return mode.Verify(mode.PublicKeyFromBytes(pub), msg, sig), nil
		},
	}
}

// GenerateSigningKeyPair generates a key pair for the given scheme.
func GenerateSigningKeyPair(scheme SignatureScheme) (*SigningKeyPair, error) {
	b, ok := sigBackends[scheme]
	if !ok {
		return nil, qerrors.NewCryptoError("GenerateSigningKeyPair", qerrors.ErrUnknownAlgorithm)
	}

	pub, priv, err := b.generate()
	if err != nil {
		return nil, err
	}

	return &SigningKeyPair{Scheme: scheme, PublicKey: pub, PrivateKey: priv}, nil
}

// Sign produces a detached signature over message with the given scheme.
func Sign(scheme SignatureScheme, privateKey, message []byte) ([]byte, error) {
	b, ok := sigBackends[scheme]
	if !ok {
		return nil, qerrors.NewCryptoError("Sign", qerrors.ErrUnknownAlgorithm)
	}
	return b.sign(privateKey, message)
}

// Verify reports whether signature is valid over message for the given
// scheme and public key. A malformed key is an error; a bad signature is
// simply false.
func Verify(scheme SignatureScheme, publicKey, message, signature []byte) (bool, error) {
	b, ok := sigBackends[scheme]
	if !ok {
		return false, qerrors.NewCryptoError("Verify", qerrors.ErrUnknownAlgorithm)
	}
	return b.verify(publicKey, message, signature)
}
