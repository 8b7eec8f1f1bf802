// mlkem.go wraps the ML-KEM-1024 key encapsulation mechanism.
//
// ML-KEM (Module-Lattice-based Key-Encapsulation Mechanism) is standardized in
// NIST FIPS 203. Its security rests on the Module Learning With Errors (MLWE)
// problem over the ring Z_q[X]/(X^256 + 1) with q = 3329 and module rank 4.
//
// ML-KEM-1024 is the only KEM this system uses; there is no scheme
// negotiation and no fallback.
//
// Security Level: NIST Category 5 (equivalent to AES-256 against quantum adversaries)
package crypto

import (
	"github.com/cloudflare/circl/kem/mlkem/mlkem1024"

	"github.com/routersec/cryptex-core/internal/constants"
	qerrors "github.com/routersec/cryptex-core/internal/errors"
)

// MLKEMPublicKey wraps an ML-KEM-1024 encapsulation key
type MLKEMPublicKey struct {
	key *mlkem1024.PublicKey
}

// Bytes returns the packed encapsulation key.
func (pk *MLKEMPublicKey) Bytes() []byte {
	out := make([]byte, constants.MLKEMPublicKeySize)
	pk.key.Pack(out)
	return out
}

// MLKEMPrivateKey wraps an ML-KEM-1024 decapsulation key
type MLKEMPrivateKey struct {
	key *mlkem1024.PrivateKey
}

// MLKEMKeyPair represents an ML-KEM-1024 key pair for post-quantum key encapsulation.
type MLKEMKeyPair struct {
	// EncapsulationKey is the public key used by others to encapsulate secrets
	EncapsulationKey *MLKEMPublicKey

	// DecapsulationKey is the private key used to decapsulate secrets
	DecapsulationKey *MLKEMPrivateKey
}

// GenerateMLKEMKeyPair generates a new ML-KEM-1024 key pair using the
// system CSPRNG. Returns an error only if the CSPRNG fails.
func GenerateMLKEMKeyPair() (*MLKEMKeyPair, error) {
	pk, sk, err := mlkem1024.GenerateKeyPair(Reader)
	if err != nil {
		return nil, qerrors.NewCryptoError("MLKEMKeyPair.Generate", qerrors.ErrCryptoBackend)
	}

	return &MLKEMKeyPair{
		EncapsulationKey: &MLKEMPublicKey{key: pk},
		DecapsulationKey: &MLKEMPrivateKey{key: sk},
	}, nil
}

// NewMLKEMKeyPairFromSeed generates an ML-KEM-1024 key pair from a 64-byte seed.
// This is deterministic: the same seed always produces the same key pair.
// Intended for reproducible tests and for key derivation from a master secret.
func NewMLKEMKeyPairFromSeed(seed []byte) (*MLKEMKeyPair, error) {
	if len(seed) != constants.MLKEMSeedSize {
		return nil, qerrors.ErrInvalidKeySize
	}

	pk, sk, err := mlkem1024.GenerateKeyPair(&deterministicReader{data: seed})
	if err != nil {
		return nil, qerrors.NewCryptoError("MLKEMKeyPair.FromSeed", qerrors.ErrCryptoBackend)
	}

	return &MLKEMKeyPair{
		EncapsulationKey: &MLKEMPublicKey{key: pk},
		DecapsulationKey: &MLKEMPrivateKey{key: sk},
	}, nil
}

// deterministicReader provides deterministic "randomness" from a seed
type deterministicReader struct {
	data   []byte
	offset int
}

func (r *deterministicReader) Read(p []byte) (n int, err error) {
	n = copy(p, r.data[r.offset:])
	r.offset += n
	// Wrap around if more bytes are needed than the seed provides
	for n < len(p) {
		r.offset = 0
		m := copy(p[n:], r.data)
		n += m
		r.offset = m
	}
	return n, nil
}

// MLKEMEncapsulate generates a fresh shared secret for the holder of the
// given encapsulation key and returns the ciphertext that transports it.
func MLKEMEncapsulate(pk *MLKEMPublicKey) (ciphertext, sharedSecret []byte, err error) {
	if pk == nil || pk.key == nil {
		return nil, nil, qerrors.NewCryptoError("MLKEMEncapsulate", qerrors.ErrValidation)
	}

	seed, err := SecureRandomBytes(mlkem1024.EncapsulationSeedSize)
	if err != nil {
		return nil, nil, err
	}

	ciphertext = make([]byte, constants.MLKEMCiphertextSize)
	sharedSecret = make([]byte, constants.MLKEMSharedSecretSize)
	pk.key.EncapsulateTo(ciphertext, sharedSecret, seed)
	Zeroize(seed)

	return ciphertext, sharedSecret, nil
}

// MLKEMDecapsulate recovers the shared secret from a ciphertext.
//
// ML-KEM decapsulation is implicitly rejecting: a forged ciphertext yields a
// pseudorandom secret rather than an error, so callers detect mismatches at
// the AEAD layer, not here.
func MLKEMDecapsulate(sk *MLKEMPrivateKey, ciphertext []byte) ([]byte, error) {
	if sk == nil || sk.key == nil {
		return nil, qerrors.NewCryptoError("MLKEMDecapsulate", qerrors.ErrValidation)
	}
	if len(ciphertext) != constants.MLKEMCiphertextSize {
		return nil, qerrors.NewCryptoError("MLKEMDecapsulate", qerrors.ErrValidation)
	}

	sharedSecret := make([]byte, constants.MLKEMSharedSecretSize)
	sk.key.DecapsulateTo(sharedSecret, ciphertext)

	return sharedSecret, nil
}
